package progress

import (
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Set is a collection of processed file names. Names are compared in Unicode
// NFC form so entries written on filesystems that decompose names still match,
// but each is kept in the spelling it was first added with.
type Set struct {
	names map[string]string
}

// NewSet returns a set seeded with names.
func NewSet(names ...string) Set {
	s := Set{names: make(map[string]string, len(names))}
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// Add inserts name. Empty names and spellings of a name already present are ignored.
func (s *Set) Add(name string) {
	if name == "" {
		return
	}
	if s.names == nil {
		s.names = make(map[string]string)
	}
	key := norm.NFC.String(name)
	if _, ok := s.names[key]; !ok {
		s.names[key] = name
	}
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s.names[norm.NFC.String(name)]
	return ok
}

// Delete removes name and reports whether it was present.
func (s *Set) Delete(name string) bool {
	key := norm.NFC.String(name)
	if _, ok := s.names[key]; !ok {
		return false
	}
	delete(s.names, key)
	return true
}

// Len returns the number of names.
func (s Set) Len() int {
	return len(s.names)
}

// Names returns the names as added, in lexical order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	return NewSet(s.Names()...)
}

