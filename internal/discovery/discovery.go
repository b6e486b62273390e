// Package discovery lists input audio files that still need separation.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stemsep/internal/progress"
)

// supportedExtensions is the allow-list of input formats, lower-cased without the dot.
var supportedExtensions = map[string]struct{}{
	"mp3":  {},
	"wav":  {},
	"ogg":  {},
	"flac": {},
}

// InputFile is one audio recording eligible for separation.
type InputFile struct {
	// Path is the absolute location on disk.
	Path string
	// Name is the on-disk file name, recorded as-is in the processed set.
	Name string
	// Base is Name without its extension; the separator keys output by it.
	Base string
}

// Supported reports whether name has an allowed audio extension.
func Supported(name string) bool {
	dotExt := filepath.Ext(name)
	ext := strings.TrimPrefix(dotExt, ".")
	// A dot-file such as ".wav" has no base name to key output by.
	if ext == "" || strings.TrimSuffix(name, dotExt) == "" {
		return false
	}
	_, ok := supportedExtensions[strings.ToLower(ext)]
	return ok
}

// Find returns the immediate entries of inputDir with a supported extension
// whose names are not in processed. Order follows the directory listing and is
// not sorted.
func Find(inputDir string, processed progress.Set) ([]InputFile, error) {
	absDir, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve input directory: %w", err)
	}
	dir, err := os.Open(absDir)
	if err != nil {
		return nil, fmt.Errorf("open input directory: %w", err)
	}
	defer dir.Close()

	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}

	files := make([]InputFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() && !isRegularTarget(absDir, entry) {
			continue
		}
		name := entry.Name()
		if !Supported(name) || processed.Has(name) {
			continue
		}
		files = append(files, InputFile{
			Path: filepath.Join(absDir, name),
			Name: name,
			Base: strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}
	return files, nil
}

// isRegularTarget follows symlinks so linked recordings are still picked up.
func isRegularTarget(dir string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

// Names returns the identity names of files in order.
func Names(files []InputFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}
