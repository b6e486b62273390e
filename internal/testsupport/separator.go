package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"stemsep/internal/discovery"
	"stemsep/internal/separator"
)

// FakeSeparator writes placeholder stems the way the real separator lays them
// out, without running any model.
type FakeSeparator struct {
	// Ext is the stem file extension; empty means mp3.
	Ext string
	// FailCalls lists 1-based invocation numbers that exit nonzero.
	FailCalls map[int]bool
	// FailFiles fails any invocation whose batch contains one of these names.
	FailFiles map[string]bool
	// Skip maps a model name to input names it silently produces nothing for.
	Skip map[string]map[string]bool
	// OmitStems maps a model name to stems it never writes.
	OmitStems map[string]map[string]bool
	// OnCall runs before each invocation; tests use it to cancel mid-run.
	OnCall func(call int, model separator.Model, files []discovery.InputFile)

	mu    sync.Mutex
	calls []FakeCall
}

// FakeCall records one invocation.
type FakeCall struct {
	Model string
	Files []string
}

// Calls returns the recorded invocations.
func (f *FakeSeparator) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// Separate implements separator.Separator.
func (f *FakeSeparator) Separate(ctx context.Context, model separator.Model, outputDir string, files []discovery.InputFile) (bool, error) {
	if len(files) == 0 {
		return true, nil
	}
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Model: model.Name, Files: discovery.Names(files)})
	call := len(f.calls)
	f.mu.Unlock()

	if f.OnCall != nil {
		f.OnCall(call, model, files)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.FailCalls[call] {
		return false, fmt.Errorf("fake model %s: exit status 1", model.Name)
	}
	for _, file := range files {
		if f.FailFiles[file.Name] {
			return false, fmt.Errorf("fake model %s: cannot decode %s", model.Name, file.Name)
		}
	}

	ext := f.Ext
	if ext == "" {
		ext = "mp3"
	}
	for _, file := range files {
		if f.Skip[model.Name][file.Name] {
			continue
		}
		// Output is keyed by the file name on disk, like the real tool.
		onDisk := filepath.Base(file.Path)
		dir := filepath.Join(outputDir, model.Name, strings.TrimSuffix(onDisk, filepath.Ext(onDisk)))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, err
		}
		// The real tool emits every stem it knows; the organizer must pick.
		for _, stem := range []string{"bass", "drums", "vocals", "other", "guitar", "piano"} {
			if f.OmitStems[model.Name][stem] {
				continue
			}
			content := []byte(model.Name + ":" + stem)
			if err := os.WriteFile(filepath.Join(dir, stem+"."+ext), content, 0o644); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}
