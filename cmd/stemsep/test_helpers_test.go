package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stemsep/internal/config"
)

// fakeDemucs mimics the separator's output layout: for every input path it
// writes <out>/<model>/<base>/<stem>.mp3 for all six stems. Inputs whose base
// name is "broken" make it exit 3.
const fakeDemucs = `#!/bin/sh
model=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -m|-n|-o|-d)
      [ "$1" = "-n" ] && model="$2"
      [ "$1" = "-o" ] && out="$2"
      shift 2
      ;;
    --*)
      shift
      ;;
    *)
      base=$(basename "$1")
      base="${base%.*}"
      if [ "$base" = "broken" ]; then
        echo "cannot decode $1" >&2
        exit 3
      fi
      mkdir -p "$out/$model/$base"
      for stem in bass drums vocals other guitar piano; do
        printf '%s' "$model" > "$out/$model/$base/$stem.mp3"
      done
      shift
      ;;
  esac
done
echo "separated with $model"
`

type cliTestEnv struct {
	baseDir    string
	inputDir   string
	outputDir  string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		baseDir:    base,
		inputDir:   filepath.Join(base, "input"),
		outputDir:  filepath.Join(base, "output"),
		configPath: filepath.Join(homeDir, ".config", "stemsep", "config.toml"),
	}
	if err := os.MkdirAll(env.inputDir, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}

	binary := filepath.Join(base, "bin", "fake-demucs")
	if err := os.MkdirAll(filepath.Dir(binary), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(binary, []byte(fakeDemucs), 0o755); err != nil {
		t.Fatalf("write fake separator: %v", err)
	}

	content := fmt.Sprintf(`[paths]
input_dir = %q
output_dir = %q
log_dir = %q

[separation]
binary = %q
batch_size = 2
device = "none"

[logging]
file = false
level = "error"
`, env.inputDir, env.outputDir, filepath.Join(base, "logs"), binary)
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) config(t *testing.T) *config.Config {
	t.Helper()
	cfg, _, _, err := config.Load(e.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
