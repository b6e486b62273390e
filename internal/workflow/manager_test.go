package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"stemsep/internal/config"
	"stemsep/internal/discovery"
	"stemsep/internal/metrics"
	"stemsep/internal/organizer"
	"stemsep/internal/progress"
	"stemsep/internal/separator"
	"stemsep/internal/testsupport"
	"stemsep/internal/workflow"
)

var sixStems = []string{"bass.mp3", "drums.mp3", "guitar.mp3", "other.mp3", "piano.mp3", "vocals.mp3"}

func newManager(t *testing.T, cfg *config.Config, fake *testsupport.FakeSeparator, opts ...workflow.ManagerOption) *workflow.Manager {
	t.Helper()
	opts = append([]workflow.ManagerOption{workflow.WithSeparator(fake)}, opts...)
	m, err := workflow.NewManager(cfg, opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestRunOrganizesEveryFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(2))
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "one.wav", "two.flac", "three.ogg", "notes.txt")
	fake := &testsupport.FakeSeparator{}

	summary, err := newManager(t, cfg, fake).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Discovered != 3 || summary.Batches != 2 || summary.FilesOrganized != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Processed != 3 || summary.FilesFailed != 0 || summary.BatchesFailed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if got := testsupport.ProcessedNames(t, cfg); !reflect.DeepEqual(got, []string{"one.wav", "three.ogg", "two.flac"}) {
		t.Fatalf("unexpected processed set: %v", got)
	}
	for _, base := range []string{"one", "two", "three"} {
		if got := testsupport.ListNames(t, filepath.Join(cfg.Paths.OutputDir, base)); !reflect.DeepEqual(got, sixStems) {
			t.Fatalf("%s: expected six stems, got %v", base, got)
		}
	}
	// Two models per batch, two batches.
	if calls := fake.Calls(); len(calls) != 4 {
		t.Fatalf("expected 4 separator calls, got %d", len(calls))
	}
	if left := testsupport.ListNames(t, cfg.Paths.TempDir); len(left) != 0 {
		t.Fatalf("expected scratch directories to be removed, found %v", left)
	}
}

func TestRunTakesStemsFromOwningModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "song.mp3")

	if _, err := newManager(t, cfg, &testsupport.FakeSeparator{}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for stem, model := range map[string]string{"vocals": "htdemucs_ft", "bass": "htdemucs_ft", "other": "htdemucs_6s", "piano": "htdemucs_6s"} {
		content, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "song", stem+".mp3"))
		if err != nil {
			t.Fatalf("read %s: %v", stem, err)
		}
		if string(content) != model+":"+stem {
			t.Fatalf("%s should come from %s, got %q", stem, model, content)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "b.wav")

	if _, err := newManager(t, cfg, &testsupport.FakeSeparator{}).Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := testsupport.ProcessedNames(t, cfg)

	fake := &testsupport.FakeSeparator{}
	summary, err := newManager(t, cfg, fake).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if calls := fake.Calls(); len(calls) != 0 {
		t.Fatalf("expected no separator calls on rerun, got %v", calls)
	}
	if summary.Discovered != 0 || summary.Batches != 0 || summary.Processed != 2 {
		t.Fatalf("unexpected rerun summary: %+v", summary)
	}
	if got := testsupport.ProcessedNames(t, cfg); !reflect.DeepEqual(got, first) {
		t.Fatalf("processed set changed on rerun: %v -> %v", first, got)
	}
}

func TestRunIsolatesFailedBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "b.wav", "c.wav")
	// Batch 1 makes calls 1 and 2; the first model of batch 2 is call 3.
	fake := &testsupport.FakeSeparator{FailCalls: map[int]bool{3: true}}

	summary, err := newManager(t, cfg, fake).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 5 {
		t.Fatalf("expected 5 calls (second model of failed batch skipped), got %d: %v", len(calls), calls)
	}
	failed := calls[2].Files[0]
	if summary.BatchesFailed != 1 || summary.FilesOrganized != 2 || summary.FilesFailed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Name != failed || summary.Failures[0].Batch != 2 {
		t.Fatalf("expected failure for %s in batch 2, got %+v", failed, summary.Failures)
	}
	processed := testsupport.ProcessedNames(t, cfg)
	if len(processed) != 2 {
		t.Fatalf("expected two processed files, got %v", processed)
	}
	for _, name := range processed {
		if name == failed {
			t.Fatalf("failed file %s must not be marked processed", name)
		}
	}
	base := strings.TrimSuffix(failed, ".wav")
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, base)); !os.IsNotExist(err) {
		t.Fatalf("expected no output directory for failed file, stat err=%v", err)
	}

	// The failed file is retried on the next run.
	retry := &testsupport.FakeSeparator{}
	if _, err := newManager(t, cfg, retry).Run(context.Background()); err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if calls := retry.Calls(); len(calls) != 2 || !reflect.DeepEqual(calls[0].Files, []string{failed}) {
		t.Fatalf("expected retry of %s only, got %v", failed, calls)
	}
	if got := testsupport.ProcessedNames(t, cfg); len(got) != 3 {
		t.Fatalf("expected all three processed after retry, got %v", got)
	}
}

func TestRunResumesFromPersistedProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "done.wav", "todo.wav")
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	seed := progress.NewSet("done.wav")
	if err := testsupport.MustOpenStore(t, cfg).Save(context.Background(), seed); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	fake := &testsupport.FakeSeparator{}
	summary, err := newManager(t, cfg, fake).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, call := range fake.Calls() {
		if !reflect.DeepEqual(call.Files, []string{"todo.wav"}) {
			t.Fatalf("processed file was separated again: %v", call)
		}
	}
	if summary.Discovered != 1 || summary.Processed != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunRecordsMissingModelOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "b.mp3")
	fake := &testsupport.FakeSeparator{Skip: map[string]map[string]bool{
		"htdemucs_6s": {"b.mp3": true},
	}}

	summary, err := newManager(t, cfg, fake).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := testsupport.ProcessedNames(t, cfg); !reflect.DeepEqual(got, []string{"a.wav"}) {
		t.Fatalf("expected only a.wav processed, got %v", got)
	}
	if got := testsupport.ListNames(t, filepath.Join(cfg.Paths.OutputDir, "a")); !reflect.DeepEqual(got, sixStems) {
		t.Fatalf("expected six stems for a, got %v", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "b")); !os.IsNotExist(err) {
		t.Fatalf("expected no output for b, stat err=%v", err)
	}
	if summary.BatchesFailed != 0 {
		t.Fatalf("a merge failure is not a batch failure: %+v", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Name != "b.mp3" {
		t.Fatalf("expected failure recorded for b.mp3, got %+v", summary.Failures)
	}
	if !strings.Contains(summary.Failures[0].Reason, "htdemucs_6s") {
		t.Fatalf("expected reason to name the model, got %q", summary.Failures[0].Reason)
	}
}

func TestRunAcceptsPartialStemSets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "song.wav")
	fake := &testsupport.FakeSeparator{OmitStems: map[string]map[string]bool{
		"htdemucs_6s": {"piano": true},
	}}

	summary, err := newManager(t, cfg, fake).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FilesOrganized != 1 || len(summary.Partial) != 1 {
		t.Fatalf("expected one partial file, got %+v", summary)
	}
	if !reflect.DeepEqual(summary.Partial[0].Missing, []string{"piano"}) {
		t.Fatalf("unexpected missing stems: %v", summary.Partial[0].Missing)
	}
	if got := testsupport.ProcessedNames(t, cfg); !reflect.DeepEqual(got, []string{"song.wav"}) {
		t.Fatalf("partial file should be processed, got %v", got)
	}
}

func TestRunMinStemsRejectsPartialSets(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinStems(6))
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "song.wav")
	fake := &testsupport.FakeSeparator{OmitStems: map[string]map[string]bool{
		"htdemucs_ft": {"drums": true},
	}}

	summary, err := newManager(t, cfg, fake).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FilesOrganized != 0 || summary.FilesFailed != 1 {
		t.Fatalf("expected the file to fail the stem policy, got %+v", summary)
	}
	if got := testsupport.ProcessedNames(t, cfg); len(got) != 0 {
		t.Fatalf("expected nothing processed, got %v", got)
	}
}

func TestRunCancellationStopsAndCleansScratch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "b.wav", "c.wav")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &testsupport.FakeSeparator{
		OnCall: func(call int, _ separator.Model, _ []discovery.InputFile) {
			// Cancel while the second batch's first model is running.
			if call == 3 {
				cancel()
			}
		},
	}

	summary, err := newManager(t, cfg, fake).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !summary.Cancelled {
		t.Fatal("expected summary to be marked cancelled")
	}
	if calls := fake.Calls(); len(calls) != 3 {
		t.Fatalf("expected no calls after cancellation, got %d", len(calls))
	}
	if got := testsupport.ProcessedNames(t, cfg); len(got) != 1 {
		t.Fatalf("expected only the first batch processed, got %v", got)
	}
	if summary.BatchesFailed != 0 || len(summary.Failures) != 0 {
		t.Fatalf("cancellation is not a failure: %+v", summary)
	}
	if left := testsupport.ListNames(t, cfg.Paths.TempDir); len(left) != 0 {
		t.Fatalf("expected scratch directories to be removed, found %v", left)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav")

	held := progress.NewLock(cfg.LockPath())
	if err := held.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer held.Release()

	fake := &testsupport.FakeSeparator{}
	_, err := newManager(t, cfg, fake).Run(context.Background())
	if !errors.Is(err, progress.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatal("expected no separator calls while locked")
	}
}

func TestRunFailsOnCorruptProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav")
	testsupport.WriteFile(t, cfg.ProgressPath(), 8)

	fake := &testsupport.FakeSeparator{}
	_, err := newManager(t, cfg, fake).Run(context.Background())
	if !errors.Is(err, progress.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatal("expected no separator calls with corrupt progress")
	}
}

func TestRunFailsOnMissingInputDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.RemoveAll(cfg.Paths.InputDir); err != nil {
		t.Fatal(err)
	}
	if _, err := newManager(t, cfg, &testsupport.FakeSeparator{}).Run(context.Background()); err == nil {
		t.Fatal("expected error for missing input directory")
	}
}

func TestRunWithSQLiteProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProgressBackend(config.ProgressBackendSQLite))
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "b.wav")

	if _, err := newManager(t, cfg, &testsupport.FakeSeparator{}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "progress.db")); err != nil {
		t.Fatalf("expected sqlite progress file: %v", err)
	}
	if got := testsupport.ProcessedNames(t, cfg); !reflect.DeepEqual(got, []string{"a.wav", "b.wav"}) {
		t.Fatalf("unexpected processed set: %v", got)
	}
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.Textfile = filepath.Join(testsupport.BaseDir(cfg), "metrics", "stemsep.prom")
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav")

	rec := metrics.New()
	if _, err := newManager(t, cfg, &testsupport.FakeSeparator{}, workflow.WithMetrics(rec)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	content, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	text := string(content)
	for _, want := range []string{
		`stemsep_files_total{status="organized"} 1`,
		`stemsep_batches_total{status="success"} 1`,
		`stemsep_processed_files 1`,
		`stemsep_model_runs_total{model="htdemucs_ft",status="success"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, text)
		}
	}
}

type panickingOrganizer struct{}

func (panickingOrganizer) Organize(string, string) (organizer.Result, error) {
	panic("disk vanished")
}

func TestRunRecoversBatchPanic(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "b.wav")

	summary, err := newManager(t, cfg, &testsupport.FakeSeparator{}, workflow.WithOrganizer(panickingOrganizer{})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.BatchesFailed != 2 || summary.FilesFailed != 2 {
		t.Fatalf("expected both batches failed, got %+v", summary)
	}
	if !strings.Contains(summary.Failures[0].Reason, "disk vanished") {
		t.Fatalf("expected panic value in reason, got %q", summary.Failures[0].Reason)
	}
	if left := testsupport.ListNames(t, cfg.Paths.TempDir); len(left) != 0 {
		t.Fatalf("expected scratch directories to be removed, found %v", left)
	}
}

func TestRunUsesExecutorForDefaultSeparator(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav")
	exec := &exitExecutor{code: 1}

	m, err := workflow.NewManager(cfg, workflow.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("expected the batch to stop after the first model failed, got %d calls", exec.calls)
	}
	if summary.BatchesFailed != 1 || !strings.Contains(summary.Failures[0].Reason, "htdemucs_ft") {
		t.Fatalf("expected batch failure naming the model, got %+v", summary)
	}
	if exec.args[0] != "-m" || exec.name != cfg.Separation.Binary {
		t.Fatalf("unexpected command: %s %v", exec.name, exec.args)
	}
}

type exitExecutor struct {
	code  int
	calls int
	name  string
	args  []string
}

func (e *exitExecutor) Run(_ context.Context, name string, args []string) (int, error) {
	e.calls++
	e.name, e.args = name, args
	return e.code, nil
}

func TestSeparateConvenience(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	input := filepath.Join(base, "in")
	output := filepath.Join(base, "out")
	testsupport.WriteInputs(t, input, "x.wav", "y.wav", "z.wav")
	fake := &testsupport.FakeSeparator{}

	summary, err := workflow.Separate(context.Background(), input, output, 2, workflow.WithSeparator(fake))
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	if summary.Batches != 2 || summary.FilesOrganized != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(output, "progress.json")); err != nil {
		t.Fatalf("expected progress file in output dir: %v", err)
	}
}

func TestSeparateRejectsNegativeBatchSize(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	if _, err := workflow.Separate(context.Background(), filepath.Join(base, "in"), filepath.Join(base, "out"), -1); err == nil {
		t.Fatal("expected error for negative batch size")
	}
}

func TestRunProbesAcceleratorOnce(t *testing.T) {
	tests := []struct {
		name       string
		probe      func(context.Context, []string) (string, error)
		wantDevice string
	}{
		{"cuda", func(context.Context, []string) (string, error) { return "loading\ncuda\n", nil }, "cuda"},
		{"probe failure", func(context.Context, []string) (string, error) { return "", errors.New("no torch") }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
			cfg.Separation.Device = config.DeviceAuto
			testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "b.wav")

			probes := 0
			probe := func(ctx context.Context, cmd []string) (string, error) {
				probes++
				return tt.probe(ctx, cmd)
			}
			exec := &recordingExecutor{}
			m, err := workflow.NewManager(cfg, workflow.WithExecutor(exec), workflow.WithProber(probe))
			if err != nil {
				t.Fatalf("NewManager: %v", err)
			}
			if _, err := m.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if probes != 1 {
				t.Fatalf("expected one probe for the whole run, got %d", probes)
			}
			if len(exec.args) != 4 {
				t.Fatalf("expected two models for each of two batches, got %d runs", len(exec.args))
			}
			for _, args := range exec.args {
				device := ""
				for i, arg := range args {
					if arg == "-d" && i+1 < len(args) {
						device = args[i+1]
					}
				}
				if device != tt.wantDevice {
					t.Fatalf("expected device %q, got %q in %v", tt.wantDevice, device, args)
				}
			}
		})
	}
}

type recordingExecutor struct {
	args [][]string
}

func (e *recordingExecutor) Run(_ context.Context, _ string, args []string) (int, error) {
	e.args = append(e.args, append([]string(nil), args...))
	return 0, nil
}

type failingSaveStore struct {
	progress.Store
	saves int
}

func (s *failingSaveStore) Save(context.Context, progress.Set) error {
	s.saves++
	return errors.New("disk full")
}

func TestRunContinuesWhenProgressSaveFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "b.wav")
	store := &failingSaveStore{Store: progress.NewJSONStore(cfg.ProgressPath())}

	summary, err := newManager(t, cfg, &testsupport.FakeSeparator{}, workflow.WithStore(store)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.saves != 2 {
		t.Fatalf("expected a save attempt per organized file, got %d", store.saves)
	}
	if summary.FilesOrganized != 2 || summary.Processed != 2 {
		t.Fatalf("expected in-memory progress to advance, got %+v", summary)
	}
}

func TestRunFailsWholeBatchOnUndecodableFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(3))
	testsupport.WriteInputs(t, cfg.Paths.InputDir, "a.wav", "bad.wav", "c.wav")
	fake := &testsupport.FakeSeparator{FailFiles: map[string]bool{"bad.wav": true}}

	summary, err := newManager(t, cfg, fake).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.BatchesFailed != 1 || summary.FilesFailed != 3 || summary.FilesOrganized != 0 {
		t.Fatalf("expected every file of the batch to fail, got %+v", summary)
	}
	if got := testsupport.ProcessedNames(t, cfg); len(got) != 0 {
		t.Fatalf("expected nothing processed, got %v", got)
	}
}

// layoutExecutor writes stems the way demucs does: under the -o directory,
// per -n model, in a folder named after each input's on-disk base name.
type layoutExecutor struct{}

func (layoutExecutor) Run(_ context.Context, _ string, args []string) (int, error) {
	var model, out string
	var inputs []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n":
			i++
			model = args[i]
		case "-o":
			i++
			out = args[i]
		case "-d", "-m":
			i++
		default:
			if filepath.IsAbs(args[i]) && discovery.Supported(filepath.Base(args[i])) {
				inputs = append(inputs, args[i])
			}
		}
	}
	for _, input := range inputs {
		name := filepath.Base(input)
		dir := filepath.Join(out, model, strings.TrimSuffix(name, filepath.Ext(name)))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 1, err
		}
		for _, stem := range sixStems {
			if err := os.WriteFile(filepath.Join(dir, stem), []byte(model), 0o644); err != nil {
				return 1, err
			}
		}
	}
	return 0, nil
}

func TestRunOrganizesDecomposedFileNames(t *testing.T) {
	decomposed := "Cafe\u0301.wav"
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, decomposed, "plain.wav")

	m, err := workflow.NewManager(cfg, workflow.WithExecutor(layoutExecutor{}))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FilesOrganized != 2 || summary.FilesFailed != 0 {
		t.Fatalf("expected both files organized, got %+v", summary)
	}
	if got := testsupport.ListNames(t, filepath.Join(cfg.Paths.OutputDir, "Cafe\u0301")); !reflect.DeepEqual(got, sixStems) {
		t.Fatalf("expected six stems under the on-disk name, got %v", got)
	}
	if got := testsupport.ProcessedNames(t, cfg); !reflect.DeepEqual(got, []string{decomposed, "plain.wav"}) {
		t.Fatalf("expected real file names in progress, got %q", got)
	}

	again, err := workflow.NewManager(cfg, workflow.WithExecutor(layoutExecutor{}))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rerun, err := again.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rerun.Discovered != 0 {
		t.Fatalf("expected nothing left to process, got %+v", rerun)
	}
}

func TestRunFakeSeparatorKeysByOnDiskName(t *testing.T) {
	decomposed := "Ama\u0301lia.flac"
	cfg := testsupport.NewConfig(t)
	testsupport.WriteInputs(t, cfg.Paths.InputDir, decomposed)

	summary, err := newManager(t, cfg, &testsupport.FakeSeparator{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FilesOrganized != 1 {
		t.Fatalf("expected the file organized, got %+v", summary)
	}
	if got := testsupport.ProcessedNames(t, cfg); len(got) != 1 || got[0] != decomposed {
		t.Fatalf("expected %q recorded, got %q", decomposed, got)
	}
}
