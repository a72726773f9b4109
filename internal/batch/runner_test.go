package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"nerassemble/internal/config"
	"nerassemble/internal/corpus"
	"nerassemble/internal/intermediate"
	"nerassemble/internal/ledger"
	"nerassemble/internal/publish"
	"nerassemble/internal/scratch"
	"nerassemble/internal/services"
	"nerassemble/internal/services/nertool"
	"nerassemble/internal/testsupport"
)

// fakeNER mimics the tool: it rewrites open lines with annotated-id, echoes
// close lines and upper-cases bodies with a /NNP tag.
type fakeNER struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
	rename  map[string]string
}

func (f *fakeNER) Run(ctx context.Context, inputPath, outputPath string) (nertool.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, _ := services.FileFromContext(ctx)
	f.calls = append(f.calls, name)
	if err := f.failFor[name]; err != nil {
		return nertool.Result{}, err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return nertool.Result{}, err
	}
	defer in.Close()
	var out strings.Builder
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if intermediate.IsOpenLine(line) {
			id, err := intermediate.ExtractID(line)
			if err != nil {
				return nertool.Result{}, err
			}
			if renamed, ok := f.rename[id]; ok {
				id = renamed
			}
			fmt.Fprintf(&out, "<FILENAME annotated-id=\"%s\">\n", id)
			continue
		}
		if intermediate.IsCloseLine(line) {
			out.WriteString(line + "\n")
			continue
		}
		fmt.Fprintf(&out, "%s/NNP\n", strings.ToUpper(line))
	}
	if err := os.WriteFile(outputPath, []byte(out.String()), 0o644); err != nil {
		return nertool.Result{}, err
	}
	return nertool.Result{OutputPath: outputPath}, scanner.Err()
}

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(context.Context, *corpus.Chunk, string) (publish.Published, error) {
	return publish.Published{}, p.err
}

type fixture struct {
	cfg    *config.Config
	input  string
	output string
	ner    *fakeNER
	ledger *ledger.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	return &fixture{
		cfg:    cfg,
		input:  filepath.Join(base, "in"),
		output: filepath.Join(base, "out"),
		ner:    &fakeNER{failFor: map[string]error{}, rename: map[string]string{}},
		ledger: testsupport.MustOpenLedger(t, cfg),
	}
}

func (f *fixture) runner(t *testing.T, pub Publisher) *Runner {
	t.Helper()
	if pub == nil {
		pub = publish.New(publish.Options{Compression: corpus.CompressionNone, Verify: true})
	}
	r, err := New(Options{
		Config:    f.cfg,
		NER:       f.ner,
		Publisher: pub,
		Ledger:    f.ledger,
		InputDir:  f.input,
		OutputDir: f.output,
		RunnerDir: "/opt/ner",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRunPublishesAllFiles(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteChunk(t, filepath.Join(f.input, "chunk-b"), "b1")
	testsupport.WriteChunk(t, filepath.Join(f.input, "chunk-a"), "a1", "a2")
	testsupport.WriteChunk(t, filepath.Join(f.input, ".hidden"), "h1")
	if err := os.MkdirAll(filepath.Join(f.input, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	summary, err := f.runner(t, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Published != 2 || summary.Failed != 0 || summary.Err() != nil {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := strings.Join(f.ner.calls, ","); got != "chunk-a,chunk-b" {
		t.Fatalf("processing order = %s", got)
	}

	chunk, err := corpus.ReadFile(filepath.Join(f.output, "chunk-a"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if strings.Join(chunk.StreamIDs(), ",") != "a1,a2" {
		t.Fatalf("ids = %v", chunk.StreamIDs())
	}
	rec := chunk.Records[1]
	if string(rec.NER) != "BODY OF A2./NNP\n" {
		t.Fatalf("NER = %q", rec.NER)
	}
	if len(rec.Labels) != 1 || rec.Labels[0].TargetID != "a2" || rec.Labels[0].Annotator != f.cfg.Corpus.Annotator {
		t.Fatalf("labels = %+v", rec.Labels)
	}

	entries, _ := os.ReadDir(f.cfg.Paths.ScratchDir)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".lock") {
			t.Fatalf("scratch artifact left behind: %s", e.Name())
		}
	}

	run, err := f.ledger.GetRun(context.Background(), summary.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != ledger.RunCompleted || run.Published != 2 {
		t.Fatalf("ledger run = %+v", run)
	}
}

func TestRunToolFailureDoesNotStopBatch(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteChunk(t, filepath.Join(f.input, "A"), "a1")
	testsupport.WriteChunk(t, filepath.Join(f.input, "B"), "b1")
	f.ner.failFor["A"] = services.Wrap(services.ErrExternalTool, "ner", "run", "stderr contains \"Exception\"", nil)

	summary, err := f.runner(t, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not halt: %v", err)
	}
	if summary.Published != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Err() == nil {
		t.Fatal("expected summary error for failed file")
	}
	if _, err := os.Stat(filepath.Join(f.output, "A")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("failed file must not be published")
	}
	if _, err := os.Stat(filepath.Join(f.output, "B")); err != nil {
		t.Fatalf("B not published: %v", err)
	}

	files, err := f.ledger.Files(context.Background(), summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0].Status != ledger.FileFailed || files[0].ErrorKind != "tool" {
		t.Fatalf("ledger files = %+v", files)
	}
	run, _ := f.ledger.GetRun(context.Background(), summary.RunID)
	if run.Status != ledger.RunFailed {
		t.Fatalf("run status = %q", run.Status)
	}
}

func TestRunEmbeddedOpenLineFailsAtExport(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteRecords(t, filepath.Join(f.input, "A"),
		&corpus.Record{StreamID: "a1", Cleansed: []byte("quoted\n<FILENAME docid=\"x\">\n")},
		&corpus.Record{StreamID: "a2", Cleansed: []byte("plain\n")},
	)
	testsupport.WriteChunk(t, filepath.Join(f.input, "B"), "b1")

	summary, err := f.runner(t, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not halt: %v", err)
	}
	if summary.Published != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	failed := summary.Files[0]
	if failed.Stage != StageExport || !errors.Is(failed.Err, intermediate.ErrBlockDrift) {
		t.Fatalf("failed file = %+v", failed)
	}
	if got := strings.Join(f.ner.calls, ","); got != "B" {
		t.Fatalf("ner calls = %s", got)
	}
}

func TestRunSkipsExistingOutput(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteChunk(t, filepath.Join(f.input, "A"), "a1")
	testsupport.WriteChunk(t, filepath.Join(f.input, "B"), "b1")
	testsupport.WriteChunk(t, filepath.Join(f.output, "A"), "already")

	summary, err := f.runner(t, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Published != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Files[0].Reason != ReasonOutputExists {
		t.Fatalf("reason = %q", summary.Files[0].Reason)
	}
	if got := strings.Join(f.ner.calls, ","); got != "B" {
		t.Fatalf("ner calls = %s", got)
	}

	f.cfg.Workflow.SkipExisting = false
	f.ner.calls = nil
	if _, err := f.runner(t, nil).Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(f.ner.calls) != 2 {
		t.Fatalf("expected reprocessing with skip_existing off, calls = %v", f.ner.calls)
	}
}

func TestRunSkipsLockedInput(t *testing.T) {
	f := newFixture(t)
	input := filepath.Join(f.input, "A")
	testsupport.WriteChunk(t, input, "a1")

	dir, err := scratch.New(f.cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatal(err)
	}
	files, _ := dir.For(input)
	held, err := files.TryLock()
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	summary, err := f.runner(t, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Files[0].Reason != ReasonLocked {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(f.ner.calls) != 0 {
		t.Fatal("locked input must not reach the tool")
	}
}

func TestRunMergeErrorPolicy(t *testing.T) {
	t.Run("recoverable by default", func(t *testing.T) {
		f := newFixture(t)
		testsupport.WriteChunk(t, filepath.Join(f.input, "A"), "a1")
		testsupport.WriteChunk(t, filepath.Join(f.input, "B"), "b1")
		f.ner.rename["a1"] = "zzz"

		summary, err := f.runner(t, nil).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if summary.Failed != 1 || summary.Published != 1 {
			t.Fatalf("unexpected summary %+v", summary)
		}
		if summary.Files[0].Stage != StageMerge {
			t.Fatalf("stage = %q", summary.Files[0].Stage)
		}
	})

	t.Run("halts when configured", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Workflow.HaltOnMergeError = true
		testsupport.WriteChunk(t, filepath.Join(f.input, "A"), "a1")
		testsupport.WriteChunk(t, filepath.Join(f.input, "B"), "b1")
		f.ner.rename["a1"] = "zzz"

		summary, err := f.runner(t, nil).Run(context.Background())
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("err = %v, want validation", err)
		}
		if !summary.Halted || len(summary.Files) != 1 {
			t.Fatalf("unexpected summary %+v", summary)
		}
		run, _ := f.ledger.GetRun(context.Background(), summary.RunID)
		if run.Status != ledger.RunHalted {
			t.Fatalf("run status = %q", run.Status)
		}
	})
}

func TestRunPublishErrorHalts(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteChunk(t, filepath.Join(f.input, "A"), "a1")
	testsupport.WriteChunk(t, filepath.Join(f.input, "B"), "b1")
	diskFull := errors.New("no space left on device")

	summary, err := f.runner(t, failingPublisher{err: diskFull}).Run(context.Background())
	if !errors.Is(err, diskFull) {
		t.Fatalf("err = %v, want disk full", err)
	}
	if len(f.ner.calls) != 1 || !summary.Halted {
		t.Fatalf("batch should stop after first publish failure: calls=%v summary=%+v", f.ner.calls, summary)
	}
}

func TestRunKeepScratch(t *testing.T) {
	f := newFixture(t)
	f.cfg.Workflow.KeepScratch = true
	input := filepath.Join(f.input, "A")
	testsupport.WriteChunk(t, input, "a1")

	if _, err := f.runner(t, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	dir, _ := scratch.New(f.cfg.Paths.ScratchDir)
	files, _ := dir.For(input)
	for _, path := range []string{files.Cleansed, files.NER} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("scratch file %s missing: %v", path, err)
		}
	}
}

func TestRunCancelledContextHalts(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteChunk(t, filepath.Join(f.input, "A"), "a1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.runner(t, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(summary.Files) != 0 || !summary.Halted {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestNewRejectsSameInputAndOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := t.TempDir()
	_, err := New(Options{
		Config:    cfg,
		NER:       &fakeNER{},
		Publisher: publish.New(publish.Options{}),
		InputDir:  dir,
		OutputDir: dir + string(os.PathSeparator),
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestRunMissingInputDir(t *testing.T) {
	f := newFixture(t)
	if _, err := f.runner(t, nil).Run(context.Background()); err == nil {
		t.Fatal("expected error for missing input dir")
	}
}
