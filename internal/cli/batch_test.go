package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/pipeline"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "batch.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[defaults]
profile = "boot"
output_dir = "out"
flags = ["center"]

[[job]]
input = "cat.png"
title = "Cat"

[[job]]
input = "dog_park.gif"
flags = []
output = "custom/dog.gif"
`)
	jobs, err := loadManifest(path)
	if err != nil {
		t.Fatalf("loadManifest() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}

	cat := jobs[0]
	if cat.Input != filepath.Join(dir, "cat.png") || cat.Opts.Title != "Cat" || cat.Opts.Profile != "boot" {
		t.Errorf("cat job = %+v", cat)
	}
	if len(cat.Opts.Flags) != 1 || cat.Opts.Flags[0] != "center" {
		t.Errorf("cat flags = %v", cat.Opts.Flags)
	}
	if got := cat.outputPath("png"); got != filepath.Join(dir, "out", "cat_captioned.png") {
		t.Errorf("cat output = %q", got)
	}

	dog := jobs[1]
	if dog.Opts.Title != "dog park" || len(dog.Opts.Flags) != 0 {
		t.Errorf("dog job = %+v", dog.Opts)
	}
	if got := dog.outputPath("gif"); got != filepath.Join(dir, "custom", "dog.gif") {
		t.Errorf("dog output = %q", got)
	}
	if cat.ID == "" || cat.ID == dog.ID {
		t.Errorf("job IDs = %q, %q", cat.ID, dog.ID)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want errors.Code
	}{
		{"no jobs", "[defaults]\nprofile = \"boot\"\n", errors.ErrCodeInvalidInput},
		{"missing input", "[[job]]\ntitle = \"x\"\n", errors.ErrCodeInvalidInput},
		{"unknown key", "[[job]]\ninput = \"a.png\"\ncolour = \"red\"\n", errors.ErrCodeInvalidInput},
		{"bad flag", "[[job]]\ninput = \"a.png\"\nflags = [\"shiny\"]\n", errors.ErrCodeInvalidOption},
		{"malformed", "[[job]\n", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadManifest(writeManifest(t, t.TempDir(), tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("loadManifest() error = %v, want %s", err, tt.want)
			}
		})
	}

	if _, err := loadManifest(filepath.Join(t.TempDir(), "none.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing manifest error = %v", err)
	}
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 600, 600)
	writePNG(t, filepath.Join(dir, "b.png"), 700, 500)

	jobs := []batchJob{
		{ID: "1", Input: filepath.Join(dir, "a.png"), Opts: pipeline.Options{Title: "A"}},
		{ID: "2", Input: filepath.Join(dir, "missing.png"), Opts: pipeline.Options{Title: "B"}},
		{ID: "3", Input: filepath.Join(dir, "b.png"), Output: filepath.Join(dir, "out") + string(filepath.Separator), Opts: pipeline.Options{Title: "C", Profile: "boot"}},
	}
	runner := pipeline.NewRunner(nil, nil, nil, log.NewWithOptions(io.Discard, log.Options{}))

	var started, finished int
	outcomes := runBatch(context.Background(), runner, jobs, 2, func(ev jobEvent) {
		if ev.Started {
			started++
		} else {
			finished++
		}
	})

	if started != 3 || finished != 3 {
		t.Errorf("events: started %d finished %d, want 3 and 3", started, finished)
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Fatalf("unexpected errors: %v, %v", outcomes[0].Err, outcomes[2].Err)
	}
	if !errors.Is(outcomes[1].Err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing input error = %v", outcomes[1].Err)
	}
	for _, i := range []int{0, 2} {
		if _, err := os.Stat(outcomes[i].Output); err != nil {
			t.Errorf("job %d output: %v", i, err)
		}
	}
	if want := filepath.Join(dir, "out", "b_captioned.png"); outcomes[2].Output != want {
		t.Errorf("output = %q, want %q", outcomes[2].Output, want)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := []batchJob{{ID: "1", Input: "x.png", Opts: pipeline.Options{Title: "x"}}}
	outcomes := runBatch(ctx, pipeline.NewRunner(nil, nil, nil, nil), jobs, 1, nil)
	if outcomes[0].Err != context.Canceled {
		t.Errorf("Err = %v, want context.Canceled", outcomes[0].Err)
	}
}

func TestBatchCommandPlain(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "ok.png"), 500, 500)
	path := writeManifest(t, dir, `
[[job]]
input = "ok.png"

[[job]]
input = "gone.png"
`)

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"batch", path, "--plain", "--workers", "2"})
	root.SetErr(io.Discard)
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "1 of 2 jobs failed") {
		t.Errorf("batch error = %v, want one failed job", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ok_captioned.png")); err != nil {
		t.Errorf("ok job output missing: %v", err)
	}
}
