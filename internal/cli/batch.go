package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/pipeline"
)

// manifest is a batch file:
//
//	[defaults]
//	profile = "boot"
//	output_dir = "out"
//
//	[[job]]
//	input = "cat.gif"
//	title = "Cute cat [1920x1080]"
//	flags = ["center"]
type manifest struct {
	Defaults jobSpec   `toml:"defaults"`
	Jobs     []jobSpec `toml:"job"`
}

type jobSpec struct {
	Input     string   `toml:"input"`
	Output    string   `toml:"output"`
	OutputDir string   `toml:"output_dir"`
	Title     string   `toml:"title"`
	Profile   string   `toml:"profile"`
	Flags     []string `toml:"flags"`
	Author    string   `toml:"author"`
	Format    string   `toml:"format"`
	Placement string   `toml:"placement"`
}

// batchJob is one resolved manifest entry.
type batchJob struct {
	ID     string
	Input  string
	Output string // empty: next to the input, named after the output format
	Opts   pipeline.Options
}

// batchOutcome is the result of one job.
type batchOutcome struct {
	Job      batchJob
	Result   *pipeline.Result
	Output   string
	Err      error
	Duration time.Duration
}

// loadManifest reads a manifest and resolves relative paths against its
// directory.
func loadManifest(path string) ([]batchJob, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse manifest %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "manifest %s: unknown key %s", path, undecoded[0])
	}
	if len(m.Jobs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "manifest %s has no [[job]] entries", path)
	}

	base := filepath.Dir(path)
	jobs := make([]batchJob, 0, len(m.Jobs))
	for i, spec := range m.Jobs {
		spec = spec.withDefaults(m.Defaults)
		if spec.Input == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "manifest %s: job %d has no input", path, i+1)
		}
		job := batchJob{
			ID:    uuid.NewString()[:8],
			Input: resolvePath(base, spec.Input),
			Opts: pipeline.Options{
				Title:     spec.Title,
				Profile:   spec.Profile,
				Flags:     spec.Flags,
				Author:    spec.Author,
				Format:    spec.Format,
				Placement: spec.Placement,
			},
		}
		if job.Opts.Title == "" {
			job.Opts.Title = defaultTitle(spec.Input)
		}
		if err := job.Opts.Validate(); err != nil {
			return nil, fmt.Errorf("manifest %s: job %d: %w", path, i+1, err)
		}
		switch {
		case spec.Output != "":
			job.Output = resolvePath(base, spec.Output)
		case spec.OutputDir != "":
			job.Output = resolvePath(base, spec.OutputDir)
			if !strings.HasSuffix(job.Output, string(filepath.Separator)) {
				job.Output += string(filepath.Separator)
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s jobSpec) withDefaults(d jobSpec) jobSpec {
	if s.OutputDir == "" && s.Output == "" {
		s.OutputDir = d.OutputDir
	}
	if s.Profile == "" {
		s.Profile = d.Profile
	}
	if s.Flags == nil {
		s.Flags = d.Flags
	}
	if s.Author == "" {
		s.Author = d.Author
	}
	if s.Format == "" {
		s.Format = d.Format
	}
	if s.Placement == "" {
		s.Placement = d.Placement
	}
	return s
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// outputPath resolves where a job's artifact is written. An Output ending
// in a separator names a directory.
func (j batchJob) outputPath(format string) string {
	switch {
	case j.Output == "":
		return defaultOutputPath(j.Input, format)
	case strings.HasSuffix(j.Output, string(filepath.Separator)):
		return filepath.Join(j.Output, filepath.Base(defaultOutputPath(j.Input, format)))
	default:
		return j.Output
	}
}

// jobEvent reports a job state change to the progress view.
type jobEvent struct {
	Index   int
	Started bool
	Outcome *batchOutcome
}

// runBatch runs jobs on up to workers goroutines. A failing job does not
// stop the others; only ctx cancellation does.
func runBatch(ctx context.Context, runner *pipeline.Runner, jobs []batchJob, workers int, report func(jobEvent)) []batchOutcome {
	if workers <= 0 {
		workers = 1
	}
	if report == nil {
		report = func(jobEvent) {}
	}

	outcomes := make([]batchOutcome, len(jobs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if gctx.Err() != nil {
				outcomes[i] = batchOutcome{Job: job, Err: gctx.Err()}
				return nil
			}
			mu.Lock()
			report(jobEvent{Index: i, Started: true})
			mu.Unlock()

			out := runJob(gctx, runner, job)
			outcomes[i] = out

			mu.Lock()
			report(jobEvent{Index: i, Outcome: &out})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func runJob(ctx context.Context, runner *pipeline.Runner, job batchJob) (out batchOutcome) {
	start := time.Now()
	out.Job = job
	defer func() { out.Duration = time.Since(start) }()

	data, err := readInput(job.Input)
	if err != nil {
		out.Err = err
		return out
	}
	res, err := runner.Execute(ctx, data, job.Opts)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res
	out.Output = job.outputPath(res.Format)
	if err := os.MkdirAll(filepath.Dir(out.Output), 0o755); err != nil {
		out.Err = fmt.Errorf("create output dir: %w", err)
		return out
	}
	if err := os.WriteFile(out.Output, res.Artifact, 0o644); err != nil {
		out.Err = fmt.Errorf("write %s: %w", out.Output, err)
	}
	return out
}

func (c *CLI) batchCommand() *cobra.Command {
	var (
		workers int
		plain   bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "batch [manifest.toml]",
		Short: "Caption every job of a manifest in parallel",
		Long: `Caption every job of a TOML manifest in parallel.

Each [[job]] names an input and any caption options; a [defaults] table
applies to every job. Relative paths are resolved against the manifest.

On a terminal progress is shown interactively; pass --plain (or redirect
output) for log lines instead. The command fails if any job fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatchCommand(cmd.Context(), args[0], workers, plain, noCache)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel jobs (default from config)")
	cmd.Flags().BoolVar(&plain, "plain", false, "log progress instead of the interactive view")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runBatchCommand(ctx context.Context, path string, workers int, plain, noCache bool) error {
	jobs, err := loadManifest(path)
	if err != nil {
		return err
	}
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = cfg.Batch.Workers
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	logger := loggerFromContext(ctx)
	logger.Info("starting batch", "jobs", len(jobs), "workers", workers)
	prog := newProgress(logger)

	var outcomes []batchOutcome
	if plain || !isTerminal(os.Stdout) {
		outcomes = runBatch(ctx, runner, jobs, workers, logJobEvent(logger, jobs))
	} else {
		outcomes, err = runBatchInteractive(ctx, runner, jobs, workers)
		if err != nil {
			return err
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	prog.done(fmt.Sprintf("Captioned %d of %d", len(outcomes)-failed, len(outcomes)))
	printBatchSummary(outcomes)

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(outcomes))
	}
	return nil
}

func logJobEvent(logger *log.Logger, jobs []batchJob) func(jobEvent) {
	return func(ev jobEvent) {
		job := jobs[ev.Index]
		switch {
		case ev.Started:
			logger.Debug("job started", "id", job.ID, "input", job.Input)
		case ev.Outcome.Err != nil:
			logger.Error("job failed", "id", job.ID, "input", job.Input, "error", ev.Outcome.Err)
		default:
			logger.Info("job done",
				"id", job.ID,
				"output", ev.Outcome.Output,
				"frames", ev.Outcome.Result.Frames,
				"cache_hit", ev.Outcome.Result.CacheHit,
				"duration", ev.Outcome.Duration.Round(time.Millisecond))
		}
	}
}

// runBatchInteractive runs the batch behind the bubbletea progress view.
// Quitting the view cancels outstanding jobs.
func runBatchInteractive(ctx context.Context, runner *pipeline.Runner, jobs []batchJob, workers int) ([]batchOutcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newBatchModel(jobs, cancel))
	results := make(chan []batchOutcome, 1)
	go func() {
		outcomes := runBatch(ctx, runner, jobs, workers, func(ev jobEvent) { p.Send(ev) })
		p.Send(batchDoneMsg{})
		results <- outcomes
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-results
		return nil, fmt.Errorf("progress view: %w", err)
	}
	return <-results, nil
}

func printBatchSummary(outcomes []batchOutcome) {
	printNewline()
	for _, o := range outcomes {
		if o.Err != nil {
			printError("%s %s", StyleDim.Render(o.Job.ID), o.Job.Input)
			printDetail("%s", errors.UserMessage(o.Err))
			continue
		}
		printSuccess("%s %s", StyleDim.Render(o.Job.ID), o.Job.Input)
		printFile(o.Output)
	}
}
