package warmup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the number of jobs running at once
	MaxConcurrency int
	// Timeout per job
	Timeout time.Duration
}

// DefaultConfig returns the warmer defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// Job primes one cache entry.
type Job struct {
	Name string
	Warm func(ctx context.Context) error
}

// Result is the outcome of one job.
type Result struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Report summarises a run. Results are in job order.
type Report struct {
	Results  []Result
	Warmed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Err joins the errors of every failed job, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	return errors.Join(errs...)
}

// ErrSkipped marks jobs never started because ctx was cancelled.
var ErrSkipped = errors.New("warmup cancelled before job started")

// Warmer runs warmup jobs through a worker pool.
type Warmer struct {
	config Config
	logger zerolog.Logger
}

// New creates a warmer. Non-positive settings fall back to DefaultConfig.
func New(config Config, logger zerolog.Logger) *Warmer {
	def := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Warmer{config: config, logger: logger}
}

// Run executes every job and waits for all of them. A failing job does not
// stop the others.
func (w *Warmer) Run(ctx context.Context, jobs []Job) Report {
	start := time.Now()
	results := make([]Result, len(jobs))

	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	workers := w.config.MaxConcurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go w.worker(ctx, id, jobs, queue, results, &wg)
	}
	wg.Wait()

	report := Report{Results: results, Duration: time.Since(start)}
	for _, res := range results {
		switch {
		case errors.Is(res.Err, ErrSkipped):
			report.Skipped++
		case res.Err != nil:
			report.Failed++
		default:
			report.Warmed++
		}
	}

	w.logger.Info().
		Int("warmed", report.Warmed).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Cache warmup complete")
	return report
}

// worker runs jobs from queue. Each index is written by exactly one worker.
func (w *Warmer) worker(ctx context.Context, id int, jobs []Job, queue <-chan int, results []Result, wg *sync.WaitGroup) {
	defer wg.Done()
	processed := 0

	for i := range queue {
		job := jobs[i]
		if ctx.Err() != nil {
			results[i] = Result{Name: job.Name, Err: ErrSkipped}
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		start := time.Now()
		err := run(jobCtx, job)
		cancel()

		results[i] = Result{Name: job.Name, Duration: time.Since(start), Err: err}
		if err != nil {
			w.logger.Warn().
				Err(err).
				Int("worker_id", id).
				Str("job", job.Name).
				Msg("Warmup job failed")
			continue
		}
		processed++
	}

	if processed > 0 {
		w.logger.Debug().
			Int("worker_id", id).
			Int("jobs_processed", processed).
			Msg("Warmup worker completed")
	}
}

func run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("warmup job panicked: %v", r)
		}
	}()
	if job.Warm == nil {
		return errors.New("warmup job has no function")
	}
	return job.Warm(ctx)
}
