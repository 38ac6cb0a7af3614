// CLAUDE:SUMMARY Worker pool: claims jobs on a poll loop and executes them against the extraction façade.
package jobq

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Valian/extractous-go/extractous"
)

// Extractor is the slice of the extraction façade the runner needs.
type Extractor interface {
	ExtractFile(ctx context.Context, path, payload string) (*extractous.Result, error)
	ExtractBytes(ctx context.Context, data []byte, payload string) (*extractous.Result, error)
	ExtractURL(ctx context.Context, rawURL, payload string) (*extractous.Result, error)
}

// Options configures a Runner.
type Options struct {
	// Workers is the number of concurrent job executors. Default: NumCPU.
	Workers int
	// Visibility is the claim lease per execution attempt. A job whose
	// worker dies reappears after this long. Default: 5m.
	Visibility time.Duration
	// PollInterval is the idle delay between claim attempts. Default: 1s.
	PollInterval time.Duration
	// MaxAttempts fails a job permanently after this many claims.
	// Default: 3.
	MaxAttempts int
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Visibility <= 0 {
		o.Visibility = 5 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Runner executes queued extraction jobs on dedicated workers.
type Runner struct {
	store *Store
	ex    Extractor
	opts  Options
}

// NewRunner creates a Runner over store and ex.
func NewRunner(store *Store, ex Extractor, opts Options) *Runner {
	opts.defaults()
	return &Runner{store: store, ex: ex, opts: opts}
}

// Run starts the worker pool and blocks until ctx is cancelled. In-flight
// jobs finish (or hit their visibility deadline) before Run returns.
func (r *Runner) Run(ctx context.Context) {
	log := r.opts.Logger
	log.Info("jobq: runner started", "workers", r.opts.Workers, "visibility", r.opts.Visibility)

	var wg sync.WaitGroup
	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx)
		}()
	}
	wg.Wait()
	log.Info("jobq: runner stopped")
}

func (r *Runner) worker(ctx context.Context) {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything claimable before going back to sleep.
		for {
			if ctx.Err() != nil {
				return
			}
			job, err := r.store.Claim(ctx, r.opts.Visibility)
			if err != nil {
				r.opts.Logger.Warn("jobq: claim failed", "error", err)
				break
			}
			if job == nil {
				break
			}
			r.execute(ctx, job)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) execute(ctx context.Context, job *Job) {
	log := r.opts.Logger.With("job", job.ID, "pathway", job.Pathway, "attempt", job.Attempts)

	if job.Attempts > r.opts.MaxAttempts {
		log.Warn("jobq: job exceeded max attempts")
		if err := r.store.Fail(ctx, job.ID, "gave up after repeated worker failures"); err != nil {
			log.Warn("jobq: fail write failed", "error", err)
		}
		return
	}

	var res *extractous.Result
	var err error
	switch job.Pathway {
	case "file":
		res, err = r.ex.ExtractFile(ctx, job.Input, job.Payload)
	case "bytes":
		res, err = r.ex.ExtractBytes(ctx, job.Data, job.Payload)
	case "url":
		res, err = r.ex.ExtractURL(ctx, job.Input, job.Payload)
	default:
		err = fmt.Errorf("jobq: unknown pathway %q", job.Pathway)
	}

	if err != nil {
		// A canceled context means the runner is shutting down, not that
		// the document is bad: put the job back for the next process.
		if ctx.Err() != nil {
			if rerr := r.store.Release(context.WithoutCancel(ctx), job.ID); rerr != nil {
				log.Warn("jobq: release failed", "error", rerr)
			}
			return
		}
		// Extraction errors are terminal per call: record, don't retry.
		log.Info("jobq: job failed", "error", err)
		if werr := r.store.Fail(ctx, job.ID, err.Error()); werr != nil {
			log.Warn("jobq: fail write failed", "error", werr)
		}
		return
	}
	if werr := r.store.Complete(ctx, job.ID, res.Content, res.Metadata); werr != nil {
		log.Warn("jobq: complete write failed", "error", werr)
		return
	}
	log.Debug("jobq: job done", "content_bytes", len(res.Content))
}
