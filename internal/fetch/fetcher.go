package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"wbgrab/internal/config"
	"wbgrab/internal/logging"
	"wbgrab/internal/manifest"
	"wbgrab/internal/services"
	"wbgrab/internal/services/webclient"
)

// Result is one downloaded segment. Attempts records how many tries the
// segment took, for the verbose per-segment report.
type Result struct {
	Index    int
	Payload  []byte
	Attempts int
}

// Fetcher downloads every segment of a manifest over a bounded worker pool.
// The policy is all-or-nothing: the first segment that fails permanently
// cancels the remaining work and fails the whole fetch.
type Fetcher struct {
	client webclient.Getter
	cfg    config.Download
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// Option customizes the fetcher.
type Option func(*Fetcher)

// WithSleeper replaces the retry delay. Tests use this to avoid real waits.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// NewFetcher constructs a fetcher over the given HTTP getter.
func NewFetcher(client webclient.Getter, cfg config.Download, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	fetcher := &Fetcher{
		client: client,
		cfg:    cfg,
		logger: logger,
		sleep:  webclient.SleepContext,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// FetchAll downloads every segment and returns the results ordered by
// manifest index. On failure it returns the error for the first failed
// segment by index, after cancelling whatever work was still in flight.
func (f *Fetcher) FetchAll(ctx context.Context, m *manifest.Manifest) ([]Result, error) {
	if m == nil || len(m.Segments) == 0 {
		return nil, services.Wrap(services.ErrManifestEmpty, "fetch", "start", "no segments to download", nil)
	}

	workers := f.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(m.Segments) {
		workers = len(m.Segments)
	}

	f.logger.Info("fetching segments",
		logging.Int("segments", len(m.Segments)),
		logging.Int("workers", workers))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Slot per segment: workers write disjoint indexes, so no lock is
	// needed around the slices themselves.
	results := make([]Result, len(m.Segments))
	failures := make([]error, len(m.Segments))

	jobs := make(chan manifest.SegmentRef)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				payload, attempts, err := f.fetchSegment(ctx, ref)
				if err != nil {
					// Attribute cancellation by pool state, not error
					// identity: once the pool context is down, this
					// segment's error is just the unwinding, not a failure
					// of its own. A per-request timeout leaves the pool
					// context intact and is recorded normally.
					if ctx.Err() != nil {
						continue
					}
					failures[ref.Index] = &services.SegmentFetchError{
						Index:    ref.Index,
						URL:      ref.URL,
						Attempts: attempts,
						Err:      err,
					}
					cancel()
					continue
				}
				results[ref.Index] = Result{Index: ref.Index, Payload: payload, Attempts: attempts}
			}
		}()
	}

feed:
	for _, ref := range m.Segments {
		select {
		case jobs <- ref:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for _, failure := range failures {
		if failure != nil {
			return nil, failure
		}
	}
	if err := ctx.Err(); err != nil {
		// Cancelled from outside, not by a segment failure.
		return nil, err
	}
	// A slot left unfilled with no recorded failure still fails the run as
	// a segment fetch so the exit code stays classifiable.
	for i := range results {
		if results[i].Payload == nil {
			return nil, &services.SegmentFetchError{
				Index:    i,
				URL:      m.Segments[i].URL,
				Attempts: results[i].Attempts,
				Err:      errors.New("segment was never fetched"),
			}
		}
	}
	return results, nil
}

// fetchSegment downloads one segment, retrying transient failures with
// exponential backoff up to the configured budget. It reports the number of
// attempts made regardless of outcome.
func (f *Fetcher) fetchSegment(ctx context.Context, ref manifest.SegmentRef) ([]byte, int, error) {
	maxAttempts := f.cfg.SegmentRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}

		payload, err := f.client.Get(ctx, ref.URL)
		if err == nil {
			f.logger.Debug("segment fetched",
				logging.Int(logging.FieldSegmentIndex, ref.Index),
				logging.Int(logging.FieldAttempt, attempt),
				logging.Int("bytes", len(payload)))
			return payload, attempt, nil
		}
		lastErr = err
		if !webclient.IsTransient(err) {
			return nil, attempt, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := webclient.RetryDelay(attempt, f.cfg.RetryBaseDelayMS, f.cfg.RetryMaxDelayMS)
		f.logger.Warn("segment fetch retry",
			logging.Int(logging.FieldSegmentIndex, ref.Index),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := f.sleep(ctx, delay); err != nil {
			return nil, attempt, err
		}
	}
	return nil, maxAttempts, lastErr
}
