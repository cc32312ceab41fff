package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"wbgrab/internal/config"
	"wbgrab/internal/discovery"
	"wbgrab/internal/logging"
	"wbgrab/internal/services"
	"wbgrab/internal/services/webclient"
)

// SegmentRef is one media segment named by the playlist, keyed by its
// position in file order.
type SegmentRef struct {
	Index int
	URL   string
}

// Manifest is the resolved segment list for one video.
type Manifest struct {
	URL      string
	Segments []SegmentRef
}

// Resolver turns a discovered media reference into a segment list. It
// derives the playlist URL, fetches it with a bounded retry budget, and
// parses the segment entries in file order.
type Resolver struct {
	client webclient.Getter
	cfg    config.Download
	source config.Source
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// Option customizes the resolver.
type Option func(*Resolver)

// WithSleeper replaces the retry delay. Tests use this to avoid real waits.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Resolver) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewResolver constructs a resolver over the given HTTP getter.
func NewResolver(client webclient.Getter, source config.Source, download config.Download, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	resolver := &Resolver{
		client: client,
		cfg:    download,
		source: source,
		logger: logger,
		sleep:  webclient.SleepContext,
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Resolve derives the playlist URL from the reference, fetches it, and
// returns the parsed segment list. An empty playlist is an error: there is
// nothing to download.
func (r *Resolver) Resolve(ctx context.Context, ref discovery.VideoReference) (*Manifest, error) {
	manifestURL := r.ManifestURL(ref)
	r.logger.Info("resolving manifest", logging.String(logging.FieldURL, manifestURL))

	body, err := r.fetch(ctx, manifestURL)
	if err != nil {
		return nil, services.Wrap(services.ErrManifestUnavailable, "manifest", "fetch", manifestURL, err)
	}

	segments, err := parseSegments(manifestURL, string(body))
	if err != nil {
		return nil, services.Wrap(services.ErrManifestUnavailable, "manifest", "parse", manifestURL, err)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrManifestEmpty, "manifest", "parse", "playlist lists no segments", nil)
	}

	r.logger.Info("manifest resolved",
		logging.String(logging.FieldURL, manifestURL),
		logging.Int("segments", len(segments)))
	return &Manifest{URL: manifestURL, Segments: segments}, nil
}

// ManifestURL maps the discovered reference onto a playlist URL. References
// that already point at a playlist pass through untouched; preview image
// URLs are rewritten by swapping the configured suffix.
func (r *Resolver) ManifestURL(ref discovery.VideoReference) string {
	uri := strings.TrimSpace(ref.URI)
	if r.source.PreviewSuffix != "" && strings.HasSuffix(uri, r.source.PreviewSuffix) {
		return strings.TrimSuffix(uri, r.source.PreviewSuffix) + r.source.ManifestSuffix
	}
	return uri
}

// fetch retrieves the playlist body, retrying transient failures with
// exponential backoff up to the configured budget.
func (r *Resolver) fetch(ctx context.Context, manifestURL string) ([]byte, error) {
	maxAttempts := r.cfg.ManifestRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := r.client.Get(ctx, manifestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !webclient.IsTransient(err) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := webclient.RetryDelay(attempt, r.cfg.RetryBaseDelayMS, r.cfg.RetryMaxDelayMS)
		r.logger.Warn("manifest fetch retry",
			logging.String(logging.FieldURL, manifestURL),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempt(s): %w", maxAttempts, lastErr)
}

// parseSegments reads the playlist line by line. Every non-comment,
// non-blank line names a segment; relative entries resolve against the
// playlist URL.
func parseSegments(manifestURL, body string) ([]SegmentRef, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("parse manifest url: %w", err)
	}

	var segments []SegmentRef
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := url.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("parse segment entry %q: %w", line, err)
		}
		segments = append(segments, SegmentRef{
			Index: len(segments),
			URL:   base.ResolveReference(entry).String(),
		})
	}
	return segments, nil
}

