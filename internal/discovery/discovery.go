package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"wbgrab/internal/config"
	"wbgrab/internal/logging"
	"wbgrab/internal/services"
)

// VideoReference is one discovered pointer to a video review: either a direct
// stream manifest URL or a preview URI the resolver can transform into one.
type VideoReference struct {
	URI string
}

// Page is the rendered-document capability the discovery step consumes. A
// browser session implements it; tests use fakes. Discovery never sees the
// rendering engine beyond these operations.
type Page interface {
	// AttributeValues returns the named attribute of every element matching
	// the CSS selector, in document order. Missing attributes are skipped.
	AttributeValues(ctx context.Context, selector, attribute string) ([]string, error)
	// EvaluateStrings runs a script expected to produce a list of strings.
	EvaluateStrings(ctx context.Context, script string) ([]string, error)
	// ScrollBy scrolls the viewport vertically by the given pixel delta.
	ScrollBy(ctx context.Context, pixels int) error
	// ClickFirst clicks the first visible element matching the selector and
	// reports whether anything was clicked.
	ClickFirst(ctx context.Context, selector string) (bool, error)
}

// currentSrcProbe collects sources the player has already attached to video
// elements, including blob-backed currentSrc values the attribute scan misses.
const currentSrcProbe = `(function() {
	var sources = [];
	document.querySelectorAll('video').forEach(function(video) {
		if (video.src) sources.push(video.src);
		if (video.currentSrc) sources.push(video.currentSrc);
	});
	return sources;
})()`

// Service locates video references on a rendered product page.
type Service struct {
	cfg    config.Source
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// Option customizes the service.
type Option func(*Service)

// WithSleeper overrides how waits are performed (useful for tests).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a discovery service from the source configuration.
func NewService(cfg config.Source, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	svc := &Service{
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Discover walks the lookup ladder on an already-navigated page and returns
// the video references found, best candidate first. It fails with the
// no-video-reviews error when every method comes up empty.
func (s *Service) Discover(ctx context.Context, page Page) ([]VideoReference, error) {
	if refs, err := s.directSources(ctx, page); err != nil {
		return nil, err
	} else if len(refs) > 0 {
		return refs, nil
	}

	clicked, err := s.triggerPlayback(ctx, page)
	if err != nil {
		return nil, err
	}
	if clicked {
		if refs, err := s.directSources(ctx, page); err != nil {
			return nil, err
		} else if len(refs) > 0 {
			return refs, nil
		}
	}

	refs, err := s.previewImages(ctx, page)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, services.Wrap(services.ErrNoVideoReviews, "discovery", "locate video reviews",
			"no direct sources, playable elements, or preview images on page", nil)
	}
	return refs, nil
}

// directSources checks video elements and data attributes for an already
// loaded manifest URL.
func (s *Service) directSources(ctx context.Context, page Page) ([]VideoReference, error) {
	srcs, err := page.AttributeValues(ctx, s.cfg.VideoSelector, "src")
	if err != nil {
		return nil, fmt.Errorf("scan video elements: %w", err)
	}
	if ref, ok := s.firstManifestLike(srcs); ok {
		s.logger.Debug("found direct video source", logging.String(logging.FieldURL, ref.URI))
		return []VideoReference{ref}, nil
	}

	for _, attribute := range []string{"src", "data-src"} {
		values, err := page.AttributeValues(ctx, s.cfg.DataVideoSelector, attribute)
		if err != nil {
			return nil, fmt.Errorf("scan data attributes: %w", err)
		}
		if ref, ok := s.firstManifestLike(values); ok {
			s.logger.Debug("found video source from data attribute", logging.String(logging.FieldURL, ref.URI))
			return []VideoReference{ref}, nil
		}
	}

	probed, err := page.EvaluateStrings(ctx, currentSrcProbe)
	if err != nil {
		return nil, fmt.Errorf("probe player sources: %w", err)
	}
	if ref, ok := s.firstManifestLike(probed); ok {
		s.logger.Debug("found video source via script probe", logging.String(logging.FieldURL, ref.URI))
		return []VideoReference{ref}, nil
	}

	return nil, nil
}

// triggerPlayback clicks through the configured play-button selectors to coax
// the player into attaching a source, then lets it settle.
func (s *Service) triggerPlayback(ctx context.Context, page Page) (bool, error) {
	for _, selector := range s.cfg.PlaySelectors {
		clicked, err := page.ClickFirst(ctx, selector)
		if err != nil {
			s.logger.Debug("play selector failed", logging.String("selector", selector), logging.Error(err))
			continue
		}
		if clicked {
			s.logger.Debug("clicked video element", logging.String("selector", selector))
			if err := s.sleep(ctx, time.Duration(s.cfg.PlaybackSettleWait)*time.Second); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// previewImages is the fallback ladder rung: scroll until the user-photos
// section renders, then collect preview-image URIs.
func (s *Service) previewImages(ctx context.Context, page Page) ([]VideoReference, error) {
	if err := s.waitForSection(ctx, page); err != nil {
		return nil, err
	}

	srcs, err := page.AttributeValues(ctx, s.cfg.PreviewSelector, "src")
	if err != nil {
		return nil, fmt.Errorf("collect preview images: %w", err)
	}

	refs := make([]VideoReference, 0, len(srcs))
	for _, src := range srcs {
		if strings.Contains(src, s.cfg.PreviewSuffix) {
			refs = append(refs, VideoReference{URI: src})
		}
	}
	if len(refs) > 0 {
		s.logger.Info("found video previews", logging.Int("count", len(refs)))
	}
	return refs, nil
}

func (s *Service) waitForSection(ctx context.Context, page Page) error {
	deadline := s.now().Add(time.Duration(s.cfg.FindTimeout) * time.Second)
	for {
		found, err := page.AttributeValues(ctx, s.cfg.PhotoSectionArea, "class")
		if err != nil {
			return fmt.Errorf("locate photo section: %w", err)
		}
		if len(found) > 0 {
			return nil
		}
		if !s.now().Before(deadline) {
			return services.Wrap(services.ErrNoVideoReviews, "discovery", "wait for photo section",
				fmt.Sprintf("section %q not found within %ds", s.cfg.PhotoSectionArea, s.cfg.FindTimeout), nil)
		}
		if err := page.ScrollBy(ctx, s.cfg.ScrollStep); err != nil {
			return fmt.Errorf("scroll page: %w", err)
		}
		if err := s.sleep(ctx, time.Second); err != nil {
			return err
		}
	}
}

func (s *Service) firstManifestLike(values []string) (VideoReference, bool) {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if strings.Contains(value, s.cfg.ManifestSuffix) || strings.Contains(value, "hls") {
			return VideoReference{URI: value}, true
		}
	}
	return VideoReference{}, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ValidateURL checks that raw parses and belongs to one of the allowed origin
// hosts. It runs before any network or browser activity.
func ValidateURL(raw string, allowedHosts []string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return services.Wrap(services.ErrInvalidURL, "cli", "validate url",
			fmt.Sprintf("%q is not an absolute http(s) url", raw), err)
	}
	host := strings.ToLower(parsed.Hostname())
	for _, allowed := range allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return services.Wrap(services.ErrInvalidURL, "cli", "validate url",
		fmt.Sprintf("host %q is not in the allowed origins %v", host, allowedHosts), nil)
}

// ExtractProductID pulls the product identifier out of a catalog URL using
// the configured pattern. Empty when the URL has no recognizable ID.
func ExtractProductID(raw, pattern string) string {
	if strings.TrimSpace(pattern) == "" {
		return ""
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ""
	}
	match := re.FindStringSubmatch(raw)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
