package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"wbgrab/internal/config"
	"wbgrab/internal/logging"
)

// Session is one rendered-page browser instance. It implements
// discovery.Page over the Chrome DevTools Protocol.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	logger  *slog.Logger
}

// NewSession launches a browser using the source configuration. Close must
// be called on every path once the session is no longer needed.
func NewSession(ctx context.Context, cfg config.Source, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	session := &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		logger:  logger,
	}

	// Force the browser process to start now so a missing binary surfaces
	// here instead of midway through discovery.
	if err := chromedp.Run(browserCtx); err != nil {
		session.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return session, nil
}

// Navigate loads the page and waits the configured settle time for the
// client-side rendering to finish.
func (s *Session) Navigate(ctx context.Context, pageURL string, settle time.Duration) error {
	s.logger.Info("loading page", logging.String(logging.FieldURL, pageURL))
	actions := []chromedp.Action{chromedp.Navigate(pageURL)}
	if settle > 0 {
		actions = append(actions, chromedp.Sleep(settle))
	}
	if err := s.run(ctx, actions...); err != nil {
		return fmt.Errorf("navigate to %s: %w", pageURL, err)
	}
	return nil
}

// AttributeValues returns the named attribute of every element matching the
// selector, skipping elements without it.
func (s *Session) AttributeValues(ctx context.Context, selector, attribute string) ([]string, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	values := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if value := strings.TrimSpace(node.AttributeValue(attribute)); value != "" {
			values = append(values, value)
		}
	}
	return values, nil
}

// EvaluateStrings runs a script expected to yield a list of strings.
func (s *Session) EvaluateStrings(ctx context.Context, script string) ([]string, error) {
	var result []string
	if err := s.run(ctx, chromedp.Evaluate(script, &result)); err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}
	return result, nil
}

// ScrollBy scrolls the viewport vertically.
func (s *Session) ScrollBy(ctx context.Context, pixels int) error {
	script := fmt.Sprintf("window.scrollBy(0, %d)", pixels)
	if err := s.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// ClickFirst clicks the first element matching the selector. A selector that
// matches nothing reports false without error so callers can walk a ladder
// of candidates.
func (s *Session) ClickFirst(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return false, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return false, nil
	}
	// Click via script: the CDP click action fails on elements that are
	// present but covered by overlays, which these players often are.
	script := fmt.Sprintf(
		"(function(){var el=document.querySelector(%q);if(!el)return false;el.click();return true;})()",
		selector,
	)
	var clicked bool
	if err := s.run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return false, fmt.Errorf("click %q: %w", selector, err)
	}
	return clicked, nil
}

// Close tears the browser down. Safe to call more than once.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// run executes actions with the caller's cancellation layered on top of the
// session's browser context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if ctx != nil {
		var cancel context.CancelFunc
		runCtx, cancel = mergeCancel(s.ctx, ctx)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

// mergeCancel derives a context from base that is additionally cancelled when
// extra is cancelled.
func mergeCancel(base, extra context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(base)
	stop := context.AfterFunc(extra, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
