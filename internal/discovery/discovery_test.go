package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wbgrab/internal/services"
	"wbgrab/internal/testsupport"
)

type fakePage struct {
	attrs           map[string][]string // key: selector + "|" + attribute
	probed          []string
	probeAfterClick bool
	clickable       map[string]bool
	clicked         bool
	scrolls         int
	scrollGate      int // photo section appears after this many scrolls
}

func (f *fakePage) key(selector, attribute string) string { return selector + "|" + attribute }

func (f *fakePage) AttributeValues(_ context.Context, selector, attribute string) ([]string, error) {
	if selector == "section.user-photos" && f.scrollGate > 0 && f.scrolls < f.scrollGate {
		return nil, nil
	}
	return f.attrs[f.key(selector, attribute)], nil
}

func (f *fakePage) EvaluateStrings(_ context.Context, _ string) ([]string, error) {
	if f.probeAfterClick && !f.clicked {
		return nil, nil
	}
	return f.probed, nil
}

func (f *fakePage) ScrollBy(_ context.Context, _ int) error {
	f.scrolls++
	return nil
}

func (f *fakePage) ClickFirst(_ context.Context, selector string) (bool, error) {
	if f.clickable[selector] {
		f.clicked = true
		return true, nil
	}
	return false, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return NewService(cfg.Source, nil, WithSleeper(noSleep))
}

func TestDiscoverDirectVideoSource(t *testing.T) {
	page := &fakePage{attrs: map[string][]string{
		"video[src]|src": {"https://videocdn.example/vol1/hls/index.m3u8"},
	}}
	refs, err := newTestService(t).Discover(t.Context(), page)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != 1 || refs[0].URI != "https://videocdn.example/vol1/hls/index.m3u8" {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestDiscoverDataAttributeSource(t *testing.T) {
	page := &fakePage{attrs: map[string][]string{
		"div[src*='m3u8'], video[data-src*='m3u8']|data-src": {"https://cdn.example/review/index.m3u8"},
	}}
	refs, err := newTestService(t).Discover(t.Context(), page)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestDiscoverSourceAppearsAfterPlaybackTrigger(t *testing.T) {
	page := &fakePage{
		clickable:       map[string]bool{".wb-player__btn": true},
		probed:          []string{"https://cdn.example/stream/index.m3u8"},
		probeAfterClick: true,
	}
	refs, err := newTestService(t).Discover(t.Context(), page)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %+v", refs)
	}
	if !page.clicked {
		t.Fatal("expected a play element to be clicked")
	}
}

func TestDiscoverPreviewFallback(t *testing.T) {
	page := &fakePage{
		attrs: map[string][]string{
			"section.user-photos|class": {"user-photos"},
			".swiper-wrapper > .swiper-slide > img|src": {
				"https://img.example/vol1/one/preview.webp",
				"https://img.example/static/photo.jpg",
				"https://img.example/vol1/two/preview.webp",
			},
		},
		scrollGate: 2,
	}
	refs, err := newTestService(t).Discover(t.Context(), page)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected two preview refs, got %+v", refs)
	}
	if page.scrolls < 2 {
		t.Fatalf("expected scrolling before section appeared, scrolls=%d", page.scrolls)
	}
}

func TestDiscoverNothingFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := time.Now()
	elapsed := 0
	svc := NewService(cfg.Source, nil,
		WithSleeper(noSleep),
		WithClock(func() time.Time {
			elapsed++
			return base.Add(time.Duration(elapsed) * time.Hour)
		}),
	)
	page := &fakePage{scrollGate: 1 << 30}
	_, err := svc.Discover(t.Context(), page)
	if !errors.Is(err, services.ErrNoVideoReviews) {
		t.Fatalf("expected no-video-reviews, got %v", err)
	}
}

func TestValidateURL(t *testing.T) {
	hosts := []string{"wildberries.ru"}
	ok := []string{
		"https://www.wildberries.ru/catalog/279956072/detail.aspx",
		"https://wildberries.ru/catalog/1/detail.aspx",
	}
	for _, raw := range ok {
		if err := ValidateURL(raw, hosts); err != nil {
			t.Fatalf("ValidateURL(%q) = %v", raw, err)
		}
	}
	bad := []string{
		"https://example.com/catalog/1/",
		"https://notwildberries.ru/catalog/1/",
		"ftp://wildberries.ru/catalog/1/",
		"not a url",
		"",
	}
	for _, raw := range bad {
		err := ValidateURL(raw, hosts)
		if !errors.Is(err, services.ErrInvalidURL) {
			t.Fatalf("ValidateURL(%q) = %v, want invalid-url", raw, err)
		}
	}
}

func TestExtractProductID(t *testing.T) {
	pattern := `/catalog/(\d+)/`
	if got := ExtractProductID("https://www.wildberries.ru/catalog/279956072/detail.aspx", pattern); got != "279956072" {
		t.Fatalf("product id = %q", got)
	}
	if got := ExtractProductID("https://www.wildberries.ru/brands/acme", pattern); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	if got := DefaultOutputPath("downloads", "42"); got != filepath.Join("downloads", "42", "42-video.mp4") {
		t.Fatalf("path = %q", got)
	}
	if got := DefaultOutputPath("downloads", ""); got != "output_video.mp4" {
		t.Fatalf("fallback = %q", got)
	}
}
