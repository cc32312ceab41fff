package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wbgrab/internal/assemble"
	"wbgrab/internal/discovery"
	"wbgrab/internal/fetch"
	"wbgrab/internal/logging"
	"wbgrab/internal/manifest"
	"wbgrab/internal/run"
	"wbgrab/internal/services"
	"wbgrab/internal/services/webclient"
	"wbgrab/internal/testsupport"
	"wbgrab/internal/transcode"
)

// passthroughConverter copies the assembled stream to the destination so the
// full artifact flow can be asserted without a real conversion tool.
type passthroughConverter struct {
	err error
}

func (c *passthroughConverter) Resolve() error { return nil }

func (c *passthroughConverter) Convert(ctx context.Context, sourcePath, destPath string) error {
	if c.err != nil {
		return c.err
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (c *passthroughConverter) CommandLine(sourcePath, destPath string) string {
	return "stub " + sourcePath + " " + destPath
}

func newMediaServer(t *testing.T, failIndex int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/video/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "#EXTM3U")
		for i := 0; i < 4; i++ {
			fmt.Fprintf(w, "#EXTINF:10.0,\nsegment%d.ts\n", i)
		}
		fmt.Fprintln(w, "#EXT-X-ENDLIST")
	})
	mux.HandleFunc("/video/", func(w http.ResponseWriter, r *http.Request) {
		var idx int
		if _, err := fmt.Sscanf(r.URL.Path, "/video/segment%d.ts", &idx); err != nil {
			http.NotFound(w, r)
			return
		}
		if idx == failIndex {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "SEG%d|", idx)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newPipeline(t *testing.T, serverURL string, converter *passthroughConverter) (*Pipeline, *run.Lifecycle, *State) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	lc, err := run.New(cfg.Paths.WorkspaceDir)
	if err != nil {
		t.Fatalf("run.New: %v", err)
	}
	t.Cleanup(func() { _ = lc.Cleanup(logger) })

	client := webclient.New(5 * time.Second)
	noSleep := func(context.Context, time.Duration) error { return nil }
	resolver := manifest.NewResolver(client, cfg.Source, cfg.Download, logger, manifest.WithSleeper(noSleep))
	fetcher := fetch.NewFetcher(client, cfg.Download, logger, fetch.WithSleeper(noSleep))
	assembler := assemble.NewAssembler(logger)
	transcoder := transcode.NewTranscoder(converter, logger)

	state := &State{
		Reference:  discovery.VideoReference{URI: serverURL + "/video/preview.webp"},
		OutputPath: filepath.Join(cfg.Paths.DownloadsDir, "42", "42-video.mp4"),
	}
	return New(lc, resolver, fetcher, assembler, transcoder, logger), lc, state
}

func TestRunProducesOutputAndCleansUp(t *testing.T) {
	server := newMediaServer(t, -1)
	pipe, lc, state := newPipeline(t, server.URL, &passthroughConverter{})

	if err := pipe.Run(t.Context(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(state.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "SEG0|SEG1|SEG2|SEG3|" {
		t.Fatalf("output = %q", data)
	}
	if got := len(state.Results); got != 4 {
		t.Fatalf("results = %d, want 4", got)
	}
	for _, res := range state.Results {
		if res.Payload != nil {
			t.Fatal("segment payloads retained after assembly")
		}
	}

	if err := lc.Cleanup(logging.NewNop()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(lc.Dir()); !os.IsNotExist(err) {
		t.Fatal("run directory survived cleanup")
	}
	if _, err := os.Stat(state.OutputPath); err != nil {
		t.Fatalf("output removed by cleanup: %v", err)
	}
}

func TestRunSegmentFailureLeavesNoOutput(t *testing.T) {
	server := newMediaServer(t, 2)
	pipe, lc, state := newPipeline(t, server.URL, &passthroughConverter{})

	err := pipe.Run(t.Context(), state)
	if !errors.Is(err, services.ErrSegmentFetch) {
		t.Fatalf("error = %v, want ErrSegmentFetch", err)
	}
	var fetchErr *services.SegmentFetchError
	if !errors.As(err, &fetchErr) || fetchErr.Index != 2 {
		t.Fatalf("failed segment = %v", err)
	}

	if err := lc.Cleanup(logging.NewNop()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(state.OutputPath); !os.IsNotExist(err) {
		t.Fatalf("output exists after failed run: %v", err)
	}
}

func TestRunConversionFailureLeavesNoOutput(t *testing.T) {
	server := newMediaServer(t, -1)
	converter := &passthroughConverter{err: &services.ConversionError{ExitCode: 1, Output: "bad stream"}}
	pipe, lc, state := newPipeline(t, server.URL, converter)

	err := pipe.Run(t.Context(), state)
	if !errors.Is(err, services.ErrConversion) {
		t.Fatalf("error = %v, want ErrConversion", err)
	}

	if err := lc.Cleanup(logging.NewNop()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(state.OutputPath); !os.IsNotExist(err) {
		t.Fatalf("output exists after failed conversion: %v", err)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	server := newMediaServer(t, -1)
	pipe, _, state := newPipeline(t, server.URL, &passthroughConverter{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := pipe.Run(ctx, state); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
