package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"wbgrab/internal/logging"
	"wbgrab/internal/run"
	"wbgrab/internal/services"
)

// stubConverter writes a fixed payload to the destination, or fails.
type stubConverter struct {
	payload []byte
	err     error
}

func (s *stubConverter) Resolve() error { return nil }

func (s *stubConverter) Convert(ctx context.Context, sourcePath, destPath string) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(destPath, s.payload, 0o644)
}

func (s *stubConverter) CommandLine(sourcePath, destPath string) string {
	return fmt.Sprintf("ffmpeg -y -i %s -c copy %s", sourcePath, destPath)
}

func newLifecycle(t *testing.T) *run.Lifecycle {
	t.Helper()
	lc, err := run.New(t.TempDir())
	if err != nil {
		t.Fatalf("run.New: %v", err)
	}
	t.Cleanup(func() { _ = lc.Cleanup(logging.NewNop()) })
	return lc
}

func TestTranscodePromotesOutput(t *testing.T) {
	lc := newLifecycle(t)
	source := lc.Path("assembled.ts")
	if err := os.WriteFile(source, []byte("stream"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	output := filepath.Join(t.TempDir(), "videos", "42", "42-video.mp4")

	converter := &stubConverter{payload: []byte("mp4 bytes")}
	tr := NewTranscoder(converter, logging.NewNop())
	if err := tr.Transcode(t.Context(), lc, source, output); err != nil {
		t.Fatalf("Transcode: %v", err)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "mp4 bytes" {
		t.Fatalf("output = %q", got)
	}
	// The staging copy must not remain in the run directory.
	if _, err := os.Stat(lc.Path("converted.mp4")); !os.IsNotExist(err) {
		t.Fatalf("staging file survived promotion: %v", err)
	}
}

func TestTranscodeConversionFailureLeavesNoOutput(t *testing.T) {
	lc := newLifecycle(t)
	source := lc.Path("assembled.ts")
	if err := os.WriteFile(source, []byte("stream"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	output := filepath.Join(t.TempDir(), "out.mp4")

	wantErr := &services.ConversionError{ExitCode: 1, Output: "moov atom not found"}
	tr := NewTranscoder(&stubConverter{err: wantErr}, logging.NewNop())
	err := tr.Transcode(t.Context(), lc, source, output)
	if !errors.Is(err, services.ErrConversion) {
		t.Fatalf("error = %v, want ErrConversion", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("output exists after failed conversion: %v", statErr)
	}
}

func TestTranscodeOutputSurvivesCleanup(t *testing.T) {
	lc := newLifecycle(t)
	source := lc.Path("assembled.ts")
	if err := os.WriteFile(source, []byte("stream"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	output := filepath.Join(t.TempDir(), "out.mp4")

	tr := NewTranscoder(&stubConverter{payload: []byte("mp4")}, logging.NewNop())
	if err := tr.Transcode(t.Context(), lc, source, output); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if err := lc.Cleanup(logging.NewNop()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output removed by cleanup: %v", err)
	}
}
