package preflight

import (
	"errors"
	"path/filepath"
	"testing"

	"wbgrab/internal/services"
	"wbgrab/internal/services/ffmpeg"
	"wbgrab/internal/testsupport"
)

func newConverter(t *testing.T, binary string) *ffmpeg.Client {
	t.Helper()
	client, err := ffmpeg.New(binary, 5, nil)
	if err != nil {
		t.Fatalf("ffmpeg.New: %v", err)
	}
	return client
}

func TestRunPassesWithToolAndDirectories(t *testing.T) {
	testsupport.StubBinaries(t, "ffmpeg")
	cfg := testsupport.NewConfig(t)

	results, err := Run(cfg, newConverter(t, "ffmpeg"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, result := range results {
		if !result.Passed {
			t.Fatalf("%s failed: %s", result.Name, result.Detail)
		}
	}
}

func TestRunFailsFastWhenToolMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.FFmpeg.Binary = "no-such-converter-binary"

	_, err := Run(cfg, newConverter(t, "no-such-converter-binary"))
	if !errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("error = %v, want ErrToolMissing", err)
	}
}

func TestRunFailsOnMissingDirectory(t *testing.T) {
	testsupport.StubBinaries(t, "ffmpeg")
	cfg := testsupport.NewConfig(t)
	cfg.Paths.DownloadsDir = filepath.Join(t.TempDir(), "does-not-exist")

	_, err := Run(cfg, newConverter(t, "ffmpeg"))
	if err == nil {
		t.Fatal("expected directory check failure")
	}
	if errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("directory failure misclassified as tool missing: %v", err)
	}
}

func TestCheckDirectoryAccessNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	testsupport.WriteFile(t, file, []byte("content"))

	result := CheckDirectoryAccess("Workspace", file)
	if result.Passed {
		t.Fatal("file passed directory check")
	}
}

func TestSystemDepsReportsConfiguredBinary(t *testing.T) {
	testsupport.StubBinaries(t, "ffmpeg")
	cfg := testsupport.NewConfig(t)

	statuses := SystemDeps(cfg)
	if len(statuses) == 0 {
		t.Fatal("no statuses")
	}
	if statuses[0].Name != "FFmpeg" || !statuses[0].Available {
		t.Fatalf("ffmpeg status = %+v", statuses[0])
	}
}
