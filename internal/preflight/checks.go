package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"wbgrab/internal/config"
	"wbgrab/internal/deps"
	"wbgrab/internal/services"
	"wbgrab/internal/services/ffmpeg"
)

// Result is the outcome of one preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckConverter verifies the configured conversion binary resolves.
func CheckConverter(converter ffmpeg.Converter, binary string) Result {
	const name = "FFmpeg"
	if err := converter.Resolve(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", binary)}
	}
	return Result{Name: name, Passed: true, Detail: binary}
}

// Run evaluates everything a download run needs before any network or
// browser work starts. A missing conversion tool fails here so the run
// stops before a single segment is fetched.
func Run(cfg *config.Config, converter ffmpeg.Converter) ([]Result, error) {
	results := []Result{
		CheckConverter(converter, cfg.FFmpeg.Binary),
		CheckDirectoryAccess("Workspace", cfg.Paths.WorkspaceDir),
		CheckDirectoryAccess("Downloads", cfg.Paths.DownloadsDir),
	}

	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failed) == 0 {
		return results, nil
	}

	var marker error
	if !results[0].Passed {
		marker = services.ErrToolMissing
	}
	return results, services.Wrap(marker, "preflight", "check", strings.Join(failed, "; "), nil)
}

// SystemDeps reports the availability of every external tool for the status
// command.
func SystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Defaults(cfg.FFmpeg.Binary))
}
