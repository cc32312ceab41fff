package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency wbgrab relies on.
type Requirement struct {
	Name        string
	Command     string
	Candidates  []string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Defaults returns the external tools a download run needs. The ffmpeg
// binary is configurable; the browser is resolved from common names.
func Defaults(ffmpegBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Required for stream conversion",
		},
		{
			Name:        "Browser",
			Candidates:  []string{"google-chrome", "chromium", "chromium-browser", "google-chrome-stable"},
			Description: "Required for page rendering",
		},
		{
			Name:        "FFprobe",
			Command:     "ffprobe",
			Description: "Used to inspect the downloaded file",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Requirements with candidate lists pass when any candidate resolves.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}

	if len(req.Candidates) > 0 {
		for _, candidate := range req.Candidates {
			if _, err := exec.LookPath(candidate); err == nil {
				status.Command = candidate
				status.Available = true
				return status
			}
		}
		status.Detail = fmt.Sprintf("none of %s found", strings.Join(req.Candidates, ", "))
		return status
	}

	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(status.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	return status
}
