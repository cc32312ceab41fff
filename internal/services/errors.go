package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the pipeline error taxonomy. Every fatal error
// produced by a stage wraps exactly one of these so callers can classify
// failures without string matching.
var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrNoVideoReviews      = errors.New("no video reviews found")
	ErrManifestUnavailable = errors.New("manifest unavailable")
	ErrManifestEmpty       = errors.New("manifest empty")
	ErrSegmentFetch        = errors.New("segment fetch failed")
	ErrAssembly            = errors.New("assembly io error")
	ErrToolMissing         = errors.New("conversion tool missing")
	ErrConversion          = errors.New("conversion failed")
	ErrCleanup             = errors.New("cleanup error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = errors.New("pipeline failure")
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SegmentFetchError reports the first segment that permanently failed during
// the fetch stage. Index is the manifest position, Attempts the number of
// tries that were made before giving up.
type SegmentFetchError struct {
	Index    int
	URL      string
	Attempts int
	Err      error
}

func (e *SegmentFetchError) Error() string {
	return fmt.Sprintf("segment fetch failed: index %d (%s) after %d attempt(s): %v", e.Index, e.URL, e.Attempts, e.Err)
}

func (e *SegmentFetchError) Unwrap() error { return e.Err }

func (e *SegmentFetchError) Is(target error) bool { return target == ErrSegmentFetch }

// ConversionError reports a non-zero exit from the external conversion tool
// together with the tail of its combined output.
type ConversionError struct {
	ExitCode int
	Output   string
}

func (e *ConversionError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("conversion failed: exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("conversion failed: exit status %d: %s", e.ExitCode, out)
}

func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// Exit codes emitted by the CLI, one per top-level error kind so scripting
// callers can branch on the outcome.
const (
	ExitOK                  = 0
	ExitFailure             = 1
	ExitInvalidURL          = 2
	ExitNoVideoReviews      = 3
	ExitManifestUnavailable = 4
	ExitManifestEmpty       = 5
	ExitSegmentFetch        = 6
	ExitAssembly            = 7
	ExitToolMissing         = 8
	ExitConversion          = 9
)

// ExitCode maps a run error to the process exit code documented above.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidURL):
		return ExitInvalidURL
	case errors.Is(err, ErrNoVideoReviews):
		return ExitNoVideoReviews
	case errors.Is(err, ErrManifestUnavailable):
		return ExitManifestUnavailable
	case errors.Is(err, ErrManifestEmpty):
		return ExitManifestEmpty
	case errors.Is(err, ErrSegmentFetch):
		return ExitSegmentFetch
	case errors.Is(err, ErrAssembly):
		return ExitAssembly
	case errors.Is(err, ErrToolMissing):
		return ExitToolMissing
	case errors.Is(err, ErrConversion):
		return ExitConversion
	default:
		return ExitFailure
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
