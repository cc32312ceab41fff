package transcode

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"wbgrab/internal/fileutil"
	"wbgrab/internal/logging"
	"wbgrab/internal/run"
	"wbgrab/internal/services"
	"wbgrab/internal/services/ffmpeg"
)

// Transcoder remuxes the assembled stream into the final container. The
// conversion writes into the run directory first and promotes to the output
// path only after the tool exits cleanly, so the output never exists in a
// partial state.
type Transcoder struct {
	converter ffmpeg.Converter
	logger    *slog.Logger
}

// NewTranscoder constructs a transcoder over the given converter.
func NewTranscoder(converter ffmpeg.Converter, logger *slog.Logger) *Transcoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcoder{converter: converter, logger: logger}
}

// Transcode converts sourcePath into the run-local staging file and promotes
// the result to outputPath. The staging file is registered for cleanup; the
// promoted output is not.
func (t *Transcoder) Transcode(ctx context.Context, lc *run.Lifecycle, sourcePath, outputPath string) error {
	staged := lc.Path("converted" + filepath.Ext(outputPath))
	lc.Register(staged)

	t.logger.Info("converting stream",
		logging.String("source", sourcePath),
		logging.String("command", t.converter.CommandLine(sourcePath, staged)))
	if err := t.converter.Convert(ctx, sourcePath, staged); err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := fileutil.EnsureDir(dir); err != nil {
			return services.Wrap(services.ErrConversion, "transcode", "prepare output directory", dir, err)
		}
	}
	if err := fileutil.MoveFile(staged, outputPath); err != nil {
		return services.Wrap(services.ErrConversion, "transcode", "promote output", outputPath, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return services.Wrap(services.ErrConversion, "transcode", "verify output", outputPath, err)
	}
	t.logger.Info("conversion complete",
		logging.String("path", outputPath),
		logging.Int64("bytes", info.Size()))
	return nil
}
