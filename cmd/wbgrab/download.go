package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wbgrab/internal/assemble"
	"wbgrab/internal/config"
	"wbgrab/internal/discovery"
	"wbgrab/internal/fetch"
	"wbgrab/internal/logging"
	"wbgrab/internal/manifest"
	"wbgrab/internal/pipeline"
	"wbgrab/internal/preflight"
	"wbgrab/internal/run"
	"wbgrab/internal/services"
	"wbgrab/internal/services/browser"
	"wbgrab/internal/services/ffmpeg"
	"wbgrab/internal/services/webclient"
	"wbgrab/internal/transcode"
)

func runDownload(cmd *cobra.Command, cmdCtx *commandContext, rawURL, outputFlag string, workersOverride int) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}
	if workersOverride > 0 {
		cfg.Download.Workers = workersOverride
	}

	// Validate before anything heavier runs: a bad URL must not launch a
	// browser or touch the network.
	if err := discovery.ValidateURL(rawURL, cfg.Source.AllowedHosts); err != nil {
		return err
	}

	converter, err := ffmpeg.New(cfg.FFmpeg.Binary, cfg.FFmpeg.Timeout, cfg.FFmpeg.ExtraArgs)
	if err != nil {
		return err
	}
	if _, err := preflight.Run(cfg, converter); err != nil {
		return err
	}

	productID := discovery.ExtractProductID(rawURL, cfg.Source.ProductIDPattern)
	outputPath, err := resolveOutputPath(outputFlag, cfg.Paths.DownloadsDir, productID)
	if err != nil {
		return err
	}

	lc, err := run.New(cfg.Paths.WorkspaceDir)
	if err != nil {
		return err
	}
	defer func() {
		if cleanupErr := lc.Cleanup(logger); cleanupErr != nil {
			logger.Warn("cleanup incomplete", logging.Error(cleanupErr))
		}
	}()
	if err := lc.LockOutput(outputPath); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runLogger := logger.With(logging.String(logging.FieldRunID, lc.ID()))
	runLogger.Info("starting download",
		logging.String(logging.FieldURL, rawURL),
		logging.String("output", outputPath))

	reference, err := discover(ctx, cfg, runLogger, rawURL)
	if err != nil {
		return err
	}

	client := webclient.New(time.Duration(cfg.Download.HTTPTimeout) * time.Second)
	pipe := pipeline.New(lc,
		manifest.NewResolver(client, cfg.Source, cfg.Download, runLogger),
		fetch.NewFetcher(client, cfg.Download, runLogger),
		assemble.NewAssembler(runLogger),
		transcode.NewTranscoder(converter, runLogger),
		runLogger)

	state := &pipeline.State{Reference: reference, OutputPath: outputPath}
	if err := pipe.Run(ctx, state); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cmdCtx.verbose() {
		fmt.Fprintln(out, renderSegmentReport(state.Results))
	}
	fmt.Fprintf(out, "Saved %s\n", outputPath)
	return nil
}

// discover renders the page and returns the first video reference found.
func discover(ctx context.Context, cfg *config.Config, logger *slog.Logger, rawURL string) (discovery.VideoReference, error) {
	session, err := browser.NewSession(ctx, cfg.Source, logger)
	if err != nil {
		return discovery.VideoReference{}, services.Wrap(services.ErrNoVideoReviews, "discover", "launch browser", "", err)
	}
	defer session.Close()

	settle := time.Duration(cfg.Source.PageLoadWait) * time.Second
	if err := session.Navigate(ctx, rawURL, settle); err != nil {
		return discovery.VideoReference{}, services.Wrap(services.ErrNoVideoReviews, "discover", "load page", rawURL, err)
	}

	references, err := discovery.NewService(cfg.Source, logger).Discover(ctx, session)
	if err != nil {
		return discovery.VideoReference{}, err
	}
	return references[0], nil
}

func resolveOutputPath(outputFlag, downloadsDir, productID string) (string, error) {
	if strings.TrimSpace(outputFlag) == "" {
		return discovery.DefaultOutputPath(downloadsDir, productID), nil
	}
	return config.ExpandPath(outputFlag)
}

// renderSegmentReport tabulates per-segment attempt counts for verbose runs.
func renderSegmentReport(results []fetch.Result) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{
			strconv.Itoa(res.Index),
			strconv.Itoa(res.Attempts),
		})
	}
	return renderTable([]string{"Segment", "Attempts"}, rows, 0, 1)
}
