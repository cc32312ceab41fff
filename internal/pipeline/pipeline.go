package pipeline

import (
	"context"
	"log/slog"
	"time"

	"wbgrab/internal/assemble"
	"wbgrab/internal/discovery"
	"wbgrab/internal/fetch"
	"wbgrab/internal/logging"
	"wbgrab/internal/manifest"
	"wbgrab/internal/run"
	"wbgrab/internal/services"
	"wbgrab/internal/transcode"
)

// State carries the artifacts of a run between stages. Each stage reads what
// the previous one produced and fills in its own field.
type State struct {
	Reference  discovery.VideoReference
	Manifest   *manifest.Manifest
	Results    []fetch.Result
	Assembled  *assemble.AssembledStream
	OutputPath string
}

// Handler is one pipeline stage.
type Handler interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// Pipeline runs the download stages in order against a shared run lifecycle.
type Pipeline struct {
	lifecycle *run.Lifecycle
	stages    []Handler
	logger    *slog.Logger
}

// New assembles the standard stage sequence.
func New(lc *run.Lifecycle, resolver *manifest.Resolver, fetcher *fetch.Fetcher, assembler *assemble.Assembler, transcoder *transcode.Transcoder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		lifecycle: lc,
		logger:    logger,
		stages: []Handler{
			&resolveStage{resolver: resolver},
			&fetchStage{fetcher: fetcher},
			&assembleStage{assembler: assembler, lifecycle: lc},
			&transcodeStage{transcoder: transcoder, lifecycle: lc},
		},
	}
}

// Run executes every stage in order, stopping at the first failure. The
// caller owns lifecycle cleanup; Run never removes artifacts itself so the
// cleanup path stays single.
func (p *Pipeline) Run(ctx context.Context, state *State) error {
	ctx = services.WithRunID(ctx, p.lifecycle.ID())
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		stageCtx := services.WithStage(ctx, stage.Name())
		stageLogger := logging.WithContext(stageCtx, p.logger)
		started := time.Now()
		stageLogger.Info("stage started")

		if err := stage.Execute(stageCtx, state); err != nil {
			stageLogger.Error("stage failed",
				logging.Duration("elapsed", time.Since(started)),
				logging.Error(err))
			return err
		}
		stageLogger.Info("stage completed",
			logging.Duration("elapsed", time.Since(started)))
	}
	return nil
}

type resolveStage struct {
	resolver *manifest.Resolver
}

func (s *resolveStage) Name() string { return "resolve" }

func (s *resolveStage) Execute(ctx context.Context, state *State) error {
	m, err := s.resolver.Resolve(ctx, state.Reference)
	if err != nil {
		return err
	}
	state.Manifest = m
	return nil
}

type fetchStage struct {
	fetcher *fetch.Fetcher
}

func (s *fetchStage) Name() string { return "fetch" }

func (s *fetchStage) Execute(ctx context.Context, state *State) error {
	results, err := s.fetcher.FetchAll(ctx, state.Manifest)
	if err != nil {
		return err
	}
	state.Results = results
	return nil
}

type assembleStage struct {
	assembler *assemble.Assembler
	lifecycle *run.Lifecycle
}

func (s *assembleStage) Name() string { return "assemble" }

func (s *assembleStage) Execute(ctx context.Context, state *State) error {
	assembled, err := s.assembler.Assemble(s.lifecycle, state.Results)
	if err != nil {
		return err
	}
	state.Assembled = assembled
	// Segment payloads are no longer needed once they are on disk.
	state.Results = trimPayloads(state.Results)
	return nil
}

type transcodeStage struct {
	transcoder *transcode.Transcoder
	lifecycle  *run.Lifecycle
}

func (s *transcodeStage) Name() string { return "transcode" }

func (s *transcodeStage) Execute(ctx context.Context, state *State) error {
	return s.transcoder.Transcode(ctx, s.lifecycle, state.Assembled.Path, state.OutputPath)
}

// trimPayloads drops segment bytes while keeping the per-segment attempt
// counts for the verbose report.
func trimPayloads(results []fetch.Result) []fetch.Result {
	trimmed := make([]fetch.Result, len(results))
	for i, res := range results {
		trimmed[i] = fetch.Result{Index: res.Index, Attempts: res.Attempts}
	}
	return trimmed
}
