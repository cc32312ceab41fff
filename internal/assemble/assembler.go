package assemble

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"wbgrab/internal/fetch"
	"wbgrab/internal/logging"
	"wbgrab/internal/run"
	"wbgrab/internal/services"
)

// AssembledStream is the concatenated transport stream written into the run
// directory.
type AssembledStream struct {
	Path  string
	Bytes int64
}

// Assembler concatenates fetched segments into a single stream file in
// strict index order.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler constructs an assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{logger: logger}
}

// Assemble writes the segment payloads to assembled.ts inside the run
// directory, ascending by index, and registers the file for cleanup. Results
// arriving out of order are sorted first; a gap or duplicate index means the
// fetch stage broke its contract and fails the run.
func (a *Assembler) Assemble(lc *run.Lifecycle, results []fetch.Result) (*AssembledStream, error) {
	if len(results) == 0 {
		return nil, services.Wrap(services.ErrAssembly, "assemble", "write", "no segments to assemble", nil)
	}

	ordered := make([]fetch.Result, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for i, res := range ordered {
		if res.Index != i {
			err := fmt.Errorf("segment index %d at position %d", res.Index, i)
			return nil, services.Wrap(services.ErrAssembly, "assemble", "order", "segment sequence has gaps", err)
		}
	}

	path := lc.Path("assembled.ts")
	lc.Register(path)

	file, err := os.Create(path)
	if err != nil {
		return nil, services.Wrap(services.ErrAssembly, "assemble", "create", path, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	var total int64
	for _, res := range ordered {
		n, err := writer.Write(res.Payload)
		if err != nil {
			return nil, services.Wrap(services.ErrAssembly, "assemble", "write", path, err)
		}
		total += int64(n)
	}
	if err := writer.Flush(); err != nil {
		return nil, services.Wrap(services.ErrAssembly, "assemble", "flush", path, err)
	}
	if err := file.Sync(); err != nil {
		return nil, services.Wrap(services.ErrAssembly, "assemble", "sync", path, err)
	}
	if err := file.Close(); err != nil {
		return nil, services.Wrap(services.ErrAssembly, "assemble", "close", path, err)
	}

	a.logger.Info("segments assembled",
		logging.String("path", path),
		logging.Int("segments", len(ordered)),
		logging.Int64("bytes", total))
	return &AssembledStream{Path: path, Bytes: total}, nil
}
