package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"wbgrab/internal/services"
)

const outputTailBytes = 2048

// Converter defines the behaviour the transcode stage needs from the
// external conversion tool.
type Converter interface {
	Resolve() error
	Convert(ctx context.Context, sourcePath, destPath string) error
	CommandLine(sourcePath, destPath string) string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (output string, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary    string
	timeout   time.Duration
	extraArgs []string
	exec      Executor
}

// New constructs an ffmpeg client.
func New(binary string, timeoutSeconds int, extraArgs []string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary:    binary,
		timeout:   time.Duration(timeoutSeconds) * time.Second,
		extraArgs: append([]string(nil), extraArgs...),
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Resolve verifies the configured binary can be found, without running it.
func (c *Client) Resolve() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return services.Wrap(services.ErrToolMissing, "transcoder", "resolve binary",
			fmt.Sprintf("%q not found on PATH; install ffmpeg to convert videos", c.binary), err)
	}
	return nil
}

// Convert remuxes sourcePath into destPath and waits for the tool to exit.
// Non-zero exits surface as *services.ConversionError; transcoding is never
// retried because failures are deterministic for a fixed input.
func (c *Client) Convert(ctx context.Context, sourcePath, destPath string) error {
	if err := c.Resolve(); err != nil {
		return err
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	output, err := c.exec.Run(runCtx, c.binary, c.args(sourcePath, destPath))
	if err == nil {
		return nil
	}

	if runCtx.Err() != nil && ctx.Err() == nil {
		return services.Wrap(services.ErrConversion, "transcoder", "wait for tool",
			fmt.Sprintf("timed out after %s", c.timeout), runCtx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &services.ConversionError{ExitCode: exitErr.ExitCode(), Output: tail(output)}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrToolMissing, "transcoder", "invoke tool", c.binary, err)
	}
	return services.Wrap(services.ErrConversion, "transcoder", "invoke tool", tail(output), err)
}

// CommandLine renders the exact invocation for verbose logging.
func (c *Client) CommandLine(sourcePath, destPath string) string {
	return c.binary + " " + strings.Join(c.args(sourcePath, destPath), " ")
}

func (c *Client) args(sourcePath, destPath string) []string {
	args := []string{"-y", "-i", sourcePath, "-c", "copy", "-avoid_negative_ts", "make_zero"}
	args = append(args, c.extraArgs...)
	return append(args, destPath)
}

func tail(output string) string {
	output = strings.TrimSpace(output)
	if len(output) <= outputTailBytes {
		return output
	}
	return "..." + output[len(output)-outputTailBytes:]
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
