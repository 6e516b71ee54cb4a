package solver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/chazu/molsurf/pkg/logging"
)

// Process describes how to launch an external solver executable.
type Process struct {
	// Path is the executable.
	Path string
	// Args are placed before the per-call arguments, e.g. for wrappers.
	Args []string
	// Env is appended to the current environment.
	Env []string
}

// Run starts the process with args and waits for it to exit. The context
// is checked right before the process starts and right after it exits; a
// canceled context kills the process and yields ErrCanceled regardless of
// how the process ended.
func (p *Process) Run(ctx context.Context, label string, args ...string) error {
	if err := CheckCanceled(ctx); err != nil {
		return err
	}
	if p.Path == "" {
		return fmt.Errorf("%w: %s: no executable configured", ErrUnavailable, label)
	}

	cmd := exec.CommandContext(ctx, p.Path, append(slices.Clone(p.Args), args...)...)
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := logging.Logger()
	log.Debug("starting solver", "label", label, "path", p.Path)
	start := time.Now()
	err := cmd.Run()
	if cerr := CheckCanceled(ctx); cerr != nil {
		log.Debug("solver canceled", "label", label)
		return cerr
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		log.Warn("solver stderr", "label", label, "output", msg)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProcessFailed, label, err)
	}
	log.Debug("solver finished", "label", label, "elapsed", time.Since(start))
	return nil
}

// WithTempDir runs fn with a fresh temporary directory that is removed when
// fn returns, whatever the outcome.
func WithTempDir(pattern string, fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.Logger().Warn("failed to remove temp dir", "dir", dir, "error", rmErr)
		}
	}()
	return fn(dir)
}
