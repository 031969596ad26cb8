package deobf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	// DefaultHardTimeout bounds the tool itself.
	DefaultHardTimeout = 90 * time.Second
	// outerGrace pads the orchestration-side bound past the tool-side one,
	// so Invoke returns even if killing via the context stalls.
	outerGrace = 5 * time.Second
)

// ErrTimeout reports that the tool ran past its hard timeout. The child
// process is dead by the time Invoke returns it.
var ErrTimeout = errors.New("deobfuscation timed out")

// Outcome describes a non-timeout tool run. ExitCompleted records whether
// the process exited zero; callers must not treat it as a success signal,
// the output artifact is the only reliable oracle.
type Outcome struct {
	ExitCompleted bool
	Elapsed       time.Duration
}

// Invoke runs the tool against inputPath/outputPath under hardTimeout. The
// wait happens on its own goroutine; a second, slightly larger timer
// guarantees control returns here even if the context kill never lands, in
// which case the child is killed directly and partial output is discarded.
func (t Tool) Invoke(ctx context.Context, inputPath, outputPath string, hardTimeout time.Duration) (Outcome, error) {
	if hardTimeout <= 0 {
		hardTimeout = DefaultHardTimeout
	}
	toolCtx, cancel := context.WithTimeout(ctx, hardTimeout)
	defer cancel()

	cmd := exec.CommandContext(toolCtx, t.Path, t.args(inputPath, outputPath)...)
	cmd.Dir = t.workDir()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("start %s: %w", t.Path, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	outer := time.NewTimer(hardTimeout + outerGrace)
	defer outer.Stop()

	select {
	case waitErr := <-done:
		elapsed := time.Since(start)
		if toolCtx.Err() != nil {
			return Outcome{Elapsed: elapsed}, ErrTimeout
		}
		return Outcome{ExitCompleted: waitErr == nil, Elapsed: elapsed}, nil
	case <-outer.C:
		_ = cmd.Process.Kill()
		<-done
		_ = os.Truncate(outputPath, 0)
		return Outcome{Elapsed: time.Since(start)}, ErrTimeout
	}
}

func (t Tool) args(inputPath, outputPath string) []string {
	base := []string{"-dev", "-i", inputPath, "-o", outputPath}
	if t.ProjectFile != "" {
		return append([]string{"run", "--project", t.ProjectFile, "--"}, base...)
	}
	return base
}

func (t Tool) workDir() string {
	if t.ProjectFile != "" {
		return filepath.Dir(t.ProjectFile)
	}
	return filepath.Dir(t.Path)
}
