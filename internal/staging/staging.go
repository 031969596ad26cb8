// Package staging owns the ephemeral input/output files a job works on.
// Handles are released either immediately or after a grace delay; both paths
// tolerate the file already being gone.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"deobf-bot/internal/store"
)

// Handle identifies one staged file. The zero value is inert: releasing it
// does nothing.
type Handle struct {
	path string
}

func (h Handle) Path() string {
	return h.path
}

// Stager creates uniquely named file pairs in a dedicated directory and
// tracks pending deferred releases so they can be cancelled.
type Stager struct {
	dir string

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(dir string) (*Stager, error) {
	if err := store.Mkdir(dir); err != nil {
		return nil, err
	}
	return &Stager{dir: dir, pending: make(map[string]*time.Timer)}, nil
}

// Stage writes content to a fresh input file and creates an empty output
// file beside it. Names carry a random component so concurrent jobs never
// collide.
func (s *Stager) Stage(content []byte, extHint string) (Handle, Handle, error) {
	id := uuid.NewString()
	inputPath := filepath.Join(s.dir, "input-"+id+extHint)
	outputPath := filepath.Join(s.dir, "output-"+id+"_deobf.lua")

	if err := os.WriteFile(inputPath, content, 0o600); err != nil {
		return Handle{}, Handle{}, fmt.Errorf("stage input %s: %w", inputPath, err)
	}
	if err := os.WriteFile(outputPath, nil, 0o600); err != nil {
		_ = os.Remove(inputPath)
		return Handle{}, Handle{}, fmt.Errorf("stage output %s: %w", outputPath, err)
	}
	return Handle{path: inputPath}, Handle{path: outputPath}, nil
}

// ReleaseNow deletes the staged file immediately. Deleting a file that is
// already gone is not an error.
func (s *Stager) ReleaseNow(h Handle) {
	if h.path == "" {
		return
	}
	s.mu.Lock()
	if timer, ok := s.pending[h.path]; ok {
		timer.Stop()
		delete(s.pending, h.path)
	}
	s.mu.Unlock()

	_ = os.Remove(h.path)
}

// ReleaseAfter schedules deletion once delay elapses, without blocking the
// caller. A manual ReleaseNow in the meantime simply leaves the deferred
// task nothing to delete.
func (s *Stager) ReleaseAfter(h Handle, delay time.Duration) {
	if h.path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[h.path]; ok {
		return
	}
	s.pending[h.path] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.pending, h.path)
		s.mu.Unlock()
		_ = os.Remove(h.path)
	})
}

// PendingReleases reports how many deferred deletions have not fired yet.
func (s *Stager) PendingReleases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
