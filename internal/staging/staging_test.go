package staging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStageCreatesDistinctPairs(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "staging"))
	if err != nil {
		t.Fatal(err)
	}

	in1, out1, err := s.Stage([]byte("aaa"), ".lua")
	if err != nil {
		t.Fatal(err)
	}
	in2, out2, err := s.Stage([]byte("bbb"), ".lua")
	if err != nil {
		t.Fatal(err)
	}

	paths := map[string]bool{in1.Path(): true, out1.Path(): true, in2.Path(): true, out2.Path(): true}
	if len(paths) != 4 {
		t.Fatalf("expected 4 unique paths, got %v", paths)
	}

	data, err := os.ReadFile(in1.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "aaa" {
		t.Fatalf("input content = %q", data)
	}
	info, err := os.Stat(out1.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Fatalf("output should start empty, size = %d", info.Size())
	}
}

func TestReleaseNowIdempotent(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	in, out, err := s.Stage([]byte("x"), ".txt")
	if err != nil {
		t.Fatal(err)
	}

	s.ReleaseNow(in)
	s.ReleaseNow(in) // second release of a gone file must not panic or error
	s.ReleaseNow(out)

	if _, err := os.Stat(in.Path()); !os.IsNotExist(err) {
		t.Fatalf("input still present: %v", err)
	}
	s.ReleaseNow(Handle{}) // zero handle is inert
}

func TestReleaseAfterDeletesLater(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, out, err := s.Stage([]byte("x"), ".txt")
	if err != nil {
		t.Fatal(err)
	}

	s.ReleaseAfter(out, 20*time.Millisecond)
	if _, err := os.Stat(out.Path()); err != nil {
		t.Fatalf("file removed too early: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(out.Path()); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("deferred release never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.PendingReleases() != 0 {
		t.Fatalf("pending releases = %d, want 0", s.PendingReleases())
	}
}

func TestManualReleaseBeforeDeferredFires(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, out, err := s.Stage([]byte("x"), ".txt")
	if err != nil {
		t.Fatal(err)
	}

	s.ReleaseAfter(out, time.Hour)
	s.ReleaseNow(out)

	if s.PendingReleases() != 0 {
		t.Fatalf("deferred task should be cancelled, pending = %d", s.PendingReleases())
	}
	if _, err := os.Stat(out.Path()); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}
