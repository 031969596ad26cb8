package deobf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/usr/bin/env bash\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestFindPrefersBundledBinDir(t *testing.T) {
	tmp := t.TempDir()
	binDir := filepath.Join(tmp, "bin")
	bundled := filepath.Join(binDir, "nested", toolBinaryName)
	writeScript(t, bundled, "exit 0\n")
	writeScript(t, filepath.Join(tmp, toolBinaryName), "exit 0\n")

	tool, err := Locator{BinDir: binDir, ProjectDir: tmp}.Find()
	if err != nil {
		t.Fatal(err)
	}
	if tool.Path != bundled {
		t.Fatalf("Find = %s, want bundled %s", tool.Path, bundled)
	}
	if tool.ProjectFile != "" {
		t.Fatalf("unexpected project fallback: %s", tool.ProjectFile)
	}
}

func TestFindFallsBackToBuildOutput(t *testing.T) {
	tmp := t.TempDir()
	built := filepath.Join(tmp, "src", "bin", "Release", "net9.0", toolBinaryName)
	writeScript(t, built, "exit 0\n")

	tool, err := Locator{BinDir: filepath.Join(tmp, "missing-bin"), ProjectDir: tmp}.Find()
	if err != nil {
		t.Fatal(err)
	}
	if tool.Path != built {
		t.Fatalf("Find = %s, want %s", tool.Path, built)
	}
}

func TestFindProjectFallbackRequiresDotnet(t *testing.T) {
	tmp := t.TempDir()
	csproj := filepath.Join(tmp, "src", "MoonsecDeobfuscator.csproj")
	if err := os.MkdirAll(filepath.Dir(csproj), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(csproj, []byte("<Project/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Without dotnet on PATH discovery must fail and name the runtime.
	t.Setenv("PATH", tmp)
	_, err := Locator{BinDir: "", ProjectDir: tmp}.Find()
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}

	fakeBin := filepath.Join(tmp, "fakebin")
	writeScript(t, filepath.Join(fakeBin, "dotnet"), "exit 0\n")
	t.Setenv("PATH", fakeBin)

	tool, err := Locator{BinDir: "", ProjectDir: tmp}.Find()
	if err != nil {
		t.Fatal(err)
	}
	if tool.ProjectFile != csproj {
		t.Fatalf("ProjectFile = %s, want %s", tool.ProjectFile, csproj)
	}
}

func TestFindNothing(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("PATH", tmp)
	_, err := Locator{BinDir: filepath.Join(tmp, "bin"), ProjectDir: tmp}.Find()
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestInvokeWritesOutput(t *testing.T) {
	tmp := t.TempDir()
	toolPath := filepath.Join(tmp, toolBinaryName)
	// Mimic the real contract: read -i, write -o, ignore -dev.
	writeScript(t, toolPath, `
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2;;
    -o) out="$2"; shift 2;;
    *) shift;;
  esac
done
cat "$in" > "$out"
`)

	inputPath := filepath.Join(tmp, "input.lua")
	outputPath := filepath.Join(tmp, "output.lua")
	if err := os.WriteFile(inputPath, []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(outputPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	outcome, err := Tool{Path: toolPath}.Invoke(context.Background(), inputPath, outputPath, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.ExitCompleted {
		t.Fatal("expected clean exit")
	}
	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "print('hi')\n" {
		t.Fatalf("output = %q", data)
	}
}

func TestInvokeNonZeroExitIsNotAnError(t *testing.T) {
	tmp := t.TempDir()
	toolPath := filepath.Join(tmp, toolBinaryName)
	writeScript(t, toolPath, "exit 3\n")

	outcome, err := Tool{Path: toolPath}.Invoke(context.Background(), "in", filepath.Join(tmp, "out"), 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.ExitCompleted {
		t.Fatal("exit 3 should report ExitCompleted=false")
	}
}

func TestInvokeHardTimeoutKillsChild(t *testing.T) {
	tmp := t.TempDir()
	toolPath := filepath.Join(tmp, toolBinaryName)
	writeScript(t, toolPath, "sleep 30\n")

	start := time.Now()
	_, err := Tool{Path: toolPath}.Invoke(context.Background(), "in", filepath.Join(tmp, "out"), 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("invoke did not return promptly: %v", elapsed)
	}
}
