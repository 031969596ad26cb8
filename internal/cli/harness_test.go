package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deobf-bot/internal/ledger"
)

func TestHarnessCreditThenGift(t *testing.T) {
	dataDir := t.TempDir()

	err := Run([]string{"ledger", "credit", "--data-dir", dataDir, "--id", "alice", "--amount", "5"})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	err = Run([]string{"ledger", "gift", "--data-dir", dataDir, "--from", "alice", "--to", "bob", "--amount", "2"})
	if err != nil {
		t.Fatalf("gift failed: %v", err)
	}

	store, err := ledger.NewFileStore(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.New(store)
	accounts, err := l.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	// alice: initial grant 3 on first touch, +5 credit, -2 gift.
	if got := accounts["alice"].Tokens; got != 6 {
		t.Fatalf("alice balance = %d, want 6", got)
	}
	if got := accounts["bob"].Tokens; got != ledger.InitialCredit+2 {
		t.Fatalf("bob balance = %d, want %d", got, ledger.InitialCredit+2)
	}
}

func TestHarnessGiftInsufficientFunds(t *testing.T) {
	dataDir := t.TempDir()

	err := Run([]string{"ledger", "gift", "--data-dir", dataDir, "--from", "poor", "--to", "rich", "--amount", "100"})
	if err == nil {
		t.Fatal("expected gift to fail")
	}
	if !strings.Contains(err.Error(), "does not have 100 token(s)") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHarnessSettingsToggle(t *testing.T) {
	dataDir := t.TempDir()

	if err := Run([]string{"settings", "set", "--data-dir", dataDir, "off"}); err != nil {
		t.Fatalf("set off failed: %v", err)
	}

	store, err := ledger.NewFileStore(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.New(store).Enabled() {
		t.Fatal("token system still enabled after settings set off")
	}

	// A second identical set is a notice, not an error.
	if err := Run([]string{"settings", "set", "--data-dir", dataDir, "off"}); err != nil {
		t.Fatalf("repeated set off failed: %v", err)
	}
}

func TestHarnessUnknownCommand(t *testing.T) {
	if err := Run([]string{"frobnicate"}); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestHarnessDoctor(t *testing.T) {
	tmp := t.TempDir()
	binDir := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	toolPath := filepath.Join(binDir, "MoonsecDeobfuscator")
	if err := os.WriteFile(toolPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := Run([]string{"doctor",
		"--data-dir", filepath.Join(tmp, "data"),
		"--staging-dir", filepath.Join(tmp, "staging"),
		"--bin-dir", binDir,
		"--project-dir", tmp,
	})
	if err != nil {
		t.Fatalf("doctor failed with tool present: %v", err)
	}
}

func TestHarnessDoctorMissingTool(t *testing.T) {
	tmp := t.TempDir()

	err := Run([]string{"doctor",
		"--data-dir", filepath.Join(tmp, "data"),
		"--staging-dir", filepath.Join(tmp, "staging"),
		"--bin-dir", filepath.Join(tmp, "bin"),
		"--project-dir", tmp,
	})
	if err == nil {
		t.Fatal("expected doctor to fail without the tool")
	}
}
