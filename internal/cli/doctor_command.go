package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"deobf-bot/internal/deobf"
)

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type doctorResult struct {
	OK     bool          `json:"ok"`
	Checks []doctorCheck `json:"checks"`
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir, "bot data directory")
	stagingDir := fs.String("staging-dir", os.TempDir(), "job staging directory")
	binDir := fs.String("bin-dir", "bin", "bundled tool directory")
	projectDir := fs.String("project-dir", ".", "tool checkout root for source fallbacks")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	locator := deobf.Locator{
		BinDir:     strings.TrimSpace(*binDir),
		ProjectDir: strings.TrimSpace(*projectDir),
	}
	res := doctorResult{OK: true}
	add := func(name string, ok bool, message string) {
		if !ok {
			res.OK = false
		}
		res.Checks = append(res.Checks, doctorCheck{Name: name, OK: ok, Message: message})
	}

	report := locator.DependencyStatus()
	if report.ToolFound {
		add("deobfuscator", true, report.ToolPath)
	} else {
		add("deobfuscator", false, "MoonsecDeobfuscator not found in "+locator.BinDir+" or known build outputs")
	}
	if report.DotnetFound {
		add("dotnet", true, report.DotnetPath)
	} else {
		// Only fatal when the tool itself needs the runtime.
		add("dotnet", report.ToolFound, "dotnet runtime not on PATH")
	}

	add("data dir", dirWritable(*dataDir), strings.TrimSpace(*dataDir))
	add("staging dir", dirWritable(*stagingDir), strings.TrimSpace(*stagingDir))

	accountsPath := filepath.Join(strings.TrimSpace(*dataDir), "tokens.json")
	if info, err := os.Stat(accountsPath); err == nil {
		add("accounts file", true, fmt.Sprintf("%s (%s)", accountsPath, formatBytesIEC(info.Size())))
	} else {
		add("accounts file", true, "not created yet, first use will create it")
	}

	if *jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
		if !res.OK {
			return errors.New("doctor checks failed")
		}
		return nil
	}

	for _, c := range res.Checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("%s: %s (%s)\n", c.Name, status, c.Message)
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("doctor: all checks passed")
	return nil
}

func dirWritable(dir string) bool {
	dir = strings.TrimSpace(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}
