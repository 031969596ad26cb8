// Package deobf locates and runs the external MoonSec deobfuscator. The tool
// is a black box: callers judge success by the output artifact, not by the
// process exit status.
package deobf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const toolBinaryName = "MoonsecDeobfuscator"

// ErrToolNotFound is a configuration problem, not a tool-execution failure:
// the deobfuscator binary is missing from every known location.
var ErrToolNotFound = errors.New("MoonsecDeobfuscator executable not found")

// Tool is a resolved invocation target. When ProjectFile is set the tool
// runs through `dotnet run`; otherwise Path is the built executable.
type Tool struct {
	Path        string
	ProjectFile string
}

// Locator resolves the deobfuscator through a fixed discovery order:
// the bundled bin directory, well-known build output paths, and finally a
// `dotnet run` fallback against the tool's project file.
type Locator struct {
	// BinDir is where deployment drops the built executable.
	BinDir string
	// ProjectDir is the checkout root holding src/ for source fallbacks.
	ProjectDir string
}

func (l Locator) Find() (Tool, error) {
	if path := searchTree(l.BinDir, isToolBinary); path != "" {
		return Tool{Path: path}, nil
	}

	srcDir := filepath.Join(l.ProjectDir, "src")
	wellKnown := []string{
		filepath.Join(l.ProjectDir, toolBinaryName),
		filepath.Join(l.ProjectDir, toolBinaryName+".exe"),
		filepath.Join(srcDir, "bin", "Release", "net9.0", toolBinaryName),
		filepath.Join(srcDir, "bin", "Release", "net9.0", toolBinaryName+".exe"),
		filepath.Join(srcDir, "bin", "Release", "net8.0", toolBinaryName),
		filepath.Join(srcDir, "bin", "Release", "net8.0", toolBinaryName+".exe"),
	}
	for _, path := range wellKnown {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return Tool{Path: path}, nil
		}
	}

	if csproj := searchTree(srcDir, isToolProject); csproj != "" {
		dotnet, err := exec.LookPath("dotnet")
		if err != nil {
			return Tool{}, fmt.Errorf("%w: found %s but the dotnet runtime is not on PATH", ErrToolNotFound, csproj)
		}
		return Tool{Path: dotnet, ProjectFile: csproj}, nil
	}

	return Tool{}, fmt.Errorf("%w: searched %s, known build outputs, and %s", ErrToolNotFound, l.BinDir, srcDir)
}

// DependencyReport is the preflight view of the tool chain for doctor-style
// checks.
type DependencyReport struct {
	ToolFound   bool   `json:"tool_found"`
	ToolPath    string `json:"tool_path,omitempty"`
	DotnetFound bool   `json:"dotnet_found"`
	DotnetPath  string `json:"dotnet_path,omitempty"`
}

func (l Locator) DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if tool, err := l.Find(); err == nil {
		report.ToolFound = true
		if tool.ProjectFile != "" {
			report.ToolPath = tool.ProjectFile
		} else {
			report.ToolPath = tool.Path
		}
	}
	if path, err := exec.LookPath("dotnet"); err == nil {
		report.DotnetFound = true
		report.DotnetPath = path
	}
	return report
}

func isToolBinary(name string) bool {
	return name == toolBinaryName || name == toolBinaryName+".exe"
}

func isToolProject(name string) bool {
	return strings.HasSuffix(name, ".csproj") && strings.Contains(name, "Moonsec")
}

func searchTree(root string, match func(name string) bool) string {
	if strings.TrimSpace(root) == "" {
		return ""
	}
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && match(d.Name()) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}
