// Package buildrunner implements the Build Runner: it
// spawns the external build tool, streams and parses its output into
// errors/warnings, and surfaces a BuildError on non-zero exit.
package buildrunner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/models"
)

// Result captures what the Coordinator needs after a build: the publish
// directory it should walk, plus timing/diagnostics for reporting.
type Result struct {
	PublishDir string
	Duration   time.Duration
	ExitCode   int
	Errors     []string
	Warnings   []string
}

// Runner invokes an external build command (e.g. "dotnet publish") and
// parses its combined output.
type Runner struct {
	// Command is the executable to invoke; defaults to "dotnet" if empty.
	Command string
}

// Run assembles the argument vector from build and invokes Command,
// writing the publish tree to publishDir. The publish output directory is
// provided, not parsed, so the Coordinator knows where to walk regardless
// of what the tool printed.
func (r *Runner) Run(ctx context.Context, projectPath string, build models.BuildConfig, publishDir string) (Result, error) {
	cmd := r.Command
	if cmd == "" {
		cmd = "dotnet"
	}

	args := []string{"publish", projectPath}
	if build.Configuration != "" {
		args = append(args, "--configuration", build.Configuration)
	}
	if build.TargetFramework != "" {
		args = append(args, "--framework", build.TargetFramework)
	}
	if build.RuntimeIdentifier != "" {
		args = append(args, "--runtime", build.RuntimeIdentifier)
	}
	args = append(args, "--output", publishDir)
	for k, v := range build.AdditionalProperties {
		args = append(args, fmt.Sprintf("-p:%s=%s", k, v))
	}

	start := time.Now()
	proc := exec.CommandContext(ctx, cmd, args...)
	var combined bytes.Buffer
	proc.Stdout = &combined
	proc.Stderr = &combined

	runErr := proc.Run()
	duration := time.Since(start)

	diagErrors, diagWarnings := parseDiagnostics(combined.String())
	exitCode := 0
	if proc.ProcessState != nil {
		exitCode = proc.ProcessState.ExitCode()
	}

	result := Result{
		PublishDir: publishDir,
		Duration:   duration,
		ExitCode:   exitCode,
		Errors:     diagErrors,
		Warnings:   diagWarnings,
	}

	if runErr != nil || exitCode != 0 {
		excerpt := combined.String()
		if len(excerpt) > 2000 {
			excerpt = excerpt[len(excerpt)-2000:]
		}
		return result, &deployerr.BuildError{
			Errors:   diagErrors,
			Warnings: diagWarnings,
			ExitCode: exitCode,
			Excerpt:  excerpt,
		}
	}
	return result, nil
}

// parseDiagnostics applies a tolerant pattern over build output: any line
// containing ": error " or ": warning " is captured with everything up to
// and including the marker removed, so "File.cs(1,2): error CS1002: x"
// yields "CS1002: x". This matches common msbuild/dotnet/tsc-style
// diagnostic formatting without depending on a specific compiler's exact
// grammar.
func parseDiagnostics(output string) (errors, warnings []string) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, ": error "):
			_, msg, _ := strings.Cut(line, ": error ")
			errors = append(errors, strings.TrimSpace(msg))
		case strings.Contains(line, ": warning "):
			_, msg, _ := strings.Cut(line, ": warning ")
			warnings = append(warnings, strings.TrimSpace(msg))
		}
	}
	return errors, warnings
}
