//go:build mage

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary       = "img-updater"
	coverProfile = "coverage.out"
	coverHTML    = "coverage.html"
)

// Default target to run when none is specified
var Default = Build

// Build builds the binary
func Build() error {
	fmt.Println("Building...")
	return sh.Run("go", "build", "-o", binary, "./cmd/img-updater")
}

// Install installs the binary
func Install() error {
	fmt.Println("Installing...")
	return sh.Run("go", "install", "./cmd/img-updater")
}

// Update builds the binary and runs an update into the current directory.
// Extra flags can be passed through IMGUPD_ARGS, e.g. IMGUPD_ARGS="--type field --debug".
func Update() error {
	mg.Deps(Build)

	return run(context.Background(), "./"+binary, strings.Fields(os.Getenv("IMGUPD_ARGS"))...)
}

// Test runs all tests
func Test() error {
	fmt.Println("Running tests...")
	return sh.Run("go", "test", "-v", "-race", "-coverprofile="+coverProfile, "./...")
}

// TestForFail runs the unit tests purely to find out whether any fail
func TestForFail() error {
	fmt.Println("Running unit tests for overall pass/fail...")
	return run(
		context.Background(),
		"go",
		"test",
		"-timeout=60s",
		"./...",
		"-failfast",
		"-shuffle=on",
		"-race",
	)
}

// Stress repeats the session suite under the race detector to shake out ordering bugs
// in the finishing/finished protocol.
func Stress() error {
	fmt.Println("Stressing the session suite...")
	return run(context.Background(), "go", "test", "-race", "-count=20", "-shuffle=on", "./internal/syncengine/")
}

// Lint lints the codebase
func Lint() error {
	fmt.Println("Linting...")
	return run(context.Background(), "golangci-lint", "run", "-c", ".golangci.yml", "./...")
}

// LintForFail lints the codebase purely to find out whether anything fails
func LintForFail() error {
	fmt.Println("Linting to check for overall pass/fail...")
	return run(
		context.Background(),
		"golangci-lint", "run",
		"-c", ".golangci.yml",
		"--fix=false",
		"--max-issues-per-linter=1",
		"--max-same-issues=1",
		"./...",
	)
}

// CheckNils checks for nils
func CheckNils() error {
	fmt.Println("Running check for nils...")
	return run(context.Background(), "nilaway", "./...")
}

// CheckForFail runs all checks on the code for determining whether any fail
func CheckForFail() error {
	fmt.Println("Checking for failures...")
	mg.SerialDeps(LintForFail, TestForFail, CheckNils)
	return nil
}

// Fmt formats the code
func Fmt() error {
	fmt.Println("Formatting code...")
	if err := sh.Run("gofmt", "-s", "-w", "cmd", "internal", "pkg", "magefile.go"); err != nil {
		return err
	}
	return sh.Run("goimports", "-w", "cmd", "internal", "pkg", "magefile.go")
}

// Check runs all checks (fmt, lint, test)
func Check() error {
	mg.SerialDeps(Fmt, Lint, Test, CheckNils)
	return nil
}

// Coverage generates and opens coverage report
func Coverage() error {
	if err := Test(); err != nil {
		return err
	}
	fmt.Println("Generating coverage report...")
	if err := sh.Run("go", "tool", "cover", "-html="+coverProfile, "-o", coverHTML); err != nil {
		return err
	}

	// Try to open the coverage report
	cmd := exec.Command("open", coverHTML)
	if err := cmd.Run(); err != nil {
		fmt.Println("Coverage report generated at " + coverHTML)
	}
	return nil
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning...")
	for _, path := range []string{binary, coverProfile, coverHTML} {
		if err := sh.Rm(path); err != nil {
			return err
		}
	}
	return nil
}

// Helper function to run commands with context
func run(c context.Context, command string, arg ...string) error {
	cmd := exec.CommandContext(c, command, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
