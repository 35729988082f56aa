//go:build stave

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

var Default = Build

var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"c": Clean,
	"d": Docs,
}

const (
	binaryName = "quill"
	mainPkg    = "./cmd/quill"
	binDir     = "bin"
	docDir     = "doc"
)

// All lints, tests and builds.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Build compiles bin/quill with version information stamped in.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	return sh.RunV("go", "build", "-ldflags", versionFlags(), "-o", builtBinary(), mainPkg)
}

// Install copies the built binary into GOBIN, GOPATH/bin or /usr/local/bin.
func Install() error {
	st.Deps(Build)

	target, err := installedBinary()
	if err != nil {
		return err
	}
	if st.Verbose() {
		fmt.Printf("%s -> %s\n", builtBinary(), target)
	}
	return sh.Copy(target, builtBinary())
}

// Uninstall removes the installed binary if present.
func Uninstall() error {
	target, err := installedBinary()
	if err != nil {
		return err
	}

	err = os.Remove(target)
	switch {
	case os.IsNotExist(err):
		if st.Verbose() {
			fmt.Printf("%s is not installed\n", target)
		}
		return nil
	case err != nil:
		return fmt.Errorf("removing %s: %w", target, err)
	}
	if st.Verbose() {
		fmt.Printf("removed %s\n", target)
	}
	return nil
}

// Docs documents cmd/ and pkg/ into doc/ using the freshly built binary.
func Docs() error {
	st.Deps(Build)
	return sh.RunV(builtBinary(), "--title", binaryName, "--no-progress", "-o", docDir, "cmd", "pkg")
}

// Test runs the test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// Bench runs the benchmarks without the regular tests.
func Bench() error {
	return sh.RunV("go", "test", "-run", "^$", "-bench", ".", "-benchmem", "./...")
}

func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes bin/ and the generated doc/ tree.
func Clean() error {
	for _, dir := range []string{binDir, docDir} {
		if st.Verbose() {
			fmt.Printf("rm -r %s/\n", dir)
		}
		if err := sh.Rm(dir + "/"); err != nil {
			return err
		}
	}
	return nil
}

func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("gofmt: %w", err)
	}
	return sh.Run("goimports", "-w", ".")
}

func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

func builtBinary() string {
	return exe(filepath.Join(binDir, binaryName))
}

func installedBinary() (string, error) {
	dir, err := installDir()
	if err != nil {
		return "", err
	}
	return exe(filepath.Join(dir, binaryName)), nil
}

// installDir returns GOBIN, GOPATH/bin, or /usr/local/bin.
func installDir() (string, error) {
	for _, key := range []string{"GOBIN", "GOPATH"} {
		v, err := sh.Output(st.GoCmd(), "env", key)
		if err != nil {
			return "", fmt.Errorf("go env %s: %w", key, err)
		}
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if key == "GOPATH" {
			return filepath.Join(filepath.SplitList(v)[0], "bin"), nil
		}
		return v, nil
	}
	return "/usr/local/bin", nil
}

func exe(path string) string {
	if runtime.GOOS == "windows" {
		return path + ".exe"
	}
	return path
}

// versionFlags stamps main.version, main.commit and main.date from git.
func versionFlags() string {
	vars := [][2]string{
		{"version", gitOr("dev", "describe", "--tags", "--always", "--dirty")},
		{"commit", gitOr("unknown", "rev-parse", "--short", "HEAD")},
		{"date", time.Now().UTC().Format(time.RFC3339)},
	}
	flags := make([]string, 0, len(vars))
	for _, v := range vars {
		flags = append(flags, fmt.Sprintf("-X main.%s=%s", v[0], v[1]))
	}
	return strings.Join(flags, " ")
}

func gitOr(fallback string, args ...string) string {
	out, err := sh.Output("git", args...)
	if out = strings.TrimSpace(out); err != nil || out == "" {
		return fallback
	}
	return out
}
