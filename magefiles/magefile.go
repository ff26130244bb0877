//go:build mage

// Package main provides build targets for calyra using Mage.
//
// Usage:
//
//	mage build     Compile calyra binary to bin/
//	mage test      Run all tests with the race detector
//	mage lint      Run go vet and golangci-lint
//	mage clean     Remove build artifacts
//	mage install   Install calyra to GOPATH/bin
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "calyra"
	binaryDir  = "bin"
	cmdDir     = "./cmd/calyra"
)

// Build compiles the calyra binary to bin/, stamping the git version.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := fmt.Sprintf("-X main.version=%s", gitVersion())
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests with the race detector.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Lint runs go vet, then golangci-lint.
func Lint() error {
	if err := sh.RunV(binGo, "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

func gitVersion() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(out) == "" {
		return "dev"
	}
	return strings.TrimSpace(out)
}
