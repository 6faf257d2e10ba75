package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sfgproc/internal/loader"
)

func TestListCommandShowsTraces(t *testing.T) {
	env := setupCLITestEnv(t)
	alpha := writeSampleDataset(t, filepath.Join(env.baseDir, "alpha"))

	stdout, _, err := runCLI(t, []string{"list", alpha}, env.configPath)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	requireContains(t, stdout, "2 samples, 2 backgrounds")
	requireContains(t, stdout, "det620")
	requireContains(t, stdout, "det630")
	requireContains(t, stdout, "background")
	requireContains(t, stdout, "1000.0-1003.0")
}

func TestListCommandRequiresSamples(t *testing.T) {
	env := setupCLITestEnv(t)
	empty := filepath.Join(env.baseDir, "empty")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, _, err := runCLI(t, []string{"list", empty}, env.configPath)
	if !errors.Is(err, loader.ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}
