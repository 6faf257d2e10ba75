package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestProcessCommandRunsPipeline(t *testing.T) {
	env := setupCLITestEnv(t)
	alpha := writeSampleDataset(t, filepath.Join(env.baseDir, "alpha"))

	stdout, _, err := runCLI(t, []string{"process", alpha, "--label", "cli run"}, env.configPath)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	requireContains(t, stdout, "Label: cli run")
	requireContains(t, stdout, "alpha")
	requireContains(t, stdout, "reference")
	requireContains(t, stdout, "Outputs: ")

	runID := extractRunID(t, stdout)
	if _, err := uuid.Parse(runID); err != nil {
		t.Fatalf("run id %q is not a UUID: %v", runID, err)
	}

	for _, name := range []string{"raw_traces.csv", "subtracted_traces.csv", "sum.csv", "truncated_sum.csv"} {
		path := filepath.Join(env.outputDir, runID, "alpha", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected exported file %s: %v", path, err)
		}
	}
}

func TestProcessCommandHandlesMultipleDatasets(t *testing.T) {
	env := setupCLITestEnv(t)
	alpha := writeSampleDataset(t, filepath.Join(env.baseDir, "alpha"))
	beta := writeSampleDataset(t, filepath.Join(env.baseDir, "beta"))

	stdout, _, err := runCLI(t, []string{"process", alpha, beta, "--reference", "beta"}, env.configPath)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	requireContains(t, stdout, "alpha")
	requireContains(t, stdout, "beta")

	// The reference role lands on the requested dataset.
	for _, line := range strings.Split(stdout, "\n") {
		if strings.Contains(line, "reference") && !strings.Contains(line, "beta") {
			t.Errorf("reference role assigned to wrong dataset: %s", line)
		}
	}
}

func TestProcessCommandReportsMissingDataset(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"process", filepath.Join(env.baseDir, "nope")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing dataset directory")
	}
	if !strings.Contains(err.Error(), "stat dataset") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcessCommandRequiresArguments(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"process"}, env.configPath)
	if err == nil {
		t.Fatal("expected usage error when no directories are given")
	}
}
