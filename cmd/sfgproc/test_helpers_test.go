package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sfgproc/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	stateDir   string
}

// setupCLITestEnv isolates HOME and writes a working config file backed by a
// ten-point grid. The padding table overrides every built-in detector so the
// small grid stays valid.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	gridPath := filepath.Join(base, "grid.txt")
	testsupport.WriteGridFile(t, gridPath, testsupport.SequentialGrid(10, 1000, 1))

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(homeDir, ".config", "sfgproc", "config.toml"),
		outputDir:  filepath.Join(base, "output"),
		stateDir:   filepath.Join(base, "state"),
	}

	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}

	content := fmt.Sprintf(`[paths]
output_dir = %q
state_dir = %q
log_dir = %q

[grid]
file = %q
length = 10

[smoothing]
enabled = false

[padding]
det620 = [0, 6]
det625 = [3, 3]
det630 = [6, 0]
det635 = [3, 3]
det640 = [3, 3]
det645 = [3, 3]
det655 = [3, 3]

[logging]
level = "error"
`, env.outputDir, env.stateDir, filepath.Join(base, "logs"), gridPath)

	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return env
}

// writeSampleDataset writes two sample traces with matching backgrounds:
// detector 620 occupying grid points 0-3 and detector 630 occupying 6-9.
func writeSampleDataset(t *testing.T, dir string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir dataset: %v", err)
	}
	testsupport.WriteTraceFile(t, filepath.Join(dir, "1.txt"),
		testsupport.SequentialGrid(4, 1000, 1), testsupport.ConstantSlice(4, 620),
		[]float64{2, 6, 100, 4})
	testsupport.WriteTraceFile(t, filepath.Join(dir, "1bg.txt"),
		testsupport.SequentialGrid(4, 1000, 1), testsupport.ConstantSlice(4, 620),
		testsupport.ConstantSlice(4, 1))
	testsupport.WriteTraceFile(t, filepath.Join(dir, "2.txt"),
		testsupport.SequentialGrid(4, 1006, 1), testsupport.ConstantSlice(4, 630),
		[]float64{4, 8, 50, 6})
	testsupport.WriteTraceFile(t, filepath.Join(dir, "2bg.txt"),
		testsupport.SequentialGrid(4, 1006, 1), testsupport.ConstantSlice(4, 630),
		testsupport.ConstantSlice(4, 2))
	return dir
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

// extractRunID pulls the run id out of the process command's summary line.
func extractRunID(t *testing.T, output string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Run ") && strings.HasSuffix(line, " completed") {
			return strings.TrimSuffix(strings.TrimPrefix(line, "Run "), " completed")
		}
	}
	t.Fatalf("run id not found in output:\n%s", output)
	return ""
}
