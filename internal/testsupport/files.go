package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// WriteTraceFile writes one acquisition file with wavenumber, wavelength, and
// counts columns. All three slices must share a length.
func WriteTraceFile(t testing.TB, path string, wavenumber, wavelength, counts []float64) {
	t.Helper()

	if len(wavenumber) != len(wavelength) || len(wavenumber) != len(counts) {
		t.Fatalf("trace columns disagree: %d %d %d", len(wavenumber), len(wavelength), len(counts))
	}
	var sb strings.Builder
	for i := range wavenumber {
		sb.WriteString(formatColumn(wavenumber[i]))
		sb.WriteByte(',')
		sb.WriteString(formatColumn(wavelength[i]))
		sb.WriteByte(',')
		sb.WriteString(formatColumn(counts[i]))
		sb.WriteByte('\n')
	}
	mustWriteFile(t, path, sb.String())
}

// WriteGridFile writes a canonical axis file with one wavenumber per line.
func WriteGridFile(t testing.TB, path string, wavenumbers []float64) {
	t.Helper()

	var sb strings.Builder
	for _, wn := range wavenumbers {
		sb.WriteString(formatColumn(wn))
		sb.WriteByte('\n')
	}
	mustWriteFile(t, path, sb.String())
}

// SequentialGrid builds an ascending axis of n points starting at start.
func SequentialGrid(n int, start, step float64) []float64 {
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = start + float64(i)*step
	}
	return grid
}

// ConstantSlice builds a slice of n copies of value.
func ConstantSlice(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func formatColumn(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func mustWriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
