// Package grid loads the canonical wavenumber axis that padded traces share.
package grid

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultLength is the canonical number of grid points.
const DefaultLength = 853

var (
	ErrEmpty  = errors.New("grid: no wavenumber values")
	ErrLength = errors.New("grid: wavenumber count differs from configured length")
)

// Grid is an immutable wavenumber axis.
type Grid struct {
	wavenumbers []float64
}

// New copies wavenumbers into a Grid.
func New(wavenumbers []float64) (*Grid, error) {
	if len(wavenumbers) == 0 {
		return nil, ErrEmpty
	}
	g := &Grid{wavenumbers: make([]float64, len(wavenumbers))}
	copy(g.wavenumbers, wavenumbers)
	return g, nil
}

// Load reads a grid file with one wavenumber per line, taking the first
// comma-delimited field of each line. Blank lines are skipped and a single
// non-numeric header row is tolerated. When length is positive the file
// must contain exactly that many values.
func Load(path string, length int) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid: open %s: %w", path, err)
	}
	defer f.Close()

	var wavenumbers []float64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	sawContent := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		field, _, _ := strings.Cut(line, ",")
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			if !sawContent {
				sawContent = true
				continue
			}
			return nil, fmt.Errorf("grid: %s line %d: %w", path, lineNo, err)
		}
		sawContent = true
		wavenumbers = append(wavenumbers, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("grid: read %s: %w", path, err)
	}
	if len(wavenumbers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	if length > 0 && len(wavenumbers) != length {
		return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrLength, path, len(wavenumbers), length)
	}
	return &Grid{wavenumbers: wavenumbers}, nil
}

// Len returns the number of grid points.
func (g *Grid) Len() int {
	return len(g.wavenumbers)
}

// At returns the wavenumber at index i.
func (g *Grid) At(i int) float64 {
	return g.wavenumbers[i]
}

// Wavenumbers returns a copy of the axis.
func (g *Grid) Wavenumbers() []float64 {
	out := make([]float64, len(g.wavenumbers))
	copy(out, g.wavenumbers)
	return out
}
