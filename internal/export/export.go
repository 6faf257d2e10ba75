// Package export writes snapshots as comma-delimited text with fixed
// 5-decimal precision, one row per grid point.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"sfgproc/internal/trace"
)

// SumHeader is the single header row written on truncated sums.
const SumHeader = "wn,counts"

var (
	ErrEmpty          = errors.New("export: nothing to write")
	ErrLengthMismatch = errors.New("export: length mismatch")
)

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

// WritePairs writes one (wavenumber, counts) column pair per trace, using
// each trace's native axis. Every trace must have the same number of points.
func WritePairs(path string, c *trace.Collection) error {
	if c == nil || c.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	traces := c.Traces()
	n := traces[0].Len()
	for _, tr := range traces {
		if tr.Len() != n {
			return fmt.Errorf("%w: trace %s has %d points, trace %s has %d",
				ErrLengthMismatch, tr.ID, tr.Len(), traces[0].ID, n)
		}
		if len(tr.Wavenumber) != tr.Len() {
			return fmt.Errorf("%w: trace %s axis %d differs from counts %d",
				ErrLengthMismatch, tr.ID, len(tr.Wavenumber), tr.Len())
		}
	}

	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		for j, tr := range traces {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(formatValue(tr.Wavenumber[i]))
			buf.WriteByte(',')
			buf.WriteString(formatValue(tr.Counts[i]))
		}
		buf.WriteByte('\n')
	}
	return writeFile(path, &buf)
}

// WriteGridColumns writes the canonical grid as the first column followed
// by one counts column per trace. Every counts length must equal the grid
// length.
func WriteGridColumns(path string, gridWN []float64, c *trace.Collection) error {
	if len(gridWN) == 0 || c == nil || c.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	traces := c.Traces()
	for _, tr := range traces {
		if tr.Len() != len(gridWN) {
			return fmt.Errorf("%w: trace %s has %d points, grid has %d",
				ErrLengthMismatch, tr.ID, tr.Len(), len(gridWN))
		}
	}

	var buf bytes.Buffer
	for i := range gridWN {
		buf.WriteString(formatValue(gridWN[i]))
		for _, tr := range traces {
			buf.WriteByte(',')
			buf.WriteString(formatValue(tr.Counts[i]))
		}
		buf.WriteByte('\n')
	}
	return writeFile(path, &buf)
}

// WriteSum writes the grid and a sum as two columns. When header is true a
// single "wn,counts" header row precedes the data.
func WriteSum(path string, gridWN, sum []float64, header bool) error {
	if len(gridWN) == 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	if len(sum) != len(gridWN) {
		return fmt.Errorf("%w: sum has %d points, grid has %d",
			ErrLengthMismatch, len(sum), len(gridWN))
	}

	var buf bytes.Buffer
	if header {
		buf.WriteString(SumHeader)
		buf.WriteByte('\n')
	}
	for i := range gridWN {
		buf.WriteString(formatValue(gridWN[i]))
		buf.WriteByte(',')
		buf.WriteString(formatValue(sum[i]))
		buf.WriteByte('\n')
	}
	return writeFile(path, &buf)
}

func writeFile(path string, buf *bytes.Buffer) error {
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}
