// Package loader reads acquisition files from a dataset directory and
// partitions them into sample and background traces by file name: a purely
// numeric stem is a sample, a numeric stem with the reserved "bg" suffix is
// a background, anything else is skipped.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

// DefaultDelimiter separates columns when none is configured.
const DefaultDelimiter = ","

// Supported file encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingLatin1      = "latin-1"
	EncodingWindows1252 = "windows-1252"
)

var (
	ErrNoSamples = errors.New("loader: no sample traces found")
	ErrEncoding  = errors.New("loader: unsupported encoding")
	ErrDelimiter = errors.New("loader: delimiter must be a single character")
	ErrColumns   = errors.New("loader: expected three columns")
)

// Loader parses delimited acquisition files into traces.
type Loader struct {
	delimiter string
	enc       encoding.Encoding
	logger    *slog.Logger
}

// New builds a Loader for the given column delimiter and file encoding.
// Empty strings select the comma delimiter and UTF-8.
func New(delimiter, encodingName string, logger *slog.Logger) (*Loader, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if utf8.RuneCountInString(delimiter) != 1 {
		return nil, fmt.Errorf("%w: %q", ErrDelimiter, delimiter)
	}
	enc, err := encodingFor(encodingName)
	if err != nil {
		return nil, err
	}
	l := &Loader{delimiter: delimiter, enc: enc}
	l.SetLogger(logger)
	return l, nil
}

// SetLogger updates the loader's logging destination.
func (l *Loader) SetLogger(logger *slog.Logger) {
	l.logger = logging.NewComponentLogger(logger, "loader")
}

func encodingFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", EncodingUTF8:
		return nil, nil
	case EncodingLatin1:
		return charmap.ISO8859_1, nil
	case EncodingWindows1252:
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrEncoding, name)
	}
}

// LoadDir scans dir (non-recursive) for .txt and .csv acquisition files and
// returns the sample and background collections, each sorted ascending by
// trace ID. A dataset must contain at least one sample; backgrounds are
// optional.
func (l *Loader) LoadDir(dir string) (samples, backgrounds *trace.Collection, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: read dir %s: %w", dir, err)
	}

	var sampleTraces, backgroundTraces []*trace.Trace
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".txt" && ext != ".csv" {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		isSample := isDigits(stem)
		if !isSample && !isBackgroundName(stem) {
			l.logger.Debug("skipping unrecognized file", logging.String("file", name))
			continue
		}

		tr, err := l.parseFile(filepath.Join(dir, name), stem)
		if err != nil {
			return nil, nil, err
		}
		if isSample {
			sampleTraces = append(sampleTraces, tr)
		} else {
			backgroundTraces = append(backgroundTraces, tr)
		}
		l.logger.Debug("loaded trace",
			logging.String("file", name),
			logging.String(logging.FieldTraceID, tr.ID),
			logging.Int("points", tr.Len()),
			logging.Bool("background", !isSample),
		)
	}

	if len(sampleTraces) == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoSamples, dir)
	}
	return trace.NewCollection(sampleTraces...), trace.NewCollection(backgroundTraces...), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isBackgroundName(stem string) bool {
	body, ok := strings.CutSuffix(stem, trace.BackgroundSuffix)
	return ok && isDigits(body)
}

// parseFile reads one acquisition file: three delimited numeric columns per
// row (wavenumber, wavelength, counts), blank lines ignored, one optional
// header row whose first field is not numeric.
func (l *Loader) parseFile(path, id string) (*trace.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if l.enc != nil {
		r = l.enc.NewDecoder().Reader(f)
	}

	tr := &trace.Trace{ID: id}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	sawContent := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, l.delimiter)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %s line %d has %d", ErrColumns, path, lineNo, len(fields))
		}

		wn, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			if !sawContent {
				sawContent = true
				continue
			}
			return nil, fmt.Errorf("loader: %s line %d: %w", path, lineNo, err)
		}
		wl, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("loader: %s line %d: %w", path, lineNo, err)
		}
		counts, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("loader: %s line %d: %w", path, lineNo, err)
		}

		sawContent = true
		tr.Wavenumber = append(tr.Wavenumber, wn)
		tr.Wavelength = append(tr.Wavelength, wl)
		tr.Counts = append(tr.Counts, counts)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return tr, nil
}
