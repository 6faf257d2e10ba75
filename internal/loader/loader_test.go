package loader_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sfgproc/internal/loader"
	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newLoader(t *testing.T) *loader.Loader {
	t.Helper()
	l, err := loader.New(",", loader.EncodingUTF8, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestLoadDirPartitionsAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10.txt", []byte("wn,wl,counts\n3000,620,10\n3001,620,11\n"))
	writeFile(t, dir, "2.txt", []byte("3000,620,20\n3001,620,21\n"))
	writeFile(t, dir, "2bg.txt", []byte("3000,620,1\n3001,620,2\n"))
	writeFile(t, dir, "notes.txt", []byte("free text, not, numbers\nstill not numbers, x, y\n"))
	writeFile(t, dir, "plot.png", []byte{0x89, 0x50})

	samples, backgrounds, err := newLoader(t).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	if samples.Len() != 2 {
		t.Fatalf("samples = %d, want 2", samples.Len())
	}
	if got := samples.IDs(); got[0] != "2" || got[1] != "10" {
		t.Errorf("sample order = %v, want [2 10]", got)
	}
	if backgrounds.Len() != 1 {
		t.Fatalf("backgrounds = %d, want 1", backgrounds.Len())
	}
	bg := backgrounds.Traces()[0]
	if bg.ID != "2bg" || !bg.IsBackground() {
		t.Errorf("background trace = %q (background=%v)", bg.ID, bg.IsBackground())
	}

	s10, ok := samples.ByID("10")
	if !ok {
		t.Fatal("sample 10 missing")
	}
	if s10.Len() != 2 || s10.Wavenumber[0] != 3000 || s10.Wavelength[1] != 620 || s10.Counts[1] != 11 {
		t.Errorf("sample 10 parsed wrong: %+v", s10)
	}
}

func TestLoadDirRequiresSamples(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1bg.txt", []byte("3000,620,1\n"))
	if _, _, err := newLoader(t).LoadDir(dir); !errors.Is(err, loader.ErrNoSamples) {
		t.Fatalf("LoadDir error = %v, want ErrNoSamples", err)
	}
}

func TestLoadDirColumnCount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.txt", []byte("3000,620\n"))
	if _, _, err := newLoader(t).LoadDir(dir); !errors.Is(err, loader.ErrColumns) {
		t.Fatalf("LoadDir error = %v, want ErrColumns", err)
	}
}

func TestLoadDirBadValuePastHeader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.txt", []byte("3000,620,10\n3001,broken,11\n"))
	_, _, err := newLoader(t).LoadDir(dir)
	if err == nil {
		t.Fatal("LoadDir succeeded on malformed row")
	}
}

func TestLoadDirEmptyTrace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.txt", []byte("wn,wl,counts\n\n"))
	if _, _, err := newLoader(t).LoadDir(dir); !errors.Is(err, trace.ErrEmpty) {
		t.Fatalf("LoadDir error = %v, want trace.ErrEmpty", err)
	}
}

func TestLoadDirTabDelimiter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.txt", []byte("3000\t620\t10\n"))

	l, err := loader.New("\t", "", logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	samples, _, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if samples.Traces()[0].Counts[0] != 10 {
		t.Errorf("tab-delimited row parsed wrong")
	}
}

func TestLoadDirWindows1252Header(t *testing.T) {
	dir := t.TempDir()
	// 0xB5 is µ in Windows-1252 and invalid on its own in UTF-8.
	content := append([]byte{0xB5}, []byte("m,wl,counts\n3000,620,10\n")...)
	writeFile(t, dir, "1.txt", content)

	l, err := loader.New(",", loader.EncodingWindows1252, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	samples, _, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if samples.Traces()[0].Counts[0] != 10 {
		t.Errorf("data row after encoded header parsed wrong")
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := loader.New(",,", "", logging.NewNop()); !errors.Is(err, loader.ErrDelimiter) {
		t.Errorf("delimiter error = %v, want ErrDelimiter", err)
	}
	if _, err := loader.New(",", "utf-16", logging.NewNop()); !errors.Is(err, loader.ErrEncoding) {
		t.Errorf("encoding error = %v, want ErrEncoding", err)
	}
}
