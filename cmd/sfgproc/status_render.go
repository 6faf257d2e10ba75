package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"sfgproc/internal/catalog"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// shouldColorize reports whether w is an interactive terminal.
func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderRunStatus(status catalog.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	switch status {
	case catalog.StatusCompleted:
		return ansiGreen + label + ansiReset
	case catalog.StatusFailed:
		return ansiRed + label + ansiReset
	case catalog.StatusRunning:
		return ansiYellow + label + ansiReset
	default:
		return label
	}
}
