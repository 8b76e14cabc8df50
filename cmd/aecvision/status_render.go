package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"aecvision/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

var statusStyles = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const statusLabelWidth = 20

// statusPrinter writes the sections of the status report, colouring lines
// only when the output is a terminal.
type statusPrinter struct {
	w        io.Writer
	colorize bool
}

func (p statusPrinter) paint(kind statusKind, s string) string {
	if !p.colorize {
		return s
	}
	return statusStyles[kind].color + s + ansiReset
}

func (p statusPrinter) section(title string) {
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	fmt.Fprintln(p.w, p.paint(statusInfo, heading))
	fmt.Fprintln(p.w, p.paint(statusInfo, strings.Repeat("-", len(heading))))
}

func (p statusPrinter) line(label string, kind statusKind, message string) {
	text := "[" + statusStyles[kind].label + "]"
	if message != "" {
		text += " " + message
	}
	fmt.Fprintln(p.w, p.paint(kind, fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", text)))
}

// result prints a preflight result. A failed optional check is a warning.
func (p statusPrinter) result(r preflight.Result, optional bool) {
	kind := statusOK
	switch {
	case r.Passed:
	case optional:
		kind = statusWarn
	default:
		kind = statusError
	}
	p.line(r.Name, kind, r.Detail)
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
