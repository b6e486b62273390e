package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// checkLevel grades one line of `stemsep check` output.
type checkLevel int

const (
	levelInfo checkLevel = iota
	levelOK
	levelWarn
	levelError
)

var checkLevelStyles = map[checkLevel]struct {
	label  string
	colors text.Colors
}{
	levelInfo:  {"INFO", text.Colors{text.FgBlue}},
	levelOK:    {"OK", text.Colors{text.FgGreen}},
	levelWarn:  {"WARN", text.Colors{text.FgYellow}},
	levelError: {"ERROR", text.Colors{text.FgRed}},
}

const checkLabelWidth = 20

// checkReport collects the sectioned results printed by `stemsep check`,
// counting warnings and errors for the closing line.
type checkReport struct {
	colorize bool
	lines    []string
	warnings int
	errors   int
}

func newCheckReport(out io.Writer) *checkReport {
	return &checkReport{colorize: isTerminal(out)}
}

func (r *checkReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	header := "== " + strings.TrimSpace(title) + " =="
	r.lines = append(r.lines,
		r.paint(text.Colors{text.FgBlue, text.Bold}, header),
		r.paint(text.Colors{text.FgBlue}, strings.Repeat("-", len(header))),
	)
}

func (r *checkReport) add(label string, level checkLevel, detail string) {
	switch level {
	case levelWarn:
		r.warnings++
	case levelError:
		r.errors++
	}
	style := checkLevelStyles[level]
	status := "[" + style.label + "]"
	if detail != "" {
		status += " " + detail
	}
	r.lines = append(r.lines, r.paint(style.colors, fmt.Sprintf("  %-*s %s", checkLabelWidth, label+":", status)))
}

func (r *checkReport) summary() string {
	if r.errors == 0 && r.warnings == 0 {
		return "All checks passed"
	}
	return fmt.Sprintf("Errors: %d, warnings: %d", r.errors, r.warnings)
}

func (r *checkReport) render(out io.Writer) {
	fmt.Fprintf(out, "%s\n\n%s\n", strings.Join(r.lines, "\n"), r.summary())
}

func (r *checkReport) paint(colors text.Colors, s string) string {
	if !r.colorize {
		return s
	}
	return colors.Sprint(s)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
