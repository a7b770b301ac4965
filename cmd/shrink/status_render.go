package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"shrink/internal/preflight"
)

type checkLevel int

const (
	levelNote checkLevel = iota
	levelPass
	levelWarn
	levelFail
)

var levelMarkers = map[checkLevel]string{
	levelNote: "[info]",
	levelPass: "[ ok ]",
	levelWarn: "[warn]",
	levelFail: "[FAIL]",
}

var levelColors = map[checkLevel]text.Colors{
	levelNote: {text.FgCyan},
	levelPass: {text.FgGreen},
	levelWarn: {text.FgYellow},
	levelFail: {text.FgRed, text.Bold},
}

// levelFor grades a preflight result. Optional checks that fail only warn.
func levelFor(r preflight.Result) checkLevel {
	switch {
	case r.Passed:
		return levelPass
	case r.Optional:
		return levelWarn
	default:
		return levelFail
	}
}

type statusRow struct {
	level  checkLevel
	label  string
	detail string
}

// statusBlock is a titled group of rows whose details line up in one column.
type statusBlock struct {
	title string
	rows  []statusRow
}

func (b *statusBlock) add(level checkLevel, label, detail string) {
	b.rows = append(b.rows, statusRow{level: level, label: label, detail: detail})
}

func (b *statusBlock) addCheck(r preflight.Result) {
	b.add(levelFor(r), r.Name, r.Detail)
}

func (b statusBlock) lines(colorize bool) []string {
	title := strings.TrimSpace(b.title)
	out := make([]string, 0, len(b.rows)+2)
	out = append(out, title, strings.Repeat("=", len(title)))

	width := 0
	for _, row := range b.rows {
		width = max(width, len(row.label))
	}
	for _, row := range b.rows {
		marker := levelMarkers[row.level]
		if colorize {
			marker = levelColors[row.level].Sprint(marker)
		}
		line := fmt.Sprintf("  %s %-*s", marker, width, row.label)
		if row.detail != "" {
			line += "  " + row.detail
		}
		out = append(out, strings.TrimRight(line, " "))
	}
	return out
}

// writeBlocks prints blocks separated by blank lines.
func writeBlocks(w io.Writer, colorize bool, blocks ...statusBlock) {
	for i, block := range blocks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		for _, line := range block.lines(colorize) {
			fmt.Fprintln(w, line)
		}
	}
}

// shouldColorize also decides whether progress bars are drawn.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
