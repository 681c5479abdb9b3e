package cliutil

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	successStyle = []color.Attribute{color.FgGreen}
	failureStyle = []color.Attribute{color.FgRed}
	summaryStyle = []color.Attribute{color.Bold}
	errorStyle   = []color.Attribute{color.FgRed, color.Bold}
)

// WriteStatus prints a status string line by line. When colorize is set, ✓
// lines are green, ✗ lines red and the summary bold.
func WriteStatus(w io.Writer, status string, colorize bool) {
	for i, line := range strings.Split(status, "\n") {
		fmt.Fprintln(w, paint(line, styleFor(i, line), colorize))
	}
}

func styleFor(index int, line string) []color.Attribute {
	switch {
	case strings.HasPrefix(line, "✓ "):
		return successStyle
	case strings.HasPrefix(line, "✗ "):
		return failureStyle
	case strings.HasPrefix(line, "Error: "):
		return errorStyle
	case index == 0:
		return summaryStyle
	default:
		return nil
	}
}

func paint(line string, style []color.Attribute, colorize bool) string {
	if len(style) == 0 || !colorize {
		return line
	}
	c := color.New(style...)
	c.EnableColor()
	return c.Sprint(line)
}
