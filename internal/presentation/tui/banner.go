package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the authtree banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"              _   _     _                 ", "#818cf8"},
		{"   __ _ _   _| |_| |__ | |_ _ __ ___  ___ ", "#a78bfa"},
		{"  / _` | | | | __| '_ \\| __| '__/ _ \\/ _ \\", "#c084fc"},
		{" | (_| | |_| | |_| | | | |_| | |  __/  __/", "#e879f9"},
		{"  \\__,_|\\__,_|\\__|_| |_|\\__|_|  \\___|\\___|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
