package globtail

import (
	"fmt"
	"io"
)

// Printer renders lines to a writer, prefixed by default with the path of
// the file they came from.
type Printer struct {
	Out        io.Writer
	NoFilename bool
}

func (p *Printer) Print(l Line) {
	if p.NoFilename {
		fmt.Fprintln(p.Out, l.Text)
		return
	}
	fmt.Fprintf(p.Out, "%s: %s\n", l.Path, l.Text)
}
