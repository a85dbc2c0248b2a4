package transfer

import (
	"fmt"
	"io"
	"time"

	"github.com/drunlade/go-xmodem/xmodem"
)

// Printer reports progress on w. On a terminal the line is rewritten in
// place with a byte count and rate; otherwise each milestone gets its own
// line.
type Printer struct {
	w       io.Writer
	tty     bool
	tracker *xmodem.ProgressTracker
}

// NewPrinter creates a progress printer for a transfer called name.
func NewPrinter(w io.Writer, name string, tty bool) *Printer {
	p := &Printer{w: w, tty: tty}
	p.tracker = xmodem.NewProgressTracker(name, 250*time.Millisecond, p.line)
	return p
}

func (p *Printer) line(s xmodem.Snapshot) {
	if p.tty {
		fmt.Fprintf(p.w, "\r%s: %d bytes (%.0f bytes/s)", s.Name, s.Bytes(), s.Rate())
	}
}

// Func returns the ProgressFunc to hand to a session.
func (p *Printer) Func() xmodem.ProgressFunc {
	if p.tty {
		return p.tracker.Observe(nil)
	}
	return p.tracker.Observe(xmodem.PrintProgress(p.w))
}

// Done finishes the progress line.
func (p *Printer) Done() {
	if !p.tty {
		return
	}
	s := p.tracker.Finish()
	fmt.Fprintf(p.w, "\r%s: %d bytes in %v (%.0f bytes/s)\n", s.Name, s.Bytes(), s.Elapsed.Round(time.Millisecond), s.Rate())
}
