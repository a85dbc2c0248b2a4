package console

import (
	"io"
	"sync"
)

// Switch shares one input stream between a line editor and a console. Input
// goes to the line editor's reader unless a console is attached.
type Switch struct {
	mu      sync.Mutex
	shell   *io.PipeWriter
	console *io.PipeWriter
}

// NewSwitch starts copying src and returns the switch together with the
// reader the line editor should use.
func NewSwitch(src io.Reader) (*Switch, io.ReadCloser) {
	pr, pw := io.Pipe()
	s := &Switch{shell: pw}
	go s.run(src)
	return s, pr
}

func (s *Switch) run(src io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			s.mu.Lock()
			w, attached := s.shell, false
			if s.console != nil {
				w, attached = s.console, true
			}
			s.mu.Unlock()

			// A console that stopped reading loses the rest of its input
			// when it is detached.
			if _, werr := w.Write(buf[:n]); werr != nil && !attached {
				return
			}
		}
		if err != nil {
			s.mu.Lock()
			s.shell.CloseWithError(err)
			if s.console != nil {
				s.console.CloseWithError(err)
			}
			s.mu.Unlock()
			return
		}
	}
}

// Attach routes input to the returned reader until Detach is called.
func (s *Switch) Attach() io.Reader {
	pr, pw := io.Pipe()
	s.mu.Lock()
	if s.console != nil {
		s.console.Close()
	}
	s.console = pw
	s.mu.Unlock()
	return pr
}

// Detach returns input to the line editor.
func (s *Switch) Detach() {
	s.mu.Lock()
	if s.console != nil {
		s.console.Close()
		s.console = nil
	}
	s.mu.Unlock()
}
