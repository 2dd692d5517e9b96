// internal/display/terminal.go
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Terminal draws each screen as a framed 16x2 box on a writer.
type Terminal struct {
	mu  sync.Mutex
	w   io.Writer
	eol string
}

// NewTerminal writes screens to w. Set raw when the terminal is in raw mode
// so lines end with CRLF.
func NewTerminal(w io.Writer, raw bool) *Terminal {
	eol := "\n"
	if raw {
		eol = "\r\n"
	}
	return &Terminal{w: w, eol: eol}
}

// Show implements Sink.
func (t *Terminal) Show(lines Lines) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	border := "+" + strings.Repeat("-", Width) + "+"
	_, err := fmt.Fprintf(t.w, "%s%s|%-*s|%s|%-*s|%s%s%s",
		border, t.eol,
		Width, lines[0], t.eol,
		Width, lines[1], t.eol,
		border, t.eol)
	if err != nil {
		return fmt.Errorf("write display: %w", err)
	}
	return nil
}
