// internal/input/keyboard.go
package input

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/term"
)

// ErrNotTerminal indicates raw mode was requested on something that is not a terminal
var ErrNotTerminal = errors.New("input is not a terminal")

// keyQueueSize bounds pending key edges; extra presses are dropped
const keyQueueSize = 16

// Keyboard turns single key presses into commands, acting as the two buttons.
type Keyboard struct {
	r        io.Reader
	commands chan Command
	done     chan struct{}

	mu       sync.Mutex
	fd       int
	oldState *term.State
}

// NewKeyboard starts reading r in the background.
func NewKeyboard(r io.Reader) *Keyboard {
	k := &Keyboard{
		r:        r,
		commands: make(chan Command, keyQueueSize),
		done:     make(chan struct{}),
	}
	go k.readLoop()
	return k
}

// EnableRaw puts the terminal behind fd into raw mode so keys arrive
// without Enter and without echo. Close restores it.
func (k *Keyboard) EnableRaw(fd int) error {
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}

	k.mu.Lock()
	k.fd = fd
	k.oldState = state
	k.mu.Unlock()
	return nil
}

func (k *Keyboard) readLoop() {
	defer close(k.done)
	buf := make([]byte, 1)
	for {
		n, err := k.r.Read(buf)
		if n > 0 {
			if cmd, ok := KeyCommand(buf[0]); ok {
				select {
				case k.commands <- cmd:
				default:
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// Poll implements Source.
func (k *Keyboard) Poll() (Command, bool) {
	select {
	case cmd := <-k.commands:
		return cmd, true
	default:
		return 0, false
	}
}

// Done is closed when the reader reaches EOF or fails
func (k *Keyboard) Done() <-chan struct{} {
	return k.done
}

// Close restores the terminal if raw mode was enabled.
func (k *Keyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.oldState == nil {
		return nil
	}
	err := term.Restore(k.fd, k.oldState)
	k.oldState = nil
	if err != nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	return nil
}
