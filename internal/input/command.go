// internal/input/command.go
// Package input provides edge-triggered user command sources.
package input

import "fmt"

// Command is a discrete user action
type Command int

const (
	// StartCapture begins calibration and acquisition (button 1)
	StartCapture Command = iota + 1
	// StopCapture ends acquisition and triggers classification (button 2)
	StopCapture
	// Rearm returns a finished session to idle (button 1 after results)
	Rearm
	// Quit asks the control loop to exit
	Quit
)

func (c Command) String() string {
	switch c {
	case StartCapture:
		return "start"
	case StopCapture:
		return "stop"
	case Rearm:
		return "rearm"
	case Quit:
		return "quit"
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Source is polled once per control-loop tick. Poll never blocks and returns
// false when no new edge has occurred since the last call.
type Source interface {
	Poll() (Command, bool)
}

// KeyCommand maps a key press to a command.
func KeyCommand(b byte) (Command, bool) {
	switch b {
	case '1', 's', 'S':
		return StartCapture, true
	case '2', 'x', 'X':
		return StopCapture, true
	case 'r', 'R':
		return Rearm, true
	case 'q', 'Q', 0x03: // Ctrl-C arrives as a byte in raw mode
		return Quit, true
	}
	return 0, false
}
