// internal/display/display.go
// Package display renders session status onto a 16x2 character display and
// the sinks that mirror it.
package display

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Width is the number of characters per display line
const Width = 16

// Lines is one screen of the two-line display.
type Lines [2]string

// NewLines truncates both lines to Width.
func NewLines(top, bottom string) Lines {
	return Lines{fit(top), fit(bottom)}
}

func (l Lines) String() string {
	return l[0] + " / " + l[1]
}

func fit(s string) string {
	r := []rune(s)
	if len(r) > Width {
		return string(r[:Width])
	}
	return s
}

// Sink accepts one screen at a time.
type Sink interface {
	Show(lines Lines) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(lines Lines) error

// Show implements Sink
func (f SinkFunc) Show(lines Lines) error {
	return f(lines)
}

// Multi fans a screen out to several sinks, joining their errors.
type Multi []Sink

// Show implements Sink.
func (m Multi) Show(lines Lines) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Show(lines); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Standard screens

// Prompt asks for button 1 to start a capture
func Prompt() Lines {
	return NewLines("Presione boton 1", "para capturar")
}

// Capturing is shown while calibrating and acquiring
func Capturing() Lines {
	return NewLines("Capturando", "datos...")
}

// SamplerFailure is shown when a session is aborted by a read error
func SamplerFailure() Lines {
	return NewLines("Error de lectura", "Sesion abortada")
}

// Measurements lays out amplitude and frequency with the value at column 7
// and the unit at column 14. A missing frequency renders as "---".
func Measurements(amplitude float64, frequency float64, frequencyOK bool) Lines {
	freq := "---"
	if frequencyOK {
		freq = fmt.Sprintf("%.1f", frequency)
	}
	return NewLines(
		row("Ampli:", fmt.Sprintf("%.1f", amplitude), "V"),
		row("Frecu:", freq, "Hz"),
	)
}

// Classification names the detected shape and shows the three counters.
// A name too long to follow "Senal " is shown on its own.
func Classification(name string, square, sine, triangular int) Lines {
	top := "Senal " + name
	if utf8.RuneCountInString(top) > Width {
		top = name
	}
	return NewLines(top, fmt.Sprintf("C%d S%d T%d", square, sine, triangular))
}

func row(label, value, unit string) string {
	return fmt.Sprintf("%-7s%-7s%s", label, value, unit)
}
