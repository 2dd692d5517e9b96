package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ColonelBlimp/waveprobe/internal/dsp"
	"github.com/ColonelBlimp/waveprobe/internal/input"
	"github.com/ColonelBlimp/waveprobe/internal/session"
)

func TestSimulate_SquareText(t *testing.T) {
	setupHome(t, "tick_ms: 1\n")

	output, err := execute(t, strings.NewReader(""), "simulate", "--shape", "square")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "run 1: square amplitude 3.00 V frequency 1000.0 Hz samples 250/250 counts C244"
	if !strings.Contains(output, want) {
		t.Errorf("output = %q, want it to contain %q", output, want)
	}
	if !strings.Contains(output, "sample buffer full") {
		t.Errorf("output should list the buffer-full condition, got %q", output)
	}
}

func TestSimulate_JSONRunsAreRepeatable(t *testing.T) {
	setupHome(t, "tick_ms: 1\n")

	output, err := execute(t, strings.NewReader(""), "simulate", "--shape", "square", "--runs", "2", "--json")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d report lines, want 2:\n%s", len(lines), output)
	}

	type reportLine struct {
		Shape       string   `json:"shape"`
		FrequencyHz *float64 `json:"frequency_hz"`
		Square      int      `json:"count_square"`
		Length      int      `json:"length"`
	}
	var first reportLine
	for i, line := range lines {
		var got reportLine
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if got.Shape != "square" || got.FrequencyHz == nil || *got.FrequencyHz != 1000 {
			t.Errorf("line %d = %+v, want square at 1000 Hz", i, got)
		}
		if got.Square != 244 || got.Length != 250 {
			t.Errorf("line %d counts = %+v", i, got)
		}
		if i == 0 {
			first = got
		} else if got.Square != first.Square || got.Length != first.Length {
			t.Errorf("runs differ: %+v vs %+v", first, got)
		}
	}
}

func TestSimulate_Screens(t *testing.T) {
	setupHome(t, "tick_ms: 1\n")

	output, err := execute(t, strings.NewReader(""), "simulate", "--shape", "sine", "--screens")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"+----------------+", "|Capturando      |", "Senal Senoidal", "run 1: sine"} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got:\n%s", want, output)
		}
	}
}

func TestSimulate_Trace(t *testing.T) {
	home := setupHome(t, "tick_ms: 1\n")
	tracePath := filepath.Join(home, "trace.log")
	if err := os.WriteFile(filepath.Join(home, "config.yaml"),
		[]byte("tick_ms: 1\ntrace_file: "+tracePath+"\n"), 0644); err != nil {
		t.Fatalf("failed to write local config: %v", err)
	}

	if _, err := execute(t, strings.NewReader(""), "simulate", "--trace", "--stop-after", "50"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	// one line per acquisition reading, the stopping poll included
	if n := bytes.Count(data, []byte("\n")); n < 50 {
		t.Errorf("trace has %d lines, want at least 50", n)
	}
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"zero runs", []string{"simulate", "--runs", "0"}, "runs must be at least 1"},
		{"unknown shape", []string{"simulate", "--shape", "sawtooth"}, "synthetic_shape"},
		{"above nyquist", []string{"simulate", "--frequency", "1000", "--step", "600"}, "Nyquist"},
		{"extra args", []string{"simulate", "now"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHome(t, "tick_ms: 1\n")

			_, err := execute(t, strings.NewReader(""), tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute(%v) error = %v, want %q", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestSimulationScript(t *testing.T) {
	script := simulationScript(2, 3)

	var got []input.Command
	for polls := 0; polls < 100 && !script.Done(); polls++ {
		if cmd, ok := script.Poll(); ok {
			got = append(got, cmd)
		}
	}

	want := []input.Command{
		input.StartCapture, input.StopCapture, input.Rearm,
		input.StartCapture, input.StopCapture, input.Rearm,
		input.Quit,
	}
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWriteReport(t *testing.T) {
	r := session.Report{
		Calibration: dsp.CalibrationResult{Amplitude: 0},
		Sequence:    dsp.SampleSequence{512, 512},
		Capacity:    10,
		Conditions:  []error{session.ErrCalibrationDegenerate, session.ErrFrequencyUnavailable},
		Acquisition: time.Millisecond,
	}

	var buf bytes.Buffer
	if err := writeReport(&buf, 3, r); err != nil {
		t.Fatalf("writeReport() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "run 3: unknown amplitude 0.00 V frequency --- samples 2/10 counts C0 S0 T0\n") {
		t.Errorf("summary line = %q", out)
	}
	if !strings.Contains(out, "  "+session.ErrCalibrationDegenerate.Error()+"\n") {
		t.Errorf("conditions missing from %q", out)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteReport_WriterError(t *testing.T) {
	if err := writeReport(failingWriter{}, 1, session.Report{}); err == nil {
		t.Error("writeReport() error = nil, want write error")
	}
	if err := writeReportJSON(failingWriter{}, session.Report{}); err == nil {
		t.Error("writeReportJSON() error = nil, want write error")
	}
}
