package cmd

import (
	"bytes"
	"testing"
)

func TestPrintDevices(t *testing.T) {
	tests := []struct {
		name    string
		entries []deviceEntry
		want    string
	}{
		{"none", nil, "no capture devices found\n"},
		{
			"default marked",
			[]deviceEntry{{Name: "Built-in Microphone", Default: true}, {Name: "USB Audio"}},
			"[0] Built-in Microphone (default)\n[1] USB Audio\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := printDevices(&buf, tt.entries); err != nil {
				t.Fatalf("printDevices() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("printDevices() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestDeviceEntries_Empty(t *testing.T) {
	if got := deviceEntries(nil); len(got) != 0 {
		t.Errorf("deviceEntries(nil) = %v, want empty", got)
	}
}
