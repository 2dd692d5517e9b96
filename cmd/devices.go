// cmd/devices.go
package cmd

import (
	"fmt"
	"io"

	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/waveprobe/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	Long:  `devices prints the capture devices with the index to pass as --device.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		capture := audio.New(audio.DefaultConfig())
		if err := capture.Init(); err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		defer func() { _ = capture.Close() }()

		infos, err := capture.ListDevices()
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		return printDevices(cmd.OutOrStdout(), deviceEntries(infos))
	},
}

type deviceEntry struct {
	Name    string
	Default bool
}

func deviceEntries(infos []malgo.DeviceInfo) []deviceEntry {
	entries := make([]deviceEntry, len(infos))
	for i := range infos {
		entries[i] = deviceEntry{
			Name:    infos[i].Name(),
			Default: infos[i].IsDefault != 0,
		}
	}
	return entries
}

func printDevices(w io.Writer, entries []deviceEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no capture devices found")
		return err
	}
	for i, e := range entries {
		marker := ""
		if e.Default {
			marker = " (default)"
		}
		if _, err := fmt.Fprintf(w, "[%d] %s%s\n", i, e.Name, marker); err != nil {
			return err
		}
	}
	return nil
}
