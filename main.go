package main

import (
	"github.com/ColonelBlimp/waveprobe/cmd"
	"github.com/ColonelBlimp/waveprobe/internal/recovery"
)

func main() {
	defer recovery.HandlePanic(nil)
	cmd.Execute()
}
