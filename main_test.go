package main

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// runMain re-executes the test binary so main() runs in a child process
func runMain(t *testing.T, test string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run="+test)
	cmd.Env = append(os.Environ(),
		"WAVEPROBE_MAIN_ARGS="+strings.Join(args, " "),
		"HOME="+t.TempDir(),
		"XDG_CONFIG_HOME=",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func childMain() bool {
	args, ok := os.LookupEnv("WAVEPROBE_MAIN_ARGS")
	if !ok {
		return false
	}
	os.Args = append([]string{"waveprobe"}, strings.Fields(args)...)
	main()
	return true
}

func TestMain_Help(t *testing.T) {
	if childMain() {
		return
	}

	out, err := runMain(t, "TestMain_Help", "--help")
	if err != nil {
		t.Fatalf("waveprobe --help error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "waveprobe") || !strings.Contains(out, "simulate") {
		t.Errorf("help output = %s", out)
	}
}

func TestMain_UnknownFlagExits(t *testing.T) {
	if childMain() {
		return
	}

	out, err := runMain(t, "TestMain_UnknownFlagExits", "--bogus")

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("exit error = %v, want exit code 1", err)
	}
	if !strings.Contains(out, "unknown flag") {
		t.Errorf("output = %s, want unknown flag error", out)
	}
}
