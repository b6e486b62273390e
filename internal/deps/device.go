package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"stemsep/internal/config"
)

const probeTimeout = 2 * time.Minute

// Prober runs command and returns its standard output.
type Prober func(ctx context.Context, command []string) (string, error)

// ExecProber is the production Prober.
func ExecProber(ctx context.Context, command []string) (string, error) {
	if len(command) == 0 {
		return "", errors.New("probe command not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, command[0], command[1:]...).Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("run %s: %w", command[0], err)
	}
	return string(out), nil
}

// ResolveDevice turns the configured device setting into the concrete value
// passed to the separator. It runs once before any batch. "none" resolves to
// the empty string, meaning no device flag. "auto" runs the probe command and
// takes its last non-empty output line; on probe failure the empty string is
// returned with the error so callers can warn and continue without a flag.
func ResolveDevice(ctx context.Context, sep config.Separation, probe Prober) (string, error) {
	switch sep.Device {
	case config.DeviceNone, "":
		return "", nil
	case config.DeviceCPU, config.DeviceCUDA, config.DeviceMPS:
		return sep.Device, nil
	case config.DeviceAuto:
	default:
		return "", fmt.Errorf("unsupported device %q", sep.Device)
	}

	if probe == nil {
		probe = ExecProber
	}
	out, err := probe(ctx, sep.ProbeCommand)
	if err != nil {
		return "", fmt.Errorf("accelerator probe: %w", err)
	}
	device := lastLine(out)
	switch device {
	case config.DeviceCPU, config.DeviceCUDA, config.DeviceMPS:
		return device, nil
	default:
		return "", fmt.Errorf("accelerator probe: unrecognized output %q", device)
	}
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.ToLower(strings.TrimSpace(lines[i])); line != "" {
			return line
		}
	}
	return ""
}
