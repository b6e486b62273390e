package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"stemsep/internal/config"
)

// Requirement defines an external dependency stemsep relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries a run needs for cfg.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	reqs := []Requirement{{
		Name:        "Separator",
		Command:     cfg.Separation.Binary,
		Description: "Runs the source-separation models",
	}}
	if cfg.Separation.Device == config.DeviceAuto && len(cfg.Separation.ProbeCommand) > 0 {
		probe := strings.TrimSpace(cfg.Separation.ProbeCommand[0])
		if probe != cfg.Separation.Binary {
			reqs = append(reqs, Requirement{
				Name:        "Accelerator probe",
				Command:     probe,
				Description: "Detects the accelerator passed to the separator",
				Optional:    true,
			})
		}
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
