package main

import (
	"github.com/spf13/cobra"

	"stemsep/internal/deps"
	"stemsep/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipProbe bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, binaries, and the accelerator before a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report := newCheckReport(out)

			report.section("Preflight")
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				level := levelOK
				if !r.Passed {
					level = levelError
				}
				report.add(r.Name, level, r.Detail)
			}

			report.section("Optional tools")
			for _, status := range preflight.CheckSystemDeps(cfg) {
				if !status.Optional {
					continue
				}
				report.add(status.Name, optionalLevel(status), optionalDetail(status))
			}

			report.section("Accelerator")
			if skipProbe {
				report.add("Device", levelInfo, cfg.Separation.Device+" (probe skipped)")
			} else {
				r := preflight.CheckAccelerator(cmd.Context(), cfg, deps.ExecProber)
				level := levelOK
				if !r.Passed {
					// A failed probe only drops the device flag.
					level = levelWarn
				}
				report.add("Device", level, r.Detail)
			}

			report.render(out)
			return preflight.Err(results)
		},
	}

	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "Do not run the accelerator probe")
	return cmd
}

func optionalLevel(status deps.Status) checkLevel {
	if status.Available {
		return levelOK
	}
	return levelWarn
}

func optionalDetail(status deps.Status) string {
	detail := status.Command
	if status.Detail != "" {
		detail = status.Detail
	}
	if status.Description != "" {
		detail += " (" + status.Description + ")"
	}
	return detail
}
