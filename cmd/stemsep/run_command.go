package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"stemsep/internal/config"
	"stemsep/internal/logging"
	"stemsep/internal/metrics"
	"stemsep/internal/notifications"
	"stemsep/internal/preflight"
	"stemsep/internal/procstream"
	"stemsep/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "run [input_dir] [output_dir]",
		Short: "Separate every unprocessed recording into stems",
		Long: `Separate every unprocessed recording in input_dir into stems under output_dir.

Files are processed in batches. Each finished file is recorded in the output
directory's progress file immediately, so an interrupted run (Ctrl-C) picks up
where it stopped. Files that fail are left pending and retried next time.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunOverrides(cfg, args, batchSize, cmd.Flags().Changed("batch-size")); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := preflight.Err(preflight.RunAll(runCtx, cfg)); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			exec := procstream.New(
				procstream.WithStdout(cmd.OutOrStdout()),
				procstream.WithStderr(cmd.ErrOrStderr()),
				procstream.WithLogger(logger),
			)
			opts := []workflow.ManagerOption{
				workflow.WithLogger(logger),
				workflow.WithExecutor(exec),
			}
			if cfg.Metrics.Textfile != "" {
				opts = append(opts, workflow.WithMetrics(metrics.New()))
			}

			mgr, err := workflow.NewManager(cfg, opts...)
			if err != nil {
				return err
			}
			notifier := notifications.NewService(cfg)
			// The push goes out even after Ctrl-C; the HTTP client has its own timeout.
			notifyCtx := context.WithoutCancel(runCtx)

			summary, runErr := mgr.Run(runCtx)
			if runErr != nil && !errors.Is(runErr, runCtx.Err()) {
				if err := notifier.NotifyRunFailed(notifyCtx, runErr); err != nil {
					logger.Warn("run failure notification failed", logging.Error(err))
				}
				return runErr
			}
			printSummary(cmd.OutOrStdout(), summary)
			if err := notifier.NotifyRunCompleted(notifyCtx, reportFor(summary)); err != nil {
				logger.Warn("run completion notification failed", logging.Error(err))
			}
			return runErr
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Files per separator invocation (overrides separation.batch_size)")
	return cmd
}

// applyRunOverrides layers positional directories and flags over the loaded
// config and re-validates it.
func applyRunOverrides(cfg *config.Config, args []string, batchSize int, batchSet bool) error {
	if len(args) > 0 {
		input, err := config.ExpandPath(args[0])
		if err != nil {
			return fmt.Errorf("resolve input directory: %w", err)
		}
		cfg.Paths.InputDir = input
	}
	if len(args) > 1 {
		output, err := config.ExpandPath(args[1])
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.OutputDir = output
	}
	if batchSet {
		cfg.Separation.BatchSize = batchSize
	}
	return cfg.Finalize()
}

func reportFor(summary workflow.Summary) notifications.RunReport {
	return notifications.RunReport{
		Organized: summary.FilesOrganized,
		Failed:    summary.FilesFailed,
		Partial:   len(summary.Partial),
		Processed: summary.Processed,
		Duration:  summary.Duration,
		Cancelled: summary.Cancelled,
	}
}

func printSummary(out io.Writer, summary workflow.Summary) {
	status := "complete"
	if summary.Cancelled {
		status = "cancelled"
	}
	fmt.Fprintf(out, "\nRun %s %s\n", summary.RunID, status)
	rows := [][]string{
		{"Discovered", strconv.Itoa(summary.Discovered)},
		{"Batches", strconv.Itoa(summary.Batches)},
		{"Batches failed", strconv.Itoa(summary.BatchesFailed)},
		{"Files organized", strconv.Itoa(summary.FilesOrganized)},
		{"Files failed", strconv.Itoa(summary.FilesFailed)},
		{"Processed total", strconv.Itoa(summary.Processed)},
		{"Duration", formatDuration(summary.Duration)},
	}
	fmt.Fprint(out, renderTable(out, []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(summary.Failures) > 0 {
		rows := make([][]string, 0, len(summary.Failures))
		for _, f := range summary.Failures {
			rows = append(rows, []string{f.Name, strconv.Itoa(f.Batch), f.Reason})
		}
		fmt.Fprintln(out, "\nFailed files (retried on the next run):")
		fmt.Fprint(out, renderTable(out, []string{"File", "Batch", "Reason"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	}
	if len(summary.Partial) > 0 {
		rows := make([][]string, 0, len(summary.Partial))
		for _, p := range summary.Partial {
			rows = append(rows, []string{p.Name, joinOrDash(p.Missing)})
		}
		fmt.Fprintln(out, "\nProcessed with missing stems:")
		fmt.Fprint(out, renderTable(out, []string{"File", "Missing"}, rows, nil))
	}
}
