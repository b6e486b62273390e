package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stemsep/internal/logging"
	"stemsep/internal/progress"
	"stemsep/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage batch scratch directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List batch scratch directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dirs, err := staging.ListDirectories(cfg.Paths.TempDir)
			if err != nil {
				return fmt.Errorf("list scratch directories: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No scratch directories found")
				return nil
			}

			fmt.Fprintf(out, "Scratch directory: %s\n\n", cfg.Paths.TempDir)
			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				totalSize += dir.Size
				rows = append(rows, []string{dir.Name, formatDuration(age), humanize.IBytes(uint64(dir.Size))})
			}
			fmt.Fprint(out, renderTable(out, []string{"Directory", "Age", "Size"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), humanize.IBytes(uint64(totalSize)))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale batch scratch directories",
		Long: `Remove batch scratch directories left behind by interrupted runs.

By default only directories older than staging.stale_after_hours are removed.
Use --all to remove every batch directory. Refuses to run while a separation
run holds the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock := progress.NewLock(cfg.LockPath())
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer lock.Release()

			maxAge := time.Duration(cfg.Staging.StaleAfterHours) * time.Hour
			if cleanAll {
				maxAge = 0
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.TempDir, maxAge, logging.NewNop())

			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No scratch directories to clean")
				return nil
			}
			if len(result.Removed) > 0 {
				fmt.Fprintf(out, "Removed %d directories\n", len(result.Removed))
			}
			for _, e := range result.Errors {
				fmt.Fprintf(out, "Failed to remove %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&cleanAll, "all", "a", false, "Remove all batch directories regardless of age")
	return cmd
}
