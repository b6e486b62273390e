package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stemsep/internal/progress"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect or edit the processed-file record",
	}
	progressCmd.AddCommand(newProgressForgetCommand(ctx))
	return progressCmd
}

func newProgressForgetCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "forget <file>...",
		Short: "Mark files as unprocessed so the next run separates them again",
		Long: `Remove file names from the processed record.

Stems already written for those files are left in place and overwritten when
the files are processed again. Refuses to run while a separation run holds the
output directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.withOutputDir(outputDir)
			if err != nil {
				return err
			}

			lock := progress.NewLock(cfg.LockPath())
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer lock.Release()

			store, err := progress.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := progress.Forget(cmd.Context(), store, args...)
			if err != nil {
				return fmt.Errorf("forget: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d entries from %s\n", removed, len(args), store.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides paths.output_dir)")
	return cmd
}
