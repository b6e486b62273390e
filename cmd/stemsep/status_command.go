package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stemsep/internal/progress"
	"stemsep/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [output_dir]",
		Short: "Show processed files and leftover scratch directories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var outputDir string
			if len(args) > 0 {
				outputDir = args[0]
			}
			cfg, err := ctx.withOutputDir(outputDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Output directory: %s\n", cfg.Paths.OutputDir)

			var names []string
			if _, statErr := os.Stat(cfg.ProgressPath()); statErr == nil {
				store, err := progress.Open(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				set, err := store.Load(cmd.Context())
				if err != nil {
					return err
				}
				names = set.Names()
			} else if !os.IsNotExist(statErr) {
				return fmt.Errorf("stat progress: %w", statErr)
			}

			if len(names) == 0 {
				fmt.Fprintln(out, "No files processed yet")
			} else {
				fmt.Fprintf(out, "Processed files: %d\n\n", len(names))
				rows := make([][]string, 0, len(names))
				for i, name := range names {
					rows = append(rows, []string{strconv.Itoa(i + 1), name})
				}
				fmt.Fprint(out, renderTable(out, []string{"#", "File"}, rows, []columnAlignment{alignRight, alignLeft}))
			}

			dirs, err := staging.ListDirectories(cfg.Paths.TempDir)
			if err != nil {
				return fmt.Errorf("list scratch directories: %w", err)
			}
			if len(dirs) == 0 {
				return nil
			}
			fmt.Fprintf(out, "\nLeftover scratch directories in %s:\n", cfg.Paths.TempDir)
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				rows = append(rows, []string{dir.Name, formatDuration(age), humanize.IBytes(uint64(dir.Size))})
			}
			fmt.Fprint(out, renderTable(out, []string{"Directory", "Age", "Size"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
			return nil
		},
	}
}
