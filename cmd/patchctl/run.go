package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// errRunFailed is returned when at least one executed patch ended in ERROR
var errRunFailed = errors.New("one or more patches failed")

// runFlags holds the flags for the run command
type runFlags struct {
	all     bool // Run every executable patch
	jsonOut bool // Output in JSON format
}

func newRunCommand(open containerFactory) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Run a patch, or every new and modified patch",
		Long: `Run executes a patch synchronously and records its result.

Examples:
  # Run one patch
  patchctl run /etc/patches/core/001-init.groovy

  # Run everything that is new or modified
  patchctl run --all`,
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.all && len(args) > 0 {
				return fmt.Errorf("--all does not take a path")
			}
			if !flags.all && len(args) != 1 {
				return fmt.Errorf("expected exactly one patch path, or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			var results []*models.PatchResult
			if flags.all {
				results, err = c.DataSource.RunExecutable(cmd.Context())
			} else {
				var result *models.PatchResult
				result, err = c.DataSource.Run(cmd.Context(), args[0])
				if result != nil {
					results = append(results, result)
				}
			}

			out := cmd.OutOrStdout()
			if flags.jsonOut {
				if werr := writeJSON(out, results); werr != nil {
					return werr
				}
			} else {
				writeResults(out, results)
			}
			if err != nil {
				return fmt.Errorf("failed to run patches: %w", err)
			}

			for _, r := range results {
				if r.Status == models.StatusError {
					return errRunFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.all, "all", false, "Run every new or modified patch")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Output in JSON format")

	return cmd
}

func writeResults(out io.Writer, results []*models.PatchResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "nothing to run")
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s %s\n", r.Status, r.PatchPath)
		if r.RunningTime != nil {
			fmt.Fprintf(out, "  running time: %s\n", *r.RunningTime)
		}
		if r.Output != nil {
			fmt.Fprintf(out, "  output: %s\n", *r.Output)
		}
	}
}
