package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// listFlags holds the flags for the list command
type listFlags struct {
	executable bool   // Only new or modified patches
	filter     string // CEL filter over the view
	limit      int    // Limit number of results
	offset     int    // Offset for pagination
	jsonOut    bool   // Output in JSON format
}

func newListCommand(open containerFactory) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patches and their last result",
		Long: `List every patch with its display status (NEW, RE-RUN, RUNNING, SUCCESS, ERROR).

Examples:
  # List all patches
  patchctl list

  # Only patches that still need to run
  patchctl list --executable

  # Filter with a CEL expression
  patchctl list --filter 'status == "ERROR" && projectName == "core"'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()

			if flags.executable {
				patches, err := c.DataSource.ListExecutable(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list executable patches: %w", err)
				}
				if flags.jsonOut {
					return writeJSON(out, patches)
				}
				return writePatches(out, patches)
			}

			page, err := c.DataSource.Page(cmd.Context(), flags.offset, flags.limit, flags.filter)
			if err != nil {
				return fmt.Errorf("failed to list patches: %w", err)
			}
			if flags.jsonOut {
				return writeJSON(out, page)
			}
			if err := writeViews(out, page.Items); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d of %d patches\n", len(page.Items), page.Total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.executable, "executable", false, "Only list new or modified patches")
	cmd.Flags().StringVar(&flags.filter, "filter", "", "CEL filter, e.g. status == \"NEW\"")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Maximum number of results to return (0 = all)")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "Number of results to skip")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Output in JSON format")

	return cmd
}

func writeViews(out io.Writer, views []*models.PatchView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tPROJECT\tSCRIPT\tRUNNING TIME\tPATH")
	for _, v := range views {
		runningTime := ""
		if v.Result != nil && v.Result.RunningTime != nil {
			runningTime = *v.Result.RunningTime
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.Status, v.Patch.ProjectName, v.Patch.ScriptName, runningTime, v.Patch.Path)
	}
	return w.Flush()
}

func writePatches(out io.Writer, patches []*models.Patch) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tSCRIPT\tPATH")
	for _, p := range patches {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ProjectName, p.ScriptName, p.Path)
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
