package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var errNotReady = errors.New("no patch system can execute scripts")

func newReadyCommand(open containerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check whether a script runner is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			readiness := c.DataSource.Readiness()
			names := make([]string, 0, len(readiness))
			for name := range readiness {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				state := "not ready"
				if readiness[name] {
					state = "ready"
				}
				fmt.Fprintf(out, "%s: %s\n", name, state)
			}

			if !c.DataSource.IsReady() {
				return errNotReady
			}
			return nil
		},
	}
}
