package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/container"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/bootstrap"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/db"
)

// containerFactory builds the service container and returns its cleanup
type containerFactory func(ctx context.Context) (*container.Container, func(), error)

// openContainer wires the same stack as the patch-system service, minus telemetry
func openContainer(ctx context.Context) (*container.Container, func(), error) {
	components, err := bootstrap.Setup(ctx, "patchctl",
		bootstrap.WithoutTelemetry(),
		bootstrap.WithDBInitHook(db.EnsureSchema),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap: %w", err)
	}

	c, err := container.NewContainer(ctx, components, afero.NewReadOnlyFs(afero.NewOsFs()))
	if err != nil {
		components.Shutdown(ctx)
		return nil, nil, fmt.Errorf("failed to initialize container: %w", err)
	}

	return c, func() { components.Shutdown(context.Background()) }, nil
}

// NewRootCommand creates the patchctl command tree
func NewRootCommand(open containerFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "patchctl",
		Short: "Inspect and run patch scripts",
		Long: `patchctl lists patch scripts with their last run and executes them
through the configured Groovy Console.

Configuration is read from the same environment as the patch-system service
(PATCH_ROOT, PATCH_SOURCES_FILE, PATCH_RESULT_STORE, GROOVY_CONSOLE_URL, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newListCommand(open),
		newRunCommand(open),
		newReadyCommand(open),
	)

	return root
}
