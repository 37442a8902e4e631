package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittynode/kittynode/internal/model"
)

// NewDockerStatusCommand creates the "docker-status" subcommand, which
// reports whether the Docker daemon answers.
func NewDockerStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "docker-status",
		Short: "Check whether Docker is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running := dockerRunning(cmd.Context(), current.cfg.DockerHost)

			if IsJSONOutput() {
				if err := printJSON(cmd.OutOrStdout(), struct {
					Running bool `json:"running"`
				}{running}); err != nil {
					return err
				}
			} else if running {
				fmt.Fprintln(cmd.OutOrStdout(), "Docker is running.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Docker is not running.")
			}

			if !running {
				return model.NewCLIError(model.ExitDockerNotRunning, "Docker daemon is not accessible")
			}
			return nil
		},
	}
}
