package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittynode/kittynode/internal/model"
)

// NewResetCommand creates the "reset" subcommand, the reverse of init: it
// removes the whole data directory. Containers are not touched, so delete
// installed packages first to remove them.
func NewResetCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove the kittynode data directory",
		Long: `Remove the kittynode data directory: the config file, stored package
configs and the shared JWT secret.

Installed containers, volumes and networks are kept. Run "kittynode delete"
for each package first to remove them as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reset without confirmation")

	return cmd
}

func runReset(cmd *cobra.Command, force bool) error {
	m, release, err := sessionManager(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer release()

	// JSON mode is non-interactive, so it behaves as if --force was given.
	if !force && !IsJSONOutput() {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "About to remove %s and everything in it.\n", m.DataDir())
		fmt.Fprint(out, "\nContinue? [y/N] ")
		confirmed, err := readConfirmation(cmd.InOrStdin())
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
		}
		if !confirmed {
			return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	if err := m.Reset(); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), struct {
			DataDir string `json:"dataDir"`
			Action  string `json:"action"`
		}{m.DataDir(), "reset"})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", m.DataDir())
	return nil
}
