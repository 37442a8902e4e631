package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kittynode/kittynode/internal/config"
	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/paths"
)

// NewInitCommand creates the "init" subcommand, which creates the data
// directory and writes config.yaml with the effective configuration
// (file values overlaid with KITTYNODE_* environment overrides and flags).
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := paths.ConfigFile(current.dataDir)

			_, err := os.Stat(path)
			switch {
			case err == nil && !force:
				return model.NewCLIError(model.ExitGeneralError,
					fmt.Sprintf("config file %s already exists (use --force to overwrite)", path))
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return model.NewError(model.KindFilesystem, "stat config", path, err)
			}

			if err := config.Save(current.dataDir, current.cfg); err != nil {
				return err
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), struct {
					DataDir    string `json:"dataDir"`
					ConfigFile string `json:"configFile"`
				}{current.dataDir, path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized kittynode in %s\n", current.dataDir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}
