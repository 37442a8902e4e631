package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewInstallCommand creates the "install" subcommand.
//
// Install provisions the shared secret, recreates the package network and
// pulls and starts each container in order. A failure part way through
// leaves the completed steps in place; the error lists them.
func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install <package>",
		Short: "Install a package",
		Long: `Install a package: create its network, then pull and start its containers.

An already installed package is reinstalled: its network is recreated and
existing containers with the same names cause the create step to fail, so
delete the package first.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completePackageNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args[0])
		},
	}
}

func runInstall(cmd *cobra.Command, name string) error {
	ctx := cmd.Context()

	m, release, err := sessionManager(ctx, true)
	if err != nil {
		return err
	}
	defer release()

	pkg, err := m.Resolve(name)
	if err != nil {
		return err
	}

	logger().Debug("installing package", zap.String("package", name), zap.Strings("containers", pkg.ContainerNames()))
	if err := m.Install(ctx, name); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), actionResultJSON{
			Package:    name,
			Action:     "installed",
			Network:    pkg.NetworkName,
			Containers: pkg.ContainerNames(),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Installed package %q.\n", name)
	fmt.Fprintf(out, "  Network:    %s\n", pkg.NetworkName)
	for _, c := range pkg.Containers {
		fmt.Fprintf(out, "  Container:  %s (%s)\n", c.Name, c.Image)
	}
	return nil
}

// actionResultJSON is the JSON output of install and delete.
type actionResultJSON struct {
	Package       string   `json:"package"`
	Action        string   `json:"action"`
	Network       string   `json:"network"`
	Containers    []string `json:"containers"`
	ImagesRemoved bool     `json:"imagesRemoved,omitempty"`
}
