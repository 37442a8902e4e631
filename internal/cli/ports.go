package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/port"
)

// NewPortsCommand creates the "ports" subcommand.
//
// It checks, before an install, whether the host ports a package publishes
// are free. Taken ports get a nearby free suggestion. The command exits with
// an operation-failed code when any port is taken.
func NewPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "ports <package>",
		Short:             "Check whether a package's host ports are free",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completePackageNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := sessionManager(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer release()

			pkg, err := m.Resolve(args[0])
			if err != nil {
				return err
			}

			bindings, err := port.NewScanner().CheckPackage(pkg)
			if err != nil {
				return err
			}
			conflicts := port.Conflicts(bindings)

			if IsJSONOutput() {
				if err := printJSON(cmd.OutOrStdout(), struct {
					Package  string         `json:"package"`
					Bindings []port.Binding `json:"bindings"`
				}{pkg.Name, bindings}); err != nil {
					return err
				}
			} else {
				printBindings(cmd, bindings)
			}

			if len(conflicts) > 0 {
				return model.NewCLIError(model.ExitOperationFailed,
					fmt.Sprintf("%d host port(s) of package %q already in use", len(conflicts), pkg.Name))
			}
			return nil
		},
	}
}

func printBindings(cmd *cobra.Command, bindings []port.Binding) {
	if len(bindings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Package publishes no host ports.")
		return
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTAINER\tPORT\tHOST\tSTATUS\tSUGGESTED")
	for _, b := range bindings {
		status, suggested := "free", "-"
		if !b.Available {
			status = "in use"
			if b.Suggested != 0 {
				suggested = strconv.Itoa(b.Suggested)
			}
		}
		fmt.Fprintf(tw, "%s\t%s/%s\t%s:%d\t%s\t%s\n",
			b.Container, b.ContainerPort, b.Protocol, b.HostIP, b.HostPort, status, suggested)
	}
	_ = tw.Flush()
}
