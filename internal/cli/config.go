package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kittynode/kittynode/internal/config"
	"github.com/kittynode/kittynode/internal/model"
)

// NewConfigCommand creates the "config" command group for reading and
// changing a package's stored configuration.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change package configuration",
	}

	cmd.AddCommand(newConfigGetCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

// configJSON is the JSON output of config get and config set.
type configJSON struct {
	Package   string            `json:"package"`
	Stored    map[string]string `json:"stored"`
	Effective map[string]string `json:"effective"`
}

func newConfigGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <package>",
		Short: "Show a package's configuration",
		Long: `Show a package's effective configuration: its defaults overlaid with the
values stored in <data>/packages/<package>/config.json.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completePackageNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, args[0])
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <package> key=value...",
		Short: "Change a package's configuration and reinstall it",
		Long: `Merge key=value assignments into a package's stored configuration.

The new configuration is validated first. It is then saved and the package
is deleted (keeping images) and installed again so the change takes effect.`,
		Example:           "  kittynode config set Ethereum network=sepolia",
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: completePackageNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			assignments, err := config.ParseAssignments(args[1:])
			if err != nil {
				return err
			}

			m, release, err := sessionManager(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer release()

			stored, err := m.PackageConfig(name)
			if err != nil {
				return err
			}
			if err := m.UpdatePackageConfig(cmd.Context(), name, stored.Merge(assignments)); err != nil {
				return err
			}
			return showConfig(cmd, name)
		},
	}
}

// showConfig prints the stored and effective configuration of name.
func showConfig(cmd *cobra.Command, name string) error {
	m, release, err := sessionManager(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer release()

	stored, err := m.PackageConfig(name)
	if err != nil {
		return err
	}
	pkgs, err := m.Packages()
	if err != nil {
		return err
	}
	effective := pkgs[name].DefaultConfig.Merge(stored)

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), configJSON{
			Package:   name,
			Stored:    nonNil(stored.Values),
			Effective: nonNil(effective.Values),
		})
	}

	printConfig(cmd, effective, stored)
	return nil
}

func printConfig(cmd *cobra.Command, effective, stored model.PackageConfig) {
	keys := make([]string, 0, len(effective.Values))
	for k := range effective.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No configuration values.")
		return
	}
	for _, k := range keys {
		suffix := ""
		if _, ok := stored.Values[k]; !ok {
			suffix = " (default)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s=%s%s\n", k, effective.Values[k], suffix)
	}
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
