package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittynode/kittynode/internal/lifecycle"
	"github.com/kittynode/kittynode/internal/manifest"
	"github.com/kittynode/kittynode/internal/model"
)

// NewPackagesCommand creates the "packages" subcommand, which lists every
// package kittynode can install.
func NewPackagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List available packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := sessionManager(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer release()

			all, err := m.Packages()
			if err != nil {
				return err
			}
			pkgs := sortedPackages(all)

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), struct {
					Packages []model.Package `json:"packages"`
				}{pkgs})
			}
			printPackages(cmd.OutOrStdout(), pkgs)
			return nil
		},
	}
}

// NewInstalledCommand creates the "installed" subcommand, which lists the
// packages whose every container exists in the runtime.
func NewInstalledCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "List installed packages",
		Long: `List the packages whose containers all exist in Docker.

A stopped container still counts as installed. Use "kittynode status" to
see partially installed packages and per-container state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := sessionManager(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer release()

			pkgs, err := m.Installed(cmd.Context())
			if err != nil {
				return err
			}

			names := make([]string, 0, len(pkgs))
			for _, p := range pkgs {
				names = append(names, p.Name)
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), struct {
					Installed []string `json:"installed"`
				}{names})
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No packages installed.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// NewStatusCommand creates the "status" subcommand, which reports every
// package's install status and the state of each of its containers.
func NewStatusCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show package and container status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want model.PackageStatus
			if filter != "all" {
				status, err := model.ParsePackageStatus(filter)
				if err != nil {
					return model.WrapCLIError(model.ExitGeneralError, "invalid --filter value", err)
				}
				want = status
			}

			m, release, err := sessionManager(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer release()

			states, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			if want != "" {
				filtered := states[:0]
				for _, s := range states {
					if s.Status == want {
						filtered = append(filtered, s)
					}
				}
				states = filtered
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), struct {
					Packages []lifecycle.PackageState `json:"packages"`
				}{states})
			}
			printStatusTable(cmd.OutOrStdout(), states)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "all",
		"Only show packages with this status: installed, partial, not-installed, all")

	return cmd
}

// completePackageNames offers registry names for a command's first
// argument.
func completePackageNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return manifest.Names(), cobra.ShellCompDirectiveNoFileComp
}
