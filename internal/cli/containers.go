package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kittynode/kittynode/internal/docker"
	"github.com/kittynode/kittynode/internal/model"
)

// containersFlags holds the flag values for the containers command.
type containersFlags struct {
	// pkg limits the listing to one package label. Empty lists all.
	pkg string
}

// NewContainersCommand creates the "containers" subcommand.
//
// It lists every container carrying the kittynode ownership label, grouped
// by package, including containers of packages that are only partially
// installed or no longer in the registry.
func NewContainersCommand() *cobra.Command {
	flags := &containersFlags{}

	cmd := &cobra.Command{
		Use:   "containers",
		Short: "List containers managed by kittynode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContainers(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.pkg, "package", "", "Only list containers of this package")

	return cmd
}

// managedContainerJSON is the JSON form of one managed container.
type managedContainerJSON struct {
	Name      string                         `json:"name"`
	ID        string                         `json:"id"`
	Image     string                         `json:"image"`
	State     string                         `json:"state"`
	Network   string                         `json:"network,omitempty"`
	CreatedAt *time.Time                     `json:"createdAt,omitempty"`
	Ports     map[string][]model.PortBinding `json:"ports,omitempty"`
}

type managedPackageJSON struct {
	Name       string                 `json:"name"`
	Containers []managedContainerJSON `json:"containers"`
}

func runContainers(cmd *cobra.Command, flags *containersFlags) error {
	m, release, err := sessionManager(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer release()

	list, err := m.ManagedContainers(cmd.Context())
	if err != nil {
		return err
	}

	names, groups := docker.GroupContainersByPackage(list)
	result := make([]managedPackageJSON, 0, len(names))
	for _, name := range names {
		if flags.pkg != "" && name != flags.pkg {
			continue
		}
		pkg := managedPackageJSON{Name: name}
		for _, c := range groups[name] {
			pkg.Containers = append(pkg.Containers, describeContainer(c))
		}
		result = append(result, pkg)
	}

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), struct {
			Packages []managedPackageJSON `json:"packages"`
		}{result})
	}

	if len(result) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No managed containers found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tCONTAINER\tSTATE\tIMAGE\tCREATED\tPORTS")
	for _, p := range result {
		for _, c := range p.Containers {
			created := "-"
			if c.CreatedAt != nil {
				created = c.CreatedAt.Local().Format(time.DateTime)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.Name, c.Name, c.State, c.Image, created, FormatPortBindings(c.Ports))
		}
	}
	return tw.Flush()
}

// describeContainer decodes the kittynode labels of c. Containers with
// damaged labels are still listed, without the label-derived fields.
func describeContainer(c model.ContainerInfo) managedContainerJSON {
	out := managedContainerJSON{Name: c.Name, ID: c.ID, Image: c.Image, State: c.State}

	labels, err := docker.ParseLabels(c.Labels)
	if err != nil {
		logger().Warn("container has invalid kittynode labels", zap.String("container", c.Name), zap.Error(err))
		return out
	}
	out.Network = labels.Network
	out.CreatedAt = &labels.CreatedAt
	out.Ports = labels.Ports
	return out
}
