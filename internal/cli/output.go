package cli

import (
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/kittynode/kittynode/internal/lifecycle"
	"github.com/kittynode/kittynode/internal/model"
)

// FormatPortBindings renders a container's published ports in the
// "host->container" form used by `docker ps`, sorted by port key.
// It returns "-" when nothing is published.
func FormatPortBindings(bindings map[string][]model.PortBinding) string {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, b := range bindings[k] {
			parts = append(parts, net.JoinHostPort(b.HostIP, b.HostPort)+"->"+k)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// FormatContainerStates renders "name (state)" pairs, comma-separated.
func FormatContainerStates(states []lifecycle.ContainerState) string {
	if len(states) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, fmt.Sprintf("%s (%s)", s.Name, s.State))
	}
	return strings.Join(parts, ", ")
}

// sortedPackages returns the packages of m ordered by name.
func sortedPackages(m map[string]model.Package) []model.Package {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	pkgs := make([]model.Package, 0, len(names))
	for _, name := range names {
		pkgs = append(pkgs, m[name])
	}
	return pkgs
}

// printPackages writes the package catalog as indented text: one header
// line per package, then one line per container.
func printPackages(w io.Writer, pkgs []model.Package) {
	if len(pkgs) == 0 {
		fmt.Fprintln(w, "No packages found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, p := range pkgs {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t(network %s)\n", p.Name, p.NetworkName)
		if p.Description != "" {
			fmt.Fprintf(tw, "  %s\n", p.Description)
		}
		for _, c := range p.Containers {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Name, c.Image, FormatPortBindings(c.PortBindings))
		}
	}
	_ = tw.Flush()
}

// printStatusTable writes one row per package with its status and
// container states.
func printStatusTable(w io.Writer, states []lifecycle.PackageState) {
	if len(states) == 0 {
		fmt.Fprintln(w, "No packages found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tSTATUS\tCONTAINERS")
	for _, s := range states {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Status, FormatContainerStates(s.Containers))
	}
	_ = tw.Flush()
}
