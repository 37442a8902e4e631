package docker

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/kittynode/kittynode/internal/model"
)

// Label key constants define the Docker label keys kittynode sets on every
// container it creates. Discovery (installed and status queries) still goes
// by container name; the labels let `docker inspect` and the status
// command tell which package and network a container belongs to.
//
// All keys share the "kittynode." prefix to namespace them and avoid
// collisions with labels set by other tools.
const (
	// LabelPrefix is the common prefix for all kittynode labels.
	LabelPrefix = "kittynode."

	// LabelManagedBy identifies containers created by kittynode.
	// Key: "kittynode.managed-by", Value: always "kittynode".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelPackage stores the owning package name (e.g. "Ethereum").
	LabelPackage = LabelPrefix + "package"

	// LabelNetwork stores the package network the container was joined to.
	LabelNetwork = LabelPrefix + "network"

	// LabelCreatedAt stores the RFC3339 timestamp of container creation.
	LabelCreatedAt = LabelPrefix + "created-at"

	// LabelPortPrefix is the prefix for per-port labels. Each exposed
	// container port gets its own label with the port key appended, "/"
	// replaced by ".":
	//   "kittynode.port.30303.udp" = "0.0.0.0:30303"
	// Multiple host bindings for one port are comma separated.
	LabelPortPrefix = LabelPrefix + "port."
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "kittynode"

// Labels is the decoded form of the kittynode labels on a container.
type Labels struct {
	Package   string
	Network   string
	CreatedAt time.Time
	Ports     map[string][]model.PortBinding
}

// BuildLabels constructs the Docker label map for container c of package
// pkg joined to network. createdAt is written in UTC.
func BuildLabels(pkg, network string, c model.Container, createdAt time.Time) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelPackage:   pkg,
		LabelNetwork:   network,
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}

	for port, bindings := range c.PortBindings {
		hosts := make([]string, 0, len(bindings))
		for _, b := range bindings {
			hosts = append(hosts, net.JoinHostPort(b.HostIP, b.HostPort))
		}
		labels[BuildPortLabel(port)] = strings.Join(hosts, ",")
	}

	return labels
}

// ParseLabels is the inverse of BuildLabels.
//
// Required labels: managed-by, package, network, created-at. Missing
// required labels cause an error listing all of them.
func ParseLabels(labels map[string]string) (*Labels, error) {
	requiredKeys := []string{
		LabelManagedBy,
		LabelPackage,
		LabelNetwork,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	ports, err := ParsePortLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to parse port labels: %w", err)
	}

	return &Labels{
		Package:   labels[LabelPackage],
		Network:   labels[LabelNetwork],
		CreatedAt: createdAt,
		Ports:     ports,
	}, nil
}

// BuildPortLabel generates the label key for a container port key:
//
//	BuildPortLabel("9001/tcp") → "kittynode.port.9001.tcp"
func BuildPortLabel(port string) string {
	return LabelPortPrefix + strings.ReplaceAll(port, "/", ".")
}

// ParsePortLabels extracts the port bindings recorded in a label map.
// Keys come back in "<port>/<proto>" form. Returns an empty map (not nil)
// if no port labels are found.
func ParsePortLabels(labels map[string]string) (map[string][]model.PortBinding, error) {
	ports := make(map[string][]model.PortBinding)

	for key, value := range labels {
		if !strings.HasPrefix(key, LabelPortPrefix) {
			continue
		}

		suffix := strings.TrimPrefix(key, LabelPortPrefix)
		dot := strings.LastIndex(suffix, ".")
		if dot <= 0 || dot == len(suffix)-1 {
			return nil, fmt.Errorf("invalid port label key %q", key)
		}
		port := suffix[:dot] + "/" + suffix[dot+1:]

		var bindings []model.PortBinding
		if value != "" {
			for _, hp := range strings.Split(value, ",") {
				host, hostPort, err := net.SplitHostPort(hp)
				if err != nil {
					return nil, fmt.Errorf("invalid host binding in label %q=%q: %w", key, value, err)
				}
				bindings = append(bindings, model.PortBinding{HostIP: host, HostPort: hostPort})
			}
		}
		ports[port] = bindings
	}

	return ports, nil
}

// FilterLabels returns the label filter selecting kittynode-managed
// containers, in "key=value" form for the Docker API label filter.
func FilterLabels() []string {
	return []string{LabelManagedBy + "=" + ManagedByValue}
}

// GroupContainersByPackage groups managed containers by their package
// label. Containers without a package label are skipped. Package names
// come back sorted.
func GroupContainersByPackage(containers []model.ContainerInfo) (names []string, groups map[string][]model.ContainerInfo) {
	groups = make(map[string][]model.ContainerInfo)
	for _, c := range containers {
		pkg := c.Labels[LabelPackage]
		if pkg == "" {
			continue
		}
		if _, ok := groups[pkg]; !ok {
			names = append(names, pkg)
		}
		groups[pkg] = append(groups[pkg], c)
	}
	sort.Strings(names)
	return names, groups
}
