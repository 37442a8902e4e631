package port

import (
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/docker/go-connections/nat"

	"github.com/kittynode/kittynode/internal/model"
)

// suggestRange is how far above a taken port FindAvailablePort looks for
// an alternative.
const suggestRange = 100

// Scanner checks whether specific ports are available on the host machine.
//
// It uses the operating system's network stack (net.Listen / net.ListenPacket)
// to determine if a port is free. This is the most reliable method because it
// asks the OS directly, rather than parsing /proc/net/* or relying on external
// commands like `lsof` or `ss` which may require elevated permissions.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable checks whether port is free for protocol on hostIP.
//
// An empty host IP or 0.0.0.0 binds all interfaces, which is what Docker
// does for such bindings, so the check covers the same address space.
// Returns false for ports in use, invalid ports and unknown protocols.
func (s *Scanner) IsPortAvailable(hostIP string, port int, protocol string) bool {
	if port < 1 || port > 65535 {
		return false
	}
	if hostIP == "0.0.0.0" {
		hostIP = ""
	}
	addr := net.JoinHostPort(hostIP, strconv.Itoa(port))

	switch protocol {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		// Unknown protocol: treat as unavailable.
		return false
	}
}

// FindAvailablePort scans a port range [startPort, endPort] (inclusive) and
// returns the first port that is available for the given protocol on hostIP.
//
// The search is sequential from startPort upward, so the same free port is
// selected consistently.
func (s *Scanner) FindAvailablePort(hostIP string, startPort, endPort int, protocol string) (int, error) {
	for port := startPort; port <= endPort && port <= 65535; port++ {
		if s.IsPortAvailable(hostIP, port, protocol) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available %s port found in range %d-%d", protocol, startPort, endPort)
}

// Binding is one host port a package publishes and whether it is free.
type Binding struct {
	Container     string `json:"container"`
	ContainerPort string `json:"container_port"`
	Protocol      string `json:"protocol"`
	HostIP        string `json:"host_ip"`
	HostPort      int    `json:"host_port"`
	Available     bool   `json:"available"`

	// Suggested is a free port close to HostPort, set only when HostPort
	// is taken and one was found.
	Suggested int `json:"suggested,omitempty"`
}

// CheckPackage probes every host binding of pkg, in manifest container
// order and sorted port order within a container.
func (s *Scanner) CheckPackage(pkg model.Package) ([]Binding, error) {
	var result []Binding
	for _, c := range pkg.Containers {
		for _, key := range c.PortKeys() {
			proto, containerPort := nat.SplitProtoPort(key)
			for _, pb := range c.PortBindings[key] {
				hostPort, err := strconv.Atoi(pb.HostPort)
				if err != nil {
					return nil, model.NewError(model.KindInvalidConfig, "parse host port", c.Name+" "+key,
						fmt.Errorf("invalid host port %q: %w", pb.HostPort, err))
				}

				b := Binding{
					Container:     c.Name,
					ContainerPort: containerPort,
					Protocol:      proto,
					HostIP:        pb.HostIP,
					HostPort:      hostPort,
					Available:     s.IsPortAvailable(pb.HostIP, hostPort, proto),
				}
				if !b.Available {
					if alt, err := s.FindAvailablePort(pb.HostIP, hostPort+1, hostPort+suggestRange, proto); err == nil {
						b.Suggested = alt
					}
				}
				result = append(result, b)
			}
		}
	}
	return result, nil
}

// Conflicts returns the bindings whose host port is taken, sorted by host
// port then protocol.
func Conflicts(bindings []Binding) []Binding {
	var taken []Binding
	for _, b := range bindings {
		if !b.Available {
			taken = append(taken, b)
		}
	}
	sort.SliceStable(taken, func(i, j int) bool {
		if taken[i].HostPort != taken[j].HostPort {
			return taken[i].HostPort < taken[j].HostPort
		}
		return taken[i].Protocol < taken[j].Protocol
	})
	return taken
}
