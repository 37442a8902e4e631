package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/kittynode/kittynode/internal/metrics"
	"github.com/kittynode/kittynode/internal/model"
)

// defaultPingTimeout is the maximum duration to wait for a Docker daemon
// response during a Ping operation. 5 seconds is generous enough for most
// environments, including Docker Desktop on macOS which can be slower
// than native Linux Docker.
const defaultPingTimeout = 5 * time.Second

// Options configures a Client.
type Options struct {
	// Host is the Docker daemon address (e.g. "unix:///var/run/docker.sock").
	// Empty means DOCKER_HOST, then platform socket detection.
	Host string

	// Logger receives progress and diagnostic messages. Nil disables logging.
	Logger *zap.Logger

	// Metrics records runtime call outcomes. Nil uses metrics.Default().
	Metrics *metrics.Metrics
}

// Client wraps the Docker Engine SDK client to provide kittynode-specific
// functionality. It handles automatic Docker socket detection across
// platforms (Linux, macOS, Windows), and every operation it exposes wraps
// failures with the operation and resource name.
//
// Usage:
//
//	c, err := docker.NewClient(docker.Options{Logger: logger})
//	if err != nil { /* handle */ }
//	defer c.Close()  // Always close to release resources
//	if err := c.Ping(ctx); err != nil { /* Docker not running */ }
type Client struct {
	// inner is the Docker engine API. In production it is the SDK's
	// *client.Client; tests substitute a fake.
	inner engineAPI

	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new Docker client.
//
// The host is chosen in this priority order:
//  1. opts.Host (from the kittynode config file or environment)
//  2. DOCKER_HOST environment variable (if set, used as-is)
//  3. Platform-specific default socket paths:
//     - Linux: /var/run/docker.sock
//     - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//     - Windows: npipe:////./pipe/docker_engine (Docker Named Pipe)
//
// Returns a model.Error with KindRuntimeUnavailable if no Docker socket
// is found or the client cannot be created.
func NewClient(opts Options) (*Client, error) {
	host := opts.Host
	if host == "" {
		host = os.Getenv("DOCKER_HOST")
	}

	if host == "" {
		detected, err := detectDockerHost()
		if err != nil {
			return nil, model.NewError(model.KindRuntimeUnavailable, "connect to Docker", "", err)
		}
		host = detected
	}

	// client.WithAPIVersionNegotiation enables automatic API version
	// negotiation, which ensures compatibility across different Docker
	// daemon versions without hardcoding a specific API version.
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.NewError(model.KindRuntimeUnavailable, "create Docker client", host, err)
	}

	return newClientWithEngine(c, opts), nil
}

// newClientWithEngine wraps an engine API with the logger and metrics
// from opts, filling in defaults.
func newClientWithEngine(api engineAPI, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Default()
	}
	return &Client{inner: api, log: logger, metrics: m}
}

// detectDockerHost determines the Docker socket path for the current platform.
// It probes known socket paths and returns the first one that exists.
//
// We check for socket file existence rather than attempting a connection;
// Ping() handles connectivity verification.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
		})

	case "darwin":
		// Newer Docker Desktop versions may only create the per-user socket
		// when the /var/run symlink is not installed.
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return detectUnixSocket([]string{
				"/var/run/docker.sock",
			})
		}
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
			homeDir + "/.docker/run/docker.sock",
		})

	case "windows":
		// os.Stat does not work on Windows named pipes, so probe with a
		// brief dial instead.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err == nil {
			conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket probes a list of Unix socket paths and returns the
// Docker host URI for the first socket that exists on the filesystem.
//
// The paths are checked in order, so callers should list them from
// most-preferred to least-preferred.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf(
		"Docker socket not found at any of: %v (is Docker running?)",
		paths,
	)
}

// Ping verifies that the Docker daemon is reachable and responsive.
// It sends a lightweight ping request to the Docker API and waits
// up to defaultPingTimeout for a response.
//
// Returns a model.Error with KindRuntimeUnavailable if the daemon
// does not respond or returns an error.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.inner.Ping(pingCtx)
	c.metrics.ObserveRuntime("ping", start, err)
	if err != nil {
		return model.NewError(model.KindRuntimeUnavailable, "ping Docker daemon", "", err)
	}
	return nil
}

// IsRunning is the soft counterpart of NewClient + Ping: it reports whether
// a daemon is reachable at host (empty host means auto-detect) and answers
// a version query. Any connect or version error yields false; nothing is
// propagated.
func IsRunning(ctx context.Context, host string) bool {
	c, err := NewClient(Options{Host: host})
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()
	return c.isRunning(ctx)
}

func (c *Client) isRunning(ctx context.Context) bool {
	_, err := c.inner.ServerVersion(ctx)
	return err == nil
}

// Close releases all resources held by the Docker client.
// Close is safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// classify wraps a Docker API error into a model.Error. Connection
// failures mean the daemon went away mid-operation and are reported as
// KindRuntimeUnavailable; everything else is KindOperationFailed.
func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if client.IsErrConnectionFailed(err) {
		return model.NewError(model.KindRuntimeUnavailable, op, resource, err)
	}
	return model.NewError(model.KindOperationFailed, op, resource, err)
}

// isNotFound reports whether err is the daemon's "no such object" answer.
func isNotFound(err error) bool {
	return errdefs.IsNotFound(err)
}
