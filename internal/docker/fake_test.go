package docker

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/kittynode/kittynode/internal/metrics"
)

// fakeEngine is an in-memory engineAPI. It records every call in order as
// "<method> <argument>" and returns the error configured for a method, if
// any.
type fakeEngine struct {
	mu    sync.Mutex
	calls []string

	errs map[string]error

	containers []container.Summary
	networks   []network.Summary

	// pullStream is the JSON message stream returned by ImagePull.
	pullStream string
	// pullClosed counts Close calls on ImagePull bodies.
	pullClosed int
	// logStream is the (multiplexed) body returned by ContainerLogs.
	logStream []byte

	lastConfig     *container.Config
	lastHostConfig *container.HostConfig
	lastListOpts   container.ListOptions
	lastLogsOpts   container.LogsOptions
	nextID         int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{errs: make(map[string]error)}
}

// newTestClient wraps f with its own metrics so counters stay per-test.
func newTestClient(f *fakeEngine) (*Client, *metrics.Metrics) {
	m := metrics.New()
	return newClientWithEngine(f, Options{Metrics: m}), m
}

func (f *fakeEngine) record(method, arg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+arg)
	return f.errs[method]
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEngine) Ping(context.Context) (types.Ping, error) {
	return types.Ping{}, f.record("Ping", "")
}

func (f *fakeEngine) ServerVersion(context.Context) (types.Version, error) {
	return types.Version{Version: "28.5.2"}, f.record("ServerVersion", "")
}

func (f *fakeEngine) NetworkList(_ context.Context, _ network.ListOptions) ([]network.Summary, error) {
	if err := f.record("NetworkList", ""); err != nil {
		return nil, err
	}
	return f.networks, nil
}

func (f *fakeEngine) NetworkCreate(_ context.Context, name string, _ network.CreateOptions) (network.CreateResponse, error) {
	if err := f.record("NetworkCreate", name); err != nil {
		return network.CreateResponse{}, err
	}
	return network.CreateResponse{ID: "net-" + name}, nil
}

func (f *fakeEngine) NetworkRemove(_ context.Context, id string) error {
	return f.record("NetworkRemove", id)
}

func (f *fakeEngine) NetworkConnect(_ context.Context, networkID, containerID string, _ *network.EndpointSettings) error {
	return f.record("NetworkConnect", networkID+" "+containerID)
}

func (f *fakeEngine) ContainerList(_ context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.mu.Lock()
	f.lastListOpts = opts
	f.mu.Unlock()
	if err := f.record("ContainerList", ""); err != nil {
		return nil, err
	}

	// Mimic the daemon's regular-expression name filter loosely: the
	// anchors are dropped, so exact matching must happen client side.
	names := opts.Filters.Get("name")
	if len(names) == 0 {
		return f.containers, nil
	}
	re, err := regexp.Compile(strings.TrimSuffix(strings.TrimPrefix(names[0], "^"), "$"))
	if err != nil {
		return nil, err
	}
	var out []container.Summary
	for _, c := range f.containers {
		for _, n := range c.Names {
			if re.MatchString(n) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeEngine) ContainerCreate(_ context.Context, cfg *container.Config, hostCfg *container.HostConfig,
	_ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.mu.Lock()
	f.lastConfig, f.lastHostConfig = cfg, hostCfg
	f.mu.Unlock()
	if err := f.record("ContainerCreate", name); err != nil {
		return container.CreateResponse{}, err
	}
	return container.CreateResponse{ID: "id-" + name}, nil
}

func (f *fakeEngine) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	return f.record("ContainerStart", id)
}

func (f *fakeEngine) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	return f.record("ContainerStop", id)
}

func (f *fakeEngine) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	return f.record("ContainerRemove", id)
}

func (f *fakeEngine) ContainerLogs(_ context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	f.lastLogsOpts = opts
	f.mu.Unlock()
	if err := f.record("ContainerLogs", id); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(f.logStream)), nil
}

func (f *fakeEngine) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	if err := f.record("ImagePull", ref); err != nil {
		return nil, err
	}
	return &pullBody{Reader: strings.NewReader(f.pullStream), f: f}, nil
}

func (f *fakeEngine) ImageRemove(_ context.Context, ref string, _ image.RemoveOptions) ([]image.DeleteResponse, error) {
	if err := f.record("ImageRemove", ref); err != nil {
		return nil, err
	}
	return []image.DeleteResponse{{Untagged: ref}}, nil
}

func (f *fakeEngine) VolumeRemove(_ context.Context, id string, _ bool) error {
	return f.record("VolumeRemove", id)
}

func (f *fakeEngine) Close() error {
	return nil
}

// pullBody is an ImagePull body that counts its Close calls on the engine.
type pullBody struct {
	io.Reader
	f *fakeEngine
}

func (b *pullBody) Close() error {
	b.f.mu.Lock()
	defer b.f.mu.Unlock()
	b.f.pullClosed++
	return nil
}
