package lifecycle

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kittynode/kittynode/internal/metrics"
	"github.com/kittynode/kittynode/internal/model"
)

// fakeRuntime is an in-memory Runtime. Calls are recorded as
// "<Method> <argument>". An error configured under "<Method> <argument>"
// or just "<Method>" is returned by that call.
type fakeRuntime struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error

	containers map[string]model.Container
	networks   map[string]int
	logs       map[string][]string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		errs:       make(map[string]error),
		containers: make(map[string]model.Container),
		networks:   make(map[string]int),
		logs:       make(map[string][]string),
	}
}

func (f *fakeRuntime) record(method, arg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+arg)
	if err, ok := f.errs[method+" "+arg]; ok {
		return err
	}
	return f.errs[method]
}

// Calls returns recorded calls, optionally only those of one method.
func (f *fakeRuntime) Calls(method ...string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if len(method) == 0 || strings.HasPrefix(c, method[0]+" ") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRuntime) CreateOrRecreateNetwork(_ context.Context, name string) error {
	if err := f.record("CreateOrRecreateNetwork", name); err != nil {
		return err
	}
	f.networks[name] = 1
	return nil
}

func (f *fakeRuntime) RemoveNetwork(_ context.Context, name string) error {
	if err := f.record("RemoveNetwork", name); err != nil {
		return err
	}
	delete(f.networks, name)
	return nil
}

func (f *fakeRuntime) PullAndStartContainer(_ context.Context, _ string, c model.Container, network string) error {
	if err := f.record("PullAndStartContainer", c.Name); err != nil {
		return err
	}
	if f.networks[network] == 0 {
		return errors.New("network " + network + " does not exist")
	}
	f.containers[c.Name] = c
	return nil
}

func (f *fakeRuntime) FindContainers(_ context.Context, name string) ([]model.ContainerInfo, error) {
	if err := f.record("FindContainers", name); err != nil {
		return nil, err
	}
	if c, ok := f.containers[name]; ok {
		return []model.ContainerInfo{{ID: "id-" + name, Name: name, Image: c.Image, State: "running"}}, nil
	}
	return nil, nil
}

func (f *fakeRuntime) ListManagedContainers(context.Context) ([]model.ContainerInfo, error) {
	if err := f.record("ListManagedContainers", ""); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.containers))
	for name := range f.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]model.ContainerInfo, 0, len(names))
	for _, name := range names {
		out = append(out, model.ContainerInfo{ID: "id-" + name, Name: name, Image: f.containers[name].Image, State: "running"})
	}
	return out, nil
}

func (f *fakeRuntime) RemoveContainer(_ context.Context, name string) error {
	if err := f.record("RemoveContainer", name); err != nil {
		return err
	}
	delete(f.containers, name)
	return nil
}

func (f *fakeRuntime) ContainerLogs(_ context.Context, name string, _ int) ([]string, error) {
	if err := f.record("ContainerLogs", name); err != nil {
		return nil, err
	}
	lines, ok := f.logs[name]
	if !ok {
		return nil, model.NotFoundError("container", name)
	}
	return lines, nil
}

func (f *fakeRuntime) RemoveImage(_ context.Context, ref string) error {
	return f.record("RemoveImage", ref)
}

func (f *fakeRuntime) RemoveVolume(_ context.Context, name string) error {
	return f.record("RemoveVolume", name)
}

// opFailed builds the error a runtime returns for a failed call.
func opFailed(op, resource string) error {
	return model.NewError(model.KindOperationFailed, op, resource, errors.New("daemon refused"))
}

// newTestManager returns a Manager over rt whose registry holds only pkgs.
// The data directory is a fresh temporary directory.
func newTestManager(t *testing.T, rt Runtime, logger *zap.Logger, pkgs ...model.Package) *Manager {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := NewManager(rt, Options{DataDir: t.TempDir(), Logger: logger, Metrics: metrics.New()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	registry := make(map[string]model.Package, len(pkgs))
	for _, p := range pkgs {
		registry[p.Name] = p
	}
	m.packages = func() (map[string]model.Package, error) {
		out := make(map[string]model.Package, len(registry))
		for k, v := range registry {
			out[k] = v
		}
		return out, nil
	}
	m.resolve = func(name string, _ model.PackageConfig) (model.Package, error) {
		p, ok := registry[name]
		if !ok {
			return model.Package{}, model.NotFoundError("package", name)
		}
		return p, nil
	}
	return m
}

// twoContainerPackage is a package of two containers sharing one volume
// and one host file.
func twoContainerPackage(sharedFile string) model.Package {
	return model.Package{
		Name:        "Pair",
		NetworkName: "pair-net",
		Containers: []model.Container{
			{
				Name:           "c1",
				Image:          "img/one",
				VolumeBindings: []model.Binding{{Source: "shared", Destination: "/data"}},
				FileBindings:   []model.Binding{{Source: sharedFile, Destination: "/secret", Options: "ro"}},
			},
			{
				Name:           "c2",
				Image:          "img/two",
				VolumeBindings: []model.Binding{{Source: "shared", Destination: "/data"}},
				FileBindings:   []model.Binding{{Source: sharedFile, Destination: "/secret", Options: "ro"}},
			},
		},
	}
}
