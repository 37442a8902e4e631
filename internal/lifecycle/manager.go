package lifecycle

import (
	"context"
	"errors"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/kittynode/kittynode/internal/config"
	"github.com/kittynode/kittynode/internal/manifest"
	"github.com/kittynode/kittynode/internal/metrics"
	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/paths"
	"github.com/kittynode/kittynode/internal/secret"
)

// Runtime is the container runtime the Manager drives. *docker.Client
// implements it.
type Runtime interface {
	CreateOrRecreateNetwork(ctx context.Context, name string) error
	RemoveNetwork(ctx context.Context, name string) error

	PullAndStartContainer(ctx context.Context, pkg string, c model.Container, network string) error
	FindContainers(ctx context.Context, name string) ([]model.ContainerInfo, error)
	ListManagedContainers(ctx context.Context) ([]model.ContainerInfo, error)
	RemoveContainer(ctx context.Context, name string) error
	ContainerLogs(ctx context.Context, name string, tail int) ([]string, error)

	RemoveImage(ctx context.Context, ref string) error
	RemoveVolume(ctx context.Context, name string) error
}

// Options configures a Manager.
type Options struct {
	// DataDir holds the shared secret and package configs. Empty means
	// paths.DataDir().
	DataDir string

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Manager is the caller-facing API for package lifecycle operations.
// Calls are sequential; nothing guards two overlapping calls on the same
// package.
type Manager struct {
	runtime Runtime
	dataDir string
	store   *config.PackageStore
	log     *zap.Logger
	metrics *metrics.Metrics

	// Collaborators, replaceable in tests.
	packages  func() (map[string]model.Package, error)
	resolve   func(name string, cfg model.PackageConfig) (model.Package, error)
	provision func(dir string) (string, error)
}

// NewManager returns a Manager driving rt.
func NewManager(rt Runtime, opts Options) (*Manager, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dir, err := paths.DataDir()
		if err != nil {
			return nil, model.NewError(model.KindFilesystem, "resolve data directory", "", err)
		}
		dataDir = dir
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Default()
	}

	return &Manager{
		runtime: rt,
		dataDir: dataDir,
		store:   config.NewPackageStore(dataDir),
		log:     logger,
		metrics: m,
		packages: func() (map[string]model.Package, error) {
			return manifest.Packages(dataDir)
		},
		resolve: func(name string, cfg model.PackageConfig) (model.Package, error) {
			return manifest.Resolve(dataDir, name, cfg)
		},
		provision: secret.Generate,
	}, nil
}

// DataDir returns the directory the Manager keeps its state in.
func (m *Manager) DataDir() string {
	return m.dataDir
}

// Packages returns every known package, keyed by name.
func (m *Manager) Packages() (map[string]model.Package, error) {
	return m.packages()
}

// Resolve returns the named package built with its stored configuration.
func (m *Manager) Resolve(name string) (model.Package, error) {
	if err := m.checkKnown(name); err != nil {
		return model.Package{}, err
	}
	cfg, err := m.store.Load(name)
	if err != nil {
		return model.Package{}, err
	}
	return m.resolve(name, cfg)
}

// Installed returns the packages whose every container exists, sorted
// by name. Container state is not considered: a stopped container still
// counts.
func (m *Manager) Installed(ctx context.Context) ([]model.Package, error) {
	states, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	pkgs, err := m.packages()
	if err != nil {
		return nil, err
	}

	var installed []model.Package
	for _, s := range states {
		if s.Status == model.StatusInstalled {
			installed = append(installed, pkgs[s.Name])
		}
	}
	return installed, nil
}

// PackageState is the runtime view of one package.
type PackageState struct {
	Name       string              `json:"name"`
	Status     model.PackageStatus `json:"status"`
	Containers []ContainerState    `json:"containers"`
}

// ContainerState is the runtime view of one manifest container.
type ContainerState struct {
	Name string `json:"name"`

	// State is the runtime state, or StateMissing when no container with
	// this exact name exists.
	State string `json:"state"`
}

// StateMissing marks a manifest container absent from the runtime.
const StateMissing = "missing"

// Status reports, for every known package sorted by name, which of its
// containers exist and the resulting package status.
func (m *Manager) Status(ctx context.Context) ([]PackageState, error) {
	pkgs, err := m.packages()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(pkgs))
	for name := range pkgs {
		names = append(names, name)
	}
	sort.Strings(names)

	states := make([]PackageState, 0, len(names))
	for _, name := range names {
		state, err := m.packageState(ctx, pkgs[name])
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

func (m *Manager) packageState(ctx context.Context, pkg model.Package) (PackageState, error) {
	state := PackageState{Name: pkg.Name, Containers: make([]ContainerState, 0, len(pkg.Containers))}

	found := 0
	for _, c := range pkg.Containers {
		matches, err := m.runtime.FindContainers(ctx, c.Name)
		if err != nil {
			return PackageState{}, err
		}
		cs := ContainerState{Name: c.Name, State: StateMissing}
		if len(matches) > 0 {
			cs.State = matches[0].State
			found++
		}
		state.Containers = append(state.Containers, cs)
	}

	switch {
	case found == len(pkg.Containers):
		state.Status = model.StatusInstalled
	case found > 0:
		state.Status = model.StatusPartial
	default:
		state.Status = model.StatusNotInstalled
	}
	return state, nil
}

// ManagedContainers returns every container kittynode created, whether or
// not its package is still in the registry or fully installed.
func (m *Manager) ManagedContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	return m.runtime.ListManagedContainers(ctx)
}

// Logs returns the last tail lines of the named container's output.
func (m *Manager) Logs(ctx context.Context, container string, tail int) ([]string, error) {
	return m.runtime.ContainerLogs(ctx, container, tail)
}

// PackageConfig returns the stored configuration of a known package.
func (m *Manager) PackageConfig(name string) (model.PackageConfig, error) {
	if err := m.checkKnown(name); err != nil {
		return model.PackageConfig{}, err
	}
	return m.store.Load(name)
}

// UpdatePackageConfig validates and stores cfg as the package's
// configuration, then reinstalls the package so it takes effect: the
// package is deleted (keeping images) and installed again.
func (m *Manager) UpdatePackageConfig(ctx context.Context, name string, cfg model.PackageConfig) error {
	if err := m.checkKnown(name); err != nil {
		return err
	}
	if _, err := m.resolve(name, cfg); err != nil {
		return err
	}
	if err := m.store.Save(name, cfg); err != nil {
		return err
	}

	m.log.Info("package config updated, reinstalling", zap.String("package", name))
	if err := m.Delete(ctx, name, false); err != nil {
		return err
	}
	return m.Install(ctx, name)
}

// Reset removes the data directory: the shared secret, stored package
// configs and the config file. Containers, volumes and networks are left
// in place. A directory that does not exist is not an error.
func (m *Manager) Reset() error {
	if err := os.RemoveAll(m.dataDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return model.NewError(model.KindFilesystem, "remove data directory", m.dataDir, err)
	}
	m.log.Info("data directory removed", zap.String("dir", m.dataDir))
	return nil
}

func (m *Manager) checkKnown(name string) error {
	pkgs, err := m.packages()
	if err != nil {
		return err
	}
	if _, ok := pkgs[name]; !ok {
		return model.NotFoundError("package", name)
	}
	return nil
}

// observe records a package operation, labelling names outside the
// registry as metrics.UnknownPackage.
func (m *Manager) observe(operation, name string, err error) {
	label := name
	if m.checkKnown(name) != nil {
		label = metrics.UnknownPackage
	}
	m.metrics.ObservePackage(operation, label, err)
}
