package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/paths"
)

// PackageStore reads and writes per-package configuration files under a
// data directory.
type PackageStore struct {
	dataDir string
}

// NewPackageStore returns a store rooted at dataDir.
func NewPackageStore(dataDir string) *PackageStore {
	return &PackageStore{dataDir: dataDir}
}

// Path returns the config file location for package name.
func (s *PackageStore) Path(name string) string {
	return paths.PackageConfigFile(s.dataDir, name)
}

// Load returns the stored configuration for name. A package that was never
// configured yields an empty config with a non-nil Values map.
func (s *PackageStore) Load(name string) (model.PackageConfig, error) {
	if err := checkName(name); err != nil {
		return model.PackageConfig{}, err
	}

	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.PackageConfig{Values: map[string]string{}}, nil
	}
	if err != nil {
		return model.PackageConfig{}, model.NewError(model.KindFilesystem, "read package config", path, err)
	}

	var cfg model.PackageConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return model.PackageConfig{}, model.NewError(model.KindInvalidConfig, "parse package config", path, err)
	}
	if cfg.Values == nil {
		cfg.Values = map[string]string{}
	}
	return cfg, nil
}

// Save replaces the stored configuration for name.
func (s *PackageStore) Save(name string, cfg model.PackageConfig) error {
	if err := checkName(name); err != nil {
		return err
	}
	if cfg.Values == nil {
		cfg.Values = map[string]string{}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize package config: %w", err)
	}
	data = append(data, '\n')

	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return model.NewError(model.KindFilesystem, "create package config directory", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, paths.DefaultFileMode); err != nil {
		return model.NewError(model.KindFilesystem, "write package config", path, err)
	}
	return nil
}

// ParseAssignments turns "key=value" arguments into a PackageConfig.
// Later assignments to the same key win.
func ParseAssignments(args []string) (model.PackageConfig, error) {
	cfg := model.PackageConfig{Values: make(map[string]string, len(args))}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return model.PackageConfig{}, model.NewError(model.KindInvalidConfig, "parse assignment", arg,
				errors.New("expected key=value"))
		}
		cfg.Values[key] = strings.TrimSpace(value)
	}
	return cfg, nil
}

// checkName rejects names that would escape the packages directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return model.NewError(model.KindInvalidConfig, "check package name", name,
			errors.New("package name must be a single path element"))
	}
	return nil
}
