// Package manifest is the registry of packages kittynode knows how to
// install.
//
// The set of package kinds is closed: each Kind is paired with a
// constructor in the kinds table, and adding a package means adding a row.
// Constructors are pure functions of the data directory and a config, so
// every registry query builds fresh, independent values. The caller passes
// the data directory, which fixes where the shared secret file lives.
package manifest

import (
	"sort"

	"github.com/kittynode/kittynode/internal/model"
)

// Kind identifies one of the package variants the registry can build.
// The Kind's string value is also the package's registry name.
type Kind string

// KindEthereum is the Reth + Lighthouse node pair.
const KindEthereum Kind = EthereumName

// constructor builds a package for the given data directory. cfg holds the
// effective configuration (defaults merged with any stored overrides).
type constructor func(dataDir string, cfg model.PackageConfig) (model.Package, error)

// kind pairs a constructor with the configuration it is built with by
// default.
type kind struct {
	build    constructor
	defaults func() model.PackageConfig
}

// kinds is the closed variant table.
var kinds = map[Kind]kind{
	KindEthereum: {build: ethereumPackage, defaults: ethereumDefaults},
}

// Names returns the registry names in sorted order.
func Names() []string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// Packages returns every known package built for dataDir with its default
// config, keyed by name.
func Packages(dataDir string) (map[string]model.Package, error) {
	packages := make(map[string]model.Package, len(kinds))
	for name, k := range kinds {
		pkg, err := k.build(dataDir, k.defaults())
		if err != nil {
			return nil, err
		}
		packages[string(name)] = pkg
	}
	return packages, nil
}

// Get returns the named package built with its default config.
// Returns a KindNotFound error when the name is not registered.
func Get(dataDir, name string) (model.Package, error) {
	return Resolve(dataDir, name, model.PackageConfig{})
}

// Resolve returns the named package built with stored overrides merged
// over its default config. A nil or empty override yields the same value
// as Get.
func Resolve(dataDir, name string, overrides model.PackageConfig) (model.Package, error) {
	k, ok := kinds[Kind(name)]
	if !ok {
		return model.Package{}, model.NotFoundError("package", name)
	}
	return k.build(dataDir, k.defaults().Merge(overrides))
}
