// Package paths resolves the host locations kittynode reads and writes.
//
// Everything lives under a single data directory, by default
// <home>/.kittynode. The KITTYNODE_HOME environment variable overrides it,
// which is how tests and alternative installs relocate state.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// HomeEnv overrides the data directory when set.
	HomeEnv = "KITTYNODE_HOME"

	// dataDirName is the directory created under the user's home.
	dataDirName = ".kittynode"

	// DefaultDirMode is the permission mode for directories kittynode creates.
	DefaultDirMode os.FileMode = 0755

	// DefaultFileMode is the permission mode for files kittynode writes.
	DefaultFileMode os.FileMode = 0644
)

// DataDir returns the kittynode data directory.
//
// It fails only when no override is set and no home directory can be
// resolved; every other path in this package derives from it.
func DataDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return filepath.Abs(dir)
	}

	// xdg.Home is resolved once at package init from $HOME (or the
	// platform equivalent). An empty value means there is no home.
	if xdg.Home == "" {
		return "", fmt.Errorf("failed to determine the %s path: no home directory", dataDirName)
	}
	return filepath.Join(xdg.Home, dataDirName), nil
}

// ConfigFile returns the path of the application config file inside dataDir.
func ConfigFile(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// PackageConfigFile returns the path of a package's stored configuration.
//
//	<data>/packages/<name>/config.json
func PackageConfigFile(dataDir, packageName string) string {
	return filepath.Join(dataDir, "packages", packageName, "config.json")
}
