package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittynode/kittynode/internal/model"
)

func TestPackageStore_LoadMissing(t *testing.T) {
	store := NewPackageStore(t.TempDir())

	cfg, err := store.Load("Ethereum")

	require.NoError(t, err)
	assert.NotNil(t, cfg.Values)
	assert.Empty(t, cfg.Values)
}

func TestPackageStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewPackageStore(dir)
	want := model.PackageConfig{Values: map[string]string{"network": "mainnet"}}

	require.NoError(t, store.Save("Ethereum", want))
	assert.FileExists(t, filepath.Join(dir, "packages", "Ethereum", "config.json"))

	got, err := store.Load("Ethereum")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestPackageStore_LoadJSONC verifies hand-edited files with comments and
// trailing commas are accepted.
func TestPackageStore_LoadJSONC(t *testing.T) {
	dir := t.TempDir()
	store := NewPackageStore(dir)
	path := store.Path("Ethereum")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  // switch chains here
  "values": {
    "network": "sepolia", /* was holesky */
  },
}`), 0o644))

	cfg, err := store.Load("Ethereum")

	require.NoError(t, err)
	assert.Equal(t, "sepolia", cfg.Values["network"])
}

func TestPackageStore_LoadMalformed(t *testing.T) {
	store := NewPackageStore(t.TempDir())
	path := store.Path("Ethereum")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"values": ["not", "a", "map"]}`), 0o644))

	_, err := store.Load("Ethereum")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestPackageStore_RejectsPathNames(t *testing.T) {
	store := NewPackageStore(t.TempDir())

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := store.Load(name)
		assert.ErrorIs(t, err, model.ErrInvalidConfig, "name %q", name)
		assert.ErrorIs(t, store.Save(name, model.PackageConfig{}), model.ErrInvalidConfig, "name %q", name)
	}
}

func TestParseAssignments(t *testing.T) {
	cfg, err := ParseAssignments([]string{"network=mainnet", "foo = bar", "network=sepolia", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"network": "sepolia", "foo": "bar", "empty": ""}, cfg.Values)

	_, err = ParseAssignments([]string{"novalue"})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = ParseAssignments([]string{"=x"})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}
