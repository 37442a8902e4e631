// Package secret provisions the shared authentication token that paired
// containers (an execution client and a consensus client) use to talk to
// each other over the engine API.
//
// The token is 32 random bytes, hex encoded, written to <dir>/jwt.hex.
// Generation always overwrites, so every install starts from a fresh
// secret and both clients mount the same file read-only.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kittynode/kittynode/internal/paths"
)

const (
	// FileName is the name of the secret file inside the data directory.
	FileName = "jwt.hex"

	// secretBytes is the number of random bytes; the hex form is twice as long.
	secretBytes = 32
)

// Path returns the location of the secret file inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Generate creates dir if needed, writes a new 64-character hex secret to
// dir/jwt.hex (replacing any existing one) and returns the secret.
func Generate(dir string) (string, error) {
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	secret := hex.EncodeToString(buf)

	if err := os.WriteFile(Path(dir), []byte(secret), paths.DefaultFileMode); err != nil {
		return "", fmt.Errorf("failed to write secret to %s: %w", Path(dir), err)
	}
	return secret, nil
}
