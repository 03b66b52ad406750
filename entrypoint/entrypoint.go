// Package entrypoint writes the bootstrap script that starts a project's app inside its container.
package entrypoint

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oar-cd/skiff/domain"
)

// Script imports `app` from the project's app module and serves it on 0.0.0.0:5000,
// falling back to a minimal Flask app reporting degraded status when the import fails.
//
//go:embed docker_entrypoint.py
var Script []byte

// Write places the bootstrap script in dir, replacing any previous copy, and returns its path.
// The file is synced to disk and must be non-empty afterwards.
func Write(dir string) (string, error) {
	path := filepath.Join(dir, domain.EntrypointFile)

	if err := writeSynced(path, Script); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEntrypointWriteFailed, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEntrypointWriteFailed, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: %s is empty after write", domain.ErrEntrypointWriteFailed, path)
	}

	slog.Debug("Entrypoint written",
		"layer", "entrypoint",
		"operation", "write",
		"path", path,
		"bytes", info.Size())

	return path, nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
