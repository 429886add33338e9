// Package sqlitepath resolves where the SQLite backed stores keep their files.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Database file names inside a .vakki/ directory.
const (
	VectorsDB = "judgments.db"
	AuditDB   = "audit.db"
)

// Resolve returns the database file for a store. An explicit override wins,
// then $VAKKI_DATA_DIR, then the first existing candidate. When nothing
// exists yet the file is placed in dotdir, the resolved .vakki/ directory.
func Resolve(override, dotdir, file string) (string, error) {
	if override != "" {
		return override, nil
	}

	if dataDir := strings.TrimSpace(os.Getenv("VAKKI_DATA_DIR")); dataDir != "" {
		return filepath.Join(dataDir, file), nil
	}

	for _, candidate := range candidates(file) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if dotdir != "" {
		return filepath.Join(dotdir, file), nil
	}

	return "", fmt.Errorf("could not find vakki database %s; run vakki init or set its target", file)
}

func candidates(file string) []string {
	candidates := []string{
		file,
		filepath.Join(".vakki", file),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".vakki", file))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "vakki", file))
	}

	return candidates
}
