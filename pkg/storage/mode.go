package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// Mode names the backend the adapter is bound to.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

const modeFile = "storage_mode"

func modePath(dataDir string) string {
	dir := strings.TrimSpace(dataDir)
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, modeFile)
}

func readMode(dataDir string) Mode {
	raw, err := os.ReadFile(modePath(dataDir))
	if err != nil {
		return ""
	}
	switch mode := Mode(strings.TrimSpace(string(raw))); mode {
	case ModeRemote, ModeLocal:
		return mode
	default:
		return ""
	}
}

func writeMode(dataDir string, mode Mode) error {
	path := modePath(dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(string(mode)+"\n"), 0o644)
}
