package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileName builds "<prefix>-<session>-<UTC timestamp>.<ext>". The session
// ID is shortened to its first block.
func FileName(prefix, sessionID, ext string, now time.Time) string {
	short, _, _ := strings.Cut(sessionID, "-")
	if short == "" {
		short = "none"
	}
	return fmt.Sprintf("%s-%s-%s.%s", prefix, short, now.UTC().Format("20060102T150405Z"), strings.TrimPrefix(ext, "."))
}

// WriteFile writes data to dir/name through a temporary file and a rename
// so readers never observe a partial export. It returns the final path.
func WriteFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
