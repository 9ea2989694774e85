package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FailedPrefix marks a target folder left behind by a failed export.
const FailedPrefix = "failed_"

// CreateFolder creates a new folder <parent>/<prefix>_<n> with the lowest
// free n, starting at 1.
func CreateFolder(parent, prefix string) (string, error) {
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("cannot create export root %s: %w", parent, err)
	}
	for n := 1; n < 100000; n++ {
		dir := filepath.Join(parent, fmt.Sprintf("%s_%d", prefix, n))
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("cannot create target folder %s: %w", dir, err)
		}
	}
	return "", fmt.Errorf("no free target folder for %s in %s", prefix, parent)
}

// MarkFailed renames folder to failed_<name> in the same parent and returns
// the new path. A numeric suffix is added when the name is taken.
func MarkFailed(folder string) (string, error) {
	if _, err := os.Stat(folder); err != nil {
		return "", err
	}
	parent, name := filepath.Split(filepath.Clean(folder))
	target := filepath.Join(parent, FailedPrefix+name)
	for n := 1; ; n++ {
		if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
			break
		}
		target = filepath.Join(parent, fmt.Sprintf("%s%s_%d", FailedPrefix, name, n))
	}
	if err := os.Rename(folder, target); err != nil {
		return "", fmt.Errorf("cannot rename %s: %w", folder, err)
	}
	return target, nil
}

// UserFolder returns the export root of a user.
func UserFolder(root string, userID int64) string {
	return filepath.Join(root, fmt.Sprintf("user_%d", userID))
}
