package finder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSnapshot is returned when a directory holds no snapshot files
var ErrNoSnapshot = errors.New("no snapshot files found")

// IsSnapshotFile reports whether a path has a snapshot extension
func IsSnapshotFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// FindSnapshotFiles walks a directory and returns every .json, .yaml and .yml
// file, skipping hidden directories.
func FindSnapshotFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if IsSnapshotFile(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// LatestSnapshot returns the most recently modified snapshot file under root.
// Ties go to the lexically last path so the choice is stable.
func LatestSnapshot(root string) (string, error) {
	files, err := FindSnapshotFiles(root)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoSnapshot, root)
	}

	var latest string
	var latestInfo fs.FileInfo
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		if latestInfo == nil || info.ModTime().After(latestInfo.ModTime()) ||
			(info.ModTime().Equal(latestInfo.ModTime()) && path > latest) {
			latest, latestInfo = path, info
		}
	}
	return latest, nil
}
