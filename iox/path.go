package iox

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PathWithSuffix inserts ".suffix" between the file stem and its extension,
// so the container format implied by the extension is kept:
//
//	PathWithSuffix("out/talk.mkv", "head") == "out/talk.head.mkv"
func PathWithSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + suffix + ext
}

// RemoveQuiet removes path, treating a missing file as success.
// It reports whether a file was actually removed.
func RemoveQuiet(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
