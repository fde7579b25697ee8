package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Extensions of the files the stackcc tools read and write.
const (
	SourceExt    = ".c"
	ListingExt   = ".sasm"
	ContainerExt = ".sccx"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath names the build product of src in dir with extension ext. An
// empty dir keeps the product next to its source.
func OutputPath(src, dir, ext string) string {
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, BaseName(src)+ext)
}

// WriteFile writes data to path, creating missing parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
