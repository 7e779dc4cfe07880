package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File permissions
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// writeProbeName is created and removed to check a directory is writable
const writeProbeName = ".write-probe"

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// EnsureWritableDir creates dirPath if needed and verifies files can be
// created in it. It returns the absolute path.
func EnsureWritableDir(dirPath string) (string, error) {
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := CreateDirectoryIfNotExists(absPath); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", absPath)
	}

	probe := filepath.Join(absPath, writeProbeName)
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFilePermissions)
	if err != nil {
		return "", fmt.Errorf("directory %s is not writable: %w", absPath, err)
	}
	_ = f.Close()
	_ = os.Remove(probe)

	return absPath, nil
}

// EnsureParentDir creates the directory holding filePath
func EnsureParentDir(filePath string) error {
	return CreateDirectoryIfNotExists(filepath.Dir(filePath))
}

// WriteFileAtomic replaces path with data by writing a sibling temp file and
// renaming it over the original.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	serr := tmp.Sync()
	cerr := tmp.Close()
	if err := errors.Join(werr, serr, cerr); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
