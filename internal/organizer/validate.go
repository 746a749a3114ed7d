package organizer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var protectedPaths = []string{"/", "/mnt", "/home", "/usr", "/etc", "/var", "/tmp", "/opt", "/media", "/srv"}

// ValidateDir checks that path is a readable directory that is safe to
// operate on. Filesystem roots and top-level system directories are refused.
func ValidateDir(path, operation string, requireWritable bool) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	cleanPath := filepath.Clean(path)
	realPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		realPath = cleanPath
	}

	for _, protected := range protectedPaths {
		if realPath == protected || cleanPath == protected {
			return fmt.Errorf("refusing to %s on protected path: %s", operation, realPath)
		}
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return fmt.Errorf("cannot %s %s: %w", operation, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot %s %s: not a directory", operation, path)
	}

	if !checkReadable(realPath) {
		return fmt.Errorf("cannot %s %s: path is not readable", operation, path)
	}
	if requireWritable && !checkWritable(realPath) {
		return fmt.Errorf("cannot %s %s: path is not writable", operation, path)
	}
	return nil
}

func checkReadable(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	_, err = file.Readdirnames(1)
	return err == nil || errors.Is(err, io.EOF)
}

func checkWritable(path string) bool {
	testFile := filepath.Join(path, ".jellyname_write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return false
	}
	file.Close()
	os.Remove(testFile)
	return true
}
