package fileutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// EnsureAlias makes alias resolve to target, preferring a symbolic link and
// falling back to a copy on filesystems that refuse links. An existing alias
// is left alone.
func EnsureAlias(target, alias string) error {
	if _, err := os.Lstat(alias); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Symlink(target, alias); err == nil {
		return nil
	}
	return CopyFile(target, alias)
}
