//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/annot/internal/errors"
)

// Windows has no O_NOFOLLOW. Creating symlinks needs elevated privileges
// there, and ValidatePath has already rejected any symlink it saw.

// openFileNoFollow opens an export target for writing.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens an upload source read-only. A missing file is
// FILE_NOT_FOUND.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
