//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/annot/internal/errors"
)

// Export files and CLI/MCP upload sources are opened through these helpers.
// O_NOFOLLOW guards only the final path component; ValidatePath keeps
// files directly inside an allowed directory, so no intermediate
// directory can be swapped for a symlink. O_CLOEXEC keeps the descriptor
// out of child processes.

// openFileNoFollow opens an export target for writing.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return openNoFollow(path, flag, perm, "write export to")
}

// openFileNoFollowRead opens an upload source read-only. A missing file is
// FILE_NOT_FOUND.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := openNoFollow(path, syscall.O_RDONLY, 0, "upload from")
	if stderrors.Is(err, syscall.ENOENT) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}

func openNoFollow(path string, flag int, perm os.FileMode, action string) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot " + action + " symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
