package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

// WriteFileAtomic streams write into a temporary file next to path and renames
// it into place. On any error the temporary file is removed and path is left
// untouched.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create temp file for %s", path), err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to sync %s", tmpName), err)
	}
	if err = tmp.Close(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to close %s", tmpName), err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to set permissions on %s", tmpName), err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to move %s into place", path), err)
	}
	return nil
}

// WriteBytesAtomic writes data to path through WriteFileAtomic.
func WriteBytesAtomic(path string, data []byte) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
