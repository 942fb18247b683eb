package dispatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile runs write against a temporary file next to path and renames
// it into place only when write and the close both succeed. On failure the
// temporary file is removed and any existing file at path is untouched.
func WriteFile(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp output file: %w", err)
	}

	if err := write(tmpFile); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return fmt.Errorf("close temp output file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), 0o644); err != nil {
		os.Remove(tmpFile.Name())
		return fmt.Errorf("chmod output file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		os.Remove(tmpFile.Name())
		return fmt.Errorf("publish output file: %w", err)
	}
	log.Debugf("wrote %s", path)
	return nil
}

// GenerateFile is Generate writing to the file at path.
func GenerateFile(path string, opts Options) (*Result, error) {
	var r *Result
	err := WriteFile(path, func(w io.Writer) error {
		var err error
		r, err = Generate(w, opts)
		return err
	})
	return r, err
}
