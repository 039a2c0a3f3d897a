// Package fileutil writes reveal artifacts so that readers never observe a
// partially written file.
package fileutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data next to filename under a temporary name, syncs
// it and renames it into place. Missing parent directories are created.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return WriteAtomic(filename, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteJSON encodes v compactly, matching the layout of published stage
// records, and writes it atomically.
func WriteJSON(filename string, v any, perm os.FileMode) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(filename), err)
	}
	return WriteFileAtomic(filename, bytes.TrimRight(buf.Bytes(), "\n"), perm)
}

// WriteAtomic streams content produced by write into filename atomically.
func WriteAtomic(filename string, perm os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Same directory as the target, since renames across filesystems are
	// not atomic.
	tmpFile, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmpFile); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
