// Package store implements the narrow JSON key-value persistence contract
// consumed by the pipeline delegate: per-user settings, cached provider API
// keys, OAuth credentials, and bounded transcript history. Every write goes
// through writeAtomicFile so a crash mid-write never leaves a torn file
// behind for the next read.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomicFile writes contents to path by creating a sibling temp file,
// flushing it to disk, and renaming it over the destination. Grounded on
// api_key_store/mod.rs::write_atomic_file.
func writeAtomicFile(path string, contents []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file %q: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush temp file %q: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize file %q: %w", path, err)
	}
	return nil
}

func ensureFileExists(path string, emptyContents []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %q: %w", path, err)
	}
	return writeAtomicFile(path, emptyContents)
}
