// =============================================================================
// Firefly Amazon Reconciler - File Utilities
// =============================================================================
//
// Small file helpers shared by the cache backend and the report writer:
// directory management and atomic writes. Writes go through a temp file
// and rename, so a crash mid-write never leaves a truncated cache entry
// behind for a later run to trip over.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EnsureDir creates dir (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to path via a uniquely named temp file in
// the same directory followed by a rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", tmp, err)
	}
	return nil
}
