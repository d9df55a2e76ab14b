package patch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// BackupSuffix is appended to a target path to form its backup sibling.
const BackupSuffix = ".orig"

// Target is a single vendor source file the engine may transform. The SDK
// owns the file; the engine only ever rewrites it from its current content
// and keeps a one-time backup of the original bytes.
type Target struct {
	Path string
}

// BackupPath returns the path of the backup sibling.
func (t Target) BackupPath() string {
	return t.Path + BackupSuffix
}

// Name returns the base file name used to match transformations.
func (t Target) Name() string {
	return filepath.Base(t.Path)
}

// Read returns the current content of the target. A missing file is reported
// as a TargetMissingError.
func (t Target) Read() ([]byte, error) {
	content, err := os.ReadFile(t.Path)
	if os.IsNotExist(err) {
		return nil, &TargetMissingError{Path: t.Path}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.Path, err)
	}
	return content, nil
}

// EnsureBackup creates the backup sibling from the given content unless one
// already exists. An existing backup is never overwritten: the first-ever
// original is the only authoritative restore source. An existing backup that
// differs from the current content is a sign of a previous run and is logged,
// but the existing backup stays trusted.
func (t Target) EnsureBackup(current []byte) error {
	existing, err := os.ReadFile(t.BackupPath())
	if err == nil {
		if !bytes.Equal(existing, current) {
			log.Warnf("backup %s already exists with different content, keeping it as the original", t.BackupPath())
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("read backup %s: %w", t.BackupPath(), err)
	}

	mode := t.mode()
	if err := os.WriteFile(t.BackupPath(), current, mode); err != nil {
		return fmt.Errorf("create backup %s: %w", t.BackupPath(), err)
	}
	log.Debugf("backed up %s to %s", t.Path, t.BackupPath())
	return nil
}

// Write replaces the target content atomically: the new content is written
// to a temp file in the same directory and renamed over the original, so a
// crash can never leave a partially written target behind.
func (t Target) Write(content []byte) error {
	dir := filepath.Dir(t.Path)
	tmp, err := os.CreateTemp(dir, "."+t.Name()+".*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(t.mode()); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, t.Path); err != nil {
		return fmt.Errorf("replace %s: %w", t.Path, err)
	}
	return nil
}

// Restore copies the backup back over the target. Restoring always copies
// backup to target, never re-derives content. Without a backup there is
// nothing to do.
func (t Target) Restore() error {
	original, err := os.ReadFile(t.BackupPath())
	if os.IsNotExist(err) {
		log.Debugf("no backup for %s, nothing to restore", t.Path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read backup %s: %w", t.BackupPath(), err)
	}

	if err := t.Write(original); err != nil {
		return fmt.Errorf("restore %s: %w", t.Path, err)
	}
	log.Infof("restored %s from %s", t.Path, t.BackupPath())
	return nil
}

// HasBackup reports whether a backup sibling exists.
func (t Target) HasBackup() bool {
	_, err := os.Stat(t.BackupPath())
	return err == nil
}

func (t Target) mode() os.FileMode {
	if stat, err := os.Stat(t.Path); err == nil {
		return stat.Mode().Perm()
	}
	return 0644
}
