// Package filestore keeps one file per slot under a root directory.
//
// Layout: <root>/user-<index>/<slot>.sav. Writes go through a temporary file
// and an atomic rename, so a crash never leaves a half-written blob.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/storage"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

const (
	ext       = ".sav"
	dirPerms  = 0o755
	filePerms = 0o644
)

// Store is a storage.BlobStore on the local filesystem.
type Store struct {
	logger logger.Logger
	root   string
}

var _ storage.BlobStore = (*Store)(nil)

// Open creates root if needed and returns a Store over it.
func Open(log logger.Logger, root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, storage.ErrInvalidConfig("path is required")
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, dirPerms); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}

	log.Info("file store opened", zap.String("root", root))
	return &Store{logger: log, root: root}, nil
}

func (s *Store) Exists(ctx context.Context, key storage.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, storage.ErrRead(key, err)
	}
}

func (s *Store) Read(ctx context.Context, key storage.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrMissing(key)
	}
	if err != nil {
		return nil, storage.ErrRead(key, err)
	}
	return blob, nil
}

func (s *Store) Write(ctx context.Context, key storage.Key, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return storage.ErrWrite(key, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(blob)); err != nil {
		return storage.ErrWrite(key, err)
	}
	// atomic.WriteFile keeps the temp file mode
	if err := os.Chmod(path, filePerms); err != nil {
		return storage.ErrWrite(key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key storage.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrMissing(key)
	}
	if err != nil {
		return storage.ErrWrite(key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, user int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.userDir(user))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: list user %d: %w", user, err)
	}

	var slots []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		slots = append(slots, strings.TrimSuffix(name, ext))
	}
	slices.Sort(slots)
	return slots, nil
}

func (s *Store) Close() error { return nil }

// Root returns the directory the store writes to.
func (s *Store) Root() string { return s.root }

func (s *Store) userDir(user int) string {
	return filepath.Join(s.root, "user-"+strconv.Itoa(user))
}

func (s *Store) path(key storage.Key) (string, error) {
	if err := ValidateSlot(key.Slot); err != nil {
		return "", err
	}
	if key.User < 0 {
		return "", fmt.Errorf("%w: negative user index %d", storage.ErrInvalidSlot, key.User)
	}
	return filepath.Join(s.userDir(key.User), key.Slot+ext), nil
}

// ValidateSlot rejects slot names that cannot be used as a single file name.
func ValidateSlot(slot string) error {
	switch {
	case slot == "", slot == ".", slot == "..":
		return fmt.Errorf("%w: %q", storage.ErrInvalidSlot, slot)
	case strings.ContainsAny(slot, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", storage.ErrInvalidSlot, slot)
	}
	return nil
}
