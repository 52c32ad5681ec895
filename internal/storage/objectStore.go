package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/GoIndexer/internal/domain/docModel"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
)

// ObjectStore is the blob-storage collaborator. Fetch resolves a reference to
// a readable local path; cloud implementations would download to a temp file.
type ObjectStore interface {
	Fetch(ctx context.Context, ref docModel.SourceReference) (path string, size int64, err error)
	Delete(ctx context.Context, ref docModel.SourceReference) (bool, error)
}

// LocalStore keeps blobs on disk under <root>/<container>/<object>, the same
// layout the upload handler writes into.
type LocalStore struct {
	root   string
	logger *logger_i.Logger
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &LocalStore{
		root:   root,
		logger: logger_i.NewLogger("LocalStore"),
	}, nil
}

func (s *LocalStore) Fetch(ctx context.Context, ref docModel.SourceReference) (string, int64, error) {
	path := s.path(ref)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", 0, fmt.Errorf("%s: %w", ref, docModel.ErrSourceNotFound)
	}
	if err != nil {
		return "", 0, err
	}
	if info.IsDir() {
		return "", 0, fmt.Errorf("%s: %w", ref, docModel.ErrSourceNotFound)
	}
	return path, info.Size(), nil
}

func (s *LocalStore) Delete(ctx context.Context, ref docModel.SourceReference) (bool, error) {
	err := os.Remove(s.path(ref))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Debug("Deleted source object", "ref", ref.String())
	return true, nil
}

// Put exists for the webhook upload path and for tests.
func (s *LocalStore) Put(ctx context.Context, ref docModel.SourceReference, data []byte) error {
	path := s.path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}

func (s *LocalStore) path(ref docModel.SourceReference) string {
	return filepath.Join(s.root, ref.Container, filepath.FromSlash(ref.Blob))
}
