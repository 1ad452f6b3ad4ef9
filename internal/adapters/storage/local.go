package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/packlane/fulfillment-service/internal/domain"
)

// LocalReportStore persists report files on the local filesystem.
// File names are validated against the report-name shape before any
// path is built, which also rules out traversal.
type LocalReportStore struct {
	dir string
}

// NewLocalReportStore creates the store and its directory.
func NewLocalReportStore(dir string) (*LocalReportStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("reports directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &LocalReportStore{dir: dir}, nil
}

func (s *LocalReportStore) Write(_ context.Context, name string, data []byte) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize report: %w", err)
	}
	return nil
}

func (s *LocalReportStore) Read(_ context.Context, name string) ([]byte, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	return data, nil
}

func (s *LocalReportStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *LocalReportStore) Delete(_ context.Context, name string) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

func (s *LocalReportStore) pathFor(name string) (string, error) {
	if _, ok := domain.ParseReportFileName(name); !ok {
		return "", fmt.Errorf("%w: invalid report file name", domain.ErrInvalidInput)
	}
	return filepath.Join(s.dir, name), nil
}
