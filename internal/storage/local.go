package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LocalStorage writes objects under Root and serves them from BaseURL.
type LocalStorage struct {
	Root    string
	BaseURL string // e.g. http://localhost:8080/fichiers
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage root %s", root)
	}
	return &LocalStorage{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStorage) Upload(_ context.Context, objectPath, _ string, data []byte) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	full := filepath.Join(s.Root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrap(err, "create object dir")
	}
	return errors.Wrapf(os.WriteFile(full, data, 0o644), "write %s", p)
}

func (s *LocalStorage) URL(_ context.Context, objectPath string) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return s.BaseURL + "/" + p, nil
}

func (s *LocalStorage) Delete(_ context.Context, objectPath string) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Root, filepath.FromSlash(p)))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(err, "remove %s", p)
}
