// Package filestore keeps uploaded problem files addressable by an opaque
// reference so the pipeline can re-read them on retry.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/anhducmata/myath/constants"
)

// ErrUnsupportedType is returned for uploads outside the accepted formats.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrNotFound is returned when a reference resolves to nothing.
var ErrNotFound = errors.New("file not found")

// Store persists uploaded files and serves them back by reference.
type Store interface {
	// Put validates the extension of name and stores data under a fresh
	// reference.
	Put(ctx context.Context, name string, data []byte) (ref string, err error)
	// Get returns the stored bytes and their MIME type.
	Get(ctx context.Context, ref string) (data []byte, mimeType string, err error)
}

// LocalStore writes files into a flat directory. References are the stored
// file names, so they stay valid across restarts.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create file store directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Put(_ context.Context, name string, data []byte) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(name))
	}
	if len(data) == 0 {
		return "", errors.New("empty file")
	}
	ref := uuid.NewString() + "." + ext
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return ref, nil
}

func (s *LocalStore) Get(_ context.Context, ref string) ([]byte, string, error) {
	// refs are generated names; reject anything that escapes the directory
	if ref == "" || strings.ContainsAny(ref, `/\`) {
		return nil, "", fmt.Errorf("%w: invalid reference %q", ErrNotFound, ref)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	mime := constants.MapExtToMIME(filepath.Ext(ref))
	if mime == "" {
		return nil, "", fmt.Errorf("%w: reference %q has no known type", ErrUnsupportedType, ref)
	}
	return data, mime, nil
}
