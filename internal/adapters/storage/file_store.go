package storage

import (
	"Onboarding/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ErrInvalidPath is returned for paths that would escape the storage root.
var ErrInvalidPath = errors.New("invalid storage path")

// fileStore keeps uploads under a root directory of an afero filesystem.
// Returned paths are slash-separated and relative to the root.
type fileStore struct {
	fs  afero.Fs
	log zerolog.Logger
}

var _ ports.FileStorage = (*fileStore)(nil)

// NewFileStore stores files below root on the OS filesystem.
func NewFileStore(root string, baseLogger *zerolog.Logger) (ports.FileStorage, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return NewFileStoreFs(afero.NewBasePathFs(osFs, root), baseLogger), nil
}

// NewFileStoreFs uses fs as the storage root. Tests pass afero.NewMemMapFs().
func NewFileStoreFs(fs afero.Fs, baseLogger *zerolog.Logger) ports.FileStorage {
	return &fileStore{
		fs:  fs,
		log: baseLogger.With().Str("component", "file_store").Logger(),
	}
}

// Store writes the upload under dir with a generated name that keeps the
// original extension.
func (s *fileStore) Store(ctx context.Context, upload ports.Upload, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanDir, err := cleanRelative(dir)
	if err != nil {
		return "", err
	}
	if upload.Content == nil {
		return "", errors.New("upload has no content")
	}

	ext := strings.ToLower(path.Ext(filepath.Base(upload.Filename)))
	rel := path.Join(cleanDir, uuid.NewString()+ext)

	if err := s.fs.MkdirAll(cleanDir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", cleanDir, err)
	}
	f, err := s.fs.OpenFile(rel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	n, copyErr := io.Copy(f, upload.Content)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = s.fs.Remove(rel)
		return "", fmt.Errorf("write file: %w", errors.Join(copyErr, closeErr))
	}

	s.log.Debug().Str("path", rel).Int64("bytes", n).Str("content_type", upload.ContentType).Msg("File stored")
	return rel, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *fileStore) Delete(ctx context.Context, p string) error {
	rel, err := cleanRelative(p)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error().Err(err).Str("path", rel).Msg("Failed to delete file")
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func cleanRelative(p string) (string, error) {
	p = filepath.ToSlash(strings.TrimSpace(p))
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", ErrInvalidPath
		}
	}
	return path.Clean(p), nil
}
