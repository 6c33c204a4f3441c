// Package storage provides disk-backed file storage for user uploads
// (profile images and report files). Files are written under a configurable
// root and referenced by URL-style paths like "/uploads/reports/<name>" that
// are stored verbatim in database records and served statically.
package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrFileNotFound       = errors.New("file not found")
)

// ---------------------------------------------------------------------------
// Validation constants
// ---------------------------------------------------------------------------

// MaxProfileImageSize is the upload cap for profile images (5 MB).
const MaxProfileImageSize = 5 * 1024 * 1024

// MaxReportFileSize is the upload cap for report files (10 MB).
const MaxReportFileSize = 10 * 1024 * 1024

// AllowedContentType reports whether a MIME type may be uploaded. Only images
// and PDFs are accepted.
func AllowedContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}

// ---------------------------------------------------------------------------
// FileStore
// ---------------------------------------------------------------------------

// FileStore is the contract for upload storage backends.
type FileStore interface {
	// Save validates and stores content under the given category
	// ("reports", "profile"), returning the public URL path for the file.
	Save(category, origName, contentType string, content io.Reader, maxSize int64) (string, error)
	// Resolve maps a stored URL path back to an absolute filesystem path,
	// returning ErrFileNotFound when the file does not exist.
	Resolve(urlPath string) (string, error)
	// Remove deletes a stored file by its URL path.
	Remove(urlPath string) error
}

// DiskStore stores uploads on the local filesystem.
type DiskStore struct {
	root string // filesystem directory backing the /uploads prefix
}

// NewDiskStore creates the upload root (and the reports subdirectory) and
// returns a ready store.
func NewDiskStore(root string) (*DiskStore, error) {
	for _, dir := range []string{root, filepath.Join(root, "reports"), filepath.Join(root, "profile")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
		}
	}
	return &DiskStore{root: root}, nil
}

// Root returns the filesystem directory backing the store.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Save(category, origName, contentType string, content io.Reader, maxSize int64) (string, error) {
	if !AllowedContentType(contentType) {
		return "", ErrInvalidContentType
	}

	name := fmt.Sprintf("%s-%d-%d%s", strings.TrimSuffix(category, "s"),
		time.Now().UnixMilli(), rand.Intn(1_000_000_000), strings.ToLower(filepath.Ext(origName)))
	dst := filepath.Join(s.root, category, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	// Copy one byte past the limit so oversized content is detected even
	// without a trustworthy Content-Length.
	n, err := io.Copy(f, io.LimitReader(content, maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if n > maxSize {
		os.Remove(dst)
		return "", ErrFileTooLarge
	}

	return "/uploads/" + category + "/" + name, nil
}

func (s *DiskStore) Resolve(urlPath string) (string, error) {
	rel, ok := strings.CutPrefix(urlPath, "/uploads/")
	if !ok {
		return "", ErrFileNotFound
	}
	// Reject traversal out of the upload root.
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrFileNotFound
	}

	abs := filepath.Join(s.root, rel)
	if _, err := os.Stat(abs); err != nil {
		return "", ErrFileNotFound
	}
	return abs, nil
}

func (s *DiskStore) Remove(urlPath string) error {
	abs, err := s.Resolve(urlPath)
	if err != nil {
		return err
	}
	return os.Remove(abs)
}
