package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for keys that escape the media directory.
var ErrInvalidKey = errors.New("invalid media key")

// Media stores uploaded files on the local filesystem under a root directory.
// Keys are slash-separated paths relative to the root, e.g. "books/dune-<uuid>.jpg".
type Media struct {
	root      string
	urlPrefix string
}

// NewMedia creates the root directory if needed.
func NewMedia(root, urlPrefix string) (*Media, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Media{
		root:      root,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// Root returns the directory served under URLPrefix.
func (m *Media) Root() string { return m.root }

// URLPrefix returns the public path prefix of stored files.
func (m *Media) URLPrefix() string { return m.urlPrefix }

// URL returns the public path of key, or "" for an empty key.
func (m *Media) URL(key string) string {
	if key == "" {
		return ""
	}
	return path.Join(m.urlPrefix, key)
}

// Save writes data under key. The file is written to a temporary name first and renamed,
// so readers never observe a partial file.
func (m *Media) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := m.resolve(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

// Remove deletes the file at key. Missing files are not an error.
func (m *Media) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	fullPath, err := m.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether a file is stored under key.
func (m *Media) Exists(key string) bool {
	fullPath, err := m.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

func (m *Media) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(m.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// CoverKey returns a fresh key for a book cover: books/<slug-of-title>-<uuid>.jpg.
func CoverKey(title string) string {
	slug := Slugify(title)
	if slug == "" {
		return fmt.Sprintf("books/%s.jpg", uuid.New())
	}
	return fmt.Sprintf("books/%s-%s.jpg", slug, uuid.New())
}

// Slugify lowercases s and joins its letter and digit runs with single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
