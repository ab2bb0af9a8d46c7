package receipts

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes receipts below a directory and hands out file:// URIs.
type LocalStore struct {
	dir string
	now func() time.Time
}

func NewLocal(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve receipts dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create receipts dir: %w", err)
	}
	return &LocalStore{dir: abs, now: time.Now}, nil
}

func (s *LocalStore) Put(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	mt, err := NormalizeContentType(contentType)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.dir, filepath.FromSlash(BuildKey(s.now(), mt)))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write receipt %s: %w", filename, err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(full)}
	return u.String(), nil
}
