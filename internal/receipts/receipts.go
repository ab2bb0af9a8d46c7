// Package receipts stores uploaded receipt images and documents and returns
// an opaque location that a draft attachment carries as its imageLocation.
package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MaxSize bounds a single upload.
const MaxSize = 10 << 20

const (
	keySize     = 21
	keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var (
	ErrUnsupportedType = errors.New("unsupported receipt content type")
	ErrTooLarge        = errors.New("receipt exceeds maximum size")
)

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/heic":      ".heic",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Store persists one receipt and returns where it can be found again.
type Store interface {
	Put(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

// NormalizeContentType strips parameters and rejects anything that is not a
// photo or PDF.
func NormalizeContentType(contentType string) (string, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if _, ok := extensions[mt]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
	}
	return mt, nil
}

// IsPhoto reports whether a normalized content type is an image.
func IsPhoto(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// BuildKey returns receipts/YYYY/MM/<random>.<ext>. The original filename is
// never part of the key.
func BuildKey(now time.Time, contentType string) string {
	id := gonanoid.MustGenerate(keyAlphabet, keySize)
	now = now.UTC()
	return path.Join("receipts", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), id+extensions[contentType])
}

// readLimited buffers at most MaxSize bytes of r.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
