// Package filex holds filesystem helpers for the client: the local data
// directory and reading report photos from disk.
package filex

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// MaxPhotoSize caps the size of a report photo.
const MaxPhotoSize = 10 << 20

// ErrUnsupportedPhoto is returned for files that are not JPEG or PNG images.
var ErrUnsupportedPhoto = errors.New("photo must be a JPEG or PNG image")

// ErrPhotoTooLarge is returned for files above MaxPhotoSize.
var ErrPhotoTooLarge = errors.New("photo is larger than 10 MiB")

// EnsureParentDir creates the directory that will hold file, if missing.
func EnsureParentDir(file string) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// ReadPhoto loads an image from disk and returns its bytes together with the
// sniffed content type.
func ReadPhoto(path string) ([]byte, string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if st.Size() > MaxPhotoSize {
		return nil, "", ErrPhotoTooLarge
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	ct := http.DetectContentType(data)
	switch ct {
	case "image/jpeg", "image/png":
		return data, ct, nil
	default:
		return nil, "", ErrUnsupportedPhoto
	}
}
