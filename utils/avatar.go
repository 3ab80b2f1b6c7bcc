package utils

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMediaFormat rejects content outside the avatar allow-list.
	ErrMediaFormat = errors.New("unsupported media format")
	// ErrMediaTooLarge rejects uploads over the configured byte limit.
	ErrMediaTooLarge = errors.New("media exceeds size limit")
)

// allowedImageExt maps accepted sniffed content types to the extension the
// stored object gets.
var allowedImageExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// AvatarStore keeps avatar images on local disk and hands out locators under
// BaseURL, which the HTTP layer serves statically. Size and format are
// checked before anything touches the disk.
type AvatarStore struct {
	Dir      string
	BaseURL  string
	MaxBytes int
	Logger   *logrus.Logger
}

func NewAvatarStore(dir, baseURL string, maxBytes int, logger *logrus.Logger) (*AvatarStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating avatar dir: %w", err)
	}
	return &AvatarStore{
		Dir:      dir,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		MaxBytes: maxBytes,
		Logger:   logger,
	}, nil
}

// Save validates the bytes and writes them under a fresh name. The declared
// content type is advisory only; the sniffed type decides.
func (a *AvatarStore) Save(data []byte, declaredType string) (string, error) {
	if len(data) == 0 {
		return "", ErrMediaFormat
	}
	if a.MaxBytes > 0 && len(data) > a.MaxBytes {
		return "", ErrMediaTooLarge
	}

	sniffed := mimetype.Detect(data).String()
	ext, ok := allowedImageExt[sniffed]
	if !ok {
		a.Logger.WithFields(logrus.Fields{
			"declared": declaredType,
			"sniffed":  sniffed,
		}).Warn("Rejected avatar upload")
		return "", ErrMediaFormat
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(a.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing avatar: %w", err)
	}

	return a.BaseURL + "/" + name, nil
}

// Remove deletes the object behind the locator. Idempotent: a locator that
// is already gone, or that never pointed into this store, is a no-op. Errors
// stay here.
func (a *AvatarStore) Remove(locator string) {
	if locator == "" {
		return
	}
	name := path.Base(locator)
	if name == "." || name == "/" || name == ".." {
		return
	}
	if err := os.Remove(filepath.Join(a.Dir, name)); err != nil && !os.IsNotExist(err) {
		a.Logger.WithField("locator", locator).WithError(err).Warn("Failed to remove avatar")
	}
}
