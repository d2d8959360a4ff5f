package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"quizify-service/internal/domain"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	// DefaultMaxBytes is the upload ceiling.
	DefaultMaxBytes  = 5 << 20
	// DefaultMaxPixels caps the decoded bitmap; compressed size says little about it.
	DefaultMaxPixels = 40_000_000
	maxDimension     = 1600
	webpQuality      = 85
)

// Store re-encodes uploaded images as WebP and writes them under a local directory that the HTTP
// server exposes as static files.
type Store struct {
	dir       string
	baseURL   string
	maxBytes  int64
	maxPixels int
}

// NewStore serves files written to dir at baseURL (for example "/uploads").
func NewStore(dir, baseURL string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory is empty")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		dir:       dir,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxBytes:  maxBytes,
		maxPixels: DefaultMaxPixels,
	}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save validates, downsizes and stores one image, returning its public URL.
func (s *Store) Save(_ context.Context, folder string, src io.Reader, size int64) (string, error) {
	if src == nil {
		return "", domain.ErrMissingImage
	}
	if size > s.maxBytes {
		return "", domain.ErrImageTooLarge
	}
	raw, err := io.ReadAll(io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > s.maxBytes {
		return "", domain.ErrImageTooLarge
	}
	if len(raw) == 0 {
		return "", domain.ErrMissingImage
	}

	img, err := decode(raw, s.maxPixels)
	if err != nil {
		return "", err
	}
	img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return "", fmt.Errorf("encode webp: %w", err)
	}

	folder = sanitizeFolder(folder)
	name := uuid.NewString() + ".webp"
	target := filepath.Join(s.dir, folder)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, name), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return s.baseURL + "/" + path.Join(folder, name), nil
}

// decode reads the header first and refuses images whose bitmap would exceed maxPixels.
func decode(raw []byte, maxPixels int) (image.Image, error) {
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	switch http.DetectContentType(head) {
	case "image/jpeg", "image/png", "image/gif":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return nil, domain.ErrUnsupportedImage
		}
		if err := checkPixels(cfg, maxPixels); err != nil {
			return nil, err
		}
		img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
		if err != nil {
			return nil, domain.ErrUnsupportedImage
		}
		return img, nil
	case "image/webp":
		cfg, err := webp.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return nil, domain.ErrUnsupportedImage
		}
		if err := checkPixels(cfg, maxPixels); err != nil {
			return nil, err
		}
		img, err := webp.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, domain.ErrUnsupportedImage
		}
		return img, nil
	}
	return nil, domain.ErrUnsupportedImage
}

func checkPixels(cfg image.Config, maxPixels int) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.ErrUnsupportedImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return domain.ErrImageDimensions
	}
	return nil
}

func sanitizeFolder(folder string) string {
	folder = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, folder)
	if folder == "" {
		return "misc"
	}
	return folder
}
