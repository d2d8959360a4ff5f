package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quizify-service/internal/domain"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveConvertsAndDownscales(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "/uploads", 0)
	require.NoError(t, err)

	raw := pngOf(t, 3200, 800)
	url, err := store.Save(context.Background(), "Quiz Images", bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/quizimages/"))
	assert.True(t, strings.HasSuffix(url, ".webp"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestSaveRejectsUnsupportedAndLarge(t *testing.T) {
	store, err := NewStore(t.TempDir(), "/uploads", 1024)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "x", strings.NewReader("%PDF-1.4 not an image"), 21)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedImage))

	_, err = store.Save(context.Background(), "x", bytes.NewReader(make([]byte, 2048)), 2048)
	assert.True(t, errors.Is(err, domain.ErrImageTooLarge))

	// size unknown to the caller still hits the limit
	_, err = store.Save(context.Background(), "x", bytes.NewReader(make([]byte, 2048)), -1)
	assert.True(t, errors.Is(err, domain.ErrImageTooLarge))

	_, err = store.Save(context.Background(), "x", bytes.NewReader(nil), 0)
	assert.True(t, errors.Is(err, domain.ErrMissingImage))
}

// withDimensions rewrites the IHDR chunk of a PNG so it declares w×h without carrying the pixels.
func withDimensions(t *testing.T, raw []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), raw...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestSaveRejectsOversizedBitmapsBeforeDecoding(t *testing.T) {
	store, err := NewStore(t.TempDir(), "/uploads", 0)
	require.NoError(t, err)

	bomb := withDimensions(t, pngOf(t, 1, 1), 40000, 40000)
	_, err = store.Save(context.Background(), "x", bytes.NewReader(bomb), int64(len(bomb)))
	assert.True(t, errors.Is(err, domain.ErrImageDimensions), "got %v", err)

	store.maxPixels = 100 * 100
	raw := pngOf(t, 200, 100)
	_, err = store.Save(context.Background(), "x", bytes.NewReader(raw), int64(len(raw)))
	assert.True(t, errors.Is(err, domain.ErrImageDimensions), "got %v", err)

	raw = pngOf(t, 100, 100)
	_, err = store.Save(context.Background(), "x", bytes.NewReader(raw), int64(len(raw)))
	assert.NoError(t, err)
}

func TestSanitizeFolder(t *testing.T) {
	assert.Equal(t, "profiles", sanitizeFolder("profiles"))
	assert.Equal(t, "etcpasswd", sanitizeFolder("../etc/passwd"))
	assert.Equal(t, "misc", sanitizeFolder("///"))
}
