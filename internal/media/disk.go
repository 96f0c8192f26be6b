package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"dreamcore/internal/config"
	"dreamcore/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultMediaDir  = "./media"
	DefaultMaxSizeMB = 10
	masterMaxSize    = 2048
	thumbMaxSize     = 256
	webpQuality      = 80
	thumbSuffix      = "_thumb"
	mediaExt         = ".webp"
)

// DiskStore writes assets into a flat directory. Names are random UUIDs, so
// refs carry no user data and cannot collide.
type DiskStore struct {
	dir      string
	maxBytes int64
}

func NewDiskStore(cfg *config.Config) *DiskStore {
	dir := DefaultMediaDir
	maxSizeMB := DefaultMaxSizeMB
	if cfg != nil {
		if cfg.MediaDir != "" {
			dir = cfg.MediaDir
		}
		if cfg.MediaMaxSizeMB > 0 {
			maxSizeMB = cfg.MediaMaxSizeMB
		}
	}
	return &DiskStore{dir: dir, maxBytes: int64(maxSizeMB) * 1024 * 1024}
}

func (s *DiskStore) Save(_ context.Context, in SaveInput) (*Asset, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	master := resizeToFit(decoded, masterMaxSize, masterMaxSize)
	thumb := resizeToFit(decoded, thumbMaxSize, thumbMaxSize)

	masterBytes, err := encodeWebP(master)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	thumbBytes, err := encodeWebP(thumb)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	name := uuid.New().String()
	ref := name + mediaExt
	thumbRef := name + thumbSuffix + mediaExt

	if err := writeFile(filepath.Join(s.dir, ref), masterBytes); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := writeFile(filepath.Join(s.dir, thumbRef), thumbBytes); err != nil {
		_ = os.Remove(filepath.Join(s.dir, ref))
		return nil, models.NewInternalError(err)
	}

	b := master.Bounds()
	return &Asset{
		Ref:       ref,
		ThumbRef:  thumbRef,
		Width:     b.Dx(),
		Height:    b.Dy(),
		SizeBytes: int64(len(masterBytes)),
	}, nil
}

func (s *DiskStore) Delete(_ context.Context, ref string) error {
	name, ok := parseRef(ref)
	if !ok {
		return models.NewValidationError("Invalid media ref")
	}
	if err := removeIfExists(filepath.Join(s.dir, name+mediaExt)); err != nil {
		return models.NewInternalError(err)
	}
	if err := removeIfExists(filepath.Join(s.dir, name+thumbSuffix+mediaExt)); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *DiskStore) Resolve(ref string) (string, error) {
	if !isValidRef(ref) {
		return "", models.NewValidationError("Invalid media ref")
	}
	path := filepath.Join(s.dir, ref)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", models.NewNotFoundError("Media", ref)
		}
		return "", models.NewInternalError(err)
	}
	return path, nil
}

// parseRef strips the extension and thumbnail suffix, returning the UUID stem.
// Refs that are not a bare UUID name never touch the filesystem.
func parseRef(ref string) (string, bool) {
	if !isValidRef(ref) {
		return "", false
	}
	name := strings.TrimSuffix(ref, mediaExt)
	name = strings.TrimSuffix(name, thumbSuffix)
	return name, true
}

func isValidRef(ref string) bool {
	if ref == "" || ref != filepath.Base(ref) || !strings.HasSuffix(ref, mediaExt) {
		return false
	}
	name := strings.TrimSuffix(ref, mediaExt)
	name = strings.TrimSuffix(name, thumbSuffix)
	_, err := uuid.Parse(name)
	return err == nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
