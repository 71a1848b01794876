package users

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bbrks/go-blurhash"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	avatarDirName = "avatars"
	// BlurHash only needs a thumbnail; encoding the full image is slow.
	blurHashSize = 64
	// MaxAvatarDimension caps width and height so a small compressed file
	// can't expand into a huge bitmap.
	MaxAvatarDimension = 4096
)

var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AvatarStore writes avatar images under <mediaDir>/avatars.
type AvatarStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func NewAvatarStore(mediaDir string, maxBytes int64) *AvatarStore {
	return &AvatarStore{
		dir:      filepath.Join(mediaDir, avatarDirName),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// MaxBytes is the largest accepted upload.
func (s *AvatarStore) MaxBytes() int64 {
	return s.maxBytes
}

type SavedAvatar struct {
	Filename string
	BlurHash string
}

// Save checks that data is an image by sniffing its content and decoding it,
// then writes it as <unix-ms>-<uuid><ext>.
func (s *AvatarStore) Save(data []byte) (*SavedAvatar, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, errcodes.PayloadTooLarge(fmt.Sprintf("Avatar must be at most %d bytes", s.maxBytes))
	}

	mtype := mimetype.Detect(data)
	if !allowedAvatarTypes[mtype.String()] {
		return nil, errcodes.ValidationError("Only image files are allowed")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errcodes.ValidationError("Avatar is not a valid image")
	}
	if cfg.Width > MaxAvatarDimension || cfg.Height > MaxAvatarDimension {
		return nil, errcodes.ValidationError(fmt.Sprintf("Avatar must be at most %dx%d pixels", MaxAvatarDimension, MaxAvatarDimension))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errcodes.ValidationError("Avatar is not a valid image")
	}

	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		// the placeholder is cosmetic, the avatar itself is still fine
		hash = ""
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.New().String(), mtype.Extension())
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, errors.WithStack(err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return nil, errors.WithStack(err)
	}

	return &SavedAvatar{Filename: name, BlurHash: hash}, nil
}

// Remove deletes a stored avatar. Names that would escape the avatar
// directory are ignored.
func (s *AvatarStore) Remove(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

// Path returns where an avatar file lives on disk.
func (s *AvatarStore) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= blurHashSize && h <= blurHashSize {
		return img
	}
	dw, dh := blurHashSize, blurHashSize
	if w > h {
		dh = max(1, h*blurHashSize/w)
	} else {
		dw = max(1, w*blurHashSize/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
