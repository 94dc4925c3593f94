package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
)

// ThumbnailExt is the extension of generated thumbnails
const ThumbnailExt = ".jpg"

// MaxThumbnailPixels bounds the source images CreateThumb will decode
const MaxThumbnailPixels = 50_000_000

// ErrImageTooLarge is returned when an image declares more pixels than MaxThumbnailPixels
var ErrImageTooLarge = errors.New("image dimensions too large for a thumbnail")

// CreateThumb decodes an image from r and writes a JPEG that fits in size x size.
// Images larger than MaxThumbnailPixels are refused before their pixels are decoded.
func CreateThumb(size uint, r io.Reader, w io.Writer) error {
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxThumbnailPixels {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := resize.Thumbnail(size, size, img, resize.Lanczos3)
	if err := jpeg.Encode(w, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return nil
}
