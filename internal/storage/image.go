package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register decoder

	"github.com/nfnt/resize"
)

var (
	ErrImageTooLarge    = errors.New("image exceeds the maximum allowed size")
	ErrUnsupportedImage = errors.New("unsupported image format or corrupt image")
)

const jpegQuality = 85

// NormalizeImage decodes data, shrinks it to fit within maxDim x maxDim and re-encodes it as JPEG.
// maxBytes applies to both the input and the output.
func NormalizeImage(data []byte, maxDim int, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d > %d bytes)", ErrImageTooLarge, len(data), maxBytes)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	if maxDim > 0 && (img.Bounds().Dx() > maxDim || img.Bounds().Dy() > maxDim) {
		img = resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if maxBytes > 0 && int64(buf.Len()) > maxBytes {
		return nil, fmt.Errorf("%w after re-encoding (%d > %d bytes)", ErrImageTooLarge, buf.Len(), maxBytes)
	}
	return buf.Bytes(), nil
}
