package normalizer

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
)

// WebP encodes images with the libwebp bundled by chai2010/webp. It needs no
// system libraries.
//
// Only quality is honoured. The binding has no way to set effort,
// near-lossless or smart subsampling, those stay at libwebp defaults. The
// libvips package provides an encoder supporting all options.
type WebP struct{}

// Encode implements Encoder.
func (WebP) Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{
		Quality: float32(opts.Quality),
	}); err != nil {
		return nil, fmt.Errorf("webp encoding at quality %d failed with error: %w", opts.Quality, err)
	}
	return buf.Bytes(), nil
}

// Format implements Encoder.
func (WebP) Format() string { return "webp" }

// ContentType implements Encoder.
func (WebP) ContentType() string { return "image/webp" }
