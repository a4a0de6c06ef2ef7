// Package libvips encodes normalized images with libvips webpsave.
//
// Unlike normalizer.WebP it honours every normalizer.EncodeOptions field:
// effort maps to the libwebp method, near-lossless switches to the lossless
// encoder with quality driven preprocessing and smart subsampling enables
// sharp RGB to YUV conversion.
package libvips

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/cshum/vipsgen/vips"

	"github.com/zeecrown/imager/normalizer"
)

// WebP implements normalizer.Encoder. vips.Startup should be called before
// the first Encode.
type WebP struct{}

var _ normalizer.Encoder = WebP{}

// Encode implements normalizer.Encoder.
func (WebP) Encode(img image.Image, opts normalizer.EncodeOptions) ([]byte, error) {
	// vips loads from encoded buffers, PNG keeps the pixels lossless
	buf := new(bytes.Buffer)
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("preparing pixels for libvips failed with error: %w", err)
	}

	vimg, err := vips.NewImageFromBuffer(buf.Bytes(), &vips.LoadOptions{
		Access: vips.AccessSequential,
	})
	if err != nil {
		return nil, fmt.Errorf("loading image into libvips failed with error: %w", err)
	}
	defer vimg.Close()

	data, err := vimg.WebpsaveBuffer(&vips.WebpsaveBufferOptions{
		Q:              opts.Quality,
		Effort:         opts.Effort,
		NearLossless:   opts.NearLossless,
		SmartSubsample: opts.SmartSubsample,
		AlphaQ:         100,
	})
	if err != nil {
		return nil, fmt.Errorf("webp encoding at quality %d failed with error: %w", opts.Quality, err)
	}
	return data, nil
}

// Format implements normalizer.Encoder.
func (WebP) Format() string { return "webp" }

// ContentType implements normalizer.Encoder.
func (WebP) ContentType() string { return "image/webp" }
