package normalizer

import "image"

// EncodeOptions are passed to an Encoder for a single encode.
type EncodeOptions struct {
	// Quality is in range [1-100].
	Quality int
	// Effort trades encode time for compression ratio, 0 is fastest, 6 is best.
	Effort         int
	NearLossless   bool
	SmartSubsample bool
}

// Encoder encodes pixels into a lossy web format.
type Encoder interface {
	Encode(img image.Image, opts EncodeOptions) ([]byte, error)
	// Format returns the format name, also used as file extension.
	Format() string
	ContentType() string
}
