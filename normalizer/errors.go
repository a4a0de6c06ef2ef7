package normalizer

import "fmt"

// DecodeError is returned when the source bytes aren't a parseable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding source image failed with error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is returned when the encoder fails, including when it runs out
// of memory for very large images.
type EncodeError struct {
	Quality int
	Width   int
	Height  int
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding %dx%d image at quality %d failed with error: %v", e.Width, e.Height, e.Quality, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
