package normalizer

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is returned when a Policy can't drive the quality search.
var ErrInvalidPolicy = errors.New("invalid normalization policy")

// Policy describes size budget and quality search bounds.
type Policy struct {
	// TargetBytes is the default size budget of an encoded image.
	TargetBytes int
	// MaxWidth caps the width of the output. Images are never upscaled.
	MaxWidth int
	// DefaultWidth and DefaultHeight are assumed when the source header
	// can't be read.
	DefaultWidth  int
	DefaultHeight int

	StartQuality  int
	QualityFloor  int
	QualityStep   int
	MaxIterations int
	// NearLosslessQuality enables near-lossless encoding at or above it.
	NearLosslessQuality int
	Effort              int

	// MinFallbackWidth is the smallest width the dimension fallback shrinks to.
	MinFallbackWidth int
	// FallbackQuality is the lowest quality used for the shrunk encode.
	FallbackQuality int
}

// DefaultPolicy returns the policy used for product and banner images.
func DefaultPolicy() Policy {
	return Policy{
		TargetBytes:         100 * 1024,
		MaxWidth:            1920,
		DefaultWidth:        1920,
		DefaultHeight:       1080,
		StartQuality:        100,
		QualityFloor:        50,
		QualityStep:         5,
		MaxIterations:       10,
		NearLosslessQuality: 90,
		Effort:              6,
		MinFallbackWidth:    800,
		FallbackQuality:     85,
	}
}

// Validate checks that the policy is consistent.
func (p Policy) Validate() error {
	switch {
	case p.TargetBytes <= 0:
		return fmt.Errorf("%w: target bytes must be positive, got %d", ErrInvalidPolicy, p.TargetBytes)
	case p.MaxWidth <= 0:
		return fmt.Errorf("%w: max width must be positive, got %d", ErrInvalidPolicy, p.MaxWidth)
	case p.DefaultWidth <= 0 || p.DefaultHeight <= 0:
		return fmt.Errorf("%w: default dimensions must be positive, got %dx%d", ErrInvalidPolicy, p.DefaultWidth, p.DefaultHeight)
	case p.StartQuality < 1 || p.StartQuality > 100:
		return fmt.Errorf("%w: start quality is not in range [1-100]", ErrInvalidPolicy)
	case p.QualityFloor < 1 || p.QualityFloor > p.StartQuality:
		return fmt.Errorf("%w: quality floor is not in range [1-%d]", ErrInvalidPolicy, p.StartQuality)
	case p.QualityStep <= 0:
		return fmt.Errorf("%w: quality step must be positive, got %d", ErrInvalidPolicy, p.QualityStep)
	case p.MaxIterations < 0:
		return fmt.Errorf("%w: max iterations must not be negative, got %d", ErrInvalidPolicy, p.MaxIterations)
	case p.Effort < 0 || p.Effort > 6:
		return fmt.Errorf("%w: effort is not in range [0-6]", ErrInvalidPolicy)
	case p.MinFallbackWidth <= 0:
		return fmt.Errorf("%w: min fallback width must be positive, got %d", ErrInvalidPolicy, p.MinFallbackWidth)
	case p.FallbackQuality < 1 || p.FallbackQuality > 100:
		return fmt.Errorf("%w: fallback quality is not in range [1-100]", ErrInvalidPolicy)
	}
	return nil
}

func (p Policy) options(quality int) EncodeOptions {
	return EncodeOptions{
		Quality:        quality,
		Effort:         p.Effort,
		NearLossless:   quality >= p.NearLosslessQuality,
		SmartSubsample: true,
	}
}
