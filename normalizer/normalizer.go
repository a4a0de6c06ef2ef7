// Package normalizer converts uploaded images to size-constrained WebP.
//
// Quality is lowered in steps until the encoded image fits the byte budget.
// When the quality floor is reached first, dimensions are reduced once and
// the image is encoded again at a recovered quality.
package normalizer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
)

var errEmptySource = errors.New("source image is empty")

// Result is the outcome of a normalization.
type Result struct {
	Data    []byte
	Width   int
	Height  int
	Quality int
	// Fallback is set when dimensions were reduced below the width cap.
	Fallback bool

	SourceWidth  int
	SourceHeight int
	// SourceFormat is the registered image format name, empty if the header
	// couldn't be read.
	SourceFormat string

	Attempts []Attempt
}

// Output is a normalized image ready to be handed to storage.
type Output struct {
	Result
	FileName    string
	ContentType string
}

// Normalizer runs the quality search. It's safe for concurrent use.
type Normalizer struct {
	enc    Encoder
	policy Policy
	logger *slog.Logger
	now    func() time.Time

	decodeConfig func(io.Reader) (image.Config, string, error)
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(n *Normalizer) { n.policy = p }
}

// WithLogger sets the logger, slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// WithClock sets the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// New returns a Normalizer encoding with enc.
func New(enc Encoder, opts ...Option) (*Normalizer, error) {
	if enc == nil {
		return nil, errors.New("encoder is required")
	}
	n := &Normalizer{
		enc:    enc,
		policy: DefaultPolicy(),
		logger: slog.Default(),
		now:    time.Now,

		decodeConfig: image.DecodeConfig,
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.policy.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Policy returns the policy in use.
func (n *Normalizer) Policy() Policy { return n.policy }

// Normalize returns src encoded within targetBytes where achievable.
// A targetBytes of zero selects the policy default.
func (n *Normalizer) Normalize(src []byte, targetBytes int) ([]byte, error) {
	res, err := n.Run(src, targetBytes)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Process normalizes src and derives a storage file name from name.
func (n *Normalizer) Process(name string, src []byte, targetBytes int) (Output, error) {
	res, err := n.Run(src, targetBytes)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Result:      res,
		FileName:    FileName(name, n.enc.Format(), n.now()),
		ContentType: n.enc.ContentType(),
	}, nil
}

// Run normalizes src and reports every attempt of the search.
func (n *Normalizer) Run(src []byte, targetBytes int) (Result, error) {
	p := n.policy
	if targetBytes < 0 {
		return Result{}, fmt.Errorf("target size must not be negative, got %d", targetBytes)
	}
	if targetBytes == 0 {
		targetBytes = p.TargetBytes
	}
	if len(src) == 0 {
		return Result{}, &DecodeError{Err: errEmptySource}
	}

	res := Result{SourceWidth: p.DefaultWidth, SourceHeight: p.DefaultHeight}
	cfg, format, err := n.decodeConfig(bytes.NewReader(src))
	if err == nil && cfg.Width > 0 && cfg.Height > 0 {
		res.SourceWidth, res.SourceHeight, res.SourceFormat = cfg.Width, cfg.Height, format
	} else {
		n.logger.Warn("image header unreadable, assuming default dimensions",
			"width", p.DefaultWidth, "height", p.DefaultHeight, "error", err)
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, &DecodeError{Err: err}
	}

	w, h := res.SourceWidth, res.SourceHeight
	if b := img.Bounds(); w != h && b.Dx() == h && b.Dy() == w {
		// EXIF orientation transposed the image
		w, h = h, w
	}

	attempts, err := search(p, targetBytes, img, initialBox(p, w, h), n.encode)
	for _, a := range attempts {
		n.logger.Debug("encode attempt",
			"iteration", a.Iteration, "quality", a.Quality,
			"width", a.Width, "height", a.Height,
			"bytes", a.Size(), "fallback", a.Fallback)
	}
	if err != nil {
		return Result{}, err
	}

	final := attempts[len(attempts)-1]
	res.Data = final.Data
	res.Width, res.Height = final.Width, final.Height
	res.Quality = final.Quality
	res.Fallback = final.Fallback
	res.Attempts = attempts

	n.logger.Info("image normalized",
		"source", fmt.Sprintf("%dx%d", res.SourceWidth, res.SourceHeight),
		"resolution", fmt.Sprintf("%dx%d", res.Width, res.Height),
		"quality", res.Quality, "bytes", len(res.Data), "target", targetBytes,
		"attempts", len(attempts), "fallback", res.Fallback)
	if len(res.Data) > targetBytes {
		n.logger.Warn("image exceeds target size at quality and width floors",
			"bytes", len(res.Data), "target", targetBytes)
	}
	return res, nil
}

func (n *Normalizer) encode(img *image.NRGBA, quality int) ([]byte, error) {
	data, err := n.enc.Encode(img, n.policy.options(quality))
	if err != nil {
		return nil, &EncodeError{
			Quality: quality,
			Width:   img.Bounds().Dx(),
			Height:  img.Bounds().Dy(),
			Err:     err,
		}
	}
	return data, nil
}
