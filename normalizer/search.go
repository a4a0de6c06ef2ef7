package normalizer

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Attempt is a single encode made by the quality search.
type Attempt struct {
	Iteration int
	Quality   int
	Width     int
	Height    int
	// Fallback is set on the encode made after shrinking dimensions.
	Fallback bool
	Data     []byte
}

// Size returns the encoded size in bytes.
func (a Attempt) Size() int { return len(a.Data) }

// box is an upper bound for output dimensions.
type box struct {
	w, h int
}

// initialBox caps the width at p.MaxWidth keeping the aspect ratio.
func initialBox(p Policy, w, h int) box {
	if w <= p.MaxWidth {
		return box{w: w, h: h}
	}
	ratio := float64(p.MaxWidth) / float64(w)
	return box{w: p.MaxWidth, h: max(1, int(math.Round(float64(h)*ratio)))}
}

// fitInside returns dimensions of a srcW x srcH image scaled down to fit b.
// It never enlarges.
func fitInside(srcW, srcH int, b box) (int, int) {
	if srcW <= b.w && srcH <= b.h {
		return srcW, srcH
	}
	ratio := math.Min(float64(b.w)/float64(srcW), float64(b.h)/float64(srcH))
	w := min(b.w, max(1, int(math.Round(float64(srcW)*ratio))))
	h := min(b.h, max(1, int(math.Round(float64(srcH)*ratio))))
	return w, h
}

func fit(img image.Image, b box) *image.NRGBA {
	srcW, srcH := img.Bounds().Dx(), img.Bounds().Dy()
	w, h := fitInside(srcW, srcH, b)
	if w == srcW && h == srcH {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// settled reports whether the quality search stops at a.
func settled(p Policy, target int, a Attempt) bool {
	return a.Size() <= target || a.Quality <= p.QualityFloor || a.Iteration >= p.MaxIterations
}

func nextQuality(p Policy, quality int) int {
	return max(p.QualityFloor, quality-p.QualityStep)
}

// fallbackBox shrinks b so that an encode of last's size would roughly meet
// target. The width doesn't go below p.MinFallbackWidth.
func fallbackBox(p Policy, target int, last Attempt, b box) (box, bool) {
	if last.Size() <= target || b.w <= p.MinFallbackWidth {
		return box{}, false
	}
	f := math.Sqrt(float64(target) / float64(last.Size()))
	w := max(p.MinFallbackWidth, int(math.Round(float64(b.w)*f)))
	h := max(1, int(math.Round(float64(b.h)*float64(w)/float64(b.w))))
	return box{w: w, h: h}, true
}

func fallbackQuality(p Policy, quality int) int {
	return max(quality, p.FallbackQuality)
}

// search encodes img at decreasing quality until settled, then shrinks
// dimensions once if the budget still isn't met. The last attempt is the
// result.
func search(p Policy, target int, img image.Image, b box, enc func(*image.NRGBA, int) ([]byte, error)) ([]Attempt, error) {
	pixels := fit(img, b)
	attempt := func(px *image.NRGBA, quality, iteration int, fallback bool) (Attempt, error) {
		data, err := enc(px, quality)
		if err != nil {
			return Attempt{}, err
		}
		return Attempt{
			Iteration: iteration,
			Quality:   quality,
			Width:     px.Bounds().Dx(),
			Height:    px.Bounds().Dy(),
			Fallback:  fallback,
			Data:      data,
		}, nil
	}

	var attempts []Attempt
	for quality, iteration := p.StartQuality, 0; ; quality, iteration = nextQuality(p, quality), iteration+1 {
		a, err := attempt(pixels, quality, iteration, false)
		if err != nil {
			return attempts, err
		}
		attempts = append(attempts, a)
		if settled(p, target, a) {
			break
		}
	}

	last := attempts[len(attempts)-1]
	shrunk, ok := fallbackBox(p, target, last, b)
	if !ok {
		return attempts, nil
	}
	a, err := attempt(fit(img, shrunk), fallbackQuality(p, last.Quality), last.Iteration+1, true)
	if err != nil {
		return attempts, err
	}
	return append(attempts, a), nil
}
