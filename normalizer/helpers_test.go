package normalizer

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// sizedEncoder returns zero-filled buffers whose size grows with pixel count
// and quality: 1 + w*h*perMille*quality/100000.
type sizedEncoder struct {
	perMille int

	mu    sync.Mutex
	calls []EncodeOptions
}

func (e *sizedEncoder) Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	e.mu.Lock()
	e.calls = append(e.calls, opts)
	e.mu.Unlock()
	b := img.Bounds()
	return make([]byte, sizeFor(b.Dx(), b.Dy(), e.perMille, opts.Quality)), nil
}

func (e *sizedEncoder) Format() string      { return "webp" }
func (e *sizedEncoder) ContentType() string { return "image/webp" }

func sizeFor(w, h, perMille, quality int) int {
	return 1 + w*h*perMille*quality/100000
}

// pngEncoder produces decodable output: a PNG followed by quality dependent
// padding, which PNG decoders ignore.
type pngEncoder struct {
	perMille int
}

func (e pngEncoder) Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	buf.Write(make([]byte, sizeFor(b.Dx(), b.Dy(), e.perMille, opts.Quality)))
	return buf.Bytes(), nil
}

func (pngEncoder) Format() string      { return "webp" }
func (pngEncoder) ContentType() string { return "image/webp" }

type failingEncoder struct{ err error }

func (e failingEncoder) Encode(image.Image, EncodeOptions) ([]byte, error) { return nil, e.err }
func (failingEncoder) Format() string                                      { return "webp" }
func (failingEncoder) ContentType() string                                 { return "image/webp" }

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(1, w-1)),
				G: uint8(y * 255 / max(1, h-1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func encodeJPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// withOrientation inserts an EXIF APP1 segment carrying the orientation tag
// right after the JPEG SOI marker.
func withOrientation(t testing.TB, jpg []byte, orientation uint16) []byte {
	t.Helper()
	require.True(t, len(jpg) > 2 && jpg[0] == 0xff && jpg[1] == 0xd8, "not a jpeg")

	exif := new(bytes.Buffer)
	exif.WriteString("Exif\x00\x00")
	exif.WriteString("MM")
	binary.Write(exif, binary.BigEndian, uint16(0x002a))
	binary.Write(exif, binary.BigEndian, uint32(8))
	binary.Write(exif, binary.BigEndian, uint16(1))      // one IFD entry
	binary.Write(exif, binary.BigEndian, uint16(0x0112)) // orientation
	binary.Write(exif, binary.BigEndian, uint16(3))      // SHORT
	binary.Write(exif, binary.BigEndian, uint32(1))
	binary.Write(exif, binary.BigEndian, orientation)
	binary.Write(exif, binary.BigEndian, uint16(0))
	binary.Write(exif, binary.BigEndian, uint32(0)) // no next IFD

	out := new(bytes.Buffer)
	out.Write(jpg[:2])
	binary.Write(out, binary.BigEndian, uint16(0xffe1))
	binary.Write(out, binary.BigEndian, uint16(exif.Len()+2))
	out.Write(exif.Bytes())
	out.Write(jpg[2:])
	return out.Bytes()
}
