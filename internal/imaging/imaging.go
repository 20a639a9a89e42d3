// Package imaging decodes image bytes into a packed RGB matrix, re-encodes
// matrices on the way out, and converts between RGB and YUV planes.
//
// Decoding accepts PNG, JPEG, BMP, GIF and TIFF, sniffed by magic bytes.
// Encoding is restricted to the lossless formats (PNG, BMP): a single lossy
// re-encode destroys LSB payloads, so JPEG output is refused outright.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"math/rand"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownFormat is returned when the input bytes match no supported
	// image magic.
	ErrUnknownFormat = errors.New("imaging: unrecognized image format")

	// ErrLossyWrite is returned when a write is requested in a lossy format.
	ErrLossyWrite = errors.New("imaging: lossy output format not permitted")

	// ErrSizeMismatch is returned when two images of different dimensions
	// are compared.
	ErrSizeMismatch = errors.New("imaging: image dimensions differ")
)

// RGB is a height × width grid of 8-bit RGB pixels, row-major, 3 bytes per
// pixel. It is the single pixel representation every engine works on.
type RGB struct {
	W, H int
	Pix  []uint8 // len = 3*W*H
}

// NewRGB allocates a zeroed w×h matrix.
func NewRGB(w, h int) *RGB {
	return &RGB{W: w, H: h, Pix: make([]uint8, 3*w*h)}
}

// Clone returns a deep copy.
func (m *RGB) Clone() *RGB {
	c := &RGB{W: m.W, H: m.H, Pix: make([]uint8, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// At returns the channel value at (row, col, ch); ch is 0 for R, 1 for G,
// 2 for B.
func (m *RGB) At(row, col, ch int) uint8 {
	return m.Pix[(row*m.W+col)*3+ch]
}

// Set stores a channel value at (row, col, ch).
func (m *RGB) Set(row, col, ch int, v uint8) {
	m.Pix[(row*m.W+col)*3+ch] = v
}

// Format names returned by Sniff.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatBMP  = "bmp"
	FormatGIF  = "gif"
	FormatTIFF = "tiff"
)

// Sniff identifies the container format from the leading magic bytes.
// Returns "" when no known magic matches.
func Sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case bytes.HasPrefix(data, []byte("BM")):
		return FormatBMP
	case bytes.HasPrefix(data, []byte("GIF8")):
		return FormatGIF
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return FormatTIFF
	}
	return ""
}

// Decode sniffs and decodes image bytes into an RGB matrix. Palette, gray
// and alpha inputs are normalized to RGB; alpha is dropped.
func Decode(data []byte) (*RGB, error) {
	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch Sniff(data) {
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatBMP:
		img, err = bmp.Decode(r)
	case FormatGIF:
		img, err = gif.Decode(r)
	case FormatTIFF:
		img, err = tiff.Decode(r)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}

	bounds := img.Bounds()
	nrgba := image.NewNRGBA(bounds)
	draw.Draw(nrgba, bounds, img, bounds.Min, draw.Src)

	w, h := bounds.Dx(), bounds.Dy()
	out := NewRGB(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := nrgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			i := (y*w + x) * 3
			out.Pix[i] = nrgba.Pix[off]
			out.Pix[i+1] = nrgba.Pix[off+1]
			out.Pix[i+2] = nrgba.Pix[off+2]
		}
	}
	return out, nil
}

// Encode serializes the matrix in the format implied by name's extension.
// PNG and BMP are the only permitted write formats; an empty or unknown
// extension falls back to PNG. JPEG output returns ErrLossyWrite.
func Encode(m *RGB, name string) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, m.W, m.H))
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			i := (y*m.W + x) * 3
			off := img.PixOffset(x, y)
			img.Pix[off] = m.Pix[i]
			img.Pix[off+1] = m.Pix[i+1]
			img.Pix[off+2] = m.Pix[i+2]
			img.Pix[off+3] = 0xFF
		}
	}

	var buf bytes.Buffer
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")); ext {
	case "bmp":
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("imaging: encode bmp: %w", err)
		}
	case "jpg", "jpeg":
		return nil, ErrLossyWrite
	default:
		// png, empty, or anything unrecognized
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("imaging: encode png: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ToYUV converts the matrix into Y, U, V planes (BT.601-like coefficients,
// no chroma offset):
//
//	Y =  0.299R + 0.587G + 0.114B
//	U = -0.14713R − 0.28886G + 0.436B
//	V =  0.615R − 0.51499G − 0.10001B
func ToYUV(m *RGB) (y, u, v *mat.Dense) {
	y = mat.NewDense(m.H, m.W, nil)
	u = mat.NewDense(m.H, m.W, nil)
	v = mat.NewDense(m.H, m.W, nil)
	for row := 0; row < m.H; row++ {
		for col := 0; col < m.W; col++ {
			i := (row*m.W + col) * 3
			r := float64(m.Pix[i])
			g := float64(m.Pix[i+1])
			b := float64(m.Pix[i+2])
			y.Set(row, col, 0.299*r+0.587*g+0.114*b)
			u.Set(row, col, -0.14713*r-0.28886*g+0.436*b)
			v.Set(row, col, 0.615*r-0.51499*g-0.10001*b)
		}
	}
	return y, u, v
}

// FromYUV converts Y, U, V planes back into an RGB matrix, clipping each
// channel to [0, 255]:
//
//	R = Y + 1.13983V
//	G = Y − 0.39465U − 0.58060V
//	B = Y + 2.03211U
func FromYUV(y, u, v *mat.Dense) *RGB {
	h, w := y.Dims()
	out := NewRGB(w, h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			yy := y.At(row, col)
			uu := u.At(row, col)
			vv := v.At(row, col)
			i := (row*w + col) * 3
			out.Pix[i] = ClampU8(yy + 1.13983*vv)
			out.Pix[i+1] = ClampU8(yy - 0.39465*uu - 0.58060*vv)
			out.Pix[i+2] = ClampU8(yy + 2.03211*uu)
		}
	}
	return out
}

// ClampU8 clamps a float64 to [0, 255] and rounds to uint8.
func ClampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// AmplifiedDiff returns clip(10·|a−b|, 0, 255) per channel, a diagnostic
// visualization of where two images differ.
func AmplifiedDiff(a, b *RGB) (*RGB, error) {
	if a.W != b.W || a.H != b.H {
		return nil, ErrSizeMismatch
	}
	out := NewRGB(a.W, a.H)
	for i := range a.Pix {
		d := 10 * abs(int(a.Pix[i])-int(b.Pix[i]))
		if d > 255 {
			d = 255
		}
		out.Pix[i] = uint8(d)
	}
	return out, nil
}

// Random synthesizes a near-square random RGB cover holding at least
// numPixels pixels. Used when an embed is requested without a cover; the
// pixel noise is not part of any wire contract.
func Random(numPixels int) *RGB {
	if numPixels < 1 {
		numPixels = 1
	}
	side := int(math.Ceil(math.Sqrt(float64(numPixels))))
	out := NewRGB(side, side)
	rnd := rand.New(rand.NewSource(int64(numPixels)))
	for i := range out.Pix {
		out.Pix[i] = uint8(rnd.Intn(256))
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
