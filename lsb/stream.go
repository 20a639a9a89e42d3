package lsb

import (
	"errors"

	"github.com/MearaY/stegapy/internal/imaging"
)

// A position is one (row, column, channel) triple of the pixel grid,
// numbered channel-fastest: position p addresses channel p mod 3 of pixel
// p div 3 in raster order. A permutation slice reorders the walk; nil
// means raster. Every visited position exposes planes bit-planes, plane 0
// (the LSB) first. Bytes are packed most-significant bit first.
var errStreamExhausted = errors.New("lsb: pixel stream exhausted")

type bitWriter struct {
	img    *imaging.RGB
	perm   []int
	total  int
	pos    int // index into the (possibly permuted) position walk
	plane  int
	planes int
}

func newBitWriter(img *imaging.RGB, perm []int) *bitWriter {
	return &bitWriter{img: img, perm: perm, total: 3 * img.W * img.H, planes: 1}
}

// setPlanes switches the number of bit-planes used per position. Only
// valid on a position boundary, which every caller guarantees by writing
// the header at one plane per position.
func (w *bitWriter) setPlanes(k int) {
	w.planes = k
}

func (w *bitWriter) writeBit(bit uint8) error {
	if w.pos >= w.total {
		return errStreamExhausted
	}
	p := w.pos
	if w.perm != nil {
		p = w.perm[w.pos]
	}
	v := w.img.Pix[p]
	v &^= 1 << w.plane
	v |= bit << w.plane
	w.img.Pix[p] = v

	w.plane++
	if w.plane >= w.planes {
		w.plane = 0
		w.pos++
	}
	return nil
}

func (w *bitWriter) writeBytes(data []byte) error {
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			if err := w.writeBit((b >> uint(i)) & 1); err != nil {
				return err
			}
		}
	}
	return nil
}

type bitReader struct {
	img    *imaging.RGB
	perm   []int
	total  int
	pos    int
	plane  int
	planes int
}

func newBitReader(img *imaging.RGB, perm []int) *bitReader {
	return &bitReader{img: img, perm: perm, total: 3 * img.W * img.H, planes: 1}
}

func (r *bitReader) setPlanes(k int) {
	r.planes = k
}

func (r *bitReader) readBit() (uint8, error) {
	if r.pos >= r.total {
		return 0, errStreamExhausted
	}
	p := r.pos
	if r.perm != nil {
		p = r.perm[r.pos]
	}
	bit := (r.img.Pix[p] >> r.plane) & 1

	r.plane++
	if r.plane >= r.planes {
		r.plane = 0
		r.pos++
	}
	return bit, nil
}

func (r *bitReader) readBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		var b uint8
		for j := 0; j < 8; j++ {
			bit, err := r.readBit()
			if err != nil {
				return nil, err
			}
			b = b<<1 | bit
		}
		out[i] = b
	}
	return out, nil
}
