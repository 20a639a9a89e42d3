package lsb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/MearaY/stegapy/internal/imaging"
)

func TestStreamRoundTripRaster(t *testing.T) {
	for _, k := range []int{1, 2, 3, 4, 8} {
		img := imaging.NewRGB(8, 8)
		payload := []byte("the quick brown fox")

		w := newBitWriter(img, nil)
		w.setPlanes(k)
		if err := w.writeBytes(payload); err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}

		r := newBitReader(img, nil)
		r.setPlanes(k)
		got, err := r.readBytes(len(payload))
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("k=%d: got %q", k, got)
		}
	}
}

func TestStreamRoundTripPermuted(t *testing.T) {
	img := imaging.NewRGB(8, 8)
	// A reversed walk is enough to prove order independence between the
	// writer and the reader.
	perm := make([]int, 3*8*8)
	for i := range perm {
		perm[i] = len(perm) - 1 - i
	}
	payload := []byte{0x00, 0xFF, 0xA5, 0x5A}

	w := newBitWriter(img, perm)
	w.setPlanes(2)
	if err := w.writeBytes(payload); err != nil {
		t.Fatal(err)
	}

	r := newBitReader(img, perm)
	r.setPlanes(2)
	got, err := r.readBytes(len(payload))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got % x", got)
	}
}

// Writing MSB-first at one plane per position: 0x80 must set only the
// first position's LSB.
func TestStreamBitOrder(t *testing.T) {
	img := imaging.NewRGB(4, 4)
	w := newBitWriter(img, nil)
	if err := w.writeBytes([]byte{0x80}); err != nil {
		t.Fatal(err)
	}
	if img.Pix[0] != 1 {
		t.Errorf("Pix[0] = %d, want 1", img.Pix[0])
	}
	for i := 1; i < 8; i++ {
		if img.Pix[i] != 0 {
			t.Errorf("Pix[%d] = %d, want 0", i, img.Pix[i])
		}
	}
}

// Plane k-1 is the highest plane touched; the upper bits must survive.
func TestStreamPreservesHighPlanes(t *testing.T) {
	img := imaging.NewRGB(4, 4)
	for i := range img.Pix {
		img.Pix[i] = 0xF0
	}
	w := newBitWriter(img, nil)
	w.setPlanes(2)
	if err := w.writeBytes([]byte{0xFF, 0xFF}); err != nil {
		t.Fatal(err)
	}
	for i, v := range img.Pix {
		if v&0xF0 != 0xF0 {
			t.Fatalf("Pix[%d] = %#x: upper bits clobbered", i, v)
		}
	}
}

func TestStreamExhaustion(t *testing.T) {
	img := imaging.NewRGB(1, 1) // 3 positions, 3 bits at k=1
	w := newBitWriter(img, nil)
	if err := w.writeBytes([]byte{0xAA}); !errors.Is(err, errStreamExhausted) {
		t.Fatalf("write: got %v", err)
	}

	r := newBitReader(img, nil)
	if _, err := r.readBytes(1); !errors.Is(err, errStreamExhausted) {
		t.Fatalf("read: got %v", err)
	}
}
