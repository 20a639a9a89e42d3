package lsb_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/MearaY/stegapy"
	"github.com/MearaY/stegapy/internal/imaging"
	"github.com/MearaY/stegapy/lsb"
)

func pngCover(t *testing.T, w, h int, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := imaging.NewRGB(w, h)
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	data, err := imaging.Encode(img, "cover.png")
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	cover := pngCover(t, 64, 64, 1)
	payload := []byte("attack at dawn")

	for _, k := range []int{1, 2, 3, 4} {
		cfg := stegapy.DefaultConfig()
		cfg.UseCompression = false
		cfg.MaxBitsUsedPerChannel = k
		alg := lsb.New(cfg)

		stego, err := alg.EmbedData(payload, "m.txt", cover, "cover.png", "stego.png")
		if err != nil {
			t.Fatalf("k=%d embed: %v", k, err)
		}

		outCfg := stegapy.DefaultConfig()
		name, got, err := lsb.New(outCfg).ExtractData(stego, "stego.png", nil)
		if err != nil {
			t.Fatalf("k=%d extract: %v", k, err)
		}
		if name != "m.txt" || !bytes.Equal(got, payload) {
			t.Fatalf("k=%d: got (%q, %q)", k, name, got)
		}
		if outCfg.UseCompression {
			t.Fatalf("k=%d: header did not propagate the compression flag", k)
		}
	}
}

func TestStegoKeepsCoverDimensions(t *testing.T) {
	cover := pngCover(t, 40, 30, 2)
	cfg := stegapy.DefaultConfig()
	stego, err := lsb.New(cfg).EmbedData([]byte("x"), "x", cover, "c.png", "s.png")
	if err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Decode(stego)
	if err != nil {
		t.Fatal(err)
	}
	if img.W != 40 || img.H != 30 {
		t.Fatalf("stego is %dx%d", img.W, img.H)
	}
}

func TestBMPWritePath(t *testing.T) {
	cover := pngCover(t, 32, 32, 3)
	cfg := stegapy.DefaultConfig()
	stego, err := lsb.New(cfg).EmbedData([]byte("bmp payload"), "p", cover, "c.png", "stego.bmp")
	if err != nil {
		t.Fatal(err)
	}
	if imaging.Sniff(stego) != imaging.FormatBMP {
		t.Fatal("stego is not BMP")
	}
	name, got, err := lsb.New(stegapy.DefaultConfig()).ExtractData(stego, "stego.bmp", nil)
	if err != nil {
		t.Fatal(err)
	}
	if name != "p" || string(got) != "bmp payload" {
		t.Fatalf("got (%q, %q)", name, got)
	}
}

func TestJPEGWriteRefused(t *testing.T) {
	cover := pngCover(t, 32, 32, 4)
	if _, err := lsb.New(stegapy.DefaultConfig()).EmbedData([]byte("x"), "x", cover, "c.png", "stego.jpg"); err == nil {
		t.Fatal("embedding to a JPEG name must fail")
	}
}

// The exact boundary: with the header packed at one plane per position,
// (3·W·H − headerbits)·k/8 payload bytes fit and one more does not.
func TestCapacityBoundary(t *testing.T) {
	const w, h = 16, 16
	cover := pngCover(t, w, h, 5)
	filename := "m.txt"

	for _, k := range []int{1, 3} {
		cfg := stegapy.DefaultConfig()
		cfg.UseCompression = false
		cfg.MaxBitsUsedPerChannel = k

		headerSize := lsb.FixedPrefixLen + len(filename)
		max := lsb.MaxPayloadBytes(w, h, headerSize, k)

		payload := bytes.Repeat([]byte{0xC3}, max)
		stego, err := lsb.New(cfg).EmbedData(payload, filename, cover, "c.png", "s.png")
		if err != nil {
			t.Fatalf("k=%d: %d bytes should fit: %v", k, max, err)
		}
		name, got, err := lsb.New(stegapy.DefaultConfig()).ExtractData(stego, "s.png", nil)
		if err != nil {
			t.Fatalf("k=%d: extract: %v", k, err)
		}
		if name != filename || !bytes.Equal(got, payload) {
			t.Fatalf("k=%d: boundary payload corrupted", k)
		}

		_, err = lsb.New(cfg).EmbedData(append(payload, 0), filename, cover, "c.png", "s.png")
		if !stegapy.IsKind(err, stegapy.KindFileTooSmall) {
			t.Fatalf("k=%d: %d bytes: got %v, want ERR_FILE_TOO_SMALL", k, max+1, err)
		}
	}
}

func TestExtractFromCleanImageFails(t *testing.T) {
	clean := pngCover(t, 16, 16, 6)
	_, _, err := lsb.New(stegapy.DefaultConfig()).ExtractData(clean, "c.png", nil)
	if !stegapy.IsKind(err, stegapy.KindImageDataRead) {
		t.Fatalf("got %v, want ERR_IMAGE_DATA_READ", err)
	}
}

func TestNilCoverSynthesized(t *testing.T) {
	cfg := stegapy.DefaultConfig()
	cfg.UseCompression = false
	payload := bytes.Repeat([]byte("abc"), 100)

	stego, err := lsb.New(cfg).EmbedData(payload, "gen.bin", nil, "", "s.png")
	if err != nil {
		t.Fatal(err)
	}
	name, got, err := lsb.New(stegapy.DefaultConfig()).ExtractData(stego, "s.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	if name != "gen.bin" || !bytes.Equal(got, payload) {
		t.Fatal("synthesized-cover round trip failed")
	}
}

func TestDiff(t *testing.T) {
	cover := pngCover(t, 16, 16, 7)
	cfg := stegapy.DefaultConfig()
	cfg.UseCompression = false
	alg := lsb.New(cfg)
	stego, err := alg.EmbedData([]byte("d"), "d", cover, "c.png", "s.png")
	if err != nil {
		t.Fatal(err)
	}
	diff, err := alg.Diff(stego, "s.png", cover, "c.png", "diff.png")
	if err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Decode(diff)
	if err != nil {
		t.Fatal(err)
	}
	// LSB-only embedding at k=1 flips single low bits: every diff value is
	// 0 or 10.
	for i, v := range img.Pix {
		if v != 0 && v != 10 {
			t.Fatalf("diff Pix[%d] = %d", i, v)
		}
	}
}
