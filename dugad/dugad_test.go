package dugad_test

import (
	"math/rand"
	"testing"

	"github.com/MearaY/stegapy"
	"github.com/MearaY/stegapy/dugad"
	"github.com/MearaY/stegapy/internal/imaging"
)

// texturedCover builds a gray image with detail energy at several scales,
// so every decomposition level carries coefficients above the detection
// threshold: per-pixel noise feeds level 1, 2x2-block noise level 2 and
// 4x4-block noise level 3.
func texturedCover(t *testing.T, size int, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	n2 := make([]int, (size/2+1)*(size/2+1))
	n4 := make([]int, (size/4+1)*(size/4+1))
	for i := range n2 {
		n2[i] = rng.Intn(97) - 48
	}
	for i := range n4 {
		n4[i] = rng.Intn(53) - 26
	}

	img := imaging.NewRGB(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := 128 + rng.Intn(97) - 48
			v += n2[(y/2)*(size/2+1)+x/2]
			v += n4[(y/4)*(size/4+1)+x/4]
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			i := (y*size + x) * 3
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = uint8(v), uint8(v), uint8(v)
		}
	}
	data, err := imaging.Encode(img, "cover.png")
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func wmConfig(password string) *stegapy.Config {
	cfg := stegapy.DefaultConfig()
	cfg.Password = password
	return cfg
}

func checkMark(t *testing.T, alg *dugad.Algorithm, stego, sig []byte) float64 {
	t.Helper()
	_, record, err := alg.ExtractData(stego, "s.png", sig)
	if err != nil {
		t.Fatal(err)
	}
	score, err := alg.WatermarkCorrelation(sig, record)
	if err != nil {
		t.Fatal(err)
	}
	return score
}

func TestMarkDetectedOnCleanStego(t *testing.T) {
	cover := texturedCover(t, 512, 1)
	alg := dugad.New(wmConfig("w"))

	sig, err := alg.GenerateSignature()
	if err != nil {
		t.Fatal(err)
	}
	stego, err := alg.EmbedData(sig, "sig", cover, "cover.png", "stego.png")
	if err != nil {
		t.Fatal(err)
	}

	if score := checkMark(t, alg, stego, sig); score < alg.HighWatermarkLevel() {
		t.Fatalf("marked image scored %v, want >= %v", score, alg.HighWatermarkLevel())
	}
	if score := checkMark(t, alg, cover, sig); score > alg.LowWatermarkLevel() {
		t.Fatalf("unmarked cover scored %v, want <= %v", score, alg.LowWatermarkLevel())
	}
}

func TestWrongSignatureScoresLow(t *testing.T) {
	cover := texturedCover(t, 512, 2)
	alg := dugad.New(wmConfig("alice"))
	sig, err := alg.GenerateSignature()
	if err != nil {
		t.Fatal(err)
	}
	stego, err := alg.EmbedData(sig, "sig", cover, "cover.png", "stego.png")
	if err != nil {
		t.Fatal(err)
	}

	other := dugad.GenerateSignature("mallory").MarshalBinary()
	if score := checkMark(t, alg, stego, other); score > alg.LowWatermarkLevel() {
		t.Fatalf("foreign signature scored %v, want <= %v", score, alg.LowWatermarkLevel())
	}
}

func TestStegoKeepsDimensionsOddSize(t *testing.T) {
	cover := texturedCover(t, 257, 3)
	alg := dugad.New(wmConfig("odd"))
	sig, err := alg.GenerateSignature()
	if err != nil {
		t.Fatal(err)
	}
	stego, err := alg.EmbedData(sig, "sig", cover, "cover.png", "stego.png")
	if err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Decode(stego)
	if err != nil {
		t.Fatal(err)
	}
	if img.W != 257 || img.H != 257 {
		t.Fatalf("stego is %dx%d, want 257x257", img.W, img.H)
	}
}

func TestImageTooSmall(t *testing.T) {
	// A 4x4 plane admits two levels, not the default three.
	tiny := texturedCover(t, 4, 4)
	alg := dugad.New(wmConfig("tiny"))
	sig, err := alg.GenerateSignature()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := alg.EmbedData(sig, "sig", tiny, "t.png", "s.png"); !stegapy.IsKind(err, stegapy.KindFileTooSmall) {
		t.Fatalf("embed: got %v, want ERR_FILE_TOO_SMALL", err)
	}
	if _, _, err := alg.ExtractData(tiny, "t.png", sig); !stegapy.IsKind(err, stegapy.KindFileTooSmall) {
		t.Fatalf("extract: got %v, want ERR_FILE_TOO_SMALL", err)
	}
}

func TestNoCover(t *testing.T) {
	alg := dugad.New(wmConfig("x"))
	sig, err := alg.GenerateSignature()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := alg.EmbedData(sig, "sig", nil, "", "s.png"); !stegapy.IsKind(err, stegapy.KindNoCoverFile) {
		t.Fatalf("got %v, want ERR_NO_COVER_FILE", err)
	}
}

func TestGenerateSignatureNeedsPassword(t *testing.T) {
	alg := dugad.New(stegapy.DefaultConfig())
	if _, err := alg.GenerateSignature(); !stegapy.IsKind(err, stegapy.KindPasswordRequired) {
		t.Fatalf("got %v, want PWD_MANDATORY_FOR_GENSIG", err)
	}
}

func TestInvalidSignatureRejected(t *testing.T) {
	cover := texturedCover(t, 64, 5)
	alg := dugad.New(wmConfig("v"))
	if _, err := alg.EmbedData([]byte("not a signature"), "sig", cover, "c.png", "s.png"); !stegapy.IsKind(err, stegapy.KindSignatureNotValid) {
		t.Fatalf("got %v, want ERR_SIG_NOT_VALID", err)
	}
	if _, _, err := alg.ExtractData(cover, "c.png", nil); !stegapy.IsKind(err, stegapy.KindSignatureNotValid) {
		t.Fatalf("nil signature: got %v, want ERR_SIG_NOT_VALID", err)
	}
}

func TestDiagnosticsPopulated(t *testing.T) {
	cover := texturedCover(t, 256, 6)
	alg := dugad.New(wmConfig("diag"))
	sig, err := alg.GenerateSignature()
	if err != nil {
		t.Fatal(err)
	}
	stego, err := alg.EmbedData(sig, "sig", cover, "c.png", "s.png")
	if err != nil {
		t.Fatal(err)
	}
	score := checkMark(t, alg, stego, sig)

	diag := alg.LastDiagnostics()
	if diag == nil {
		t.Fatal("no diagnostics after a correlation call")
	}
	if diag.Score != score || len(diag.Bands) != 3*dugad.DefaultLevels {
		t.Fatalf("diagnostics inconsistent: %+v", diag)
	}
}
