// Package dugad embeds and detects additive spread-spectrum watermarks in
// the detail subbands of a multi-level Haar wavelet decomposition, after
// Dugad, Ratakonda and Ahuja. Importing the package registers the
// "DWTDugad" algorithm.
//
// Casting perturbs every detail coefficient whose magnitude exceeds the
// casting threshold by alpha·|c|·w[i mod N]. Detection recomputes the
// decomposition and, per subband, accumulates statistics over the
// coefficients above the (higher) detection threshold; a subband counts as
// marked when the signature-weighted sum z exceeds alpha times the
// absolute sum v. Casting tests |c| while detection tests the signed
// value; that asymmetry is the published rule and is kept deliberately.
package dugad

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/MearaY/stegapy"
	"github.com/MearaY/stegapy/internal/dwt"
	"github.com/MearaY/stegapy/internal/imaging"
)

// Name is the registry name of the watermarking engine.
const Name = "DWTDugad"

// Namespace tags errors raised by this package.
const Namespace = "DWTDUGAD"

// sigCacheSize bounds the per-instance cache of parsed signatures. A
// signature record is parsed on every embed, extract and correlation call;
// callers typically reuse one or two signatures, so a small cache removes
// the repeated decode of up to 100k doubles.
const sigCacheSize = 8

func init() {
	stegapy.Register(Name, func(cfg *stegapy.Config) stegapy.Algorithm {
		return New(cfg)
	})
}

// BandDiagnostics records one subband's contribution to the most recent
// correlation score.
type BandDiagnostics struct {
	Level   int
	Subband string // "H", "V" or "D"
	M       int32
	Z       float64
	V       float64
	Passed  bool
}

// Diagnostics is the read-only debug record of the last correlation call.
type Diagnostics struct {
	Score float64
	OK    int
	N     int
	Alpha float64
	Bands []BandDiagnostics
}

// Algorithm is the DWT-Dugad watermarking engine. Instances cache parsed
// signatures and the diagnostics of the most recent correlation; they must
// not be shared between concurrent callers.
type Algorithm struct {
	cfg      *stegapy.Config
	sigCache *lru.Cache[[sha256.Size]byte, *Signature]
	lastDiag *Diagnostics
}

// New returns an instance bound to cfg.
func New(cfg *stegapy.Config) *Algorithm {
	if cfg == nil {
		cfg = stegapy.DefaultConfig()
	}
	cache, _ := lru.New[[sha256.Size]byte, *Signature](sigCacheSize)
	return &Algorithm{cfg: cfg, sigCache: cache}
}

func (a *Algorithm) Name() string { return Name }

func (a *Algorithm) Description() string {
	return "additive watermarking in DWT detail subbands after Dugad et al."
}

func (a *Algorithm) Purposes() []stegapy.Purpose {
	return []stegapy.Purpose{stegapy.Watermarking}
}

func (a *Algorithm) ReadableExtensions() []string { return []string{"png", "bmp", "jpg", "jpeg"} }
func (a *Algorithm) WritableExtensions() []string { return []string{"png", "bmp"} }

// HighWatermarkLevel is the advisory score above which a mark is
// considered present.
func (a *Algorithm) HighWatermarkLevel() float64 { return 0.7 }

// LowWatermarkLevel is the advisory score below which a mark is considered
// absent.
func (a *Algorithm) LowWatermarkLevel() float64 { return 0.3 }

// LastDiagnostics returns the debug record of the most recent correlation
// call, or nil.
func (a *Algorithm) LastDiagnostics() *Diagnostics { return a.lastDiag }

func (a *Algorithm) signature(data []byte) (*Signature, error) {
	key := sha256.Sum256(data)
	if sig, ok := a.sigCache.Get(key); ok {
		return sig, nil
	}
	sig, err := ParseSignature(data)
	if err != nil {
		return nil, err
	}
	a.sigCache.Add(key, sig)
	return sig, nil
}

// GenerateSignature builds a fresh signature record from the configured
// password.
func (a *Algorithm) GenerateSignature() ([]byte, error) {
	if a.cfg.Password == "" {
		return nil, stegapy.NewError(stegapy.KindPasswordRequired, Namespace,
			"signature generation requires a password")
	}
	return GenerateSignature(a.cfg.Password).MarshalBinary(), nil
}

// EmbedData casts the signature carried in msg into cover's luminance
// plane and returns the marked image.
func (a *Algorithm) EmbedData(msg []byte, msgName string, cover []byte, coverName, stegoName string) ([]byte, error) {
	if len(cover) == 0 {
		return nil, stegapy.NewError(stegapy.KindNoCoverFile, Namespace, "watermarking requires a cover image")
	}
	sig, err := a.signature(msg)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(cover)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot decode cover image", err)
	}

	y, u, v := imaging.ToYUV(img)
	h, w := y.Dims()

	pyr, err := dwt.Forward(y, sig.Levels)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindFileTooSmall, Namespace,
			fmt.Sprintf("image %dx%d does not support %d decomposition levels", w, h, sig.Levels), err)
	}
	for _, lv := range pyr.Levels {
		castSubband(lv.H, sig)
		castSubband(lv.V, sig)
		castSubband(lv.D, sig)
	}

	rec := dwt.FitTo(dwt.Inverse(pyr), h, w)
	clipPlane(rec)

	out, err := imaging.Encode(imaging.FromYUV(rec, u, v), stegoName)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot encode marked image", err)
	}
	return out, nil
}

// ExtractData recomputes the decomposition of stego and returns the
// detection record of per-subband statistics scanned against origSig.
func (a *Algorithm) ExtractData(stego []byte, stegoName string, origSig []byte) (string, []byte, error) {
	if len(origSig) == 0 {
		return "", nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace,
			"detection requires the original signature")
	}
	sig, err := a.signature(origSig)
	if err != nil {
		return "", nil, err
	}
	img, err := imaging.Decode(stego)
	if err != nil {
		return "", nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot decode stego image", err)
	}

	y, _, _ := imaging.ToYUV(img)
	pyr, err := dwt.Forward(y, sig.Levels)
	if err != nil {
		h, w := y.Dims()
		return "", nil, stegapy.WrapError(stegapy.KindFileTooSmall, Namespace,
			fmt.Sprintf("image %dx%d does not support %d decomposition levels", w, h, sig.Levels), err)
	}

	record := &DetectionRecord{Levels: sig.Levels, Alpha: sig.Alpha}
	for _, lv := range pyr.Levels {
		record.Bands = append(record.Bands,
			scanSubband(lv.H, sig),
			scanSubband(lv.V, sig),
			scanSubband(lv.D, sig))
	}
	return "", record.MarshalBinary(), nil
}

// WatermarkCorrelation scores a detection record against the original
// signature. Subbands with no coefficient above the detection threshold
// are excluded; each remaining subband votes, and the score is the
// fraction of votes with z > alpha·v.
func (a *Algorithm) WatermarkCorrelation(origSig, mark []byte) (float64, error) {
	if _, err := a.signature(origSig); err != nil {
		return 0, err
	}
	record, err := ParseDetectionRecord(mark)
	if err != nil {
		return 0, err
	}

	subbands := [3]string{"H", "V", "D"}
	diag := &Diagnostics{Alpha: record.Alpha, N: 3 * record.Levels}
	ok := 0
	n := diag.N
	for i, b := range record.Bands {
		bd := BandDiagnostics{
			Level:   i/3 + 1,
			Subband: subbands[i%3],
			M:       b.M, Z: b.Z, V: b.V,
		}
		if b.M == 0 {
			n--
		} else if b.Z > record.Alpha*b.V {
			bd.Passed = true
			ok++
		}
		diag.Bands = append(diag.Bands, bd)
	}

	score := 0.0
	if n > 0 {
		score = float64(ok) / float64(n)
	}
	diag.Score, diag.OK, diag.N = score, ok, n
	a.lastDiag = diag
	return score, nil
}

// Diff renders the amplified per-channel difference of stego and cover.
func (a *Algorithm) Diff(stego []byte, stegoName string, cover []byte, coverName, diffName string) ([]byte, error) {
	si, err := imaging.Decode(stego)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot decode stego image", err)
	}
	ci, err := imaging.Decode(cover)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot decode cover image", err)
	}
	d, err := imaging.AmplifiedDiff(si, ci)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot diff images", err)
	}
	out, err := imaging.Encode(d, diffName)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot encode diff image", err)
	}
	return out, nil
}

// castSubband applies the additive rule in place over the subband's
// row-major coefficient vector.
func castSubband(band *mat.Dense, sig *Signature) {
	rows, cols := band.Dims()
	n := len(sig.W)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := band.At(r, c)
			if abs(v) > sig.CastThreshold {
				band.Set(r, c, v+sig.Alpha*abs(v)*sig.W[(r*cols+c)%n])
			}
		}
	}
}

// scanSubband accumulates the detection statistics of one subband,
// counting only positive coefficients above the detection threshold.
func scanSubband(band *mat.Dense, sig *Signature) BandStat {
	rows, cols := band.Dims()
	n := len(sig.W)
	var st BandStat
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := band.At(r, c)
			if v > sig.DetectThreshold {
				st.M++
				st.Z += v * sig.W[(r*cols+c)%n]
				st.V += abs(v)
			}
		}
	}
	return st
}

// clipPlane clips a luminance plane to the displayable [0, 255] range
// before it is written back.
func clipPlane(m *mat.Dense) {
	rows, cols := m.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := m.At(r, c)
			if v < 0 {
				m.Set(r, c, 0)
			} else if v > 255 {
				m.Set(r, c, 255)
			}
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
