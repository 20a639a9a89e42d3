// Package randlsb hides data in low bit-planes like the lsb package, but
// walks positions in a keyed pseudo-random permutation so the payload is
// scattered over the whole image. Importing the package registers the
// "RandomLSB" algorithm.
//
// The permutation is a Fisher–Yates shuffle of the flattened position
// vector, driven by the pinned generator in internal/prng and seeded from
// the configured password. An empty password still yields a deterministic
// permutation (the seed of the empty string); extraction needs the same
// password either way.
package randlsb

import (
	"github.com/MearaY/stegapy"
	"github.com/MearaY/stegapy/internal/imaging"
	"github.com/MearaY/stegapy/internal/prng"
	"github.com/MearaY/stegapy/lsb"
)

// Name is the registry name of the permuted-order engine.
const Name = "RandomLSB"

// Namespace tags errors raised by this package.
const Namespace = "RandomLSB"

func init() {
	stegapy.Register(Name, func(cfg *stegapy.Config) stegapy.Algorithm {
		return New(cfg)
	})
}

// Algorithm is the keyed-permutation LSB engine.
type Algorithm struct {
	cfg *stegapy.Config
}

// New returns an instance bound to cfg.
func New(cfg *stegapy.Config) *Algorithm {
	if cfg == nil {
		cfg = stegapy.DefaultConfig()
	}
	return &Algorithm{cfg: cfg}
}

func (a *Algorithm) Name() string { return Name }

func (a *Algorithm) Description() string {
	return "hides data in the least-significant pixel bits along a password-keyed permutation"
}

func (a *Algorithm) Purposes() []stegapy.Purpose {
	return []stegapy.Purpose{stegapy.DataHiding}
}

func (a *Algorithm) ReadableExtensions() []string { return []string{"png", "bmp", "jpg", "jpeg"} }
func (a *Algorithm) WritableExtensions() []string { return []string{"png", "bmp"} }

func (a *Algorithm) permutation(positions int) []int {
	return prng.NewFromPassword(a.cfg.Password).Perm(positions)
}

// EmbedData hides msg along the keyed permutation. The full configuration
// is recorded in the header, so extraction picks up compression and
// encryption settings exactly as with the raster engine.
func (a *Algorithm) EmbedData(msg []byte, msgName string, cover []byte, coverName, stegoName string) ([]byte, error) {
	return lsb.Embed(a.cfg, Namespace, msg, msgName, cover, stegoName, a.permutation)
}

// ExtractData recreates the permutation from the password and reads the
// header and payload back.
func (a *Algorithm) ExtractData(stego []byte, stegoName string, _ []byte) (string, []byte, error) {
	img, err := imaging.Decode(stego)
	if err != nil {
		return "", nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot decode stego image", err)
	}
	return lsb.Extract(a.cfg, Namespace, img, a.permutation(3*img.W*img.H))
}

// GenerateSignature is not supported by a data-hiding engine.
func (a *Algorithm) GenerateSignature() ([]byte, error) {
	return nil, stegapy.NewError(stegapy.KindNoWatermarking, Namespace, "RandomLSB does not support watermarking")
}

// WatermarkCorrelation is not supported by a data-hiding engine.
func (a *Algorithm) WatermarkCorrelation(_, _ []byte) (float64, error) {
	return 0, stegapy.NewError(stegapy.KindNoWatermarking, Namespace, "RandomLSB does not support watermarking")
}

func (a *Algorithm) HighWatermarkLevel() float64 { return 0 }
func (a *Algorithm) LowWatermarkLevel() float64  { return 0 }

// Diff renders the amplified per-channel difference of stego and cover.
func (a *Algorithm) Diff(stego []byte, stegoName string, cover []byte, coverName, diffName string) ([]byte, error) {
	return lsb.DiffImages(Namespace, stego, cover, diffName)
}
