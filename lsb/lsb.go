// Package lsb hides data in the low bit-planes of an RGB pixel grid,
// walking positions in raster order. Importing the package registers the
// "LSB" algorithm.
package lsb

import (
	"errors"
	"fmt"

	"github.com/MearaY/stegapy"
	"github.com/MearaY/stegapy/internal/imaging"
)

// Name is the registry name of the raster-order engine.
const Name = "LSB"

// Namespace tags errors raised by this package.
const Namespace = "LSB"

func init() {
	stegapy.Register(Name, func(cfg *stegapy.Config) stegapy.Algorithm {
		return New(cfg)
	})
}

// Algorithm is the raster-order LSB engine.
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
	return "hides data in the least-significant pixel bits, raster order"
}

func (a *Algorithm) Purposes() []stegapy.Purpose {
	return []stegapy.Purpose{stegapy.DataHiding}
}

func (a *Algorithm) ReadableExtensions() []string { return []string{"png", "bmp", "jpg", "jpeg"} }
func (a *Algorithm) WritableExtensions() []string { return []string{"png", "bmp"} }

// EmbedData writes header and payload into cover's low bit-planes. A nil
// cover is replaced by a synthesized random image just large enough.
func (a *Algorithm) EmbedData(msg []byte, msgName string, cover []byte, coverName, stegoName string) ([]byte, error) {
	return Embed(a.cfg, Namespace, msg, msgName, cover, stegoName, nil)
}

// ExtractData reads the header and payload back out of stego, updating the
// configuration from the header's pipeline fields.
func (a *Algorithm) ExtractData(stego []byte, stegoName string, _ []byte) (string, []byte, error) {
	img, err := imaging.Decode(stego)
	if err != nil {
		return "", nil, stegapy.WrapError(stegapy.KindUnhandled, Namespace, "cannot decode stego image", err)
	}
	return Extract(a.cfg, Namespace, img, nil)
}

// GenerateSignature is not supported by a data-hiding engine.
func (a *Algorithm) GenerateSignature() ([]byte, error) {
	return nil, stegapy.NewError(stegapy.KindNoWatermarking, Namespace, "LSB does not support watermarking")
}

// WatermarkCorrelation is not supported by a data-hiding engine.
func (a *Algorithm) WatermarkCorrelation(_, _ []byte) (float64, error) {
	return 0, stegapy.NewError(stegapy.KindNoWatermarking, Namespace, "LSB does not support watermarking")
}

func (a *Algorithm) HighWatermarkLevel() float64 { return 0 }
func (a *Algorithm) LowWatermarkLevel() float64  { return 0 }

// Diff renders the amplified per-channel difference of stego and cover.
func (a *Algorithm) Diff(stego []byte, stegoName string, cover []byte, coverName, diffName string) ([]byte, error) {
	return DiffImages(Namespace, stego, cover, diffName)
}

// Embed is the engine shared with the permuted-order variant; perm selects
// the position walk (nil for raster).
func Embed(cfg *stegapy.Config, namespace string, msg []byte, msgName string, cover []byte, stegoName string, perm func(positions int) []int) ([]byte, error) {
	header := NewHeader(len(msg), msgName, cfg)
	headerBytes, err := header.MarshalBinary()
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, namespace, "cannot encode data header", err)
	}
	headerBits := len(headerBytes) * 8
	k := cfg.MaxBitsUsedPerChannel
	payloadPositions := (len(msg)*8 + k - 1) / k

	var img *imaging.RGB
	if len(cover) == 0 {
		img = imaging.Random((headerBits + payloadPositions + 2) / 3)
	} else {
		if img, err = imaging.Decode(cover); err != nil {
			return nil, stegapy.WrapError(stegapy.KindUnhandled, namespace, "cannot decode cover image", err)
		}
	}

	if headerBits+payloadPositions > 3*img.W*img.H {
		return nil, stegapy.NewError(stegapy.KindFileTooSmall, namespace,
			fmt.Sprintf("image %dx%d cannot hold %d payload bytes at %d bits per channel",
				img.W, img.H, len(msg), k))
	}

	var order []int
	if perm != nil {
		order = perm(3 * img.W * img.H)
	}
	w := newBitWriter(img, order)
	if err := w.writeBytes(headerBytes); err != nil {
		return nil, stegapy.WrapError(stegapy.KindFileTooSmall, namespace, "image cannot hold the data header", err)
	}
	w.setPlanes(k)
	if err := w.writeBytes(msg); err != nil {
		return nil, stegapy.WrapError(stegapy.KindFileTooSmall, namespace, "image cannot hold the payload", err)
	}

	out, err := imaging.Encode(img, stegoName)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, namespace, "cannot encode stego image", err)
	}
	return out, nil
}

// Extract is the reading half shared with the permuted-order variant.
func Extract(cfg *stegapy.Config, namespace string, img *imaging.RGB, order []int) (string, []byte, error) {
	r := newBitReader(img, order)

	prefix, err := r.readBytes(FixedPrefixLen)
	if err != nil {
		return "", nil, stegapy.WrapError(stegapy.KindImageDataRead, namespace, "image too small for a data header", err)
	}
	header, nameLen, err := ParsePrefix(prefix)
	if err != nil {
		return "", nil, headerError(namespace, err)
	}
	if header.ChannelBits < 1 || header.ChannelBits > 8 {
		return "", nil, stegapy.NewError(stegapy.KindImageDataRead, namespace,
			fmt.Sprintf("header declares %d bits per channel", header.ChannelBits))
	}
	if nameLen > 0 {
		name, err := r.readBytes(nameLen)
		if err != nil {
			return "", nil, stegapy.WrapError(stegapy.KindImageDataRead, namespace, "truncated filename", err)
		}
		header.Filename = string(name)
	}
	if err := header.ApplyToConfig(cfg); err != nil {
		return "", nil, err
	}

	r.setPlanes(header.ChannelBits)
	payload, err := r.readBytes(int(header.DataLength))
	if err != nil {
		return "", nil, stegapy.WrapError(stegapy.KindImageDataRead, namespace,
			fmt.Sprintf("image holds fewer than the %d declared payload bytes", header.DataLength), err)
	}
	return header.Filename, payload, nil
}

// headerError maps codec parse failures onto the tagged taxonomy.
func headerError(namespace string, err error) error {
	switch {
	case errors.Is(err, ErrBadMagic), errors.Is(err, ErrBadVersion), errors.Is(err, ErrTruncatedHeader):
		return stegapy.WrapError(stegapy.KindImageDataRead, namespace, "no valid data header in image", err)
	default:
		return stegapy.WrapError(stegapy.KindUnhandled, namespace, "data header parse failed", err)
	}
}

// DiffImages implements the diagnostic diff shared by the engines.
func DiffImages(namespace string, stego, cover []byte, diffName string) ([]byte, error) {
	si, err := imaging.Decode(stego)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, namespace, "cannot decode stego image", err)
	}
	ci, err := imaging.Decode(cover)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, namespace, "cannot decode cover image", err)
	}
	d, err := imaging.AmplifiedDiff(si, ci)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, namespace, "cannot diff images", err)
	}
	out, err := imaging.Encode(d, diffName)
	if err != nil {
		return nil, stegapy.WrapError(stegapy.KindUnhandled, namespace, "cannot encode diff image", err)
	}
	return out, nil
}

// MaxPayloadBytes reports the largest payload (after any pipeline stages)
// that a w×h cover can hold with the given header and bits-per-channel.
func MaxPayloadBytes(w, h, headerSize, channelBits int) int {
	free := 3*w*h - headerSize*8
	if free <= 0 {
		return 0
	}
	return free * channelBits / 8
}
