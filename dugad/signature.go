package dugad

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/MearaY/stegapy"
	"github.com/MearaY/stegapy/internal/prng"
)

// Signature record, all fields big-endian:
//
//	magic "DGSG"        4 bytes
//	N                   int32
//	filter method       int32
//	filter id           int32
//	levels              int32
//	alpha               float64
//	cast threshold      float64
//	detect threshold    float64
//	w[0..N)             N × float64
//
// The parser locates the magic by forward search so records written with a
// serialization prelude remain readable; the writer emits a clean record.
var sigMagic = []byte("DGSG")

// Default signature parameters.
const (
	DefaultLength           = 1000
	DefaultFilterMethod     = 2
	DefaultFilterID         = 1
	DefaultLevels           = 3
	DefaultAlpha            = 0.2
	DefaultCastThreshold    = 40.0
	DefaultDetectThreshold  = 50.0

	maxLength = 100000
	maxLevels = 10
)

// Signature captures a watermark's parameters and its keyed Gaussian
// sequence.
type Signature struct {
	FilterMethod    int32
	FilterID        int32
	Levels          int
	Alpha           float64
	CastThreshold   float64
	DetectThreshold float64
	W               []float64
}

// GenerateSignature derives the keyed Gaussian sequence from password and
// attaches the default parameters. The result is deterministic: the same
// password always yields a bit-identical record.
func GenerateSignature(password string) *Signature {
	return &Signature{
		FilterMethod:    DefaultFilterMethod,
		FilterID:        DefaultFilterID,
		Levels:          DefaultLevels,
		Alpha:           DefaultAlpha,
		CastThreshold:   DefaultCastThreshold,
		DetectThreshold: DefaultDetectThreshold,
		W:               prng.NewFromPassword(password).Normal(DefaultLength),
	}
}

// MarshalBinary emits a clean record with no prelude.
func (s *Signature) MarshalBinary() []byte {
	out := make([]byte, 0, 4+4*4+3*8+8*len(s.W))
	out = append(out, sigMagic...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(s.W)))
	out = binary.BigEndian.AppendUint32(out, uint32(s.FilterMethod))
	out = binary.BigEndian.AppendUint32(out, uint32(s.FilterID))
	out = binary.BigEndian.AppendUint32(out, uint32(s.Levels))
	out = binary.BigEndian.AppendUint64(out, math.Float64bits(s.Alpha))
	out = binary.BigEndian.AppendUint64(out, math.Float64bits(s.CastThreshold))
	out = binary.BigEndian.AppendUint64(out, math.Float64bits(s.DetectThreshold))
	for _, w := range s.W {
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(w))
	}
	return out
}

// ParseSignature locates and decodes a signature record. Every failure is
// tagged ERR_SIG_NOT_VALID.
func ParseSignature(data []byte) (*Signature, error) {
	pos := bytes.Index(data, sigMagic)
	if pos < 0 {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace, "signature magic not found")
	}
	r := data[pos+len(sigMagic):]
	if len(r) < 4*4+3*8 {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace, "signature record truncated")
	}
	n := int(int32(binary.BigEndian.Uint32(r[0:4])))
	if n < 0 || n > maxLength {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace,
			fmt.Sprintf("watermark length %d out of range", n))
	}
	sig := &Signature{
		FilterMethod: int32(binary.BigEndian.Uint32(r[4:8])),
		FilterID:     int32(binary.BigEndian.Uint32(r[8:12])),
		Levels:       int(int32(binary.BigEndian.Uint32(r[12:16]))),
	}
	if sig.Levels < 1 || sig.Levels > maxLevels {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace,
			fmt.Sprintf("decomposition level %d out of range [1,%d]", sig.Levels, maxLevels))
	}
	sig.Alpha = math.Float64frombits(binary.BigEndian.Uint64(r[16:24]))
	sig.CastThreshold = math.Float64frombits(binary.BigEndian.Uint64(r[24:32]))
	sig.DetectThreshold = math.Float64frombits(binary.BigEndian.Uint64(r[32:40]))

	rest := r[40:]
	if len(rest) < 8*n {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace,
			fmt.Sprintf("record carries fewer than the declared %d coefficients", n))
	}
	sig.W = make([]float64, n)
	for i := 0; i < n; i++ {
		sig.W[i] = math.Float64frombits(binary.BigEndian.Uint64(rest[8*i : 8*i+8]))
	}
	return sig, nil
}

// Detection record, all fields big-endian:
//
//	magic "DGWM"   4 bytes
//	levels         int32
//	alpha          float64
//	then 3·levels triples (m:int32, z:float64, v:float64),
//	coarsest level first, subband order H, V, D.
var wmMagic = []byte("DGWM")

// BandStat is one subband's detection statistics: the count of
// coefficients above the detection threshold, their signature-weighted sum
// and their absolute sum.
type BandStat struct {
	M int32
	Z float64
	V float64
}

// DetectionRecord packages the per-subband statistics with the level count
// and alpha needed for scoring.
type DetectionRecord struct {
	Levels int
	Alpha  float64
	Bands  []BandStat // len = 3*Levels
}

// MarshalBinary emits the record.
func (d *DetectionRecord) MarshalBinary() []byte {
	out := make([]byte, 0, 4+4+8+20*len(d.Bands))
	out = append(out, wmMagic...)
	out = binary.BigEndian.AppendUint32(out, uint32(d.Levels))
	out = binary.BigEndian.AppendUint64(out, math.Float64bits(d.Alpha))
	for _, b := range d.Bands {
		out = binary.BigEndian.AppendUint32(out, uint32(b.M))
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(b.Z))
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(b.V))
	}
	return out
}

// ParseDetectionRecord decodes a record produced by MarshalBinary.
func ParseDetectionRecord(data []byte) (*DetectionRecord, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], wmMagic) {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace, "detection record magic not found")
	}
	r := data[4:]
	if len(r) < 12 {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace, "detection record truncated")
	}
	d := &DetectionRecord{
		Levels: int(int32(binary.BigEndian.Uint32(r[0:4]))),
		Alpha:  math.Float64frombits(binary.BigEndian.Uint64(r[4:12])),
	}
	if d.Levels < 1 || d.Levels > maxLevels {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace,
			fmt.Sprintf("detection record level count %d out of range", d.Levels))
	}
	rest := r[12:]
	want := 3 * d.Levels
	if len(rest) < 20*want {
		return nil, stegapy.NewError(stegapy.KindSignatureNotValid, Namespace, "detection record truncated")
	}
	d.Bands = make([]BandStat, want)
	for i := 0; i < want; i++ {
		off := 20 * i
		d.Bands[i] = BandStat{
			M: int32(binary.BigEndian.Uint32(rest[off : off+4])),
			Z: math.Float64frombits(binary.BigEndian.Uint64(rest[off+4 : off+12])),
			V: math.Float64frombits(binary.BigEndian.Uint64(rest[off+12 : off+20])),
		}
	}
	return d, nil
}
