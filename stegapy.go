// Package stegapy hides data in still images and embeds and detects
// digital watermarks in them.
//
// Two engine families are built in: spatial-domain LSB data hiding in
// raster ("LSB") and keyed-permutation ("RandomLSB") order, and
// transform-domain watermarking with the Dugad additive rule on DWT detail
// subbands ("DWTDugad"). Both share an optional payload pipeline of gzip
// compression and password-derived AES-CBC encryption.
//
// The Steganographer facade dispatches the public operations to a selected
// algorithm. Algorithm packages register themselves on import; importing
// github.com/MearaY/stegapy/plugins pulls in all built-ins, the same way
// the image package's format decoders are registered.
package stegapy

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Namespace tags errors raised by the facade itself.
const Namespace = "StegaPy"

// Steganographer dispatches the public operations to one algorithm,
// running the payload pipeline around data-hiding embeds and extracts.
// It is not safe for concurrent use; construct one per goroutine.
type Steganographer struct {
	alg Algorithm
	cfg *Config
	log *slog.Logger
}

// New builds a facade over the named registered algorithm. The same cfg is
// shared with the algorithm instance so header decoding can update the
// pipeline settings. A nil cfg gets the defaults.
func New(algorithm string, cfg *Config) (*Steganographer, error) {
	if algorithm == "" {
		return nil, NewError(KindNoAlgorithm, Namespace, "no algorithm specified")
	}
	factory, ok := Lookup(algorithm)
	if !ok {
		return nil, NewError(KindNoAlgorithm, Namespace,
			fmt.Sprintf("unknown algorithm %q (is the plugins package imported?)", algorithm))
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Steganographer{alg: factory(cfg), cfg: cfg, log: slog.Default()}, nil
}

// SetLogger replaces the destination for operation logs.
func (s *Steganographer) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// Algorithm returns the algorithm instance behind the facade.
func (s *Steganographer) Algorithm() Algorithm { return s.alg }

// Config returns the shared configuration.
func (s *Steganographer) Config() *Config { return s.cfg }

func (s *Steganographer) supports(p Purpose) bool {
	for _, have := range s.alg.Purposes() {
		if have == p {
			return true
		}
	}
	return false
}

// EmbedData hides msg (carried under msgName) in cover and returns the
// stego image encoded per stegoName's extension. The payload pipeline runs
// first: gzip when compression is enabled, then AES-CBC when encryption is
// enabled.
func (s *Steganographer) EmbedData(msg []byte, msgName string, cover []byte, coverName, stegoName string) ([]byte, error) {
	if !s.supports(DataHiding) {
		return nil, NewError(KindNoDataHiding, Namespace,
			fmt.Sprintf("algorithm %s does not support data hiding", s.alg.Name()))
	}
	op := uuid.NewString()[:8]
	s.log.Debug("embed data", "op", op, "algorithm", s.alg.Name(),
		"payload_bytes", len(msg), "compress", s.cfg.UseCompression, "encrypt", s.cfg.UseEncryption)

	var err error
	if s.cfg.UseCompression {
		if msg, err = compressPayload(msg); err != nil {
			return nil, asUnhandled(Namespace, err)
		}
	}
	if s.cfg.UseEncryption {
		if s.cfg.Password == "" {
			return nil, NewError(KindInvalidPassword, Namespace, "encryption requires a password")
		}
		c, err := newCryptor(s.cfg.Password, s.cfg.EncryptionAlgorithm)
		if err != nil {
			return nil, err
		}
		if msg, err = c.encrypt(msg); err != nil {
			return nil, asUnhandled(Namespace, err)
		}
	}

	stego, err := s.alg.EmbedData(msg, msgName, cover, coverName, stegoName)
	if err != nil {
		return nil, asUnhandled(Namespace, err)
	}
	s.log.Debug("embed data done", "op", op, "stego_bytes", len(stego))
	return stego, nil
}

// ExtractData recovers the embedded filename and payload from a stego
// image. The pipeline stages recorded in the embedded header are undone in
// reverse order: decrypt, then decompress.
func (s *Steganographer) ExtractData(stego []byte, stegoName string) (string, []byte, error) {
	if !s.supports(DataHiding) {
		return "", nil, NewError(KindNoDataHiding, Namespace,
			fmt.Sprintf("algorithm %s does not support data hiding", s.alg.Name()))
	}
	op := uuid.NewString()[:8]
	s.log.Debug("extract data", "op", op, "algorithm", s.alg.Name())

	// The algorithm updates s.cfg from the header it decodes.
	filename, msg, err := s.alg.ExtractData(stego, stegoName, nil)
	if err != nil {
		return "", nil, asUnhandled(Namespace, err)
	}

	if s.cfg.UseEncryption {
		if s.cfg.Password == "" {
			return "", nil, NewError(KindInvalidPassword, Namespace, "decryption requires a password")
		}
		c, err := newCryptor(s.cfg.Password, s.cfg.EncryptionAlgorithm)
		if err != nil {
			return "", nil, err
		}
		if msg, err = c.decrypt(msg); err != nil {
			return "", nil, err
		}
	}
	if s.cfg.UseCompression {
		if msg, err = decompressPayload(msg); err != nil {
			return "", nil, err
		}
	}
	s.log.Debug("extract data done", "op", op, "filename", filename, "payload_bytes", len(msg))
	return filename, msg, nil
}

// EmbedMark casts the signature sig into cover and returns the marked
// image. The payload pipeline is bypassed: signatures are embedded as-is.
func (s *Steganographer) EmbedMark(sig []byte, sigName string, cover []byte, coverName, stegoName string) ([]byte, error) {
	if !s.supports(Watermarking) {
		return nil, NewError(KindNoWatermarking, Namespace,
			fmt.Sprintf("algorithm %s does not support watermarking", s.alg.Name()))
	}
	op := uuid.NewString()[:8]
	s.log.Debug("embed mark", "op", op, "algorithm", s.alg.Name(), "signature_bytes", len(sig))

	stego, err := s.alg.EmbedData(sig, sigName, cover, coverName, stegoName)
	if err != nil {
		return nil, asUnhandled(Namespace, err)
	}
	return stego, nil
}

// CheckMark detects the watermark described by origSig in stego and
// returns the correlation score in [0, 1]. A NaN score is coerced to 0.
func (s *Steganographer) CheckMark(stego []byte, stegoName string, origSig []byte) (float64, error) {
	if !s.supports(Watermarking) {
		return 0, NewError(KindNoWatermarking, Namespace,
			fmt.Sprintf("algorithm %s does not support watermarking", s.alg.Name()))
	}
	op := uuid.NewString()[:8]
	s.log.Debug("check mark", "op", op, "algorithm", s.alg.Name())

	_, mark, err := s.alg.ExtractData(stego, stegoName, origSig)
	if err != nil {
		return 0, asUnhandled(Namespace, err)
	}
	score, err := s.alg.WatermarkCorrelation(origSig, mark)
	if err != nil {
		return 0, asUnhandled(Namespace, err)
	}
	if math.IsNaN(score) {
		score = 0
	}
	s.log.Debug("check mark done", "op", op, "score", score)
	return score, nil
}

// GenerateSignature produces a fresh signature record from the configured
// password.
func (s *Steganographer) GenerateSignature() ([]byte, error) {
	if !s.supports(Watermarking) {
		return nil, NewError(KindNoWatermarking, Namespace,
			fmt.Sprintf("algorithm %s does not support watermarking", s.alg.Name()))
	}
	if s.cfg.Password == "" {
		return nil, NewError(KindPasswordRequired, Namespace, "signature generation requires a password")
	}
	sig, err := s.alg.GenerateSignature()
	if err != nil {
		return nil, asUnhandled(Namespace, err)
	}
	return sig, nil
}

// Diff returns a per-channel amplified difference image of stego against
// cover, for visual inspection of what an embed touched.
func (s *Steganographer) Diff(stego []byte, stegoName string, cover []byte, coverName, diffName string) ([]byte, error) {
	out, err := s.alg.Diff(stego, stegoName, cover, coverName, diffName)
	if err != nil {
		return nil, asUnhandled(Namespace, err)
	}
	return out, nil
}
