package lsb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/MearaY/stegapy"
)

// Data header layout, in embed order:
//
//	magic "STEGAPY  "            9 bytes
//	version 0x02                 1 byte
//	payload length, uint32 LE    4 bytes
//	channel bits used            1 byte
//	filename length              1 byte
//	compression flag             1 byte
//	encryption flag              1 byte
//	cipher name, space-padded    8 bytes
//	filename, UTF-8              0–255 bytes
//
// The fixed prefix (everything before the filename) is 26 bytes. The
// header is always packed at one bit-plane per position regardless of the
// channel-bits field, which applies to the payload only; that way the
// reader can recover the field before it needs it.
const (
	headerVersion   = 0x02
	cipherFieldLen  = 8
	maxFilenameLen  = 255
	FixedPrefixLen  = 26
	MaxEncodedLen   = FixedPrefixLen + maxFilenameLen
)

var headerMagic = []byte("STEGAPY  ")

// Codec-level parse failures. The algorithms map these onto the tagged
// error taxonomy.
var (
	ErrBadMagic        = errors.New("lsb: header magic not found")
	ErrBadVersion      = errors.New("lsb: unsupported header version")
	ErrTruncatedHeader = errors.New("lsb: truncated header")
	ErrFilenameLength  = errors.New("lsb: filename exceeds 255 encoded bytes")
)

// Header is the descriptor prefixed to every hidden payload.
type Header struct {
	DataLength  uint32
	ChannelBits int
	Filename    string
	Compress    bool
	Encrypt     bool
	Cipher      string // "AES128" or "AES256"; ignored when Encrypt is false
}

// NewHeader captures the current configuration into a header for a payload
// of dataLen bytes named filename.
func NewHeader(dataLen int, filename string, cfg *stegapy.Config) *Header {
	h := &Header{
		DataLength:  uint32(dataLen),
		ChannelBits: cfg.MaxBitsUsedPerChannel,
		Filename:    filename,
		Compress:    cfg.UseCompression,
		Encrypt:     cfg.UseEncryption,
	}
	if h.Encrypt {
		h.Cipher = cfg.EncryptionAlgorithm
	}
	return h
}

// EncodedSize returns the byte length of the marshaled header.
func (h *Header) EncodedSize() int {
	return FixedPrefixLen + len(h.Filename)
}

// MarshalBinary serializes the header.
func (h *Header) MarshalBinary() ([]byte, error) {
	name := []byte(h.Filename)
	if len(name) > maxFilenameLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFilenameLength, len(name))
	}
	out := make([]byte, 0, FixedPrefixLen+len(name))
	out = append(out, headerMagic...)
	out = append(out, headerVersion)
	out = binary.LittleEndian.AppendUint32(out, h.DataLength)
	out = append(out, byte(h.ChannelBits), byte(len(name)), flagByte(h.Compress), flagByte(h.Encrypt))

	cipher := ""
	if h.Encrypt {
		cipher = h.Cipher
	}
	if len(cipher) > cipherFieldLen {
		cipher = cipher[:cipherFieldLen]
	}
	out = append(out, cipher...)
	out = append(out, strings.Repeat(" ", cipherFieldLen-len(cipher))...)
	out = append(out, name...)
	return out, nil
}

// ParsePrefix decodes the 26-byte fixed prefix and returns the header
// (without filename) and the filename length still to be read.
func ParsePrefix(prefix []byte) (*Header, int, error) {
	if len(prefix) < FixedPrefixLen {
		return nil, 0, ErrTruncatedHeader
	}
	if string(prefix[:len(headerMagic)]) != string(headerMagic) {
		return nil, 0, ErrBadMagic
	}
	if prefix[9] != headerVersion {
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrBadVersion, prefix[9])
	}
	h := &Header{
		DataLength:  binary.LittleEndian.Uint32(prefix[10:14]),
		ChannelBits: int(prefix[14]),
		Compress:    prefix[16] == 1,
		Encrypt:     prefix[17] == 1,
		Cipher:      strings.TrimRight(string(prefix[18:26]), " "),
	}
	return h, int(prefix[15]), nil
}

// Parse decodes a fully materialized header (prefix plus filename), as
// written by MarshalBinary.
func Parse(data []byte) (*Header, error) {
	h, nameLen, err := ParsePrefix(data)
	if err != nil {
		return nil, err
	}
	if len(data) < FixedPrefixLen+nameLen {
		return nil, ErrTruncatedHeader
	}
	h.Filename = string(data[FixedPrefixLen : FixedPrefixLen+nameLen])
	return h, nil
}

// ApplyToConfig pushes the pipeline fields recorded at embed time into the
// extracting side's configuration, so decrypt/decompress follow the
// writer's choices.
func (h *Header) ApplyToConfig(cfg *stegapy.Config) error {
	cfg.UseCompression = h.Compress
	cfg.UseEncryption = h.Encrypt
	if h.Encrypt {
		switch h.Cipher {
		case stegapy.CipherAES128, stegapy.CipherAES256:
			cfg.EncryptionAlgorithm = h.Cipher
		default:
			return stegapy.NewError(stegapy.KindInvalidCryptAlgo, Namespace,
				fmt.Sprintf("header names unsupported cipher %q", h.Cipher))
		}
	}
	return nil
}

func flagByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
