package stegapy

import (
	"fmt"
	"strconv"
	"strings"
)

// Recognized option names for Config.Set.
const (
	OptUseCompression        = "useCompression"
	OptUseEncryption         = "useEncryption"
	OptPassword              = "password"
	OptEncryptionAlgorithm   = "encryptionAlgorithm"
	OptMaxBitsUsedPerChannel = "maxBitsUsedPerChannel"
)

// Supported cipher names. They appear verbatim (space-padded) in the data
// header, so the spelling is part of the wire format.
const (
	CipherAES128 = "AES128"
	CipherAES256 = "AES256"
)

// Config carries the per-operation settings shared by the facade and the
// selected algorithm. A Config is mutable: extracting a payload updates the
// compression/encryption fields from the embedded header so the pipeline
// follows the writer's choices. Do not share one Config between concurrent
// operations.
type Config struct {
	UseCompression        bool
	UseEncryption         bool
	Password              string
	EncryptionAlgorithm   string
	MaxBitsUsedPerChannel int
}

// DefaultConfig returns the documented defaults: compression on,
// encryption off, AES128, one bit per channel.
func DefaultConfig() *Config {
	return &Config{
		UseCompression:        true,
		UseEncryption:         false,
		EncryptionAlgorithm:   CipherAES128,
		MaxBitsUsedPerChannel: 1,
	}
}

// Set applies a string-keyed option, validating its value. Boolean options
// accept the strconv.ParseBool forms.
func (c *Config) Set(option, value string) error {
	switch option {
	case OptUseCompression, OptUseEncryption:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("option %s: %w", option, err)
		}
		if option == OptUseCompression {
			c.UseCompression = v
		} else {
			c.UseEncryption = v
		}
	case OptPassword:
		c.Password = value
	case OptEncryptionAlgorithm:
		algo := strings.ToUpper(value)
		if algo != CipherAES128 && algo != CipherAES256 {
			return NewError(KindInvalidCryptAlgo, Namespace,
				fmt.Sprintf("unsupported encryption algorithm %q", value))
		}
		c.EncryptionAlgorithm = algo
	case OptMaxBitsUsedPerChannel:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("option %s: %w", option, err)
		}
		if n < 1 || n > 8 {
			return fmt.Errorf("option %s: %d out of range [1,8]", option, n)
		}
		c.MaxBitsUsedPerChannel = n
	default:
		return fmt.Errorf("unknown option %q", option)
	}
	return nil
}

// Validate checks field ranges after direct struct mutation.
func (c *Config) Validate() error {
	if c.MaxBitsUsedPerChannel < 1 || c.MaxBitsUsedPerChannel > 8 {
		return fmt.Errorf("maxBitsUsedPerChannel %d out of range [1,8]", c.MaxBitsUsedPerChannel)
	}
	if c.EncryptionAlgorithm != CipherAES128 && c.EncryptionAlgorithm != CipherAES256 {
		return NewError(KindInvalidCryptAlgo, Namespace,
			fmt.Sprintf("unsupported encryption algorithm %q", c.EncryptionAlgorithm))
	}
	return nil
}
