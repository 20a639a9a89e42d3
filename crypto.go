package stegapy

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. They are interoperability requirements, not
// security claims: a payload written by any conforming implementation must
// decrypt under these exact values.
var kdfSalt = []byte{0x28, 0x5F, 0x71, 0xC9, 0x1E, 0x35, 0x0A, 0x62}

const kdfIterations = 7

// cryptor performs the AES-CBC payload stage. The ciphertext framing is
// [ivLen:1][iv][ciphertext] with PKCS#7 padding inside.
type cryptor struct {
	key []byte
}

func newCryptor(password, algorithm string) (*cryptor, error) {
	var keyLen int
	switch algorithm {
	case CipherAES128:
		keyLen = 16
	case CipherAES256:
		keyLen = 32
	default:
		return nil, NewError(KindInvalidCryptAlgo, Namespace,
			fmt.Sprintf("unsupported encryption algorithm %q", algorithm))
	}
	key := pbkdf2.Key([]byte(password), kdfSalt, kdfIterations, keyLen, sha256.New)
	return &cryptor{key: key}, nil
}

func (c *cryptor) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	out := make([]byte, 0, 1+len(iv)+len(ct))
	out = append(out, byte(len(iv)))
	out = append(out, iv...)
	out = append(out, ct...)
	return out, nil
}

func (c *cryptor) decrypt(data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, NewError(KindCorruptData, Namespace, "encrypted payload is empty")
	}
	ivLen := int(data[0])
	if ivLen != aes.BlockSize || len(data) < 1+ivLen {
		return nil, NewError(KindCorruptData, Namespace, "encrypted payload framing is invalid")
	}
	iv := data[1 : 1+ivLen]
	ct := data[1+ivLen:]
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, NewError(KindCorruptData, Namespace, "ciphertext length is not a whole number of blocks")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)

	plaintext, ok := pkcs7Unpad(padded, aes.BlockSize)
	if !ok {
		// CBC has no authentication; a bad pad is indistinguishable from a
		// wrong key, and the wrong key is by far the common cause.
		return nil, NewError(KindInvalidPassword, Namespace, "wrong password or damaged ciphertext")
	}
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n < 1 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
