// Package crypt implements the symmetric primitives used by hosts that
// encrypt their API payloads: split-key assembly, AES-GCM and AES-CBC.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vidsan-cli/vidsan/errs"
)

// Mode selects the AES block mode.
type Mode int

const (
	GCM Mode = iota
	CBC
)

func (m Mode) String() string {
	switch m {
	case GCM:
		return "gcm"
	case CBC:
		return "cbc"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const gcmTagSize = 16

// KeyMaterial is everything needed for one decrypt call. KeyParts are
// base64 fragments that concatenate, in order, into the AES key.
type KeyMaterial struct {
	Ciphertext []byte
	IV         []byte
	KeyParts   []string
}

// Envelope is the JSON shape hosts use to ship an encrypted payload.
type Envelope struct {
	IV       string   `json:"iv"`
	Payload  string   `json:"payload"`
	KeyParts []string `json:"key_parts"`
}

// KeyMaterial decodes the envelope's base64 fields.
func (e Envelope) KeyMaterial() (KeyMaterial, error) {
	iv, err := DecodeBase64(e.IV)
	if err != nil {
		return KeyMaterial{}, &errs.DecryptionError{Op: "decode iv", Err: err}
	}
	payload, err := DecodeBase64(e.Payload)
	if err != nil {
		return KeyMaterial{}, &errs.DecryptionError{Op: "decode payload", Err: err}
	}
	return KeyMaterial{Ciphertext: payload, IV: iv, KeyParts: e.KeyParts}, nil
}

// DecodeBase64 accepts URL-safe or standard base64, padded or not.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}

// AssembleKey decodes every part and concatenates them into one AES key.
func AssembleKey(parts ...string) ([]byte, error) {
	if len(parts) == 0 {
		return nil, &errs.DecryptionError{Op: "assemble key", Err: errors.New("no key parts")}
	}

	var key []byte
	for i, part := range parts {
		b, err := DecodeBase64(part)
		if err != nil {
			return nil, &errs.DecryptionError{Op: "assemble key", Err: fmt.Errorf("part %d: %w", i, err)}
		}
		key = append(key, b...)
	}

	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, &errs.DecryptionError{Op: "assemble key", Err: fmt.Errorf("invalid key length %d", len(key))}
	}
}

// Decrypt assembles the key and decrypts km in the given mode.
func Decrypt(km KeyMaterial, mode Mode) ([]byte, error) {
	key, err := AssembleKey(km.KeyParts...)
	if err != nil {
		return nil, err
	}
	return DecryptWithKey(km.Ciphertext, key, km.IV, mode)
}

// DecryptWithKey decrypts ciphertext with an already assembled key.
// GCM expects the 16-byte tag appended to the ciphertext and fails closed
// on a mismatch.
func DecryptWithKey(ciphertext, key, iv []byte, mode Mode) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &errs.DecryptionError{Op: mode.String(), Err: err}
	}

	switch mode {
	case GCM:
		if len(iv) == 0 {
			return nil, &errs.DecryptionError{Op: "gcm", Err: errors.New("empty nonce")}
		}
		aead, err := cipher.NewGCMWithNonceSize(block, len(iv))
		if err != nil {
			return nil, &errs.DecryptionError{Op: "gcm", Err: err}
		}
		if len(ciphertext) < gcmTagSize {
			return nil, &errs.DecryptionError{Op: "gcm", Err: errors.New("ciphertext shorter than tag")}
		}
		plain, err := aead.Open(nil, iv, ciphertext, nil)
		if err != nil {
			return nil, &errs.DecryptionError{Op: "gcm", Err: err}
		}
		return plain, nil

	case CBC:
		if len(iv) != aes.BlockSize {
			return nil, &errs.DecryptionError{Op: "cbc", Err: fmt.Errorf("iv length %d", len(iv))}
		}
		if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
			return nil, &errs.DecryptionError{Op: "cbc", Err: errors.New("ciphertext is not a multiple of the block size")}
		}
		plain := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
		plain, err = pkcs7Unpad(plain, aes.BlockSize)
		if err != nil {
			return nil, &errs.DecryptionError{Op: "cbc", Err: err}
		}
		return plain, nil
	}

	return nil, &errs.DecryptionError{Op: mode.String(), Err: errors.New("unknown mode")}
}

// Encrypt is the inverse of DecryptWithKey.
func Encrypt(plaintext, key, iv []byte, mode Mode) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &errs.DecryptionError{Op: "encrypt " + mode.String(), Err: err}
	}

	switch mode {
	case GCM:
		aead, err := cipher.NewGCMWithNonceSize(block, len(iv))
		if err != nil {
			return nil, &errs.DecryptionError{Op: "encrypt gcm", Err: err}
		}
		return aead.Seal(nil, iv, plaintext, nil), nil

	case CBC:
		if len(iv) != aes.BlockSize {
			return nil, &errs.DecryptionError{Op: "encrypt cbc", Err: fmt.Errorf("iv length %d", len(iv))}
		}
		padded := pkcs7Pad(plaintext, aes.BlockSize)
		out := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
		return out, nil
	}

	return nil, &errs.DecryptionError{Op: "encrypt " + mode.String(), Err: errors.New("unknown mode")}
}

// EncryptToken encrypts an API identifier with a passphrase-derived key:
// the passphrase bytes are the key and its first 16 bytes the IV. The
// result is URL-safe base64 without padding.
func EncryptToken(id, passphrase string) (string, error) {
	key := []byte(passphrase)
	if len(key) < aes.BlockSize {
		return "", &errs.DecryptionError{Op: "encrypt token", Err: fmt.Errorf("passphrase too short")}
	}

	out, err := Encrypt([]byte(id), key, key[:aes.BlockSize], CBC)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data[:len(data):len(data)], bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	padding := int(data[n-1])
	if padding == 0 || padding > blockSize || padding > n {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[n-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:n-padding], nil
}
