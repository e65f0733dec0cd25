// Package sign holds the provider-agnostic signing primitives. Field
// ordering and delimiters are always supplied by the calling adapter; this
// package never hardcodes a provider's sequence.
package sign

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// ChainHash returns the lowercase hex SHA-512 of the fields joined by sep.
// Empty fields are significant: providers count delimiter positions.
func ChainHash(fields []string, sep string) string {
	sum := sha512.Sum512([]byte(strings.Join(fields, sep)))
	return hex.EncodeToString(sum[:])
}

// HMACSHA256 returns the lowercase hex HMAC-SHA256 of message under secret.
func HMACSHA256(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyMAC compares a computed digest against the one a provider sent.
// Hex digests are compared case-insensitively in constant time. It returns
// false, and never panics, for empty or malformed input: garbage must fail
// the check, not escape it.
func VerifyMAC(computed, received string) bool {
	if computed == "" || received == "" {
		return false
	}
	a := []byte(strings.ToLower(computed))
	b := []byte(strings.ToLower(received))
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Seal encrypts plaintext with AES-256-CBC under the hex-encoded key and a
// zero IV, returning base64. The zero IV mirrors the wire format the
// encrypted-payload gateway dictates; the key is per-merchant and secret.
func Seal(plaintext []byte, hexKey string) (string, error) {
	block, err := cipherBlock(hexKey)
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a base64 AES-256-CBC payload. Any defect (bad base64, bad
// key, truncated ciphertext, invalid padding) yields an error so callers
// can fail closed.
func Open(ciphertext, hexKey string) ([]byte, error) {
	block, err := cipherBlock(hexKey)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.New("payload is not valid base64")
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext length is not a block multiple")
	}
	out := make([]byte, len(raw))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	return pkcs7Unpad(out, aes.BlockSize)
}

func cipherBlock(hexKey string) (cipher.Block, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.New("merchant key is not valid hex")
	}
	if len(key) != 32 {
		return nil, errors.New("merchant key must decode to 32 bytes")
	}
	return aes.NewCipher(key)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	pad := make([]byte, n)
	for i := range pad {
		pad[i] = byte(n)
	}
	return append(b, pad...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
