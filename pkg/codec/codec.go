// Package codec seals plaintext into the opaque blobs stored by the server and
// opens them again. Keys never leave the client.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"unicode/utf8"

	"ghostink/pkg/wipe"

	"github.com/pkg/errors"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

var (
	ErrDecode         = errors.New("blob is not valid base64")
	ErrFormat         = errors.New("malformed input")
	ErrAuthentication = errors.New("decryption failed: wrong key or corrupted data")
	ErrEncoding       = errors.New("decrypted content is not valid UTF-8")
)

// Key is an AES-256 key. String is redacted so a key never ends up in logs.
type Key [KeySize]byte

func (k Key) String() string { return "[REDACTED]" }

// Wipe zeroes the key in place.
func (k *Key) Wipe() {
	wipe.Bytes(k[:])
}

// NewKey draws a fresh key from crypto/rand.
func NewKey() (Key, error) {
	var k Key
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return Key{}, errors.Wrap(err, "generate key")
	}
	return k, nil
}

// Seal encrypts plaintext under a fresh key and returns the base64 blob
// together with the key.
func Seal(plaintext []byte) (string, Key, error) {
	key, err := NewKey()
	if err != nil {
		return "", Key{}, err
	}
	blob, err := SealWithKey(plaintext, key)
	if err != nil {
		key.Wipe()
		return "", Key{}, err
	}
	return blob, key, nil
}

// SealWithKey encrypts plaintext under key. A fresh nonce is drawn on every
// call, so sealing the same input twice yields different blobs.
func SealWithKey(plaintext []byte, key Key) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "generate nonce")
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. No plaintext is returned unless the tag verifies.
func Open(blob string, key Key) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) < NonceSize {
		return nil, fmt.Errorf("%w: blob too short to contain nonce", ErrFormat)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce, ct := raw[:NonceSize], raw[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	if !utf8.Valid(plaintext) {
		return nil, ErrEncoding
	}
	return plaintext, nil
}

func newAEAD(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "init cipher")
	}
	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, errors.Wrap(err, "init gcm")
	}
	return aead, nil
}
