// Package secretbox cifra secretos en reposo (access/refresh tokens) con
// NaCl secretbox (XSalsa20-Poly1305) y una clave maestra de 32 bytes.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	requiredKeyLength = 32
	nonceLength       = 24
	sep               = "|" // base64(nonce)|base64(ciphertext)
)

var ErrDecrypt = errors.New("secretbox: decryption failed")

// Box cifra y descifra con una clave maestra fija. Se construye una vez en
// el arranque y se inyecta; no hay estado a nivel de módulo.
type Box struct {
	key [requiredKeyLength]byte
}

// New crea un Box desde una clave en base64 (openssl rand -base64 32).
func New(keyB64 string) (*Box, error) {
	k, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyB64))
	if err != nil {
		return nil, fmt.Errorf("secretbox: decode master key: %w", err)
	}
	if len(k) != requiredKeyLength {
		return nil, fmt.Errorf("secretbox: master key must be %d bytes, got %d", requiredKeyLength, len(k))
	}
	var b Box
	copy(b.key[:], k)
	return &b, nil
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Encrypt(plainText string) (string, error) {
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}

	ct := secretbox.Seal(nil, []byte(plainText), &nonce, &b.key)

	return base64.StdEncoding.EncodeToString(nonce[:]) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt revierte Encrypt.
func (b *Box) Decrypt(cipherText string) (string, error) {
	parts := strings.SplitN(cipherText, sep, 2)
	if len(parts) != 2 {
		return "", ErrDecrypt
	}
	nonceRaw, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonceRaw) != nonceLength {
		return "", ErrDecrypt
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrDecrypt
	}

	var nonce [nonceLength]byte
	copy(nonce[:], nonceRaw)

	pt, ok := secretbox.Open(nil, ct, &nonce, &b.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(pt), nil
}
