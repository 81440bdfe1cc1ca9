package net

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/otgo/server/internal/net/packet"
)

// RSABlockSize is the size of the enciphered login block.
const RSABlockSize = 128

// ErrBadHandshake is returned when the login block does not decrypt to a
// well-formed plaintext.
var ErrBadHandshake = errors.New("net: bad handshake block")

// LoadRSAKey reads a PEM encoded PKCS#1 or PKCS#8 private key.
func LoadRSAKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rsa key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("rsa key %s: no PEM block", path)
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse rsa key: %w", err)
	}
	k, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("rsa key %s: not an RSA key", path)
	}
	return k, nil
}

// RSADecryptNoPadding computes c^d mod n over one block and left-pads the
// result to the block size. The client applies no padding scheme.
func RSADecryptNoPadding(key *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != RSABlockSize {
		return nil, fmt.Errorf("rsa decrypt: expected %d bytes, got %d", RSABlockSize, len(ciphertext))
	}
	if key.Size() != RSABlockSize {
		return nil, fmt.Errorf("rsa decrypt: key is %d bits, want %d", key.N.BitLen(), RSABlockSize*8)
	}
	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(key.N) >= 0 {
		return nil, ErrBadHandshake
	}
	m := new(big.Int).Exp(c, key.D, key.N)
	out := make([]byte, RSABlockSize)
	m.FillBytes(out)
	return out, nil
}

// DecryptMessage replaces the RSA block at m's cursor with its plaintext.
// A valid plaintext starts with a zero byte, which is consumed.
func DecryptMessage(key *rsa.PrivateKey, m *packet.NetworkMessage) error {
	if m.Remaining() < RSABlockSize {
		return ErrBadHandshake
	}
	pos := m.Position()
	block := m.Buffer()[pos : pos+RSABlockSize]
	plain, err := RSADecryptNoPadding(key, block)
	if err != nil {
		return err
	}
	copy(block, plain)
	if m.GetByte() != 0 {
		return ErrBadHandshake
	}
	return nil
}
