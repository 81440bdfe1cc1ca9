package net

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/xtea"
)

// XTEA enciphers message bodies in place with a per-connection key.
//
// The client treats both the key and every 8-byte block as little-endian
// uint32 pairs, while x/crypto/xtea is big-endian. Key words are stored
// big-endian and each half-block is byte-swapped around the block call so
// the two agree.
type XTEA struct {
	c *xtea.Cipher
}

// NewXTEA builds the cipher from the four key words sent by the client.
func NewXTEA(key [4]uint32) (*XTEA, error) {
	var raw [16]byte
	for i, k := range key {
		binary.BigEndian.PutUint32(raw[i*4:], k)
	}
	c, err := xtea.NewCipher(raw[:])
	if err != nil {
		return nil, fmt.Errorf("xtea key: %w", err)
	}
	return &XTEA{c: c}, nil
}

// Encrypt enciphers b in place. len(b) must be a multiple of 8.
func (x *XTEA) Encrypt(b []byte) error {
	return x.apply(b, x.c.Encrypt)
}

// Decrypt deciphers b in place. len(b) must be a multiple of 8.
func (x *XTEA) Decrypt(b []byte) error {
	return x.apply(b, x.c.Decrypt)
}

func (x *XTEA) apply(b []byte, fn func(dst, src []byte)) error {
	if len(b)%xtea.BlockSize != 0 {
		return fmt.Errorf("xtea: length %d not a multiple of %d", len(b), xtea.BlockSize)
	}
	for off := 0; off < len(b); off += xtea.BlockSize {
		blk := b[off : off+xtea.BlockSize]
		swapHalves(blk)
		fn(blk, blk)
		swapHalves(blk)
	}
	return nil
}

// swapHalves converts an 8-byte block between LE and BE word order.
func swapHalves(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5], b[6], b[7] = b[7], b[6], b[5], b[4]
}
