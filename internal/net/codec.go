package net

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/otgo/server/internal/net/packet"
)

// Frame layout: [u16 LE length][body]. Once a session is keyed, body is
// XTEA-enciphered and, once deciphered, starts with a u16 LE inner length
// followed by the payload and padding up to a multiple of 8.

const maxFrameBody = packet.MaxSize - 2

// ReadMessage reads one frame from r into m. With a nil cipher the body is
// left readable from its first byte; otherwise it is deciphered and the
// readable region is the inner payload.
func ReadMessage(r io.Reader, m *packet.NetworkMessage, c *XTEA) error {
	buf := m.Buffer()
	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return fmt.Errorf("read frame header: %w", err)
	}
	n := int(binary.LittleEndian.Uint16(buf[:2]))
	if n == 0 || n > maxFrameBody {
		return fmt.Errorf("invalid frame length: %d", n)
	}
	if _, err := io.ReadFull(r, buf[2:2+n]); err != nil {
		return fmt.Errorf("read frame body (%d bytes): %w", n, err)
	}
	if c == nil {
		m.PrepareRead(2, n)
		return nil
	}
	if err := c.Decrypt(buf[2 : 2+n]); err != nil {
		return fmt.Errorf("decipher frame: %w", err)
	}
	inner := int(binary.LittleEndian.Uint16(buf[2:4]))
	if inner > n-2 {
		return fmt.Errorf("inner length %d exceeds frame %d", inner, n)
	}
	m.PrepareRead(packet.HeaderLen, inner)
	return nil
}

// WriteMessage frames m's body and writes it to w, enciphering when c is
// set. m's header and padding bytes are overwritten.
func WriteMessage(w io.Writer, m *packet.NetworkMessage, c *XTEA) error {
	buf := m.Buffer()
	size := m.Len()
	binary.LittleEndian.PutUint16(buf[2:4], uint16(size))

	var out []byte
	if c == nil {
		out = buf[2 : 4+size]
	} else {
		total := size + 2
		if pad := total % 8; pad != 0 {
			total += 8 - pad
		}
		if 2+total > len(buf) {
			return fmt.Errorf("message too large to encipher: %d", size)
		}
		clear(buf[4+size : 2+total])
		if err := c.Encrypt(buf[2 : 2+total]); err != nil {
			return fmt.Errorf("encipher frame: %w", err)
		}
		binary.LittleEndian.PutUint16(buf[0:2], uint16(total))
		out = buf[0 : 2+total]
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
