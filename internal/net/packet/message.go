package packet

import (
	"encoding/binary"

	"golang.org/x/text/encoding/charmap"

	"github.com/otgo/server/internal/data"
)

const (
	// MaxSize is the capacity of one message buffer.
	MaxSize = 16384
	// HeaderLen is reserved in front of the body for the outer frame length
	// and the inner (pre-padding) length of enciphered messages.
	HeaderLen = 4
	// MaxStringLen is the longest string AddString accepts.
	MaxStringLen = 8192

	tailroom = 16
)

// NetworkMessage is a fixed-capacity buffer with a cursor, used both to
// decode an inbound frame and to build an outbound one. A message belongs to
// one goroutine at a time.
//
// Writes that do not fit are dropped whole and set the sticky Truncated
// flag; everything written before stays intact. Reads past the readable
// body return zero values and leave the cursor where it was.
type NetworkMessage struct {
	buf       [MaxSize]byte
	start     int // first body byte
	size      int // body length
	pos       int // cursor
	truncated bool
}

// NewMessage returns an empty message ready for writing.
func NewMessage() *NetworkMessage {
	m := &NetworkMessage{}
	m.Reset()
	return m
}

// Reset empties the message and puts the cursor just past the header.
func (m *NetworkMessage) Reset() {
	m.start = HeaderLen
	m.size = 0
	m.pos = HeaderLen
	m.truncated = false
}

// PrepareRead marks buf[start:start+length] as the readable body and moves
// the cursor to start. Used by the codec after filling Buffer().
func (m *NetworkMessage) PrepareRead(start, length int) {
	if start < 0 {
		start = 0
	}
	if start+length > MaxSize {
		length = MaxSize - start
	}
	m.start = start
	m.size = length
	m.pos = start
	m.truncated = false
}

// Buffer exposes the whole backing array for in-place transforms.
func (m *NetworkMessage) Buffer() []byte { return m.buf[:] }

// Body returns the written or readable body bytes.
func (m *NetworkMessage) Body() []byte { return m.buf[m.start : m.start+m.size] }

func (m *NetworkMessage) Len() int        { return m.size }
func (m *NetworkMessage) Empty() bool     { return m.size == 0 }
func (m *NetworkMessage) Truncated() bool { return m.truncated }

// Position returns the cursor offset into Buffer().
func (m *NetworkMessage) Position() int { return m.pos }

// SetPosition moves the cursor. Out-of-range offsets are ignored.
func (m *NetworkMessage) SetPosition(p int) bool {
	if p < 0 || p > MaxSize {
		return false
	}
	m.pos = p
	return true
}

// Rewind moves the cursor back to the start of the body.
func (m *NetworkMessage) Rewind() { m.pos = m.start }

// Remaining is the number of unread body bytes.
func (m *NetworkMessage) Remaining() int {
	if n := m.start + m.size - m.pos; n > 0 {
		return n
	}
	return 0
}

func (m *NetworkMessage) readable(n int) bool {
	return m.pos >= 0 && m.pos+n <= m.start+m.size
}

// --- decode ---

func (m *NetworkMessage) GetByte() uint8 {
	if !m.readable(1) {
		return 0
	}
	v := m.buf[m.pos]
	m.pos++
	return v
}

func (m *NetworkMessage) GetU16() uint16 {
	if !m.readable(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(m.buf[m.pos:])
	m.pos += 2
	return v
}

func (m *NetworkMessage) GetU32() uint32 {
	if !m.readable(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(m.buf[m.pos:])
	m.pos += 4
	return v
}

// GetString reads a u16 length-prefixed Latin-1 string and returns it as UTF-8.
func (m *NetworkMessage) GetString() string {
	if !m.readable(2) {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(m.buf[m.pos:]))
	if !m.readable(2 + n) {
		return ""
	}
	raw := m.buf[m.pos+2 : m.pos+2+n]
	m.pos += 2 + n
	return latin1ToUTF8(raw)
}

// GetRaw returns a copy of the next n bytes.
func (m *NetworkMessage) GetRaw(n int) []byte {
	if n < 0 || !m.readable(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, m.buf[m.pos:m.pos+n])
	m.pos += n
	return out
}

func (m *NetworkMessage) GetPosition() data.Position {
	if !m.readable(5) {
		return data.Position{}
	}
	return data.Position{X: m.GetU16(), Y: m.GetU16(), Z: m.GetByte()}
}

// SkipBytes advances the cursor by n (negative moves back).
func (m *NetworkMessage) SkipBytes(n int) {
	m.SetPosition(m.pos + n)
}

// --- encode ---

func (m *NetworkMessage) canAdd(n int) bool {
	return n+m.pos < MaxSize-tailroom
}

func (m *NetworkMessage) grow(n int) bool {
	if !m.canAdd(n) {
		m.truncated = true
		return false
	}
	return true
}

func (m *NetworkMessage) advance(n int) {
	m.pos += n
	m.size += n
}

// atomic runs a composite write and rolls it back if any part was dropped.
func (m *NetworkMessage) atomic(fn func()) {
	pos, size, was := m.pos, m.size, m.truncated
	m.truncated = false
	fn()
	if m.truncated {
		m.pos, m.size = pos, size
	}
	m.truncated = m.truncated || was
}

func (m *NetworkMessage) AddByte(v uint8) {
	if !m.grow(1) {
		return
	}
	m.buf[m.pos] = v
	m.advance(1)
}

func (m *NetworkMessage) AddU16(v uint16) {
	if !m.grow(2) {
		return
	}
	binary.LittleEndian.PutUint16(m.buf[m.pos:], v)
	m.advance(2)
}

func (m *NetworkMessage) AddU32(v uint32) {
	if !m.grow(4) {
		return
	}
	binary.LittleEndian.PutUint32(m.buf[m.pos:], v)
	m.advance(4)
}

func (m *NetworkMessage) AddBytes(b []byte) {
	if !m.grow(len(b)) {
		return
	}
	copy(m.buf[m.pos:], b)
	m.advance(len(b))
}

// AddString writes s as a u16 length-prefixed Latin-1 string. Strings
// longer than MaxStringLen once encoded are dropped.
func (m *NetworkMessage) AddString(s string) {
	raw := utf8ToLatin1(s)
	if len(raw) > MaxStringLen {
		m.truncated = true
		return
	}
	m.atomic(func() {
		m.AddU16(uint16(len(raw)))
		m.AddBytes(raw)
	})
}

func (m *NetworkMessage) AddPosition(p data.Position) {
	m.atomic(func() {
		m.AddU16(p.X)
		m.AddU16(p.Y)
		m.AddByte(p.Z)
	})
}

// AddItem writes an item descriptor: the client id, then the count byte for
// stackables, fluid containers and splashes.
func (m *NetworkMessage) AddItem(t *data.ItemType, count uint8) {
	if t == nil {
		m.AddU16(0)
		return
	}
	m.atomic(func() {
		m.AddU16(t.ClientID)
		if t.HasSubType() {
			m.AddByte(count)
		}
	})
}

// AddItemID writes only the client id of t.
func (m *NetworkMessage) AddItemID(t *data.ItemType) {
	if t == nil {
		m.AddU16(0)
		return
	}
	m.AddU16(t.ClientID)
}

// JoinMessages appends add's body. Returns false, leaving m unchanged, when
// it does not fit.
func (m *NetworkMessage) JoinMessages(add *NetworkMessage) bool {
	if !m.canAdd(add.size) {
		return false
	}
	copy(m.buf[m.pos:], add.Body())
	m.advance(add.size)
	return true
}

func latin1ToUTF8(raw []byte) string {
	for _, b := range raw {
		if b >= 0x80 {
			out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
			if err != nil {
				return string(raw)
			}
			return string(out)
		}
	}
	return string(raw)
}

func utf8ToLatin1(s string) []byte {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
			if err != nil {
				return []byte(s)
			}
			return out
		}
	}
	return []byte(s)
}
