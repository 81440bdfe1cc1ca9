package net

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"math/big"
	gonet "net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/otgo/server/internal/net/packet"
)

// referenceEncrypt is the little-endian XTEA loop the client runs.
func referenceEncrypt(key [4]uint32, b []byte) {
	const delta = 0x9E3779B9
	for off := 0; off < len(b); off += 8 {
		v0 := binary.LittleEndian.Uint32(b[off:])
		v1 := binary.LittleEndian.Uint32(b[off+4:])
		var sum uint32
		for i := 0; i < 32; i++ {
			v0 += (((v1 << 4) ^ (v1 >> 5)) + v1) ^ (sum + key[sum&3])
			sum += delta
			v1 += (((v0 << 4) ^ (v0 >> 5)) + v0) ^ (sum + key[(sum>>11)&3])
		}
		binary.LittleEndian.PutUint32(b[off:], v0)
		binary.LittleEndian.PutUint32(b[off+4:], v1)
	}
}

func TestXTEAMatchesClientByteOrder(t *testing.T) {
	key := [4]uint32{0x01234567, 0x89ABCDEF, 0xFEDCBA98, 0x76543210}
	x, err := NewXTEA(key)
	require.NoError(t, err)

	plain := []byte("sixteen byte msg")
	want := bytes.Clone(plain)
	referenceEncrypt(key, want)

	got := bytes.Clone(plain)
	require.NoError(t, x.Encrypt(got))
	assert.Equal(t, want, got)

	require.NoError(t, x.Decrypt(got))
	assert.Equal(t, plain, got)

	assert.Error(t, x.Encrypt(make([]byte, 7)))
}

func TestCodecPlainRoundTrip(t *testing.T) {
	out := packet.NewMessage()
	out.AddByte(0x0A)
	out.AddString("hello")

	var wire bytes.Buffer
	require.NoError(t, WriteMessage(&wire, out, nil))
	assert.Equal(t, uint16(out.Len()), binary.LittleEndian.Uint16(wire.Bytes()))

	in := packet.NewMessage()
	require.NoError(t, ReadMessage(&wire, in, nil))
	assert.Equal(t, uint8(0x0A), in.GetByte())
	assert.Equal(t, "hello", in.GetString())
	assert.Equal(t, 0, in.Remaining())
}

func TestCodecEncipheredRoundTrip(t *testing.T) {
	x, err := NewXTEA([4]uint32{1, 2, 3, 4})
	require.NoError(t, err)

	out := packet.NewMessage()
	out.AddByte(0xB4)
	out.AddU32(0xDEADBEEF)
	out.AddString("odd length payload")

	var wire bytes.Buffer
	require.NoError(t, WriteMessage(&wire, out, x))
	frameLen := int(binary.LittleEndian.Uint16(wire.Bytes()))
	assert.Equal(t, 0, frameLen%8)
	assert.Equal(t, frameLen+2, wire.Len())

	in := packet.NewMessage()
	require.NoError(t, ReadMessage(&wire, in, x))
	assert.Equal(t, uint8(0xB4), in.GetByte())
	assert.Equal(t, uint32(0xDEADBEEF), in.GetU32())
	assert.Equal(t, "odd length payload", in.GetString())
	assert.Equal(t, 0, in.Remaining(), "padding is not readable")
}

func TestReadMessageRejectsBadLengths(t *testing.T) {
	in := packet.NewMessage()
	assert.Error(t, ReadMessage(bytes.NewReader([]byte{0, 0}), in, nil))
	assert.Error(t, ReadMessage(bytes.NewReader([]byte{5, 0, 1, 2}), in, nil))
}

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return k
}

// rsaEncrypt is the raw public operation the client performs.
func rsaEncrypt(t *testing.T, k *rsa.PrivateKey, plain []byte) []byte {
	t.Helper()
	m := new(big.Int).SetBytes(plain)
	c := new(big.Int).Exp(m, big.NewInt(int64(k.E)), k.N)
	out := make([]byte, RSABlockSize)
	c.FillBytes(out)
	return out
}

func TestRSADecryptNoPadding(t *testing.T) {
	k := newTestKey(t)
	plain := make([]byte, RSABlockSize)
	_, err := rand.Read(plain[1:])
	require.NoError(t, err)

	got, err := RSADecryptNoPadding(k, rsaEncrypt(t, k, plain))
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	_, err = RSADecryptNoPadding(k, make([]byte, 64))
	assert.Error(t, err)
}

func TestLoadRSAKey(t *testing.T) {
	k := newTestKey(t)
	dir := t.TempDir()

	pkcs1 := filepath.Join(dir, "pkcs1.pem")
	require.NoError(t, os.WriteFile(pkcs1, pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k),
	}), 0o600))
	got, err := LoadRSAKey(pkcs1)
	require.NoError(t, err)
	assert.Equal(t, k.N, got.N)

	der, err := x509.MarshalPKCS8PrivateKey(k)
	require.NoError(t, err)
	pkcs8 := filepath.Join(dir, "pkcs8.pem")
	require.NoError(t, os.WriteFile(pkcs8, pem.EncodeToMemory(&pem.Block{
		Type: "PRIVATE KEY", Bytes: der,
	}), 0o600))
	got, err = LoadRSAKey(pkcs8)
	require.NoError(t, err)
	assert.Equal(t, k.D, got.D)

	junk := filepath.Join(dir, "junk.pem")
	require.NoError(t, os.WriteFile(junk, []byte("not a key"), 0o600))
	_, err = LoadRSAKey(junk)
	assert.Error(t, err)
}

// loginMessage builds the client's first message: opcode, os, version and
// the RSA block carrying the XTEA key and account credentials.
func loginMessage(t *testing.T, k *rsa.PrivateKey, key [4]uint32) *packet.NetworkMessage {
	t.Helper()
	block := packet.NewMessage()
	block.AddByte(0)
	for _, w := range key {
		block.AddU32(w)
	}
	block.AddByte(0)    // gm
	block.AddU32(12345) // account
	block.AddString("Alice")
	block.AddString("secret")
	plain := make([]byte, RSABlockSize)
	copy(plain, block.Body())

	m := packet.NewMessage()
	m.AddByte(packet.C_LOGIN)
	m.AddU16(2)   // os
	m.AddU16(760) // version
	m.AddBytes(rsaEncrypt(t, k, plain))
	return m
}

func recvTimeout(t *testing.T, ch <-chan *packet.NetworkMessage) *packet.NetworkMessage {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestSessionHandshakeAndTraffic(t *testing.T) {
	k := newTestKey(t)
	key := [4]uint32{11, 22, 33, 44}
	x, err := NewXTEA(key)
	require.NoError(t, err)

	client, server := gonet.Pipe()
	defer client.Close()
	sess := NewSession(server, 1, k, SessionConfig{InQueueSize: 4, OutQueueSize: 4}, zap.NewNop())
	sess.Start()
	defer sess.Close()

	require.NoError(t, WriteMessage(client, loginMessage(t, k, key), nil))
	login := recvTimeout(t, sess.InQueue)
	assert.True(t, sess.Keyed())
	assert.Equal(t, packet.C_LOGIN, login.GetByte())
	assert.Equal(t, uint16(2), login.GetU16())
	assert.Equal(t, uint16(760), login.GetU16())
	login.SkipBytes(1 + 16)
	assert.Equal(t, uint8(0), login.GetByte())
	assert.Equal(t, uint32(12345), login.GetU32())
	assert.Equal(t, "Alice", login.GetString())
	assert.Equal(t, "secret", login.GetString())

	say := packet.NewMessage()
	say.AddByte(packet.C_SAY)
	say.AddString("aleta sio")
	require.NoError(t, WriteMessage(client, say, x))
	got := recvTimeout(t, sess.InQueue)
	assert.Equal(t, packet.C_SAY, got.GetByte())
	assert.Equal(t, "aleta sio", got.GetString())

	// Two small messages are joined into one frame.
	a := packet.NewMessage()
	a.AddByte(packet.S_TEXT_MESSAGE)
	b := packet.NewMessage()
	b.AddByte(packet.S_PING)
	sess.Send(a)
	sess.Send(b)
	sess.FlushOutput()

	reply := packet.NewMessage()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ReadMessage(client, reply, x))
	assert.Equal(t, []byte{packet.S_TEXT_MESSAGE, packet.S_PING}, reply.Body())
}

func TestSessionRejectsBadHandshake(t *testing.T) {
	k := newTestKey(t)
	client, server := gonet.Pipe()
	defer client.Close()
	sess := NewSession(server, 2, k, SessionConfig{InQueueSize: 1, OutQueueSize: 1}, zap.NewNop())
	sess.Start()

	m := packet.NewMessage()
	m.AddByte(packet.C_SAY)
	m.AddBytes(make([]byte, 4+RSABlockSize))
	require.NoError(t, WriteMessage(client, m, nil))

	assert.Eventually(t, sess.IsClosed, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, packet.StateDisconnecting, sess.State())
}

func TestSendDropsTruncated(t *testing.T) {
	client, server := gonet.Pipe()
	defer client.Close()
	sess := NewSession(server, 3, nil, SessionConfig{InQueueSize: 1, OutQueueSize: 1}, zap.NewNop())
	defer sess.Close()

	m := packet.NewMessage()
	m.AddByte(1)
	m.AddString(string(make([]byte, packet.MaxStringLen+1)))
	require.True(t, m.Truncated())
	sess.Send(m)
	sess.FlushOutput()
	assert.Empty(t, sess.OutQueue)
}

func TestDisconnectFlushesThenCloses(t *testing.T) {
	client, server := gonet.Pipe()
	defer client.Close()
	sess := NewSession(server, 4, nil, SessionConfig{InQueueSize: 1, OutQueueSize: 4}, zap.NewNop())
	sess.Start()

	m := packet.NewMessage()
	m.AddByte(packet.S_LOGIN_ERROR)
	m.AddString("bye")
	sess.Send(m)
	sess.Disconnect()

	late := packet.NewMessage()
	late.AddByte(packet.S_PING)
	sess.Send(late)

	got := packet.NewMessage()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ReadMessage(client, got, nil))
	assert.Equal(t, packet.S_LOGIN_ERROR, got.GetByte())
	assert.Equal(t, "bye", got.GetString())

	assert.Eventually(t, sess.IsClosed, 2*time.Second, 10*time.Millisecond)
}
