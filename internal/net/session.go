package net

import (
	"crypto/rsa"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/net/packet"
)

// loginBlockOffset is where the RSA block starts in the login message:
// after the opcode, client os and protocol version.
const loginBlockOffset = 1 + 2 + 2

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn net.Conn

	rsaKey *rsa.PrivateKey
	cipher atomic.Pointer[XTEA]
	state  atomic.Int32 // packet.SessionState

	InQueue  chan *packet.NetworkMessage // game loop reads messages from here
	OutQueue chan *packet.NetworkMessage // writer goroutine reads from here

	IP string

	outBuf []*packet.NetworkMessage // game loop only, drained by FlushOutput

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	linger     chan struct{} // closed by Disconnect
	lingerOnce sync.Once

	writeTimeout time.Duration
	readTimeout  time.Duration // 0 waits forever

	// Per-second packet rate limiter (readLoop goroutine only)
	pktPerSec  int
	pktCount   int
	pktResetAt int64

	log *zap.Logger
}

// SessionConfig carries the per-connection limits from the network config.
type SessionConfig struct {
	InQueueSize  int
	OutQueueSize int
	PktPerSec    int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

func NewSession(conn net.Conn, id uint64, key *rsa.PrivateKey, cfg SessionConfig, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		rsaKey:       key,
		InQueue:      make(chan *packet.NetworkMessage, cfg.InQueueSize),
		OutQueue:     make(chan *packet.NetworkMessage, cfg.OutQueueSize),
		IP:           conn.RemoteAddr().String(),
		closeCh:      make(chan struct{}),
		linger:       make(chan struct{}),
		writeTimeout: cfg.WriteTimeout,
		readTimeout:  cfg.ReadTimeout,
		pktPerSec:    cfg.PktPerSec,
		log:          log.With(zap.Uint64("session", id)),
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = 10 * time.Second
	}
	s.state.Store(int32(packet.StateHandshake))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Keyed reports whether the XTEA key has been received.
func (s *Session) Keyed() bool { return s.cipher.Load() != nil }

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a message until FlushOutput. Truncated messages are never
// sent; a message that lost writes would desynchronise the client.
// Called only from the game loop goroutine.
func (s *Session) Send(m *packet.NetworkMessage) {
	if s.closed.Load() || s.State() == packet.StateDisconnecting || m.Empty() {
		return
	}
	if m.Truncated() {
		s.log.Error("dropping truncated message", zap.Int("len", m.Len()))
		return
	}
	s.outBuf = append(s.outBuf, m)
}

// FlushOutput copies buffered messages into as few frames as fit and hands
// them to the writer. Buffered messages are only read, so one message may be
// sent to many sessions. If OutQueue is full the client is too slow and is
// disconnected. Called once per tick by the output system.
func (s *Session) FlushOutput() {
	if len(s.outBuf) == 0 {
		return
	}
	cur := packet.NewMessage()
	for _, m := range s.outBuf {
		if cur.JoinMessages(m) {
			continue
		}
		if !s.enqueue(cur) {
			return
		}
		cur = packet.NewMessage()
		cur.JoinMessages(m)
	}
	s.enqueue(cur)
	clear(s.outBuf)
	s.outBuf = s.outBuf[:0]
}

func (s *Session) enqueue(m *packet.NetworkMessage) bool {
	select {
	case s.OutQueue <- m:
		return true
	default:
		s.log.Warn("output queue full, disconnecting slow client")
		s.Close()
		clear(s.outBuf)
		s.outBuf = s.outBuf[:0]
		return false
	}
}

// Close shuts the connection down. Safe to call from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

// Disconnect flushes buffered output and closes the connection once the
// writer has sent it. Later Sends are dropped. Game loop only.
func (s *Session) Disconnect() {
	s.FlushOutput()
	s.SetState(packet.StateDisconnecting)
	s.lingerOnce.Do(func() { close(s.linger) })
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads frames, deciphers them and pushes them onto InQueue.
// The first message must be the login block; it carries the XTEA key.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		m := packet.NewMessage()
		if err := ReadMessage(s.conn, m, s.cipher.Load()); err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if !s.Keyed() {
			if err := s.handshake(m); err != nil {
				s.log.Info("handshake rejected", zap.Error(err))
				return
			}
		}

		if s.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		select {
		case s.InQueue <- m:
		case <-s.closeCh:
			return
		}
	}
}

// handshake decrypts the RSA block of the login message in place and keys
// the session. The cursor is restored so the login handler sees the whole
// message.
func (s *Session) handshake(m *packet.NetworkMessage) error {
	if s.rsaKey == nil {
		return ErrBadHandshake
	}
	start := m.Position()
	if m.GetByte() != packet.C_LOGIN {
		return ErrBadHandshake
	}
	m.SetPosition(start + loginBlockOffset)
	if err := DecryptMessage(s.rsaKey, m); err != nil {
		return err
	}
	var key [4]uint32
	for i := range key {
		key[i] = m.GetU32()
	}
	x, err := NewXTEA(key)
	if err != nil {
		return err
	}
	s.cipher.Store(x)
	m.SetPosition(start)
	return nil
}

// writeLoop enciphers and writes queued messages.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case m := <-s.OutQueue:
			if !s.writeOne(m) {
				return
			}
		case <-s.linger:
			for {
				select {
				case m := <-s.OutQueue:
					if !s.writeOne(m) {
						return
					}
				default:
					return
				}
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(m *packet.NetworkMessage) bool {
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := WriteMessage(s.conn, m, s.cipher.Load()); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
