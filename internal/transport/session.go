// Package transport adapts the room/registry core onto the wire: a TCP
// listener speaking the protocol package's framing directly (spec §7), and
// a websocket listener carrying the identical frames as binary messages
// for browser clients (spec's supplemented transport, §7). Both funnel
// into the same registry.Registry and never touch room.Room directly.
package transport

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"figgie/internal/market"
	"figgie/internal/protocol"
	"figgie/internal/registry"
	"figgie/internal/room"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// lengthPrefixLen is the size of the length prefix framing every message
// exchanged on a raw TCP connection; protocol frames themselves carry no
// length, since Report/NewOrderMessage in the teacher's format relied on
// one read() per message and a websocket message boundary gives that for
// free, but a TCP byte stream does not.
const lengthPrefixLen = 4

const maxFrameSize = 16 * 1024

var ErrFrameTooLarge = errors.New("frame exceeds maxFrameSize")

// readFrame reads one length-prefixed frame off r.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [lengthPrefixLen]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [lengthPrefixLen]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// frameConn is the minimal surface session needs from a transport: TCP
// gives it directly, the websocket listener adapts gorilla's connection to
// it (see websocket.go).
type frameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(payload []byte) error
	Close() error
}

// session owns one client connection end to end: it authenticates the
// first Login request, then loops reading requests and writing both RPC
// replies and the subscriber's broadcast/private stream, interleaved on
// the same connection (spec §7 — a single bidirectional channel carries
// both RPC traffic and the PlayerUpdate stream).
type session struct {
	conn   frameConn
	reg    *registry.Registry
	entry  *registry.Entry
	name   market.Username
	writeMu sync.Mutex
}

func newSession(conn frameConn, reg *registry.Registry) *session {
	return &session{conn: conn, reg: reg}
}

// run drives the session until the connection closes or a fatal error
// occurs. It is the moral equivalent of the teacher's handleConnection,
// generalized from one-shot request/response to a long-lived session
// that also pumps a subscriber stream.
func (s *session) run(tmb *tomb.Tomb) error {
	defer s.cleanup()

	for {
		select {
		case <-tmb.Dying():
			return nil
		default:
		}

		raw, err := s.conn.ReadFrame()
		if err != nil {
			if err != io.EOF {
				log.Error().Err(err).Msg("session read error")
			}
			return nil
		}

		req, err := protocol.DecodeRequest(raw)
		if err != nil {
			log.Error().Err(err).Msg("session decode error")
			continue
		}

		if err := s.handle(req); err != nil {
			log.Error().Err(err).Str("user", string(s.name)).Msg("session handle error")
			return nil
		}
	}
}

func (s *session) handle(req protocol.Request) error {
	if req.Type == protocol.ReqLogin {
		return s.handleLogin(req)
	}
	if s.entry == nil {
		return s.reply(protocol.ErrorReply(room.ErrNotInARoom))
	}

	switch req.Type {
	case protocol.ReqStartPlaying:
		return s.submitStartPlaying(req)
	case protocol.ReqReady:
		return s.submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
			out, err := r.SetReady(s.name, req.Ready, now)
			return nil, out, err
		})
	case protocol.ReqOrder:
		// Owner is not coerced to s.name here: a client-supplied owner that
		// doesn't match the authenticated sender must surface
		// Owner_is_not_sender from round.PlaceOrder's pre-check (spec §4.3),
		// not be silently papered over.
		return s.submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
			out, err := r.PlaceOrder(s.name, req.Order)
			return nil, out, err
		})
	case protocol.ReqCancel:
		return s.submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
			out, err := r.CancelOrder(s.name, req.OrderId)
			return nil, out, err
		})
	case protocol.ReqCancelAll:
		return s.submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
			out, err := r.CancelAll(s.name)
			return nil, out, err
		})
	case protocol.ReqChat:
		return s.submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
			out, err := r.Chat(s.name, req.Text)
			return nil, out, err
		})
	case protocol.ReqGetUpdate:
		return s.submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
			out, err := r.GetUpdate(s.name, req.WantMarket, req.Suit)
			return nil, out, err
		})
	case protocol.ReqTimeLeft:
		return s.submitTimeLeft()
	default:
		return s.reply(protocol.ErrorReply(protocol.ErrUnknownRequest))
	}
}

func (s *session) handleLogin(req protocol.Request) error {
	if s.name != "" {
		return s.reply(protocol.ErrorReply(room.ErrAlreadyLoggedIn))
	}
	var entry *registry.Entry
	if req.RoomId != "" {
		entry = s.reg.GetOrCreate(req.RoomId)
	} else {
		entry = s.reg.AutoJoin()
	}
	sub, err := s.reg.Login(entry, market.Username(req.Username))
	if err != nil {
		return s.reply(protocol.ErrorReply(err))
	}
	s.entry = entry
	s.name = market.Username(req.Username)

	go s.pumpUpdates(sub)

	return s.reply(protocol.Reply{Ok: true})
}

func (s *session) submitStartPlaying(req protocol.Request) error {
	choice := room.SitAnywhere()
	if req.SeatSpecific {
		choice = room.SitIn(req.Seat)
	}
	reply, err := s.entry.Task.Submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
		seat, out, err := r.StartPlaying(s.name, choice)
		return seat, out, err
	})
	if err != nil {
		return s.reply(protocol.ErrorReply(err))
	}
	return s.reply(protocol.Reply{Ok: true, Seat: reply.(market.Seat)})
}

func (s *session) submitTimeLeft() error {
	reply, err := s.entry.Task.Submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
		remaining, err := r.TimeRemaining(now)
		return remaining, nil, err
	})
	if err != nil {
		return s.reply(protocol.ErrorReply(err))
	}
	return s.reply(protocol.Reply{Ok: true, TimeLeftMilis: reply.(time.Duration).Milliseconds()})
}

// submit runs exec on the room's single-writer task and replies with its
// error, if any; broadcasts it produces reach this connection (if
// subscribed) through pumpUpdates, never through the RPC reply itself.
func (s *session) submit(exec func(r *room.Room, now time.Time) (any, *room.Outcome, error)) error {
	_, err := s.entry.Task.Submit(exec)
	if err != nil {
		return s.reply(protocol.ErrorReply(err))
	}
	return s.reply(protocol.Reply{Ok: true})
}

func (s *session) reply(r protocol.Reply) error {
	return s.writeRaw(protocol.EncodeReply(r))
}

// pumpUpdates drains sub.Updates onto the connection until it closes,
// running concurrently with run's request-reading loop so the stream
// never waits on whether the client happens to be sending a request.
func (s *session) pumpUpdates(sub *room.Sub) {
	for u := range sub.Updates {
		buf, err := protocol.UpdateFrame(u)
		if err != nil {
			log.Error().Err(err).Msg("encode update")
			continue
		}
		if err := s.writeRaw(buf); err != nil {
			return
		}
	}
}

func (s *session) writeRaw(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteFrame(payload)
}

func (s *session) cleanup() {
	_ = s.conn.Close()
	if s.name == "" {
		return
	}
	if s.entry != nil {
		_, _ = s.entry.Task.Submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
			s.entry.Task.Unsubscribe(s.name)
			r.Disconnect(s.name)
			return nil, nil, nil
		})
	}
	s.reg.Logout(s.name)
}

// tcpConn adapts a net.Conn to frameConn using the length-prefix framing
// above.
type tcpConn struct{ net.Conn }

func (c tcpConn) ReadFrame() ([]byte, error)      { return readFrame(c.Conn) }
func (c tcpConn) WriteFrame(payload []byte) error { return writeFrame(c.Conn, payload) }
