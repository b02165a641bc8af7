// Package protocol is the binary wire codec shared by the TCP and websocket
// transports. Request frames start with a version byte and a 2-byte
// RequestType, update frames with a version byte and a 1-byte UpdateType,
// each followed by fixed-width and then variable-length fields (reply
// frames carry no version byte), close to the layout the TCP server's
// NewOrderMessage/Report framing used —
// stable field order keyed by (name, version) so adding a field never
// reinterprets an older client's bytes (spec §7).
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"figgie/internal/market"
	"figgie/internal/matching"
	"figgie/internal/room"
	"figgie/internal/round"
)

// Version is the wire format version stamped into every frame's header.
// The teacher's format had no such byte; frames here are keyed by
// (name, version) so a later breaking change can run alongside old clients
// instead of silently corrupting them.
const Version uint8 = 1

var (
	ErrFrameTooShort  = errors.New("frame too short for header")
	ErrUnknownRequest = errors.New("unknown request type")
	ErrVersionMismatch = errors.New("unsupported wire version")
)

// RequestType tags the RPC surface (spec §6/§7).
type RequestType uint16

const (
	ReqLogin RequestType = iota
	ReqStartPlaying
	ReqReady
	ReqOrder
	ReqCancel
	ReqCancelAll
	ReqChat
	ReqGetUpdate
	ReqTimeLeft
)

const headerLen = 1 + 2 // version + request type

// Request is the decoded form of one client RPC call. Only the fields
// relevant to Type are populated; the rest carry zero values.
type Request struct {
	Type RequestType

	Username string // Login
	RoomId   string // Login; empty means auto-join the first non-full room

	SeatSpecific bool          // StartPlaying
	Seat         market.Seat   // StartPlaying

	Ready bool // Ready

	Order market.Order // Order

	OrderId market.OrderId // Cancel

	Text string // Chat

	WantMarket bool        // GetUpdate
	Suit       market.Suit // GetUpdate
}

// DecodeRequest parses one client frame. buf must contain exactly one
// frame's bytes (the transport is responsible for framing, e.g. a 4-byte
// length prefix on TCP or one websocket binary message per frame).
func DecodeRequest(buf []byte) (Request, error) {
	if len(buf) < headerLen {
		return Request{}, ErrFrameTooShort
	}
	if buf[0] != Version {
		return Request{}, ErrVersionMismatch
	}
	typ := RequestType(binary.BigEndian.Uint16(buf[1:3]))
	body := buf[3:]

	switch typ {
	case ReqLogin:
		name, n := decodeStringAt(body)
		roomId, _ := decodeStringAt(body[n:])
		return Request{Type: typ, Username: name, RoomId: roomId}, nil
	case ReqStartPlaying:
		if len(body) < 2 {
			return Request{}, ErrFrameTooShort
		}
		specific := body[0] != 0
		return Request{Type: typ, SeatSpecific: specific, Seat: market.Seat(body[1])}, nil
	case ReqReady:
		if len(body) < 1 {
			return Request{}, ErrFrameTooShort
		}
		return Request{Type: typ, Ready: body[0] != 0}, nil
	case ReqOrder:
		o, err := decodeOrder(body)
		return Request{Type: typ, Order: o}, err
	case ReqCancel:
		if len(body) < 8 {
			return Request{}, ErrFrameTooShort
		}
		id := market.OrderId(binary.BigEndian.Uint64(body[0:8]))
		return Request{Type: typ, OrderId: id}, nil
	case ReqCancelAll, ReqTimeLeft:
		return Request{Type: typ}, nil
	case ReqChat:
		return Request{Type: typ, Text: decodeString(body)}, nil
	case ReqGetUpdate:
		if len(body) < 2 {
			return Request{}, ErrFrameTooShort
		}
		return Request{Type: typ, WantMarket: body[0] != 0, Suit: market.Suit(body[1])}, nil
	default:
		return Request{}, ErrUnknownRequest
	}
}

// decodeOrder parses the order wire layout: owner-len(1) + name-bytes +
// symbol(1) + dir(1) + price(8) + size(4) + id(8).
func decodeOrder(body []byte) (market.Order, error) {
	if len(body) < 1 {
		return market.Order{}, ErrFrameTooShort
	}
	ownerLen := int(body[0])
	if len(body) < 1+ownerLen+1+1+8+4+8 {
		return market.Order{}, ErrFrameTooShort
	}
	off := 1
	owner := string(body[off : off+ownerLen])
	off += ownerLen
	symbol := market.Suit(body[off])
	off++
	dir := market.Dir(body[off])
	off++
	price := market.Price(binary.BigEndian.Uint64(body[off : off+8]))
	off += 8
	size := market.Size(binary.BigEndian.Uint32(body[off : off+4]))
	off += 4
	id := market.OrderId(binary.BigEndian.Uint64(body[off : off+8]))

	return market.Order{
		Owner:  market.Username(owner),
		Symbol: symbol,
		Dir:    dir,
		Price:  price,
		Size:   size,
		Id:     id,
	}, nil
}

func encodeOrder(o market.Order) []byte {
	owner := []byte(o.Owner)
	buf := make([]byte, 1+len(owner)+1+1+8+4+8)
	buf[0] = byte(len(owner))
	off := 1
	off += copy(buf[off:], owner)
	buf[off] = byte(o.Symbol)
	off++
	buf[off] = byte(o.Dir)
	off++
	binary.BigEndian.PutUint64(buf[off:off+8], uint64(o.Price))
	off += 8
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(o.Size))
	off += 4
	binary.BigEndian.PutUint64(buf[off:off+8], uint64(o.Id))
	return buf
}

func decodeString(body []byte) string {
	s, _ := decodeStringAt(body)
	return s
}

// decodeStringAt decodes one length-prefixed string starting at body[0] and
// reports how many bytes it consumed, so callers can decode several strings
// back to back out of one body (e.g. Login's username then room id).
func decodeStringAt(body []byte) (string, int) {
	if len(body) < 2 {
		return "", len(body)
	}
	n := int(binary.BigEndian.Uint16(body[0:2]))
	if len(body) < 2+n {
		return string(body[2:]), len(body)
	}
	return string(body[2 : 2+n]), 2 + n
}

func encodeString(s string) []byte {
	buf := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(s)))
	copy(buf[2:], s)
	return buf
}

// EncodeRequest builds the wire frame for req, the inverse of DecodeRequest.
// It is the single encoder for the RPC surface, used by both cmd/bot and the
// protocol package's own round-trip tests, so the wire shape is defined in
// exactly one place.
func EncodeRequest(req Request) []byte {
	var body []byte
	switch req.Type {
	case ReqLogin:
		body = append(encodeString(req.Username), encodeString(req.RoomId)...)
	case ReqStartPlaying:
		specific := byte(0)
		if req.SeatSpecific {
			specific = 1
		}
		body = []byte{specific, byte(req.Seat)}
	case ReqReady:
		ready := byte(0)
		if req.Ready {
			ready = 1
		}
		body = []byte{ready}
	case ReqOrder:
		body = encodeOrder(req.Order)
	case ReqCancel:
		body = make([]byte, 8)
		binary.BigEndian.PutUint64(body, uint64(req.OrderId))
	case ReqChat:
		body = encodeString(req.Text)
	case ReqGetUpdate:
		wantMarket := byte(0)
		if req.WantMarket {
			wantMarket = 1
		}
		body = []byte{wantMarket, byte(req.Suit)}
	case ReqCancelAll, ReqTimeLeft:
		// no body
	}

	buf := make([]byte, headerLen+len(body))
	buf[0] = Version
	binary.BigEndian.PutUint16(buf[1:3], uint16(req.Type))
	copy(buf[headerLen:], body)
	return buf
}

// Reply is the RPC response frame: either a success payload (opaque to this
// layer — callers encode the specific reply shape separately for the few
// RPCs that need one, e.g. StartPlaying's assigned seat) or an error kind
// string, derived from room.Kind/matching.Kind rather than a hand-rolled
// switch per spec's design note.
type Reply struct {
	Ok            bool
	ErrKind       string
	ErrText       string
	Seat          market.Seat // StartPlaying success
	TimeLeftMilis int64       // TimeLeft success
}

// EncodeReply serializes an RPC outcome. Error kind strings are derived by
// the caller via room.Kind(err)/matching.Kind(err), not hand-rolled here.
func EncodeReply(r Reply) []byte {
	if r.Ok {
		buf := make([]byte, 2+8)
		buf[0] = 1
		buf[1] = byte(r.Seat)
		binary.BigEndian.PutUint64(buf[2:10], uint64(r.TimeLeftMilis))
		return buf
	}
	kind := encodeString(r.ErrKind)
	text := encodeString(r.ErrText)
	buf := make([]byte, 1+len(kind)+len(text))
	buf[0] = 0
	off := 1
	off += copy(buf[off:], kind)
	copy(buf[off:], text)
	return buf
}

// ErrorReply builds a Reply from a Go error, mapping it onto its wire kind
// via whichever package's Kind function recognizes it.
func ErrorReply(err error) Reply {
	kind := room.Kind(err)
	if kind == "" {
		kind = matching.Kind(err)
	}
	return Reply{Ok: false, ErrKind: kind, ErrText: err.Error()}
}

// UpdateFrame encodes one item of a subscriber's PlayerUpdate stream
// (spec §6), mirroring room.Update's tagged-union shape on the wire.
func UpdateFrame(u room.Update) ([]byte, error) {
	switch u.Kind {
	case room.UpdateBroadcast:
		return encodeBroadcast(u.Broadcast), nil
	case room.UpdateHand:
		return encodeHand(u.Hand), nil
	case room.UpdateMarket:
		return encodeMarket(u.Market), nil
	default:
		return nil, fmt.Errorf("protocol: unknown update kind %d", u.Kind)
	}
}

func frame(kind byte, body []byte) []byte {
	buf := make([]byte, 2+len(body))
	buf[0] = Version
	buf[1] = kind
	copy(buf[2:], body)
	return buf
}

func encodeHand(h market.Hand) []byte {
	body := make([]byte, 4*4)
	for i, s := range market.Suits {
		binary.BigEndian.PutUint32(body[i*4:i*4+4], uint32(h.Get(s)))
	}
	return frame(byte(room.UpdateHand), body)
}

func encodeMarket(m room.MarketView) []byte {
	var body []byte
	body = append(body, byte(m.Suit))
	body = append(body, encodeOrderList(m.Buys)...)
	body = append(body, encodeOrderList(m.Sells)...)
	return frame(byte(room.UpdateMarket), body)
}

func encodeOrderList(orders []market.Order) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(len(orders)))
	for _, o := range orders {
		buf = append(buf, encodeOrder(o)...)
	}
	return buf
}

// encodeBroadcast flattens the subset of Broadcast fields relevant to Kind
// into a wire body; fields outside that Kind's variant are omitted, the
// same discipline the teacher's Report struct applied per ReportMessageType.
func encodeBroadcast(b room.Broadcast) []byte {
	var body []byte
	body = append(body, byte(b.Kind))

	switch b.Kind {
	case room.PlayerJoined, room.PlayerReady:
		body = append(body, encodeString(string(b.Who))...)
		if b.IsReady {
			body = append(body, 1)
		} else {
			body = append(body, 0)
		}
	case room.ChatMsg:
		body = append(body, encodeString(string(b.Who))...)
		body = append(body, encodeString(b.ChatText)...)
	case room.ExecReport, room.OutReport:
		body = append(body, encodeOrder(b.Order)...)
		body = append(body, encodeExec(b.Exec)...)
	case room.RoundOver:
		body = append(body, byte(b.Gold))
		body = append(body, encodeResults(b.RoundResults)...)
		body = binary.BigEndian.AppendUint16(body, uint16(len(b.Hands)))
		for name, h := range b.Hands {
			body = append(body, encodeString(string(name))...)
			for _, s := range market.Suits {
				body = binary.BigEndian.AppendUint32(body, uint32(h.Get(s)))
			}
		}
	case room.Scores:
		body = append(body, encodeScores(b.Cumulative)...)
	}
	return frame(byte(room.UpdateBroadcast), body)
}

func encodeExec(e matching.Exec) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(len(e.Fills)))
	for _, f := range e.Fills {
		fb := make([]byte, 8+4+8)
		binary.BigEndian.PutUint64(fb[0:8], uint64(f.CounterpartyId))
		binary.BigEndian.PutUint32(fb[8:12], uint32(f.Size))
		binary.BigEndian.PutUint64(fb[12:20], uint64(f.Price))
		buf = append(buf, fb...)
		buf = append(buf, encodeString(string(f.CounterpartyOwner))...)
	}
	return buf
}

func encodeResults(results []round.Result) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(len(results)))
	for _, r := range results {
		rb := make([]byte, 4+8+8+8+8)
		binary.BigEndian.PutUint32(rb[0:4], uint32(r.GoldHeld))
		binary.BigEndian.PutUint64(rb[4:12], uint64(r.PotShare))
		binary.BigEndian.PutUint64(rb[12:20], uint64(r.Bonus))
		binary.BigEndian.PutUint64(rb[20:28], uint64(r.TradingPnL))
		binary.BigEndian.PutUint64(rb[28:36], uint64(r.ScoreThisRound))
		buf = append(buf, encodeString(string(r.Player))...)
		buf = append(buf, rb...)
	}
	return buf
}

func encodeScores(cum map[market.Username]market.Price) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(len(cum)))
	for name, score := range cum {
		buf = append(buf, encodeString(string(name))...)
		sb := make([]byte, 8)
		binary.BigEndian.PutUint64(sb, uint64(score))
		buf = append(buf, sb...)
	}
	return buf
}
