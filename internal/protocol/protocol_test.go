package protocol

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"figgie/internal/market"
	"figgie/internal/room"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest_Login(t *testing.T) {
	raw := EncodeRequest(Request{Type: ReqLogin, Username: "alice"})
	req, err := DecodeRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, ReqLogin, req.Type)
	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "", req.RoomId)
}

func TestDecodeRequest_LoginWithRoomId(t *testing.T) {
	raw := EncodeRequest(Request{Type: ReqLogin, Username: "alice", RoomId: "lobby-7"})
	req, err := DecodeRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "lobby-7", req.RoomId)
}

func TestDecodeRequest_Order(t *testing.T) {
	order := market.Order{
		Owner:  "bob",
		Symbol: market.Hearts,
		Dir:    market.Sell,
		Price:  42,
		Size:   3,
		Id:     7,
	}
	raw := EncodeRequest(Request{Type: ReqOrder, Order: order})
	req, err := DecodeRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, ReqOrder, req.Type)
	assert.Equal(t, order.Owner, req.Order.Owner)
	assert.Equal(t, order.Symbol, req.Order.Symbol)
	assert.Equal(t, order.Dir, req.Order.Dir)
	assert.Equal(t, order.Price, req.Order.Price)
	assert.Equal(t, order.Size, req.Order.Size)
	assert.Equal(t, order.Id, req.Order.Id)
}

func TestDecodeRequest_RejectsWrongVersion(t *testing.T) {
	raw := EncodeRequest(Request{Type: ReqLogin, Username: "alice"})
	raw[0] = Version + 1
	_, err := DecodeRequest(raw)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

// TestRequestRoundTrip checks that EncodeRequest/DecodeRequest round-trip
// every RPC shape for random valid values, per the wire format's (name,
// version)-keyed stability requirement.
func TestRequestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	randUsername := func() market.Username {
		names := []string{"alice", "bob", "carol-with-a-long-name", ""}
		return market.Username(names[rng.Intn(len(names))])
	}

	cases := func() []Request {
		return []Request{
			{Type: ReqLogin, Username: string(randUsername()), RoomId: string(randUsername())},
			{Type: ReqStartPlaying, SeatSpecific: rng.Intn(2) == 0, Seat: market.Seat(rng.Intn(4))},
			{Type: ReqReady, Ready: rng.Intn(2) == 0},
			{Type: ReqOrder, Order: market.Order{
				Owner:  randUsername(),
				Symbol: market.Suits[rng.Intn(4)],
				Dir:    market.Dir(rng.Intn(2)),
				Price:  market.Price(rng.Int63n(100000)),
				Size:   market.Size(rng.Intn(1000)),
				Id:     market.OrderId(rng.Uint64()),
			}},
			{Type: ReqCancel, OrderId: market.OrderId(rng.Uint64())},
			{Type: ReqCancelAll},
			{Type: ReqChat, Text: "gl hf, see you at the table"},
			{Type: ReqGetUpdate, WantMarket: rng.Intn(2) == 0, Suit: market.Suit(rng.Intn(4))},
			{Type: ReqTimeLeft},
		}
	}

	for round := 0; round < 50; round++ {
		for _, want := range cases() {
			raw := EncodeRequest(want)
			got, err := DecodeRequest(raw)
			require.NoError(t, err)
			assert.Equal(t, want.Type, got.Type)
			switch want.Type {
			case ReqLogin:
				assert.Equal(t, want.Username, got.Username)
				assert.Equal(t, want.RoomId, got.RoomId)
			case ReqStartPlaying:
				assert.Equal(t, want.SeatSpecific, got.SeatSpecific)
				assert.Equal(t, want.Seat, got.Seat)
			case ReqReady:
				assert.Equal(t, want.Ready, got.Ready)
			case ReqOrder:
				assert.Equal(t, want.Order, got.Order)
			case ReqCancel:
				assert.Equal(t, want.OrderId, got.OrderId)
			case ReqChat:
				assert.Equal(t, want.Text, got.Text)
			case ReqGetUpdate:
				assert.Equal(t, want.WantMarket, got.WantMarket)
				assert.Equal(t, want.Suit, got.Suit)
			}
		}
	}
}

func TestDecodeRequest_RejectsShortFrame(t *testing.T) {
	_, err := DecodeRequest([]byte{Version})
	assert.ErrorIs(t, err, ErrFrameTooShort)
}

func TestEncodeReply_Success(t *testing.T) {
	buf := EncodeReply(Reply{Ok: true, Seat: market.East, TimeLeftMilis: 1500})
	assert.Equal(t, byte(1), buf[0])
	assert.Equal(t, byte(market.East), buf[1])
	assert.Equal(t, int64(1500), int64(binary.BigEndian.Uint64(buf[2:10])))
}

func TestEncodeReply_Error(t *testing.T) {
	r := ErrorReply(room.ErrNotPlaying)
	buf := EncodeReply(r)
	assert.Equal(t, byte(0), buf[0])
	assert.Equal(t, "You're_not_playing", r.ErrKind)
}

func TestUpdateFrame_HandAndMarket(t *testing.T) {
	var h market.Hand
	h.Add(market.Spades, 5)
	buf, err := UpdateFrame(room.Update{Kind: room.UpdateHand, Hand: h})
	require.NoError(t, err)
	assert.Equal(t, Version, buf[0])
	assert.Equal(t, byte(room.UpdateHand), buf[1])

	mv := room.MarketView{Suit: market.Clubs}
	buf, err = UpdateFrame(room.Update{Kind: room.UpdateMarket, Market: mv})
	require.NoError(t, err)
	assert.Equal(t, byte(room.UpdateMarket), buf[1])
}

func TestUpdateFrame_Broadcast(t *testing.T) {
	b := room.Broadcast{Kind: room.ChatMsg, Who: "alice", ChatText: "gl hf"}
	buf, err := UpdateFrame(room.Update{Kind: room.UpdateBroadcast, Broadcast: b})
	require.NoError(t, err)
	assert.Equal(t, byte(room.UpdateBroadcast), buf[1])
	assert.Equal(t, byte(room.ChatMsg), buf[2])
}
