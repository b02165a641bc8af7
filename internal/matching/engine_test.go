package matching

import (
	"testing"

	"figgie/internal/book"
	"figgie/internal/market"

	"github.com/stretchr/testify/assert"
)

// TestMatch_SimpleCross is scenario S1 from the spec: a partial fill leaves
// the resting order's remainder on the book at its original price.
func TestMatch_SimpleCross(t *testing.T) {
	b := book.NewBook()

	restingBuy := market.Order{Id: 1, Owner: "A", Symbol: market.Hearts, Dir: market.Buy, Price: 10, Size: 3}
	exec := Match(b, restingBuy)
	assert.Empty(t, exec.Fills)
	assert.Equal(t, market.Size(3), exec.RemainderPosted)

	incomingSell := market.Order{Id: 1, Owner: "B", Symbol: market.Hearts, Dir: market.Sell, Price: 8, Size: 2}
	exec = Match(b, incomingSell)

	assert.Len(t, exec.Fills, 1)
	assert.Equal(t, market.OrderId(1), exec.Fills[0].CounterpartyId)
	assert.Equal(t, market.Username("A"), exec.Fills[0].CounterpartyOwner)
	assert.Equal(t, market.Size(2), exec.Fills[0].Size)
	assert.Equal(t, market.Price(10), exec.Fills[0].Price) // resting price stands
	assert.Equal(t, market.Size(0), exec.RemainderPosted)

	rest := b.Side(market.Hearts, market.Buy).PeekBest()
	assert.NotNil(t, rest)
	assert.Equal(t, market.Size(1), rest.Size)
}

// TestMatch_SelfCross is scenario S2: a same-owner crossing order cancels
// the resting order instead of filling.
func TestMatch_SelfCross(t *testing.T) {
	b := book.NewBook()

	restingBuy := market.Order{Id: 1, Owner: "A", Symbol: market.Spades, Dir: market.Buy, Price: 9, Size: 5}
	Match(b, restingBuy)

	incomingSell := market.Order{Id: 2, Owner: "A", Symbol: market.Spades, Dir: market.Sell, Price: 9, Size: 2}
	exec := Match(b, incomingSell)

	assert.Empty(t, exec.Fills)
	assert.Len(t, exec.SelfCrossOuts, 1)
	assert.Equal(t, market.OrderId(1), exec.SelfCrossOuts[0].Order.Id)
	assert.Equal(t, market.Size(2), exec.RemainderPosted)

	assert.Nil(t, b.Side(market.Spades, market.Buy).PeekBest())
	restSell := b.Side(market.Spades, market.Sell).PeekBest()
	assert.NotNil(t, restSell)
	assert.Equal(t, market.Size(2), restSell.Size)
}

func TestMatch_SweepsMultipleLevels(t *testing.T) {
	b := book.NewBook()
	Match(b, market.Order{Id: 1, Owner: "A", Symbol: market.Clubs, Dir: market.Sell, Price: 10, Size: 5})
	Match(b, market.Order{Id: 2, Owner: "B", Symbol: market.Clubs, Dir: market.Sell, Price: 11, Size: 5})

	exec := Match(b, market.Order{Id: 3, Owner: "C", Symbol: market.Clubs, Dir: market.Buy, Price: 11, Size: 8})
	assert.Len(t, exec.Fills, 2)
	assert.Equal(t, market.Size(5), exec.Fills[0].Size)
	assert.Equal(t, market.Price(10), exec.Fills[0].Price)
	assert.Equal(t, market.Size(3), exec.Fills[1].Size)
	assert.Equal(t, market.Price(11), exec.Fills[1].Price)
	assert.Equal(t, market.Size(0), exec.RemainderPosted)

	rest := b.Side(market.Clubs, market.Sell).PeekBest()
	assert.Equal(t, market.Size(2), rest.Size)
}
