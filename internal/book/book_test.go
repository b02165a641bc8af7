package book

import (
	"testing"

	"figgie/internal/market"

	"github.com/stretchr/testify/assert"
)

func TestBook_RestingSize(t *testing.T) {
	b := NewBook()
	b.Side(market.Hearts, market.Sell).Add(&market.Order{Id: 1, Owner: "a", Symbol: market.Hearts, Dir: market.Sell, Price: 10, Size: 3})
	b.Side(market.Hearts, market.Sell).Add(&market.Order{Id: 2, Owner: "a", Symbol: market.Hearts, Dir: market.Sell, Price: 11, Size: 2})
	b.Side(market.Hearts, market.Sell).Add(&market.Order{Id: 3, Owner: "b", Symbol: market.Hearts, Dir: market.Sell, Price: 11, Size: 7})

	assert.Equal(t, market.Size(5), b.RestingSize("a", market.Hearts, market.Sell))
	assert.Equal(t, market.Size(7), b.RestingSize("b", market.Hearts, market.Sell))
}

func TestBook_CancelByOwner_AllSuits(t *testing.T) {
	b := NewBook()
	b.Side(market.Spades, market.Buy).Add(&market.Order{Id: 1, Owner: "a", Symbol: market.Spades, Dir: market.Buy, Price: 5, Size: 1})
	b.Side(market.Clubs, market.Sell).Add(&market.Order{Id: 2, Owner: "a", Symbol: market.Clubs, Dir: market.Sell, Price: 5, Size: 1})
	b.Side(market.Clubs, market.Sell).Add(&market.Order{Id: 3, Owner: "b", Symbol: market.Clubs, Dir: market.Sell, Price: 5, Size: 1})

	removed := b.CancelByOwner("a")
	assert.Len(t, removed, 2)
	assert.Equal(t, 0, b.Side(market.Spades, market.Buy).Len())
	assert.Equal(t, 1, b.Side(market.Clubs, market.Sell).Len())
}
