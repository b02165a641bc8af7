package book

import "figgie/internal/market"

// Book is the four-suit collection of half-books that make up a round's
// resting orders.
type Book struct {
	suits [4]market.DirPair[*HalfBook]
}

// NewBook creates an empty book with all four suits initialized.
func NewBook() *Book {
	var b Book
	for _, s := range market.Suits {
		b.suits[s].Buy = NewHalfBook(market.Buy)
		b.suits[s].Sell = NewHalfBook(market.Sell)
	}
	return &b
}

// Side returns the half-book for the given suit and direction.
func (b *Book) Side(suit market.Suit, dir market.Dir) *HalfBook {
	return *b.suits[suit].Get(dir)
}

// RestingSize sums the remaining size of every resting order an owner has
// on one side of one suit — used by the sell-coverage pre-check.
func (b *Book) RestingSize(owner market.Username, suit market.Suit, dir market.Dir) market.Size {
	var total market.Size
	for _, o := range b.Side(suit, dir).Orders() {
		if o.Owner == owner {
			total += o.Size
		}
	}
	return total
}

// CancelByOwner removes every resting order owned by u across all suits and
// sides, returning them in (suit, side) iteration order.
func (b *Book) CancelByOwner(u market.Username) []*market.Order {
	var removed []*market.Order
	for _, s := range market.Suits {
		for _, d := range [2]market.Dir{market.Buy, market.Sell} {
			removed = append(removed, b.Side(s, d).CancelByOwner(u)...)
		}
	}
	return removed
}

// BestBuy and BestSell return the head of one suit's buy or sell side, or
// nil if that side is empty.
func (b *Book) BestBuy(suit market.Suit) *market.Order  { return b.Side(suit, market.Buy).PeekBest() }
func (b *Book) BestSell(suit market.Suit) *market.Order { return b.Side(suit, market.Sell).PeekBest() }
