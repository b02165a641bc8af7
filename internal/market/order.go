package market

import "fmt"

// Order is a single resting or inbound limit order against one suit.
//
// Invariant: Price is in [0, MaxPrice] and Size > 0. Size decreases
// monotonically as fills occur against a resting order.
type Order struct {
	Id        OrderId
	Owner     Username
	Symbol    Suit
	Dir       Dir
	Price     Price
	Size      Size
	EntrySeq  uint64 // room-monotonic sequence number, used for time priority
}

func (o Order) String() string {
	return fmt.Sprintf("Order{id=%d owner=%s %s %s %d@%d seq=%d}",
		o.Id, o.Owner, o.Dir, o.Symbol, o.Size, o.Price, o.EntrySeq)
}

// Crosses reports whether the resting order b would trade against an
// incoming order o, per spec: Buy crosses when o.Price >= b.Price, Sell
// crosses when o.Price <= b.Price.
func Crosses(o, b Order) bool {
	if o.Dir == Buy {
		return o.Price >= b.Price
	}
	return o.Price <= b.Price
}
