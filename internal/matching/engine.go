// Package matching implements the continuous price-time-priority matching
// engine: given a resting book and an inbound order it produces fills and
// the updated book, including the self-cross cancellation policy.
//
// Grounded in the teacher's engine.OrderBook.Match sweep (internal/engine in
// the teacher repo): repeatedly pop the best opposing order while it
// crosses, generate a fill, and re-add any remainder. The self-cross policy
// and the hand/cash settlement hooks are figgie-specific additions the
// teacher's generic exchange engine did not need.
package matching

import (
	"figgie/internal/book"
	"figgie/internal/market"
)

// Fill is one atomic transfer between the inbound order and a resting
// counterparty, at the resting order's price (price-time priority: the
// resting side's price always stands).
type Fill struct {
	CounterpartyId    market.OrderId
	CounterpartyOwner market.Username
	Size              market.Size
	Price             market.Price
}

// Out records a resting order that the self-cross policy removed from the
// book without producing a fill against the inbound order. Resting orders
// that leave the book because they were fully filled are not recorded as
// an Out; they appear only in Exec.Fills.
type Out struct {
	Order market.Order
}

// Exec is the record produced by matching one inbound order.
type Exec struct {
	Order           market.Order // the inbound order, Size already decremented by any match
	Fills           []Fill
	RemainderPosted market.Size // size of the inbound order, if any, added to the book
	SelfCrossOuts   []Out       // resting same-owner orders cancelled before they could cross
}

// Match runs the matching sweep for an inbound order against the opposite
// half-book of the same suit, then posts any remainder to the same-side
// half-book (all orders are GTC for the round — spec §4.3 step 4). The
// caller (round.Round) is responsible for applying Fill-driven hand/cash
// deltas; Match only mutates the book and returns what happened.
func Match(b *book.Book, order market.Order) Exec {
	opp := b.Side(order.Symbol, order.Dir.Other())
	exec := Exec{Order: order}

	for order.Size > 0 {
		resting := opp.PeekBest()
		if resting == nil || !market.Crosses(order, *resting) {
			break
		}

		if resting.Owner == order.Owner {
			// Self-cross policy: cancel the resting order without a fill
			// and keep sweeping — the inbound order never trades against
			// its own owner's resting liquidity.
			opp.PopBest()
			exec.SelfCrossOuts = append(exec.SelfCrossOuts, Out{Order: *resting})
			continue
		}

		matchSize := min(order.Size, resting.Size)
		order.Size -= matchSize
		resting.Size -= matchSize

		exec.Fills = append(exec.Fills, Fill{
			CounterpartyId:    resting.Id,
			CounterpartyOwner: resting.Owner,
			Size:              matchSize,
			Price:             resting.Price, // resting order's price stands
		})

		if resting.Size == 0 {
			opp.PopBest()
		}
	}

	if order.Size > 0 {
		exec.RemainderPosted = order.Size
		rest := order
		b.Side(order.Symbol, order.Dir).Add(&rest)
	}

	exec.Order = order
	return exec
}
