package matching

import (
	"errors"

	"figgie/internal/book"
	"figgie/internal/market"
)

// kindedError pairs a sentinel error with the wire Kind() the protocol
// layer maps it onto, so the protocol package can derive the RPC error
// response instead of hand-rolling a parallel switch per error (spec design
// note §9).
type kindedError struct {
	error
	kind string
}

func (k kindedError) Kind() string { return k.kind }

func newErr(kind, msg string) error { return kindedError{errors.New(msg), kind} }

// Pre-check errors, matching spec §4.3/§7's order-validity class.
var (
	ErrPriceMustBeNonnegative = newErr("Price_must_be_nonnegative", "price must be nonnegative")
	ErrPriceTooHigh           = newErr("Price_too_high", "price too high")
	ErrSizeMustBePositive     = newErr("Size_must_be_positive", "size must be positive")
	ErrOwnerIsNotSender       = newErr("Owner_is_not_sender", "owner is not sender")
	ErrDuplicateOrderId       = newErr("Duplicate_order_id", "duplicate order id")
	ErrNotEnoughToSell        = newErr("Not_enough_to_sell", "not enough to sell")
	ErrNoSuchOrder            = newErr("No_such_order", "no such order")
)

// Kind returns the wire error-kind string for an error produced by this
// package, or "" if err did not originate here.
func Kind(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// Validate runs the pre-checks from spec §4.3 that must pass before an
// order is handed to Match. hand is the owner's current hand and maxPrice
// is the room's configured MAX_PRICE.
func Validate(b *book.Book, hand market.Hand, order market.Order, maxPrice market.Price, usedIds map[market.OrderId]struct{}) error {
	if order.Price < 0 {
		return ErrPriceMustBeNonnegative
	}
	if order.Price > maxPrice {
		return ErrPriceTooHigh
	}
	if order.Size <= 0 {
		return ErrSizeMustBePositive
	}
	if _, used := usedIds[order.Id]; used {
		return ErrDuplicateOrderId
	}
	if order.Dir == market.Sell {
		resting := b.RestingSize(order.Owner, order.Symbol, market.Sell)
		available := int64(hand.Get(order.Symbol)) - int64(resting)
		if available < int64(order.Size) {
			return ErrNotEnoughToSell
		}
	}
	return nil
}
