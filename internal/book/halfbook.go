// Package book implements the price-time-priority resting-order book: one
// HalfBook per (suit, side), and Book as the four-suit pair of half-books.
//
// Price levels are stored in a github.com/tidwall/btree generic B-tree the
// same way the teacher's matching engine keyed its price levels, ordered
// descending for bids and ascending for asks; orders within a level are
// held in an append-ordered slice so FIFO time priority falls out of
// insertion order without a separate sequence comparison at that level.
package book

import (
	"figgie/internal/market"

	"github.com/tidwall/btree"
)

// level groups all resting orders at one price, in time-priority order.
type level struct {
	price  market.Price
	orders []*market.Order
}

// orderKey identifies a resting order. OrderId is only dense per owner, not
// globally unique, so lookups key on the (owner, id) pair.
type orderKey struct {
	owner market.Username
	id    market.OrderId
}

// HalfBook is one side (buy or sell) of one suit's resting orders.
type HalfBook struct {
	dir    market.Dir
	levels *btree.BTreeG[*level]
	byId   map[orderKey]*market.Order
}

// NewHalfBook creates an empty half-book for the given direction. Buys sort
// levels highest price first; sells sort lowest price first — the classic
// "best of book is always the min of the tree" trick used by the teacher's
// OrderBook.
func NewHalfBook(dir market.Dir) *HalfBook {
	var less func(a, b *level) bool
	if dir == market.Buy {
		less = func(a, b *level) bool { return a.price > b.price }
	} else {
		less = func(a, b *level) bool { return a.price < b.price }
	}
	return &HalfBook{
		dir:    dir,
		levels: btree.NewBTreeG(less),
		byId:   make(map[orderKey]*market.Order),
	}
}

// Add inserts order at its priority position. Ties are broken by time of
// entry (FIFO within a level) since orders are always appended.
func (hb *HalfBook) Add(order *market.Order) {
	lvl, ok := hb.levels.Get(&level{price: order.Price})
	if !ok {
		lvl = &level{price: order.Price}
		hb.levels.Set(lvl)
	}
	lvl.orders = append(lvl.orders, order)
	hb.byId[orderKey{order.Owner, order.Id}] = order
}

// PeekBest returns the order at the head of the book (highest-priority
// resting order), or nil if the half-book is empty.
func (hb *HalfBook) PeekBest() *market.Order {
	lvl, ok := hb.levels.Min()
	if !ok || len(lvl.orders) == 0 {
		return nil
	}
	return lvl.orders[0]
}

// PopBest removes and returns the head of the book.
func (hb *HalfBook) PopBest() *market.Order {
	lvl, ok := hb.levels.Min()
	if !ok || len(lvl.orders) == 0 {
		return nil
	}
	order := lvl.orders[0]
	lvl.orders = lvl.orders[1:]
	if len(lvl.orders) == 0 {
		hb.levels.Delete(lvl)
	}
	delete(hb.byId, orderKey{order.Owner, order.Id})
	return order
}

// Remove deletes the order with the given owner/id, wherever it rests, and
// returns it (or nil if no such order rests in this half-book). O(n) within
// the order's price level, as spec'd.
func (hb *HalfBook) Remove(owner market.Username, id market.OrderId) *market.Order {
	key := orderKey{owner, id}
	order, ok := hb.byId[key]
	if !ok {
		return nil
	}
	lvl, ok := hb.levels.Get(&level{price: order.Price})
	if !ok {
		return nil
	}
	for i, o := range lvl.orders {
		if o.Owner == owner && o.Id == id {
			lvl.orders = append(lvl.orders[:i:i], lvl.orders[i+1:]...)
			break
		}
	}
	if len(lvl.orders) == 0 {
		hb.levels.Delete(lvl)
	}
	delete(hb.byId, key)
	return order
}

// CancelByOwner removes every resting order owned by u and returns them in
// priority order, for use by CancelAll and by round teardown.
func (hb *HalfBook) CancelByOwner(u market.Username) []*market.Order {
	var removed []*market.Order
	var emptied []*level
	hb.levels.Scan(func(lvl *level) bool {
		kept := lvl.orders[:0]
		for _, o := range lvl.orders {
			if o.Owner == u {
				removed = append(removed, o)
				delete(hb.byId, orderKey{o.Owner, o.Id})
			} else {
				kept = append(kept, o)
			}
		}
		lvl.orders = kept
		if len(lvl.orders) == 0 {
			emptied = append(emptied, lvl)
		}
		return true
	})
	for _, lvl := range emptied {
		hb.levels.Delete(lvl)
	}
	return removed
}

// Orders returns every resting order in priority order, for diagnostics and
// Market snapshots.
func (hb *HalfBook) Orders() []*market.Order {
	var out []*market.Order
	hb.levels.Scan(func(lvl *level) bool {
		out = append(out, lvl.orders...)
		return true
	})
	return out
}

// Len returns the number of resting orders.
func (hb *HalfBook) Len() int {
	return len(hb.byId)
}
