// Package round implements one deal-to-scoring cycle: dealing hands,
// holding the active order book, applying fills to hands and cash, and
// computing end-of-round scores.
package round

import (
	"math/rand"
	"time"

	"figgie/internal/book"
	"figgie/internal/market"
	"figgie/internal/matching"
)

// Round holds all authoritative state for one deal-to-scoring cycle.
// Exported fields are read by room for broadcast construction; all
// mutation happens through Round's methods, called only from the owning
// room's single-writer task.
type Round struct {
	Gold      market.Suit
	Hands     map[market.Username]market.Hand
	Cash      map[market.Username]market.Price
	Book      *book.Book
	Players   []market.Username
	StartTime time.Time
	Duration  time.Duration
	MaxPrice  market.Price

	// InitialCounts is the per-suit deck total at deal time, captured once
	// so CheckInvariants has a fixed baseline for the round's lifetime.
	InitialCounts [4]market.Size

	nextSeq uint64
	usedIds map[market.Username]map[market.OrderId]struct{}
}

// New deals a fresh round for exactly PlayersPerRound players.
func New(r *rand.Rand, players []market.Username, start time.Time, duration time.Duration, maxPrice market.Price) *Round {
	hands, gold := deal(r, players)
	cash := make(map[market.Username]market.Price, len(players))
	usedIds := make(map[market.Username]map[market.OrderId]struct{}, len(players))
	for _, p := range players {
		cash[p] = 0
		usedIds[p] = make(map[market.OrderId]struct{})
	}
	rnd := &Round{
		Gold:      gold,
		Hands:     hands,
		Cash:      cash,
		Book:      book.NewBook(),
		Players:   append([]market.Username(nil), players...),
		StartTime: start,
		Duration:  duration,
		MaxPrice:  maxPrice,
		usedIds:   usedIds,
	}
	rnd.InitialCounts = rnd.InitialSuitCounts()
	return rnd
}

// TimeRemaining returns the time left in the round as of now; the second
// return is false once the round has already expired.
func (rnd *Round) TimeRemaining(now time.Time) (time.Duration, bool) {
	elapsed := now.Sub(rnd.StartTime)
	remaining := rnd.Duration - elapsed
	return remaining, remaining > 0
}

// Expired reports whether the round's duration has elapsed as of now.
func (rnd *Round) Expired(now time.Time) bool {
	_, ok := rnd.TimeRemaining(now)
	return !ok
}

// PlaceOrder validates and matches an inbound order, applies fills to hands
// and cash, and returns the resulting Exec. The caller is responsible for
// the You're_not_playing / Game_not_in_progress preconditions, which are
// room-level, not round-level, checks.
func (rnd *Round) PlaceOrder(sender market.Username, order market.Order) (matching.Exec, error) {
	if order.Owner != sender {
		return matching.Exec{}, matching.ErrOwnerIsNotSender
	}
	if err := matching.Validate(rnd.Book, rnd.Hands[sender], order, rnd.MaxPrice, rnd.usedIds[sender]); err != nil {
		return matching.Exec{}, err
	}

	rnd.nextSeq++
	order.EntrySeq = rnd.nextSeq
	rnd.usedIds[sender][order.Id] = struct{}{}

	exec := matching.Match(rnd.Book, order)
	rnd.settle(order, exec)
	return exec, nil
}

// settle applies the cash and hand deltas implied by an Exec: for every
// fill, the buyer gains Size cards of the suit and pays Size*Price; the
// seller loses the cards and receives the cash.
func (rnd *Round) settle(inbound market.Order, exec matching.Exec) {
	for _, f := range exec.Fills {
		var buyer, seller market.Username
		if inbound.Dir == market.Buy {
			buyer, seller = inbound.Owner, f.CounterpartyOwner
		} else {
			buyer, seller = f.CounterpartyOwner, inbound.Owner
		}
		cost := market.Price(f.Size) * f.Price

		buyerHand := rnd.Hands[buyer]
		buyerHand.Add(inbound.Symbol, f.Size)
		rnd.Hands[buyer] = buyerHand

		sellerHand := rnd.Hands[seller]
		sellerHand.Sub(inbound.Symbol, f.Size)
		rnd.Hands[seller] = sellerHand

		rnd.Cash[buyer] -= cost
		rnd.Cash[seller] += cost
	}
}

// CancelOrder removes a single resting order owned by owner. Per spec §4.5,
// the ack only guarantees the order is no longer in the book as of this
// call — fills already emitted against it before the cancel was processed
// remain valid.
func (rnd *Round) CancelOrder(owner market.Username, id market.OrderId) (*market.Order, error) {
	for _, s := range market.Suits {
		for _, d := range [2]market.Dir{market.Buy, market.Sell} {
			if o := rnd.Book.Side(s, d).Remove(owner, id); o != nil {
				return o, nil
			}
		}
	}
	return nil, matching.ErrNoSuchOrder
}

// CancelAll removes every resting order owned by owner.
func (rnd *Round) CancelAll(owner market.Username) []*market.Order {
	return rnd.Book.CancelByOwner(owner)
}

// FlushAllOuts removes every resting order in the book across all players,
// used at round end to emit Out broadcasts for everything still resting
// before Round_over, per spec §4.4's termination ordering.
func (rnd *Round) FlushAllOuts() []*market.Order {
	var all []*market.Order
	for _, p := range rnd.Players {
		all = append(all, rnd.CancelAll(p)...)
	}
	return all
}
