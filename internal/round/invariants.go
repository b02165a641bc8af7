package round

import (
	"fmt"

	"figgie/internal/market"
)

// Violation describes a fatal invariant break (spec §7/§8): these are never
// surfaced as RPC errors, they terminate the owning room.
type Violation struct {
	Kind    string
	Detail  string
}

func (v Violation) Error() string { return fmt.Sprintf("%s: %s", v.Kind, v.Detail) }

// CheckInvariants verifies card and cash conservation (spec §8, properties
// 1-2) across every player and suit, counting hands only: cards committed
// to a resting sell stay in the seller's hand until a fill actually
// transfers them, so the book holds no cards of its own to count.
func (rnd *Round) CheckInvariants(initialCounts [4]market.Size) error {
	var total [4]market.Size
	for _, p := range rnd.Players {
		h := rnd.Hands[p]
		for _, s := range market.Suits {
			// market.Size is unsigned, so an underflowing Sub wraps instead of
			// going negative; no single hand can ever legitimately hold more
			// of a suit than the whole deck dealt out, so a count above the
			// deck total is the wrapped value and means the same thing a
			// negative count would.
			if h.Get(s) > initialCounts[s] {
				return Violation{"negative_hand", fmt.Sprintf("player %s suit %s", p, s)}
			}
			total[s] += h.Get(s)
		}
	}
	for _, s := range market.Suits {
		if total[s] != initialCounts[s] {
			return Violation{"card_conservation", fmt.Sprintf("suit %s: have %d want %d", s, total[s], initialCounts[s])}
		}
	}

	var cashTotal market.Price
	for _, p := range rnd.Players {
		cashTotal += rnd.Cash[p]
	}
	if cashTotal != 0 {
		return Violation{"cash_conservation", fmt.Sprintf("sum cash = %d, want 0", cashTotal)}
	}

	return nil
}

// InitialSuitCounts returns the per-suit deck totals, summed from the dealt
// hands. Resting orders never move cards between hands (settle only moves
// cards at fill time), so calling this immediately after New() captures the
// invariant CheckInvariants checks against for the rest of the round.
func (rnd *Round) InitialSuitCounts() [4]market.Size {
	var total [4]market.Size
	for _, p := range rnd.Players {
		h := rnd.Hands[p]
		for _, s := range market.Suits {
			total[s] += h.Get(s)
		}
	}
	return total
}
