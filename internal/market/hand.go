package market

// Hand tracks how many cards of each suit a player holds.
type Hand [4]Size

// Get returns the count for a suit.
func (h Hand) Get(s Suit) Size { return h[s] }

// Add adds delta cards of suit s (delta may be negative via Sub).
func (h *Hand) Add(s Suit, delta Size) { h[s] += delta }

// Sub removes n cards of suit s. Callers must ensure h[s] >= n; round's
// settlement only calls Sub for fills of sells that passed
// matching.Validate's sell-coverage pre-check.
func (h *Hand) Sub(s Suit, n Size) { h[s] -= n }

// Total returns the sum of all suit counts, always 10 for a dealt hand.
func (h Hand) Total() Size {
	var total Size
	for _, c := range h {
		total += c
	}
	return total
}

// Map2 applies f pointwise over two hands, returning a new hand.
func Map2(a, b Hand, f func(Size, Size) Size) Hand {
	var out Hand
	for s := range out {
		out[s] = f(a[s], b[s])
	}
	return out
}

// PartialHand is the view an observer has of another player's hand: the
// suits whose counts have been revealed through aggregated market activity,
// plus the remaining unknown count. sum(Known) + Unknown always equals 10.
type PartialHand struct {
	Known   Hand
	Unknown Size
}
