package round

import (
	"math/rand"

	"figgie/internal/market"
)

// DeckSize, HandSize and PlayersPerRound are figgie's fixed constants
// (spec §6). A round always deals to exactly four players.
const (
	DeckSize        = 40
	HandSize        = 10
	PlayersPerRound = 4
)

// dealDeck picks the per-suit card counts from a fixed multiset: one color
// gets {12, 8}, the other gets {10, 10}. Which color draws the 12/8 split is
// randomized per deal; gold is always the 8-card suit's same-color partner
// (the color's 12-card suit) — the Open Question in spec §9, resolved in
// SPEC_FULL.md §4 against Figgie house rules: Spades/Clubs are black,
// Hearts/Diamonds are red.
func dealDeck(r *rand.Rand) (counts [4]market.Size, gold market.Suit) {
	blackGetsTwelve := r.Intn(2) == 0

	var spades, clubs, hearts, diamonds market.Size
	if blackGetsTwelve {
		// Black suits get {12, 8}; red suits get {10, 10}.
		if r.Intn(2) == 0 {
			spades, clubs = 12, 8
		} else {
			spades, clubs = 8, 12
		}
		hearts, diamonds = 10, 10
		if clubs == 8 {
			gold = market.Spades
		} else {
			gold = market.Clubs
		}
	} else {
		if r.Intn(2) == 0 {
			hearts, diamonds = 12, 8
		} else {
			hearts, diamonds = 8, 12
		}
		spades, clubs = 10, 10
		if diamonds == 8 {
			gold = market.Hearts
		} else {
			gold = market.Diamonds
		}
	}

	counts[market.Spades] = spades
	counts[market.Hearts] = hearts
	counts[market.Diamonds] = diamonds
	counts[market.Clubs] = clubs
	return counts, gold
}

// buildDeck expands suit counts into a flat deck of suit "cards" and
// shuffles it with the injected RNG, grounded in the teacher-pack's
// poker-engine deal style of shuffling an explicit []Card via math/rand fed
// by a caller-supplied *rand.Rand for deterministic tests.
func buildDeck(r *rand.Rand, counts [4]market.Size) []market.Suit {
	deck := make([]market.Suit, 0, DeckSize)
	for _, s := range market.Suits {
		for i := market.Size(0); i < counts[s]; i++ {
			deck = append(deck, s)
		}
	}
	r.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// deal shuffles a fresh 40-card deck and deals HandSize cards to each of
// the given players, returning the per-player hands and the round's gold
// suit.
func deal(r *rand.Rand, players []market.Username) (hands map[market.Username]market.Hand, gold market.Suit) {
	counts, gold := dealDeck(r)
	deck := buildDeck(r, counts)

	hands = make(map[market.Username]market.Hand, len(players))
	i := 0
	for _, p := range players {
		var h market.Hand
		for c := 0; c < HandSize; c++ {
			h[deck[i]]++
			i++
		}
		hands[p] = h
	}
	return hands, gold
}
