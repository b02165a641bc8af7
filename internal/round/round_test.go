package round

import (
	"math/rand"
	"testing"
	"time"

	"figgie/internal/market"
	"figgie/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRound(t *testing.T) *Round {
	t.Helper()
	players := []market.Username{"A", "B", "C", "D"}
	r := rand.New(rand.NewSource(42))
	return New(r, players, time.Unix(0, 0), 240*time.Second, 10000)
}

func TestNew_DealsFullDeck(t *testing.T) {
	rnd := newTestRound(t)
	var total market.Size
	for _, p := range rnd.Players {
		h := rnd.Hands[p]
		assert.Equal(t, market.Size(HandSize), h.Total())
		total += h.Total()
	}
	assert.Equal(t, market.Size(DeckSize), total)
}

func TestNew_GoldIsEightCardSuitsPartner(t *testing.T) {
	rnd := newTestRound(t)
	counts := rnd.InitialSuitCounts()

	var eightSuit market.Suit
	found := false
	for _, s := range market.Suits {
		if counts[s] == 8 {
			eightSuit = s
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, eightSuit.Partner(), rnd.Gold)
	assert.Equal(t, counts[rnd.Gold], market.Size(12))
}

func TestPlaceOrder_SimpleCross(t *testing.T) {
	rnd := newTestRound(t)
	rnd.Hands["B"] = market.Hand{market.Hearts: 5}
	aHearts := rnd.Hands["A"].Get(market.Hearts)

	_, err := rnd.PlaceOrder("A", market.Order{Id: 1, Owner: "A", Symbol: market.Hearts, Dir: market.Buy, Price: 10, Size: 3})
	require.NoError(t, err)

	exec, err := rnd.PlaceOrder("B", market.Order{Id: 1, Owner: "B", Symbol: market.Hearts, Dir: market.Sell, Price: 8, Size: 2})
	require.NoError(t, err)
	require.Len(t, exec.Fills, 1)

	assert.Equal(t, market.Price(-20), rnd.Cash["A"])
	assert.Equal(t, market.Price(20), rnd.Cash["B"])
	assert.Equal(t, aHearts+2, rnd.Hands["A"].Get(market.Hearts))
	assert.Equal(t, market.Size(3), rnd.Hands["B"].Get(market.Hearts))
}

func TestPlaceOrder_OwnerMustMatchSender(t *testing.T) {
	rnd := newTestRound(t)
	_, err := rnd.PlaceOrder("A", market.Order{Id: 1, Owner: "B", Symbol: market.Hearts, Dir: market.Buy, Price: 1, Size: 1})
	assert.Error(t, err)
}

func TestCancelOrder_RaceAfterFill(t *testing.T) {
	// Scenario S4: a resting buy that fully fills before its cancel is
	// processed must report No_such_order on the cancel.
	rnd := newTestRound(t)
	rnd.Hands["B"] = market.Hand{market.Diamonds: 5}

	_, err := rnd.PlaceOrder("A", market.Order{Id: 1, Owner: "A", Symbol: market.Diamonds, Dir: market.Buy, Price: 7, Size: 5})
	require.NoError(t, err)

	exec, err := rnd.PlaceOrder("B", market.Order{Id: 1, Owner: "B", Symbol: market.Diamonds, Dir: market.Sell, Price: 7, Size: 5})
	require.NoError(t, err)
	require.Len(t, exec.Fills, 1)

	_, err = rnd.CancelOrder("A", 1)
	assert.ErrorIs(t, err, matching.ErrNoSuchOrder)
}

func TestScore_SplitsPotAndAwardsBonus(t *testing.T) {
	rnd := newTestRound(t)
	rnd.Gold = market.Spades
	rnd.Players = []market.Username{"A", "B", "C", "D"}
	rnd.Hands = map[market.Username]market.Hand{
		"A": {market.Spades: 5},
		"B": {market.Spades: 3},
		"C": {market.Spades: 1},
		"D": {market.Spades: 1},
	}
	rnd.Cash = map[market.Username]market.Price{"A": 0, "B": 0, "C": 0, "D": 0}

	results := rnd.Score(100, 10)
	byPlayer := map[market.Username]Result{}
	for _, r := range results {
		byPlayer[r.Player] = r
	}

	assert.Equal(t, market.Price(150), byPlayer["A"].ScoreThisRound)
	assert.Equal(t, market.Price(30), byPlayer["B"].ScoreThisRound)
	assert.Equal(t, market.Price(10), byPlayer["C"].ScoreThisRound)
	assert.Equal(t, market.Price(10), byPlayer["D"].ScoreThisRound)
}

func TestScore_TiedPotSplitsEvenly(t *testing.T) {
	rnd := newTestRound(t)
	rnd.Gold = market.Hearts
	rnd.Hands = map[market.Username]market.Hand{
		"A": {market.Hearts: 4},
		"B": {market.Hearts: 4},
		"C": {market.Hearts: 1},
		"D": {market.Hearts: 1},
	}
	rnd.Cash = map[market.Username]market.Price{"A": 0, "B": 0, "C": 0, "D": 0}

	results := rnd.Score(101, 0) // odd pot to exercise truncated division
	for _, r := range results {
		if r.Player == "A" || r.Player == "B" {
			assert.Equal(t, market.Price(50), r.PotShare)
		} else {
			assert.Equal(t, market.Price(0), r.PotShare)
		}
	}
}

func TestCheckInvariants_DetectsCashLeak(t *testing.T) {
	rnd := newTestRound(t)
	initial := rnd.InitialSuitCounts()
	require.NoError(t, rnd.CheckInvariants(initial))

	rnd.Cash["A"] += 5
	err := rnd.CheckInvariants(initial)
	require.Error(t, err)
	var v Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "cash_conservation", v.Kind)
}
