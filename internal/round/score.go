package round

import "figgie/internal/market"

// Result is one player's outcome at round end: the pot/bonus award plus
// trading P&L already reflected in cash.
type Result struct {
	Player        market.Username
	GoldHeld      market.Size
	PotShare      market.Price
	Bonus         market.Price
	TradingPnL    market.Price
	ScoreThisRound market.Price
}

// Score computes the end-of-round results for every player: the pot is
// split evenly (truncated) among the gold-majority holders, every gold card
// held pays a per-card bonus, and trading P&L (final cash) is added on top.
// Ties split the pot; the remainder from truncated division is discarded
// (spec §4.4).
func (rnd *Round) Score(pot, perGoldCardBonus market.Price) []Result {
	var maxHeld market.Size
	for _, p := range rnd.Players {
		if h := rnd.Hands[p].Get(rnd.Gold); h > maxHeld {
			maxHeld = h
		}
	}

	var winners int
	if maxHeld > 0 {
		for _, p := range rnd.Players {
			if rnd.Hands[p].Get(rnd.Gold) == maxHeld {
				winners++
			}
		}
	}

	var potShare market.Price
	if winners > 0 {
		potShare = pot / market.Price(winners)
	}

	results := make([]Result, len(rnd.Players))
	for i, p := range rnd.Players {
		held := rnd.Hands[p].Get(rnd.Gold)
		bonus := market.Price(held) * perGoldCardBonus

		share := market.Price(0)
		if winners > 0 && held == maxHeld {
			share = potShare
		}

		results[i] = Result{
			Player:         p,
			GoldHeld:       held,
			PotShare:       share,
			Bonus:          bonus,
			TradingPnL:     rnd.Cash[p],
			ScoreThisRound: share + bonus + rnd.Cash[p],
		}
	}
	return results
}
