package room

import (
	"time"

	"figgie/internal/market"
)

// Config holds the room-tunable constants spec §6 calls out. Defaults match
// the spec's stated defaults.
type Config struct {
	RoundDuration     time.Duration
	Pot               market.Price
	PerGoldCardBonus  market.Price
	MaxPrice          market.Price
	IdleTimeout       time.Duration
}

// DefaultConfig returns the spec's stated defaults: pot=100,
// round_duration=240s, per_gold_card_bonus=10, MAX_PRICE=100*pot.
func DefaultConfig() Config {
	pot := market.Price(100)
	return Config{
		RoundDuration:    240 * time.Second,
		Pot:              pot,
		PerGoldCardBonus: 10,
		MaxPrice:         100 * pot,
		IdleTimeout:      10 * time.Minute,
	}
}
