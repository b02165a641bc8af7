package room

import (
	"figgie/internal/market"
	"figgie/internal/matching"
	"figgie/internal/round"
)

// BroadcastKind tags the variant of a room-wide Broadcast event (spec §6's
// PlayerUpdate stream).
type BroadcastKind int

const (
	PlayerJoined BroadcastKind = iota
	PlayerReady
	ChatMsg
	NewRound
	ExecReport
	OutReport
	RoundOver
	Scores
)

// Broadcast is a canonical, room-wide event. Every subscriber observes the
// same sequence of Broadcasts in the same order (spec §5.2); per-subscriber
// views (e.g. a player's own Hand) are delivered separately, never folded
// into a Broadcast.
type Broadcast struct {
	Kind BroadcastKind

	// PlayerJoined / PlayerReady
	Who     market.Username
	IsReady bool

	// ChatMsg
	ChatText string

	// ExecReport / OutReport
	Order market.Order
	Exec  matching.Exec

	// RoundOver
	Gold          market.Suit
	Hands         map[market.Username]market.Hand
	RoundResults  []round.Result

	// Scores
	Cumulative map[market.Username]market.Price
}

// UpdateKind tags the PlayerUpdate stream variant (spec §6).
type UpdateKind int

const (
	UpdateBroadcast UpdateKind = iota
	UpdateHand
	UpdateMarket
)

// Update is one item on a subscriber's PlayerUpdate stream.
type Update struct {
	Kind      UpdateKind
	Broadcast Broadcast
	Hand      market.Hand
	Market    MarketView
}

// MarketView is the public snapshot of the book for one suit, with no
// owner information beyond what Exec/Out broadcasts already revealed.
type MarketView struct {
	Suit market.Suit
	Buys  []market.Order
	Sells []market.Order
}
