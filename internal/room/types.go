// Package room implements the authoritative per-room state machine: lobby
// and seating, round orchestration, and the totally-ordered broadcast
// stream fanned out to subscribers. Room is a plain state machine whose
// command methods are driven by commands and a clock; Task.Run wires that
// state machine to real concurrency behind a single-writer task, per spec §1/§5.
package room

import (
	"figgie/internal/market"
)

// Phase is a seated player's lifecycle phase.
type Phase int

const (
	Waiting Phase = iota
	Playing
)

// User is either an Observer or a seated Player, tracked for the lifetime
// of the room (or until disconnect once no round is in progress).
type User struct {
	Name        market.Username
	Seated      bool
	Seat        market.Seat
	Phase       Phase
	IsReady     bool
	Connected   bool
	CumScore    market.Price
}

// SeatChoice is the StartPlaying argument: either a specific seat or "any
// open seat".
type SeatChoice struct {
	Specific bool
	Seat     market.Seat
}

// SitAnywhere requests the first open seat.
func SitAnywhere() SeatChoice { return SeatChoice{} }

// SitIn requests a specific seat.
func SitIn(s market.Seat) SeatChoice { return SeatChoice{Specific: true, Seat: s} }
