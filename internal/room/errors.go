package room

import "errors"

// kindedError pairs a sentinel error with the wire Kind() the protocol
// layer maps it onto, avoiding a hand-rolled parallel switch per RPC (spec
// design note §9: "typed error unions... derive these rather than
// hand-roll").
type kindedError struct {
	error
	kind string
}

func (k kindedError) Kind() string { return k.kind }

func newErr(kind, msg string) error {
	return kindedError{errors.New(msg), kind}
}

// Auth/session class.
var (
	ErrNotLoggedIn    = newErr("Not_logged_in", "not logged in")
	ErrAlreadyLoggedIn = newErr("Already_logged_in", "already logged in")
	ErrInvalidUsername = newErr("Invalid_username", "invalid username")
	ErrNotInARoom      = newErr("Not_in_a_room", "not in a room")
)

// Lifecycle class.
var (
	ErrGameNotInProgress  = newErr("Game_not_in_progress", "game not in progress")
	ErrGameAlreadyStarted = newErr("Game_already_started", "game already started")
	ErrNotPlaying         = newErr("You're_not_playing", "you're not playing")
	ErrAlreadyPlaying     = newErr("You're_already_playing", "you're already playing")
	ErrRoundAlreadyRunning = newErr("Already_playing", "already playing")
	ErrGameIsFull          = newErr("Game_is_full", "game is full")
	ErrSeatOccupied        = newErr("Seat_occupied", "seat occupied")
)

// Chat.
var ErrLoginFirst = newErr("Login_first", "login first")

// Kind returns the wire error-kind string for an error produced by this
// package, or "" if err did not originate here.
func Kind(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}
