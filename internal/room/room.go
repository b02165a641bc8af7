package room

import (
	"math/rand"
	"time"

	"figgie/internal/market"
	"figgie/internal/round"

	"github.com/rs/zerolog"
)

// Room is the authoritative state machine for one game room: up to four
// seats, user roles, and the active Round if one is in progress. All
// mutation happens through its command methods (Login, StartPlaying,
// SetReady, PlaceOrder, ...), which only the room's single-writer task
// calls (see Task.Run) — Room itself holds no
// synchronization primitives because single-writer discipline is enforced
// by the caller, not by the type (spec §5).
type Room struct {
	Name string

	users   map[market.Username]*User
	seating map[market.Seat]market.Username

	round *round.Round
	cfg   Config
	rng   *rand.Rand
	log   zerolog.Logger
}

// New creates an empty room. rng drives round dealing — tests inject a
// seeded source for determinism, production wires a process-wide source.
func New(name string, cfg Config, rng *rand.Rand, log zerolog.Logger) *Room {
	return &Room{
		Name:    name,
		users:   make(map[market.Username]*User),
		seating: make(map[market.Seat]market.Username),
		cfg:     cfg,
		rng:     rng,
		log:     log.With().Str("room", name).Logger(),
	}
}

// Outcome is everything a command method produces for one command: the
// reply error for the sender (sent back via the RPC layer) and the events to fan out to
// subscribers. Broadcasts go to every subscriber in the room; Private
// updates go only to the named user (e.g. a get-update Hand/Market
// response, delivered on the stream per spec's design note so it shares the
// stream's ordering guarantees rather than racing the RPC reply).
type Outcome struct {
	Err        error
	Broadcasts []Broadcast
	Private    []PrivateUpdate
}

// PrivateUpdate is an Update addressed to a single user rather than fanned
// out to the whole room.
type PrivateUpdate struct {
	To     market.Username
	Update Update
}

func (o *Outcome) broadcast(b Broadcast) { o.Broadcasts = append(o.Broadcasts, b) }
func (o *Outcome) private(to market.Username, u Update) {
	o.Private = append(o.Private, PrivateUpdate{To: to, Update: u})
}

// InProgress reports whether a round is currently running.
func (r *Room) InProgress() bool { return r.round != nil }

// Round exposes the active round for read-only queries (TimeRemaining,
// GetUpdate); nil if no round is in progress.
func (r *Room) Round() *round.Round { return r.round }

// User looks up a logged-in user by name.
func (r *Room) User(name market.Username) (*User, bool) {
	u, ok := r.users[name]
	return u, ok
}

// Users returns every user currently tracked by the room (observers and
// players), for subscriber enumeration.
func (r *Room) Users() []*User {
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

// Login adds name to the room as an Observer. Fails with Invalid_username
// for an empty name and Already_logged_in if the name is already taken in
// this room. There is no cap on observers, and Login succeeds whether or
// not a round is running or all seats are taken.
func (r *Room) Login(name market.Username) (*Outcome, error) {
	if name == "" {
		return nil, ErrInvalidUsername
	}
	if _, ok := r.users[name]; ok {
		return nil, ErrAlreadyLoggedIn
	}

	r.users[name] = &User{Name: name, Connected: true}

	out := &Outcome{}
	out.broadcast(Broadcast{Kind: PlayerJoined, Who: name})
	return out, nil
}

// StartPlaying seats an Observer into the lobby. Unanimous-ready auto-start
// (spec's state diagram) is checked by SetReady, the only command that can
// complete the "all four ready" transition.
func (r *Room) StartPlaying(sender market.Username, choice SeatChoice) (market.Seat, *Outcome, error) {
	u, ok := r.users[sender]
	if !ok {
		return 0, nil, ErrNotLoggedIn
	}
	if r.round != nil {
		return 0, nil, ErrGameAlreadyStarted
	}
	if u.Seated {
		return 0, nil, ErrAlreadyPlaying
	}

	seat, err := r.pickSeat(choice)
	if err != nil {
		return 0, nil, err
	}

	u.Seated = true
	u.Seat = seat
	u.Phase = Waiting
	u.IsReady = false
	r.seating[seat] = sender

	out := &Outcome{}
	out.broadcast(Broadcast{Kind: PlayerJoined, Who: sender})
	return seat, out, nil
}

func (r *Room) pickSeat(choice SeatChoice) (market.Seat, error) {
	if choice.Specific {
		if _, taken := r.seating[choice.Seat]; taken {
			return 0, ErrSeatOccupied
		}
		return choice.Seat, nil
	}
	for _, s := range market.Seats {
		if _, taken := r.seating[s]; !taken {
			return s, nil
		}
	}
	return 0, ErrGameIsFull
}

// SetReady toggles a seated player's readiness. When all four seats are
// filled and every player is ready, a new Round is dealt and every player's
// phase flips to Playing (spec's state diagram auto-transition).
func (r *Room) SetReady(sender market.Username, ready bool, now time.Time) (*Outcome, error) {
	u, ok := r.users[sender]
	if !ok {
		return nil, ErrNotLoggedIn
	}
	if !u.Seated {
		return nil, ErrNotPlaying
	}
	if r.round != nil {
		return nil, ErrRoundAlreadyRunning
	}

	u.IsReady = ready

	out := &Outcome{}
	out.broadcast(Broadcast{Kind: PlayerReady, Who: sender, IsReady: ready})

	if r.allReadyAndFull() {
		r.startRound(now, out)
	}
	return out, nil
}

func (r *Room) allReadyAndFull() bool {
	if len(r.seating) != round.PlayersPerRound {
		return false
	}
	for _, s := range market.Seats {
		name, ok := r.seating[s]
		if !ok {
			return false
		}
		if !r.users[name].IsReady {
			return false
		}
	}
	return true
}

func (r *Room) startRound(now time.Time, out *Outcome) {
	players := make([]market.Username, 0, round.PlayersPerRound)
	for _, s := range market.Seats {
		players = append(players, r.seating[s])
	}
	r.round = round.New(r.rng, players, now, r.cfg.RoundDuration, r.cfg.MaxPrice)

	for _, name := range players {
		u := r.users[name]
		u.Phase = Playing
		u.IsReady = false
	}

	out.broadcast(Broadcast{Kind: NewRound})
	for _, name := range players {
		out.private(name, Update{Kind: UpdateHand, Hand: r.round.Hands[name]})
	}
}

// PlaceOrder validates preconditions and hands the order to the active
// round's matching engine, emitting Exec and any self-cross Out broadcasts.
func (r *Room) PlaceOrder(sender market.Username, order market.Order) (*Outcome, error) {
	if err := r.requirePlaying(sender); err != nil {
		return nil, err
	}

	exec, err := r.round.PlaceOrder(sender, order)
	if err != nil {
		return nil, err
	}

	out := &Outcome{}
	for _, o := range exec.SelfCrossOuts {
		out.broadcast(Broadcast{Kind: OutReport, Order: o.Order})
	}
	out.broadcast(Broadcast{Kind: ExecReport, Order: exec.Order, Exec: exec})
	return out, nil
}

// CancelOrder removes a single resting order. Per spec §4.5, success here
// only means the order is no longer resting as of this call; fills already
// in flight against it remain valid and are announced separately.
func (r *Room) CancelOrder(sender market.Username, id market.OrderId) (*Outcome, error) {
	if err := r.requirePlaying(sender); err != nil {
		return nil, err
	}
	o, err := r.round.CancelOrder(sender, id)
	if err != nil {
		return nil, err
	}
	out := &Outcome{}
	out.broadcast(Broadcast{Kind: OutReport, Order: *o})
	return out, nil
}

// CancelAll removes every resting order owned by sender.
func (r *Room) CancelAll(sender market.Username) (*Outcome, error) {
	if err := r.requirePlaying(sender); err != nil {
		return nil, err
	}
	removed := r.round.CancelAll(sender)
	out := &Outcome{}
	for _, o := range removed {
		out.broadcast(Broadcast{Kind: OutReport, Order: *o})
	}
	return out, nil
}

// Chat fans out a chat message to the room; any logged-in user (observer or
// player) may chat.
func (r *Room) Chat(sender market.Username, msg string) (*Outcome, error) {
	if _, ok := r.users[sender]; !ok {
		return nil, ErrLoginFirst
	}
	out := &Outcome{}
	out.broadcast(Broadcast{Kind: ChatMsg, Who: sender, ChatText: msg})
	return out, nil
}

// GetUpdate delivers the requester's Hand or the public Market snapshot on
// their stream, per spec's design note that get-update's result rides the
// ordered stream rather than the RPC reply.
func (r *Room) GetUpdate(sender market.Username, wantMarket bool, suit market.Suit) (*Outcome, error) {
	if err := r.requirePlaying(sender); err != nil {
		return nil, err
	}
	out := &Outcome{}
	if wantMarket {
		out.private(sender, Update{Kind: UpdateMarket, Market: r.marketView(suit)})
	} else {
		out.private(sender, Update{Kind: UpdateHand, Hand: r.round.Hands[sender]})
	}
	return out, nil
}

func (r *Room) marketView(suit market.Suit) MarketView {
	return MarketView{
		Suit:  suit,
		Buys:  orderValues(r.round.Book.Side(suit, market.Buy).Orders()),
		Sells: orderValues(r.round.Book.Side(suit, market.Sell).Orders()),
	}
}

func orderValues(ptrs []*market.Order) []market.Order {
	out := make([]market.Order, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// TimeRemaining is a pure read; it never blocks the writer and never
// mutates room state (spec §5).
func (r *Room) TimeRemaining(now time.Time) (time.Duration, error) {
	if r.round == nil {
		return 0, ErrGameNotInProgress
	}
	remaining, _ := r.round.TimeRemaining(now)
	return remaining, nil
}

func (r *Room) requirePlaying(sender market.Username) error {
	u, ok := r.users[sender]
	if !ok {
		return ErrNotLoggedIn
	}
	if !u.Seated || u.Phase != Playing {
		return ErrNotPlaying
	}
	if r.round == nil {
		return ErrGameNotInProgress
	}
	return nil
}

// Expired reports whether the active round's timer has elapsed.
func (r *Room) Expired(now time.Time) bool {
	return r.round != nil && r.round.Expired(now)
}

// EndRound flushes all resting orders, scores the round, and resets every
// player to Waiting{is_ready=false}, per spec §4.4's termination ordering:
// Outs, then Round_over, then Scores.
func (r *Room) EndRound() *Outcome {
	out := &Outcome{}
	if r.round == nil {
		return out
	}

	for _, o := range r.round.FlushAllOuts() {
		out.broadcast(Broadcast{Kind: OutReport, Order: *o})
	}

	results := r.round.Score(r.cfg.Pot, r.cfg.PerGoldCardBonus)
	hands := r.round.Hands
	gold := r.round.Gold

	for _, res := range results {
		u := r.users[res.Player]
		if u != nil {
			u.CumScore += res.ScoreThisRound
			u.Phase = Waiting
			u.IsReady = false
		}
	}

	out.broadcast(Broadcast{Kind: RoundOver, Gold: gold, Hands: hands, RoundResults: results})

	cumulative := make(map[market.Username]market.Price, len(r.users))
	for name, u := range r.users {
		cumulative[name] = u.CumScore
	}
	out.broadcast(Broadcast{Kind: Scores, Cumulative: cumulative})

	r.round = nil
	return out
}

// CheckInvariants re-exposes the active round's invariant check for the Run
// loop to call after every mutating command; a violation is fatal and must
// terminate the room (spec §7), never surfaced as an RPC error.
func (r *Room) CheckInvariants() error {
	if r.round == nil {
		return nil
	}
	return r.round.CheckInvariants(r.round.InitialCounts)
}

// Disconnect marks a user as disconnected. Mid-round, a seated player is
// kept alive (their resting orders remain in the book) until the round
// ends, at which point they are fully removed (spec §5 Cancellation). An
// Observer, or a seated player when no round is running, is removed
// immediately.
func (r *Room) Disconnect(name market.Username) {
	u, ok := r.users[name]
	if !ok {
		return
	}
	u.Connected = false
	if !u.Seated || r.round == nil {
		r.removeUser(name)
	}
}

// ReapDisconnected removes every disconnected user, except seated players
// while a round is still running; call this right after EndRound.
func (r *Room) ReapDisconnected() {
	for name, u := range r.users {
		if !u.Connected && (!u.Seated || r.round == nil) {
			r.removeUser(name)
		}
	}
}

func (r *Room) removeUser(name market.Username) {
	if u, ok := r.users[name]; ok && u.Seated {
		delete(r.seating, u.Seat)
	}
	delete(r.users, name)
}

// Empty reports whether the room has no remaining users, for idle reaping
// by the registry.
func (r *Room) Empty() bool { return len(r.users) == 0 }
