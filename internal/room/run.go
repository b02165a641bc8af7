package room

import (
	"time"

	"figgie/internal/market"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// subscriberQueueSize bounds each subscriber's outbound update queue.
// Exceeding it triggers the backpressure policy in spec §5: drop the
// subscriber (close its connection) rather than stall the room.
const subscriberQueueSize = 256

// command is one unit of work submitted to the room's single-writer task.
// exec runs with exclusive access to Room state and returns the RPC reply
// value (any, interpreted by the caller) plus the Outcome to fan out.
type command struct {
	exec func(r *Room, now time.Time) (reply any, outcome *Outcome, err error)
	done chan result
}

type result struct {
	reply any
	err   error
}

// Sub is a subscriber's outbound update queue plus bookkeeping the Run loop
// needs to drop it on backpressure or disconnect.
type Sub struct {
	Name    market.Username
	Updates chan Update
	closed  bool
}

// Task wires a Room's command methods to real concurrency: a single
// goroutine owns the room's command channel and a round-expiry timer,
// guaranteeing per-connection FIFO and total broadcast order across
// subscribers (spec §5). Grounded in the teacher's net.Server.Run, which
// supervises its accept loop and worker pool under a tomb.v2 Tomb the same
// way Task supervises the room loop here.
type Task struct {
	Room *Room

	cmds chan command
	subs map[market.Username]*Sub
	now  func() time.Time
}

// NewTask wraps r in a Task ready to Run. now defaults to time.Now; tests
// inject a fake clock.
func NewTask(r *Room, now func() time.Time) *Task {
	if now == nil {
		now = time.Now
	}
	return &Task{
		Room: r,
		cmds: make(chan command, 64),
		subs: make(map[market.Username]*Sub),
		now:  now,
	}
}

// Subscribe registers name's outbound queue. Call this synchronously from
// within a command's exec (e.g. Login) so the new subscriber can't miss a
// broadcast emitted by the very command that created it.
func (t *Task) Subscribe(name market.Username) *Sub {
	sub := &Sub{Name: name, Updates: make(chan Update, subscriberQueueSize)}
	t.subs[name] = sub
	return sub
}

// Unsubscribe removes name's outbound queue, closing its channel.
func (t *Task) Unsubscribe(name market.Username) {
	if sub, ok := t.subs[name]; ok && !sub.closed {
		sub.closed = true
		close(sub.Updates)
	}
	delete(t.subs, name)
}

// Submit enqueues a command and blocks until it has been dispatched,
// returning its reply. Safe to call concurrently from many connections —
// command ordering across connections is FIFO on arrival at this channel,
// and each connection's own commands are ordered by the caller serializing
// its own Submit calls (spec §5.1).
func (t *Task) Submit(exec func(r *Room, now time.Time) (any, *Outcome, error)) (any, error) {
	done := make(chan result, 1)
	t.cmds <- command{exec: exec, done: done}
	res := <-done
	return res.reply, res.err
}

// Run is the room's single-writer task: it dequeues commands, runs them
// with exclusive access to Room, fans out the resulting broadcasts, checks
// invariants, and replies to the sender — in that order, which is exactly
// what gives ack-after-broadcast ordering (spec §5.3) for free. It also
// drives the round-expiry timer so EndRound is just another internally
// generated command.
func (t *Task) Run(tmb *tomb.Tomb) error {
	var timer *time.Timer
	for {
		var expiry <-chan time.Time
		if t.Room.InProgress() {
			remaining, ok := t.Room.round.TimeRemaining(t.now())
			if !ok {
				remaining = 0
			}
			timer = time.NewTimer(remaining)
			expiry = timer.C
		}

		select {
		case <-tmb.Dying():
			stopTimer(timer)
			t.shutdown()
			return nil

		case <-expiry:
			now := t.now()
			if t.Room.Expired(now) {
				out := t.Room.EndRound()
				t.Room.ReapDisconnected()
				t.fanout(out)
				if err := t.Room.CheckInvariants(); err != nil {
					log.Error().Err(err).Str("room", t.Room.Name).Msg("invariant violation after round end")
					t.shutdown()
					return err
				}
			}

		case cmd := <-t.cmds:
			stopTimer(timer)
			now := t.now()
			reply, out, err := cmd.exec(t.Room, now)
			if out != nil {
				t.fanout(out)
			}
			if err == nil {
				if verr := t.Room.CheckInvariants(); verr != nil {
					log.Error().Err(verr).Str("room", t.Room.Name).Msg("invariant violation")
					cmd.done <- result{reply, err}
					t.shutdown()
					return verr
				}
			}
			cmd.done <- result{reply, err}
		}
	}
}

func stopTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}

// fanout delivers every Broadcast to all subscribers and every Private
// update to its addressee, applying the backpressure drop policy on a full
// queue. Canonical Broadcasts are the same value for every subscriber —
// per-role views are derived at the edge (protocol layer), not here.
func (t *Task) fanout(out *Outcome) {
	for _, b := range out.Broadcasts {
		u := Update{Kind: UpdateBroadcast, Broadcast: b}
		for name, sub := range t.subs {
			t.deliver(name, sub, u)
		}
	}
	for _, p := range out.Private {
		if sub, ok := t.subs[p.To]; ok {
			t.deliver(p.To, sub, p.Update)
		}
	}
}

func (t *Task) deliver(name market.Username, sub *Sub, u Update) {
	if sub.closed {
		return
	}
	select {
	case sub.Updates <- u:
	default:
		// Queue full: drop the subscriber rather than stall the room
		// (spec §5 Backpressure).
		log.Error().Str("room", t.Room.Name).Str("user", string(name)).Msg("subscriber queue full, dropping")
		t.Unsubscribe(name)
		t.Room.Disconnect(name)
	}
}

func (t *Task) shutdown() {
	for name := range t.subs {
		t.Unsubscribe(name)
	}
}
