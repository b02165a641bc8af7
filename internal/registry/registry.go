// Package registry owns the only process-wide mutable state (spec §9): the
// set of rooms and the username registry used to reject duplicate logins.
// It is accessed only on Login and room creation/destruction, never on the
// per-room hot path (spec §5 "Shared resources").
package registry

import (
	"math/rand"
	"sync"
	"time"

	"figgie/internal/market"
	"figgie/internal/room"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

// Entry bundles a running room with its Task and supervising Tomb.
type Entry struct {
	ID   string
	Room *room.Room
	Task *room.Task
	tomb *tomb.Tomb
}

// Registry is a coarse-locked map of room id -> Entry, guarded by a single
// mutex since it is only ever touched on Login/create/destroy, not on the
// hot path (spec §5).
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Entry
	names map[market.Username]string // username -> room id it's logged into
	cfg   room.Config
	log   zerolog.Logger
	clock func() time.Time
	rng   *rand.Rand
}

// New creates an empty registry. cfg is applied to every room it creates;
// rng seeds each room's deal, and must only be touched while mu is held
// since *rand.Rand is not safe for concurrent use.
func New(cfg room.Config, log zerolog.Logger, rng *rand.Rand) *Registry {
	return &Registry{
		rooms: make(map[string]*Entry),
		names: make(map[market.Username]string),
		cfg:   cfg,
		log:   log,
		clock: time.Now,
		rng:   rng,
	}
}

// Login reserves name process-wide (spec's username is unique across the
// whole server, not just one room) and then submits the room's own Login
// command, subscribing the caller's stream from inside that same command
// so it cannot miss the PlayerJoined broadcast the command itself emits.
// On any failure the reservation is released and the returned Sub is nil.
func (reg *Registry) Login(e *Entry, name market.Username) (*room.Sub, error) {
	reg.mu.Lock()
	if _, taken := reg.names[name]; taken {
		reg.mu.Unlock()
		return nil, room.ErrAlreadyLoggedIn
	}
	reg.names[name] = e.ID
	reg.mu.Unlock()

	reply, err := e.Task.Submit(func(r *room.Room, now time.Time) (any, *room.Outcome, error) {
		out, err := r.Login(name)
		if err != nil {
			return nil, nil, err
		}
		return e.Task.Subscribe(name), out, nil
	})
	if err != nil {
		reg.mu.Lock()
		delete(reg.names, name)
		reg.mu.Unlock()
		return nil, err
	}
	return reply.(*room.Sub), nil
}

// Logout releases name's process-wide reservation; call it alongside
// Room.Disconnect/removeUser on connection loss.
func (reg *Registry) Logout(name market.Username) {
	reg.mu.Lock()
	delete(reg.names, name)
	reg.mu.Unlock()
}

// Get returns the named room, if it exists.
func (reg *Registry) Get(id string) (*Entry, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.rooms[id]
	return e, ok
}

// GetOrCreate returns the named room, creating and starting it (in its own
// supervised goroutine) if it does not yet exist.
func (reg *Registry) GetOrCreate(id string) *Entry {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if e, ok := reg.rooms[id]; ok {
		return e
	}
	return reg.createLocked(id)
}

// AutoJoin returns the first non-full room (fewer than four seated players,
// not currently playing a round) or creates a fresh one if none qualify,
// matching the CLI's auto-join room choice (spec §6).
func (reg *Registry) AutoJoin() *Entry {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, e := range reg.rooms {
		seated := 0
		for _, u := range e.Room.Users() {
			if u.Seated {
				seated++
			}
		}
		if !e.Room.InProgress() && seated < 4 {
			return e
		}
	}
	return reg.createLocked(uuid.NewString())
}

// createLocked must run with mu held: it draws a fresh, independent seed
// from the shared rng (itself not safe for concurrent use) and hands the
// new room its own *rand.Rand, since each room's Task runs in its own
// goroutine and would otherwise race on a shared source.
func (reg *Registry) createLocked(id string) *Entry {
	roomRng := rand.New(rand.NewSource(reg.rng.Int63()))
	r := room.New(id, reg.cfg, roomRng, reg.log)
	task := room.NewTask(r, reg.clock)
	t := new(tomb.Tomb)
	t.Go(func() error { return task.Run(t) })

	e := &Entry{ID: id, Room: r, Task: task, tomb: t}
	reg.rooms[id] = e
	return e
}

// Remove tears down an empty room's task and drops it from the registry.
// Call once the room reports Empty() after EndRound/ReapDisconnected.
func (reg *Registry) Remove(id string) {
	reg.mu.Lock()
	e, ok := reg.rooms[id]
	if ok {
		delete(reg.rooms, id)
	}
	reg.mu.Unlock()

	if ok {
		e.tomb.Kill(nil)
		_ = e.tomb.Wait()
	}
}

// ReapIdle removes every room whose task reports Empty(), used by a
// background sweep so abandoned rooms don't leak goroutines (spec §6
// "idle-room reaping").
func (reg *Registry) ReapIdle() {
	reg.mu.Lock()
	var dead []*Entry
	for id, e := range reg.rooms {
		if e.Room.Empty() {
			dead = append(dead, e)
			delete(reg.rooms, id)
		}
	}
	reg.mu.Unlock()

	for _, e := range dead {
		e.tomb.Kill(nil)
		_ = e.tomb.Wait()
	}
}
