package room

import (
	"math/rand"
	"testing"
	"time"

	"figgie/internal/market"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom() *Room {
	return New("test-room", DefaultConfig(), rand.New(rand.NewSource(7)), zerolog.Nop())
}

func seatFour(t *testing.T, r *Room, now time.Time) []market.Username {
	t.Helper()
	players := []market.Username{"alice", "bob", "carol", "dave"}
	for _, p := range players {
		_, err := r.Login(p)
		require.NoError(t, err)
		_, _, err = r.StartPlaying(p, SitAnywhere())
		require.NoError(t, err)
	}
	for _, p := range players[:3] {
		_, err := r.SetReady(p, true, now)
		require.NoError(t, err)
		require.False(t, r.InProgress())
	}
	out, err := r.SetReady(players[3], true, now)
	require.NoError(t, err)
	require.True(t, r.InProgress())

	var sawNewRound bool
	for _, b := range out.Broadcasts {
		if b.Kind == NewRound {
			sawNewRound = true
		}
	}
	assert.True(t, sawNewRound)
	assert.Len(t, out.Private, 4, "each seated player gets their dealt hand")
	return players
}

func TestRoom_LoginRejectsDuplicateAndEmptyName(t *testing.T) {
	r := newTestRoom()
	_, err := r.Login("alice")
	require.NoError(t, err)

	_, err = r.Login("alice")
	assert.ErrorIs(t, err, ErrAlreadyLoggedIn)

	_, err = r.Login("")
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestRoom_StartPlayingSeatOccupied(t *testing.T) {
	r := newTestRoom()
	_, _ = r.Login("alice")
	_, _ = r.Login("bob")

	seat, _, err := r.StartPlaying("alice", SitIn(market.North))
	require.NoError(t, err)
	assert.Equal(t, market.North, seat)

	_, _, err = r.StartPlaying("bob", SitIn(market.North))
	assert.ErrorIs(t, err, ErrSeatOccupied)
}

func TestRoom_AllReadyAutoStartsRound(t *testing.T) {
	r := newTestRoom()
	now := time.Now()
	players := seatFour(t, r, now)

	for _, p := range players {
		u, ok := r.User(p)
		require.True(t, ok)
		assert.Equal(t, Playing, u.Phase)
		assert.False(t, u.IsReady)
	}
}

func TestRoom_SetReadyFailsOnceRoundRunning(t *testing.T) {
	r := newTestRoom()
	now := time.Now()
	seatFour(t, r, now)

	_, err := r.SetReady("alice", false, now)
	assert.ErrorIs(t, err, ErrRoundAlreadyRunning)
}

func TestRoom_PlaceOrderRequiresPlaying(t *testing.T) {
	r := newTestRoom()
	_, err := r.Login("alice")
	require.NoError(t, err)

	_, err = r.PlaceOrder("alice", market.Order{Owner: "alice", Dir: market.Buy, Price: 5, Size: 1})
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestRoom_CrossBroadcastsExecReport(t *testing.T) {
	r := newTestRoom()
	now := time.Now()
	players := seatFour(t, r, now)
	buyer, seller := players[0], players[1]

	_, err := r.PlaceOrder(seller, market.Order{Owner: seller, Symbol: market.Spades, Dir: market.Sell, Price: 10, Size: 1, Id: 1})
	require.NoError(t, err)

	out, err := r.PlaceOrder(buyer, market.Order{Owner: buyer, Symbol: market.Spades, Dir: market.Buy, Price: 10, Size: 1, Id: 1})
	require.NoError(t, err)

	require.Len(t, out.Broadcasts, 1)
	assert.Equal(t, ExecReport, out.Broadcasts[0].Kind)
	assert.Len(t, out.Broadcasts[0].Exec.Fills, 1)
}

func TestRoom_EndRoundOrdersOutsThenRoundOverThenScores(t *testing.T) {
	r := newTestRoom()
	now := time.Now()
	players := seatFour(t, r, now)

	_, err := r.PlaceOrder(players[0], market.Order{Owner: players[0], Symbol: market.Hearts, Dir: market.Buy, Price: 3, Size: 1, Id: 1})
	require.NoError(t, err)

	out := r.EndRound()
	require.GreaterOrEqual(t, len(out.Broadcasts), 2)

	kinds := make([]BroadcastKind, len(out.Broadcasts))
	for i, b := range out.Broadcasts {
		kinds[i] = b.Kind
	}
	assert.Equal(t, RoundOver, kinds[len(kinds)-2])
	assert.Equal(t, Scores, kinds[len(kinds)-1])
	for _, k := range kinds[:len(kinds)-2] {
		assert.Equal(t, OutReport, k)
	}

	assert.False(t, r.InProgress())
	for _, p := range players {
		u, _ := r.User(p)
		assert.Equal(t, Waiting, u.Phase)
	}
}

func TestRoom_DisconnectKeepsSeatedPlayerMidRound(t *testing.T) {
	r := newTestRoom()
	now := time.Now()
	players := seatFour(t, r, now)

	r.Disconnect(players[0])
	u, ok := r.User(players[0])
	require.True(t, ok, "seated player survives disconnect mid-round")
	assert.False(t, u.Connected)

	r.ReapDisconnected()
	_, ok = r.User(players[0])
	assert.True(t, ok, "not reaped until a round ends")

	r.EndRound()
	r.ReapDisconnected()
	_, ok = r.User(players[0])
	assert.False(t, ok, "reaped once the round it was seated for ends")
}

func TestRoom_ChatRequiresLogin(t *testing.T) {
	r := newTestRoom()
	_, err := r.Chat("ghost", "hello")
	assert.ErrorIs(t, err, ErrLoginFirst)

	_, _ = r.Login("alice")
	out, err := r.Chat("alice", "gl hf")
	require.NoError(t, err)
	require.Len(t, out.Broadcasts, 1)
	assert.Equal(t, ChatMsg, out.Broadcasts[0].Kind)
}

func TestRoom_Empty(t *testing.T) {
	r := newTestRoom()
	assert.True(t, r.Empty())
	_, _ = r.Login("alice")
	assert.False(t, r.Empty())
	r.Disconnect("alice")
	assert.True(t, r.Empty())
}
