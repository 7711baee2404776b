package player

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatsAreReused(t *testing.T) {
	l := NewLobby()
	a := l.AddPlayer("a", "Ann")
	b := l.AddPlayer("b", "Bo")
	assert.Equal(t, uint32(1), a.Seat)
	assert.Equal(t, uint32(2), b.Seat)

	l.RemovePlayer("a")
	c := l.AddPlayer("c", "Cy")
	assert.Equal(t, uint32(1), c.Seat)

	got, ok := l.BySeat(1)
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)
	assert.Equal(t, 2, l.Count())
}

func TestAddPlayerTwiceKeepsSeat(t *testing.T) {
	l := NewLobby()
	first := l.AddPlayer("a", "Ann")
	again := l.AddPlayer("a", "Other")
	assert.Same(t, first, again)
	assert.Equal(t, 1, l.Count())
}

func TestReadyAndReset(t *testing.T) {
	l := NewLobby()
	l.AddPlayer("a", "Ann")
	l.AddPlayer("b", "Bo")
	l.SetPlayerReady("a", true)
	l.SetPlayerReady("missing", true)
	assert.Equal(t, 1, l.CountReady())

	rank, ok := l.Eliminate("b")
	require.True(t, ok)
	assert.Equal(t, 2, rank)
	l.IncrementKills("a")

	l.Reset()
	assert.Equal(t, 0, l.CountReady())
	assert.Equal(t, 2, l.CountAlive())
	for _, p := range l.GetAllPlayers() {
		assert.Zero(t, p.Kills)
		assert.Zero(t, p.Rank)
	}
}

func TestEliminateRanksFromTheBottom(t *testing.T) {
	l := NewLobby()
	for _, id := range []string{"a", "b", "c"} {
		l.AddPlayer(id, id)
	}

	rank, ok := l.Eliminate("c")
	require.True(t, ok)
	assert.Equal(t, 3, rank)

	_, ok = l.Eliminate("c")
	assert.False(t, ok, "already out")

	rank, _ = l.Eliminate("a")
	assert.Equal(t, 2, rank)

	alive := l.GetAlivePlayers()
	require.Len(t, alive, 1)
	assert.Equal(t, "b", alive[0].ID)
}

func TestRandomAliveTarget(t *testing.T) {
	l := NewLobby()
	for _, id := range []string{"a", "b", "c", "d"} {
		l.AddPlayer(id, id)
	}
	l.Eliminate("d")

	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[string]bool{}
	for range 200 {
		target := l.RandomAliveTarget("a", rng)
		require.NotEqual(t, "a", target)
		require.NotEqual(t, "d", target)
		seen[target] = true
	}
	assert.Equal(t, map[string]bool{"b": true, "c": true}, seen)

	solo := NewLobby()
	solo.AddPlayer("a", "a")
	assert.Empty(t, solo.RandomAliveTarget("a", rng))
}

func TestPlayersOrderedBySeat(t *testing.T) {
	l := NewLobby()
	for _, id := range []string{"x", "y", "z"} {
		l.AddPlayer(id, id)
	}
	var seats []uint32
	for _, p := range l.GetAllPlayers() {
		seats = append(seats, p.Seat)
	}
	assert.Equal(t, []uint32{1, 2, 3}, seats)
}
