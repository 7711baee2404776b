package tui

import (
	"encoding/json"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hersh/tetriscore/internal/game"
	"github.com/hersh/tetriscore/internal/netclient"
	"github.com/hersh/tetriscore/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func serverMsg(t *testing.T, typ protocol.MessageType, payload any) netclient.ServerMsg {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return netclient.ServerMsg{Type: typ, Raw: raw}
}

func singlePlayer(t *testing.T) Model {
	t.Helper()
	settings := DefaultSettings()
	settings.Game.Seed = 42
	m := NewModel("ann", nil, settings)
	require.Equal(t, ScreenWelcome, m.Screen())
	m = update(t, m, key("1"))
	require.Equal(t, ScreenPlaying, m.Screen())
	require.NotNil(t, m.Game())
	return m
}

func TestMoveForKey(t *testing.T) {
	cases := map[string]game.Move{
		"left":  game.Left(),
		"l":     game.Right(),
		"down":  game.SoftDrop(1),
		"up":    game.RotateCW(),
		"s":     game.RotateCCW(),
		"a":     game.Rotate180(),
		" ":     game.HardDrop(),
		"z":     game.Swap(),
		"home":  game.Drag(-wallDrag),
		"right": game.Right(),
	}
	for k, want := range cases {
		t.Run(k, func(t *testing.T) {
			got, ok := MoveForKey(k)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	_, ok := MoveForKey("?")
	assert.False(t, ok)
}

func TestSinglePlayerUsesSeed(t *testing.T) {
	m := singlePlayer(t)
	assert.Equal(t, int64(42), m.Game().Seed())
	assert.Equal(t, "modern", m.Game().Engine().Name)
}

func TestKeysDriveTheGame(t *testing.T) {
	m := singlePlayer(t)
	before, _ := m.Game().Piece()

	m = update(t, m, key("left"))
	after, _ := m.Game().Piece()
	assert.Equal(t, before.X-1, after.X)

	m = update(t, m, key(" "))
	assert.Equal(t, 1, m.Game().Pieces())
}

func TestPauseToggles(t *testing.T) {
	m := singlePlayer(t)
	m = update(t, m, key("left"))
	m = update(t, m, key("p"))
	assert.Equal(t, game.StatusPaused, m.Game().Status())
	m = update(t, m, key("p"))
	assert.Equal(t, game.StatusPlaying, m.Game().Status())
}

func TestTicksAdvanceTheClock(t *testing.T) {
	m := singlePlayer(t)
	start := time.Unix(100, 0)

	m = update(t, m, GameTickMsg{Gen: m.gen, At: start})
	m = update(t, m, GameTickMsg{Gen: m.gen, At: start.Add(330 * time.Millisecond)})
	// 20 whole steps of 16ms, with 10ms carried to the next tick
	assert.Equal(t, 320*time.Millisecond, m.Game().Elapsed())

	m = update(t, m, GameTickMsg{Gen: m.gen, At: start.Add(336 * time.Millisecond)})
	assert.Equal(t, 336*time.Millisecond, m.Game().Elapsed())

	// Ticks from an older game are ignored.
	m = update(t, m, GameTickMsg{Gen: m.gen - 1, At: start.Add(time.Hour)})
	assert.Equal(t, 336*time.Millisecond, m.Game().Elapsed())
}

func TestJitteredClockRecordsOneTickRun(t *testing.T) {
	m := singlePlayer(t)
	at := time.Unix(100, 0)
	m = update(t, m, GameTickMsg{Gen: m.gen, At: at})

	var wall time.Duration
	for i := range 600 {
		d := 16*time.Millisecond + time.Duration(i%7-3)*time.Millisecond/2
		at = at.Add(d)
		wall += d
		m = update(t, m, GameTickMsg{Gen: m.gen, At: at})
	}

	log := m.rec.Log()
	require.Len(t, log.Entries, 1)
	assert.Equal(t, int(wall/(16*time.Millisecond)), log.Calls())
	assert.Equal(t, wall/(16*time.Millisecond)*(16*time.Millisecond), m.Game().Elapsed())
}

func TestSinglePlayerTopOut(t *testing.T) {
	m := singlePlayer(t)
	for i := 0; i < 100 && m.Screen() == ScreenPlaying; i++ {
		m = update(t, m, key(" "))
	}
	require.Equal(t, ScreenGameOver, m.Screen())
	assert.Equal(t, game.StatusGameOver, m.Game().Status())
	assert.Contains(t, m.View(), "GAME OVER")

	m = update(t, m, key("enter"))
	assert.Equal(t, ScreenWelcome, m.Screen())
	assert.Nil(t, m.Game())
}

func TestServerStartsVersusGame(t *testing.T) {
	m := NewModel("ann", nil, DefaultSettings())
	m = update(t, m, netclient.ConnectedMsg{PlayerID: "p1"})
	assert.Equal(t, ScreenWelcome, m.Screen())

	m = update(t, m, serverMsg(t, protocol.MsgCountdown, protocol.CountdownPayload{Value: 2}))
	assert.Equal(t, ScreenCountdown, m.Screen())
	assert.Contains(t, m.View(), "2")

	cfg := game.DefaultConfig()
	cfg.Seed = 9
	m = update(t, m, serverMsg(t, protocol.MsgGameStart, protocol.GameStartPayload{
		Preset: "tetrio", Config: cfg, Players: []string{"p1", "p2"},
	}))
	require.Equal(t, ScreenPlaying, m.Screen())
	assert.Equal(t, int64(9), m.Game().Seed())
	assert.Equal(t, "tetrio", m.Game().Engine().Name)

	m = update(t, m, serverMsg(t, protocol.MsgReceiveGarbage, protocol.ReceiveGarbagePayload{Lines: 3, AttackerID: "p2"}))
	assert.Equal(t, 3, m.Game().PendingGarbage())

	m = update(t, m, serverMsg(t, protocol.MsgOpponentUpdate, protocol.OpponentUpdatePayload{
		Opponents: []protocol.OpponentState{{PlayerID: "p2", PlayerName: "bo", Alive: true, Width: 10, Board: make([]int, 200)}},
	}))
	assert.Contains(t, m.View(), "bo")

	m = update(t, m, serverMsg(t, protocol.MsgMatchOver, protocol.MatchOverPayload{WinnerID: "p1", WinnerName: "ann", YourRank: 1}))
	assert.Equal(t, ScreenGameOver, m.Screen())
	assert.Contains(t, m.View(), "WINNER")

	m = update(t, m, key("enter"))
	assert.Equal(t, ScreenLobby, m.Screen())
}

func TestRenderPieceCropsToMinos(t *testing.T) {
	rot := game.NewSRS()
	assert.Equal(t, "Empty", RenderPiece(rot, 0, false))
	assert.NotContains(t, RenderPiece(rot, game.PieceO, true), "\n\n")
}
