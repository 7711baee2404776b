package game

import (
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, engine *Engine, pieces ...PieceType) *Game {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 99
	cfg.InitialPieces = pieces
	g, err := NewGame(engine, cfg)
	require.NoError(t, err)
	return g
}

func push(t *testing.T, g *Game, m Move) Outcome {
	t.Helper()
	out, err := g.Push(m)
	require.NoError(t, err)
	return out
}

func TestNewGameConfigErrors(t *testing.T) {
	_, err := NewGame(&Engine{Gravity: NewMarathonGravity()}, DefaultConfig())
	assert.ErrorIs(t, err, ErrMissingComponent)

	_, err = NewGame(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrMissingComponent)

	cfg := DefaultConfig()
	cfg.Width = 2
	_, err = NewGame(Modern(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, ErrInvalidBoard)

	cfg = DefaultConfig()
	cfg.Height = -1
	_, err = NewGame(Modern(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.InitialPieces = []PieceType{PieceType(12)}
	_, err = NewGame(Modern(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Height, cfg.Buffer = 200, 200
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	_, err = NewGame(Modern(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Width = 1 << 20
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	assert.NoError(t, DefaultConfig().Validate())
}

func TestSameRulesIgnoresSeed(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	b.Seed = 99
	assert.True(t, a.SameRules(b))

	b.InitialPieces = []PieceType{PieceI}
	assert.False(t, a.SameRules(b))

	b = DefaultConfig()
	b.InitialLevel = 1000
	assert.False(t, a.SameRules(b))

	zero, err := Config{InitialLevel: 1}.Normalize()
	require.NoError(t, err)
	assert.True(t, a.SameRules(zero))
}

func TestPresetStartLevel(t *testing.T) {
	g, err := NewGame(Classic(), Classic().DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, g.Level())

	g, err = NewGame(Modern(), Modern().DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Level())
}

func TestZeroConfigTakesDefaults(t *testing.T) {
	g, err := NewGame(Modern(), Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, g.Config().Width)
	assert.Equal(t, DefaultHeight, g.Config().Height)
	assert.Equal(t, DefaultHeight, g.Config().Buffer)
	assert.Len(t, g.Preview(), 5)
	assert.Equal(t, 1, g.Level())
	assert.Equal(t, StatusReady, g.Status())
}

func TestPushRejectsMalformedMoves(t *testing.T) {
	g := newTestGame(t, Modern())
	for _, m := range []Move{{}, {Kind: 42}, SoftDrop(-1)} {
		_, err := g.Push(m)
		assert.ErrorIs(t, err, ErrInvalidMove, "move %s", m)
	}
	assert.Equal(t, StatusReady, g.Status())
}

func TestFirstPushStartsGame(t *testing.T) {
	g := newTestGame(t, Modern(), PieceT)
	out := push(t, g, Left())
	assert.Equal(t, StatusPlaying, g.Status())
	assert.Equal(t, Outcome{Applied: true, DX: -1}, out)
}

func TestShiftClampsAtWall(t *testing.T) {
	g := newTestGame(t, Modern(), PieceT)
	out := push(t, g, Drag(-20))
	assert.Equal(t, -3, out.DX)
	p, _ := g.Piece()
	assert.Equal(t, 0, p.X)

	assert.Equal(t, Outcome{}, push(t, g, Left()))
	out = push(t, g, Drag(20))
	assert.Equal(t, 7, out.DX)
}

func TestTickAppliesGravity(t *testing.T) {
	g := newTestGame(t, Modern(), PieceT)
	assert.Equal(t, Outcome{}, g.Tick(999*time.Millisecond))
	assert.Equal(t, StatusPlaying, g.Status())
	assert.Equal(t, Outcome{Applied: true, DY: 1}, g.Tick(time.Millisecond))
	assert.Equal(t, time.Second, g.Elapsed())
}

func TestPauseStopsPushAndTick(t *testing.T) {
	g := newTestGame(t, Modern(), PieceT)
	g.Start()
	g.Pause(true)
	assert.Equal(t, StatusPaused, g.Status())

	assert.Equal(t, Outcome{}, push(t, g, Left()))
	assert.Equal(t, Outcome{}, g.Tick(10*time.Second))
	p, _ := g.Piece()
	assert.Equal(t, 18, p.Y)

	g.TogglePause()
	assert.Equal(t, StatusPlaying, g.Status())
}

func TestHardDropOntoStack(t *testing.T) {
	g := newTestGame(t, Modern(), PieceO)
	for y := 37; y < 40; y++ {
		fillRow(g.board, y, CellGarbage)
		g.board.Set(9, y, CellEmpty)
	}

	out := push(t, g, HardDrop())
	require.NotNil(t, out.Lock)
	assert.Equal(t, 17, out.DY)
	assert.Equal(t, 0, out.Lock.Lines)
	assert.Equal(t, 34, g.Score())

	for _, c := range []Mino{{4, 35}, {5, 35}, {4, 36}, {5, 36}} {
		assert.Equal(t, CellO, g.board.Get(c.X, c.Y))
	}
	assert.Equal(t, CellGarbage, g.board.Get(4, 37))
	assert.Equal(t, 1, g.Pieces())
}

func TestSoftDropScoresAndKeepsPiece(t *testing.T) {
	g := newTestGame(t, Modern(), PieceO)
	out := push(t, g, SoftDrop(5))
	assert.Equal(t, Outcome{Applied: true, DY: 5}, out)
	assert.Equal(t, 5, g.Score())

	out = push(t, g, SoftDrop(100))
	assert.Equal(t, 15, out.DY)
	assert.Nil(t, out.Lock, "soft drop never locks by itself")
	assert.Equal(t, 0, g.Pieces())
}

func TestBlockOut(t *testing.T) {
	g := newTestGame(t, Modern(), PieceO, PieceT)
	for y := 21; y < 40; y++ {
		g.board.Set(4, y, CellGarbage)
		g.board.Set(5, y, CellGarbage)
	}

	out := push(t, g, HardDrop())
	require.NotNil(t, out.Lock)
	assert.Equal(t, BlockOut, out.Lock.TopOut)
	assert.Equal(t, StatusGameOver, g.Status())
	assert.Equal(t, BlockOut, g.TopOut())

	_, active := g.Piece()
	assert.False(t, active)
	board := g.Board()
	assert.Equal(t, CellO, board.Get(4, 19))
	assert.Equal(t, CellO, board.Get(5, 20))
	for x := 0; x < board.Width; x++ {
		assert.Equal(t, CellEmpty, board.Get(x, 18), "spawned piece must not touch the board")
	}

	assert.Equal(t, Outcome{}, push(t, g, Left()))
	assert.Equal(t, Outcome{}, g.Tick(time.Minute))
	assert.Equal(t, board, g.Board())

	g.ReceiveGarbage(3)
	assert.Equal(t, 0, g.PendingGarbage())
}

func TestLockOut(t *testing.T) {
	g := newTestGame(t, Modern(), PieceO)
	for y := 20; y < 40; y++ {
		g.board.Set(4, y, CellGarbage)
		g.board.Set(5, y, CellGarbage)
	}

	out := push(t, g, HardDrop())
	require.NotNil(t, out.Lock)
	assert.Equal(t, 0, out.DY)
	assert.Equal(t, LockOut, out.Lock.TopOut)
	assert.Equal(t, StatusGameOver, g.Status())
}

func TestSwapOncePerPiece(t *testing.T) {
	g := newTestGame(t, Modern(), PieceT, PieceI, PieceO)

	assert.True(t, push(t, g, Swap()).Applied)
	p, _ := g.Piece()
	assert.Equal(t, PieceI, p.Type)
	held, ok := g.Hold()
	assert.True(t, ok)
	assert.Equal(t, PieceT, held)
	assert.False(t, g.CanHold())

	assert.Equal(t, Outcome{}, push(t, g, Swap()))
	p, _ = g.Piece()
	assert.Equal(t, PieceI, p.Type)

	push(t, g, HardDrop())
	p, _ = g.Piece()
	assert.Equal(t, PieceO, p.Type)
	assert.True(t, push(t, g, Swap()).Applied)
	p, _ = g.Piece()
	assert.Equal(t, PieceT, p.Type)
	held, _ = g.Hold()
	assert.Equal(t, PieceO, held)
}

func TestUnlimitedHold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnlimitedHold = true
	cfg.InitialPieces = []PieceType{PieceT, PieceI}
	g, err := NewGame(Modern(), cfg)
	require.NoError(t, err)

	push(t, g, Swap())
	assert.True(t, push(t, g, Swap()).Applied)
	p, _ := g.Piece()
	assert.Equal(t, PieceT, p.Type)
}

func TestDisabledMovesAreNoOps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Disable180 = true
	cfg.DisableHardDrop = true
	cfg.DisableHold = true
	g, err := NewGame(Tetrio(), cfg)
	require.NoError(t, err)

	for _, m := range []Move{Rotate180(), HardDrop(), Swap()} {
		assert.Equal(t, Outcome{}, push(t, g, m), "move %s", m)
	}
	assert.Equal(t, 0, g.Pieces())
}

func TestLockResetCap(t *testing.T) {
	g := newTestGame(t, Modern(), PieceO)
	grav := g.Engine().Gravity.(*TimedGravity)

	push(t, g, SoftDrop(100))
	require.Nil(t, g.Tick(time.Millisecond).Lock)

	for i := 0; i < grav.MaxResets-1; i++ {
		require.True(t, push(t, g, RotateCW()).Applied)
		require.Nil(t, g.Tick(100*time.Millisecond).Lock, "rotation %d", i)
	}
	require.Nil(t, g.Tick(time.Millisecond).Lock)

	push(t, g, RotateCW())
	out := g.Tick(time.Millisecond)
	require.NotNil(t, out.Lock, "cap spent, the next resting tick locks")
	assert.Equal(t, CellO, g.board.Get(4, 39))
}

func TestLineClearScoring(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		g := newTestGame(t, Modern(), PieceI)
		fillRow(g.board, 39, CellGarbage)
		for x := 3; x <= 6; x++ {
			g.board.Set(x, 39, CellEmpty)
		}
		g.board.Set(0, 38, CellGarbage)

		out := push(t, g, HardDrop())
		require.NotNil(t, out.Lock)
		assert.Equal(t, []int{39}, out.Lock.Cleared)
		assert.Equal(t, 1, out.Lock.Combo)
		assert.False(t, out.Lock.PerfectClear)
		assert.Equal(t, 140, g.Score())
		assert.Equal(t, 1, g.Lines())
		assert.Equal(t, CellGarbage, g.board.Get(0, 39))
	})

	t.Run("perfect clear", func(t *testing.T) {
		g := newTestGame(t, Modern(), PieceI)
		fillRow(g.board, 39, CellGarbage)
		for x := 3; x <= 6; x++ {
			g.board.Set(x, 39, CellEmpty)
		}

		out := push(t, g, HardDrop())
		require.NotNil(t, out.Lock)
		assert.True(t, out.Lock.PerfectClear)
		assert.Equal(t, 840, g.Score())
		assert.Equal(t, 10, out.Lock.Sent)
		assert.True(t, g.board.IsEmpty())
	})
}

func TestComboResetsWithoutClear(t *testing.T) {
	g := newTestGame(t, Modern(), PieceI, PieceO)
	fillRow(g.board, 39, CellGarbage)
	for x := 3; x <= 6; x++ {
		g.board.Set(x, 39, CellEmpty)
	}
	g.board.Set(0, 38, CellGarbage)

	push(t, g, HardDrop())
	assert.Equal(t, 1, g.Combo())
	push(t, g, HardDrop())
	assert.Equal(t, 0, g.Combo())
}

func TestGarbageInjectedAfterLock(t *testing.T) {
	g := newTestGame(t, Modern(), PieceI)
	g.ReceiveGarbage(3)
	g.ReceiveGarbage(-2)
	assert.Equal(t, 3, g.PendingGarbage())

	out := push(t, g, HardDrop())
	require.NotNil(t, out.Lock)
	assert.Equal(t, 3, out.Lock.Received)
	assert.Equal(t, 0, g.PendingGarbage())

	hole := -1
	for y := 37; y < 40; y++ {
		empty := 0
		for x := 0; x < g.board.Width; x++ {
			if g.board.Get(x, y) == CellEmpty {
				empty++
				if hole < 0 {
					hole = x
				}
				assert.Equal(t, hole, x, "garbage rows share one hole")
			}
		}
		assert.Equal(t, 1, empty)
	}
	assert.Equal(t, CellI, g.board.Get(3, 36))
}

func TestAttackCancelsPendingGarbage(t *testing.T) {
	g := newTestGame(t, Modern(), PieceI)
	fillRow(g.board, 39, CellGarbage)
	for x := 3; x <= 6; x++ {
		g.board.Set(x, 39, CellEmpty)
	}
	g.ReceiveGarbage(4)

	out := push(t, g, HardDrop())
	require.NotNil(t, out.Lock)
	assert.Equal(t, 6, out.Lock.Sent)
	assert.Equal(t, 0, out.Lock.Received)
	assert.Equal(t, 0, g.PendingGarbage())
	assert.True(t, g.board.IsEmpty())
}

func TestPlayfieldOverlay(t *testing.T) {
	g := newTestGame(t, Modern(), PieceO)
	push(t, g, SoftDrop(5))
	assert.Equal(t, 38, g.GhostY())

	view := g.Playfield()
	require.Len(t, view, DefaultHeight)
	assert.Equal(t, CellO, view[3][4])
	assert.Equal(t, CellO, view[4][5])
	assert.Equal(t, CellGhost, view[18][4])
	assert.Equal(t, CellGhost, view[19][5])

	for _, row := range g.Snapshot() {
		for _, c := range row {
			assert.Equal(t, CellEmpty, c)
		}
	}
}

func TestResetRestartsSameSequence(t *testing.T) {
	g := newTestGame(t, Modern())
	first := g.Preview()
	push(t, g, HardDrop())
	push(t, g, HardDrop())
	require.NotZero(t, g.Score())

	g.Reset()
	assert.Equal(t, StatusReady, g.Status())
	assert.Zero(t, g.Score())
	assert.Equal(t, first, g.Preview())
	assert.True(t, g.Board().IsEmpty())
}

// script drives a game with a pseudo random but reproducible mix of moves,
// ticks and incoming garbage.
func script(t *testing.T, g *Game, seed uint64, steps int) {
	t.Helper()
	moves := []Move{Left(), Right(), Drag(-3), Drag(4), RotateCW(), RotateCCW(), Rotate180(), SoftDrop(2), HardDrop(), Swap()}
	rng := rand.New(rand.NewPCG(seed, seed))
	for i := 0; i < steps; i++ {
		switch n := rng.IntN(14); {
		case n < len(moves):
			push(t, g, moves[n])
		case n == len(moves):
			g.ReceiveGarbage(rng.IntN(3))
		default:
			g.Tick(time.Duration(rng.IntN(400)) * time.Millisecond)
		}
		if p, ok := g.Piece(); ok {
			require.False(t, g.board.TestCollision(p), "step %d: %s overlaps the board", i, p)
		}
	}
}

func TestDeterministicAcrossSharedEngine(t *testing.T) {
	engine := Tetrio()
	a := newTestGame(t, engine)
	b := newTestGame(t, engine)

	script(t, a, 7, 600)
	script(t, b, 7, 600)

	assert.Equal(t, a.State(), b.State())
	assert.Equal(t, a.Playfield(), b.Playfield())
	assert.Equal(t, a.Score(), b.Score())
}

func TestStateRoundTrip(t *testing.T) {
	g := newTestGame(t, Modern())
	script(t, g, 3, 120)

	data, err := json.Marshal(g.State())
	require.NoError(t, err)
	var st SaveState
	require.NoError(t, json.Unmarshal(data, &st))

	loaded, err := Load(Modern(), st)
	require.NoError(t, err)
	assert.Equal(t, g.State(), loaded.State())

	script(t, g, 4, 200)
	script(t, loaded, 4, 200)
	assert.Equal(t, g.State(), loaded.State())
}

func TestLoadRejectsBrokenState(t *testing.T) {
	st := newTestGame(t, Modern()).State()

	short := st
	short.Board = st.Board[:10]
	_, err := Load(Modern(), short)
	assert.ErrorIs(t, err, ErrInvalidState)

	overlap := st
	overlap.Board = newTestGame(t, Modern()).State().Board
	for x := range overlap.Board[19] {
		overlap.Board[19][x] = CellGarbage
	}
	_, err = Load(Modern(), overlap)
	assert.ErrorIs(t, err, ErrInvalidState)
}
