package replay_test

import (
	"testing"
	"time"

	"github.com/hersh/tetriscore/internal/game"
	"github.com/hersh/tetriscore/internal/protocol"
	"github.com/hersh/tetriscore/internal/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, engine *game.Engine) *replay.Recorder {
	t.Helper()
	cfg := game.DefaultConfig()
	cfg.Seed = 2024
	rec, err := replay.NewRecorder(engine, cfg)
	require.NoError(t, err)

	moves := []game.Move{
		game.Left(), game.RotateCW(), game.HardDrop(),
		game.Drag(4), game.SoftDrop(3), game.Swap(), game.HardDrop(),
		game.Rotate180(), game.Drag(-5), game.HardDrop(),
	}
	for round := 0; round < 6; round++ {
		for i, m := range moves {
			_, err := rec.Push(m)
			require.NoError(t, err)
			rec.Tick(time.Duration(i*37) * time.Millisecond)
		}
		rec.ReceiveGarbage(round % 3)
		rec.Pause(true)
		rec.Tick(time.Second)
		rec.Pause(false)
	}
	return rec
}

func TestPlayReproducesRecordedGame(t *testing.T) {
	engine := game.Tetrio()
	rec := record(t, engine)

	got, err := replay.Play(engine, rec.Log())
	require.NoError(t, err)
	assert.Equal(t, rec.Game().State(), got.State())
	assert.Equal(t, replay.Summarize(rec.Game()), replay.Summarize(got))
}

func TestLogSurvivesJSON(t *testing.T) {
	rec := record(t, game.Modern())

	data, err := rec.Log().Marshal()
	require.NoError(t, err)
	back, err := replay.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, rec.Log(), back)

	got, err := replay.PlayPreset(back)
	require.NoError(t, err)
	assert.Equal(t, rec.Game().State(), got.State())
}

func TestRecorderSkipsRejectedMoves(t *testing.T) {
	rec, err := replay.NewRecorder(game.Modern(), game.DefaultConfig())
	require.NoError(t, err)

	_, err = rec.Push(game.SoftDrop(-1))
	assert.ErrorIs(t, err, game.ErrInvalidMove)
	assert.Empty(t, rec.Log().Entries)
}

func TestPlayRejectsCorruptLogs(t *testing.T) {
	l := replay.Log{Engine: "modern", Entries: []replay.Entry{{Kind: "teleport"}}}
	_, err := replay.Play(game.Modern(), l)
	assert.ErrorIs(t, err, replay.ErrCorruptLog)

	l = replay.Log{Engine: "modern", Entries: []replay.Entry{{Kind: replay.KindMove}}}
	_, err = replay.Play(game.Modern(), l)
	assert.ErrorIs(t, err, replay.ErrCorruptLog)

	_, err = replay.PlayPreset(replay.Log{Engine: "gameboy"})
	assert.ErrorIs(t, err, replay.ErrCorruptLog)

	_, err = replay.Unmarshal([]byte("{"))
	assert.ErrorIs(t, err, replay.ErrCorruptLog)
}

func TestTickRunsPackLongGames(t *testing.T) {
	engine := game.Modern()
	cfg := game.DefaultConfig()
	cfg.Seed = 7
	rec, err := replay.NewRecorder(engine, cfg)
	require.NoError(t, err)

	// Ten minutes of a 16ms clock with a piece placed every second.
	const ticks = 36000
	step := 16 * time.Millisecond
	for i := range ticks {
		rec.Tick(step)
		if i%60 == 59 {
			_, err := rec.Push(game.Drag(i/60%9 - 4))
			require.NoError(t, err)
			_, err = rec.Push(game.HardDrop())
			require.NoError(t, err)
		}
	}

	l := rec.Log()
	assert.Equal(t, ticks+2*(ticks/60), l.Calls())
	assert.Less(t, len(l.Entries), 3*(ticks/60)+1)

	data, err := protocol.Encode(protocol.MsgSubmitReplay, protocol.SubmitReplayPayload{Log: l})
	require.NoError(t, err)
	assert.Less(t, len(data), protocol.MaxMessageSize/10)

	got, err := replay.Play(engine, l)
	require.NoError(t, err)
	assert.Equal(t, rec.Game().State(), got.State())
}

func TestTickRunsKeepEachCall(t *testing.T) {
	rec, err := replay.NewRecorder(game.Modern(), game.DefaultConfig())
	require.NoError(t, err)
	rec.Tick(10 * time.Millisecond)
	rec.Tick(10 * time.Millisecond)
	rec.Tick(20 * time.Millisecond)

	l := rec.Log()
	require.Len(t, l.Entries, 2)
	assert.Equal(t, 1, l.Entries[0].Repeat)
	assert.Equal(t, 3, l.Calls())

	l.Entries[0].Repeat = -1
	_, err = replay.Play(game.Modern(), l)
	assert.ErrorIs(t, err, replay.ErrCorruptLog)
}
