package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyBoard(t *testing.T) *Board {
	t.Helper()
	b, err := NewBoard(DefaultWidth, DefaultHeight, DefaultHeight)
	require.NoError(t, err)
	return b
}

func TestSpawnAboveVisibleArea(t *testing.T) {
	b := emptyBoard(t)
	rs := NewSRS()
	for _, pt := range AllPieceTypes {
		p := rs.Spawn(pt, b)
		assert.Equal(t, 0, p.R)
		assert.Equal(t, 3, p.X)
		assert.Equal(t, 18, p.Y)
		assert.False(t, b.TestCollision(p), "piece %s", pt)
		for _, c := range p.Cells() {
			assert.Less(t, c.Y, b.Buffer(), "piece %s spawns hidden", pt)
		}
	}
}

func TestShapesHaveFourMinos(t *testing.T) {
	for pt, states := range srsShapes {
		for r, minos := range states {
			assert.Len(t, minos, 4, "%s state %d", pt, r)
		}
	}
}

func TestTurnApply(t *testing.T) {
	assert.Equal(t, 1, TurnCW.Apply(0))
	assert.Equal(t, 3, TurnCCW.Apply(0))
	assert.Equal(t, 0, TurnCCW.Apply(1))
	assert.Equal(t, 1, Turn180.Apply(3))
}

func TestTryRotateInPlace(t *testing.T) {
	b := emptyBoard(t)
	rs := NewSRS()
	p := rs.Spawn(PieceT, b)

	r, ok := rs.TryRotate(p, b, TurnCW)
	require.True(t, ok)
	assert.Equal(t, 1, r.Piece.R)
	assert.Equal(t, Offset{}, r.Kick)
	assert.Equal(t, 0, r.Test)
	assert.Equal(t, p.X, r.Piece.X)
	assert.Equal(t, p.Y, r.Piece.Y)
}

func TestTryRotateWallKick(t *testing.T) {
	b := emptyBoard(t)
	rs := NewSRS()
	p := Piece{Type: PieceT, X: -1, Y: 30, R: 1, Minos: srsShapes[PieceT][1]}
	require.False(t, b.TestCollision(p))

	r, ok := rs.TryRotate(p, b, TurnCW)
	require.True(t, ok)
	assert.Equal(t, 2, r.Piece.R)
	assert.Equal(t, Offset{X: 1}, r.Kick)
	assert.Equal(t, 1, r.Test)
	assert.Equal(t, 0, r.Piece.X)
	assert.False(t, b.TestCollision(r.Piece))
}

func TestTryRotateFailsWithoutKicks(t *testing.T) {
	b := emptyBoard(t)
	p := Piece{Type: PieceT, X: -1, Y: 30, R: 1, Minos: srsShapes[PieceT][1]}

	_, ok := NewNoKicks().TryRotate(p, b, TurnCW)
	assert.False(t, ok)
}

func TestHalfTurnKicksOnlyInTetrio(t *testing.T) {
	b := emptyBoard(t)
	// a T pointing up, resting on a floor; turning it over in place would
	// push its nose into the floor
	p := Piece{Type: PieceT, X: 3, Y: 37, R: 0, Minos: srsShapes[PieceT][0]}
	fillRow(b, 39, CellGarbage)
	b.Set(0, 39, CellEmpty)
	require.False(t, b.TestCollision(p))

	_, ok := NewSRS().TryRotate(p, b, Turn180)
	assert.False(t, ok)

	r, ok := NewTetrioSRS().TryRotate(p, b, Turn180)
	require.True(t, ok)
	assert.Equal(t, 2, r.Piece.R)
	assert.False(t, b.TestCollision(r.Piece))
}

func TestClassifyTSpin(t *testing.T) {
	rs := NewSRS()
	// T pointing down: the flat side faces up, so the top corners are the
	// back and the bottom corners the front.
	p := Piece{Type: PieceT, X: 3, Y: 30, R: 2, Minos: srsShapes[PieceT][2]}

	for _, tc := range []struct {
		name    string
		corners []Mino
		kick    Offset
		want    SpinKind
	}{
		{"two front one back", []Mino{{0, 2}, {2, 2}, {0, 0}}, Offset{}, SpinFull},
		{"one front two back", []Mino{{2, 2}, {0, 0}, {2, 0}}, Offset{}, SpinPartial},
		{"one front two back far kick", []Mino{{2, 2}, {0, 0}, {2, 0}}, Offset{X: -1, Y: 2}, SpinFull},
		{"two front only", []Mino{{0, 2}, {2, 2}}, Offset{}, SpinNone},
		{"open", nil, Offset{}, SpinNone},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := emptyBoard(t)
			for _, c := range tc.corners {
				b.Set(p.X+c.X, p.Y+c.Y, CellGarbage)
			}
			require.False(t, b.TestCollision(p))
			assert.Equal(t, tc.want, rs.ClassifySpin(Rotated{Piece: p, Kick: tc.kick}, b))
		})
	}
}

func TestClassifyTSpinWallCountsAsCorner(t *testing.T) {
	b := emptyBoard(t)
	// pointing left against the right wall: the wall fills both back corners
	p := Piece{Type: PieceT, X: 8, Y: 30, R: 3, Minos: srsShapes[PieceT][3]}
	require.False(t, b.TestCollision(p))
	b.Set(8, 30, CellGarbage)

	assert.Equal(t, SpinPartial, NewSRS().ClassifySpin(Rotated{Piece: p}, b))
}

func TestImmobileSpinsOnlyInTetrio(t *testing.T) {
	b := emptyBoard(t)
	p := Piece{Type: PieceS, X: 0, Y: 37, R: 0, Minos: srsShapes[PieceS][0]}
	// box the S in on the floor: cells around it, leaving its own shape open
	for y := 36; y < 40; y++ {
		fillRow(b, y, CellGarbage)
	}
	for _, c := range p.Cells() {
		b.Set(c.X, c.Y, CellEmpty)
	}
	require.False(t, b.TestCollision(p))

	assert.Equal(t, SpinPartial, NewTetrioSRS().ClassifySpin(Rotated{Piece: p}, b))
	assert.Equal(t, SpinNone, NewSRS().ClassifySpin(Rotated{Piece: p}, b))

	o := Piece{Type: PieceO, X: 0, Y: 37, Minos: srsShapes[PieceO][0]}
	assert.Equal(t, SpinNone, NewTetrioSRS().ClassifySpin(Rotated{Piece: o}, b))
}
