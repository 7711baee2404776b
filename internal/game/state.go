package game

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidState is returned by Load for a SaveState that does not describe
// a reachable game.
var ErrInvalidState = errors.New("invalid save state")

// SaveState is everything needed to rebuild a game: the queue is restored
// from its seed and cursor, the rest is copied verbatim.
type SaveState struct {
	Engine  string       `json:"engine"`
	Config  Config       `json:"config"`
	Status  Status       `json:"status"`
	TopOut  TopOut       `json:"top_out"`
	Board   [][]Cell     `json:"board"`
	Piece   Piece        `json:"piece"`
	Active  bool         `json:"active"`
	Hold    PieceType    `json:"hold"`
	HoldUse bool         `json:"hold_used"`
	Gravity GravityState `json:"gravity"`
	Spin    SpinKind     `json:"spin"`

	QueueDrawn int `json:"queue_drawn"`

	Score   int           `json:"score"`
	Lines   int           `json:"lines"`
	Level   int           `json:"level"`
	Combo   int           `json:"combo"`
	B2B     int           `json:"b2b"`
	Pieces  int           `json:"pieces"`
	Pending int           `json:"pending"`
	Holes   []byte        `json:"holes"`
	Elapsed time.Duration `json:"elapsed"`
}

// State captures the game for later Load.
func (g *Game) State() SaveState {
	holes, err := g.holes.MarshalBinary()
	if err != nil {
		// PCG marshalling cannot fail
		panic(err)
	}
	return SaveState{
		Engine:     g.engine.Name,
		Config:     g.cfg,
		Status:     g.status,
		TopOut:     g.topOut,
		Board:      g.board.Clone().Cells,
		Piece:      clonePiece(g.piece),
		Active:     g.active,
		Hold:       g.hold,
		HoldUse:    g.holdUse,
		Gravity:    g.gravity,
		Spin:       g.spin,
		QueueDrawn: g.queue.Drawn(),
		Score:      g.score,
		Lines:      g.lines,
		Level:      g.level,
		Combo:      g.combo,
		B2B:        g.b2b,
		Pieces:     g.pieces,
		Pending:    g.pending,
		Holes:      holes,
		Elapsed:    g.elapsed,
	}
}

// Load rebuilds a game from a SaveState. The engine must be the one the
// state was taken with, or one with the same rules.
func Load(engine *Engine, st SaveState) (*Game, error) {
	g, err := NewGame(engine, st.Config)
	if err != nil {
		return nil, err
	}
	if len(st.Board) != g.board.Height {
		return nil, fmt.Errorf("%w: board has %d rows, want %d", ErrInvalidState, len(st.Board), g.board.Height)
	}
	cells := make([][]Cell, len(st.Board))
	for y, row := range st.Board {
		if len(row) != g.board.Width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidState, y, len(row), g.board.Width)
		}
		cells[y] = append([]Cell(nil), row...)
	}
	g.board.Cells = cells

	if st.Active && g.board.TestCollision(st.Piece) {
		return nil, fmt.Errorf("%w: active piece %s overlaps the board", ErrInvalidState, st.Piece)
	}
	if st.QueueDrawn < 1 {
		return nil, fmt.Errorf("%w: queue cursor %d", ErrInvalidState, st.QueueDrawn)
	}
	if len(st.Holes) > 0 {
		if err := g.holes.UnmarshalBinary(st.Holes); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
	}

	// NewGame already drew the first piece.
	g.queue.Skip(st.QueueDrawn - g.queue.Drawn())

	g.status = st.Status
	g.topOut = st.TopOut
	g.piece = clonePiece(st.Piece)
	g.active = st.Active
	g.hold = st.Hold
	g.holdUse = st.HoldUse
	g.gravity = st.Gravity
	g.spin = st.Spin
	g.score = st.Score
	g.lines = st.Lines
	g.level = st.Level
	g.combo = st.Combo
	g.b2b = st.B2B
	g.pieces = st.Pieces
	g.pending = st.Pending
	g.elapsed = st.Elapsed
	return g, nil
}

func clonePiece(p Piece) Piece {
	p.Minos = append([]Mino(nil), p.Minos...)
	return p
}
