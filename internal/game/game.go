package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// ErrInvalidConfig is returned for configurations a game cannot start from.
var ErrInvalidConfig = errors.New("invalid game config")

// Status is the lifecycle state of a game.
type Status int

const (
	StatusReady Status = iota
	StatusPlaying
	StatusPaused
	StatusGameOver
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusGameOver:
		return "game over"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// TopOut is the reason a game ended.
type TopOut int

const (
	TopOutNone TopOut = iota
	// BlockOut: a new piece spawned on top of the stack.
	BlockOut
	// LockOut: a piece locked entirely above the visible area.
	LockOut
	// GarbageOut: incoming garbage pushed blocks off the top of the board.
	GarbageOut
)

func (t TopOut) String() string {
	switch t {
	case BlockOut:
		return "block out"
	case LockOut:
		return "lock out"
	case GarbageOut:
		return "garbage out"
	}
	return "none"
}

// Config is fixed for the life of a game. Zero fields take defaults.
type Config struct {
	Width        int   `json:"width"`
	Height       int   `json:"height"`
	Buffer       int   `json:"buffer"`
	Seed         int64 `json:"seed"`
	InitialLevel int   `json:"initial_level"`
	PreviewSize  int   `json:"preview_size"`

	Disable180      bool `json:"disable_180,omitempty"`
	DisableHardDrop bool `json:"disable_hard_drop,omitempty"`
	DisableHold     bool `json:"disable_hold,omitempty"`
	// UnlimitedHold allows more than one swap per piece.
	UnlimitedHold bool `json:"unlimited_hold,omitempty"`

	InitialPieces []PieceType `json:"initial_pieces,omitempty"`
}

// DefaultConfig returns a standard 10x20 game with a buffer as tall as the
// visible area.
func DefaultConfig() Config {
	return Config{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		Buffer:       DefaultHeight,
		InitialLevel: 1,
		PreviewSize:  5,
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.Width < 0 || c.Height < 0 || c.Buffer < 0 || c.PreviewSize < 0 || c.InitialLevel < 0 {
		return c, fmt.Errorf("%w: negative value in %+v", ErrInvalidConfig, c)
	}
	def := DefaultConfig()
	if c.Width == 0 {
		c.Width = def.Width
	}
	if c.Height == 0 {
		c.Height = def.Height
	}
	if c.Buffer == 0 {
		c.Buffer = c.Height
	}
	if c.PreviewSize == 0 {
		c.PreviewSize = def.PreviewSize
	}
	if c.Width > MaxWidth || c.Height+c.Buffer > MaxRows {
		return c, fmt.Errorf("%w: board %dx%d with %d buffer rows exceeds %dx%d",
			ErrInvalidConfig, c.Width, c.Height, c.Buffer, MaxWidth, MaxRows)
	}
	for _, t := range c.InitialPieces {
		if !t.Valid() {
			return c, fmt.Errorf("%w: initial piece %s", ErrInvalidConfig, t)
		}
	}
	return c, nil
}

// Validate reports whether a game could be built from c.
func (c Config) Validate() error {
	_, err := c.withDefaults()
	return err
}

// Normalize fills zero fields with their defaults, as NewGame does.
func (c Config) Normalize() (Config, error) {
	return c.withDefaults()
}

// SameRules reports whether two normalized configs describe the same game
// apart from the seed.
func (c Config) SameRules(o Config) bool {
	return c.Width == o.Width &&
		c.Height == o.Height &&
		c.Buffer == o.Buffer &&
		c.InitialLevel == o.InitialLevel &&
		c.PreviewSize == o.PreviewSize &&
		c.Disable180 == o.Disable180 &&
		c.DisableHardDrop == o.DisableHardDrop &&
		c.DisableHold == o.DisableHold &&
		c.UnlimitedHold == o.UnlimitedHold &&
		slices.Equal(c.InitialPieces, o.InitialPieces)
}

// LockEvent describes everything that happened when a piece locked.
type LockEvent struct {
	Piece        Piece
	Cleared      []int
	Lines        int
	Spin         SpinKind
	Combo        int
	BackToBack   bool
	PerfectClear bool
	Delta        ScoreDelta
	// Sent is the attack left after cancelling pending garbage.
	Sent     int
	Received int
	TopOut   TopOut
}

// Outcome is the result of a Push or Tick. The zero Outcome means nothing
// changed.
type Outcome struct {
	Applied    bool
	DX, DY, DR int
	Lock       *LockEvent
}

// Game runs one player's game on top of a shared Engine. It is not safe for
// concurrent use.
type Game struct {
	engine *Engine
	cfg    Config

	board   *Board
	queue   *Queue
	piece   Piece
	active  bool
	hold    PieceType
	holdUse bool
	gravity GravityState
	spin    SpinKind

	status Status
	topOut TopOut

	score  int
	lines  int
	level  int
	combo  int
	b2b    int
	pieces int

	pending int
	holes   rand.PCG

	elapsed time.Duration
}

// NewGame builds a game in the Ready state. It fails on a missing engine
// part or a board that cannot be built.
func NewGame(engine *Engine, cfg Config) (*Game, error) {
	if err := engine.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	g := &Game{engine: engine, cfg: cfg}
	if err := g.init(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) init() error {
	board, err := NewBoard(g.cfg.Width, g.cfg.Height, g.cfg.Buffer)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	g.board = board
	g.queue = NewQueue(g.engine.Randomizer, g.cfg.Seed, g.cfg.InitialPieces...)
	g.holes = *rand.NewPCG(uint64(g.cfg.Seed)^0xda3e39cb94b95bdb, uint64(g.cfg.Seed))
	g.hold = 0
	g.holdUse = false
	g.status = StatusReady
	g.topOut = TopOutNone
	g.score, g.lines, g.combo, g.b2b, g.pieces, g.pending = 0, 0, 0, 0, 0, 0
	g.level = g.engine.Scorer.Level(g.cfg.InitialLevel, 0)
	g.elapsed = 0

	if !g.spawn(g.queue.Pop()) {
		return fmt.Errorf("%w: first piece does not fit a %dx%d board", ErrInvalidConfig, g.cfg.Width, g.cfg.Height)
	}
	return nil
}

// Reset restarts the game from the same engine, config and seed.
func (g *Game) Reset() {
	if err := g.init(); err != nil {
		// the same config built successfully in NewGame
		panic(err)
	}
}

// Start moves a Ready game into play. Push and Tick start it implicitly.
func (g *Game) Start() {
	if g.status == StatusReady {
		g.status = StatusPlaying
	}
}

// Pause sets the pause state. It has no effect before start or after the
// game ends.
func (g *Game) Pause(paused bool) {
	switch {
	case paused && g.status == StatusPlaying:
		g.status = StatusPaused
	case !paused && g.status == StatusPaused:
		g.status = StatusPlaying
	}
}

func (g *Game) TogglePause() {
	g.Pause(g.status == StatusPlaying)
}

// ReceiveGarbage queues incoming garbage lines. They are cancelled by the
// player's own attack or pushed in after the next lock.
func (g *Game) ReceiveGarbage(lines int) {
	if lines > 0 && g.status != StatusGameOver {
		g.pending += lines
	}
}

func (g *Game) playable() bool {
	if g.status == StatusReady {
		g.status = StatusPlaying
	}
	return g.status == StatusPlaying
}

// Push applies one move. Malformed moves return ErrInvalidMove; moves that
// cannot be carried out return a zero Outcome.
func (g *Game) Push(m Move) (Outcome, error) {
	if err := m.Validate(); err != nil {
		return Outcome{}, err
	}
	if !g.playable() {
		return Outcome{}, nil
	}

	switch m.Kind {
	case MoveLeft:
		return g.shift(-1), nil
	case MoveRight:
		return g.shift(1), nil
	case MoveDrag:
		return g.shift(m.N), nil
	case MoveRotateCW:
		return g.rotate(TurnCW), nil
	case MoveRotateCCW:
		return g.rotate(TurnCCW), nil
	case MoveRotate180:
		if g.cfg.Disable180 {
			return Outcome{}, nil
		}
		return g.rotate(Turn180), nil
	case MoveSoftDrop:
		return g.softDrop(max(m.N, 1)), nil
	case MoveHardDrop:
		if g.cfg.DisableHardDrop {
			return Outcome{}, nil
		}
		return g.hardDrop(), nil
	case MoveSwap:
		return g.swap(), nil
	}
	return Outcome{}, fmt.Errorf("%w: %s", ErrInvalidMove, m)
}

// Tick advances gravity by dt.
func (g *Game) Tick(dt time.Duration) Outcome {
	if !g.playable() {
		return Outcome{}
	}
	dt = max(dt, 0)
	g.elapsed += dt

	fromY := g.piece.Y
	event := g.engine.Gravity.OnTick(&g.gravity, dt, g.level, &g.piece, g.board)

	var out Outcome
	if g.piece.Y != fromY {
		out.Applied = true
		out.DY = g.piece.Y - fromY
		g.spin = SpinNone
	}
	if event == GravityLock {
		out.Applied = true
		out.Lock = g.lock()
	}
	return out
}

func (g *Game) shift(n int) Outcome {
	step := 1
	if n < 0 {
		step = -1
	}
	moved := 0
	for moved != n && !g.board.TestCollision(g.piece.Moved(step, 0)) {
		g.piece.X += step
		moved += step
	}
	if moved == 0 {
		return Outcome{}
	}
	g.spin = SpinNone
	g.engine.Gravity.OnMove(&g.gravity, g.piece, g.board)
	return Outcome{Applied: true, DX: moved}
}

func (g *Game) rotate(turn Turn) Outcome {
	r, ok := g.engine.Rotation.TryRotate(g.piece, g.board, turn)
	if !ok {
		return Outcome{}
	}
	from := g.piece
	g.piece = r.Piece
	g.spin = g.engine.Rotation.ClassifySpin(r, g.board)
	g.engine.Gravity.OnMove(&g.gravity, g.piece, g.board)
	return Outcome{
		Applied: true,
		DX:      g.piece.X - from.X,
		DY:      g.piece.Y - from.Y,
		DR:      int(turn),
	}
}

func (g *Game) softDrop(rows int) Outcome {
	moved := g.engine.Gravity.OnSoftDrop(&g.gravity, &g.piece, g.board, rows)
	if moved == 0 {
		return Outcome{}
	}
	g.spin = SpinNone
	g.score += g.engine.Scorer.OnDrop(moved, false)
	return Outcome{Applied: true, DY: moved}
}

func (g *Game) hardDrop() Outcome {
	moved := g.engine.Gravity.OnHardDrop(&g.gravity, &g.piece, g.board)
	if moved > 0 {
		g.spin = SpinNone
		g.score += g.engine.Scorer.OnDrop(moved, true)
	}
	return Outcome{Applied: true, DY: moved, Lock: g.lock()}
}

func (g *Game) swap() Outcome {
	if g.cfg.DisableHold || g.holdUse {
		return Outcome{}
	}
	next := g.hold
	if next == 0 {
		next = g.queue.Pop()
	}
	g.hold = g.piece.Type
	g.holdUse = !g.cfg.UnlimitedHold
	g.spawn(next)
	return Outcome{Applied: true}
}

// spawn places a new piece, ending the game if it overlaps the stack.
func (g *Game) spawn(t PieceType) bool {
	p := g.engine.Rotation.Spawn(t, g.board)
	g.spin = SpinNone
	if g.board.TestCollision(p) {
		g.gameOver(BlockOut)
		return false
	}
	g.piece = p
	g.active = true
	g.gravity.Reset(p)
	return true
}

func (g *Game) gameOver(reason TopOut) {
	g.status = StatusGameOver
	g.topOut = reason
	g.active = false
}

// lock runs the lock pipeline: write the piece, clear lines, score, settle
// garbage, then spawn the next piece.
func (g *Game) lock() *LockEvent {
	p := g.piece
	g.board.Lock(p)
	g.pieces++
	g.active = false

	lockOut := true
	for _, c := range p.Cells() {
		if c.Y >= g.board.Buffer() {
			lockOut = false
			break
		}
	}

	cleared := g.board.ClearLines()
	perfect := cleared.Count > 0 && g.board.IsEmpty()
	difficult := g.engine.Scorer.Difficult(cleared.Count, g.spin)
	if cleared.Count > 0 {
		g.combo++
		if difficult {
			g.b2b++
		} else {
			g.b2b = 0
		}
	} else {
		g.combo = 0
	}

	ev := &LockEvent{
		Piece:        p,
		Cleared:      cleared.Rows,
		Lines:        cleared.Count,
		Spin:         g.spin,
		Combo:        g.combo,
		BackToBack:   cleared.Count > 0 && difficult && g.b2b > 1,
		PerfectClear: perfect,
	}
	ev.Delta = g.engine.Scorer.OnClear(ClearEvent{
		Lines:        ev.Lines,
		Spin:         ev.Spin,
		Combo:        ev.Combo,
		BackToBack:   ev.BackToBack,
		PerfectClear: ev.PerfectClear,
		Level:        g.level,
	})
	g.score += ev.Delta.Points
	g.lines += cleared.Count
	g.level = g.engine.Scorer.Level(g.cfg.InitialLevel, g.lines)

	ev.Sent = ev.Delta.Attack
	cancel := min(ev.Sent, g.pending)
	ev.Sent -= cancel
	g.pending -= cancel

	overflow := false
	if g.pending > 0 {
		ev.Received = g.pending
		overflow = g.injectGarbage(g.pending)
		g.pending = 0
	}

	g.holdUse = false
	g.spin = SpinNone

	switch {
	case lockOut:
		g.gameOver(LockOut)
	case overflow:
		g.gameOver(GarbageOut)
	default:
		g.spawn(g.queue.Pop())
	}
	ev.TopOut = g.topOut
	return ev
}

// injectGarbage pushes n rows sharing one hole column.
func (g *Game) injectGarbage(n int) bool {
	hole := rand.New(&g.holes).IntN(g.board.Width)
	rows := make([][]Cell, n)
	for i := range rows {
		rows[i] = GarbageRow(g.board.Width, hole)
	}
	return g.board.InjectGarbage(rows)
}

func (g *Game) Engine() *Engine        { return g.engine }
func (g *Game) Config() Config         { return g.cfg }
func (g *Game) Status() Status         { return g.status }
func (g *Game) TopOut() TopOut         { return g.topOut }
func (g *Game) Score() int             { return g.score }
func (g *Game) Lines() int             { return g.lines }
func (g *Game) Level() int             { return g.level }
func (g *Game) Combo() int             { return g.combo }
func (g *Game) Pieces() int            { return g.pieces }
func (g *Game) PendingGarbage() int    { return g.pending }
func (g *Game) Elapsed() time.Duration { return g.elapsed }
func (g *Game) Seed() int64            { return g.cfg.Seed }

// BackToBack reports whether the next difficult clear earns the bonus.
func (g *Game) BackToBack() bool { return g.b2b > 0 }

// Spin is the spin state of the active piece's last rotation.
func (g *Game) Spin() SpinKind { return g.spin }

// Piece returns the active piece. There is none once the game is over.
func (g *Game) Piece() (Piece, bool) {
	return g.piece, g.active
}

// Hold returns the held piece type, if any.
func (g *Game) Hold() (PieceType, bool) {
	return g.hold, g.hold != 0
}

// CanHold reports whether a Swap would be accepted now.
func (g *Game) CanHold() bool {
	return !g.cfg.DisableHold && !g.holdUse && g.active
}

// Preview returns the next pieces in the queue without consuming them.
func (g *Game) Preview() []PieceType {
	return g.queue.Peek(g.cfg.PreviewSize)
}

// Board returns a copy of the full board, buffer rows included.
func (g *Game) Board() *Board {
	return g.board.Clone()
}

// GhostY returns the row the active piece would land on.
func (g *Game) GhostY() int {
	y := g.piece.Y
	for !g.board.TestCollision(g.piece.Moved(0, y-g.piece.Y+1)) {
		y++
	}
	return y
}

// Snapshot returns the visible persistent cells without the active piece.
func (g *Game) Snapshot() [][]Cell {
	return g.board.VisibleCells()
}

// Playfield returns the visible board as a renderer should draw it: the
// persistent cells, the ghost, then the active piece on top.
func (g *Game) Playfield() [][]Cell {
	view := g.board.Clone()
	if g.active {
		ghost := g.piece.Moved(0, g.GhostY()-g.piece.Y)
		for _, c := range ghost.Cells() {
			if view.Get(c.X, c.Y) == CellEmpty {
				view.Set(c.X, c.Y, CellGhost)
			}
		}
		for _, c := range g.piece.Cells() {
			view.Set(c.X, c.Y, g.piece.Type.Cell())
		}
	}
	return view.VisibleCells()
}
