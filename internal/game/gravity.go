package game

import (
	"math"
	"time"
)

// GravityEvent is what a tick did to the active piece.
type GravityEvent int

const (
	GravityNoOp GravityEvent = iota
	GravityDescended
	GravityLock
)

func (e GravityEvent) String() string {
	switch e {
	case GravityDescended:
		return "descended"
	case GravityLock:
		return "lock"
	}
	return "noop"
}

// GravityState holds the per-game timers a Gravity rule works on.
type GravityState struct {
	Fall    time.Duration
	Lock    time.Duration
	Locking bool
	Resets  int
	Lowest  int
}

// Reset prepares the state for a freshly spawned piece.
func (st *GravityState) Reset(p Piece) {
	*st = GravityState{Lowest: p.Y}
}

func (st *GravityState) descended(p Piece) {
	if p.Y > st.Lowest {
		st.Lowest = p.Y
		st.Resets = 0
	}
}

// Gravity moves the active piece down over time and decides when it locks.
// Implementations are stateless; all timers live in the GravityState owned
// by the game.
type Gravity interface {
	Name() string
	OnTick(st *GravityState, dt time.Duration, level int, p *Piece, b *Board) GravityEvent
	OnSoftDrop(st *GravityState, p *Piece, b *Board, rows int) int
	OnHardDrop(st *GravityState, p *Piece, b *Board) int
	OnMove(st *GravityState, p Piece, b *Board)
}

// TimedGravity drops the piece one row per interval and locks it after it
// has rested for LockDelay. Each voluntary move while resting restarts the
// lock timer, at most MaxResets times per lowest row reached; once the cap
// is spent the next resting tick locks. A zero LockDelay locks one drop
// interval after landing.
type TimedGravity struct {
	name      string
	interval  func(level int) time.Duration
	LockDelay time.Duration
	MaxResets int
}

// NewMarathonGravity returns guideline marathon gravity with move-reset
// lock delay.
func NewMarathonGravity() *TimedGravity {
	return &TimedGravity{
		name:      "marathon",
		interval:  marathonInterval,
		LockDelay: 500 * time.Millisecond,
		MaxResets: 15,
	}
}

func marathonInterval(level int) time.Duration {
	level = max(level, 1)
	base := 0.8 - float64(level-1)*0.007
	if base <= 0 {
		return 0
	}
	return time.Duration(math.Pow(base, float64(level-1)) * float64(time.Second))
}

// classicSpeeds is the per-level drop interval, level 1 first.
var classicSpeeds = []time.Duration{
	800 * time.Millisecond,
	720 * time.Millisecond,
	630 * time.Millisecond,
	550 * time.Millisecond,
	470 * time.Millisecond,
	380 * time.Millisecond,
	300 * time.Millisecond,
	220 * time.Millisecond,
	130 * time.Millisecond,
	100 * time.Millisecond,
	80 * time.Millisecond,
	80 * time.Millisecond,
	80 * time.Millisecond,
	70 * time.Millisecond,
	70 * time.Millisecond,
	70 * time.Millisecond,
	50 * time.Millisecond,
	50 * time.Millisecond,
	50 * time.Millisecond,
	30 * time.Millisecond,
}

// NewLevelTableGravity returns gravity driven by a per-level speed table.
// A nil table uses the classic speeds.
func NewLevelTableGravity(speeds []time.Duration, lockDelay time.Duration, maxResets int) *TimedGravity {
	if len(speeds) == 0 {
		speeds = classicSpeeds
	}
	return &TimedGravity{
		name: "level-table",
		interval: func(level int) time.Duration {
			switch {
			case level < 1:
				return speeds[0]
			case level > len(speeds):
				return speeds[len(speeds)-1]
			}
			return speeds[level-1]
		},
		LockDelay: lockDelay,
		MaxResets: maxResets,
	}
}

func (g *TimedGravity) Name() string { return g.name }

// Interval returns the time per row at the given level. Zero means the
// piece falls to the stack instantly.
func (g *TimedGravity) Interval(level int) time.Duration {
	return g.interval(level)
}

func (g *TimedGravity) OnTick(st *GravityState, dt time.Duration, level int, p *Piece, b *Board) GravityEvent {
	event := GravityNoOp
	interval := g.interval(level)

	st.Fall += dt
	for interval <= 0 || st.Fall >= interval {
		if b.TestCollision(p.Moved(0, 1)) {
			break
		}
		p.Y++
		st.descended(*p)
		event = GravityDescended
		if interval > 0 {
			st.Fall -= interval
		}
	}

	if !b.TestCollision(p.Moved(0, 1)) {
		st.Locking = false
		st.Lock = 0
		return event
	}

	st.Fall = 0
	if !st.Locking {
		// landing never locks on the same tick
		st.Locking = true
		st.Lock = 0
		return event
	}
	st.Lock += dt

	delay := g.LockDelay
	if delay <= 0 {
		delay = interval
	}
	if st.Lock >= delay || (g.MaxResets > 0 && st.Resets >= g.MaxResets) {
		return GravityLock
	}
	return event
}

func (g *TimedGravity) OnSoftDrop(st *GravityState, p *Piece, b *Board, rows int) int {
	moved := 0
	for moved < rows && !b.TestCollision(p.Moved(0, 1)) {
		p.Y++
		moved++
		st.descended(*p)
	}
	if b.TestCollision(p.Moved(0, 1)) && !st.Locking {
		st.Locking = true
		st.Lock = 0
	}
	return moved
}

func (g *TimedGravity) OnHardDrop(st *GravityState, p *Piece, b *Board) int {
	moved := 0
	for !b.TestCollision(p.Moved(0, 1)) {
		p.Y++
		moved++
	}
	*st = GravityState{Lowest: p.Y}
	return moved
}

func (g *TimedGravity) OnMove(st *GravityState, p Piece, b *Board) {
	st.descended(p)
	if !st.Locking {
		return
	}
	if st.Resets < g.MaxResets {
		st.Lock = 0
		st.Resets++
	}
	if !b.TestCollision(p.Moved(0, 1)) {
		st.Locking = false
		st.Lock = 0
	}
}
