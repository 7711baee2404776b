// Package replay records the inputs of a game and plays them back.
//
// A game is fully determined by its engine, its config (which carries the
// seed) and the ordered list of moves, ticks and incoming garbage it was fed,
// so a Log is all that needs to be stored to reproduce it bit for bit.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hersh/tetriscore/internal/game"
)

// ErrCorruptLog is returned when a log cannot be replayed.
var ErrCorruptLog = errors.New("corrupt replay log")

// Kind tags a log entry.
type Kind string

const (
	KindMove    Kind = "move"
	KindTick    Kind = "tick"
	KindGarbage Kind = "garbage"
	KindPause   Kind = "pause"
	KindResume  Kind = "resume"
)

// Entry is one recorded call. Consecutive ticks of the same length share an
// entry, with Repeat counting the calls after the first.
type Entry struct {
	Kind   Kind          `json:"kind"`
	Move   game.Move     `json:"move,omitzero"`
	DT     time.Duration `json:"dt,omitempty"`
	Repeat int           `json:"repeat,omitempty"`
	Lines  int           `json:"lines,omitempty"`
}

// Log is a replayable game.
type Log struct {
	Engine  string      `json:"engine"`
	Config  game.Config `json:"config"`
	Entries []Entry     `json:"entries"`
}

// Marshal encodes the log as JSON.
func (l Log) Marshal() ([]byte, error) {
	return json.Marshal(l)
}

// Unmarshal decodes a log written by Marshal.
func Unmarshal(data []byte) (Log, error) {
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		return Log{}, fmt.Errorf("%w: %w", ErrCorruptLog, err)
	}
	return l, nil
}

// Recorder forwards calls to a game and logs each one.
type Recorder struct {
	game *game.Game
	log  Log
}

// NewRecorder starts a new game and records everything pushed into it.
func NewRecorder(engine *game.Engine, cfg game.Config) (*Recorder, error) {
	g, err := game.NewGame(engine, cfg)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		game: g,
		log:  Log{Engine: engine.Name, Config: g.Config()},
	}, nil
}

// Game returns the recorded game for reading. Mutating it directly bypasses
// the log.
func (r *Recorder) Game() *game.Game {
	return r.game
}

func (r *Recorder) Push(m game.Move) (game.Outcome, error) {
	out, err := r.game.Push(m)
	if err != nil {
		return out, err
	}
	r.log.Entries = append(r.log.Entries, Entry{Kind: KindMove, Move: m})
	return out, nil
}

func (r *Recorder) Tick(dt time.Duration) game.Outcome {
	if n := len(r.log.Entries); n > 0 {
		if last := &r.log.Entries[n-1]; last.Kind == KindTick && last.DT == dt {
			last.Repeat++
			return r.game.Tick(dt)
		}
	}
	r.log.Entries = append(r.log.Entries, Entry{Kind: KindTick, DT: dt})
	return r.game.Tick(dt)
}

// Calls returns how many calls the log records once tick runs are expanded.
func (l Log) Calls() int {
	n := 0
	for _, e := range l.Entries {
		n += 1 + max(e.Repeat, 0)
	}
	return n
}

func (r *Recorder) ReceiveGarbage(lines int) {
	r.log.Entries = append(r.log.Entries, Entry{Kind: KindGarbage, Lines: lines})
	r.game.ReceiveGarbage(lines)
}

func (r *Recorder) Pause(paused bool) {
	kind := KindResume
	if paused {
		kind = KindPause
	}
	r.log.Entries = append(r.log.Entries, Entry{Kind: kind})
	r.game.Pause(paused)
}

// Log returns a copy of the log so far.
func (r *Recorder) Log() Log {
	l := r.log
	l.Entries = append([]Entry(nil), r.log.Entries...)
	return l
}

// Play rebuilds the game a log describes.
func Play(engine *game.Engine, l Log) (*game.Game, error) {
	g, err := game.NewGame(engine, l.Config)
	if err != nil {
		return nil, err
	}
	for i, e := range l.Entries {
		if err := apply(g, e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return g, nil
}

// PlayPreset is Play with the engine named in the log.
func PlayPreset(l Log) (*game.Game, error) {
	engine, err := game.Preset(l.Engine)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptLog, err)
	}
	return Play(engine, l)
}

func apply(g *game.Game, e Entry) error {
	switch e.Kind {
	case KindMove:
		if _, err := g.Push(e.Move); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptLog, err)
		}
	case KindTick:
		if e.Repeat < 0 {
			return fmt.Errorf("%w: negative tick repeat %d", ErrCorruptLog, e.Repeat)
		}
		for range e.Repeat + 1 {
			g.Tick(e.DT)
		}
	case KindGarbage:
		g.ReceiveGarbage(e.Lines)
	case KindPause:
		g.Pause(true)
	case KindResume:
		g.Pause(false)
	default:
		return fmt.Errorf("%w: unknown entry kind %q", ErrCorruptLog, e.Kind)
	}
	return nil
}

// Summary is the headline result of a game.
type Summary struct {
	Engine   string        `json:"engine"`
	Seed     int64         `json:"seed"`
	Score    int           `json:"score"`
	Lines    int           `json:"lines"`
	Level    int           `json:"level"`
	Pieces   int           `json:"pieces"`
	Duration time.Duration `json:"duration"`
	TopOut   string        `json:"top_out"`
}

// Summarize reads the summary of a game.
func Summarize(g *game.Game) Summary {
	return Summary{
		Engine:   g.Engine().Name,
		Seed:     g.Seed(),
		Score:    g.Score(),
		Lines:    g.Lines(),
		Level:    g.Level(),
		Pieces:   g.Pieces(),
		Duration: g.Elapsed(),
		TopOut:   g.TopOut().String(),
	}
}
