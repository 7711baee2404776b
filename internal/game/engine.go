package game

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMissingComponent is returned when an engine lacks one of its parts.
var ErrMissingComponent = errors.New("missing engine component")

// ErrUnknownPreset is returned by Preset for names it does not know.
var ErrUnknownPreset = errors.New("unknown engine preset")

// Engine bundles the pluggable rules of a game. Every part is stateless, so
// one Engine can back any number of concurrent games.
type Engine struct {
	Name       string
	Gravity    Gravity
	Randomizer Randomizer
	Rotation   RotationSystem
	Scorer     Scorer
	// StartLevel is the level a game of this ruleset begins at unless the
	// player picks another.
	StartLevel int
}

// Validate reports the first missing part.
func (e *Engine) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil engine", ErrMissingComponent)
	}
	switch {
	case e.Gravity == nil:
		return fmt.Errorf("%w: gravity", ErrMissingComponent)
	case e.Randomizer == nil:
		return fmt.Errorf("%w: randomizer", ErrMissingComponent)
	case e.Rotation == nil:
		return fmt.Errorf("%w: rotation system", ErrMissingComponent)
	case e.Scorer == nil:
		return fmt.Errorf("%w: scorer", ErrMissingComponent)
	}
	return nil
}

// Modern is the guideline ruleset: marathon gravity, 7-bag, SRS.
func Modern() *Engine {
	return &Engine{
		Name:       "modern",
		StartLevel: 1,
		Gravity:    NewMarathonGravity(),
		Randomizer: SevenBag{},
		Rotation:   NewSRS(),
		Scorer:     NewGuidelineScorer(),
	}
}

// Tetrio is Modern with 180 kicks and all-spin detection.
func Tetrio() *Engine {
	return &Engine{
		Name:       "tetrio",
		StartLevel: 1,
		Gravity:    NewMarathonGravity(),
		Randomizer: SevenBag{},
		Rotation:   NewTetrioSRS(),
		Scorer:     NewGuidelineScorer(),
	}
}

// Classic approximates the original console game: the level speed table
// with no lock delay, independent random pieces and no kicks.
func Classic() *Engine {
	return &Engine{
		Name:       "classic",
		StartLevel: 0,
		Gravity:    NewLevelTableGravity(nil, 0, 0),
		Randomizer: Chaotic{},
		Rotation:   NewNoKicks(),
		Scorer:     NewNESScorer(),
	}
}

// DefaultConfig is the standard board started at the ruleset's own level.
func (e *Engine) DefaultConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialLevel = e.StartLevel
	return cfg
}

var presets = map[string]func() *Engine{
	"modern":  Modern,
	"tetrio":  Tetrio,
	"classic": Classic,
}

// Preset returns a fresh engine by name.
func Preset(name string) (*Engine, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return build(), nil
}

// PresetNames lists the known presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
