package game

// ClearEvent is everything a scorer needs to judge one lock. Combo and
// back-to-back bookkeeping belong to the game; they arrive here as inputs.
type ClearEvent struct {
	Lines        int
	Spin         SpinKind
	Combo        int
	BackToBack   bool
	PerfectClear bool
	Level        int
}

// ScoreDelta is the result of judging a clear.
type ScoreDelta struct {
	Points int
	Attack int
}

// Scorer turns clears and drops into points, attack and level. It holds only
// static rule tables and may be shared between games.
type Scorer interface {
	Name() string
	OnClear(ev ClearEvent) ScoreDelta
	OnDrop(rows int, hard bool) int
	Level(initial, lines int) int
	// Difficult reports whether a clear keeps a back-to-back chain going.
	Difficult(lines int, spin SpinKind) bool
}

// tableAt returns table[i], clamping i into range so every scorer is total
// over any line count.
func tableAt(table []int, i int) int {
	switch {
	case len(table) == 0:
		return 0
	case i < 0:
		return table[0]
	case i >= len(table):
		return table[len(table)-1]
	}
	return table[i]
}

// GuidelineScorer implements the modern guideline tables with T-spin, mini
// and perfect clear scoring.
type GuidelineScorer struct {
	Normal       []int
	Spin         []int
	Mini         []int
	PerfectClear []int

	LineAttack    []int
	SpinAttack    []int
	MiniAttack    []int
	ComboAttack   []int
	B2BAttack     int
	PerfectAttack int
}

// NewGuidelineScorer returns the guideline scorer with the standard tables.
func NewGuidelineScorer() *GuidelineScorer {
	return &GuidelineScorer{
		Normal:       []int{0, 100, 300, 500, 800},
		Spin:         []int{400, 800, 1200, 1600, 0},
		Mini:         []int{100, 200, 400, 0, 0},
		PerfectClear: []int{0, 800, 1200, 1800, 2000},

		LineAttack:    []int{0, 0, 1, 2, 4},
		SpinAttack:    []int{0, 2, 4, 6, 6},
		MiniAttack:    []int{0, 0, 1, 2, 2},
		ComboAttack:   []int{0, 0, 1, 1, 1, 2, 2, 3, 3, 4, 4, 4, 5},
		B2BAttack:     1,
		PerfectAttack: 10,
	}
}

func (s *GuidelineScorer) Name() string { return "guideline" }

func (s *GuidelineScorer) OnClear(ev ClearEvent) ScoreDelta {
	level := max(ev.Level, 1)

	var points int
	switch {
	case ev.PerfectClear && ev.Lines > 0:
		points = tableAt(s.PerfectClear, ev.Lines)
	case ev.Spin == SpinFull:
		points = tableAt(s.Spin, ev.Lines)
	case ev.Spin == SpinPartial:
		points = tableAt(s.Mini, ev.Lines)
	default:
		points = tableAt(s.Normal, ev.Lines)
	}
	if ev.Lines > 0 && ev.Combo > 1 {
		points += 50 * (ev.Combo - 1)
	}
	points *= level

	if ev.Lines > 0 && ev.BackToBack {
		points = points * 3 / 2
		if ev.PerfectClear {
			points += 200 * level
		}
	}

	return ScoreDelta{Points: points, Attack: s.attack(ev)}
}

func (s *GuidelineScorer) attack(ev ClearEvent) int {
	if ev.Lines == 0 {
		return 0
	}
	var attack int
	switch ev.Spin {
	case SpinFull:
		attack = tableAt(s.SpinAttack, ev.Lines)
	case SpinPartial:
		attack = tableAt(s.MiniAttack, ev.Lines)
	default:
		attack = tableAt(s.LineAttack, ev.Lines)
	}
	if ev.Combo > 0 {
		attack += tableAt(s.ComboAttack, ev.Combo-1)
	}
	if ev.BackToBack {
		attack += s.B2BAttack
	}
	if ev.PerfectClear {
		attack += s.PerfectAttack
	}
	return attack
}

func (s *GuidelineScorer) OnDrop(rows int, hard bool) int {
	if hard {
		return 2 * rows
	}
	return rows
}

// Level advances once every ten lines, but never below the starting level.
func (s *GuidelineScorer) Level(initial, lines int) int {
	return max(initial, lines/10+1)
}

func (s *GuidelineScorer) Difficult(lines int, spin SpinKind) bool {
	return lines >= 4 || (lines > 0 && spin != SpinNone)
}

// NESScorer is the original console scoring: no spins, no combos, and a
// level goal that depends on the starting level.
type NESScorer struct {
	Lines      []int
	LineAttack []int
}

func NewNESScorer() *NESScorer {
	return &NESScorer{
		Lines:      []int{0, 40, 100, 300, 1200},
		LineAttack: []int{0, 0, 1, 2, 4},
	}
}

func (s *NESScorer) Name() string { return "nes" }

func (s *NESScorer) OnClear(ev ClearEvent) ScoreDelta {
	return ScoreDelta{
		Points: tableAt(s.Lines, ev.Lines) * (max(ev.Level, 0) + 1),
		Attack: tableAt(s.LineAttack, ev.Lines),
	}
}

func (s *NESScorer) OnDrop(rows int, hard bool) int {
	return rows
}

func (s *NESScorer) Level(initial, lines int) int {
	goal := min(initial*10+10, max(100, initial*10-50))
	if lines < goal {
		return initial
	}
	return initial + 1 + (lines-goal)/10
}

func (s *NESScorer) Difficult(lines int, spin SpinKind) bool {
	return false
}
