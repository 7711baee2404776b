package game

// SpinKind classifies the last rotation of a piece for scoring.
type SpinKind int

const (
	SpinNone SpinKind = iota
	// SpinPartial is the "mini" spin.
	SpinPartial
	SpinFull
)

func (s SpinKind) String() string {
	switch s {
	case SpinPartial:
		return "mini"
	case SpinFull:
		return "full"
	}
	return "none"
}

// Corners of the T bounding box, clockwise from top-left, and the edge
// centres in the same order starting at the top. corners[i] is the corner
// just before edge i going clockwise.
var (
	tCorners = [4]Mino{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	tEdges   = [4]Mino{{1, 0}, {2, 1}, {1, 2}, {0, 1}}
)

// tCornerSpin applies the three-corner rule. The flat side of the T is its
// back; both front corners plus one back corner is a full spin, one front
// and both back corners is a mini unless the far kick was used.
func tCornerSpin(r Rotated, b *Board) SpinKind {
	p := r.Piece
	var filled [4]bool
	for i, c := range tCorners {
		filled[i] = b.Get(p.X+c.X, p.Y+c.Y).Solid()
	}

	back := -1
	for i, e := range tEdges {
		if !p.has(e) {
			back = i
			break
		}
	}
	if back < 0 {
		return SpinNone
	}

	count := func(idx ...int) int {
		n := 0
		for _, i := range idx {
			if filled[i%4] {
				n++
			}
		}
		return n
	}
	front := count(back+2, back+3)
	rear := count(back, back+1)

	switch {
	case front == 2 && rear >= 1:
		return SpinFull
	case front == 1 && rear == 2:
		if abs(r.Kick.X) == 1 && abs(r.Kick.Y) == 2 {
			return SpinFull
		}
		return SpinPartial
	}
	return SpinNone
}

// immobileSpin reports a mini spin when the piece cannot move left, right or
// up from where the rotation left it.
func immobileSpin(p Piece, b *Board) SpinKind {
	if b.TestCollision(p.Moved(-1, 0)) &&
		b.TestCollision(p.Moved(1, 0)) &&
		b.TestCollision(p.Moved(0, -1)) {
		return SpinPartial
	}
	return SpinNone
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
