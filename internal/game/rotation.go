package game

// RotationSystem owns the piece shapes, spawn placement, kick search and
// spin classification of one ruleset. Implementations hold only static
// tables and may be shared between games.
type RotationSystem interface {
	Name() string
	Spawn(t PieceType, b *Board) Piece
	TryRotate(p Piece, b *Board, turn Turn) (Rotated, bool)
	ClassifySpin(r Rotated, b *Board) SpinKind
}

// Rotated is a successful rotation: the new placement and the kick offset
// that made it legal.
type Rotated struct {
	Piece Piece
	Kick  Offset
	Test  int
}

// ShapeTable maps each piece type to its minos in rotation states 0..3.
type ShapeTable map[PieceType][4][]Mino

// KickKey selects a kick list by source and target rotation state.
type KickKey struct {
	From, To int
}

// KickTable lists the kick offsets tried, in order, after the in-place test.
type KickTable map[KickKey][]Offset

// KickSystem is a table-driven rotation system. The search loop is shared by
// every ruleset; only the data differs.
type KickSystem struct {
	name   string
	Shapes ShapeTable
	Kicks  KickTable
	IKicks KickTable
	// SpinPieces lists non-T piece types that are classified with the
	// immobility test. T always uses the corner test.
	SpinPieces map[PieceType]bool
}

func (s *KickSystem) Name() string { return s.name }

// Spawn places a piece at rotation 0 in the two rows right above the
// visible area, left of centre.
func (s *KickSystem) Spawn(t PieceType, b *Board) Piece {
	return Piece{
		Type:  t,
		X:     (b.Width+3)/2 - 3,
		Y:     b.Buffer() - 2,
		R:     0,
		Minos: s.Shapes[t][0],
	}
}

// Minos returns the shape of t in rotation state r.
func (s *KickSystem) Minos(t PieceType, r int) []Mino {
	return s.Shapes[t][r]
}

func (s *KickSystem) kicksFor(t PieceType, from, to int) []Offset {
	key := KickKey{From: from, To: to}
	if t == PieceI {
		if kicks, ok := s.IKicks[key]; ok {
			return kicks
		}
	}
	return s.Kicks[key]
}

// TryRotate tests the in-place rotation and then every kick for the
// (from, to) pair, returning the first placement that does not collide.
func (s *KickSystem) TryRotate(p Piece, b *Board, turn Turn) (Rotated, bool) {
	to := turn.Apply(p.R)
	target := p
	target.R = to
	target.Minos = s.Shapes[p.Type][to]

	if !b.TestCollision(target) {
		return Rotated{Piece: target}, true
	}
	for i, k := range s.kicksFor(p.Type, p.R, to) {
		candidate := target.Moved(k.X, k.Y)
		if !b.TestCollision(candidate) {
			return Rotated{Piece: candidate, Kick: k, Test: i + 1}, true
		}
	}
	return Rotated{}, false
}

// ClassifySpin evaluates the spin state of a piece right after rotation.
func (s *KickSystem) ClassifySpin(r Rotated, b *Board) SpinKind {
	switch {
	case r.Piece.Type == PieceO:
		return SpinNone
	case r.Piece.Type == PieceT:
		return tCornerSpin(r, b)
	case s.SpinPieces[r.Piece.Type]:
		return immobileSpin(r.Piece, b)
	}
	return SpinNone
}

// srsShapes is the guideline shape table, each rotation state inside its
// bounding box.
var srsShapes = ShapeTable{
	PieceI: {
		{{0, 1}, {1, 1}, {2, 1}, {3, 1}},
		{{2, 0}, {2, 1}, {2, 2}, {2, 3}},
		{{0, 2}, {1, 2}, {2, 2}, {3, 2}},
		{{1, 0}, {1, 1}, {1, 2}, {1, 3}},
	},
	PieceJ: {
		{{0, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 0}, {1, 1}, {0, 2}, {1, 2}},
	},
	PieceL: {
		{{2, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {1, 2}, {2, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {1, 1}, {1, 2}},
	},
	PieceO: {
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
	},
	PieceS: {
		{{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 1}, {2, 1}, {0, 2}, {1, 2}},
		{{0, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	PieceT: {
		{{1, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {1, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	PieceZ: {
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{2, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {1, 2}, {2, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {0, 2}},
	},
}

// Offsets use screen coordinates: +X right, +Y down.
var srsKicks = KickTable{
	{0, 1}: {{-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{1, 0}: {{1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{1, 2}: {{1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{2, 1}: {{-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{2, 3}: {{1, 0}, {1, -1}, {0, 2}, {1, 2}},
	{3, 2}: {{-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{3, 0}: {{-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{0, 3}: {{1, 0}, {1, -1}, {0, 2}, {1, 2}},
}

var srsIKicks = KickTable{
	{0, 1}: {{-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
	{1, 0}: {{2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
	{1, 2}: {{-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
	{2, 1}: {{1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
	{2, 3}: {{2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
	{3, 2}: {{-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
	{3, 0}: {{1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
	{0, 3}: {{-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
}

// tetrio180 adds kick lists for half turns, shared by every piece type.
var tetrio180 = KickTable{
	{0, 2}: {{0, -1}, {1, -1}, {-1, -1}, {1, 0}, {-1, 0}},
	{1, 3}: {{1, 0}, {1, -2}, {1, -1}, {0, -2}, {0, -1}},
	{2, 0}: {{0, 1}, {-1, 1}, {1, 1}, {-1, 0}, {1, 0}},
	{3, 1}: {{-1, 0}, {-1, -2}, {-1, -1}, {0, -2}, {0, -1}},
}

func mergeKicks(tables ...KickTable) KickTable {
	out := make(KickTable)
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

// NewSRS returns the guideline Super Rotation System. Half turns are only
// tested in place.
func NewSRS() *KickSystem {
	return &KickSystem{
		name:   "srs",
		Shapes: srsShapes,
		Kicks:  srsKicks,
		IKicks: srsIKicks,
	}
}

// NewTetrioSRS returns SRS extended with half-turn kicks and immobility
// spins for every piece but O.
func NewTetrioSRS() *KickSystem {
	return &KickSystem{
		name:   "srs+",
		Shapes: srsShapes,
		Kicks:  mergeKicks(srsKicks, tetrio180),
		IKicks: mergeKicks(srsIKicks, tetrio180),
		SpinPieces: map[PieceType]bool{
			PieceI: true, PieceJ: true, PieceL: true, PieceS: true, PieceZ: true,
		},
	}
}

// NewNoKicks returns SRS shapes with no kicks at all.
func NewNoKicks() *KickSystem {
	return &KickSystem{
		name:   "nokicks",
		Shapes: srsShapes,
		Kicks:  KickTable{},
		IKicks: KickTable{},
	}
}
