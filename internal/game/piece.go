package game

import "fmt"

// PieceType is one of the seven tetrominoes. The numeric value doubles as
// the piece's board Cell tag.
type PieceType int8

const (
	PieceI PieceType = iota + 1
	PieceJ
	PieceL
	PieceO
	PieceS
	PieceT
	PieceZ
)

// AllPieceTypes lists every piece type in tag order.
var AllPieceTypes = [...]PieceType{PieceI, PieceJ, PieceL, PieceO, PieceS, PieceT, PieceZ}

var pieceNames = map[PieceType]string{
	PieceI: "I",
	PieceJ: "J",
	PieceL: "L",
	PieceO: "O",
	PieceS: "S",
	PieceT: "T",
	PieceZ: "Z",
}

// Valid reports whether t names one of the seven tetrominoes.
func (t PieceType) Valid() bool {
	return t >= PieceI && t <= PieceZ
}

func (t PieceType) String() string {
	if name, ok := pieceNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PieceType(%d)", int8(t))
}

// Cell is the value stored in one board square.
type Cell int8

const (
	CellEmpty Cell = iota
	CellI
	CellJ
	CellL
	CellO
	CellS
	CellT
	CellZ
	CellGhost
	CellGarbage
)

// Cell returns the tag a locked piece of this type leaves on the board.
func (t PieceType) Cell() Cell {
	return Cell(t)
}

// Solid reports whether the cell blocks movement. Ghost cells never do.
func (c Cell) Solid() bool {
	return c != CellEmpty && c != CellGhost
}

func (c Cell) String() string {
	switch {
	case c == CellEmpty:
		return "."
	case c == CellGhost:
		return "@"
	case c == CellGarbage:
		return "X"
	case c >= CellI && c <= CellZ:
		return PieceType(c).String()
	}
	return "?"
}

// Mino is one occupied square of a piece, relative to the piece origin.
type Mino struct {
	X, Y int
}

// Offset is a translation applied to a piece, used for kicks.
type Offset struct {
	X, Y int
}

// Turn is a rotation request in quarter turns clockwise.
type Turn int

const (
	TurnCW  Turn = 1
	Turn180 Turn = 2
	TurnCCW Turn = 3
)

// Apply returns the rotation state reached from r after the turn.
func (t Turn) Apply(r int) int {
	return ((r+int(t))%4 + 4) % 4
}

// Piece is the active, not yet locked piece. X and Y locate the origin of
// its shape box on the full board; R is the rotation state in 0..3.
type Piece struct {
	Type  PieceType
	X, Y  int
	R     int
	Minos []Mino
}

// Cells returns the absolute board coordinates the piece covers.
func (p Piece) Cells() []Mino {
	cells := make([]Mino, len(p.Minos))
	for i, m := range p.Minos {
		cells[i] = Mino{X: p.X + m.X, Y: p.Y + m.Y}
	}
	return cells
}

// Moved returns a copy of the piece translated by dx, dy.
func (p Piece) Moved(dx, dy int) Piece {
	p.X += dx
	p.Y += dy
	return p
}

func (p Piece) has(m Mino) bool {
	for _, own := range p.Minos {
		if own == m {
			return true
		}
	}
	return false
}

func (p Piece) String() string {
	return fmt.Sprintf("%s@(%d,%d)r%d", p.Type, p.X, p.Y, p.R)
}
