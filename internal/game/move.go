package game

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is returned by Push for malformed moves. Legal but
// impossible moves, like shifting into a wall, are not errors.
var ErrInvalidMove = errors.New("invalid move")

// MoveKind tags a Move.
type MoveKind int

const (
	MoveLeft MoveKind = iota + 1
	MoveRight
	MoveDrag
	MoveRotateCW
	MoveRotateCCW
	MoveRotate180
	MoveSoftDrop
	MoveHardDrop
	MoveSwap
)

var moveNames = map[MoveKind]string{
	MoveLeft:      "left",
	MoveRight:     "right",
	MoveDrag:      "drag",
	MoveRotateCW:  "cw",
	MoveRotateCCW: "ccw",
	MoveRotate180: "180",
	MoveSoftDrop:  "soft",
	MoveHardDrop:  "hard",
	MoveSwap:      "swap",
}

func (k MoveKind) String() string {
	if name, ok := moveNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MoveKind(%d)", int(k))
}

func (k MoveKind) MarshalText() ([]byte, error) {
	name, ok := moveNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidMove, int(k))
	}
	return []byte(name), nil
}

func (k *MoveKind) UnmarshalText(text []byte) error {
	for kind, name := range moveNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: kind %q", ErrInvalidMove, text)
}

// Move is one request pushed into a game. N is the column count for Drag
// (negative is left) and the row count for SoftDrop.
type Move struct {
	Kind MoveKind `json:"kind"`
	N    int      `json:"n,omitempty"`
}

func Left() Move      { return Move{Kind: MoveLeft} }
func Right() Move     { return Move{Kind: MoveRight} }
func RotateCW() Move  { return Move{Kind: MoveRotateCW} }
func RotateCCW() Move { return Move{Kind: MoveRotateCCW} }
func Rotate180() Move { return Move{Kind: MoveRotate180} }
func HardDrop() Move  { return Move{Kind: MoveHardDrop} }
func Swap() Move      { return Move{Kind: MoveSwap} }

// Drag shifts the piece by n columns, stopping at the first obstruction.
func Drag(n int) Move { return Move{Kind: MoveDrag, N: n} }

// SoftDrop moves the piece down by up to n rows.
func SoftDrop(n int) Move { return Move{Kind: MoveSoftDrop, N: n} }

// Validate rejects unknown kinds and negative soft drops.
func (m Move) Validate() error {
	if _, ok := moveNames[m.Kind]; !ok {
		return fmt.Errorf("%w: kind %d", ErrInvalidMove, int(m.Kind))
	}
	if m.Kind == MoveSoftDrop && m.N < 0 {
		return fmt.Errorf("%w: soft drop of %d rows", ErrInvalidMove, m.N)
	}
	return nil
}

func (m Move) String() string {
	switch m.Kind {
	case MoveDrag, MoveSoftDrop:
		return fmt.Sprintf("%s(%d)", m.Kind, m.N)
	}
	return m.Kind.String()
}
