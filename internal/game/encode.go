package game

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidEncoding is returned when decoding malformed packed data.
var ErrInvalidEncoding = errors.New("invalid board encoding")

const encodeHasPiece byte = 1 << 0

const encodeHeaderLen = 8

// EncodeBoard packs a board and an optional piece into a compact binary
// form: flags, height, width, visible height, piece type/x/y/rotation, then
// the board from its first non-empty row down, two 4-bit cells per byte.
// An odd cell count takes one more row from above, or a trailing zero
// nibble when the board is already complete.
func EncodeBoard(b *Board, p *Piece) []byte {
	out := []byte{0, byte(b.Height), byte(b.Width), byte(b.Visible), 0, 0, 0, 0}
	if p != nil {
		out[0] |= encodeHasPiece
		out[4] = byte(p.Type)
		out[5] = byte(int8(p.X))
		out[6] = byte(int8(p.Y))
		out[7] = byte(p.R)
	}

	top := b.Height
	for y := 0; y < b.Height; y++ {
		if !b.rowEmpty(y) {
			top = y
			break
		}
	}
	if (b.Height-top)*b.Width%2 != 0 && top > 0 {
		top--
	}

	var nibbles []byte
	for y := top; y < b.Height; y++ {
		for _, c := range b.Cells[y] {
			nibbles = append(nibbles, byte(c)&0x0f)
		}
	}
	if len(nibbles)%2 != 0 {
		nibbles = append(nibbles, 0)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

func (b *Board) rowEmpty(y int) bool {
	for _, c := range b.Cells[y] {
		if c != CellEmpty {
			return false
		}
	}
	return true
}

// DecodeBoard reverses EncodeBoard. The piece, when present, takes its shape
// from the SRS table shared by the bundled rotation systems.
func DecodeBoard(data []byte) (*Board, *Piece, error) {
	if len(data) < encodeHeaderLen {
		return nil, nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidEncoding, len(data))
	}
	height, width, visible := int(data[1]), int(data[2]), int(data[3])
	b, err := NewBoard(width, visible, height-visible)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}

	body := data[encodeHeaderLen:]
	rows := len(body) * 2 / width
	if rows > height {
		return nil, nil, fmt.Errorf("%w: %d rows on a board of %d", ErrInvalidEncoding, rows, height)
	}
	top := height - rows
	for i := 0; i < rows*width; i++ {
		v := body[i/2]
		if i%2 == 0 {
			v >>= 4
		}
		c := Cell(v & 0x0f)
		if c > CellGarbage {
			return nil, nil, fmt.Errorf("%w: cell value %d", ErrInvalidEncoding, c)
		}
		b.Cells[top+i/width][i%width] = c
	}

	if data[0]&encodeHasPiece == 0 {
		return b, nil, nil
	}
	t := PieceType(data[4])
	r := int(data[7])
	if !t.Valid() || r > 3 {
		return nil, nil, fmt.Errorf("%w: piece %d rotation %d", ErrInvalidEncoding, t, r)
	}
	p := &Piece{
		Type:  t,
		X:     int(int8(data[5])),
		Y:     int(int8(data[6])),
		R:     r,
		Minos: srsShapes[t][r],
	}
	return b, p, nil
}

// EncodeString is EncodeBoard in standard base64.
func EncodeString(b *Board, p *Piece) string {
	return base64.StdEncoding.EncodeToString(EncodeBoard(b, p))
}

// DecodeString reverses EncodeString.
func DecodeString(s string) (*Board, *Piece, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return DecodeBoard(data)
}
