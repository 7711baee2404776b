package game

import (
	"errors"
	"fmt"
)

const (
	DefaultWidth  = 10
	DefaultHeight = 20

	// MaxWidth and MaxRows bound a board so its dimensions and piece
	// coordinates fit the packed encoding.
	MaxWidth = 64
	MaxRows  = 120
)

// ErrInvalidBoard is returned for board dimensions that cannot hold a piece.
var ErrInvalidBoard = errors.New("invalid board dimensions")

// Board is the persistent playfield. Rows are stored top to bottom: the
// hidden buffer rows come first, followed by the visible rows.
type Board struct {
	Cells   [][]Cell
	Width   int
	Height  int
	Visible int
}

// ClearResult describes the rows removed by ClearLines, as indices into the
// board before compaction.
type ClearResult struct {
	Rows  []int
	Count int
}

// NewBoard creates an empty board with the given visible height and hidden
// buffer rows above it.
func NewBoard(width, visible, buffer int) (*Board, error) {
	if width < 4 || visible < 4 || buffer < 2 || width > MaxWidth || visible+buffer > MaxRows {
		return nil, fmt.Errorf("%w: %dx%d with %d buffer rows", ErrInvalidBoard, width, visible, buffer)
	}
	height := visible + buffer
	cells := make([][]Cell, height)
	for i := range cells {
		cells[i] = make([]Cell, width)
	}
	return &Board{
		Cells:   cells,
		Width:   width,
		Height:  height,
		Visible: visible,
	}, nil
}

// Buffer returns the number of hidden rows above the visible area.
func (b *Board) Buffer() int {
	return b.Height - b.Visible
}

func (b *Board) inBounds(x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

// Get returns the cell at x, y. Out of bounds reads return CellGarbage so
// callers treating the border as solid need no special case.
func (b *Board) Get(x, y int) Cell {
	if !b.inBounds(x, y) {
		return CellGarbage
	}
	return b.Cells[y][x]
}

// Set writes a cell. Writes outside the board are ignored.
func (b *Board) Set(x, y int, c Cell) {
	if b.inBounds(x, y) {
		b.Cells[y][x] = c
	}
}

// TestCollision reports whether any mino of p is outside the board or on a
// solid cell.
func (b *Board) TestCollision(p Piece) bool {
	for _, m := range p.Minos {
		x, y := p.X+m.X, p.Y+m.Y
		if !b.inBounds(x, y) {
			return true
		}
		if b.Cells[y][x].Solid() {
			return true
		}
	}
	return false
}

// Lock writes the piece into the board as its type's tag. Locking a piece
// that collides is a programming error.
func (b *Board) Lock(p Piece) {
	if b.TestCollision(p) {
		panic(fmt.Sprintf("game: lock of colliding piece %s", p))
	}
	for _, m := range p.Minos {
		b.Cells[p.Y+m.Y][p.X+m.X] = p.Type.Cell()
	}
}

// ClearLines removes every full row at once and shifts the rows above down.
func (b *Board) ClearLines() ClearResult {
	var cleared []int
	kept := make([][]Cell, 0, b.Height)

	for y := 0; y < b.Height; y++ {
		if b.rowFull(y) {
			cleared = append(cleared, y)
			continue
		}
		kept = append(kept, b.Cells[y])
	}
	if len(cleared) == 0 {
		return ClearResult{}
	}

	fresh := make([][]Cell, 0, b.Height)
	for len(fresh)+len(kept) < b.Height {
		fresh = append(fresh, make([]Cell, b.Width))
	}
	b.Cells = append(fresh, kept...)

	return ClearResult{Rows: cleared, Count: len(cleared)}
}

func (b *Board) rowFull(y int) bool {
	for _, c := range b.Cells[y] {
		if c == CellEmpty || c == CellGhost {
			return false
		}
	}
	return true
}

// InjectGarbage pushes rows in at the bottom, shifting existing contents up.
// Rows pushed past the top are discarded; the result reports whether any of
// them held a solid cell. Rows of the wrong width are padded or truncated.
func (b *Board) InjectGarbage(rows [][]Cell) bool {
	if len(rows) == 0 {
		return false
	}
	n := min(len(rows), b.Height)
	rows = rows[len(rows)-n:]

	overflow := false
	for y := 0; y < n; y++ {
		for _, c := range b.Cells[y] {
			if c.Solid() {
				overflow = true
			}
		}
	}

	shifted := make([][]Cell, 0, b.Height)
	shifted = append(shifted, b.Cells[n:]...)
	for _, row := range rows {
		line := make([]Cell, b.Width)
		copy(line, row)
		shifted = append(shifted, line)
	}
	b.Cells = shifted
	return overflow
}

// GarbageRow builds one garbage row with a single empty column.
func GarbageRow(width, hole int) []Cell {
	row := make([]Cell, width)
	for x := range row {
		if x != hole {
			row[x] = CellGarbage
		}
	}
	return row
}

// IsEmpty reports whether no cell on the board is solid.
func (b *Board) IsEmpty() bool {
	for _, row := range b.Cells {
		for _, c := range row {
			if c.Solid() {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	cells := make([][]Cell, len(b.Cells))
	for i, row := range b.Cells {
		cells[i] = append([]Cell(nil), row...)
	}
	return &Board{Cells: cells, Width: b.Width, Height: b.Height, Visible: b.Visible}
}

// VisibleCells returns a copy of the visible rows, top to bottom.
func (b *Board) VisibleCells() [][]Cell {
	out := make([][]Cell, b.Visible)
	for i := range out {
		out[i] = append([]Cell(nil), b.Cells[b.Buffer()+i]...)
	}
	return out
}

// ToFlat returns the visible board as a flat row-major array of cell tags.
func (b *Board) ToFlat() []int {
	flat := make([]int, b.Visible*b.Width)
	off := b.Buffer()
	for y := 0; y < b.Visible; y++ {
		for x := 0; x < b.Width; x++ {
			flat[y*b.Width+x] = int(b.Cells[off+y][x])
		}
	}
	return flat
}

// BoardFromFlat rebuilds a board from a flat visible array; the buffer rows
// are left empty.
func BoardFromFlat(flat []int, width, visible, buffer int) (*Board, error) {
	b, err := NewBoard(width, visible, buffer)
	if err != nil {
		return nil, err
	}
	for y := 0; y < visible; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if idx < len(flat) && flat[idx] > 0 && flat[idx] <= int(CellGarbage) {
				b.Cells[buffer+y][x] = Cell(flat[idx])
			}
		}
	}
	return b, nil
}

func (b *Board) String() string {
	buf := make([]byte, 0, b.Height*(b.Width+1))
	for _, row := range b.Cells {
		for _, c := range row {
			buf = append(buf, c.String()...)
		}
		buf = append(buf, '\n')
	}
	return string(buf[:len(buf)-1])
}
