package game

import (
	"math/rand/v2"
	"slices"
)

// Randomizer produces the next group of pieces appended to a queue. It must
// be stateless: all randomness comes from the generator it is handed.
type Randomizer interface {
	Name() string
	Fill(rng *rand.Rand) []PieceType
}

// SevenBag is the guideline random generator: every group is a uniformly
// shuffled permutation of all seven piece types.
type SevenBag struct{}

func (SevenBag) Name() string { return "7-bag" }

func (SevenBag) Fill(rng *rand.Rand) []PieceType {
	bag := slices.Clone(AllPieceTypes[:])
	// Fisher-Yates shuffle
	for i := len(bag) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		bag[i], bag[j] = bag[j], bag[i]
	}
	return bag
}

// Chaotic draws every piece independently with no protection against runs.
type Chaotic struct{}

func (Chaotic) Name() string { return "chaotic" }

func (Chaotic) Fill(rng *rand.Rand) []PieceType {
	out := make([]PieceType, len(AllPieceTypes))
	for i := range out {
		out[i] = AllPieceTypes[rng.IntN(len(AllPieceTypes))]
	}
	return out
}

// Queue is the sequence of upcoming pieces for one game. It has value
// semantics: the generator state is a plain PCG value, so Clone yields a
// fully independent queue that continues the identical sequence.
type Queue struct {
	randomizer Randomizer
	seed       int64
	initial    []PieceType
	pcg        rand.PCG
	pieces     []PieceType
	drawn      int
}

// NewQueue creates a queue whose generated pieces follow initial, if given.
func NewQueue(r Randomizer, seed int64, initial ...PieceType) *Queue {
	q := &Queue{
		randomizer: r,
		seed:       seed,
		initial:    slices.Clone(initial),
		pcg:        *rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15),
	}
	q.pieces = slices.Clone(initial)
	return q
}

// Seed returns the seed the queue was built with.
func (q *Queue) Seed() int64 {
	return q.seed
}

// Initial returns the fixed pieces that preceded generation.
func (q *Queue) Initial() []PieceType {
	return slices.Clone(q.initial)
}

// Drawn returns how many pieces have been popped so far.
func (q *Queue) Drawn() int {
	return q.drawn
}

// Randomizer returns the group generator feeding the queue.
func (q *Queue) Randomizer() Randomizer {
	return q.randomizer
}

func (q *Queue) fill(n int) {
	for len(q.pieces) < n {
		group := q.randomizer.Fill(rand.New(&q.pcg))
		if len(group) == 0 {
			panic("game: randomizer " + q.randomizer.Name() + " produced no pieces")
		}
		q.pieces = append(q.pieces, group...)
	}
}

// Peek returns the next n pieces without consuming them, generating more
// groups as needed.
func (q *Queue) Peek(n int) []PieceType {
	if n <= 0 {
		return nil
	}
	q.fill(n)
	return slices.Clone(q.pieces[:n])
}

// Pop removes and returns the front piece.
func (q *Queue) Pop() PieceType {
	q.fill(1)
	t := q.pieces[0]
	q.pieces = q.pieces[1:]
	q.drawn++
	return t
}

// Clone returns an independent copy positioned at the same point.
func (q *Queue) Clone() *Queue {
	cp := *q
	cp.initial = slices.Clone(q.initial)
	cp.pieces = slices.Clone(q.pieces)
	return &cp
}

// Skip pops n pieces, used to restore a queue to a saved position.
func (q *Queue) Skip(n int) {
	for i := 0; i < n; i++ {
		q.Pop()
	}
}
