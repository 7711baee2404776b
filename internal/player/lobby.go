// Package player keeps the roster of a versus lobby.
package player

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/kamstrup/intmap"
)

// Player is one seat in the lobby.
type Player struct {
	ID      string
	Name    string
	Seat    uint32
	Ready   bool
	IsAlive bool
	Kills   int
	// Rank is the finishing place in the last match, 0 while still playing.
	Rank int
}

// Lobby is a concurrency-safe roster. Seats are small integers starting at 1;
// a freed seat is handed to the next player who joins.
type Lobby struct {
	mu    sync.RWMutex
	ids   map[string]uint32
	seats *intmap.Map[uint32, *Player]
}

func NewLobby() *Lobby {
	return &Lobby{
		ids:   make(map[string]uint32),
		seats: intmap.New[uint32, *Player](8),
	}
}

func (l *Lobby) freeSeat() uint32 {
	seat := uint32(1)
	for l.seats.Has(seat) {
		seat++
	}
	return seat
}

// AddPlayer seats a new player, or returns the existing one for a known id.
func (l *Lobby) AddPlayer(id, name string) *Player {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seat, ok := l.ids[id]; ok {
		p, _ := l.seats.Get(seat)
		return p
	}
	player := &Player{
		ID:      id,
		Name:    name,
		Seat:    l.freeSeat(),
		IsAlive: true,
	}
	l.ids[id] = player.Seat
	l.seats.Put(player.Seat, player)
	return player
}

func (l *Lobby) RemovePlayer(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seat, ok := l.ids[id]; ok {
		delete(l.ids, id)
		l.seats.Del(seat)
	}
}

func (l *Lobby) get(id string) *Player {
	seat, ok := l.ids[id]
	if !ok {
		return nil
	}
	p, _ := l.seats.Get(seat)
	return p
}

// GetPlayer returns a copy of the player with the given id.
func (l *Lobby) GetPlayer(id string) (Player, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p := l.get(id)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

// BySeat returns a copy of the player sitting in seat.
func (l *Lobby) BySeat(seat uint32) (Player, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.seats.Get(seat)
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (l *Lobby) SetName(id, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p := l.get(id); p != nil {
		p.Name = name
	}
}

func (l *Lobby) SetPlayerReady(id string, ready bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p := l.get(id); p != nil {
		p.Ready = ready
	}
}

// Eliminate marks a live player dead and gives them the worst place still
// open. It reports false if the player was unknown or already out.
func (l *Lobby) Eliminate(id string) (rank int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.get(id)
	if p == nil || !p.IsAlive {
		return 0, false
	}
	p.Rank = l.countAlive()
	p.IsAlive = false
	return p.Rank, true
}

func (l *Lobby) IncrementKills(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p := l.get(id); p != nil {
		p.Kills++
	}
}

// snapshot copies the players that satisfy keep, ordered by seat.
func (l *Lobby) snapshot(keep func(*Player) bool) []Player {
	l.mu.RLock()
	defer l.mu.RUnlock()

	players := make([]Player, 0, l.seats.Len())
	for _, p := range l.seats.All() {
		if keep == nil || keep(p) {
			players = append(players, *p)
		}
	}
	slices.SortFunc(players, func(a, b Player) int { return int(a.Seat) - int(b.Seat) })
	return players
}

func (l *Lobby) GetAllPlayers() []Player {
	return l.snapshot(nil)
}

func (l *Lobby) GetAlivePlayers() []Player {
	return l.snapshot(func(p *Player) bool { return p.IsAlive })
}

func (l *Lobby) GetReadyPlayers() []Player {
	return l.snapshot(func(p *Player) bool { return p.Ready })
}

func (l *Lobby) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seats.Len()
}

func (l *Lobby) countAlive() int {
	count := 0
	l.seats.ForEach(func(_ uint32, p *Player) bool {
		if p.IsAlive {
			count++
		}
		return true
	})
	return count
}

func (l *Lobby) CountAlive() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.countAlive()
}

func (l *Lobby) CountReady() int {
	return len(l.GetReadyPlayers())
}

// Reset puts every player back in the lobby, alive and not ready.
func (l *Lobby) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seats.ForEach(func(_ uint32, p *Player) bool {
		p.IsAlive = true
		p.Ready = false
		p.Kills = 0
		p.Rank = 0
		return true
	})
}

// RandomAliveTarget picks a live player other than excludeID, or "" if there
// is none.
func (l *Lobby) RandomAliveTarget(excludeID string, rng *rand.Rand) string {
	alive := l.snapshot(func(p *Player) bool { return p.IsAlive && p.ID != excludeID })
	if len(alive) == 0 {
		return ""
	}
	return alive[rng.IntN(len(alive))].ID
}
