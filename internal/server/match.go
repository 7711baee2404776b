package server

import (
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hersh/tetriscore/internal/player"
	"github.com/hersh/tetriscore/internal/protocol"
)

type MatchPhase int

const (
	PhaseLobby MatchPhase = iota
	PhaseCountdown
	PhasePlaying
	PhaseGameOver
)

func (p MatchPhase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	case PhaseGameOver:
		return "game_over"
	}
	return "unknown"
}

// Match runs one lobby and the rounds played from it. All game simulation
// happens on the clients; the match relays snapshots, routes attacks and
// decides who is left standing.
type Match struct {
	mu      sync.Mutex
	id      string
	opts    Options
	phase   MatchPhase
	lobby   *player.Lobby
	clients map[string]*client
	rng     *rand.Rand
	// round increments on every start so stale timers can tell they are stale.
	round int
	seed  int64
	// lastHit maps a victim to the last player who sent them garbage.
	lastHit map[string]string
	stop    chan struct{}
}

func newMatch(id string, opts Options, rng *rand.Rand) *Match {
	return &Match{
		id:      id,
		opts:    opts,
		phase:   PhaseLobby,
		lobby:   player.NewLobby(),
		clients: make(map[string]*client),
		rng:     rng,
		lastHit: make(map[string]string),
		stop:    make(chan struct{}),
	}
}

// Phase reports where the match is in its cycle.
func (m *Match) Phase() MatchPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// close stops every background loop of the match.
func (m *Match) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

func (m *Match) join(c *client, name string) {
	m.mu.Lock()
	if m.phase != PhaseLobby {
		m.mu.Unlock()
		c.send(protocol.MsgError, protocol.ErrorPayload{Message: "match in progress"})
		return
	}
	if _, ok := m.lobby.GetPlayer(c.id); ok {
		m.lobby.SetName(c.id, name)
	} else {
		m.lobby.AddPlayer(c.id, name)
	}
	m.clients[c.id] = c
	m.mu.Unlock()

	log.Printf("Player %s (%s) joined match %s", name, c.id, m.id)
	m.broadcastLobbyUpdate()
}

func (m *Match) remove(id string) {
	m.mu.Lock()
	if _, ok := m.clients[id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, id)
	m.lobby.RemovePlayer(id)

	switch m.phase {
	case PhasePlaying:
		m.checkWinCondition()
	case PhaseCountdown:
		if !m.canStart() {
			m.phase = PhaseLobby
			m.round++
		}
	}
	m.mu.Unlock()

	m.broadcastLobbyUpdate()
}

func (m *Match) setReady(id string, ready bool) {
	m.mu.Lock()
	if m.phase != PhaseLobby {
		m.mu.Unlock()
		return
	}
	m.lobby.SetPlayerReady(id, ready)
	start := m.canStart()
	if start {
		m.phase = PhaseCountdown
		m.round++
	}
	round := m.round
	m.mu.Unlock()

	m.broadcastLobbyUpdate()
	if start {
		go m.runCountdown(round)
	}
}

// canStart must be called with m.mu held.
func (m *Match) canStart() bool {
	n := m.lobby.Count()
	return n >= m.opts.MinPlayers && m.lobby.CountReady() == n
}

func (m *Match) runCountdown(round int) {
	for i := m.opts.Countdown; i > 0; i-- {
		if !m.inRound(round, PhaseCountdown) {
			return
		}
		m.broadcast(protocol.MsgCountdown, protocol.CountdownPayload{Value: i})
		select {
		case <-time.After(m.opts.CountdownTick):
		case <-m.stop:
			return
		}
	}
	m.startGame(round)
}

func (m *Match) inRound(round int, phase MatchPhase) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.round == round && m.phase == phase
}

func (m *Match) startGame(round int) {
	m.mu.Lock()
	if m.round != round || m.phase != PhaseCountdown {
		m.mu.Unlock()
		return
	}
	m.phase = PhasePlaying
	m.seed = m.rng.Int64()
	m.lobby.Reset()
	clear(m.lastHit)

	cfg := m.opts.Game
	cfg.Seed = m.seed
	var playerIDs []string
	for _, p := range m.lobby.GetAllPlayers() {
		playerIDs = append(playerIDs, p.ID)
	}
	for _, c := range m.clients {
		c.setSnapshot(nil)
	}
	m.mu.Unlock()

	log.Printf("match %s: round %d started with seed %d", m.id, round, cfg.Seed)
	m.broadcast(protocol.MsgGameStart, protocol.GameStartPayload{
		Preset:  m.opts.Preset,
		Config:  cfg,
		Players: playerIDs,
	})

	go m.broadcastLoop(round)
}

// broadcastLoop sends opponent updates every BroadcastInterval until the
// round ends.
func (m *Match) broadcastLoop(round int) {
	ticker := time.NewTicker(m.opts.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !m.inRound(round, PhasePlaying) {
				return
			}
			m.sendOpponentUpdates()
		case <-m.stop:
			return
		}
	}
}

// sendOpponentUpdates sends each player everyone else's latest state.
func (m *Match) sendOpponentUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()

	players := m.lobby.GetAllPlayers()
	states := make([]protocol.OpponentState, 0, len(players))
	for _, p := range players {
		state := protocol.OpponentState{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Alive:      p.IsAlive,
		}
		if c := m.clients[p.ID]; c != nil {
			if snap := c.latest(); snap != nil {
				state.Score = snap.Score
				state.Level = snap.Level
				state.Lines = snap.Lines
				state.Width = snap.Width
				state.Board = snap.Board
				state.Alive = p.IsAlive && snap.Alive
			}
		}
		states = append(states, state)
	}

	for _, c := range m.clients {
		opponents := make([]protocol.OpponentState, 0, len(states))
		for _, s := range states {
			if s.PlayerID != c.id {
				opponents = append(opponents, s)
			}
		}
		c.send(protocol.MsgOpponentUpdate, protocol.OpponentUpdatePayload{Opponents: opponents})
	}
}

func (m *Match) broadcast(t protocol.MessageType, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		c.send(t, payload)
	}
}

func (m *Match) broadcastLobbyUpdate() {
	var players []protocol.LobbyPlayer
	for _, p := range m.lobby.GetAllPlayers() {
		players = append(players, protocol.LobbyPlayer{
			PlayerID: p.ID,
			Name:     p.Name,
			Seat:     p.Seat,
			Ready:    p.Ready,
		})
	}
	m.broadcast(protocol.MsgLobbyUpdate, protocol.LobbyUpdatePayload{Players: players})
}

func (m *Match) updateSnapshot(id string, snap protocol.BoardSnapshotPayload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.clients[id]; c != nil && m.phase == PhasePlaying {
		c.setSnapshot(&snap)
	}
}

// handleLinesCleared routes an attack to a random live opponent.
func (m *Match) handleLinesCleared(attackerID string, payload protocol.LinesClearedPayload) {
	if payload.AttackPower <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhasePlaying {
		return
	}
	if p, ok := m.lobby.GetPlayer(attackerID); !ok || !p.IsAlive {
		return
	}

	targetID := m.lobby.RandomAliveTarget(attackerID, m.rng)
	if target := m.clients[targetID]; target != nil {
		m.lastHit[targetID] = attackerID
		target.send(protocol.MsgReceiveGarbage, protocol.ReceiveGarbagePayload{
			Lines:      payload.AttackPower,
			AttackerID: attackerID,
		})
	}
}

// handlePlayerDead eliminates a player and checks for a winner.
func (m *Match) handlePlayerDead(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhasePlaying {
		return
	}
	if _, ok := m.lobby.Eliminate(id); ok {
		if killer, hit := m.lastHit[id]; hit {
			m.lobby.IncrementKills(killer)
		}
		m.checkWinCondition()
	}
}

// checkWinCondition must be called with m.mu held.
func (m *Match) checkWinCondition() {
	alive := m.lobby.GetAlivePlayers()
	if len(alive) > 1 {
		return
	}

	m.phase = PhaseGameOver
	var winner player.Player
	if len(alive) == 1 {
		winner = alive[0]
	}
	for _, p := range m.lobby.GetAllPlayers() {
		rank := p.Rank
		if p.ID == winner.ID {
			rank = 1
		}
		if c := m.clients[p.ID]; c != nil {
			c.send(protocol.MsgMatchOver, protocol.MatchOverPayload{
				WinnerID:   winner.ID,
				WinnerName: winner.Name,
				YourRank:   rank,
				Kills:      p.Kills,
			})
		}
	}
	log.Printf("match %s: round %d won by %q", m.id, m.round, winner.Name)

	go m.resetLater(m.round)
}

func (m *Match) resetLater(round int) {
	select {
	case <-time.After(m.opts.ResetDelay):
	case <-m.stop:
		return
	}

	m.mu.Lock()
	if m.round != round || m.phase != PhaseGameOver {
		m.mu.Unlock()
		return
	}
	m.phase = PhaseLobby
	m.lobby.Reset()
	m.mu.Unlock()

	m.broadcastLobbyUpdate()
}
