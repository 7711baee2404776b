// Package server hosts versus matches over websockets.
//
// Clients run their own game.Game from the preset and seeded config the
// server hands out at game start, stream board snapshots and attacks back,
// and report when they top out. The server routes attacks to a random live
// opponent, ranks players as they die and returns everyone to the lobby once
// one player is left standing. Finished games can be submitted as replay
// logs; the server re-plays them to compute a trusted summary before
// storing them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hersh/tetriscore/internal/config"
	"github.com/hersh/tetriscore/internal/game"
	"github.com/hersh/tetriscore/internal/protocol"
	"github.com/hersh/tetriscore/internal/replay"
	"github.com/hersh/tetriscore/internal/storage/sqlite"
)

const mainMatch = "main"

// ReplayStore persists verified replays.
type ReplayStore interface {
	SaveReplay(ctx context.Context, player string, log replay.Log, sum replay.Summary) (int64, error)
	ListReplays(ctx context.Context, limit int) ([]sqlite.Record, error)
}

// Options tunes match timing and the game every client plays.
type Options struct {
	Preset            string
	Game              game.Config
	MinPlayers        int
	Countdown         int
	CountdownTick     time.Duration
	BroadcastInterval time.Duration
	ResetDelay        time.Duration
	StoreTimeout      time.Duration
}

// DefaultOptions matches the pace of a public server.
func DefaultOptions() Options {
	return Options{
		Preset:            "modern",
		Game:              game.DefaultConfig(),
		MinPlayers:        2,
		Countdown:         3,
		CountdownTick:     time.Second,
		BroadcastInterval: 100 * time.Millisecond,
		ResetDelay:        2 * time.Second,
		StoreTimeout:      5 * time.Second,
	}
}

// FromConfig builds options from the environment configuration.
func FromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	opts.Preset = cfg.Preset
	opts.Game = cfg.Game(0)
	opts.Countdown = int(cfg.Countdown / opts.CountdownTick)
	return opts
}

// Server owns the hub of matches and the HTTP routes in front of it.
type Server struct {
	opts  Options
	store ReplayStore
	hub   *Hub
}

// New validates opts and builds a server. store may be nil, in which case
// replay submissions are refused.
func New(opts Options, store ReplayStore) (*Server, error) {
	if _, err := game.Preset(opts.Preset); err != nil {
		return nil, err
	}
	if opts.MinPlayers < 1 {
		return nil, fmt.Errorf("min players must be positive, got %d", opts.MinPlayers)
	}
	if opts.BroadcastInterval <= 0 {
		return nil, fmt.Errorf("broadcast interval must be positive, got %s", opts.BroadcastInterval)
	}
	cfg, err := opts.Game.Normalize()
	if err != nil {
		return nil, err
	}
	opts.Game = cfg
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultOptions().StoreTimeout
	}
	seed := uint64(time.Now().UnixNano())
	return &Server{
		opts:  opts,
		store: store,
		hub:   newHub(opts, rand.New(rand.NewPCG(seed, seed>>7))),
	}, nil
}

// Handler returns the routes: /ws for players, /health and /replays.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleConnection)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /replays", s.handleReplays)
	return mux
}

// Close stops every match loop. Open connections are left to the HTTP server.
func (s *Server) Close() {
	s.hub.close()
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	c := newClient(s.hub.generatePlayerID(), conn)
	match := s.hub.getOrCreateMatch(mainMatch)

	c.send(protocol.MsgAssignID, protocol.AssignIDPayload{PlayerID: c.id})
	go c.writePump()

	var name string
	c.readPump(func(in protocol.Incoming) {
		s.handleMessage(c, match, &name, in)
	})

	match.remove(c.id)
	c.close()
	log.Printf("Player %s (%s) disconnected", name, c.id)
}

// handleMessage dispatches one client message.
func (s *Server) handleMessage(c *client, match *Match, name *string, in protocol.Incoming) {
	switch in.Type {
	case protocol.MsgJoin:
		var payload protocol.JoinPayload
		if in.Decode(&payload) == nil {
			*name = payload.PlayerName
			match.join(c, payload.PlayerName)
		}

	case protocol.MsgReady:
		var payload protocol.ReadyPayload
		if in.Decode(&payload) == nil {
			match.setReady(c.id, payload.Ready)
		}

	case protocol.MsgBoardSnapshot:
		var payload protocol.BoardSnapshotPayload
		if in.Decode(&payload) == nil {
			match.updateSnapshot(c.id, payload)
		}

	case protocol.MsgLinesCleared:
		var payload protocol.LinesClearedPayload
		if in.Decode(&payload) == nil {
			match.handleLinesCleared(c.id, payload)
		}

	case protocol.MsgPlayerDead:
		match.handlePlayerDead(c.id)

	case protocol.MsgSubmitReplay:
		var payload protocol.SubmitReplayPayload
		if err := in.Decode(&payload); err != nil {
			c.send(protocol.MsgError, protocol.ErrorPayload{Message: err.Error()})
			return
		}
		player := payload.PlayerName
		if player == "" {
			player = *name
		}
		s.submitReplay(c, player, payload.Log)

	default:
		log.Printf("unknown message type %q from %s", in.Type, c.id)
	}
}

// submitReplay re-plays a log and stores it with the summary the server
// computed, never one the client claims.
func (s *Server) submitReplay(c *client, name string, l replay.Log) {
	if s.store == nil {
		c.send(protocol.MsgError, protocol.ErrorPayload{Message: "replays are not stored on this server"})
		return
	}
	if err := s.checkRules(l); err != nil {
		c.send(protocol.MsgError, protocol.ErrorPayload{Message: err.Error()})
		return
	}
	g, err := replay.PlayPreset(l)
	if err != nil {
		c.send(protocol.MsgError, protocol.ErrorPayload{Message: err.Error()})
		return
	}
	sum := replay.Summarize(g)

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StoreTimeout)
	defer cancel()
	id, err := s.store.SaveReplay(ctx, name, l, sum)
	if err != nil {
		log.Printf("save replay from %s: %v", c.id, err)
		c.send(protocol.MsgError, protocol.ErrorPayload{Message: "could not save replay"})
		return
	}

	piece, ok := g.Piece()
	active := &piece
	if !ok {
		active = nil
	}
	log.Printf("replay %d from %q: score %d, board %s", id, name, sum.Score, game.EncodeString(g.Board(), active))
	c.send(protocol.MsgReplaySaved, protocol.ReplaySavedPayload{ID: id, Score: sum.Score})
}

// checkRules accepts only logs played under the preset and config this
// server hands out, so every stored score is comparable.
func (s *Server) checkRules(l replay.Log) error {
	if l.Engine != s.opts.Preset {
		return fmt.Errorf("replay uses %q rules, this server plays %q", l.Engine, s.opts.Preset)
	}
	cfg, err := l.Config.Normalize()
	if err != nil {
		return err
	}
	if !cfg.SameRules(s.opts.Game) {
		return errors.New("replay config does not match this server")
	}
	return nil
}

// replayEntry is the JSON view of a stored replay.
type replayEntry struct {
	ID        int64          `json:"id"`
	Player    string         `json:"player"`
	Summary   replay.Summary `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *Server) handleReplays(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "replays are not stored on this server", http.StatusNotFound)
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.ListReplays(r.Context(), limit)
	if err != nil {
		log.Printf("list replays: %v", err)
		http.Error(w, "could not list replays", http.StatusInternalServerError)
		return
	}
	entries := make([]replayEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, replayEntry{
			ID:        rec.ID,
			Player:    rec.Player,
			Summary:   rec.Summary,
			CreatedAt: rec.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		log.Printf("encode replays: %v", err)
	}
}

// Hub owns the running matches.
type Hub struct {
	mu      sync.Mutex
	opts    Options
	rng     *rand.Rand
	matches map[string]*Match
	nextID  int
}

func newHub(opts Options, rng *rand.Rand) *Hub {
	return &Hub{
		opts:    opts,
		rng:     rng,
		matches: make(map[string]*Match),
	}
}

func (h *Hub) getOrCreateMatch(id string) *Match {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.matches[id]; ok {
		return m
	}
	seed := h.rng.Uint64()
	m := newMatch(id, h.opts, rand.New(rand.NewPCG(seed, h.rng.Uint64())))
	h.matches[id] = m
	return m
}

func (h *Hub) generatePlayerID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	return fmt.Sprintf("player_%d_%d", time.Now().UnixMilli(), h.nextID)
}

func (h *Hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.matches {
		m.close()
	}
}
