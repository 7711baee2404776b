package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/hersh/tetriscore/internal/game"
	"github.com/hersh/tetriscore/internal/replay"
)

// MaxMessageSize is the largest message either side reads. A bigger message
// closes the connection.
const MaxMessageSize = 4 << 20

// MessageType identifies the kind of message sent over the wire.
type MessageType string

const (
	// Server -> Client messages
	MsgAssignID       MessageType = "assign_id"
	MsgGameStart      MessageType = "game_start"
	MsgCountdown      MessageType = "countdown"
	MsgOpponentUpdate MessageType = "opponent_update"
	MsgReceiveGarbage MessageType = "receive_garbage"
	MsgLobbyUpdate    MessageType = "lobby_update"
	MsgMatchOver      MessageType = "match_over"
	MsgReplaySaved    MessageType = "replay_saved"
	MsgError          MessageType = "error"

	// Client -> Server messages
	MsgJoin          MessageType = "join"
	MsgReady         MessageType = "ready"
	MsgBoardSnapshot MessageType = "board_snapshot"
	MsgLinesCleared  MessageType = "lines_cleared"
	MsgPlayerDead    MessageType = "player_dead"
	MsgSubmitReplay  MessageType = "submit_replay"
)

// Envelope is the top-level wire format for all messages.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

// Incoming is an envelope whose payload has not been decoded yet.
type Incoming struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode marshals a message of type t.
func Encode(t MessageType, payload any) ([]byte, error) {
	data, err := json.Marshal(Envelope{Type: t, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return data, nil
}

// Parse splits a raw message into its type and undecoded payload.
func Parse(data []byte) (Incoming, error) {
	var in Incoming
	if err := json.Unmarshal(data, &in); err != nil {
		return Incoming{}, fmt.Errorf("parse envelope: %w", err)
	}
	if in.Type == "" {
		return Incoming{}, fmt.Errorf("parse envelope: missing type")
	}
	return in, nil
}

// Decode unmarshals the payload into target. An empty payload leaves target
// untouched.
func (in Incoming) Decode(target any) error {
	if len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(in.Payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", in.Type, err)
	}
	return nil
}

// --- Server -> Client payloads ---

// AssignIDPayload is sent when a client first connects.
type AssignIDPayload struct {
	PlayerID string `json:"player_id"`
}

// GameStartPayload tells all clients to begin the game. Every client builds
// its game from the same preset and config, so they all draw the same
// pieces.
type GameStartPayload struct {
	Preset  string      `json:"preset"`
	Config  game.Config `json:"config"`
	Players []string    `json:"players"` // list of player IDs in the match
}

// CountdownPayload carries the countdown tick value.
type CountdownPayload struct {
	Value int `json:"value"`
}

// OpponentState is a compressed snapshot of one opponent's board.
type OpponentState struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	Level      int    `json:"level"`
	Lines      int    `json:"lines"`
	Alive      bool   `json:"alive"`
	Width      int    `json:"width"`
	// Board is the visible playfield, row-major, one cell tag per entry.
	Board []int `json:"board"`
}

// OpponentUpdatePayload carries snapshots of all opponents.
type OpponentUpdatePayload struct {
	Opponents []OpponentState `json:"opponents"`
}

// ReceiveGarbagePayload tells a client to queue incoming garbage.
type ReceiveGarbagePayload struct {
	Lines      int    `json:"lines"`
	AttackerID string `json:"attacker_id"`
}

// LobbyPlayer is one player entry in a lobby update.
type LobbyPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seat     uint32 `json:"seat"`
	Ready    bool   `json:"ready"`
}

// LobbyUpdatePayload is sent whenever the lobby state changes.
type LobbyUpdatePayload struct {
	Players []LobbyPlayer `json:"players"`
}

// MatchOverPayload is sent when the match concludes (last player standing).
type MatchOverPayload struct {
	WinnerID   string `json:"winner_id"`
	WinnerName string `json:"winner_name"`
	YourRank   int    `json:"your_rank"`
	Kills      int    `json:"kills"`
}

// ReplaySavedPayload acknowledges a verified replay.
type ReplaySavedPayload struct {
	ID    int64 `json:"id"`
	Score int   `json:"score"`
}

// ErrorPayload reports a rejected request.
type ErrorPayload struct {
	Message string `json:"message"`
}

// --- Client -> Server payloads ---

// JoinPayload is sent when a client wants to join the match.
type JoinPayload struct {
	PlayerName string `json:"player_name"`
}

// ReadyPayload toggles ready status.
type ReadyPayload struct {
	Ready bool `json:"ready"`
}

// BoardSnapshotPayload is the client's current board state.
type BoardSnapshotPayload struct {
	Score int   `json:"score"`
	Level int   `json:"level"`
	Lines int   `json:"lines"`
	Alive bool  `json:"alive"`
	Width int   `json:"width"`
	Board []int `json:"board"`
}

// LinesClearedPayload informs the server that lines were cleared.
type LinesClearedPayload struct {
	Count       int `json:"count"`
	AttackPower int `json:"attack_power"`
}

// PlayerDeadPayload informs the server this player has died.
type PlayerDeadPayload struct{}

// SubmitReplayPayload hands a finished game to the server for verification
// and storage.
type SubmitReplayPayload struct {
	PlayerName string     `json:"player_name"`
	Log        replay.Log `json:"log"`
}

// Snapshot builds the snapshot a client sends for g.
func Snapshot(g *game.Game) BoardSnapshotPayload {
	return BoardSnapshotPayload{
		Score: g.Score(),
		Level: g.Level(),
		Lines: g.Lines(),
		Alive: g.Status() != game.StatusGameOver,
		Width: g.Config().Width,
		Board: g.Board().ToFlat(),
	}
}
