package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hersh/tetriscore/internal/game"
	"github.com/hersh/tetriscore/internal/netclient"
	"github.com/hersh/tetriscore/internal/protocol"
	"github.com/hersh/tetriscore/internal/replay"
)

// --- Custom tea.Msg types ---

type TickMsg time.Time

// GameTickMsg drives the game clock. Gen identifies the game it was
// scheduled for so ticks of an abandoned game die out.
type GameTickMsg struct {
	Gen int
	At  time.Time
}

// SnapshotTickMsg triggers sending board snapshots to the server.
type SnapshotTickMsg struct {
	Gen int
}

// --- Screens and modes ---

type Screen int

const (
	ScreenConnecting Screen = iota
	ScreenWelcome
	ScreenLobby
	ScreenCountdown
	ScreenPlaying
	ScreenGameOver
)

type GameMode int

const (
	ModeNone GameMode = iota
	ModeSingle
	ModeMulti
)

// Settings picks the rules of single player games and the pace of the
// game clock.
type Settings struct {
	Preset   string
	Game     game.Config
	TickRate time.Duration
}

// DefaultSettings plays the modern preset on a standard board at 60Hz.
func DefaultSettings() Settings {
	return Settings{
		Preset:   "modern",
		Game:     game.DefaultConfig(),
		TickRate: 16 * time.Millisecond,
	}
}

// --- Model ---

type Model struct {
	screen     Screen
	mode       GameMode
	playerID   string
	playerName string
	settings   Settings
	width      int
	height     int
	countdown  int

	// Local game, recorded so it can be submitted as a replay.
	rec      *replay.Recorder
	gen      int
	lastTick time.Time
	// carry is wall time not yet fed to the game as a whole step.
	carry    time.Duration
	deadSent bool

	// Network
	client *netclient.Client

	// Lobby state (from server)
	lobbyPlayers []protocol.LobbyPlayer

	// Multiplayer state
	opponents    []protocol.OpponentState
	matchPlayers []string
	ready        bool
	matchResult  *protocol.MatchOverPayload
	saved        *protocol.ReplaySavedPayload
	notice       string

	// Error
	err          error
	disconnected bool
}

// NewModel creates a model for the client TUI.
// If client is nil, only single-player mode is available.
func NewModel(playerName string, client *netclient.Client, settings Settings) Model {
	screen := ScreenConnecting
	if client == nil {
		screen = ScreenWelcome
	}
	if settings.TickRate <= 0 {
		settings.TickRate = DefaultSettings().TickRate
	}
	return Model{
		screen:     screen,
		playerName: playerName,
		settings:   settings,
		client:     client,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func gameTickCmd(gen int, rate time.Duration) tea.Cmd {
	return tea.Tick(rate, func(t time.Time) tea.Msg {
		return GameTickMsg{Gen: gen, At: t}
	})
}

func snapshotTickCmd(gen int) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return SnapshotTickMsg{Gen: gen}
	})
}

// Game returns the local game, or nil before one has started.
func (m Model) Game() *game.Game {
	if m.rec == nil {
		return nil
	}
	return m.rec.Game()
}

func (m Model) Screen() Screen { return m.screen }

// startGame builds a recorded game and starts its clock.
func (m Model) startGame(preset string, cfg game.Config) (Model, tea.Cmd) {
	engine, err := game.Preset(preset)
	if err != nil {
		m.err = err
		return m, nil
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	rec, err := replay.NewRecorder(engine, cfg)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.rec = rec
	m.gen++
	m.lastTick = time.Time{}
	m.carry = 0
	m.deadSent = false
	m.saved = nil
	m.notice = ""
	m.screen = ScreenPlaying

	cmds := []tea.Cmd{gameTickCmd(m.gen, m.settings.TickRate)}
	if m.mode == ModeMulti {
		cmds = append(cmds, snapshotTickCmd(m.gen))
	}
	return m, tea.Batch(cmds...)
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case TickMsg:
		return m, tickCmd()
	case GameTickMsg:
		return m.handleGameTick(msg)
	case SnapshotTickMsg:
		return m.handleSnapshotTick(msg)

	// Network messages
	case netclient.ConnectedMsg:
		m.playerID = msg.PlayerID
		m.screen = ScreenWelcome
		return m, nil
	case netclient.DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
		return m, nil
	case netclient.ServerMsg:
		return m.handleServerMsg(msg)
	}
	return m, nil
}

// --- Network message handlers ---

func (m Model) handleServerMsg(msg netclient.ServerMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case protocol.MsgLobbyUpdate:
		var payload protocol.LobbyUpdatePayload
		if msg.Decode(&payload) == nil {
			m.lobbyPlayers = payload.Players
		}

	case protocol.MsgCountdown:
		var payload protocol.CountdownPayload
		if msg.Decode(&payload) == nil {
			m.countdown = payload.Value
			m.screen = ScreenCountdown
		}

	case protocol.MsgGameStart:
		var payload protocol.GameStartPayload
		if msg.Decode(&payload) == nil {
			m.mode = ModeMulti
			m.matchPlayers = payload.Players
			m.matchResult = nil
			m.opponents = nil
			return m.startGame(payload.Preset, payload.Config)
		}

	case protocol.MsgOpponentUpdate:
		var payload protocol.OpponentUpdatePayload
		if msg.Decode(&payload) == nil {
			m.opponents = payload.Opponents
		}

	case protocol.MsgReceiveGarbage:
		var payload protocol.ReceiveGarbagePayload
		if msg.Decode(&payload) == nil && m.rec != nil {
			// Queued until the next lock, where it may be cancelled.
			m.rec.ReceiveGarbage(payload.Lines)
		}

	case protocol.MsgMatchOver:
		var payload protocol.MatchOverPayload
		if msg.Decode(&payload) == nil {
			m.matchResult = &payload
			m.screen = ScreenGameOver
		}

	case protocol.MsgReplaySaved:
		var payload protocol.ReplaySavedPayload
		if msg.Decode(&payload) == nil {
			m.saved = &payload
		}

	case protocol.MsgError:
		var payload protocol.ErrorPayload
		if msg.Decode(&payload) == nil {
			m.notice = payload.Message
		}
	}

	return m, nil
}

func (m Model) send(t protocol.MessageType, payload any) {
	if m.client != nil {
		m.client.Send(t, payload)
	}
}

// --- Key handlers ---

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.client != nil {
			m.client.Close()
		}
		return m, tea.Quit
	case "q":
		if m.screen == ScreenPlaying {
			// Don't quit during gameplay with q
			break
		}
		if m.client != nil {
			m.client.Close()
		}
		return m, tea.Quit
	}

	switch m.screen {
	case ScreenWelcome:
		return m.handleWelcomeKeys(msg)
	case ScreenLobby:
		return m.handleLobbyKeys(msg)
	case ScreenPlaying:
		return m.handlePlayingKeys(msg)
	case ScreenGameOver:
		return m.handleGameOverKeys(msg)
	}
	return m, nil
}

func (m Model) handleWelcomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "1", "s":
		// Single player - local only, no network
		m.mode = ModeSingle
		if m.playerID == "" {
			m.playerID = "local"
		}
		return m.startGame(m.settings.Preset, m.settings.Game)
	case "2", "enter":
		// Multiplayer - join the server lobby
		if m.client == nil {
			return m, nil
		}
		m.mode = ModeMulti
		m.screen = ScreenLobby
		m.ready = false
		m.send(protocol.MsgJoin, protocol.JoinPayload{PlayerName: m.playerName})
		return m, nil
	}
	return m, nil
}

func (m Model) handleLobbyKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == " " {
		m.ready = !m.ready
		m.send(protocol.MsgReady, protocol.ReadyPayload{Ready: m.ready})
	}
	return m, nil
}

// wallDrag reaches the wall from anywhere on the widest board.
const wallDrag = game.MaxWidth

// MoveForKey maps a key to the move it performs while playing.
func MoveForKey(key string) (game.Move, bool) {
	switch key {
	case "left", "h":
		return game.Left(), true
	case "right", "l":
		return game.Right(), true
	case "down", "j":
		return game.SoftDrop(1), true
	case "up", "x", "k":
		return game.RotateCW(), true
	case "s":
		return game.RotateCCW(), true
	case "a":
		return game.Rotate180(), true
	case " ", "c":
		return game.HardDrop(), true
	case "z":
		return game.Swap(), true
	case "home":
		return game.Drag(-wallDrag), true
	case "end":
		return game.Drag(wallDrag), true
	}
	return game.Move{}, false
}

func (m Model) handlePlayingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.rec == nil {
		return m, nil
	}
	g := m.rec.Game()
	if g.Status() == game.StatusGameOver {
		return m, nil
	}

	if msg.String() == "p" && m.mode == ModeSingle {
		m.rec.Pause(g.Status() == game.StatusPlaying)
		return m, nil
	}
	move, ok := MoveForKey(msg.String())
	if !ok {
		return m, nil
	}
	out, err := m.rec.Push(move)
	if err != nil {
		return m, nil
	}
	return m.afterOutcome(out), nil
}

func (m Model) handleGameOverKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.mode == ModeSingle {
			m.screen = ScreenWelcome
			m.mode = ModeNone
		} else {
			// Return to lobby - wait for server lobby update
			m.screen = ScreenLobby
			m.ready = false
			m.matchResult = nil
			m.opponents = nil
		}
		m.rec = nil
		return m, nil
	case "u":
		if m.rec != nil && m.client != nil && m.saved == nil {
			payload := protocol.SubmitReplayPayload{
				PlayerName: m.playerName,
				Log:        m.rec.Log(),
			}
			if data, err := protocol.Encode(protocol.MsgSubmitReplay, payload); err != nil || len(data) > protocol.MaxMessageSize {
				m.notice = "replay is too large to upload"
				return m, nil
			}
			m.send(protocol.MsgSubmitReplay, payload)
			m.notice = "uploading replay..."
		}
	}
	return m, nil
}

// afterOutcome forwards attacks and deaths to the server.
func (m Model) afterOutcome(out game.Outcome) Model {
	g := m.rec.Game()
	if lock := out.Lock; lock != nil && m.mode == ModeMulti && lock.Sent > 0 {
		m.send(protocol.MsgLinesCleared, protocol.LinesClearedPayload{
			Count:       lock.Lines,
			AttackPower: lock.Sent,
		})
	}
	if g.Status() != game.StatusGameOver {
		return m
	}
	switch m.mode {
	case ModeMulti:
		if !m.deadSent {
			m.deadSent = true
			m.send(protocol.MsgBoardSnapshot, protocol.Snapshot(g))
			m.send(protocol.MsgPlayerDead, protocol.PlayerDeadPayload{})
		}
	case ModeSingle:
		m.screen = ScreenGameOver
	}
	return m
}

// --- Tick handlers ---

func (m Model) handleGameTick(msg GameTickMsg) (tea.Model, tea.Cmd) {
	if msg.Gen != m.gen || m.screen != ScreenPlaying || m.rec == nil {
		return m, nil
	}
	if m.rec.Game().Status() == game.StatusGameOver {
		return m, nil
	}

	// The game advances in whole steps of TickRate so recorded ticks repeat
	// and pack into short replay logs.
	if !m.lastTick.IsZero() {
		m.carry += max(msg.At.Sub(m.lastTick), 0)
	}
	m.lastTick = msg.At
	step := m.settings.TickRate
	for m.carry >= step && m.rec.Game().Status() != game.StatusGameOver {
		m.carry -= step
		m = m.afterOutcome(m.rec.Tick(step))
	}

	return m, gameTickCmd(m.gen, m.settings.TickRate)
}

func (m Model) handleSnapshotTick(msg SnapshotTickMsg) (tea.Model, tea.Cmd) {
	if msg.Gen != m.gen || m.screen != ScreenPlaying || m.mode != ModeMulti || m.rec == nil {
		return m, nil
	}
	m.send(protocol.MsgBoardSnapshot, protocol.Snapshot(m.rec.Game()))
	return m, snapshotTickCmd(m.gen)
}

// --- View ---

func (m Model) View() string {
	if m.disconnected {
		return m.renderCentered("Disconnected from server.\nPress Ctrl+C to exit.")
	}

	switch m.screen {
	case ScreenConnecting:
		return m.renderCentered("Connecting to server...")
	case ScreenWelcome:
		return m.renderCentered(RenderWelcome())
	case ScreenLobby:
		return m.renderCentered(RenderLobby(m.lobbyPlayers, m.playerID))
	case ScreenCountdown:
		return m.renderCentered(RenderCountdown(m.countdown))
	case ScreenPlaying:
		return m.renderPlaying()
	case ScreenGameOver:
		return m.renderGameOver()
	}
	return ""
}

func (m Model) renderCentered(content string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (m Model) renderPlaying() string {
	if m.rec == nil {
		return "Loading..."
	}
	g := m.rec.Game()

	leftPanel := lipgloss.NewStyle().
		Width(24).
		Render(RenderInfo(g, m.playerName))

	centerPanel := lipgloss.NewStyle().
		Padding(1, 2).
		Render(RenderBoard(g))

	panels := []string{leftPanel, centerPanel}
	if m.mode == ModeMulti && len(m.opponents) > 0 {
		if view := RenderNetOpponents(m.opponents, 8); view != "" {
			panels = append(panels, lipgloss.NewStyle().Padding(1, 2).Render(view))
		}
	}

	return m.renderCentered(lipgloss.JoinHorizontal(lipgloss.Top, panels...))
}

func (m Model) renderGameOver() string {
	if m.rec == nil {
		return m.renderCentered("Game Over")
	}
	g := m.rec.Game()

	var content string
	switch {
	case m.mode == ModeSingle:
		content = RenderSingleGameOver(g)
	case m.matchResult != nil:
		content = RenderGameOver(m.matchResult.WinnerID == m.playerID, g.Score(), m.matchResult.YourRank)
	default:
		content = RenderGameOver(false, g.Score(), 0)
	}

	if m.saved != nil {
		content += fmt.Sprintf("\n\nReplay #%d saved (score %d)", m.saved.ID, m.saved.Score)
	} else if m.notice != "" {
		content += "\n\n" + m.notice
	} else if m.client != nil {
		content += "\n\nPress U to upload the replay"
	}
	content += "\n\nPress ENTER to continue"

	return m.renderCentered(content)
}

func (m Model) GetPlayerID() string {
	return m.playerID
}
