package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hersh/tetriscore/internal/game"
	"github.com/hersh/tetriscore/internal/protocol"
)

var (
	// colors is indexed by game.Cell.
	colors = []string{
		game.CellEmpty:   "0",
		game.CellI:       "51",
		game.CellJ:       "21",
		game.CellL:       "208",
		game.CellO:       "226",
		game.CellS:       "46",
		game.CellT:       "201",
		game.CellZ:       "196",
		game.CellGhost:   "244",
		game.CellGarbage: "245",
	}

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("15"))

	infoStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	notReadyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	gameOverStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	winnerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))
)

func cellColor(c game.Cell) string {
	if int(c) >= 0 && int(c) < len(colors) {
		return colors[c]
	}
	return "248"
}

// RenderCell draws one board square two columns wide.
func RenderCell(c game.Cell) string {
	switch c {
	case game.CellEmpty:
		return "  "
	case game.CellGhost:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(cellColor(c))).Render("[]")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(cellColor(c))).Render("██")
}

// RenderCells draws rows of cells inside the board border.
func RenderCells(rows [][]game.Cell) string {
	var sb strings.Builder
	for y, row := range rows {
		for _, c := range row {
			sb.WriteString(RenderCell(c))
		}
		if y < len(rows)-1 {
			sb.WriteString("\n")
		}
	}
	return boardStyle.Render(sb.String())
}

// RenderBoard draws the visible playfield with the ghost and active piece.
func RenderBoard(g *game.Game) string {
	return RenderCells(g.Playfield())
}

// RenderPiece draws a piece type in its spawn orientation, cropped to its
// minos.
func RenderPiece(rot game.RotationSystem, t game.PieceType, ok bool) string {
	if !ok {
		return "Empty"
	}
	b, err := game.NewBoard(game.DefaultWidth, 4, 4)
	if err != nil {
		return t.String()
	}
	p := rot.Spawn(t, b)

	minX, minY, maxX, maxY := 4, 4, 0, 0
	for _, m := range p.Minos {
		minX, maxX = min(minX, m.X), max(maxX, m.X)
		minY, maxY = min(minY, m.Y), max(maxY, m.Y)
	}
	filled := make(map[game.Mino]bool, len(p.Minos))
	for _, m := range p.Minos {
		filled[m] = true
	}

	var sb strings.Builder
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if filled[game.Mino{X: x, Y: y}] {
				sb.WriteString(RenderCell(t.Cell()))
			} else {
				sb.WriteString("  ")
			}
		}
		if y < maxY {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func RenderInfo(g *game.Game, playerName string) string {
	var sb strings.Builder
	rot := g.Engine().Rotation

	sb.WriteString(titleStyle.Render("TETRISCORE") + "\n\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Player: %s", playerName)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Rules: %s", g.Engine().Name)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Score: %d", g.Score())) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Level: %d", g.Level())) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Lines: %d", g.Lines())) + "\n")
	if g.Combo() > 1 {
		sb.WriteString(infoStyle.Render(fmt.Sprintf("Combo: %d", g.Combo()-1)) + "\n")
	}
	if g.BackToBack() {
		sb.WriteString(infoStyle.Render("Back-to-back") + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(titleStyle.Render("NEXT") + "\n")
	if next := g.Preview(); len(next) > 0 {
		sb.WriteString(RenderPiece(rot, next[0], true) + "\n\n")
	}

	sb.WriteString(titleStyle.Render("HOLD") + "\n")
	held, ok := g.Hold()
	sb.WriteString(RenderPiece(rot, held, ok) + "\n")

	if n := g.PendingGarbage(); n > 0 {
		sb.WriteString("\n")
		sb.WriteString(gameOverStyle.Render(fmt.Sprintf("INCOMING: %d", n)))
	}
	switch g.Status() {
	case game.StatusPaused:
		sb.WriteString("\n" + winnerStyle.Render("PAUSED"))
	case game.StatusGameOver:
		sb.WriteString("\n" + gameOverStyle.Render("OUT: "+g.TopOut().String()))
	}

	return sb.String()
}

func RenderLobby(players []protocol.LobbyPlayer, currentID string) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("=== LOBBY ===") + "\n\n")
	sb.WriteString(infoStyle.Render("Players in lobby:") + "\n\n")

	for _, p := range players {
		status := notReadyStyle.Render("[ ]")
		if p.Ready {
			status = readyStyle.Render("[✓]")
		}

		marker := ""
		if p.PlayerID == currentID {
			marker = " <"
		}

		sb.WriteString(fmt.Sprintf("%s P%d %s%s\n", status, p.Seat, p.Name, marker))
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("Press SPACE to toggle ready") + "\n")
	sb.WriteString(infoStyle.Render("Press Q to quit") + "\n")

	return sb.String()
}

func RenderCountdown(count int) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("51")).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("\n\n\n     %d     \n\n\n", count))
}

func RenderGameOver(isWinner bool, score int, rank int) string {
	if isWinner {
		return winnerStyle.
			Align(lipgloss.Center).
			Render(fmt.Sprintf("\n\n\n     WINNER!     \n     Score: %d     \n\n\n", score))
	}
	return gameOverStyle.
		Align(lipgloss.Center).
		Render(fmt.Sprintf("\n\n\n     GAME OVER     \n     Score: %d     \n     Rank: #%d     \n\n\n", score, rank))
}

// opponentRows is how many bottom rows of an opponent's board are shown.
const opponentRows = 10

// RenderNetOpponentPreview renders the bottom of an opponent's board from a
// network snapshot.
func RenderNetOpponentPreview(opp protocol.OpponentState) string {
	width := opp.Width
	if width <= 0 {
		width = game.DefaultWidth
	}
	rows := len(opp.Board) / width
	start := max(rows-opponentRows, 0)

	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().
		MaxWidth(width).
		Foreground(lipgloss.Color("15")).
		Render(opp.PlayerName) + "\n")

	if !opp.Alive {
		for range opponentRows {
			sb.WriteString(strings.Repeat("·", width) + "\n")
		}
		sb.WriteString(gameOverStyle.Render("OUT"))
		return sb.String()
	}

	for y := start; y < rows; y++ {
		for x := 0; x < width; x++ {
			c := game.Cell(opp.Board[y*width+x])
			if c.Solid() {
				sb.WriteString(lipgloss.NewStyle().
					Foreground(lipgloss.Color(cellColor(c))).
					Render("█"))
			} else {
				sb.WriteString("·")
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(infoStyle.Render(fmt.Sprintf("S:%d L:%d", opp.Score, opp.Lines)))

	return sb.String()
}

// RenderNetOpponents renders a grid of opponent previews from network state.
func RenderNetOpponents(opponents []protocol.OpponentState, maxDisplay int) string {
	if len(opponents) == 0 {
		return ""
	}

	display := opponents
	if len(display) > maxDisplay {
		display = display[:maxDisplay]
	}

	const cols = 4
	var sb strings.Builder
	var row []string
	for _, opp := range display {
		row = append(row, lipgloss.NewStyle().Padding(0, 1).Render(RenderNetOpponentPreview(opp)))
		if len(row) == cols {
			sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...) + "\n")
			row = nil
		}
	}
	if len(row) > 0 {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}

	return sb.String()
}

func RenderWelcome() string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("51")).
		Align(lipgloss.Center).
		Render(`
╔══════════════════════════════╗
║     T E T R I S C O R E      ║
║    Multiplayer Tetris TUI    ║
╚══════════════════════════════╝

   [1] Single Player (Practice)
   [2] Multiplayer (vs Others)

   Press 1/2 or S/ENTER to select
   Press Q to quit
` + RenderControls())
}

func RenderSingleGameOver(g *game.Game) string {
	return gameOverStyle.
		Align(lipgloss.Center).
		Render(fmt.Sprintf("\n\n\n     GAME OVER (%s)     \n     Score: %d     \n     Lines: %d   Pieces: %d     \n\n\n",
			g.TopOut(), g.Score(), g.Lines(), g.Pieces()))
}

func RenderControls() string {
	return infoStyle.Render(`
Controls:
  ← →        Move left/right
  Home End   Slide to the wall
  ↓          Soft drop
  Space      Hard drop
  ↑/X  S  A  Rotate cw, ccw, 180
  Z          Hold piece
  P          Pause (single player)
`)
}
