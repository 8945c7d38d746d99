package presenter

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

const recentMovesLimit = 10

// Formatter renders API DTOs into terminal text. Sentences come from the
// message catalog; the board grid is drawn here.
type Formatter struct {
	catalog *msgcat.Catalog
	unicode bool
}

// NewFormatter uses the embedded catalog when catalog is nil. unicode selects
// chess glyphs instead of letters for pieces.
func NewFormatter(catalog *msgcat.Catalog, unicode bool) *Formatter {
	if catalog == nil {
		catalog = msgcat.MustDefault()
	}
	return &Formatter{catalog: catalog, unicode: unicode}
}

func (f *Formatter) text(key string, data map[string]any, fallback string) string {
	return f.catalog.Text(key, data, fallback)
}

// Board draws rank 8 at the top, with file letters below. The selected square
// is bracketed and legal targets are marked with '*'.
func (f *Formatter) Board(state *chessdto.SessionState) string {
	if state == nil {
		return ""
	}
	targets := make(map[chessdto.Position]bool, len(state.LegalMoves))
	for _, p := range state.LegalMoves {
		targets[p] = true
	}
	var sb strings.Builder
	for y, row := range state.Board {
		sb.WriteString(fmt.Sprintf("%d ", len(state.Board)-y))
		for x, cell := range row {
			pos := chessdto.Position{X: x, Y: y}
			glyph := f.glyph(cell, x, y)
			switch {
			case state.SelectedSquare != nil && *state.SelectedSquare == pos:
				sb.WriteString("[" + glyph + "]")
			case targets[pos]:
				sb.WriteString("*" + glyph + "*")
			default:
				sb.WriteString(" " + glyph + " ")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  ")
	for x := 0; x < len(state.Board); x++ {
		sb.WriteString(" " + string(rune('a'+x)) + " ")
	}
	return sb.String()
}

var unicodeGlyphs = map[string]string{
	"wK": "♔", "wQ": "♕", "wR": "♖", "wB": "♗", "wN": "♘", "wP": "♙",
	"bK": "♚", "bQ": "♛", "bR": "♜", "bB": "♝", "bN": "♞", "bP": "♟",
}

func (f *Formatter) glyph(p *chessdto.Piece, x, y int) string {
	if p == nil {
		if (x+y)%2 == 0 {
			return "."
		}
		return ":"
	}
	if f.unicode && p.Color != "" {
		key := strings.ToLower(p.Color[:1]) + letterOf(p.Kind)
		if g, ok := unicodeGlyphs[key]; ok {
			return g
		}
	}
	return p.Symbol
}

func letterOf(kind string) string {
	switch strings.ToLower(kind) {
	case "knight":
		return "N"
	case "":
		return ""
	default:
		return strings.ToUpper(kind[:1])
	}
}

// Status is the full view: header, board, turn line and history.
func (f *Formatter) Status(state *chessdto.SessionState) string {
	if state == nil {
		return ""
	}
	var sb strings.Builder
	header := map[string]any{"Mode": state.Mode, "Difficulty": state.Difficulty, "Seq": state.Seq}
	sb.WriteString(f.text("board.header", header, state.Mode))
	sb.WriteString("\n")
	sb.WriteString(f.Board(state))
	sb.WriteString("\n")
	sb.WriteString(f.Turn(state))
	sb.WriteString("\n")
	if state.LastMove != nil {
		sb.WriteString(f.text("board.last_move", map[string]any{"Notation": state.LastMove.Notation}, state.LastMove.Notation))
		sb.WriteString("\n")
	}
	if state.SelectedSquare != nil {
		sb.WriteString(f.text("board.selected", map[string]any{
			"Square": squareName(*state.SelectedSquare),
			"Count":  len(state.LegalMoves),
		}, squareName(*state.SelectedSquare)))
		sb.WriteString("\n")
	}
	if len(state.CapturedPieces) > 0 {
		syms := make([]string, 0, len(state.CapturedPieces))
		for i := range state.CapturedPieces {
			syms = append(syms, f.glyph(&state.CapturedPieces[i], 0, 0))
		}
		sb.WriteString(f.text("board.captured", map[string]any{"Pieces": strings.Join(syms, " ")}, strings.Join(syms, " ")))
		sb.WriteString("\n")
	}
	if len(state.MoveHistory) > 0 {
		moves := formatRecentMoves(state.MoveHistory)
		sb.WriteString(f.text("board.history", map[string]any{"Moves": moves}, moves))
		sb.WriteString("\n")
	}
	if state.UndoDepth > 0 {
		sb.WriteString(f.text("board.undo_depth", map[string]any{"Depth": state.UndoDepth}, ""))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Turn reports who is to move, the computer thinking, or the winner.
func (f *Formatter) Turn(state *chessdto.SessionState) string {
	switch {
	case state.GameOver:
		return f.text("board.game_over", map[string]any{"Winner": state.Winner}, state.Winner+" wins")
	case state.Thinking:
		return f.text("board.thinking", nil, "thinking")
	default:
		return f.text("board.turn", map[string]any{"Player": state.CurrentPlayer, "Check": state.IsCheck}, state.CurrentPlayer)
	}
}

func (f *Formatter) Room(room *chessdto.Room) string {
	if room == nil {
		return ""
	}
	switch room.Status {
	case "LOBBY":
		return f.text("room.waiting", map[string]any{"Code": room.Code}, room.Code)
	default:
		return f.text("room.started", map[string]any{"Code": room.Code, "White": displayName(room.WhiteName, room.WhiteID), "Black": displayName(room.BlackName, room.BlackID)}, room.Code)
	}
}

func (f *Formatter) Created(room *chessdto.Room) string {
	if room == nil {
		return ""
	}
	return f.text("room.created", map[string]any{"Code": room.Code}, room.Code)
}

func (f *Formatter) Lobby(rooms []*chessdto.Room) string {
	if len(rooms) == 0 {
		return f.text("room.lobby_empty", nil, "")
	}
	lines := make([]string, 0, len(rooms))
	for _, r := range rooms {
		lines = append(lines, "• "+f.text("room.lobby_entry", map[string]any{"Code": r.Code, "Creator": displayName(r.CreatorName, r.CreatorID)}, r.Code))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) Relay(r *chessdto.RoomRelay) string {
	if r == nil {
		return ""
	}
	return f.text("room.relay", map[string]any{"Mover": r.Mover, "Notation": r.Notation}, r.Notation)
}

func (f *Formatter) Results(list []*chessdto.GameResult) string {
	if len(list) == 0 {
		return f.text("results.empty", nil, "")
	}
	lines := make([]string, 0, len(list))
	for _, r := range list {
		opening := r.Opening
		if r.ECOCode != "" && opening != "" {
			opening = r.ECOCode + " " + opening
		}
		lines = append(lines, "• "+f.text("results.entry", map[string]any{
			"Date":    r.EndedAt.Format("2006-01-02"),
			"White":   displayName(r.WhiteName, "White"),
			"Black":   displayName(r.BlackName, "Black"),
			"Result":  resultLabel(r.Winner),
			"Plies":   len(r.Moves),
			"Opening": opening,
		}, r.GameID))
	}
	return strings.Join(lines, "\n")
}

// Error turns an API error payload into one line.
func (f *Formatter) Error(e chessdto.ErrorResponse) string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return f.text("errors.internal", nil, e.Code)
}

func formatRecentMoves(moves []string) string {
	start := 0
	if len(moves) > recentMovesLimit {
		start = len(moves) - recentMovesLimit
		if start%2 == 1 {
			start--
		}
	}
	var sb strings.Builder
	if start > 0 {
		sb.WriteString("... ")
	}
	for i := start; i < len(moves); i++ {
		if i%2 == 0 {
			sb.WriteString(fmt.Sprintf("%d. ", i/2+1))
		}
		sb.WriteString(moves[i])
		if i < len(moves)-1 {
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

func squareName(p chessdto.Position) string {
	if p.X < 0 || p.X > 7 || p.Y < 0 || p.Y > 7 {
		return fmt.Sprintf("%d,%d", p.X, p.Y)
	}
	return fmt.Sprintf("%c%d", 'a'+p.X, 8-p.Y)
}

func displayName(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}

func resultLabel(winner string) string {
	switch strings.ToLower(winner) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	default:
		return "*"
	}
}
