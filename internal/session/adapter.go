package session

import (
	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

// ToDTO converts a view into the API's session state.
func ToDTO(v *View) *chessdto.SessionState {
	if v == nil || v.State == nil {
		return nil
	}
	s := v.State
	out := &chessdto.SessionState{
		SessionID:      v.ID,
		Seq:            v.Seq,
		Board:          BoardDTO(s.Board),
		CurrentPlayer:  s.CurrentPlayer.String(),
		LegalMoves:     positionsDTO(s.LegalMoves),
		MoveHistory:    append([]string{}, s.MoveHistory...),
		CapturedPieces: []chessdto.Piece{},
		IsCheck:        s.IsCheck,
		GameOver:       s.GameOver,
		Mode:           string(s.Config.Mode),
		Difficulty:     string(s.Config.Difficulty),
		PlayerColor:    s.Config.PlayerColor.String(),
		GameID:         s.Config.GameID,
		UndoDepth:      v.UndoDepth,
		Thinking:       v.Thinking,
		LastMove:       MoveDTO(v.LastMove),
	}
	if s.SelectedSquare != nil {
		p := positionDTO(*s.SelectedSquare)
		out.SelectedSquare = &p
	}
	if s.Winner != nil {
		out.Winner = s.Winner.String()
	}
	if s.Board != nil {
		for _, p := range s.Board.Captured() {
			out.CapturedPieces = append(out.CapturedPieces, pieceDTO(p))
		}
	}
	return out
}

// BoardDTO flattens the board into rows of nullable pieces.
func BoardDTO(b *chess.Board) [][]*chessdto.Piece {
	rows := make([][]*chessdto.Piece, chess.BoardSize)
	for y := range rows {
		rows[y] = make([]*chessdto.Piece, chess.BoardSize)
	}
	if b == nil {
		return rows
	}
	b.Pieces(func(pos chess.Position, p chess.Piece) bool {
		dto := pieceDTO(p)
		rows[pos.Y][pos.X] = &dto
		return true
	})
	return rows
}

func MoveDTO(rec *chess.MoveRecord) *chessdto.MoveRecord {
	if rec == nil {
		return nil
	}
	out := &chessdto.MoveRecord{
		From:     positionDTO(rec.From),
		To:       positionDTO(rec.To),
		Notation: rec.Notation,
		Piece:    pieceDTO(rec.Piece),
		Check:    rec.Check,
		GameOver: rec.GameOver,
	}
	if rec.IsCapture() {
		c := pieceDTO(rec.Captured)
		out.Captured = &c
	}
	return out
}

func EventDTO(ev Event) chessdto.Event {
	out := chessdto.Event{
		Kind:  string(ev.Kind),
		State: ToDTO(ev.View),
		Move:  MoveDTO(ev.Move),
	}
	if ev.View != nil {
		out.SessionID = ev.View.ID
		out.Seq = ev.View.Seq
	}
	return out
}

func pieceDTO(p chess.Piece) chessdto.Piece {
	return chessdto.Piece{Kind: p.Kind.String(), Color: p.Color.String(), Symbol: p.Symbol()}
}

func positionDTO(p chess.Position) chessdto.Position { return chessdto.Position{X: p.X, Y: p.Y} }

func positionsDTO(in []chess.Position) []chessdto.Position {
	out := make([]chessdto.Position, 0, len(in))
	for _, p := range in {
		out = append(out, positionDTO(p))
	}
	return out
}
