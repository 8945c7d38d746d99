package session

import (
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/cheese-chess/internal/chess"
)

var ecoBook = sync.OnceValue(opening.NewBookECO)

// OpeningLabel names the ECO opening reached by history. Replay stops at the
// first entry the standard rules reject.
func OpeningLabel(history []string) (code, title string) {
	if len(history) == 0 {
		return "", ""
	}
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, entry := range history {
		mv, _, err := chess.ParseNotation(entry)
		if err != nil {
			break
		}
		move, err := notation.Decode(game.Position(), strings.ToLower(mv.String()))
		if err != nil {
			break
		}
		if err := game.Move(move, nil); err != nil {
			break
		}
	}
	if len(game.Moves()) == 0 {
		return "", ""
	}
	book := ecoBook()
	if book == nil {
		return "", ""
	}
	if eco := book.Find(game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
