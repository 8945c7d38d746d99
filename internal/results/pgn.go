package results

import (
	"fmt"
	"strings"
	"time"
)

// BuildPGN renders tag pairs and numbered move text. Moves are the engine's
// long-form notation, so the text is for reading, not for other PGN tools.
func BuildPGN(r *Result) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	date := r.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	pgnResult := MapResultToPGN(r.Winner)
	white := r.WhiteName
	if strings.TrimSpace(white) == "" {
		white = "White"
	}
	black := r.BlackName
	if strings.TrimSpace(black) == "" {
		black = "Black"
	}

	b.WriteString("[Event \"Cheese Chess\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(r.Mode)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(white)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(black)))
	if strings.TrimSpace(r.ECOCode) != "" {
		b.WriteString(fmt.Sprintf("[ECO \"%s\"]\n", sanitizePGN(r.ECOCode)))
	}
	if strings.TrimSpace(r.Opening) != "" {
		b.WriteString(fmt.Sprintf("[Opening \"%s\"]\n", sanitizePGN(r.Opening)))
	}
	if strings.TrimSpace(r.Method) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(r.Method))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(r.Moves); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(r.Moves[i])))
		if i+1 < len(r.Moves) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(r.Moves[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
