package game

import (
	"fmt"
	"strings"
	"time"
)

// Result is a PGN result token.
type Result string

const (
	ResultWhiteWins  Result = "1-0"
	ResultBlackWins  Result = "0-1"
	ResultDraw       Result = "1/2-1/2"
	ResultUnfinished Result = "*"
)

// PGNHeader carries the tag pairs written before the move text. The seven
// roster tags come first in their fixed order, then Termination.
type PGNHeader struct {
	Event       string
	Site        string
	Date        time.Time
	Round       string
	White       string
	Black       string
	Result      Result
	Termination string
}

// BuildPGN renders the SAN history of a game as PGN text.
func BuildPGN(h PGNHeader, history []AppliedMove) string {
	var b strings.Builder
	date := h.Date
	if date.IsZero() {
		date = time.Now()
	}
	result := h.Result
	if result == "" {
		result = ResultUnfinished
	}

	writeTag(&b, "Event", h.Event)
	writeTag(&b, "Site", h.Site)
	writeTag(&b, "Date", fmt.Sprintf("%04d.%02d.%02d", date.Year(), int(date.Month()), date.Day()))
	round := h.Round
	if strings.TrimSpace(round) == "" {
		round = "-"
	}
	writeTag(&b, "Round", round)
	writeTag(&b, "White", h.White)
	writeTag(&b, "Black", h.Black)
	writeTag(&b, "Result", string(result))
	if strings.TrimSpace(h.Termination) != "" {
		writeTag(&b, "Termination", h.Termination)
	}
	b.WriteString("\n")

	for i := 0; i < len(history); i += 2 {
		fmt.Fprintf(&b, "%d. %s ", i/2+1, strings.TrimSpace(history[i].SAN))
		if i+1 < len(history) {
			b.WriteString(strings.TrimSpace(history[i+1].SAN))
			b.WriteString(" ")
		}
	}
	b.WriteString(string(result))
	return b.String()
}

func writeTag(b *strings.Builder, name, value string) {
	if strings.TrimSpace(value) == "" {
		value = "?"
	}
	fmt.Fprintf(b, "[%s \"%s\"]\n", name, sanitizeTag(value))
}

func sanitizeTag(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
