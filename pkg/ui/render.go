package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vctt94/holdemtable/pkg/poker"
)

// RenderCard draws a single card; red suits get the red style.
func RenderCard(c poker.Card) string {
	if c.Suit() == poker.Hearts || c.Suit() == poker.Diamonds {
		return RedCardStyle.Render(c.String())
	}
	return CardStyle.Render(c.String())
}

func renderCards(cards []poker.Card, hidden int) string {
	parts := make([]string, 0, len(cards)+hidden)
	for _, c := range cards {
		parts = append(parts, RenderCard(c))
	}
	for i := 0; i < hidden; i++ {
		parts = append(parts, HiddenCardStyle.Render("??"))
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// RenderTable draws the whole table as seen by playerID.
func RenderTable(s *poker.TableSnapshot, playerID string) string {
	if s == nil {
		return InfoStyle.Render("waiting for table state...")
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Hand #%d · %s", s.HandNumber, s.Phase)))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(fmt.Sprintf("Blinds %d/%d (level %d%s) · dealer seat %d",
		s.SmallBlind, s.BigBlind, s.BlindLevel, autoTag(s.AutoIncreaseBlinds), s.DealerSeat)))
	b.WriteString("\n")

	board := fmt.Sprintf("Pot %d · to call %d", s.Pot, s.CurrentBet)
	if s.Stalled {
		board += " · waiting for cards"
	}
	if cards := renderCards(s.Community, 0); cards != "" {
		board = lipgloss.JoinVertical(lipgloss.Center, board, cards)
	}
	b.WriteString(PotStyle.Render(board))
	b.WriteString("\n")

	boxes := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		boxes = append(boxes, renderPlayer(s, p, playerID))
	}
	if len(boxes) > 0 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
		b.WriteString("\n")
	}

	if s.Phase == poker.PhaseShowdown && s.LastShowdown != nil {
		for _, pot := range s.LastShowdown.Pots {
			for _, w := range pot.Winners {
				line := fmt.Sprintf("%s wins %d", w.Name, w.Amount)
				if pot.HandDescription != "" {
					line += " with " + pot.HandDescription
				}
				b.WriteString(FocusedStyle.Render(line))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func autoTag(on bool) string {
	if on {
		return ", auto"
	}
	return ""
}

func renderPlayer(s *poker.TableSnapshot, p poker.PlayerSnapshot, playerID string) string {
	var lines []string
	name := fmt.Sprintf("%d · %s", p.Seat, p.Name)
	switch p.Seat {
	case s.DealerSeat:
		name += " (D)"
	case s.SmallBlindSeat:
		name += " (SB)"
	case s.BigBlindSeat:
		name += " (BB)"
	}
	lines = append(lines, name, fmt.Sprintf("chips %d", p.Chips))
	if p.Contribution > 0 {
		lines = append(lines, fmt.Sprintf("bet %d", p.Contribution))
	}
	lines = append(lines, p.Status)

	hidden := 0
	if p.HasCards && len(p.HoleCards) == 0 && !p.Folded {
		hidden = 2
	}
	if cards := renderCards(p.HoleCards, hidden); cards != "" {
		lines = append(lines, cards)
	}

	style := PlayerBoxStyle
	switch {
	case p.Folded || p.Disconnected:
		style = FoldedPlayerStyle
	case p.Seat == s.CurrentPlayer:
		style = CurrentPlayerStyle
	case p.ID == playerID:
		style = YourPlayerStyle
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
