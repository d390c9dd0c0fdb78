package poker

import (
	"fmt"
	"strings"
	"time"
)

// Player is a seated player and their state in the current hand.
type Player struct {
	// Identity
	ID   string
	Name string
	Seat int // 1..MaxSeats, unique per table

	Chips int64

	// Hand state (reset between hands)
	HoleCards         []Card
	Contribution      int64 // chips put in during the current betting round
	TotalContribution int64 // chips put in during the whole hand
	InHand            bool  // dealt into the current hand
	Folded            bool
	AllIn             bool
	HasActed          bool // acted since the last bet or raise this round

	// Left the table mid-hand; removed once the hand ends.
	Disconnected bool
	LastAction   time.Time
}

// NewPlayer creates a new player with the given chips at seat.
func NewPlayer(id, name string, seat int, chips int64) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Seat:       seat,
		Chips:      chips,
		LastAction: time.Now(),
	}
}

// InContention reports whether the player can still win the pot.
func (p *Player) InContention() bool {
	return p.InHand && !p.Folded
}

// CanAct reports whether the player still has betting decisions to make.
func (p *Player) CanAct() bool {
	return p.InContention() && !p.AllIn && p.Chips > 0
}

// resetForHand clears all per-hand state. Players without chips sit out.
func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.Contribution = 0
	p.TotalContribution = 0
	p.InHand = p.Chips > 0 && !p.Disconnected
	p.Folded = false
	p.AllIn = false
	p.HasActed = false
}

// resetForRound starts a new betting round.
func (p *Player) resetForRound() {
	p.Contribution = 0
	p.HasActed = false
}

// commit moves up to amount chips from the stack into the pot and returns
// what was actually paid. Emptying the stack puts the player all-in.
func (p *Player) commit(amount int64) int64 {
	paid := min(amount, p.Chips)
	if paid <= 0 {
		return 0
	}
	p.Chips -= paid
	p.Contribution += paid
	p.TotalContribution += paid
	if p.Chips == 0 {
		p.AllIn = true
	}
	return paid
}

// GetHandString returns a string representation of the player's hand
func (p *Player) GetHandString() string {
	if len(p.HoleCards) == 0 {
		return "No cards"
	}
	cards := make([]string, len(p.HoleCards))
	for i, c := range p.HoleCards {
		cards[i] = c.String()
	}
	return strings.Join(cards, " ")
}

// Status returns a short label for the player's state in the hand.
func (p *Player) Status() string {
	switch {
	case p.Disconnected:
		return "left"
	case !p.InHand:
		return "sitting out"
	case p.Folded:
		return "folded"
	case p.AllIn:
		return "all-in"
	}
	return "active"
}

func (p *Player) String() string {
	return fmt.Sprintf("%s (seat %d, %d chips, %s)", p.Name, p.Seat, p.Chips, p.Status())
}
