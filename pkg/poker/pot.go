package poker

import (
	"fmt"
	"sort"

	"github.com/decred/slog"
)

// Pot represents a pot of chips in the game
type Pot struct {
	Amount   int64 // Total amount in the pot
	Eligible []int // Seats that can win this pot, ascending
}

// IsEligible checks if a seat is eligible to win this pot
func (p *Pot) IsEligible(seat int) bool {
	for _, s := range p.Eligible {
		if s == seat {
			return true
		}
	}
	return false
}

// Contender is one player's stake in a hand as seen by the pot builder.
type Contender struct {
	PlayerID     string
	Name         string
	Seat         int
	Contribution int64 // chips committed over the whole hand
	Folded       bool
	HoleCards    []Card
}

// Winner is a single payout from one pot.
type Winner struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Seat     int       `json:"seat"`
	Amount   int64     `json:"amount"`
	Hand     HandScore `json:"-"`
}

// PotResult reports how one pot tier was settled.
type PotResult struct {
	Amount          int64    `json:"amount"`
	Eligible        []int    `json:"eligible"`
	Winners         []Winner `json:"winners"`
	Share           int64    `json:"share"`
	Remainder       int64    `json:"remainder"`
	HandDescription string   `json:"handDescription,omitempty"`
}

// ShowdownResult is the payout report of a finished hand.
type ShowdownResult struct {
	Pots     []PotResult `json:"pots"`
	TotalPot int64       `json:"totalPot"`
}

// Payouts sums every seat's winnings over all pots.
func (r *ShowdownResult) Payouts() map[int]int64 {
	out := make(map[int]int64)
	for _, p := range r.Pots {
		for _, w := range p.Winners {
			out[w.Seat] += w.Amount
		}
	}
	return out
}

// PotManager builds the main/side pot ladder and settles it at showdown.
type PotManager struct {
	log  slog.Logger
	Pots []*Pot // Main pot followed by side pots
}

// NewPotManager returns a pot manager logging to log (may be nil).
func NewPotManager(log slog.Logger) *PotManager {
	if log == nil {
		log = slog.Disabled
	}
	return &PotManager{log: log}
}

// GetTotalPot returns the total amount across all pots
func (pm *PotManager) GetTotalPot() int64 {
	var total int64
	for _, pot := range pm.Pots {
		total += pot.Amount
	}
	return total
}

// BuildPots rebuilds main/side pots from every contender's hand total.
//
// Each distinct positive total among players still in contention forms one
// tier worth (level - previous level) from every player who reached it.
// Chips of folded players count toward the tiers they reached; whatever they
// put in above the top level joins the top tier. Folded players are never
// eligible. With no contributions at all, a single pot of fallback is
// offered to every live contender.
func (pm *PotManager) BuildPots(contenders []Contender, fallback int64) {
	live := make([]Contender, 0, len(contenders))
	seen := map[int64]bool{}
	for _, c := range contenders {
		if c.Folded {
			continue
		}
		live = append(live, c)
		if c.Contribution > 0 {
			seen[c.Contribution] = true
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Seat < live[j].Seat })

	if len(seen) == 0 {
		pot := &Pot{Amount: fallback}
		for _, c := range live {
			pot.Eligible = append(pot.Eligible, c.Seat)
		}
		pm.Pots = []*Pot{pot}
		return
	}

	levels := make([]int64, 0, len(seen))
	for lvl := range seen {
		levels = append(levels, lvl)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]*Pot, 0, len(levels))
	prev := int64(0)
	for _, lvl := range levels {
		p := &Pot{}
		for _, c := range live {
			if c.Contribution >= lvl {
				p.Eligible = append(p.Eligible, c.Seat)
			}
		}
		// contributions: each player pays min(total, lvl) - prev
		for _, c := range contenders {
			if c.Contribution > prev {
				p.Amount += min(c.Contribution, lvl) - prev
			}
		}
		pots = append(pots, p)
		prev = lvl
	}

	top := pots[len(pots)-1]
	for _, c := range contenders {
		if c.Contribution > prev {
			top.Amount += c.Contribution - prev
		}
	}

	pm.Pots = pots
}

// DistributePots settles every pot independently. Eligible players are
// scored in seat order; the best score wins and ties split the pot evenly
// with any odd chips going to the first winner in seat order. A player
// without two hole cards or without a full board scores as an empty hand.
func (pm *PotManager) DistributePots(contenders []Contender, community []Card) (*ShowdownResult, error) {
	bySeat := make(map[int]Contender, len(contenders))
	for _, c := range contenders {
		bySeat[c.Seat] = c
	}

	scores := make(map[int]HandScore)
	score := func(seat int) (HandScore, error) {
		if s, ok := scores[seat]; ok {
			return s, nil
		}
		c := bySeat[seat]
		if len(c.HoleCards) != 2 || len(community) != 5 {
			scores[seat] = HandScore{}
			return HandScore{}, nil
		}
		cards := make([]Card, 0, 7)
		cards = append(cards, c.HoleCards...)
		cards = append(cards, community...)
		s, err := EvaluateHand(cards)
		if err != nil {
			return HandScore{}, fmt.Errorf("seat %d: %w", seat, err)
		}
		scores[seat] = s
		return s, nil
	}

	result := &ShowdownResult{}
	for pi, pot := range pm.Pots {
		res := PotResult{Amount: pot.Amount, Eligible: append([]int(nil), pot.Eligible...)}
		result.TotalPot += pot.Amount

		if len(pot.Eligible) == 0 {
			pm.log.Errorf("[pot %d] no eligible players; pot=%d", pi, pot.Amount)
			result.Pots = append(result.Pots, res)
			continue
		}

		var winners []int
		var best HandScore
		if len(pot.Eligible) == 1 {
			// Uncontested: nothing to compare.
			winners = pot.Eligible
		} else {
			for _, seat := range pot.Eligible {
				hv, err := score(seat)
				if err != nil {
					return nil, fmt.Errorf("pot %d: %w", pi, err)
				}
				switch cmp := CompareHands(hv, best); {
				case winners == nil || cmp > 0:
					best = hv
					winners = []int{seat}
				case cmp == 0:
					winners = append(winners, seat)
				}
			}
			res.HandDescription = best.HandDescription
		}

		res.Share = pot.Amount / int64(len(winners))
		res.Remainder = pot.Amount % int64(len(winners))
		for i, seat := range winners {
			add := res.Share
			if i == 0 {
				add += res.Remainder
			}
			c := bySeat[seat]
			res.Winners = append(res.Winners, Winner{
				PlayerID: c.PlayerID,
				Name:     c.Name,
				Seat:     seat,
				Amount:   add,
				Hand:     scores[seat],
			})
		}
		pm.log.Debugf("[pot %d] amount=%d winners=%v share=%d remainder=%d",
			pi, pot.Amount, winners, res.Share, res.Remainder)
		result.Pots = append(result.Pots, res)
	}
	return result, nil
}
