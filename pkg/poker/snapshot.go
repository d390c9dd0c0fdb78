package poker

import "time"

// PlayerSnapshot is a copy of one player's public state plus, depending on
// the viewer, their hole cards.
type PlayerSnapshot struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Seat              int    `json:"seat"`
	Chips             int64  `json:"chips"`
	Contribution      int64  `json:"contribution"`
	TotalContribution int64  `json:"totalContribution"`
	Active            bool   `json:"active"`
	Folded            bool   `json:"folded"`
	AllIn             bool   `json:"allIn"`
	Disconnected      bool   `json:"disconnected,omitempty"`
	Status            string `json:"status"`
	HasCards          bool   `json:"hasCards"`
	HoleCards         []Card `json:"holeCards,omitempty"`
}

// TableSnapshot is an immutable copy of the table pushed to observers.
type TableSnapshot struct {
	HandNumber         int              `json:"handNumber"`
	Phase              Phase            `json:"phase"`
	Players            []PlayerSnapshot `json:"players"`
	Community          []Card           `json:"communityCards"`
	Pot                int64            `json:"pot"`
	CurrentBet         int64            `json:"currentBet"`
	CurrentPlayer      int              `json:"currentPlayer"`
	DealerSeat         int              `json:"dealerSeat"`
	SmallBlindSeat     int              `json:"smallBlindSeat"`
	BigBlindSeat       int              `json:"bigBlindSeat"`
	SmallBlind         int64            `json:"smallBlind"`
	BigBlind           int64            `json:"bigBlind"`
	BlindLevel         int              `json:"blindLevel"`
	AutoIncreaseBlinds bool             `json:"autoIncreaseBlinds"`
	MinBet             int64            `json:"minBet"`
	Stalled            bool             `json:"stalled,omitempty"`
	TurnDeadline       time.Time        `json:"turnDeadline,omitzero"`
	Revealed           bool             `json:"revealed,omitempty"`
	LastShowdown       *ShowdownResult  `json:"lastShowdown,omitempty"`
}

// Snapshot copies the full table state, every hole card included. Use
// ViewFor before handing it to an observer.
func (t *Table) Snapshot() TableSnapshot {
	s := TableSnapshot{
		HandNumber:         t.handNumber,
		Phase:              t.phase,
		Community:          append([]Card(nil), t.community...),
		Pot:                t.pot,
		CurrentBet:         t.currentBet,
		CurrentPlayer:      t.currentSeat,
		DealerSeat:         t.dealerSeat,
		SmallBlindSeat:     t.smallBlindSeat,
		BigBlindSeat:       t.bigBlindSeat,
		SmallBlind:         t.smallBlind,
		BigBlind:           t.bigBlind,
		BlindLevel:         t.blindLevel,
		AutoIncreaseBlinds: t.autoIncrease,
		MinBet:             t.cfg.MinBet,
		Stalled:            t.Stalled(),
		Revealed:           t.Contested(),
		LastShowdown:       t.lastShowdown,
	}
	for _, p := range t.Players() {
		s.Players = append(s.Players, PlayerSnapshot{
			ID:                p.ID,
			Name:              p.Name,
			Seat:              p.Seat,
			Chips:             p.Chips,
			Contribution:      p.Contribution,
			TotalContribution: p.TotalContribution,
			Active:            p.InContention(),
			Folded:            p.Folded,
			AllIn:             p.AllIn,
			Disconnected:      p.Disconnected,
			Status:            p.Status(),
			HasCards:          len(p.HoleCards) > 0,
			HoleCards:         append([]Card(nil), p.HoleCards...),
		})
	}
	return s
}

// ViewFor returns the snapshot as seen by viewerID: only the viewer's own
// hole cards are visible, except that after a contested showdown the cards
// of every player still in contention are shown. An empty viewerID is a
// spectator.
func (s TableSnapshot) ViewFor(viewerID string) TableSnapshot {
	players := make([]PlayerSnapshot, len(s.Players))
	for i, p := range s.Players {
		if p.ID != viewerID && !(s.Revealed && p.Active) {
			p.HoleCards = nil
		}
		players[i] = p
	}
	s.Players = players
	return s
}

// Player returns the snapshot of the player with id.
func (s TableSnapshot) Player(id string) (PlayerSnapshot, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}
