package poker

import (
	"errors"
	"sort"
)

// DefaultBlindMultipliers is the small-blind multiplier for each blind level.
var DefaultBlindMultipliers = []int64{1, 2, 3, 4, 6, 8, 10}

// ErrNotEnoughPlayers is returned when a hand cannot start with the seated players.
var ErrNotEnoughPlayers = errors.New("not enough players")

// BlindSchedule derives blind amounts from a blind level.
type BlindSchedule struct {
	SmallBlind  int64 // base small blind at level 0
	BigBlind    int64 // base big blind at level 0
	Multipliers []int64
}

// DefaultBlindSchedule is 10/20 scaled by DefaultBlindMultipliers.
func DefaultBlindSchedule() BlindSchedule {
	return BlindSchedule{
		SmallBlind:  10,
		BigBlind:    20,
		Multipliers: DefaultBlindMultipliers,
	}
}

// Levels returns how many blind levels the schedule has.
func (s BlindSchedule) Levels() int {
	return len(s.Multipliers)
}

// ValidLevel reports whether level indexes the multiplier table.
func (s BlindSchedule) ValidLevel(level int) bool {
	return level >= 0 && level < len(s.Multipliers)
}

// Amounts returns the small and big blind for level, clamped to the table.
func (s BlindSchedule) Amounts(level int) (small, big int64) {
	if len(s.Multipliers) == 0 {
		return s.SmallBlind, s.BigBlind
	}
	level = max(0, min(level, len(s.Multipliers)-1))
	m := s.Multipliers[level]
	return s.SmallBlind * m, s.BigBlind * m
}

// Button is the seat assignment for one hand.
type Button struct {
	Dealer     int
	SmallBlind int
	BigBlind   int
	FirstToAct int
}

// NextButton picks the dealer and blind seats for the next hand.
//
// Without a previous dealer (prevDealer == 0) the lowest seat deals.
// Otherwise the dealer moves to the next occupied seat strictly after the
// previous one, wrapping to the lowest seat, so vacated seats are skipped.
// The blinds follow the dealer in seat order and the seat after the big
// blind acts first.
func NextButton(seats []int, prevDealer int) (Button, error) {
	if len(seats) < 2 {
		return Button{}, ErrNotEnoughPlayers
	}
	sorted := append([]int(nil), seats...)
	sort.Ints(sorted)

	var b Button
	if prevDealer == 0 {
		b.Dealer = sorted[0]
	} else {
		b.Dealer = seatAfter(sorted, prevDealer)
	}
	b.SmallBlind = seatAfter(sorted, b.Dealer)
	b.BigBlind = seatAfter(sorted, b.SmallBlind)
	b.FirstToAct = seatAfter(sorted, b.BigBlind)
	return b, nil
}

// seatAfter returns the first seat in sorted greater than seat, wrapping.
func seatAfter(sorted []int, seat int) int {
	for _, s := range sorted {
		if s > seat {
			return s
		}
	}
	return sorted[0]
}
