package poker

import (
	"errors"
	"fmt"
	"sort"

	chpoker "github.com/chehsunliu/poker"
)

// HandRank represents the category of a poker hand, weakest first.
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var handRankNames = [...]string{
	HighCard:      "High Card",
	Pair:          "Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
	RoyalFlush:    "Royal Flush",
}

func (r HandRank) String() string {
	if r < HighCard || r > RoyalFlush {
		return fmt.Sprintf("HandRank(%d)", int(r))
	}
	return handRankNames[r]
}

var (
	// ErrInvalidCardCount is returned when the evaluator is handed the
	// wrong number of cards.
	ErrInvalidCardCount = errors.New("invalid card count")
	// ErrDuplicateCard is returned when the same card appears twice.
	ErrDuplicateCard = errors.New("duplicate card")
)

// HandScore is the ranked value of the best five cards of a hand. Scores are
// compared by Rank and then lexicographically by Tiebreak.
type HandScore struct {
	Rank            HandRank
	Tiebreak        []int
	BestHand        []Card
	HandDescription string
}

// IsZero reports whether the score was never computed (no cards available).
func (h HandScore) IsZero() bool {
	return h.Rank == HighCard && len(h.Tiebreak) == 0
}

// EvaluateHand ranks exactly seven cards (two hole cards plus five
// community cards) and returns the score of the best five-card subset.
func EvaluateHand(cards []Card) (HandScore, error) {
	if len(cards) != 7 {
		return HandScore{}, fmt.Errorf("evaluate %d cards, want 7: %w", len(cards), ErrInvalidCardCount)
	}
	return BestHand(cards)
}

// BestHand returns the best five-card score among 5 to 7 cards.
func BestHand(cards []Card) (HandScore, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandScore{}, fmt.Errorf("evaluate %d cards, want 5-7: %w", len(cards), ErrInvalidCardCount)
	}
	seen := make(map[Card]struct{}, len(cards))
	for _, c := range cards {
		if !c.rank.Valid() {
			return HandScore{}, fmt.Errorf("card %v has no rank: %w", c, ErrInvalidCardCount)
		}
		if _, dup := seen[c]; dup {
			return HandScore{}, fmt.Errorf("card %v: %w", c, ErrDuplicateCard)
		}
		seen[c] = struct{}{}
	}

	var best HandScore
	for i, combo := range generateCombinations(cards, 5) {
		score := scoreFive(combo)
		if i == 0 || CompareHands(score, best) > 0 {
			best = score
		}
	}
	best.HandDescription = describe(best)
	return best, nil
}

// CompareHands compares two hand scores and returns:
// -1 if handA < handB (handA is worse)
// 0 if handA == handB (tie)
// 1 if handA > handB (handA is better)
func CompareHands(handA, handB HandScore) int {
	if handA.Rank != handB.Rank {
		if handA.Rank > handB.Rank {
			return 1
		}
		return -1
	}
	n := min(len(handA.Tiebreak), len(handB.Tiebreak))
	for i := 0; i < n; i++ {
		if handA.Tiebreak[i] > handB.Tiebreak[i] {
			return 1
		}
		if handA.Tiebreak[i] < handB.Tiebreak[i] {
			return -1
		}
	}
	// An unscored hand (no tiebreak) loses to any scored one.
	switch {
	case len(handA.Tiebreak) > len(handB.Tiebreak):
		return 1
	case len(handA.Tiebreak) < len(handB.Tiebreak):
		return -1
	}
	return 0
}

// scoreFive ranks exactly five distinct cards.
func scoreFive(cards []Card) HandScore {
	hand := make([]Card, len(cards))
	copy(hand, cards)
	sortCardsByValue(hand)

	values := make([]int, len(hand))
	counts := make(map[int]int, 5)
	flush := true
	for i, c := range hand {
		values[i] = int(c.rank)
		counts[int(c.rank)]++
		if c.suit != hand[0].suit {
			flush = false
		}
	}

	straightHigh := 0
	if len(counts) == 5 {
		switch {
		case values[0]-values[4] == 4:
			straightHigh = values[0]
		case values[0] == int(Ace) && values[1] == 5:
			// A-2-3-4-5: the ace plays low.
			straightHigh = 5
		}
	}

	if straightHigh > 0 {
		run := []int{straightHigh, straightHigh - 1, straightHigh - 2, straightHigh - 3, straightHigh - 4}
		switch {
		case flush && straightHigh == int(Ace):
			return HandScore{Rank: RoyalFlush, Tiebreak: run, BestHand: hand}
		case flush:
			return HandScore{Rank: StraightFlush, Tiebreak: run, BestHand: hand}
		}
	}

	// Group ranks by multiplicity, largest group first, then by rank.
	groups := make([]int, 0, len(counts))
	for v := range counts {
		groups = append(groups, v)
	}
	sort.Slice(groups, func(i, j int) bool {
		if counts[groups[i]] != counts[groups[j]] {
			return counts[groups[i]] > counts[groups[j]]
		}
		return groups[i] > groups[j]
	})

	switch {
	case counts[groups[0]] == 4:
		return HandScore{Rank: FourOfAKind, Tiebreak: []int{groups[0], groups[1]}, BestHand: hand}
	case counts[groups[0]] == 3 && counts[groups[1]] == 2:
		return HandScore{Rank: FullHouse, Tiebreak: []int{groups[0], groups[1]}, BestHand: hand}
	case flush:
		return HandScore{Rank: Flush, Tiebreak: values, BestHand: hand}
	case straightHigh > 0:
		run := []int{straightHigh, straightHigh - 1, straightHigh - 2, straightHigh - 3, straightHigh - 4}
		return HandScore{Rank: Straight, Tiebreak: run, BestHand: hand}
	case counts[groups[0]] == 3:
		return HandScore{Rank: ThreeOfAKind, Tiebreak: groups, BestHand: hand}
	case counts[groups[0]] == 2 && counts[groups[1]] == 2:
		return HandScore{Rank: TwoPair, Tiebreak: groups, BestHand: hand}
	case counts[groups[0]] == 2:
		return HandScore{Rank: Pair, Tiebreak: groups, BestHand: hand}
	}
	return HandScore{Rank: HighCard, Tiebreak: values, BestHand: hand}
}

// generateCombinations generates all possible k-combinations from a slice of cards
func generateCombinations(cards []Card, k int) [][]Card {
	var combinations [][]Card

	if k > len(cards) || k <= 0 {
		return combinations
	}

	var generate func(start int, current []Card)
	generate = func(start int, current []Card) {
		if len(current) == k {
			combination := make([]Card, k)
			copy(combination, current)
			combinations = append(combinations, combination)
			return
		}

		for i := start; i <= len(cards)-(k-len(current)); i++ {
			generate(i+1, append(current, cards[i]))
		}
	}

	generate(0, make([]Card, 0, k))
	return combinations
}

// Helper function to sort cards by value (highest first)
func sortCardsByValue(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].rank > cards[j].rank
	})
}

// toChehsunliu converts our Card type to the chehsunliu/poker Card type
func toChehsunliu(card Card) chpoker.Card {
	rankChars := "23456789TJQKA"
	rankChar := rankChars[int(card.rank)-int(Two)]

	var suitChar byte
	switch card.suit {
	case Spades:
		suitChar = 's'
	case Hearts:
		suitChar = 'h'
	case Diamonds:
		suitChar = 'd'
	default:
		suitChar = 'c'
	}
	return chpoker.NewCard(string([]byte{rankChar, suitChar}))
}

// describe names the hand class using the chehsunliu evaluator. Royal
// flushes are reported separately since the library folds them into
// straight flushes.
func describe(h HandScore) string {
	if h.Rank == RoyalFlush {
		return RoyalFlush.String()
	}
	if len(h.BestHand) != 5 {
		return h.Rank.String()
	}
	cards := make([]chpoker.Card, len(h.BestHand))
	for i, c := range h.BestHand {
		cards[i] = toChehsunliu(c)
	}
	return chpoker.RankString(chpoker.Evaluate(cards))
}
