package poker

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	paulpoker "github.com/paulhankin/poker"
	"github.com/stretchr/testify/require"
)

func mustCards(t testing.TB, codes string) []Card {
	t.Helper()
	cards, err := ParseCards(codes)
	require.NoError(t, err)
	return cards
}

func TestEvaluateHand(t *testing.T) {
	tests := []struct {
		name         string
		hole         string
		community    string
		wantRank     HandRank
		wantTiebreak []int
	}{
		{
			name:         "Royal Flush",
			hole:         "As Ks",
			community:    "Qs Js 10s 2h 3h",
			wantRank:     RoyalFlush,
			wantTiebreak: []int{14, 13, 12, 11, 10},
		},
		{
			name:         "Straight Flush",
			hole:         "9s 8s",
			community:    "7s 6s 5s 2h 3d",
			wantRank:     StraightFlush,
			wantTiebreak: []int{9, 8, 7, 6, 5},
		},
		{
			name:         "Four of a Kind",
			hole:         "Ah As",
			community:    "Ac Ad Kh Qc Js",
			wantRank:     FourOfAKind,
			wantTiebreak: []int{14, 13},
		},
		{
			name:         "Full House trips of twos",
			hole:         "2c 2d",
			community:    "2h 5s 5d 9c Kh",
			wantRank:     FullHouse,
			wantTiebreak: []int{2, 5},
		},
		{
			name:         "Full House from two sets uses higher trips",
			hole:         "9c 9d",
			community:    "9h Ks Kd Kc 2h",
			wantRank:     FullHouse,
			wantTiebreak: []int{13, 9},
		},
		{
			name:         "Flush keeps five highest",
			hole:         "Ah 2h",
			community:    "9h 7h 4h Jh Kc",
			wantRank:     Flush,
			wantTiebreak: []int{14, 11, 9, 7, 4},
		},
		{
			name:         "Wheel straight",
			hole:         "Ah 2h",
			community:    "3h 4h 5d 9c Ks",
			wantRank:     Straight,
			wantTiebreak: []int{5, 4, 3, 2, 1},
		},
		{
			name:         "Six high straight beats wheel",
			hole:         "Ah 2h",
			community:    "3h 4c 5d 6c Ks",
			wantRank:     Straight,
			wantTiebreak: []int{6, 5, 4, 3, 2},
		},
		{
			name:         "Three of a Kind",
			hole:         "7h 7d",
			community:    "7s Kc 2d 9h 4c",
			wantRank:     ThreeOfAKind,
			wantTiebreak: []int{7, 13, 9},
		},
		{
			name:         "Two Pair picks best kicker",
			hole:         "Jh Jd",
			community:    "4s 4c 3d 3h Ac",
			wantRank:     TwoPair,
			wantTiebreak: []int{11, 4, 14},
		},
		{
			name:         "Pair",
			hole:         "Qh Qd",
			community:    "2s 7c 9d Th 3c",
			wantRank:     Pair,
			wantTiebreak: []int{12, 10, 9, 7},
		},
		{
			name:         "High Card",
			hole:         "Ah Jd",
			community:    "2s 7c 9d 4h 3c",
			wantRank:     HighCard,
			wantTiebreak: []int{14, 11, 9, 7, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := append(mustCards(t, tt.hole), mustCards(t, tt.community)...)
			got, err := EvaluateHand(cards)
			require.NoError(t, err)
			if got.Rank != tt.wantRank {
				t.Errorf("rank = %v, want %v", got.Rank, tt.wantRank)
			}
			require.Equal(t, tt.wantTiebreak, got.Tiebreak)
			require.Len(t, got.BestHand, 5)
			require.NotEmpty(t, got.HandDescription)
		})
	}
}

func TestEvaluateHandRejectsWrongCardCount(t *testing.T) {
	for _, n := range []int{0, 5, 6, 8} {
		deck := NewDeck(rand.New(rand.NewSource(int64(n))))
		cards, err := deck.Draw(context.Background(), n)
		require.NoError(t, err)
		_, err = EvaluateHand(cards)
		if !errors.Is(err, ErrInvalidCardCount) {
			t.Errorf("%d cards: expected ErrInvalidCardCount, got %v", n, err)
		}
	}
}

func TestEvaluateHandRejectsDuplicates(t *testing.T) {
	_, err := EvaluateHand(mustCards(t, "As As Kd Qc Jh 2c 3d"))
	require.ErrorIs(t, err, ErrDuplicateCard)
}

func TestBestHandIncompleteBoard(t *testing.T) {
	got, err := BestHand(mustCards(t, "Ah Ad Kc Kd 2s"))
	require.NoError(t, err)
	require.Equal(t, TwoPair, got.Rank)
	require.Equal(t, []int{14, 13, 2}, got.Tiebreak)

	got, err = BestHand(mustCards(t, "Ah Kh Qh Jh 9h 2c"))
	require.NoError(t, err)
	require.Equal(t, Flush, got.Rank)
}

func TestCompareHands(t *testing.T) {
	eval := func(codes string) HandScore {
		h, err := EvaluateHand(mustCards(t, codes))
		require.NoError(t, err)
		return h
	}

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"flush beats straight", "Ah 2h 9h 7h 4h Kc 3d", "6c 7d 8h 9s Ts 2c 2d", 1},
		{"higher kicker wins", "Ah Kd 2s 2c 7d 9h 4c", "Ah Qd 2s 2c 7d 9h 4c", 1},
		{"board plays is a tie", "2c 3d As Ks Qs Js 9s", "2h 3h As Ks Qs Js 9s", 0},
		{"wheel loses to six high", "Ah 2h 3h 4c 5d Kc Ks", "6h 2d 3h 4c 5d Kc Ks", -1},
		{"quads kicker decides", "9c 9d 9h 9s Ac 2d 3d", "9c 9d 9h 9s Kc 2d 3d", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareHands(eval(tt.a), eval(tt.b)); got != tt.want {
				t.Errorf("CompareHands = %d, want %d", got, tt.want)
			}
			if got := CompareHands(eval(tt.b), eval(tt.a)); got != -tt.want {
				t.Errorf("reverse CompareHands = %d, want %d", got, -tt.want)
			}
		})
	}
}

func TestCompareHandsUnscoredLoses(t *testing.T) {
	scored, err := EvaluateHand(mustCards(t, "2c 3d 5h 7s 9c Jd Kh"))
	require.NoError(t, err)
	require.Equal(t, 1, CompareHands(scored, HandScore{}))
	require.Equal(t, 0, CompareHands(HandScore{}, HandScore{}))
}

func toPaulhankin(t *testing.T, cards []Card) *[7]paulpoker.Card {
	t.Helper()
	suits := map[Suit]int{Clubs: 0, Diamonds: 1, Hearts: 2, Spades: 3}
	var out [7]paulpoker.Card
	for i, c := range cards {
		r := int(c.Rank())
		if c.Rank() == Ace {
			r = 1
		}
		pc, err := paulpoker.MakeCard(paulpoker.Suit(suits[c.Suit()]), paulpoker.Rank(r))
		require.NoError(t, err)
		out[i] = pc
	}
	return &out
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

// TestCompareHandsMatchesReferenceEvaluator checks the ordering of random
// seven-card hands against an independent evaluator.
func TestCompareHandsMatchesReferenceEvaluator(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		deck := NewDeck(rng)
		cards, err := deck.Draw(context.Background(), 14)
		require.NoError(t, err)
		a, b := cards[:7], cards[7:]

		ha, err := EvaluateHand(a)
		require.NoError(t, err)
		hb, err := EvaluateHand(b)
		require.NoError(t, err)

		ref := sign(int(paulpoker.Eval7(toPaulhankin(t, a))) - int(paulpoker.Eval7(toPaulhankin(t, b))))
		if got := CompareHands(ha, hb); got != ref {
			t.Fatalf("hand %d: %v vs %v: got %d, reference %d", i, a, b, got, ref)
		}
	}
}

func TestHandDescriptions(t *testing.T) {
	royal, err := EvaluateHand(mustCards(t, "As Ks Qs Js 10s 2h 3h"))
	require.NoError(t, err)
	require.Equal(t, "Royal Flush", royal.HandDescription)

	fh, err := EvaluateHand(mustCards(t, "2c 2d 2h 5s 5d 9c Kh"))
	require.NoError(t, err)
	require.Equal(t, "Full House", fh.HandDescription)
}
