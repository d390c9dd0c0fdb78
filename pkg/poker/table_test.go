package poker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stackDeck builds a deck that deals holes[i] to the i-th player in dealing
// order (starting left of the dealer), then burns and reveals board.
func stackDeck(t testing.TB, holes []string, board string) *Deck {
	t.Helper()
	hands := make([][]Card, len(holes))
	used := make(map[Card]bool)
	reserve := func(cs []Card) {
		for _, c := range cs {
			require.False(t, used[c], "card %v stacked twice", c)
			used[c] = true
		}
	}
	for i, h := range holes {
		hands[i] = mustCards(t, h)
		require.Len(t, hands[i], 2)
		reserve(hands[i])
	}
	b := mustCards(t, board)
	require.Len(t, b, 5)
	reserve(b)

	var filler []Card
	for _, s := range Suits {
		for r := Two; r <= Ace; r++ {
			if c := MustCard(r, s); !used[c] {
				filler = append(filler, c)
			}
		}
	}

	var cards []Card
	for round := 0; round < 2; round++ {
		for _, h := range hands {
			cards = append(cards, h[round])
		}
	}
	cards = append(cards, filler[0], b[0], b[1], b[2], filler[1], b[3], filler[2], b[4])
	cards = append(cards, filler[3:]...)
	return NewDeckFromCards(cards)
}

var errFlaky = errors.New("card source unavailable")

// flakySource fails the next failDraws draws.
type flakySource struct {
	CardSource
	failDraws int
}

func (f *flakySource) Draw(ctx context.Context, n int) ([]Card, error) {
	if f.failDraws > 0 {
		f.failDraws--
		return nil, errFlaky
	}
	return f.CardSource.Draw(ctx, n)
}

func newTestTable(t testing.TB, deck CardSource, seats ...int) *Table {
	t.Helper()
	cfg := DefaultTableConfig()
	cfg.Deck = deck
	tbl := NewTable(cfg)
	for _, seat := range seats {
		_, err := tbl.Join(fmt.Sprintf("p%d", seat), fmt.Sprintf("P%d", seat), seat)
		require.NoError(t, err)
	}
	return tbl
}

func act(t testing.TB, tbl *Table, id string, a Action, amount int64) {
	t.Helper()
	require.NoError(t, tbl.Act(context.Background(), id, a, amount), "%s %v %d", id, a, amount)
}

func TestJoinValidation(t *testing.T) {
	tbl := newTestTable(t, nil, 3)

	_, err := tbl.Join("p9", "  ", 9)
	require.ErrorIs(t, err, ErrInvalidName)
	_, err = tbl.Join("p9", "Nine", 0)
	require.ErrorIs(t, err, ErrInvalidSeat)
	_, err = tbl.Join("p9", "Nine", 11)
	require.ErrorIs(t, err, ErrInvalidSeat)
	_, err = tbl.Join("p9", "Nine", 3)
	require.ErrorIs(t, err, ErrSeatTaken)
	_, err = tbl.Join("p3", "Again", 4)
	require.ErrorIs(t, err, ErrAlreadySeated)

	p, err := tbl.Join("p9", " Nine ", 9)
	require.NoError(t, err)
	assert.Equal(t, "Nine", p.Name)
	assert.Equal(t, int64(10000), p.Chips)
}

func TestJoinAnySeat(t *testing.T) {
	tbl := newTestTable(t, nil, 1, 2, 4)

	var offered int
	last := func(n int) int {
		offered = n
		return n - 1
	}
	p, err := tbl.JoinAnySeat("p9", "Nine", last)
	require.NoError(t, err)
	assert.Equal(t, 7, offered)
	assert.Equal(t, 10, p.Seat)

	first := func(int) int { return 0 }
	p, err = tbl.JoinAnySeat("p8", "Eight", first)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Seat)

	_, err = tbl.JoinAnySeat("p8", "Again", first)
	require.ErrorIs(t, err, ErrAlreadySeated)

	for seat := 5; seat <= 9; seat++ {
		_, err := tbl.JoinAnySeat(fmt.Sprintf("x%d", seat), "X", first)
		require.NoError(t, err)
	}
	_, err = tbl.JoinAnySeat("late", "Late", first)
	require.ErrorIs(t, err, ErrTableFull)
}

func TestStartHandNeedsTwoPlayers(t *testing.T) {
	tbl := newTestTable(t, nil, 4)
	require.ErrorIs(t, tbl.StartHand(context.Background()), ErrNotEnoughPlayers)
	assert.Equal(t, PhaseWaiting, tbl.Phase())
	assert.Zero(t, tbl.HandNumber())
}

func TestStartHandPostsBlindsAndDeals(t *testing.T) {
	deck := stackDeck(t, []string{"As Ks", "2c 7d", "Qh Qd"}, "3c 8h 9s Jd 4h")
	tbl := newTestTable(t, deck, 2, 5, 7)
	require.NoError(t, tbl.StartHand(context.Background()))

	snap := tbl.Snapshot()
	assert.Equal(t, PhasePreFlop, snap.Phase)
	assert.Equal(t, 2, snap.DealerSeat)
	assert.Equal(t, 5, snap.SmallBlindSeat)
	assert.Equal(t, 7, snap.BigBlindSeat)
	assert.Equal(t, 2, snap.CurrentPlayer)
	assert.Equal(t, int64(30), snap.Pot)
	assert.Equal(t, int64(20), snap.CurrentBet)
	assert.Empty(t, snap.Community)

	assert.Equal(t, int64(9990), tbl.PlayerAt(5).Chips)
	assert.Equal(t, int64(9980), tbl.PlayerAt(7).Chips)
	assert.Equal(t, int64(10000), tbl.PlayerAt(2).Chips)

	// One card each per round, starting left of the dealer.
	assert.Equal(t, mustCards(t, "As Ks"), tbl.PlayerAt(5).HoleCards)
	assert.Equal(t, mustCards(t, "2c 7d"), tbl.PlayerAt(7).HoleCards)
	assert.Equal(t, mustCards(t, "Qh Qd"), tbl.PlayerAt(2).HoleCards)

	_, err := tbl.Join("late", "Late", 9)
	require.NoError(t, err)
	assert.False(t, tbl.PlayerAt(9).InHand, "players joining mid-hand sit out")
	require.ErrorIs(t, tbl.StartHand(context.Background()), ErrHandInProgress)
}

func TestHandPlaysToShowdown(t *testing.T) {
	ctx := context.Background()
	deck := stackDeck(t, []string{"As Ks", "2c 7d", "Qh 6d"}, "3c 8h 9s Jd 4h")
	tbl := newTestTable(t, deck, 2, 5, 7)
	require.NoError(t, tbl.StartHand(ctx))
	total := tbl.ChipsInPlay()

	act(t, tbl, "p2", ActionCall, 0)
	act(t, tbl, "p5", ActionCall, 0)
	// The big blind still has the option.
	assert.Equal(t, PhasePreFlop, tbl.Phase())
	assert.Equal(t, 7, tbl.CurrentSeat())
	act(t, tbl, "p7", ActionCheck, 0)

	require.Equal(t, PhaseFlop, tbl.Phase())
	assert.Equal(t, mustCards(t, "3c 8h 9s"), tbl.Snapshot().Community)
	assert.Zero(t, tbl.Snapshot().CurrentBet)
	for _, p := range tbl.Players() {
		assert.Zero(t, p.Contribution, "seat %d", p.Seat)
		assert.Equal(t, int64(20), p.TotalContribution, "seat %d", p.Seat)
	}
	assert.Equal(t, 5, tbl.CurrentSeat(), "first seat after the dealer acts first")

	act(t, tbl, "p5", ActionCheck, 0)
	act(t, tbl, "p7", ActionBet, 40)
	act(t, tbl, "p2", ActionCall, 0)
	act(t, tbl, "p5", ActionRaise, 100)
	assert.Equal(t, PhaseFlop, tbl.Phase(), "raise reopens the action")
	act(t, tbl, "p7", ActionCall, 0)
	act(t, tbl, "p2", ActionFold, 0)

	require.Equal(t, PhaseTurn, tbl.Phase())
	assert.Equal(t, int64(300), tbl.Snapshot().Pot)
	assert.Equal(t, total, tbl.ChipsInPlay())

	act(t, tbl, "p5", ActionCheck, 0)
	act(t, tbl, "p7", ActionCheck, 0)
	require.Equal(t, PhaseRiver, tbl.Phase())
	act(t, tbl, "p5", ActionCheck, 0)
	act(t, tbl, "p7", ActionCheck, 0)

	require.Equal(t, PhaseShowdown, tbl.Phase())
	assert.Zero(t, tbl.CurrentSeat())
	assert.Zero(t, tbl.Snapshot().Pot)
	assert.Equal(t, total, tbl.ChipsInPlay())
	assert.Equal(t, int64(10180), tbl.PlayerAt(5).Chips)
	assert.Equal(t, int64(9880), tbl.PlayerAt(7).Chips)
	assert.Equal(t, int64(9940), tbl.PlayerAt(2).Chips)

	res := tbl.LastShowdown()
	require.NotNil(t, res)
	assert.Equal(t, map[int]int64{5: 300}, res.Payouts())
	assert.True(t, tbl.Contested())

	// Contested showdown: live hands are public, the folded one is not.
	view := tbl.Snapshot().ViewFor("")
	p5, _ := view.Player("p5")
	p7, _ := view.Player("p7")
	p2, _ := view.Player("p2")
	assert.Len(t, p5.HoleCards, 2)
	assert.Len(t, p7.HoleCards, 2)
	assert.Empty(t, p2.HoleCards)
}

func TestAdvancePhaseIfNeededWaitsForAnAction(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(1))), 1, 2, 3)
	require.NoError(t, tbl.StartHand(ctx))

	assert.False(t, tbl.advancePhaseIfNeeded(ctx))
	assert.Equal(t, PhasePreFlop, tbl.Phase())

	act(t, tbl, "p1", ActionCall, 0)
	act(t, tbl, "p2", ActionCall, 0)
	act(t, tbl, "p3", ActionCheck, 0)
	require.Equal(t, PhaseFlop, tbl.Phase())

	// Every contribution equals the zero current bet, yet nobody acted.
	assert.False(t, tbl.advancePhaseIfNeeded(ctx))
	assert.Equal(t, PhaseFlop, tbl.Phase())
}

func TestRejectedActionsChangeNothing(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(2))), 2, 5, 7)
	require.ErrorIs(t, tbl.Act(ctx, "p2", ActionCheck, 0), ErrNoBettingRound)
	require.NoError(t, tbl.StartHand(ctx))

	tests := []struct {
		name    string
		id      string
		action  Action
		amount  int64
		wantErr error
	}{
		{"out of turn", "p5", ActionCall, 0, ErrNotYourTurn},
		{"unknown player", "ghost", ActionCheck, 0, ErrUnknownPlayer},
		{"bet facing a bet", "p2", ActionBet, 50, ErrBetNotAllowed},
		{"raise not above current bet", "p2", ActionRaise, 20, ErrRaiseTooSmall},
		{"raise beyond stack", "p2", ActionRaise, 20000, ErrInsufficientChips},
		{"negative raise", "p2", ActionRaise, -5, ErrInvalidAmount},
		{"check facing a bet", "p2", ActionCheck, 0, ErrCannotCheck},
		{"unknown action", "p2", Action(99), 0, ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tbl.Snapshot()
			turn := tbl.Turn()
			require.ErrorIs(t, tbl.Act(ctx, tt.id, tt.action, tt.amount), tt.wantErr)
			require.Equal(t, before, tbl.Snapshot())
			require.Equal(t, turn, tbl.Turn())
		})
	}

	act(t, tbl, "p2", ActionCall, 0)
	act(t, tbl, "p5", ActionCall, 0)
	act(t, tbl, "p7", ActionCheck, 0)
	require.Equal(t, PhaseFlop, tbl.Phase())

	require.ErrorIs(t, tbl.Act(ctx, "p5", ActionBet, 5), ErrBetTooSmall)
	require.ErrorIs(t, tbl.Act(ctx, "p5", ActionBet, 0), ErrInvalidAmount)
	require.ErrorIs(t, tbl.Act(ctx, "p5", ActionBet, 20000), ErrInsufficientChips)
	require.ErrorIs(t, tbl.Act(ctx, "p5", ActionCall, 0), ErrNothingToCall)
}

func TestFoldsEndHandUncontested(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(3))), 2, 5, 7)
	require.NoError(t, tbl.StartHand(ctx))

	act(t, tbl, "p2", ActionFold, 0)
	act(t, tbl, "p5", ActionFold, 0)

	require.Equal(t, PhaseShowdown, tbl.Phase())
	assert.Empty(t, tbl.Snapshot().Community, "no cards are dealt once one player remains")
	assert.Equal(t, map[int]int64{7: 30}, tbl.LastShowdown().Payouts())
	assert.Equal(t, int64(10010), tbl.PlayerAt(7).Chips)
	assert.False(t, tbl.Contested())

	p7, _ := tbl.Snapshot().ViewFor("p5").Player("p7")
	assert.Empty(t, p7.HoleCards, "uncontested hands stay hidden")
}

func TestDealerRotatesBetweenHands(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(4))), 2, 5, 7)

	require.NoError(t, tbl.StartHand(ctx))
	assert.Equal(t, 2, tbl.Snapshot().DealerSeat)
	act(t, tbl, "p2", ActionFold, 0)
	act(t, tbl, "p5", ActionFold, 0)

	require.NoError(t, tbl.StartHand(ctx))
	snap := tbl.Snapshot()
	assert.Equal(t, 2, snap.HandNumber)
	assert.Equal(t, 5, snap.DealerSeat)
	assert.Equal(t, 7, snap.SmallBlindSeat)
	assert.Equal(t, 2, snap.BigBlindSeat)
	assert.Equal(t, 5, snap.CurrentPlayer)
	act(t, tbl, "p5", ActionFold, 0)
	act(t, tbl, "p7", ActionFold, 0)

	// Seat 2 leaves between hands; the button skips the empty seat.
	require.NoError(t, tbl.Leave(ctx, "p2"))
	assert.Nil(t, tbl.PlayerAt(2))

	require.NoError(t, tbl.StartHand(ctx))
	snap = tbl.Snapshot()
	assert.Equal(t, 7, snap.DealerSeat)
	assert.Equal(t, 5, snap.SmallBlindSeat)
	assert.Equal(t, 7, snap.BigBlindSeat)
	assert.Equal(t, 5, snap.CurrentPlayer)
}

func TestAllInRunsOutBoard(t *testing.T) {
	ctx := context.Background()
	// Heads up: seat 1 deals and posts the big blind, seat 2 acts first.
	deck := stackDeck(t, []string{"Ah Ad", "Kc Kd"}, "2s 7h 9c Jd 3s")
	tbl := newTestTable(t, deck, 1, 2)
	require.NoError(t, tbl.StartHand(ctx))
	require.Equal(t, 2, tbl.CurrentSeat())

	act(t, tbl, "p2", ActionAllIn, 0)
	assert.Equal(t, int64(10000), tbl.Snapshot().CurrentBet)
	act(t, tbl, "p1", ActionCall, 0)

	require.Equal(t, PhaseShowdown, tbl.Phase())
	assert.Len(t, tbl.Snapshot().Community, 5)
	assert.Equal(t, int64(20000), tbl.PlayerAt(2).Chips)
	assert.Zero(t, tbl.PlayerAt(1).Chips)

	removed := tbl.EndHand()
	require.Len(t, removed, 1)
	assert.Equal(t, "p1", removed[0].ID)
	require.ErrorIs(t, tbl.StartHand(ctx), ErrNotEnoughPlayers)
}

func TestShortStackCreatesSidePot(t *testing.T) {
	ctx := context.Background()
	// Dealing starts at the small blind (seat 2), then seat 3, then seat 1.
	deck := stackDeck(t, []string{"Kh Ks", "Qh Qs", "Ah As"}, "2s 7h 9c Jd 3d")
	tbl := newTestTable(t, deck, 1, 2, 3)
	tbl.PlayerAt(1).Chips = 100
	require.NoError(t, tbl.StartHand(ctx))
	total := tbl.ChipsInPlay()

	act(t, tbl, "p1", ActionAllIn, 0)
	act(t, tbl, "p2", ActionRaise, 500)
	act(t, tbl, "p3", ActionCall, 0)
	require.Equal(t, PhaseFlop, tbl.Phase())
	require.Equal(t, 2, tbl.CurrentSeat())

	for tbl.Phase() != PhaseShowdown {
		act(t, tbl, "p2", ActionCheck, 0)
		act(t, tbl, "p3", ActionCheck, 0)
	}

	res := tbl.LastShowdown()
	require.Len(t, res.Pots, 2)
	assert.Equal(t, int64(300), res.Pots[0].Amount)
	assert.Equal(t, []int{1, 2, 3}, res.Pots[0].Eligible)
	assert.Equal(t, int64(800), res.Pots[1].Amount)
	assert.Equal(t, []int{2, 3}, res.Pots[1].Eligible)

	assert.Equal(t, int64(300), tbl.PlayerAt(1).Chips)
	assert.Equal(t, int64(10300), tbl.PlayerAt(2).Chips)
	assert.Equal(t, int64(9500), tbl.PlayerAt(3).Chips)
	assert.Equal(t, total, tbl.ChipsInPlay())
}

func TestShortBigBlindPostsAllIn(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(5))), 1, 2)
	tbl.PlayerAt(1).Chips = 15
	require.NoError(t, tbl.StartHand(ctx))

	p1 := tbl.PlayerAt(1)
	assert.True(t, p1.AllIn)
	assert.Equal(t, int64(15), p1.Contribution)
	assert.Equal(t, int64(15), tbl.Snapshot().CurrentBet)

	act(t, tbl, "p2", ActionCall, 0)
	require.Equal(t, PhaseShowdown, tbl.Phase())
	assert.Len(t, tbl.Snapshot().Community, 5)
	assert.Equal(t, int64(10015), tbl.ChipsInPlay())
}

func TestStalledDealLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	src := &flakySource{CardSource: NewDeck(rand.New(rand.NewSource(6)))}
	tbl := newTestTable(t, src, 1, 2)

	src.failDraws = 1
	before := tbl.Snapshot()
	require.ErrorIs(t, tbl.StartHand(ctx), errFlaky)
	require.True(t, tbl.Stalled())
	after := tbl.Snapshot()
	before.Stalled = true
	require.Equal(t, before, after)

	require.NoError(t, tbl.Resume(ctx))
	require.False(t, tbl.Stalled())
	require.Equal(t, PhasePreFlop, tbl.Phase())

	act(t, tbl, "p2", ActionCall, 0)
	src.failDraws = 1
	// The check is accepted; dealing the flop is what fails.
	act(t, tbl, "p1", ActionCheck, 0)
	require.True(t, tbl.Stalled())
	require.ErrorIs(t, tbl.StallErr(), errFlaky)
	require.Equal(t, PhasePreFlop, tbl.Phase())
	require.Empty(t, tbl.Snapshot().Community)
	require.ErrorIs(t, tbl.Act(ctx, "p2", ActionCheck, 0), ErrHandStalled)

	require.NoError(t, tbl.Resume(ctx))
	require.Equal(t, PhaseFlop, tbl.Phase())
	require.Len(t, tbl.Snapshot().Community, 3)
	require.Nil(t, tbl.StallErr())
}

func TestTimeoutFoldsPlayerOnClock(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(7))), 2, 5, 7)
	require.NoError(t, tbl.StartHand(ctx))

	turn := tbl.Turn()
	assert.False(t, tbl.Timeout(ctx, turn-1), "stale turn is ignored")
	assert.False(t, tbl.PlayerAt(2).Folded)

	assert.True(t, tbl.Timeout(ctx, turn))
	assert.True(t, tbl.PlayerAt(2).Folded)
	assert.Equal(t, 5, tbl.CurrentSeat())

	assert.False(t, tbl.Timeout(ctx, turn), "timer for a finished turn is ignored")
	assert.False(t, tbl.PlayerAt(5).Folded)
}

func TestLeaveMidHand(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(8))), 2, 5, 7)
	require.NoError(t, tbl.StartHand(ctx))

	// Leaving out of turn folds without moving the clock.
	require.NoError(t, tbl.Leave(ctx, "p5"))
	p5 := tbl.PlayerAt(5)
	require.NotNil(t, p5, "seat is kept until the hand ends")
	assert.True(t, p5.Folded)
	assert.True(t, p5.Disconnected)
	assert.Equal(t, 2, tbl.CurrentSeat())

	// Leaving on the clock passes the turn.
	require.NoError(t, tbl.Leave(ctx, "p2"))
	require.Equal(t, PhaseShowdown, tbl.Phase())
	assert.Equal(t, map[int]int64{7: 30}, tbl.LastShowdown().Payouts())

	tbl.EndHand()
	assert.Nil(t, tbl.PlayerAt(5))
	assert.Nil(t, tbl.PlayerAt(2))
	assert.NotNil(t, tbl.PlayerAt(7))
	require.ErrorIs(t, tbl.Leave(ctx, "p2"), ErrUnknownPlayer)

	_, err := tbl.Kick(ctx, 7)
	require.NoError(t, err)
	_, err = tbl.Kick(ctx, 7)
	require.ErrorIs(t, err, ErrSeatEmpty)
}

func TestManualAdvancePhase(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(9))), 1, 2, 3)
	require.ErrorIs(t, tbl.AdvancePhase(ctx), ErrNoBettingRound)
	require.NoError(t, tbl.StartHand(ctx))

	require.NoError(t, tbl.AdvancePhase(ctx))
	require.Equal(t, PhaseFlop, tbl.Phase())
	assert.Len(t, tbl.Snapshot().Community, 3)
	assert.Equal(t, int64(30), tbl.Snapshot().Pot)

	require.NoError(t, tbl.AdvancePhase(ctx))
	require.NoError(t, tbl.AdvancePhase(ctx))
	require.Equal(t, PhaseRiver, tbl.Phase())
	require.NoError(t, tbl.AdvancePhase(ctx))
	require.Equal(t, PhaseShowdown, tbl.Phase())
	assert.Equal(t, int64(30000), tbl.ChipsInPlay())
}

func TestBlindLevels(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, NewDeck(rand.New(rand.NewSource(10))), 1, 2)

	require.ErrorIs(t, tbl.SetBlindLevel(7), ErrInvalidBlindLevel)
	tbl.SetAutoIncreaseBlinds(true)
	require.NoError(t, tbl.StartHand(ctx))
	snap := tbl.Snapshot()
	assert.Equal(t, int64(10), snap.SmallBlind)
	assert.Equal(t, int64(20), snap.BigBlind)
	assert.Equal(t, 1, snap.BlindLevel, "level bumps after blinds are posted")

	require.NoError(t, tbl.Act(ctx, "p2", ActionFold, 0))
	require.NoError(t, tbl.SetBlindLevel(6))
	require.NoError(t, tbl.StartHand(ctx))
	snap = tbl.Snapshot()
	assert.Equal(t, int64(100), snap.SmallBlind)
	assert.Equal(t, int64(200), snap.BigBlind)
	assert.Equal(t, 6, snap.BlindLevel, "level stays at the top of the table")
}

// TestRandomPlayConservesChips plays many hands with random actions and
// checks the table-wide invariants after every step.
func TestRandomPlayConservesChips(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(11))
	tbl := newTestTable(t, NewDeck(rng), 1, 3, 4, 8)
	total := tbl.ChipsInPlay()

	for hand := 0; hand < 60; hand++ {
		err := tbl.StartHand(ctx)
		if errors.Is(err, ErrNotEnoughPlayers) {
			break
		}
		require.NoError(t, err)

		for steps := 0; tbl.Phase().Betting(); steps++ {
			require.Less(t, steps, 500, "hand %d does not terminate", hand)
			p := tbl.PlayerAt(tbl.CurrentSeat())
			require.NotNil(t, p, "hand %d: nobody on the clock in %v", hand, tbl.Phase())
			require.True(t, p.CanAct())

			phase := tbl.Phase()
			contributions := map[int]int64{}
			for _, o := range tbl.Players() {
				contributions[o.Seat] = o.Contribution
			}

			err := tbl.Act(ctx, p.ID, Action(rng.Intn(6)), int64(rng.Intn(600)))
			if err != nil {
				if p.Contribution == tbl.currentBet {
					act(t, tbl, p.ID, ActionCheck, 0)
				} else {
					act(t, tbl, p.ID, ActionCall, 0)
				}
			}
			require.Equal(t, total, tbl.ChipsInPlay(), "hand %d", hand)

			if tbl.Phase() == phase {
				for _, o := range tbl.Players() {
					require.GreaterOrEqual(t, o.Contribution, contributions[o.Seat])
					if o.CanAct() {
						require.LessOrEqual(t, o.Contribution, tbl.currentBet)
					}
				}
			}
		}
		require.Equal(t, PhaseShowdown, tbl.Phase())
		require.Zero(t, tbl.Snapshot().Pot)
	}
}
