package poker

import (
	"context"
	"fmt"

	"github.com/vctt94/holdemtable/pkg/statemachine"
)

// streetFn is one step of a hand after the pre-flop deal. Each state deals
// its street and returns the next one; the showdown ends the chain.
type streetFn = statemachine.StateFn[Table]

// stateFlop deals the flop (3 community cards)
func stateFlop(ctx context.Context, t *Table) (streetFn, error) {
	if err := t.dealStreet(ctx, PhaseFlop, 3); err != nil {
		return nil, err
	}
	return stateTurn, nil
}

// stateTurn deals the turn (fourth community card)
func stateTurn(ctx context.Context, t *Table) (streetFn, error) {
	if err := t.dealStreet(ctx, PhaseTurn, 1); err != nil {
		return nil, err
	}
	return stateRiver, nil
}

// stateRiver deals the river (fifth community card)
func stateRiver(ctx context.Context, t *Table) (streetFn, error) {
	if err := t.dealStreet(ctx, PhaseRiver, 1); err != nil {
		return nil, err
	}
	return stateShowdown, nil
}

// stateShowdown settles every pot and ends the hand.
func stateShowdown(_ context.Context, t *Table) (streetFn, error) {
	if err := t.settle(); err != nil {
		return nil, err
	}
	return nil, nil
}

// settle builds the pot ladder from everyone dealt in, pays the winners and
// moves the table to showdown. On an evaluator error nothing is paid.
func (t *Table) settle() error {
	var contenders []Contender
	for _, p := range t.Players() {
		if !p.InHand {
			continue
		}
		contenders = append(contenders, Contender{
			PlayerID:     p.ID,
			Name:         p.Name,
			Seat:         p.Seat,
			Contribution: p.TotalContribution,
			Folded:       p.Folded,
			HoleCards:    p.HoleCards,
		})
	}

	t.potManager.BuildPots(contenders, t.pot)
	result, err := t.potManager.DistributePots(contenders, t.community)
	if err != nil {
		return fmt.Errorf("showdown: %w", err)
	}
	if result.TotalPot != t.pot {
		t.log.Warnf("hand %d: pots hold %d but table pot is %d", t.handNumber, result.TotalPot, t.pot)
	}

	for seat, amount := range result.Payouts() {
		t.players[seat].Chips += amount
		t.pot -= amount
	}
	for _, p := range t.players {
		p.Contribution = 0
	}
	t.lastShowdown = result
	t.currentBet = 0
	t.phase = PhaseShowdown
	t.setCurrent(0)

	for _, pot := range result.Pots {
		for _, w := range pot.Winners {
			t.log.Infof("hand %d: %s wins %d (%s)", t.handNumber, w.Name, w.Amount, pot.HandDescription)
		}
	}
	return nil
}

// Contested reports whether the last hand went to a showdown between two
// or more players, which makes their hole cards public.
func (t *Table) Contested() bool {
	return t.phase == PhaseShowdown && t.contenders() >= 2
}
