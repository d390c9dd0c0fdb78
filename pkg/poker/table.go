package poker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/holdemtable/pkg/statemachine"
)

// Phase is the stage of the current hand.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreFlop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
)

var phaseNames = [...]string{
	PhaseWaiting:  "waiting",
	PhasePreFlop:  "pre-flop",
	PhaseFlop:     "flop",
	PhaseTurn:     "turn",
	PhaseRiver:    "river",
	PhaseShowdown: "showdown",
}

func (p Phase) String() string {
	if p < PhaseWaiting || p > PhaseShowdown {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Betting reports whether players act during this phase.
func (p Phase) Betting() bool {
	switch p {
	case PhasePreFlop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for p, name := range phaseNames {
		if name == s {
			return Phase(p), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Action is a betting decision.
type Action int

const (
	ActionBet Action = iota
	ActionRaise
	ActionCall
	ActionCheck
	ActionFold
	ActionAllIn
)

var actionNames = [...]string{
	ActionBet:   "bet",
	ActionRaise: "raise",
	ActionCall:  "call",
	ActionCheck: "check",
	ActionFold:  "fold",
	ActionAllIn: "allIn",
}

func (a Action) String() string {
	if a < ActionBet || a > ActionAllIn {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction accepts the action names used on the wire.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if strings.EqualFold(name, s) {
			return Action(a), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

var (
	ErrInvalidSeat       = errors.New("invalid seat")
	ErrSeatTaken         = errors.New("seat taken")
	ErrSeatEmpty         = errors.New("seat empty")
	ErrTableFull         = errors.New("table full")
	ErrAlreadySeated     = errors.New("player already seated")
	ErrInvalidName       = errors.New("invalid name")
	ErrUnknownPlayer     = errors.New("player not seated")
	ErrHandInProgress    = errors.New("hand in progress")
	ErrNoBettingRound    = errors.New("no betting round in progress")
	ErrHandStalled       = errors.New("hand stalled waiting for cards")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrUnknownAction     = errors.New("unknown action")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrBetTooSmall       = errors.New("bet below table minimum")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrBetNotAllowed     = errors.New("bet not allowed after a wager, raise instead")
	ErrRaiseTooSmall     = errors.New("raise must exceed the current bet")
	ErrNothingToCall     = errors.New("nothing to call")
	ErrCannotCheck       = errors.New("cannot check facing a bet")
	ErrInvalidBlindLevel = errors.New("invalid blind level")
)

// TableConfig holds configuration for a new poker table
type TableConfig struct {
	Log                slog.Logger
	Deck               CardSource
	MaxSeats           int
	StartingChips      int64 // chips each player sits down with
	MinBet             int64
	Blinds             BlindSchedule
	AutoIncreaseBlinds bool
}

// DefaultTableConfig is a ten-seat table with 10000 starting chips.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		MaxSeats:      10,
		StartingChips: 10000,
		MinBet:        10,
		Blinds:        DefaultBlindSchedule(),
	}
}

type stallKind int

const (
	stallNone stallKind = iota
	stallStart
	stallStreet
)

// Table is the state of one poker table. It is not safe for concurrent use;
// the Engine owns it and serializes every call.
type Table struct {
	log  slog.Logger
	cfg  TableConfig
	deck CardSource

	players map[int]*Player // keyed by seat

	phase          Phase
	community      []Card
	pot            int64
	currentBet     int64
	currentSeat    int
	dealerSeat     int
	smallBlindSeat int
	bigBlindSeat   int
	blindLevel     int
	smallBlind     int64
	bigBlind       int64
	autoIncrease   bool
	actionsInRound int
	handNumber     int

	// turn changes every time a seat is put on the clock.
	turn     uint64
	stall    stallKind
	stallErr error

	lastShowdown *ShowdownResult
	streets      *statemachine.StateMachine[Table]
	potManager   *PotManager
}

// NewTable creates a new poker table
func NewTable(cfg TableConfig) *Table {
	def := DefaultTableConfig()
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = def.MaxSeats
	}
	if cfg.StartingChips <= 0 {
		cfg.StartingChips = def.StartingChips
	}
	if cfg.MinBet <= 0 {
		cfg.MinBet = def.MinBet
	}
	if len(cfg.Blinds.Multipliers) == 0 {
		cfg.Blinds = def.Blinds
	}
	if cfg.Deck == nil {
		cfg.Deck = NewDeck(rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	t := &Table{
		log:          cfg.Log,
		cfg:          cfg,
		deck:         cfg.Deck,
		players:      make(map[int]*Player),
		autoIncrease: cfg.AutoIncreaseBlinds,
		potManager:   NewPotManager(cfg.Log),
	}
	t.smallBlind, t.bigBlind = cfg.Blinds.Amounts(0)
	t.streets = statemachine.NewStateMachine[Table](t, nil)
	return t
}

// Phase returns the current phase.
func (t *Table) Phase() Phase { return t.phase }

// HandNumber counts hands started at this table.
func (t *Table) HandNumber() int { return t.handNumber }

// Turn identifies the current turn; it changes whenever a seat is put on
// the clock.
func (t *Table) Turn() uint64 { return t.turn }

// CurrentSeat is the seat on the clock, 0 when nobody is.
func (t *Table) CurrentSeat() int { return t.currentSeat }

// Stalled reports whether dealing failed and the hand is waiting on Resume.
func (t *Table) Stalled() bool { return t.stall != stallNone }

// StallErr is the error that stalled the table, if any.
func (t *Table) StallErr() error { return t.stallErr }

// LastShowdown returns the payout report of the last finished hand.
func (t *Table) LastShowdown() *ShowdownResult { return t.lastShowdown }

// Player returns the player with the given id, or nil.
func (t *Table) Player(id string) *Player {
	for _, p := range t.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerAt returns the player in seat, or nil.
func (t *Table) PlayerAt(seat int) *Player {
	return t.players[seat]
}

// Players returns the seated players ordered by seat.
func (t *Table) Players() []*Player {
	out := make([]*Player, 0, len(t.players))
	for _, seat := range t.seats() {
		out = append(out, t.players[seat])
	}
	return out
}

func (t *Table) seats() []int {
	seats := make([]int, 0, len(t.players))
	for seat := range t.players {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	return seats
}

// Join seats a new player with the table's starting chips. Players joining
// during a hand sit out until the next one.
func (t *Table) Join(id, name string, seat int) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if seat < 1 || seat > t.cfg.MaxSeats {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	if t.Player(id) != nil {
		return nil, ErrAlreadySeated
	}
	if t.players[seat] != nil {
		return nil, fmt.Errorf("%w: %d", ErrSeatTaken, seat)
	}
	p := NewPlayer(id, name, seat, t.cfg.StartingChips)
	t.players[seat] = p
	t.log.Infof("%s joined seat %d", name, seat)
	return p, nil
}

// JoinAnySeat seats a player in one of the free seats. pick receives the
// number of free seats and returns the index of the one to take.
func (t *Table) JoinAnySeat(id, name string, pick func(n int) int) (*Player, error) {
	var free []int
	for seat := 1; seat <= t.cfg.MaxSeats; seat++ {
		if t.players[seat] == nil {
			free = append(free, seat)
		}
	}
	if len(free) == 0 {
		return nil, ErrTableFull
	}
	return t.Join(id, name, free[pick(len(free))])
}

// Leave removes a player. During a hand the player is folded and only
// leaves the seat once the hand ends.
func (t *Table) Leave(ctx context.Context, id string) error {
	p := t.Player(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	t.remove(ctx, p)
	return nil
}

// Kick removes whoever sits in seat, like Leave.
func (t *Table) Kick(ctx context.Context, seat int) (*Player, error) {
	p := t.players[seat]
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrSeatEmpty, seat)
	}
	t.remove(ctx, p)
	return p, nil
}

func (t *Table) remove(ctx context.Context, p *Player) {
	if !t.phase.Betting() || !p.InHand {
		delete(t.players, p.Seat)
		t.log.Infof("%s left seat %d", p.Name, p.Seat)
		return
	}
	p.Disconnected = true
	if !p.InContention() {
		return
	}
	p.Folded = true
	t.log.Infof("%s left seat %d mid-hand, folding", p.Name, p.Seat)
	if p.Seat == t.currentSeat && t.stall == stallNone {
		p.HasActed = true
		t.actionsInRound++
	}
	t.resolve(ctx, p.Seat)
}

// SetBlindLevel selects the blind level used from the next hand on.
func (t *Table) SetBlindLevel(level int) error {
	if !t.cfg.Blinds.ValidLevel(level) {
		return fmt.Errorf("%w: %d", ErrInvalidBlindLevel, level)
	}
	t.blindLevel = level
	t.smallBlind, t.bigBlind = t.cfg.Blinds.Amounts(level)
	return nil
}

// SetAutoIncreaseBlinds turns the per-hand blind level bump on or off.
func (t *Table) SetAutoIncreaseBlinds(on bool) {
	t.autoIncrease = on
}

// StartHand rotates the button, deals hole cards and posts the blinds.
//
// Cards are drawn before any state changes, so a failing CardSource leaves
// the table as it was; the table is then marked stalled until Resume.
func (t *Table) StartHand(ctx context.Context) error {
	if t.phase.Betting() {
		return ErrHandInProgress
	}
	t.EndHand()

	var seats []int
	for _, seat := range t.seats() {
		if t.players[seat].Chips > 0 {
			seats = append(seats, seat)
		}
	}
	btn, err := NextButton(seats, t.dealerSeat)
	if err != nil {
		return err
	}

	// Hole cards go one at a time, two rounds, starting left of the dealer.
	order := make([]int, 0, len(seats))
	for seat := btn.SmallBlind; len(order) < len(seats); seat = seatAfter(seats, seat) {
		order = append(order, seat)
	}
	if err := t.deck.Shuffle(ctx); err != nil {
		return t.stalled(stallStart, fmt.Errorf("shuffle: %w", err))
	}
	cards, err := t.deck.Draw(ctx, 2*len(order))
	if err != nil {
		return t.stalled(stallStart, fmt.Errorf("deal hole cards: %w", err))
	}

	t.stall, t.stallErr = stallNone, nil
	t.handNumber++
	t.lastShowdown = nil
	t.community = nil
	t.pot = 0
	t.currentBet = 0
	t.actionsInRound = 0
	for _, p := range t.players {
		p.resetForHand()
	}
	for i, seat := range order {
		t.players[seat].HoleCards = []Card{cards[i], cards[len(order)+i]}
	}

	t.dealerSeat = btn.Dealer
	t.smallBlindSeat = btn.SmallBlind
	t.bigBlindSeat = btn.BigBlind
	t.smallBlind, t.bigBlind = t.cfg.Blinds.Amounts(t.blindLevel)
	t.postBlinds()
	if t.autoIncrease {
		t.blindLevel = min(t.blindLevel+1, t.cfg.Blinds.Levels()-1)
	}

	t.phase = PhasePreFlop
	t.streets.SetState(stateFlop)
	t.log.Infof("hand %d: dealer %d, blinds %d/%d at seats %d/%d",
		t.handNumber, t.dealerSeat, t.smallBlind, t.bigBlind, t.smallBlindSeat, t.bigBlindSeat)

	first := btn.FirstToAct
	if !t.players[first].CanAct() {
		first = t.nextToAct(first)
	}
	t.setCurrent(first)

	if t.bettingClosed() {
		t.runStreets(ctx)
	}
	return nil
}

// postBlinds charges the blinds, short stacks posting what they have.
func (t *Table) postBlinds() {
	sb := t.players[t.smallBlindSeat]
	bb := t.players[t.bigBlindSeat]
	t.pot += sb.commit(t.smallBlind)
	t.pot += bb.commit(t.bigBlind)
	t.currentBet = max(sb.Contribution, bb.Contribution)
	t.log.Debugf("blinds posted: sb=%d bb=%d pot=%d", sb.Contribution, bb.Contribution, t.pot)
}

// EndHand returns a finished table to waiting and removes players who left
// or have no chips. It returns the removed players.
func (t *Table) EndHand() []*Player {
	if t.phase.Betting() {
		return nil
	}
	var removed []*Player
	for _, seat := range t.seats() {
		p := t.players[seat]
		if p.Disconnected || (p.InHand && p.Chips == 0) {
			delete(t.players, seat)
			removed = append(removed, p)
			continue
		}
		p.HoleCards = nil
		p.InHand = false
		p.Folded = false
		p.AllIn = false
		p.Contribution = 0
		p.TotalContribution = 0
	}
	t.phase = PhaseWaiting
	t.community = nil
	t.currentBet = 0
	t.currentSeat = 0
	t.actionsInRound = 0
	for _, p := range removed {
		t.log.Infof("%s removed from seat %d", p.Name, p.Seat)
	}
	return removed
}

// Act applies one betting action for the player on the clock. Rejected
// actions return an error and change nothing.
func (t *Table) Act(ctx context.Context, playerID string, action Action, amount int64) error {
	if !t.phase.Betting() {
		return ErrNoBettingRound
	}
	if t.stall != stallNone {
		return ErrHandStalled
	}
	p := t.Player(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Seat != t.currentSeat || !p.CanAct() {
		return ErrNotYourTurn
	}

	prevBet := t.currentBet
	switch action {
	case ActionBet:
		switch {
		case t.currentBet != 0:
			return ErrBetNotAllowed
		case amount <= 0:
			return ErrInvalidAmount
		case amount < t.cfg.MinBet:
			return fmt.Errorf("%w: %d < %d", ErrBetTooSmall, amount, t.cfg.MinBet)
		case amount > p.Chips:
			return ErrInsufficientChips
		}
		t.pot += p.commit(amount)
		t.currentBet = p.Contribution

	case ActionRaise:
		switch {
		case amount <= 0:
			return ErrInvalidAmount
		case amount <= t.currentBet:
			return fmt.Errorf("%w: %d <= %d", ErrRaiseTooSmall, amount, t.currentBet)
		case amount-p.Contribution > p.Chips:
			return ErrInsufficientChips
		}
		t.pot += p.commit(amount - p.Contribution)
		t.currentBet = amount

	case ActionCall:
		if p.Contribution >= t.currentBet {
			return ErrNothingToCall
		}
		t.pot += p.commit(t.currentBet - p.Contribution)

	case ActionCheck:
		if p.Contribution != t.currentBet {
			return ErrCannotCheck
		}

	case ActionFold:
		p.Folded = true

	case ActionAllIn:
		t.pot += p.commit(p.Chips)
		t.currentBet = max(t.currentBet, p.Contribution)

	default:
		return fmt.Errorf("%w: %v", ErrUnknownAction, action)
	}

	p.HasActed = true
	p.LastAction = time.Now()
	if t.currentBet > prevBet {
		// Everyone else gets to respond to the raise.
		for _, o := range t.players {
			if o != p && o.CanAct() {
				o.HasActed = false
			}
		}
	}
	t.actionsInRound++
	t.log.Debugf("seat %d %v %d: contribution=%d pot=%d currentBet=%d",
		p.Seat, action, amount, p.Contribution, t.pot, t.currentBet)

	t.resolve(ctx, p.Seat)
	return nil
}

// Timeout folds the player on the clock if turn is still the current turn.
// It reports whether anything happened.
func (t *Table) Timeout(ctx context.Context, turn uint64) bool {
	if turn != t.turn || !t.phase.Betting() || t.stall != stallNone {
		return false
	}
	p := t.players[t.currentSeat]
	if p == nil {
		return false
	}
	t.log.Infof("seat %d timed out", p.Seat)
	return t.Act(ctx, p.ID, ActionFold, 0) == nil
}

// AdvancePhase closes the current betting round whether or not it is
// complete and deals the next street. On a stalled table it retries the
// failed step instead.
func (t *Table) AdvancePhase(ctx context.Context) error {
	if t.stall != stallNone {
		return t.Resume(ctx)
	}
	if !t.phase.Betting() {
		return ErrNoBettingRound
	}
	if t.contenders() <= 1 {
		t.streets.SetState(stateShowdown)
	}
	return t.runStreets(ctx)
}

// Resume retries the dealing step that stalled the table.
func (t *Table) Resume(ctx context.Context) error {
	switch t.stall {
	case stallStart:
		return t.StartHand(ctx)
	case stallStreet:
		return t.runStreets(ctx)
	}
	return nil
}

// resolve moves the hand along after the player in actorSeat changed state.
func (t *Table) resolve(ctx context.Context, actorSeat int) {
	if t.contenders() <= 1 {
		t.streets.SetState(stateShowdown)
		t.runStreets(ctx)
		return
	}
	if t.advancePhaseIfNeeded(ctx) {
		return
	}
	if actorSeat == t.currentSeat {
		t.setCurrent(t.nextToAct(actorSeat))
	}
}

// advancePhaseIfNeeded deals the next street once the betting round is
// complete: somebody acted this round, and every player who can still act
// has acted since the last raise and matched the current bet. It reports
// whether the round was closed.
func (t *Table) advancePhaseIfNeeded(ctx context.Context) bool {
	if !t.phase.Betting() || t.stall != stallNone || t.actionsInRound == 0 {
		return false
	}
	for _, p := range t.players {
		if p.CanAct() && (!p.HasActed || p.Contribution != t.currentBet) {
			return false
		}
	}
	t.runStreets(ctx)
	return true
}

// runStreets deals streets until betting is possible again or the hand is
// settled. A failure stalls the table; the failed street is retried by the
// next call.
func (t *Table) runStreets(ctx context.Context) error {
	for {
		if err := t.streets.Dispatch(ctx); err != nil {
			return t.stalled(stallStreet, err)
		}
		t.stall, t.stallErr = stallNone, nil
		if t.phase == PhaseShowdown || !t.bettingClosed() {
			return nil
		}
	}
}

func (t *Table) stalled(kind stallKind, err error) error {
	t.stall, t.stallErr = kind, err
	t.log.Errorf("hand %d stalled in %v: %v", t.handNumber, t.phase, err)
	return err
}

// bettingClosed reports whether no more betting can happen this hand: at
// most one player can still act and nobody is left to call.
func (t *Table) bettingClosed() bool {
	canAct := 0
	for _, p := range t.players {
		if !p.CanAct() {
			continue
		}
		canAct++
		if p.Contribution < t.currentBet {
			return false
		}
	}
	return canAct <= 1
}

func (t *Table) contenders() int {
	n := 0
	for _, p := range t.players {
		if p.InContention() {
			n++
		}
	}
	return n
}

// nextToAct returns the first seat after seat, wrapping, whose player still
// owes a decision, falling back to any player who can act. It returns 0 if
// nobody can act.
func (t *Table) nextToAct(seat int) int {
	seats := t.seats()
	if len(seats) == 0 {
		return 0
	}
	// Rotate so the scan starts just after seat.
	start := sort.SearchInts(seats, seat+1)
	fallback := 0
	for i := range seats {
		p := t.players[seats[(start+i)%len(seats)]]
		if !p.CanAct() {
			continue
		}
		if !p.HasActed || p.Contribution < t.currentBet {
			return p.Seat
		}
		if fallback == 0 {
			fallback = p.Seat
		}
	}
	return fallback
}

func (t *Table) setCurrent(seat int) {
	t.currentSeat = seat
	t.turn++
}

// dealStreet burns one card, reveals n and opens a new betting round.
func (t *Table) dealStreet(ctx context.Context, phase Phase, n int) error {
	cards, err := t.deck.Draw(ctx, n+1)
	if err != nil {
		return fmt.Errorf("deal %v: %w", phase, err)
	}
	for _, p := range t.players {
		p.resetForRound()
	}
	t.community = append(t.community, cards[1:]...)
	t.currentBet = 0
	t.actionsInRound = 0
	t.phase = phase
	t.setCurrent(t.nextToAct(t.dealerSeat))
	t.log.Debugf("hand %d %v: %v", t.handNumber, phase, cards[1:])
	return nil
}

// ChipsInPlay is every chip at the table: stacks plus the pot.
func (t *Table) ChipsInPlay() int64 {
	total := t.pot
	for _, p := range t.players {
		total += p.Chips
	}
	return total
}
