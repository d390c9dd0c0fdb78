package poker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
)

// ErrEngineStopped is returned by Submit once Run has returned.
var ErrEngineStopped = errors.New("engine stopped")

// errNoChange marks a command that ran but left the table untouched.
var errNoChange = errors.New("no change")

// Broadcaster pushes table snapshots to observers. Broadcast must not block
// for long; it is called from the engine goroutine.
type Broadcaster interface {
	Broadcast(TableSnapshot)
}

// RecordsStore keeps historical win statistics.
type RecordsStore interface {
	RecordWin(ctx context.Context, name string, amount int64) error
	RecordPot(ctx context.Context, amount int64) error
}

// Command is a unit of work run against the table by the engine goroutine.
type Command func(ctx context.Context, t *Table) error

type request struct {
	cmd   Command
	reply chan error
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Log            slog.Logger
	Table          TableConfig
	Broadcaster    Broadcaster
	Records        RecordsStore
	TurnTimeout    time.Duration // zero disables turn timers
	AutoStartDelay time.Duration // zero disables starting the next hand automatically
	DealRetryDelay time.Duration
}

// Engine owns a Table and applies commands to it one at a time from a single
// goroutine. Turn timers, deal retries and automatic hand starts are posted
// back to the same goroutine as commands.
type Engine struct {
	log   slog.Logger
	cfg   EngineConfig
	table *Table

	cmds chan request
	done chan struct{}

	turnTimer    *time.Timer
	armedTurn    uint64
	deadline     time.Time
	retryTimer   *time.Timer
	retryPending bool // retryTimer's command has not run yet
	startTimer   *time.Timer
	reported     int // last hand whose showdown was recorded

	mu     sync.RWMutex
	latest TableSnapshot
}

// NewEngine creates an engine and its table. Call Run to start it.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.Table.Log == nil {
		cfg.Table.Log = cfg.Log
	}
	if cfg.DealRetryDelay <= 0 {
		cfg.DealRetryDelay = 2 * time.Second
	}
	e := &Engine{
		log:   cfg.Log,
		cfg:   cfg,
		table: NewTable(cfg.Table),
		cmds:  make(chan request, 16),
		done:  make(chan struct{}),
	}
	e.latest = e.table.Snapshot()
	return e
}

// Run processes commands until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.stopTimers()

	e.log.Infof("table engine started")
	for {
		select {
		case <-ctx.Done():
			e.log.Infof("table engine stopping")
			return ctx.Err()
		case req := <-e.cmds:
			wasStalled := e.table.Stalled()
			err := req.cmd(ctx, e.table)
			changed := err == nil || e.table.Stalled() != wasStalled
			if errors.Is(err, errNoChange) {
				err, changed = nil, false
			}
			if changed {
				e.afterChange(ctx)
			}
			if req.reply != nil {
				req.reply <- err
			}
		}
	}
}

// Submit runs cmd on the engine goroutine and waits for its result.
func (e *Engine) Submit(ctx context.Context, cmd Command) error {
	reply := make(chan error, 1)
	select {
	case e.cmds <- request{cmd: cmd, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineStopped
	}
}

// post queues cmd without waiting. It is used by timer callbacks.
func (e *Engine) post(cmd Command) {
	select {
	case e.cmds <- request{cmd: cmd}:
	case <-e.done:
	}
}

// Snapshot returns the state published after the last change, hole cards
// included.
func (e *Engine) Snapshot() TableSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// afterChange runs on the engine goroutine after every command that
// changed the table.
func (e *Engine) afterChange(ctx context.Context) {
	t := e.table

	if t.Phase() == PhaseShowdown && t.HandNumber() != e.reported {
		e.reported = t.HandNumber()
		e.recordShowdown(ctx, t.LastShowdown())
		e.scheduleNextHand()
	}

	if t.Stalled() {
		e.scheduleRetry()
	}

	e.armTurnTimer()
	e.publish()
}

func (e *Engine) recordShowdown(ctx context.Context, res *ShowdownResult) {
	if res == nil || e.cfg.Records == nil {
		return
	}
	for _, pot := range res.Pots {
		for _, w := range pot.Winners {
			if err := e.cfg.Records.RecordWin(ctx, w.Name, w.Amount); err != nil {
				e.log.Errorf("unable to record win for %s: %v", w.Name, err)
			}
		}
	}
	if err := e.cfg.Records.RecordPot(ctx, res.TotalPot); err != nil {
		e.log.Errorf("unable to record pot: %v", err)
	}
}

// scheduleNextHand starts another hand after AutoStartDelay if enough
// funded players remain.
func (e *Engine) scheduleNextHand() {
	if e.cfg.AutoStartDelay <= 0 {
		return
	}
	funded := 0
	for _, p := range e.table.Players() {
		if p.Chips > 0 && !p.Disconnected {
			funded++
		}
	}
	if funded < 2 {
		e.log.Infof("hand %d over, waiting for players", e.table.HandNumber())
		return
	}
	if e.startTimer != nil {
		e.startTimer.Stop()
	}
	hand := e.table.HandNumber()
	e.startTimer = time.AfterFunc(e.cfg.AutoStartDelay, func() {
		e.post(func(ctx context.Context, t *Table) error {
			if t.Phase() != PhaseShowdown || t.HandNumber() != hand {
				return errNoChange
			}
			err := t.StartHand(ctx)
			if errors.Is(err, ErrNotEnoughPlayers) {
				e.log.Infof("not starting hand: %v", err)
				return errNoChange
			}
			if err != nil {
				e.log.Errorf("unable to start hand: %v", err)
			}
			return err
		})
	})
}

// scheduleRetry retries the stalled dealing step after DealRetryDelay. A
// retry already on the clock is left alone. Evaluator contract violations
// are not retried.
func (e *Engine) scheduleRetry() {
	if err := e.table.StallErr(); errors.Is(err, ErrInvalidCardCount) || errors.Is(err, ErrDuplicateCard) {
		e.log.Errorf("hand %d cannot be settled: %v", e.table.HandNumber(), err)
		return
	}
	if e.retryPending {
		return
	}
	e.retryPending = true
	e.retryTimer = time.AfterFunc(e.cfg.DealRetryDelay, func() {
		e.post(func(ctx context.Context, t *Table) error {
			e.retryPending = false
			if !t.Stalled() {
				return errNoChange
			}
			e.log.Infof("retrying stalled deal")
			if err := t.Resume(ctx); err != nil {
				e.log.Warnf("deal retry failed: %v", err)
			}
			return nil
		})
	})
}

// armTurnTimer puts the current seat on the clock. The previous timer is
// stopped first; a callback that already fired carries a stale turn and is
// ignored by Table.Timeout.
func (e *Engine) armTurnTimer() {
	t := e.table
	onClock := t.Phase().Betting() && !t.Stalled() && t.CurrentSeat() != 0
	if onClock && t.Turn() == e.armedTurn {
		return
	}
	if e.turnTimer != nil {
		e.turnTimer.Stop()
		e.turnTimer = nil
	}
	e.deadline = time.Time{}
	e.armedTurn = t.Turn()
	if !onClock || e.cfg.TurnTimeout <= 0 {
		return
	}

	turn := t.Turn()
	e.deadline = time.Now().Add(e.cfg.TurnTimeout)
	e.turnTimer = time.AfterFunc(e.cfg.TurnTimeout, func() {
		e.post(func(ctx context.Context, t *Table) error {
			if !t.Timeout(ctx, turn) {
				return errNoChange
			}
			return nil
		})
	})
}

func (e *Engine) publish() {
	snap := e.table.Snapshot()
	snap.TurnDeadline = e.deadline

	e.mu.Lock()
	e.latest = snap
	e.mu.Unlock()

	if e.log.Level() <= slog.LevelTrace {
		e.log.Tracef("published state: %s", spew.Sdump(snap))
	}
	if e.cfg.Broadcaster != nil {
		e.cfg.Broadcaster.Broadcast(snap)
	}
}

func (e *Engine) stopTimers() {
	for _, tm := range []*time.Timer{e.turnTimer, e.retryTimer, e.startTimer} {
		if tm != nil {
			tm.Stop()
		}
	}
}

// Join seats a player.
func (e *Engine) Join(ctx context.Context, id, name string, seat int) error {
	return e.Submit(ctx, func(_ context.Context, t *Table) error {
		_, err := t.Join(id, name, seat)
		return err
	})
}

// JoinAnySeat seats a player in a free seat chosen by pick and returns the
// seat. pick runs on the engine goroutine.
func (e *Engine) JoinAnySeat(ctx context.Context, id, name string, pick func(n int) int) (int, error) {
	var seat int
	err := e.Submit(ctx, func(_ context.Context, t *Table) error {
		p, err := t.JoinAnySeat(id, name, pick)
		if err != nil {
			return err
		}
		seat = p.Seat
		return nil
	})
	return seat, err
}

// Leave removes a player, folding them if they are in a hand.
func (e *Engine) Leave(ctx context.Context, id string) error {
	return e.Submit(ctx, func(ctx context.Context, t *Table) error {
		return t.Leave(ctx, id)
	})
}

// Kick removes the player in seat.
func (e *Engine) Kick(ctx context.Context, seat int) error {
	return e.Submit(ctx, func(ctx context.Context, t *Table) error {
		_, err := t.Kick(ctx, seat)
		return err
	})
}

// Act applies a betting action for a player.
func (e *Engine) Act(ctx context.Context, id string, action Action, amount int64) error {
	return e.Submit(ctx, func(ctx context.Context, t *Table) error {
		return t.Act(ctx, id, action, amount)
	})
}

// StartHand deals a new hand.
func (e *Engine) StartHand(ctx context.Context) error {
	return e.Submit(ctx, func(ctx context.Context, t *Table) error {
		return t.StartHand(ctx)
	})
}

// AdvancePhase forces the current betting round closed.
func (e *Engine) AdvancePhase(ctx context.Context) error {
	return e.Submit(ctx, func(ctx context.Context, t *Table) error {
		return t.AdvancePhase(ctx)
	})
}

// SetBlindLevel changes the blind level.
func (e *Engine) SetBlindLevel(ctx context.Context, level int) error {
	return e.Submit(ctx, func(_ context.Context, t *Table) error {
		return t.SetBlindLevel(level)
	})
}

// SetAutoIncreaseBlinds toggles the per-hand blind increase.
func (e *Engine) SetAutoIncreaseBlinds(ctx context.Context, on bool) error {
	return e.Submit(ctx, func(_ context.Context, t *Table) error {
		t.SetAutoIncreaseBlinds(on)
		return nil
	})
}
