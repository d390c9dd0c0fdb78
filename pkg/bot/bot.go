// Package bot plays a seat at the table without a human behind it.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/decred/slog"
	"github.com/vctt94/holdemtable/pkg/client"
	"github.com/vctt94/holdemtable/pkg/poker"
)

// Conn is the part of a client session the bot needs.
type Conn interface {
	Send(client.Request) error
	Await(ctx context.Context, types ...string) (client.Message, error)
}

// Strategy picks the bot's move when it is its turn.
type Strategy interface {
	Decide(s *poker.TableSnapshot, me *poker.PlayerSnapshot) client.Request
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(s *poker.TableSnapshot, me *poker.PlayerSnapshot) client.Request

func (f StrategyFunc) Decide(s *poker.TableSnapshot, me *poker.PlayerSnapshot) client.Request {
	return f(s, me)
}

// Passive checks when nothing is owed and calls otherwise.
var Passive = StrategyFunc(func(s *poker.TableSnapshot, me *poker.PlayerSnapshot) client.Request {
	if s.CurrentBet > me.Contribution {
		return client.Request{Type: "call"}
	}
	return client.Request{Type: "check"}
})

// Shove moves all in at every turn.
var Shove = StrategyFunc(func(*poker.TableSnapshot, *poker.PlayerSnapshot) client.Request {
	return client.Request{Type: "allIn"}
})

// ShowdownFunc is called once for every finished hand.
type ShowdownFunc func(hand int, res *poker.ShowdownResult)

// Config configures a Bot.
type Config struct {
	Log      slog.Logger
	Name     string
	Seat     int // 0 takes any free seat
	Strategy Strategy

	// Hands is the number of finished hands after which Run returns.
	Hands int

	// StartHands makes the bot start a hand whenever the table is idle.
	StartHands bool

	OnShowdown ShowdownFunc
}

// Bot is one automated player.
type Bot struct {
	log  slog.Logger
	cfg  Config
	conn Conn
	id   string

	// joined is the table as it was when the bot sat down.
	joined *poker.TableSnapshot

	lastDone int
	finished int
}

// ErrJoinRejected is returned by Join when the server refuses the seat.
var ErrJoinRejected = errors.New("join rejected")

// New returns a bot that talks to the server over conn.
func New(cfg Config, conn Conn) *Bot {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.Strategy == nil {
		cfg.Strategy = Passive
	}
	if cfg.Hands <= 0 {
		cfg.Hands = 1
	}
	return &Bot{log: cfg.Log, cfg: cfg, conn: conn}
}

// ID is the player id assigned by the server, empty before Join.
func (b *Bot) ID() string { return b.id }

// Join takes the configured seat, or any free seat when Seat is zero.
func (b *Bot) Join(ctx context.Context) error {
	req := client.Request{Type: "joinSeat", Name: b.cfg.Name, Seat: b.cfg.Seat}
	if req.Seat == 0 {
		req.Type = "join"
	}
	if err := b.conn.Send(req); err != nil {
		return err
	}
	msg, err := b.conn.Await(ctx, "joined", "actionRejected")
	if err != nil {
		return err
	}
	if msg.Type == "actionRejected" {
		return fmt.Errorf("%w: %s", ErrJoinRejected, msg.Error)
	}
	b.id = msg.PlayerID
	b.joined = msg.State
	b.log.Infof("%s seated at %d", b.cfg.Name, msg.Seat)
	return nil
}

// Run plays until the configured number of hands have finished, the bot
// is removed from the table, or ctx ends.
func (b *Bot) Run(ctx context.Context) error {
	if b.id == "" {
		if err := b.Join(ctx); err != nil {
			return err
		}
	}

	if b.joined != nil {
		if err := b.step(b.joined); err != nil {
			return err
		}
		b.joined = nil
	}
	for b.finished < b.cfg.Hands {
		msg, err := b.conn.Await(ctx, "state")
		if err != nil {
			return err
		}
		if msg.State == nil {
			continue
		}
		if err := b.step(msg.State); err != nil {
			return err
		}
	}
	return nil
}

// step reacts to one table snapshot.
func (b *Bot) step(s *poker.TableSnapshot) error {
	me := find(s, b.id)
	if me == nil {
		return fmt.Errorf("%s is no longer seated", b.cfg.Name)
	}

	switch {
	case s.Phase == poker.PhaseShowdown && s.HandNumber != b.lastDone:
		b.lastDone = s.HandNumber
		b.finished++
		if b.cfg.OnShowdown != nil && s.LastShowdown != nil {
			b.cfg.OnShowdown(s.HandNumber, s.LastShowdown)
		}
		if b.finished < b.cfg.Hands && b.cfg.StartHands {
			b.send(client.Request{Type: "startHand"})
		}

	case s.Phase == poker.PhaseWaiting && b.cfg.StartHands && len(s.Players) >= 2:
		b.send(client.Request{Type: "startHand"})

	case s.Phase.Betting() && s.CurrentPlayer == me.Seat && !s.Stalled:
		req := b.cfg.Strategy.Decide(s, me)
		b.log.Debugf("%s hand %d %s: %s %d", b.cfg.Name, s.HandNumber, s.Phase, req.Type, req.Amount)
		return b.conn.Send(req)
	}
	return nil
}

// send ignores failures; a lost start request is retried on the next state.
func (b *Bot) send(req client.Request) {
	if err := b.conn.Send(req); err != nil {
		b.log.Warnf("%s: %v", req.Type, err)
	}
}

func find(s *poker.TableSnapshot, id string) *poker.PlayerSnapshot {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}
