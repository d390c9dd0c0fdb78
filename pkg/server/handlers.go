package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vctt94/holdemtable/pkg/poker"
)

// Client to server message types.
const (
	msgJoin              = "join"
	msgJoinSeat          = "joinSeat"
	msgChat              = "chat"
	msgStartHand         = "startHand"
	msgAdvancePhase      = "advancePhase"
	msgSetBlindLevel     = "setBlindLevel"
	msgToggleAutoBlinds  = "toggleAutoIncreaseBlinds"
	msgAuthenticateAdmin = "authenticateAdmin"
	msgLeave             = "leave"
	msgKick              = "kick"
	msgResetRecords      = "resetRecords"
	msgGetRecords        = "getRecords"
)

// Server to client message types.
const (
	msgState          = "state"
	msgJoined         = "joined"
	msgAdminResult    = "adminResult"
	msgActionRejected = "actionRejected"
	msgAdminError     = "adminError"
	msgRecords        = "records"
)

// maxChatLen is the longest chat line accepted, in runes.
const maxChatLen = 280

var (
	errEmptyChat   = errors.New("empty chat message")
	errChatTooLong = fmt.Errorf("chat message longer than %d characters", maxChatLen)
	errNoChatName  = errors.New("chat needs a name or a seat")
)

// clientMessage is a request from a client. Only the fields the type uses
// are read.
type clientMessage struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Seat    int    `json:"seat,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Level   int    `json:"level,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
	Secret  string `json:"secret,omitempty"`
	Text    string `json:"text,omitempty"`
}

// serverMessage is anything the server pushes to a client.
type serverMessage struct {
	Type     string               `json:"type"`
	State    *poker.TableSnapshot `json:"state,omitempty"`
	PlayerID string               `json:"playerId,omitempty"`
	Seat     int                  `json:"seat,omitempty"`
	OK       *bool                `json:"ok,omitempty"`
	Action   string               `json:"action,omitempty"`
	Error    string               `json:"error,omitempty"`
	Records  *Records             `json:"records,omitempty"`
	Name     string               `json:"name,omitempty"`
	Text     string               `json:"text,omitempty"`
}

func privileged(typ string) bool {
	switch typ {
	case msgSetBlindLevel, msgToggleAutoBlinds, msgKick, msgResetRecords:
		return true
	}
	return false
}

// handleMessage applies one client request. Failures are reported to the
// sender only; successful table changes reach everyone through the engine's
// broadcast.
func (s *Server) handleMessage(ctx context.Context, c *client, msg clientMessage) {
	err := s.dispatch(ctx, c, msg)
	switch {
	case err == nil:
	case errors.Is(err, poker.ErrEngineStopped), errors.Is(err, context.Canceled):
		s.log.Debugf("dropping %s from %s: %v", msg.Type, c.id, err)
	case privileged(msg.Type):
		s.log.Infof("admin command %s from %s rejected: %v", msg.Type, c.id, err)
		s.sendToClient(c, serverMessage{Type: msgAdminError, Action: msg.Type, Error: err.Error()})
	default:
		s.log.Debugf("%s from %s rejected: %v", msg.Type, c.id, err)
		s.sendToClient(c, serverMessage{Type: msgActionRejected, Action: msg.Type, Error: err.Error()})
	}
}

func (s *Server) dispatch(ctx context.Context, c *client, msg clientMessage) error {
	if privileged(msg.Type) && !c.isAdmin() {
		return ErrNotAuthorized
	}

	switch msg.Type {
	case msgJoin, msgJoinSeat:
		return s.joinSeat(ctx, c, msg)

	case msgChat:
		return s.chat(c, msg)

	case msgLeave:
		return s.engine.Leave(ctx, c.id)

	case msgStartHand:
		return s.engine.StartHand(ctx)

	case msgAdvancePhase:
		return s.engine.AdvancePhase(ctx)

	case msgAuthenticateAdmin:
		ok := s.admin.Authenticate(msg.Secret)
		c.setAdmin(ok)
		if ok {
			s.log.Infof("client %s authenticated as admin", c.id)
		} else {
			s.log.Warnf("client %s failed admin authentication", c.id)
		}
		s.sendToClient(c, serverMessage{Type: msgAdminResult, OK: &ok})
		return nil

	case msgSetBlindLevel:
		return s.engine.SetBlindLevel(ctx, msg.Level)

	case msgToggleAutoBlinds:
		return s.engine.SetAutoIncreaseBlinds(ctx, msg.Enabled)

	case msgKick:
		return s.engine.Kick(ctx, msg.Seat)

	case msgResetRecords:
		if err := s.records.Reset(ctx); err != nil {
			return err
		}
		return s.sendRecords(ctx, c)

	case msgGetRecords:
		return s.sendRecords(ctx, c)
	}

	action, err := poker.ParseAction(msg.Type)
	if err != nil {
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return s.engine.Act(ctx, c.id, action, msg.Amount)
}

// joinSeat seats the client. A plain join takes a random free seat.
func (s *Server) joinSeat(ctx context.Context, c *client, msg clientMessage) error {
	seat := msg.Seat
	var err error
	if msg.Type == msgJoin {
		seat, err = s.engine.JoinAnySeat(ctx, c.id, msg.Name, s.seats.Intn)
	} else {
		err = s.engine.Join(ctx, c.id, msg.Name, seat)
	}
	if err != nil {
		return err
	}
	s.log.Infof("%s took seat %d", msg.Name, seat)

	view := s.engine.Snapshot().ViewFor(c.id)
	s.sendToClient(c, serverMessage{Type: msgJoined, PlayerID: c.id, Seat: seat, State: &view})
	return nil
}

// chat relays a line of text to every session. Seated players speak under
// their table name; anyone else must supply one.
func (s *Server) chat(c *client, msg clientMessage) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "":
		return errEmptyChat
	case utf8.RuneCountInString(text) > maxChatLen:
		return errChatTooLong
	}
	name := strings.TrimSpace(msg.Name)
	if p, ok := s.engine.Snapshot().Player(c.id); ok {
		name = p.Name
	}
	if name == "" {
		return errNoChatName
	}
	s.events.PublishEvent(&TableEvent{
		Type:      TableEventChat,
		Chat:      &ChatLine{From: name, Text: text},
		Timestamp: time.Now(),
	})
	return nil
}

func (s *Server) sendRecords(ctx context.Context, c *client) error {
	rec, err := s.records.Records(ctx)
	if err != nil {
		return err
	}
	s.sendToClient(c, serverMessage{Type: msgRecords, Records: &rec})
	return nil
}
