// Package client is a websocket client for the table server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/vctt94/holdemtable/pkg/poker"
)

// Message is any message pushed by the server.
type Message struct {
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

// Records mirrors the server's statistics report.
type Records struct {
	HighestPot int64            `json:"highestPot"`
	BiggestWin int64            `json:"biggestWin"`
	WinsByName map[string]int64 `json:"winsByName"`
}

// Request is a message sent to the server.
type Request struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Seat    int    `json:"seat,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Level   int    `json:"level,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
	Secret  string `json:"secret,omitempty"`
	Text    string `json:"text,omitempty"`
}

// PokerClient holds one websocket session with the server.
type PokerClient struct {
	log  slog.Logger
	conn *websocket.Conn

	// Updates receives every server message in arrival order. It is closed
	// when the connection ends.
	Updates chan Message

	writeMu sync.Mutex
	errMu   sync.Mutex
	err     error
}

// WSURL turns an http(s) or bare host:port server address into the
// websocket endpoint URL.
func WSURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Dial connects to the server at addr and starts reading messages.
func Dial(ctx context.Context, addr string, log slog.Logger) (*PokerClient, error) {
	if log == nil {
		log = slog.Disabled
	}
	wsURL, err := WSURL(addr)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	pc := &PokerClient{
		log:     log,
		conn:    conn,
		Updates: make(chan Message, 64),
	}
	go pc.readLoop()
	return pc, nil
}

func (pc *PokerClient) readLoop() {
	defer close(pc.Updates)
	for {
		var msg Message
		if err := pc.conn.ReadJSON(&msg); err != nil {
			pc.setErr(err)
			return
		}
		pc.log.Tracef("received %s", msg.Type)
		pc.Updates <- msg
	}
}

func (pc *PokerClient) setErr(err error) {
	pc.errMu.Lock()
	defer pc.errMu.Unlock()
	if pc.err == nil {
		pc.err = err
	}
}

// Err returns the error that ended the connection, if any.
func (pc *PokerClient) Err() error {
	pc.errMu.Lock()
	defer pc.errMu.Unlock()
	return pc.err
}

// Send writes req to the server.
func (pc *PokerClient) Send(req Request) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	pc.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return pc.conn.WriteJSON(req)
}

// Close ends the session; the server removes the player from the table.
func (pc *PokerClient) Close() error {
	pc.writeMu.Lock()
	pc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	pc.writeMu.Unlock()
	return pc.conn.Close()
}

// ErrClosed is returned by Await when the connection ends first.
var ErrClosed = errors.New("connection closed")

// Await discards messages until one of the given types arrives.
func (pc *PokerClient) Await(ctx context.Context, types ...string) (Message, error) {
	for {
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case msg, ok := <-pc.Updates:
			if !ok {
				if err := pc.Err(); err != nil {
					return Message{}, fmt.Errorf("%w: %v", ErrClosed, err)
				}
				return Message{}, ErrClosed
			}
			for _, t := range types {
				if msg.Type == t {
					return msg, nil
				}
			}
		}
	}
}

// Authenticate performs the admin handshake.
func (pc *PokerClient) Authenticate(ctx context.Context, secret string) error {
	if err := pc.Send(Request{Type: "authenticateAdmin", Secret: secret}); err != nil {
		return err
	}
	msg, err := pc.Await(ctx, "adminResult")
	if err != nil {
		return err
	}
	if msg.OK == nil || !*msg.OK {
		return errors.New("admin authentication failed")
	}
	return nil
}
