package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vctt94/holdemtable/pkg/poker"
)

// client is one websocket session. Session id doubles as the player id once
// the session takes a seat.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	admin    bool
	shutdown bool
}

func (c *client) isAdmin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.admin
}

func (c *client) setAdmin(v bool) {
	c.mu.Lock()
	c.admin = v
	c.mu.Unlock()
}

// close stops the writer; safe to call more than once.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	c.shutdown = true
	close(c.done)
}

// sendToClient queues msg for c. A client whose queue is full is too slow to
// keep up and is disconnected.
func (s *Server) sendToClient(c *client, msg serverMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorf("unable to encode %s message: %v", msg.Type, err)
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
		s.log.Warnf("client %s send queue full, disconnecting", c.id)
		c.close()
	}
}

// stateFanout delivers every snapshot to every connected client, each
// through its own view. A session that holds no seat matches no player and
// gets the spectator view.
type stateFanout struct {
	server *Server
}

func (f stateFanout) HandleEvent(event *TableEvent) {
	if event.Type == TableEventChat {
		f.server.broadcastChat(event.Chat)
		return
	}
	f.server.broadcastState(event.Snapshot)
}

func (s *Server) connected() []*client {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

func (s *Server) broadcastState(snap poker.TableSnapshot) {
	for _, c := range s.connected() {
		view := snap.ViewFor(c.id)
		s.sendToClient(c, serverMessage{Type: msgState, State: &view})
	}
}

func (s *Server) broadcastChat(line *ChatLine) {
	for _, c := range s.connected() {
		s.sendToClient(c, serverMessage{Type: msgChat, Name: line.From, Text: line.Text})
	}
}

// addClient registers c and accounts for its two pumps. It returns the
// session context, or false once shutdown has begun.
func (s *Server) addClient(c *client) (context.Context, bool) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if s.closing {
		return nil, false
	}
	s.clients[c.id] = c
	s.wg.Add(2)
	return s.ctx, true
}

func (s *Server) isClosing() bool {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return s.closing
}

func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c.id)
	s.clientsMu.Unlock()
	c.close()
}

// ClientCount returns the number of connected sessions.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
