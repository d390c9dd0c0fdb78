package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vctt94/bisonbotkit/logging"
	"github.com/vctt94/holdemtable/pkg/deckapi"
	"github.com/vctt94/holdemtable/pkg/poker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Server runs the table engine and serves it to websocket clients.
type Server struct {
	log     slog.Logger
	cfg     Config
	engine  *poker.Engine
	records RecordsStore
	admin   *AdminGate
	events  *EventProcessor
	health  *health.Server

	// seats picks random free seats; only used on the engine goroutine.
	seats *rand.Rand

	upgrader websocket.Upgrader

	// clientsMu also guards ctx and closing. Once closing is set no new
	// session is accepted, so wg.Wait cannot race a late wg.Add.
	clients   map[string]*client
	clientsMu sync.RWMutex
	ctx       context.Context // bounds client sessions; set by start
	closing   bool
	wg        sync.WaitGroup
}

// NewServer wires the engine, event delivery and records store. The deck
// comes from cfg.DeckAPIURL when set, otherwise from a local deck seeded
// with cfg.Seed (or the clock when zero).
func NewServer(cfg Config, logBackend *logging.LogBackend, records RecordsStore) (*Server, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		log:     logBackend.Logger("SRVR"),
		cfg:     cfg,
		records: records,
		admin:   NewAdminGate(cfg.AdminSecret),
		health:  health.NewServer(),
		clients: make(map[string]*client),
		ctx:     context.Background(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.events = NewEventProcessor(s.log, 256, stateFanout{server: s}, &handLogger{log: logBackend.Logger("GAME")})

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.seats = rand.New(rand.NewSource(seed + 1))

	tc := cfg.TableConfig()
	tc.Log = logBackend.Logger("TABL")
	if cfg.DeckAPIURL != "" {
		tc.Deck = deckapi.New(deckapi.Config{Log: logBackend.Logger("DECK"), BaseURL: cfg.DeckAPIURL})
	} else {
		tc.Deck = poker.NewDeck(rand.New(rand.NewSource(seed)))
	}

	s.engine = poker.NewEngine(poker.EngineConfig{
		Log:            logBackend.Logger("GAME"),
		Table:          tc,
		Broadcaster:    s.events,
		Records:        records,
		TurnTimeout:    cfg.TurnTimeout,
		AutoStartDelay: cfg.AutoStartDelay,
		DealRetryDelay: cfg.DealRetryDelay,
	})
	return s, nil
}

// Engine returns the table engine.
func (s *Server) Engine() *poker.Engine { return s.engine }

// Handler returns the HTTP routes: /ws, /health, /records and /state.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /records", s.handleRecords)
	mux.HandleFunc("GET /state", s.handleState)
	return mux
}

// Run starts the engine and serves HTTP on lis, and the gRPC health service
// on grpcLis when it is not nil, until ctx is canceled.
func (s *Server) Run(ctx context.Context, lis, grpcLis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	engineDone := s.start(ctx)

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 2)
	go func() {
		s.log.Infof("listening on %s", lis.Addr())
		if err := httpSrv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if grpcLis != nil {
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, s.health)
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			s.log.Infof("gRPC health listening on %s", grpcLis.Addr())
			if err := grpcSrv.Serve(grpcLis); err != nil {
				errc <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
		cancel()
	}

	s.log.Infof("shutting down")
	s.health.Shutdown()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		s.log.Warnf("http shutdown: %v", serr)
	}
	s.closeClients()
	s.wg.Wait()
	<-engineDone
	return err
}

// start launches event delivery and the engine. Both stop when ctx ends;
// the returned channel yields the engine's exit error.
func (s *Server) start(ctx context.Context) <-chan error {
	s.clientsMu.Lock()
	s.ctx = ctx
	s.clientsMu.Unlock()
	s.events.Start()
	done := make(chan error, 1)
	go func() {
		err := s.engine.Run(ctx)
		s.events.Stop()
		done <- err
	}()
	return done
}

// closeClients stops accepting sessions and drops the connected ones.
func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.closing = true
	for _, c := range s.clients {
		c.conn.Close()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Records(r.Context())
	if err != nil {
		s.log.Errorf("unable to load records: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "records unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleState serves the spectator view of the table.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot().ViewFor(""))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.isClosing() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugf("websocket upgrade failed: %v", err)
		return
	}
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, s.cfg.SendQueue),
		done: make(chan struct{}),
	}
	ctx, ok := s.addClient(c)
	if !ok {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	s.log.Debugf("client %s connected from %s", c.id, r.RemoteAddr)

	view := s.engine.Snapshot().ViewFor(c.id)
	s.sendToClient(c, serverMessage{Type: msgState, State: &view})

	go s.writePump(c)
	go s.readPump(ctx, c)
}

// readPump decodes client messages and applies them in arrival order. When
// the connection ends a seated player leaves the table.
func (s *Server) readPump(ctx context.Context, c *client) {
	defer s.wg.Done()
	defer func() {
		s.removeClient(c)
		c.conn.Close()
		err := s.engine.Leave(context.WithoutCancel(ctx), c.id)
		if err == nil {
			s.log.Infof("client %s disconnected, left the table", c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debugf("client %s read error: %v", c.id, err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendToClient(c, serverMessage{Type: msgActionRejected, Error: "malformed message"})
			continue
		}
		s.handleMessage(ctx, c, msg)
	}
}

func (s *Server) writePump(c *client) {
	defer s.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case b := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
