package server

import (
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/holdemtable/pkg/poker"
)

// TableEventType represents the type of table event
type TableEventType string

const (
	TableEventStateChanged TableEventType = "state_changed"
	TableEventHandEnded    TableEventType = "hand_ended"
	TableEventChat         TableEventType = "chat"
)

// ChatLine is one relayed chat message.
type ChatLine struct {
	From string
	Text string
}

// TableEvent is queued for delivery. Chat events carry Chat and no
// snapshot; every other event carries the whole table.
type TableEvent struct {
	Type      TableEventType
	Snapshot  poker.TableSnapshot
	Chat      *ChatLine
	Timestamp time.Time
}

// EventHandler receives events from the processor's worker goroutine.
type EventHandler interface {
	HandleEvent(event *TableEvent)
}

// EventProcessor decouples the table engine from client delivery. The engine
// publishes snapshots without blocking; a single worker hands them to the
// registered handlers in publish order.
type EventProcessor struct {
	log      slog.Logger
	queue    chan *TableEvent
	handlers []EventHandler
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(log slog.Logger, queueSize int, handlers ...EventHandler) *EventProcessor {
	return &EventProcessor{
		log:      log,
		queue:    make(chan *TableEvent, queueSize),
		handlers: handlers,
		stopChan: make(chan struct{}),
	}
}

// Start begins processing events
func (ep *EventProcessor) Start() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.started {
		return
	}
	ep.started = true
	ep.wg.Add(1)
	go ep.run()
}

// Stop drains nothing further and waits for the worker to exit.
func (ep *EventProcessor) Stop() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if !ep.started {
		return
	}
	close(ep.stopChan)
	ep.wg.Wait()
	ep.started = false
	ep.log.Debugf("event processor stopped")
}

// Broadcast implements poker.Broadcaster.
func (ep *EventProcessor) Broadcast(snap poker.TableSnapshot) {
	typ := TableEventStateChanged
	if snap.Phase == poker.PhaseShowdown && snap.LastShowdown != nil {
		typ = TableEventHandEnded
	}
	ep.PublishEvent(&TableEvent{Type: typ, Snapshot: snap, Timestamp: time.Now()})
}

// PublishEvent queues event for processing. When the queue is full the
// oldest pending event is dropped; a later snapshot supersedes a lost one.
func (ep *EventProcessor) PublishEvent(event *TableEvent) {
	for {
		select {
		case ep.queue <- event:
			return
		default:
		}
		select {
		case old := <-ep.queue:
			ep.log.Warnf("event queue full, dropping %s for hand %d", old.Type, old.Snapshot.HandNumber)
		default:
		}
	}
}

func (ep *EventProcessor) run() {
	defer ep.wg.Done()
	for {
		select {
		case <-ep.stopChan:
			return
		case event := <-ep.queue:
			for _, h := range ep.handlers {
				h.HandleEvent(event)
			}
		}
	}
}

// handLogger writes a summary line for every settled hand.
type handLogger struct {
	log      slog.Logger
	lastHand int
}

func (h *handLogger) HandleEvent(event *TableEvent) {
	if event.Type != TableEventHandEnded || event.Snapshot.HandNumber == h.lastHand {
		return
	}
	h.lastHand = event.Snapshot.HandNumber
	res := event.Snapshot.LastShowdown
	for i, pot := range res.Pots {
		for _, w := range pot.Winners {
			h.log.Infof("hand %d pot %d: %s (seat %d) wins %d with %s",
				event.Snapshot.HandNumber, i, w.Name, w.Seat, w.Amount, describePot(pot))
		}
	}
}

func describePot(p poker.PotResult) string {
	if p.HandDescription == "" {
		return "no showdown"
	}
	return p.HandDescription
}
