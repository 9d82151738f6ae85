package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// envelope is the wire frame for every server-to-client message.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// clientMessage is what subscribers send to the server.
type clientMessage struct {
	Action    string   `json:"action"`
	EventName string   `json:"eventName,omitempty"`
	Events    []string `json:"events,omitempty"`
}

type client struct {
	writer *clientWriter
	// nil means subscribed to everything.
	events map[string]bool
}

func (c *client) wants(event string) bool {
	return c.events == nil || c.events[event]
}

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type subscribeCmd struct {
	baseHubCmd
	connection *websocket.Conn
	events     []string
}

type broadcastCmd struct {
	baseHubCmd
	event string
	data  []byte
}

type directCmd struct {
	baseHubCmd
	connection *websocket.Conn
	event      string
	data       []byte
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub owns all subscriber connections. A single goroutine processes
// commands, so the client map needs no locking. Implements
// domain.EventPublisher.
type Hub struct {
	cmdCh   chan hubCmd
	clock   clockwork.Clock
	clients map[*websocket.Conn]*client
	done    chan struct{}

	// OnConnect runs after a subscriber registers, outside the actor
	// goroutine. OnRefresh runs when a subscriber asks for an out-of-cycle
	// push. Both are wired before Start and never changed afterwards.
	OnConnect func(conn *websocket.Conn)
	OnRefresh func(eventName string)
}

func NewHub(clock clockwork.Clock) *Hub {
	return &Hub{
		cmdCh:   make(chan hubCmd, 256),
		clock:   clock,
		clients: make(map[*websocket.Conn]*client),
		done:    make(chan struct{}),
	}
}

// Start launches the actor goroutine. Call after OnConnect/OnRefresh are set.
func (h *Hub) Start() {
	go h.run()
}

// HandleConnection registers the connection and blocks reading subscriber
// messages until the client disconnects. Intended to be called from the
// websocket upgrade handler.
func (h *Hub) HandleConnection(conn *websocket.Conn) error {
	if err := h.register(conn); err != nil {
		conn.Close()
		return err
	}
	defer h.unregister(conn)

	if h.OnConnect != nil {
		go h.OnConnect(conn)
	}

	h.readLoop(conn)
	return nil
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Subscriber read failed", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Ignoring malformed subscriber message", "error", err)
			continue
		}

		switch msg.Action {
		case domain.ActionRefresh:
			if h.OnRefresh != nil {
				h.OnRefresh(msg.EventName)
			}
		case "subscribe":
			h.cmdCh <- subscribeCmd{connection: conn, events: msg.Events}
		default:
			slog.Debug("Ignoring unknown subscriber action", "action", msg.Action)
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{connection: conn}
}

// Publish fans a named event out to every subscriber that wants it.
func (h *Hub) Publish(event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		slog.Error("Failed to marshal broadcast event", "event", event, "error", err)
		metrics.BroadcastEventsTotal.WithLabelValues(event, "error").Inc()
		return
	}
	h.cmdCh <- broadcastCmd{event: event, data: data}
}

// PublishTo pushes a named event to a single subscriber.
func (h *Hub) PublishTo(conn *websocket.Conn, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		slog.Error("Failed to marshal broadcast event", "event", event, "error", err)
		return
	}
	h.cmdCh <- directCmd{connection: conn, event: event, data: data}
}

// ClientCount returns the number of connected subscribers, or -1 if the
// command times out.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop disconnects all subscribers and shuts the actor down. Blocks until
// the goroutine exits or the stop timeout passes.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Broadcast hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Broadcast hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcast hub panic recovered", "panic", r)
			h.closeAllClients("hub panic")
		}
	}()
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c)
		case subscribeCmd:
			h.handleSubscribe(c)
		case broadcastCmd:
			h.handleBroadcast(c)
		case directCmd:
			h.handleDirect(c)
		case clientCountCmd:
			c.replyChannel <- len(h.clients)
		case stopCmd:
			h.closeAllClients("Server shutting down")
			return
		default:
			slog.Warn("Broadcast hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	h.clients[c.connection] = &client{writer: newClientWriter(c.connection, h.clock)}
	metrics.SubscribersConnected.Set(float64(len(h.clients)))
	slog.Debug("Subscriber registered", "total_clients", len(h.clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(c unregisterCmd) {
	cl, exists := h.clients[c.connection]
	if !exists {
		return
	}
	cl.writer.stop()
	delete(h.clients, c.connection)
	metrics.SubscribersConnected.Set(float64(len(h.clients)))
	slog.Debug("Subscriber unregistered", "remaining_clients", len(h.clients))
}

func (h *Hub) handleSubscribe(c subscribeCmd) {
	cl, exists := h.clients[c.connection]
	if !exists {
		return
	}
	if len(c.events) == 0 {
		cl.events = nil
		return
	}

	known := make(map[string]bool, len(domain.AllEvents()))
	for _, e := range domain.AllEvents() {
		known[e] = true
	}

	filtered := make(map[string]bool, len(c.events))
	for _, e := range c.events {
		if !known[e] {
			slog.Debug("Ignoring unknown event name in subscription", "event", e)
			continue
		}
		filtered[e] = true
	}
	if len(filtered) == 0 {
		// Nothing valid requested, keep the current subscription.
		return
	}
	cl.events = filtered
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	var slow []*websocket.Conn
	delivered := 0
	for conn, cl := range h.clients {
		if !cl.wants(c.event) {
			continue
		}
		select {
		case cl.writer.sendChannel <- c.data:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow subscriber", "event", c.event)
		metrics.SubscribersSlowEvicted.Inc()
		h.handleUnregister(unregisterCmd{connection: conn})
	}

	metrics.BroadcastEventsTotal.WithLabelValues(c.event, "ok").Inc()
	slog.Debug("Event broadcast", "event", c.event, "delivered", delivered)
}

func (h *Hub) handleDirect(c directCmd) {
	cl, exists := h.clients[c.connection]
	if !exists || !cl.wants(c.event) {
		return
	}
	select {
	case cl.writer.sendChannel <- c.data:
	default:
		slog.Warn("Disconnecting slow subscriber", "event", c.event)
		metrics.SubscribersSlowEvicted.Inc()
		h.handleUnregister(unregisterCmd{connection: c.connection})
	}
}

func (h *Hub) closeAllClients(reason string) {
	for conn, cl := range h.clients {
		cl.writer.stopGraceful(reason)
		delete(h.clients, conn)
	}
	metrics.SubscribersConnected.Set(0)
}
