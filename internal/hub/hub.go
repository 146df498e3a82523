// Package hub tracks joined players and their websocket subscribers, and
// delivers host packets to them in send order.
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

const (
	defaultSendQueue    = 256
	defaultWriteWait    = 10 * time.Second
	defaultPingInterval = 25 * time.Second
)

// Engine is the simulation side of the hub.
type Engine interface {
	Enqueue(cmd sim.Command) (bool, string)
	Status() sim.Status
}

// Config tunes delivery and injects the shared collaborators.
type Config struct {
	TickRate  int
	SendQueue int
	WriteWait time.Duration
	// PingInterval is how often an idle connection is pinged. Readers allow
	// PongWait between frames.
	PingInterval time.Duration
	Logger       telemetry.Logger
	Metrics      telemetry.Metrics
	Clock        logging.Clock
}

// Hub owns the joined players and their live subscribers.
type Hub struct {
	cfg     Config
	logger  telemetry.Logger
	metrics telemetry.Metrics
	clock   logging.Clock

	mu          sync.Mutex
	engine      Engine
	players     map[uuid.UUID]*playerState
	subscribers map[uuid.UUID]*Subscriber
}

type playerState struct {
	name     string
	joinedAt time.Time
}

// PlayerDiagnostics is the per-player view served by /diagnostics.
type PlayerDiagnostics struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	JoinedAt  int64  `json:"joinedAt"`
	Queued    int    `json:"queued"`
}

// New creates a hub with no engine bound. Joins are refused until Bind.
func New(cfg Config) *Hub {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = defaultSendQueue
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	h := &Hub{
		cfg:         cfg,
		logger:      telemetry.Scoped(cfg.Logger, "hub"),
		metrics:     cfg.Metrics,
		clock:       cfg.Clock,
		players:     make(map[uuid.UUID]*playerState),
		subscribers: make(map[uuid.UUID]*Subscriber),
	}
	if h.metrics == nil {
		h.metrics = telemetry.NopMetrics{}
	}
	if h.clock == nil {
		h.clock = logging.SystemClock{}
	}
	return h
}

// PongWait bounds the silence a reader tolerates before dropping the
// connection.
func (h *Hub) PongWait() time.Duration { return 2 * h.cfg.PingInterval }

// Bind attaches the simulation. The game is built with the hub as its
// outbox, so binding happens after construction.
func (h *Hub) Bind(engine Engine) {
	h.mu.Lock()
	h.engine = engine
	h.mu.Unlock()
}

func (h *Hub) currentEngine() Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine
}

// Join admits a player and stages their join command. The reason is empty
// on success.
func (h *Hub) Join(name string) (proto.JoinResponse, string) {
	engine := h.currentEngine()
	if engine == nil {
		return proto.JoinResponse{}, proto.RejectUnavailable
	}
	status := engine.Status()
	if status.Over {
		return proto.JoinResponse{}, proto.RejectSessionStarted
	}
	if status.Multiplayer && status.Started {
		return proto.JoinResponse{}, proto.RejectSessionStarted
	}
	limit := 1
	if status.Multiplayer {
		limit = status.MaxPlayers
	}

	id := uuid.New()
	now := h.clock.Now()
	h.mu.Lock()
	if len(h.players) >= limit {
		h.mu.Unlock()
		return proto.JoinResponse{}, proto.RejectSessionFull
	}
	h.players[id] = &playerState{name: name, joinedAt: now}
	h.mu.Unlock()

	ok, reason := engine.Enqueue(sim.Command{
		OriginTick: status.Tick,
		Player:     id,
		Type:       sim.CommandJoin,
		IssuedAt:   now,
		Join:       &sim.JoinCommand{Name: name},
	})
	if !ok {
		h.mu.Lock()
		delete(h.players, id)
		h.mu.Unlock()
		h.logger.Printf("join for %q dropped: %s", name, reason)
		return proto.JoinResponse{}, reason
	}
	h.metrics.Add("hub_joins_total", 1)
	h.logger.Printf("player %s joined as %q", id, name)

	return proto.JoinResponse{
		Ver:       proto.Version,
		PlayerID:  id.String(),
		SessionID: status.Session.String(),
		Gameplay:  status.Gameplay,
		Setting:   status.Setting,
		TickRate:  h.cfg.TickRate,
		Started:   status.Started,
	}, ""
}

// HasPlayer reports whether id joined and has not left.
func (h *Hub) HasPlayer(id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.players[id]
	return ok
}

// Enqueue forwards a command to the bound engine.
func (h *Hub) Enqueue(cmd sim.Command) (bool, string) {
	engine := h.currentEngine()
	if engine == nil {
		return false, sim.CommandRejectQueueFull
	}
	return engine.Enqueue(cmd)
}

// Tick reports the last published simulation tick.
func (h *Hub) Tick() uint64 {
	engine := h.currentEngine()
	if engine == nil {
		return 0
	}
	return engine.Status().Tick
}

// Subscribe attaches conn to a joined player and asks the simulation to
// resend the replicated world to them. A previous connection for the same
// player is closed.
func (h *Hub) Subscribe(player uuid.UUID, conn Conn) (*Subscriber, bool) {
	h.mu.Lock()
	if _, ok := h.players[player]; !ok {
		h.mu.Unlock()
		return nil, false
	}
	existing := h.subscribers[player]
	sub := newSubscriber(h, player, conn, h.cfg.SendQueue)
	h.subscribers[player] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	if existing != nil {
		existing.close()
	}
	h.metrics.Store("hub_subscribers", uint64(count))
	h.Enqueue(sim.Command{
		ActorID:  player.String(),
		Player:   player,
		Type:     sim.CommandSync,
		IssuedAt: h.clock.Now(),
	})
	return sub, true
}

// Unsubscribe closes sub and, if it is still the player's live connection,
// removes the player and stages their departure.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	current, ok := h.subscribers[sub.player]
	if !ok || current != sub {
		h.mu.Unlock()
		sub.close()
		return
	}
	delete(h.subscribers, sub.player)
	delete(h.players, sub.player)
	count := len(h.subscribers)
	h.mu.Unlock()

	sub.close()
	h.metrics.Store("hub_subscribers", uint64(count))
	h.Enqueue(sim.Command{
		Player:   sub.player,
		Type:     sim.CommandLeave,
		IssuedAt: h.clock.Now(),
	})
	h.logger.Printf("player %s disconnected", sub.player)
}

// Broadcast encodes p once and queues it for every subscriber.
func (h *Hub) Broadcast(p proto.Packet) {
	data := proto.Encode(p)
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.deliver(sub, p.Tag(), data)
	}
}

// SendTo queues p for one player. Packets for players without a live
// connection are dropped.
func (h *Hub) SendTo(player uuid.UUID, p proto.Packet) {
	h.mu.Lock()
	sub, ok := h.subscribers[player]
	h.mu.Unlock()
	if !ok {
		return
	}
	h.deliver(sub, p.Tag(), proto.Encode(p))
}

func (h *Hub) deliver(sub *Subscriber, tag proto.Tag, data []byte) {
	if sub.enqueue(data) {
		h.metrics.Add("hub_packets_sent_total", 1)
		h.metrics.Add("hub_bytes_sent_total", uint64(len(data)))
		h.metrics.Max("hub_send_queue_max", uint64(len(sub.send)))
		return
	}
	if sub.closed() {
		return
	}
	h.metrics.Add("hub_send_queue_overflow_total", 1)
	h.logger.Printf("send queue full for %s at %s, disconnecting", sub.player, tag)
	h.Unsubscribe(sub)
}

// Diagnostics lists every joined player.
func (h *Hub) Diagnostics() []PlayerDiagnostics {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]PlayerDiagnostics, 0, len(h.players))
	for id, state := range h.players {
		d := PlayerDiagnostics{
			ID:       id.String(),
			Name:     state.name,
			JoinedAt: state.joinedAt.UnixMilli(),
		}
		if sub, ok := h.subscribers[id]; ok {
			d.Connected = true
			d.Queued = len(sub.send)
		}
		out = append(out, d)
	}
	return out
}

// Close drops every subscriber without staging departures.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[uuid.UUID]*Subscriber)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}
