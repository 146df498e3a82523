// Package ws carries the binary packet stream over gorilla websockets: the
// host-side session handler and the client dialer.
package ws

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/hub"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/intake"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/network"
)

const maxPacketSize = 64 * 1024

type HandlerConfig struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

type Handler struct {
	hub       *hub.Hub
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(h *hub.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:       h,
		logger:    logger,
		metrics:   metrics,
		publisher: publisher,
		upgrader:  upgrader,
	}
}

// Handle upgrades a joined player's request and runs their session until
// the connection drops.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}
	player, err := uuid.Parse(raw)
	if err != nil {
		nethttp.Error(w, "invalid id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", player, err)
		return
	}

	sub, ok := h.hub.Subscribe(player, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	go sub.Run()

	h.serve(r.Context(), sub, conn)
}

func (h *Handler) serve(ctx context.Context, sub *hub.Subscriber, conn *websocket.Conn) {
	player := sub.Player()
	actor := logging.EntityRef{ID: player.String(), Kind: logging.EntityKindPlayer}
	conn.SetReadLimit(maxPacketSize)
	pongWait := h.hub.PongWait()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	stage := intake.CommandContext{
		Engine:    h.hub,
		HasPlayer: h.hub.HasPlayer,
		Tick:      h.hub.Tick,
	}

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Unsubscribe(sub)
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.metrics.Add("ws_packets_received_total", 1)

		if kind != websocket.BinaryMessage {
			h.violation(ctx, actor, payload, "text frame")
			continue
		}
		packet, err := proto.Decode(payload)
		if err != nil {
			h.violation(ctx, actor, payload, err.Error())
			continue
		}
		if !packet.Tag().FromClient() {
			h.violation(ctx, actor, payload, "host packet from client")
			continue
		}

		if _, ok, reason := intake.StageClientCommand(stage, player, packet); !ok {
			switch reason {
			case intake.CommandRejectUnknownActor:
				h.logger.Printf("%s ignored for unknown player %s", packet.Tag(), player)
			case sim.CommandRejectQueueLimit, sim.CommandRejectQueueFull:
			default:
				h.logger.Printf("%s from %s rejected: %s", packet.Tag(), player, reason)
			}
		}
	}
}

// violation records a discarded packet. The session keeps reading.
func (h *Handler) violation(ctx context.Context, actor logging.EntityRef, payload []byte, reason string) {
	h.metrics.Add("ws_protocol_violations_total", 1)
	var tag uint8
	if len(payload) > 0 {
		tag = payload[0]
	}
	network.ProtocolViolation(ctx, h.publisher, h.hub.Tick(), actor, network.ProtocolViolationPayload{
		Tag:    tag,
		Length: len(payload),
		Error:  reason,
	})
}
