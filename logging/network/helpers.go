package network

import (
	"context"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

const (
	// EventProtocolViolation is emitted when a packet cannot be decoded.
	EventProtocolViolation logging.EventType = "network.protocol_violation"
	// EventStaleCommand is emitted when a command names an entity that no
	// longer exists on the host.
	EventStaleCommand logging.EventType = "network.stale_command"
)

// ProtocolViolationPayload describes the discarded packet.
type ProtocolViolationPayload struct {
	Tag    uint8  `json:"tag"`
	Length int    `json:"length"`
	Error  string `json:"error"`
}

// StaleCommandPayload identifies the command and the missing reference.
type StaleCommandPayload struct {
	Command string `json:"command"`
	Missing string `json:"missing"`
}

// ProtocolViolation publishes a warning for a discarded packet.
func ProtocolViolation(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ProtocolViolationPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventProtocolViolation,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// StaleCommand publishes a debug event; stale commands are expected races.
func StaleCommand(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StaleCommandPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStaleCommand,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
