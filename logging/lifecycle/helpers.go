package lifecycle

import (
	"context"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

const (
	// EventPlayerJoined is emitted when a network player joins the lobby.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a network player's socket closes.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventVirusEliminated is emitted when a virus loses its last cluster.
	EventVirusEliminated logging.EventType = "lifecycle.virus_eliminated"
	// EventClusterCreated is emitted for spawns, splits and immune waves.
	EventClusterCreated logging.EventType = "lifecycle.cluster_created"
)

type PlayerJoinedPayload struct {
	Name string `json:"name"`
}

type PlayerDisconnectedPayload struct {
	Reason string `json:"reason"`
}

type VirusEliminatedPayload struct {
	Rank int `json:"rank"`
}

type ClusterCreatedPayload struct {
	Cause string `json:"cause"`
	Cells int    `json:"cells"`
}

func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	publish(ctx, pub, tick, EventPlayerJoined, actor, logging.SeverityInfo, payload)
}

func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload) {
	publish(ctx, pub, tick, EventPlayerDisconnected, actor, logging.SeverityInfo, payload)
}

func VirusEliminated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload VirusEliminatedPayload) {
	publish(ctx, pub, tick, EventVirusEliminated, actor, logging.SeverityInfo, payload)
}

func ClusterCreated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClusterCreatedPayload) {
	publish(ctx, pub, tick, EventClusterCreated, actor, logging.SeverityDebug, payload)
}

func publish(ctx context.Context, pub logging.Publisher, tick uint64, eventType logging.EventType, actor logging.EntityRef, severity logging.Severity, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: "lifecycle",
		Payload:  payload,
	})
}
