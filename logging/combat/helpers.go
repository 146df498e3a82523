package combat

import (
	"context"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

const (
	EventBattleResolved   logging.EventType = "combat.battle_resolved"
	EventCellInfected     logging.EventType = "combat.cell_infected"
	EventClustersCombined logging.EventType = "combat.clusters_combined"
)

type BattlePayload struct {
	WinnerOffense float64 `json:"winnerOffense"`
	LoserOffense  float64 `json:"loserOffense"`
	Multiplier    float64 `json:"multiplier"`
	Tie           bool    `json:"tie"`
	CellsCulled   int     `json:"cellsCulled"`
}

type InfectionPayload struct {
	CellType string `json:"cellType"`
}

// BattleResolved records a host-side battle. Actor is the winner, the single
// target is the destroyed loser.
func BattleResolved(ctx context.Context, pub logging.Publisher, tick uint64, winner, loser logging.EntityRef, payload BattlePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBattleResolved,
		Tick:     tick,
		Actor:    winner,
		Targets:  []logging.EntityRef{loser},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func CellInfected(ctx context.Context, pub logging.Publisher, tick uint64, cluster, cell logging.EntityRef, payload InfectionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCellInfected,
		Tick:     tick,
		Actor:    cluster,
		Targets:  []logging.EntityRef{cell},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

func ClustersCombined(ctx context.Context, pub logging.Publisher, tick uint64, survivor, absorbed logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClustersCombined,
		Tick:     tick,
		Actor:    survivor,
		Targets:  []logging.EntityRef{absorbed},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
	})
}
