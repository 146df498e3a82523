package simulation

import (
	"context"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a host tick exceeds its time budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventGameStarted is emitted once every player has signalled ready.
	EventGameStarted logging.EventType = "simulation.game_started"
	// EventGameOver is emitted when a win condition ends the match.
	EventGameOver logging.EventType = "simulation.game_over"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
}

// GameStartedPayload describes the roster that entered the match.
type GameStartedPayload struct {
	Viruses     int  `json:"viruses"`
	Bots        int  `json:"bots"`
	Multiplayer bool `json:"multiplayer"`
}

// GameOverPayload carries the reason and the final best-first ranking.
type GameOverPayload struct {
	Reason  string  `json:"reason"`
	Ranking []uint8 `json:"ranking"`
}

func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
	})
}

func GameStarted(ctx context.Context, pub logging.Publisher, tick uint64, payload GameStartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGameStarted,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindSession},
		Severity: logging.SeverityInfo,
		Category: "simulation",
		Payload:  payload,
	})
}

func GameOver(ctx context.Context, pub logging.Publisher, tick uint64, payload GameOverPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGameOver,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindSession},
		Severity: logging.SeverityInfo,
		Category: "simulation",
		Payload:  payload,
	})
}
