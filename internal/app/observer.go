package app

import (
	"context"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/results"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/simulation"
)

// observer watches completed ticks on the loop goroutine.
type observer struct {
	game      *sim.Game
	publisher logging.Publisher
	metrics   telemetry.Metrics
	output    *results.Writer
	logger    telemetry.Logger

	interval  time.Duration
	sinceLast time.Duration
}

func newObserver(game *sim.Game, pub logging.Publisher, metrics telemetry.Metrics, output *results.Writer, logger telemetry.Logger, interval time.Duration) *observer {
	return &observer{game: game, publisher: pub, metrics: metrics, output: output, logger: logger, interval: interval}
}

func (o *observer) afterStep(result sim.LoopStepResult) {
	if result.Budget > 0 && result.Duration > result.Budget {
		o.metrics.Add("sim_tick_budget_overrun_total", 1)
		simulation.TickBudgetOverrun(context.Background(), o.publisher, result.Tick, simulation.TickBudgetOverrunPayload{
			DurationMillis: result.Duration.Milliseconds(),
			BudgetMillis:   result.Budget.Milliseconds(),
			Ratio:          float64(result.Duration) / float64(result.Budget),
		})
	}
	o.metrics.Max("sim_tick_duration_max_us", uint64(result.Duration.Microseconds()))
	if result.ClampedDelta {
		o.metrics.Add("sim_tick_clamped_total", 1)
	}

	if o.output == nil || o.interval <= 0 || result.Over || !o.game.Started() {
		return
	}
	o.sinceLast += time.Duration(result.Delta * float64(time.Second))
	if o.sinceLast < o.interval {
		return
	}
	o.sinceLast = 0
	if err := o.output.WriteTelemetry(results.SampleOf(o.game)); err != nil {
		o.logger.Printf("failed to write telemetry: %v", err)
	}
}
