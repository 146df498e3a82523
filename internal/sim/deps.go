package sim

import (
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

// Deps bundles the shared collaborators injected into the game and loop.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Publisher logging.Publisher
}

func (d Deps) withDefaults() Deps {
	d.Logger = telemetry.Scoped(d.Logger, "sim")
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics{}
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	return d
}
