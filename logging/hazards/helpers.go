package hazards

import (
	"context"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

const (
	EventImmuneCountdown     logging.EventType = "hazard.immune_countdown"
	EventImmuneWave          logging.EventType = "hazard.immune_wave"
	EventMedicationCountdown logging.EventType = "hazard.medication_countdown"
	EventMedicationDeployed  logging.EventType = "hazard.medication_deployed"
)

type CountdownPayload struct {
	Seconds int `json:"seconds"`
}

type ImmuneWavePayload struct {
	Requested int `json:"requested"`
	Spawned   int `json:"spawned"`
	Active    int `json:"active"`
}

type MedicationPayload struct {
	CellType string `json:"cellType"`
	Total    int    `json:"total"`
	Affected int    `json:"affected"`
}

func ImmuneCountdown(ctx context.Context, pub logging.Publisher, tick uint64, payload CountdownPayload) {
	publish(ctx, pub, tick, EventImmuneCountdown, payload)
}

func ImmuneWave(ctx context.Context, pub logging.Publisher, tick uint64, payload ImmuneWavePayload) {
	publish(ctx, pub, tick, EventImmuneWave, payload)
}

func MedicationCountdown(ctx context.Context, pub logging.Publisher, tick uint64, payload CountdownPayload) {
	publish(ctx, pub, tick, EventMedicationCountdown, payload)
}

func MedicationDeployed(ctx context.Context, pub logging.Publisher, tick uint64, payload MedicationPayload) {
	publish(ctx, pub, tick, EventMedicationDeployed, payload)
}

func publish(ctx context.Context, pub logging.Publisher, tick uint64, eventType logging.EventType, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindSession},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryHazard,
		Payload:  payload,
	})
}
