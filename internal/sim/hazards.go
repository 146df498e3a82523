package sim

import (
	"math"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/hazards"
)

// hazardClock measures time since a hazard last fired.
type hazardClock struct {
	timeout time.Duration
	warning time.Duration
	since   time.Duration
	warned  bool
}

// advance moves the clock by dt and reports whether the warning is due and
// whether the hazard fires. A zero timeout disables the hazard.
func (h *hazardClock) advance(dt time.Duration) (warn, fire bool) {
	if h.timeout <= 0 {
		return false, false
	}
	h.since += dt
	if !h.warned && h.warning > 0 && h.since >= h.timeout-h.warning {
		h.warned = true
		warn = true
	}
	if h.since >= h.timeout {
		h.since = 0
		h.warned = false
		fire = true
	}
	return warn, fire
}

func (h *hazardClock) remaining() time.Duration {
	return max(h.timeout-h.since, 0)
}

func countdownSeconds(d time.Duration) uint16 {
	return uint16(min(math.Ceil(d.Seconds()), math.MaxUint16))
}

func (g *Game) updateHazards(step time.Duration) {
	if warn, fire := g.immune.advance(step); warn || fire {
		if warn {
			secs := countdownSeconds(g.immune.remaining())
			g.out.Broadcast(&proto.ImmuneCountdown{Seconds: secs})
			hazards.ImmuneCountdown(g.ctx, g.deps.Publisher, g.tick, hazards.CountdownPayload{Seconds: int(secs)})
		}
		if fire {
			g.immuneWave()
		}
	}
	if warn, fire := g.medication.advance(step); warn || fire {
		if warn {
			secs := countdownSeconds(g.medication.remaining())
			g.out.Broadcast(&proto.MedicationCountdown{Seconds: secs})
			hazards.MedicationCountdown(g.ctx, g.deps.Publisher, g.tick, hazards.CountdownPayload{Seconds: int(secs)})
		}
		if fire {
			g.medicate()
		}
	}
}

// WaveSize is how many white blood cells a wave of requested may release
// while active are already circulating under a cap of limit.
func WaveSize(requested, active, limit int) int {
	return max(min(requested, limit-active), 0)
}

func (g *Game) immuneWave() {
	requested := g.immuneBatch
	active := len(g.world.WhiteBloodCells())
	n := min(WaveSize(requested, active, g.cfg.Hazards.WhiteBloodMax), g.world.Registry().Free(registry.CategoryCluster))
	for i := 0; i < n; i++ {
		c := g.world.SpawnCluster(0, g.model.NewWhiteBloodCell())
		at := g.level.NextWhiteBloodSpawn()
		g.bodies.Spawn(c.RegistryID(), at)
		g.announce(c, at, "immune")
	}
	g.immuneBatch++
	g.deps.Metrics.Add("sim_white_blood_spawned_total", uint64(n))
	hazards.ImmuneWave(g.ctx, g.deps.Publisher, g.tick, hazards.ImmuneWavePayload{
		Requested: requested,
		Spawned:   n,
		Active:    active + n,
	})
}

// MedicationTarget picks the medicatable type with the most cells across
// virus clusters. Ties go to the type checked first in
// cells.MedicationOrder.
func MedicationTarget(clusters []*entity.Cluster) (cells.Type, int) {
	best, bestCount := cells.MedicationOrder[0], -1
	for _, t := range cells.MedicationOrder {
		n := 0
		for _, c := range clusters {
			if c.Active && c.Owned() {
				n += c.Counts.Of(t)
			}
		}
		if n > bestCount {
			best, bestCount = t, n
		}
	}
	return best, bestCount
}

func (g *Game) medicate() {
	clusters := g.world.Clusters()
	target, total := MedicationTarget(clusters)
	g.out.Broadcast(&proto.MedicationDeployed{CellType: target})
	affected := 0
	for _, c := range clusters {
		if !c.Active || !c.Owned() {
			continue
		}
		if g.model.Medicate(&c.Cluster, target) > 0 {
			affected++
			if c.Empty() {
				g.release(c)
				c.Active = false
				continue
			}
			g.updated(c)
		}
	}
	hazards.MedicationDeployed(g.ctx, g.deps.Publisher, g.tick, hazards.MedicationPayload{
		CellType: target.String(),
		Total:    total,
		Affected: affected,
	})
}
