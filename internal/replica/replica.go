// Package replica is the client's copy of the host world. Host packets are
// applied in arrival order; between snapshots the replica predicts motion
// locally and blends toward each correction.
package replica

import (
	"math"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/motion"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
)

const (
	defaultBlendTime    = 200 * time.Millisecond
	defaultSnapDistance = 40
)

// Config describes the local player and how corrections are smoothed.
type Config struct {
	Table      cells.Table
	Radius     float32
	SpeedScale float64
	// BlendTime spreads a snapshot correction over this long.
	BlendTime time.Duration
	// SnapDistance is the error beyond which a correction teleports.
	SnapDistance float32
	Local        uuid.UUID
	Cues         Cues
	Logger       telemetry.Logger
}

// Replica mirrors the host's entities. It is confined to one goroutine.
type Replica struct {
	cfg    Config
	model  *composition.Model
	world  *entity.World
	bodies *motion.Store

	corrections map[registry.ID]*correction

	session  uuid.UUID
	gameplay uint8
	setting  float32
	started  bool
	over     bool
	reason   uint8
	ranking  []uint8

	immuneIn     time.Duration
	medicationIn time.Duration

	ucellStamp   uint32
	clusterStamp uint32
	applied      uint64
}

func New(cfg Config) *Replica {
	if cfg.BlendTime <= 0 {
		cfg.BlendTime = defaultBlendTime
	}
	if cfg.SnapDistance <= 0 {
		cfg.SnapDistance = defaultSnapDistance
	}
	if cfg.SpeedScale <= 0 {
		cfg.SpeedScale = 1
	}
	if cfg.Cues == nil {
		cfg.Cues = NopCues{}
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	return &Replica{
		cfg:         cfg,
		model:       composition.NewModel(cfg.Table),
		world:       entity.NewWorld(),
		bodies:      motion.NewStore(cfg.Radius),
		corrections: make(map[registry.ID]*correction),
	}
}

func (r *Replica) World() *entity.World       { return r.world }
func (r *Replica) Bodies() *motion.Store      { return r.bodies }
func (r *Replica) Session() uuid.UUID         { return r.session }
func (r *Replica) Started() bool              { return r.started }
func (r *Replica) Over() bool                 { return r.over }
func (r *Replica) Reason() uint8              { return r.reason }
func (r *Replica) Ranking() []uint8           { return append([]uint8(nil), r.ranking...) }
func (r *Replica) Applied() uint64            { return r.applied }
func (r *Replica) Gameplay() (uint8, float32) { return r.gameplay, r.setting }

// Countdowns reports the time left on the announced hazard countdowns.
func (r *Replica) Countdowns() (immune, medication time.Duration) {
	return r.immuneIn, r.medicationIn
}

// Mine returns the local player's virus once the roster names it.
func (r *Replica) Mine() (*entity.Virus, bool) {
	for _, v := range r.world.Viruses() {
		if v.Mine {
			return v, true
		}
	}
	return nil, false
}

// Step advances local prediction by dt seconds and eases pending
// corrections.
func (r *Replica) Step(dt float64) {
	if dt <= 0 {
		return
	}
	step := time.Duration(dt * float64(time.Second))
	r.immuneIn = max(r.immuneIn-step, 0)
	r.medicationIn = max(r.medicationIn-step, 0)
	if !r.started || r.over {
		return
	}
	r.predict()
	r.bodies.Step(float32(dt))
	r.ease(float32(dt))
	r.updateInfection()
}

// predict re-aims every acting cluster at its target's replica position.
func (r *Replica) predict() {
	for _, c := range r.world.Clusters() {
		id := c.RegistryID()
		speed := float32(c.MaxVelocity * r.cfg.SpeedScale)
		there, ok := r.bodies.Position(c.Target)
		switch {
		case c.Action.Chasing() && ok:
			r.bodies.Seek(id, there, speed)
		case c.Action == entity.EvadingEnemy && ok:
			r.bodies.Flee(id, there, speed)
		default:
			r.bodies.Stop(id)
		}
	}
}

// updateInfection mirrors the host's share computation for display.
func (r *Replica) updateInfection() {
	total := float64(len(r.world.UCells()))
	owned := make(map[uint8]float64)
	for _, c := range r.world.Clusters() {
		if c.WhiteBlood {
			continue
		}
		owned[c.Owner] += float64(c.NumCellsTotal)
		total += float64(c.NumCellsTotal)
	}
	for _, v := range r.world.Viruses() {
		if total == 0 {
			v.Infection = math.NaN()
			continue
		}
		v.Infection = 100 * owned[v.ID] / total
	}
}

// DrawOrder lists every drawable entity from farthest to nearest camera.
func (r *Replica) DrawOrder(camera mgl32.Vec3) []registry.ID {
	type item struct {
		id   registry.ID
		dist float32
	}
	var items []item
	r.bodies.Each(func(id registry.ID, pos mgl32.Vec3) {
		items = append(items, item{id: id, dist: pos.Sub(camera).Len()})
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].dist != items[j].dist {
			return items[i].dist > items[j].dist
		}
		return items[i].id < items[j].id
	})
	out := make([]registry.ID, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

// Drawer renders one entity.
type Drawer interface {
	Draw(id registry.ID, pos mgl32.Vec3, orientation float32)
}

// Render hands every entity to d in draw order.
func (r *Replica) Render(camera mgl32.Vec3, d Drawer) {
	for _, id := range r.DrawOrder(camera) {
		pos, _ := r.bodies.Position(id)
		d.Draw(id, pos, r.bodies.Orientation(id))
	}
}
