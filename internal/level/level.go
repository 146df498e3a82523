// Package level generates the spawn tables a match is played on: where
// uninfected cells start, where each virus enters, and where the immune
// system releases white blood cells.
package level

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// Config describes the arena.
type Config struct {
	Radius          float32            `yaml:"radius"`
	UCells          int                `yaml:"ucells"`
	VirusRing       float32            `yaml:"virus_ring"`
	WhiteBloodRing  float32            `yaml:"white_blood_ring"`
	WhiteBloodPorts int                `yaml:"white_blood_ports"`
	MaxSpin         float32            `yaml:"max_spin"`
	Seed            int64              `yaml:"seed"`
	Mix             map[string]float64 `yaml:"mix"`
}

// Placement is one uninfected cell's starting state.
type Placement struct {
	Type  cells.Type
	Pos   mgl32.Vec3
	Angle float32
	Spin  float32
}

// Level holds precomputed spawn tables.
type Level struct {
	ucells     []Placement
	viruses    []mgl32.Vec3
	whiteBlood []mgl32.Vec3
	nextWBC    int
}

// Generate builds a level for numViruses players. The same config and
// virus count always yield the same level.
func Generate(cfg Config, numViruses int) *Level {
	rng := rand.New(rand.NewSource(cfg.Seed))
	l := &Level{}

	types, weights := mixTable(cfg.Mix)
	inner := cfg.Radius * 0.9
	for i := 0; i < cfg.UCells; i++ {
		l.ucells = append(l.ucells, Placement{
			Type:  pick(rng, types, weights),
			Pos:   insideSphere(rng, inner),
			Angle: rng.Float32() * 2 * math.Pi,
			Spin:  (rng.Float32()*2 - 1) * cfg.MaxSpin,
		})
	}

	l.viruses = ring(numViruses, cfg.VirusRing, 0)
	ports := cfg.WhiteBloodPorts
	if ports <= 0 {
		ports = 1
	}
	l.whiteBlood = ring(ports, cfg.WhiteBloodRing, cfg.WhiteBloodRing*0.25)
	return l
}

// UCells returns the uninfected cell placements in spawn order.
func (l *Level) UCells() []Placement { return l.ucells }

// SpawnPositions returns the level-defined spawn points for a category.
// Categories without spawn points return nil.
func (l *Level) SpawnPositions(c registry.Category) []mgl32.Vec3 {
	switch c {
	case registry.CategoryUninfectedCell:
		out := make([]mgl32.Vec3, len(l.ucells))
		for i, p := range l.ucells {
			out[i] = p.Pos
		}
		return out
	case registry.CategoryVirus:
		return l.viruses
	case registry.CategoryCluster:
		return l.whiteBlood
	default:
		return nil
	}
}

// VirusSpawn returns the entry point for the i-th virus.
func (l *Level) VirusSpawn(i int) mgl32.Vec3 {
	if len(l.viruses) == 0 {
		return mgl32.Vec3{}
	}
	return l.viruses[i%len(l.viruses)]
}

// NextWhiteBloodSpawn returns white blood cell release points round-robin.
func (l *Level) NextWhiteBloodSpawn() mgl32.Vec3 {
	p := l.whiteBlood[l.nextWBC%len(l.whiteBlood)]
	l.nextWBC++
	return p
}

var defaultMix = map[cells.Type]float64{
	cells.RedBlood: 0.45,
	cells.Platelet: 0.35,
	cells.BigTank:  0.1,
	cells.BigSilo:  0.1,
}

func mixTable(mix map[string]float64) ([]cells.Type, []float64) {
	weights := make(map[cells.Type]float64)
	for name, w := range mix {
		t, ok := cells.ParseType(name)
		if !ok || !t.SubType() || w <= 0 {
			continue
		}
		weights[t] = w
	}
	if len(weights) == 0 {
		weights = defaultMix
	}
	var types []cells.Type
	var ws []float64
	for i := 0; i < cells.NumSubTypes; i++ {
		if w, ok := weights[cells.Type(i)]; ok {
			types = append(types, cells.Type(i))
			ws = append(ws, w)
		}
	}
	return types, ws
}

func pick(rng *rand.Rand, types []cells.Type, weights []float64) cells.Type {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return types[i]
		}
		r -= w
	}
	return types[len(types)-1]
}

func insideSphere(rng *rand.Rand, radius float32) mgl32.Vec3 {
	for {
		p := mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
		if p.Len() <= 1 {
			return p.Mul(radius)
		}
	}
}

// ring spaces n points evenly on a horizontal circle, alternating above and
// below the plane by lift.
func ring(n int, radius, lift float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, n)
	for i := range out {
		theta := 2 * math.Pi * float64(i) / float64(n)
		y := lift
		if i%2 == 1 {
			y = -lift
		}
		out[i] = mgl32.Vec3{radius * float32(math.Cos(theta)), y, radius * float32(math.Sin(theta))}
	}
	return out
}
