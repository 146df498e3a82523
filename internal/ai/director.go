// Package ai decides what bot-owned clusters and white blood cells do each
// host tick. Decisions are issued through the same entry points the host
// uses for client commands, so they are validated identically.
package ai

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/config"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// Positions resolves where an entity currently is.
type Positions interface {
	Position(id registry.ID) (mgl32.Vec3, bool)
}

// Issuer receives decisions. Implementations re-validate every id.
type Issuer interface {
	Chase(cluster uint8, target registry.ID)
	Evade(cluster uint8, threat registry.ID)
	Divide(cluster uint8, amounts composition.Counts)
	Hybridize(cluster uint8, a, b cells.Type, n int)
	Split(cluster uint8, parts composition.Counts)
}

// Director runs the decision layer.
type Director struct {
	cfg   config.AIConfig
	model *composition.Model
	iq    IQ

	boards map[uint8]*Blackboard
	bias   map[uint8]float64
	tick   uint64
}

func NewDirector(cfg config.AIConfig, model *composition.Model, iq IQ) *Director {
	if iq == nil {
		iq = FixedIQ{}
	}
	return &Director{
		cfg:    cfg,
		model:  model,
		iq:     iq,
		boards: make(map[uint8]*Blackboard),
		bias:   make(map[uint8]float64),
	}
}

// Board returns the blackboard of a cluster, if it has been observed.
func (d *Director) Board(cluster uint8) (*Blackboard, bool) {
	b, ok := d.boards[cluster]
	return b, ok
}

// Bias reports a virus's current aggression bias.
func (d *Director) Bias(virus uint8) float64 {
	if b, ok := d.bias[virus]; ok {
		return b
	}
	return clampBias(d.cfg.BaseIQ)
}

// Forget drops state for a removed cluster.
func (d *Director) Forget(cluster uint8) {
	delete(d.boards, cluster)
}

// Tick runs one full pass: observe every cluster, apply virus overrides,
// fall back to default requests, steer white blood cells, flip every
// blackboard, then let IQ retune each bot virus.
func (d *Director) Tick(w *entity.World, pos Positions, out Issuer) {
	d.tick++
	clusters := w.Clusters()
	d.prune(clusters)

	for _, c := range clusters {
		b := d.boards[c.ID]
		if b == nil {
			b = newBlackboard()
			b.Write().Tick = d.tick
			d.boards[c.ID] = b
		}
		d.observe(w, pos, c, b.Write())
	}

	for _, v := range w.Viruses() {
		if !v.Bot || !v.Alive {
			continue
		}
		overridden := d.applyOverrides(w, v, out)
		bias := d.Bias(v.ID)
		for _, id := range append([]uint8(nil), v.Clusters...) {
			if overridden[id] {
				continue
			}
			c, ok := w.Cluster(id)
			if !ok || !c.Active {
				continue
			}
			b := d.boards[id]
			req := d.decide(c, b.Read(), bias)
			b.Write().Request = req
			d.execute(c, req, out)
		}
	}

	for _, id := range w.WhiteBloodCells() {
		c, ok := w.Cluster(id)
		if !ok || !c.Active || c.Action.Busy() {
			continue
		}
		if prey := d.boards[id].Read().Enemy; prey.Found() {
			out.Chase(id, prey.ID)
		}
	}

	for _, b := range d.boards {
		b.Flip(d.tick + 1)
	}

	for _, v := range w.Viruses() {
		if v.Bot && v.Alive {
			d.bias[v.ID] = clampBias(d.iq.Adjust(v, d.Bias(v.ID)))
		}
	}
}

func (d *Director) prune(live []*entity.Cluster) {
	seen := make(map[uint8]bool, len(live))
	for _, c := range live {
		seen[c.ID] = true
	}
	for id := range d.boards {
		if !seen[id] {
			delete(d.boards, id)
		}
	}
}

func (d *Director) observe(w *entity.World, pos Positions, c *entity.Cluster, f *Frame) {
	f.Action = c.Action
	f.Offense = c.MaxBattleOffense
	f.Defense = c.MaxBattleDefense
	f.HealthFraction = c.HealthFraction()
	f.Cells = c.NumCellsTotal
	f.Counts = c.Counts
	for i := range f.Readiness {
		f.Readiness[i] = d.model.DivisionReadiness(&c.Cluster, cells.Type(i))
	}

	here, ok := pos.Position(c.RegistryID())
	if !ok {
		return
	}
	sight := float32(d.cfg.SightRadius)

	if !c.WhiteBlood {
		fallback := nothing
		for _, u := range w.UCells() {
			if !u.Active {
				continue
			}
			p, ok := pos.Position(u.RegistryID())
			if !ok {
				continue
			}
			dist := here.Sub(p).Len()
			s := Sighting{ID: u.RegistryID(), Distance: dist, Type: u.Type}
			if dist <= sight {
				f.UCell = closer(f.UCell, s)
			}
			fallback = closer(fallback, s)
		}
		if !f.UCell.Found() {
			f.UCell = fallback
		}
	}

	for _, other := range w.Clusters() {
		if other.ID == c.ID || !other.Active {
			continue
		}
		p, ok := pos.Position(other.RegistryID())
		if !ok {
			continue
		}
		dist := here.Sub(p).Len()
		s := Sighting{ID: other.RegistryID(), Distance: dist, Offense: other.MaxBattleOffense, Defense: other.MaxBattleDefense}
		switch {
		case c.WhiteBlood:
			if !other.WhiteBlood {
				f.Enemy = closer(f.Enemy, s)
			}
		case !other.WhiteBlood && other.Owner == c.Owner:
			f.Ally = closer(f.Ally, s)
		case dist <= sight:
			f.Enemy = closer(f.Enemy, s)
			theirs := max(0, other.MaxBattleOffense-c.MaxBattleDefense)
			ours := max(0, c.MaxBattleOffense-other.MaxBattleDefense)
			if theirs > ours {
				f.Threat = closer(f.Threat, s)
			}
		}
	}
}

func closer(current, candidate Sighting) Sighting {
	if !current.Found() || candidate.Distance < current.Distance {
		return candidate
	}
	return current
}

// decide picks the default request from the previous pass's observation.
func (d *Director) decide(c *entity.Cluster, f *Frame, bias float64) Request {
	if c.Action != entity.EvadingEnemy {
		radius := float32(d.cfg.EvadeRadius)
		if f.Threat.Found() && f.Threat.Distance <= radius {
			ours := max(0, f.Offense-f.Threat.Defense)
			theirs := max(0, f.Threat.Offense-f.Defense)
			if theirs > ours*aggression(bias) {
				return Request{Kind: RequestEvade, Target: f.Threat.ID}
			}
		}
		if f.Enemy.Found() && f.Enemy.Distance <= radius && f.HealthFraction < d.cfg.EvadeHealthRatio {
			return Request{Kind: RequestEvade, Target: f.Enemy.ID}
		}
	}

	if t, ok := d.readiest(f, 1+d.cfg.DivideReserve); ok {
		return Request{Kind: RequestDivideType, CellType: t, Target: entity.NoTarget}
	}
	if c.UnderAttack {
		if t, ok := d.readiest(f, 1); ok {
			return Request{Kind: RequestDivideAny, CellType: t, Target: entity.NoTarget}
		}
	}

	if c.Action != entity.Idle {
		return Request{Target: entity.NoTarget}
	}

	if c.UnderAttack && c.Attacker != entity.NoTarget {
		return Request{Kind: RequestBattleCluster, Target: c.Attacker}
	}
	if f.Enemy.Found() {
		ours := max(0, f.Offense-f.Enemy.Defense)
		theirs := max(0, f.Enemy.Offense-f.Defense)
		if ours > 0 && ours*aggression(bias) > theirs {
			return Request{Kind: RequestBattleEnemy, Target: f.Enemy.ID}
		}
	}

	if f.UCell.Found() {
		return Request{Kind: RequestChaseType, CellType: f.UCell.Type, Target: f.UCell.ID}
	}
	return Request{Target: entity.NoTarget}
}

// readiest returns the owned sub-type with the highest division readiness
// at or above threshold.
func (d *Director) readiest(f *Frame, threshold float64) (cells.Type, bool) {
	best, found := cells.Type(0), false
	for i, r := range f.Readiness {
		if f.Counts[i] == 0 || r < threshold {
			continue
		}
		if !found || r > f.Readiness[best] {
			best, found = cells.Type(i), true
		}
	}
	return best, found
}

func aggression(bias float64) float64 {
	return 0.5 + bias
}

func (d *Director) execute(c *entity.Cluster, req Request, out Issuer) {
	switch req.Kind {
	case RequestEvade:
		out.Evade(c.ID, req.Target)
	case RequestDivideType, RequestDivideAny:
		var amounts composition.Counts
		amounts[req.CellType] = 1
		out.Divide(c.ID, amounts)
	case RequestChaseType, RequestBattleCluster, RequestBattleEnemy:
		if c.Action == entity.Idle {
			out.Chase(c.ID, req.Target)
		}
	}
}

// OverrideKind is a virus-level command that pre-empts a cluster's default
// request.
type OverrideKind uint8

const (
	OverrideCombine OverrideKind = iota + 1
	OverrideKamikaze
	OverrideSplit
	OverrideHybridize
)

// Override binds a virus-level command to one cluster.
type Override struct {
	Kind    OverrideKind
	Cluster uint8
	Target  registry.ID
	Parts   composition.Counts
	A, B    cells.Type
	N       int
}

// Overrides computes the virus-level commands for v from the previous
// pass's observations, in cluster order.
func (d *Director) Overrides(w *entity.World, v *entity.Virus) []Override {
	var out []Override
	ids := append([]uint8(nil), v.Clusters...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c, ok := w.Cluster(id)
		b, seen := d.boards[id]
		if !ok || !seen || !c.Active {
			continue
		}
		f := b.Read()
		switch {
		case d.cfg.CombineBelow > 0 && f.Cells > 0 && f.Cells < d.cfg.CombineBelow && f.Ally.Found():
			out = append(out, Override{Kind: OverrideCombine, Cluster: id, Target: f.Ally.ID})
		case f.Enemy.Found() && d.cfg.KamikazeOffenseRatio > 0 && f.Enemy.Defense > 0 &&
			f.Offense >= d.cfg.KamikazeOffenseRatio*f.Enemy.Defense:
			out = append(out, Override{Kind: OverrideKamikaze, Cluster: id, Target: f.Enemy.ID})
		case d.cfg.SplitAbove > 0 && f.Cells > d.cfg.SplitAbove:
			var parts composition.Counts
			for i, n := range f.Counts {
				parts[i] = n / 2
			}
			out = append(out, Override{Kind: OverrideSplit, Cluster: id, Parts: parts})
		default:
			if a, bt, n, ok := d.hybridPair(f); ok {
				out = append(out, Override{Kind: OverrideHybridize, Cluster: id, A: a, B: bt, N: n})
			}
		}
	}
	return out
}

func (d *Director) hybridPair(f *Frame) (cells.Type, cells.Type, int, bool) {
	if d.cfg.HybridizeAbove <= 0 {
		return 0, 0, 0, false
	}
	for a := 0; a < cells.NumSubTypes; a++ {
		for b := a + 1; b < cells.NumSubTypes; b++ {
			if _, ok := cells.HybridOf(cells.Type(a), cells.Type(b)); !ok {
				continue
			}
			if f.Counts[a] >= d.cfg.HybridizeAbove && f.Counts[b] >= d.cfg.HybridizeAbove {
				return cells.Type(a), cells.Type(b), min(f.Counts[a], f.Counts[b]) / 2, true
			}
		}
	}
	return 0, 0, 0, false
}

// applyOverrides executes every satisfiable override and reports which
// clusters were handled.
func (d *Director) applyOverrides(w *entity.World, v *entity.Virus, out Issuer) map[uint8]bool {
	handled := make(map[uint8]bool)
	for _, o := range d.Overrides(w, v) {
		c, ok := w.Cluster(o.Cluster)
		if !ok || c.Action != entity.Idle {
			continue
		}
		switch o.Kind {
		case OverrideCombine:
			ally, ok := w.Cluster(o.Target.Local())
			if !ok || !ally.Active || ally.WhiteBlood || ally.Owner != v.ID || handled[ally.ID] {
				continue
			}
			out.Chase(c.ID, o.Target)
			handled[ally.ID] = true
		case OverrideKamikaze:
			enemy, ok := w.Cluster(o.Target.Local())
			if !ok || !enemy.Active {
				continue
			}
			out.Chase(c.ID, o.Target)
		case OverrideSplit:
			if !composition.CanSplit(&c.Cluster, o.Parts) {
				continue
			}
			out.Split(c.ID, o.Parts)
		case OverrideHybridize:
			if !composition.CanHybridize(&c.Cluster, o.A, o.B, o.N) {
				continue
			}
			out.Hybridize(c.ID, o.A, o.B, o.N)
		}
		handled[c.ID] = true
	}
	return handled
}
