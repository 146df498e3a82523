package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/invariant"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/combat"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/lifecycle"
)

// steer points every acting cluster at its target. Clusters whose target
// vanished drop back to idle.
func (g *Game) steer() {
	evadeLimit := float32(g.cfg.AI.EvadeRadius * 2)
	for _, c := range g.world.Clusters() {
		if !c.Active {
			continue
		}
		id := c.RegistryID()
		speed := float32(c.MaxVelocity * g.cfg.Sim.SpeedScale)
		switch {
		case c.Action.Chasing():
			there, ok := g.targetPosition(c.Target)
			if !ok {
				g.release(c)
				g.updated(c)
				continue
			}
			g.bodies.Seek(id, there, speed)
		case c.Action == entity.EvadingEnemy:
			there, ok := g.targetPosition(c.Target)
			here, _ := g.bodies.Position(id)
			if !ok || here.Sub(there).Len() > evadeLimit {
				g.release(c)
				g.updated(c)
				continue
			}
			g.bodies.Flee(id, there, speed)
		}
	}
}

// targetPosition resolves an active uninfected cell or cluster.
func (g *Game) targetPosition(id registry.ID) (mgl32.Vec3, bool) {
	switch id.Category() {
	case registry.CategoryUninfectedCell:
		u, ok := g.world.UCell(id.Local())
		if !ok || !u.Active {
			return mgl32.Vec3{}, false
		}
	case registry.CategoryCluster:
		if _, ok := g.clusterAt(id); !ok {
			return mgl32.Vec3{}, false
		}
	default:
		return mgl32.Vec3{}, false
	}
	return g.bodies.Position(id)
}

// resolveContacts finishes every chase whose cluster reached its target.
func (g *Game) resolveContacts() {
	reach := float32(g.cfg.Sim.ContactRadius)
	for _, c := range g.world.Clusters() {
		if !c.Active || !c.Action.Chasing() {
			continue
		}
		there, ok := g.targetPosition(c.Target)
		if !ok {
			continue
		}
		here, _ := g.bodies.Position(c.RegistryID())
		if here.Sub(there).Len() > reach {
			continue
		}
		switch c.Action {
		case entity.ChasingUCellToInfect:
			u, _ := g.world.UCell(c.Target.Local())
			g.infect(c, u)
		case entity.ChasingClusterToCombine:
			t, _ := g.clusterAt(c.Target)
			g.combine(t, c)
		case entity.ChasingEnemyToBattle:
			t, _ := g.clusterAt(c.Target)
			g.battle(c, t)
		}
	}
}

func (g *Game) infect(c *entity.Cluster, u *entity.UninfectedCell) {
	g.model.Infect(&c.Cluster, u.Type)
	u.Active = false
	g.release(c)
	g.updated(c)
	g.deps.Metrics.Add("sim_infections_total", 1)
	combat.CellInfected(g.ctx, g.deps.Publisher, g.tick, logging.ClusterRef(c.ID), logging.CellRef(u.ID), combat.InfectionPayload{
		CellType: u.Type.String(),
	})
}

// combine absorbs src into dst. Both must belong to the same virus.
func (g *Game) combine(dst, src *entity.Cluster) {
	invariant.Check(dst.Owned() && src.Owned() && dst.Owner == src.Owner,
		"sim.combine", "cluster %d (virus %d) cannot absorb cluster %d (virus %d)", dst.ID, dst.Owner, src.ID, src.Owner)
	g.release(src)
	g.unwarn(src)
	g.model.Combine(&dst.Cluster, &src.Cluster)
	src.Active = false
	g.updated(dst)
	combat.ClustersCombined(g.ctx, g.deps.Publisher, g.tick, logging.ClusterRef(dst.ID), logging.ClusterRef(src.ID))
}

// battle resolves chaser against defender. The loser is always destroyed.
func (g *Game) battle(chaser, defender *entity.Cluster) {
	outcome := g.model.Battle(&chaser.Cluster, &defender.Cluster)
	winner, loser := chaser, defender
	if !outcome.ChaserWins {
		winner, loser = defender, chaser
	}
	g.release(chaser)
	g.release(defender)
	g.unwarn(loser)
	loser.Active = false

	g.out.Broadcast(&proto.BattleOutcome{
		Winner:     winner.ID,
		Loser:      loser.ID,
		Tie:        outcome.Tie,
		Multiplier: float32(outcome.Multiplier),
		Culled:     uint16(outcome.CellsCulled),
	})
	g.updated(winner)
	g.deps.Metrics.Add("sim_battles_total", 1)
	combat.BattleResolved(g.ctx, g.deps.Publisher, g.tick, logging.ClusterRef(winner.ID), logging.ClusterRef(loser.ID), combat.BattlePayload{
		WinnerOffense: outcome.WinnerOffense,
		LoserOffense:  outcome.LoserOffense,
		Multiplier:    outcome.Multiplier,
		Tie:           outcome.Tie,
		CellsCulled:   outcome.CellsCulled,
	})
}

// announce broadcasts a newly created cluster.
func (g *Game) announce(c *entity.Cluster, pos mgl32.Vec3, cause string) {
	g.out.Broadcast(&proto.NewCluster{
		ID:         c.ID,
		Owner:      c.Owner,
		WhiteBlood: c.WhiteBlood,
		Pos:        pos,
		State:      proto.StateOf(c),
	})
	lifecycle.ClusterCreated(g.ctx, g.deps.Publisher, g.tick, logging.ClusterRef(c.ID), lifecycle.ClusterCreatedPayload{
		Cause: cause,
		Cells: c.NumCellsTotal,
	})
}

func (g *Game) updated(c *entity.Cluster) {
	g.out.Broadcast(&proto.ClusterUpdate{ID: c.ID, State: proto.StateOf(c)})
}
