package sim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/lifecycle"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/network"
)

// Reasons a command was ignored. They only reach the debug event stream.
const (
	missingVirus     = "virus"
	missingCluster   = "cluster"
	missingTarget    = "target"
	missingUCell     = "ucell"
	notOwner         = "ownership"
	clusterBusy      = "busy"
	alreadySpawned   = "spawned"
	badAmounts       = "amounts"
	lackingNutrients = "nutrients"
	noCapacity       = "capacity"
)

func (g *Game) apply(cmd Command) {
	switch cmd.Type {
	case CommandJoin:
		g.join(cmd)
		return
	case CommandLeave:
		g.leave(cmd.Player)
		return
	case CommandSync:
		g.sync(cmd.Player)
		return
	case CommandReady:
		if _, ok := g.players[cmd.Player]; ok && cmd.Ready != nil {
			g.ready[cmd.Player] = cmd.Ready.Ready
		}
		return
	}
	id, ok := g.players[cmd.Player]
	if !ok {
		g.stale(logging.EntityRef{ID: cmd.Player.String(), Kind: logging.EntityKindPlayer}, cmd.Type, missingVirus)
		return
	}
	v, ok := g.world.Virus(id)
	if !ok || !v.Alive {
		g.stale(logging.VirusRef(id), cmd.Type, missingVirus)
		return
	}
	g.dispatch(v, cmd)
}

// dispatch runs a gameplay command on behalf of v. Human and bot commands
// share this path.
func (g *Game) dispatch(v *entity.Virus, cmd Command) {
	var reason string
	switch {
	case cmd.Type == CommandSpawn && cmd.Spawn != nil:
		reason = g.spawnFromCell(v, cmd.Spawn.UCell)
	case cmd.Type == CommandDivide && cmd.Divide != nil:
		reason = g.withCluster(v, cmd.Divide.Cluster, func(c *entity.Cluster) string {
			return g.divide(c, cmd.Divide.Amounts)
		})
	case cmd.Type == CommandHybridize && cmd.Hybridize != nil:
		h := cmd.Hybridize
		reason = g.withCluster(v, h.Cluster, func(c *entity.Cluster) string {
			return g.hybridize(c, h.A, h.B, h.Count)
		})
	case cmd.Type == CommandSplit && cmd.Split != nil:
		reason = g.withCluster(v, cmd.Split.Cluster, func(c *entity.Cluster) string {
			return g.split(c, cmd.Split.Parts)
		})
	case cmd.Type == CommandChase && cmd.Chase != nil:
		reason = g.withCluster(v, cmd.Chase.Cluster, func(c *entity.Cluster) string {
			return g.chase(c, cmd.Chase.Target)
		})
	case cmd.Type == CommandEvade && cmd.Evade != nil:
		reason = g.withCluster(v, cmd.Evade.Cluster, func(c *entity.Cluster) string {
			return g.evade(c, cmd.Evade.Threat)
		})
	case cmd.Type == CommandCancel && cmd.Cancel != nil:
		reason = g.withCluster(v, cmd.Cancel.Cluster, func(c *entity.Cluster) string {
			g.release(c)
			g.updated(c)
			return ""
		})
	default:
		g.deps.Logger.Printf("dropping malformed command type=%s virus=%d", cmd.Type, v.ID)
		return
	}
	if reason != "" {
		g.stale(logging.VirusRef(v.ID), cmd.Type, reason)
	}
}

func (g *Game) withCluster(v *entity.Virus, id uint8, fn func(*entity.Cluster) string) string {
	c, ok := g.world.Cluster(id)
	if !ok || !c.Active {
		return missingCluster
	}
	if !c.Owned() || c.Owner != v.ID {
		return notOwner
	}
	return fn(c)
}

func (g *Game) stale(actor logging.EntityRef, cmd CommandType, missing string) {
	g.deps.Metrics.Add("sim_commands_ignored_total", 1)
	network.StaleCommand(g.ctx, g.deps.Publisher, g.tick, actor, network.StaleCommandPayload{
		Command: string(cmd),
		Missing: missing,
	})
}

func (g *Game) join(cmd Command) {
	if _, ok := g.players[cmd.Player]; ok || cmd.Player == uuid.Nil {
		return
	}
	name := "Player"
	if cmd.Join != nil && cmd.Join.Name != "" {
		name = cmd.Join.Name
	}
	var v *entity.Virus
	if !g.cfg.Session.Multiplayer {
		for _, candidate := range g.world.Viruses() {
			if !candidate.Bot && candidate.PlayerID == uuid.Nil {
				v = candidate
				break
			}
		}
		if v == nil {
			return
		}
		v.PlayerID = cmd.Player
		g.players[cmd.Player] = v.ID
	} else {
		if g.started || g.humans() >= g.cfg.Session.MaxPlayers {
			return
		}
		v = g.addVirus(name, false, cmd.Player)
	}
	lifecycle.PlayerJoined(g.ctx, g.deps.Publisher, g.tick, logging.VirusRef(v.ID), lifecycle.PlayerJoinedPayload{Name: name})
	g.out.Broadcast(g.roster())
}

// leave releases a departing player's virus. Before the match the virus is
// dropped; during a multiplayer match a bot takes it over; a solo virus
// waits for its player to reconnect.
func (g *Game) leave(player uuid.UUID) {
	id, ok := g.players[player]
	if !ok {
		return
	}
	delete(g.players, player)
	delete(g.ready, player)
	v, ok := g.world.Virus(id)
	if !ok {
		return
	}
	switch {
	case !g.cfg.Session.Multiplayer:
		v.PlayerID = uuid.Nil
	case !g.started:
		g.world.Remove(v.RegistryID())
		g.out.Broadcast(g.roster())
	default:
		v.Bot = true
	}
	lifecycle.PlayerDisconnected(g.ctx, g.deps.Publisher, g.tick, logging.VirusRef(id), lifecycle.PlayerDisconnectedPayload{Reason: "left"})
}

func (g *Game) humans() int {
	n := 0
	for _, v := range g.world.Viruses() {
		if !v.Bot {
			n++
		}
	}
	return n
}

func (g *Game) spawnFromCell(v *entity.Virus, ucell uint8) string {
	if v.Spawned {
		return alreadySpawned
	}
	u, ok := g.world.UCell(ucell)
	if !ok || !u.Active {
		return missingUCell
	}
	if g.world.Registry().Free(registry.CategoryCluster) == 0 {
		return noCapacity
	}
	pos, _ := g.bodies.Position(u.RegistryID())
	u.Active = false
	c := g.world.SpawnCluster(v.ID, g.model.NewFromCell(u.Type))
	g.bodies.Spawn(c.RegistryID(), pos)
	v.Spawned = true
	g.announce(c, pos, "spawn")
	return ""
}

func (g *Game) divide(c *entity.Cluster, amounts composition.Counts) string {
	if !g.model.FundedDivide(&c.Cluster, amounts) {
		if amounts.Total() <= 0 {
			return badAmounts
		}
		return lackingNutrients
	}
	g.out.Broadcast(&proto.ClusterDivide{ID: c.ID, Amounts: proto.WireCounts(amounts)})
	g.updated(c)
	return ""
}

func (g *Game) hybridize(c *entity.Cluster, a, b cells.Type, n int) string {
	if !composition.CanHybridize(&c.Cluster, a, b, n) {
		return badAmounts
	}
	g.model.Hybridize(&c.Cluster, a, b, n)
	g.out.Broadcast(&proto.ClusterHybridize{ID: c.ID, A: a, B: b, Count: uint16(n)})
	g.updated(c)
	return ""
}

func (g *Game) split(c *entity.Cluster, parts composition.Counts) string {
	if c.Action.Busy() {
		return clusterBusy
	}
	if !composition.CanSplit(&c.Cluster, parts) {
		return badAmounts
	}
	if g.world.Registry().Free(registry.CategoryCluster) == 0 {
		return noCapacity
	}
	state, ok := g.model.Split(&c.Cluster, parts)
	if !ok {
		return badAmounts
	}
	at, _ := g.bodies.Position(c.RegistryID())
	at = at.Add(mgl32.Vec3{float32(g.cfg.Sim.ContactRadius) * 1.5, 0, 0})
	nc := g.world.SpawnCluster(c.Owner, state)
	g.bodies.Spawn(nc.RegistryID(), at)
	g.out.Broadcast(&proto.ClusterSplit{Source: c.ID, NewID: nc.ID, Parts: proto.WireCounts(parts), Pos: at})
	g.updated(c)
	g.updated(nc)
	lifecycle.ClusterCreated(g.ctx, g.deps.Publisher, g.tick, logging.ClusterRef(nc.ID), lifecycle.ClusterCreatedPayload{
		Cause: "split",
		Cells: nc.NumCellsTotal,
	})
	return ""
}

// chase starts c moving toward target. Only idle clusters take new chases.
func (g *Game) chase(c *entity.Cluster, target registry.ID) string {
	if c.Action.Busy() {
		return clusterBusy
	}
	switch target.Category() {
	case registry.CategoryUninfectedCell:
		u, ok := g.world.UCell(target.Local())
		if !ok || !u.Active || c.WhiteBlood {
			return missingTarget
		}
		c.SetAction(entity.ChasingUCellToInfect, target)
	case registry.CategoryCluster:
		t, ok := g.world.Cluster(target.Local())
		if !ok || !t.Active || t.ID == c.ID || (c.WhiteBlood && t.WhiteBlood) {
			return missingTarget
		}
		if c.Owned() && t.Owned() && c.Owner == t.Owner {
			c.SetAction(entity.ChasingClusterToCombine, target)
		} else {
			c.SetAction(entity.ChasingEnemyToBattle, target)
			g.warn(t, c)
		}
	default:
		return missingTarget
	}
	g.updated(c)
	return ""
}

func (g *Game) evade(c *entity.Cluster, threat registry.ID) string {
	t, ok := g.clusterAt(threat)
	if !ok || t.ID == c.ID {
		return missingTarget
	}
	if c.Action == entity.EvadingEnemy && c.Target == threat {
		return ""
	}
	g.release(c)
	c.SetAction(entity.EvadingEnemy, threat)
	g.updated(c)
	return ""
}

// release ends c's current action and clears the warning it caused.
func (g *Game) release(c *entity.Cluster) {
	if c.Action == entity.ChasingEnemyToBattle {
		if t, ok := g.clusterAt(c.Target); ok && t.Attacker == c.RegistryID() {
			g.unwarn(t)
		}
	}
	c.ClearAction()
	g.bodies.Stop(c.RegistryID())
}

// warn marks victim as under attack and tells its owner, and only its
// owner.
func (g *Game) warn(victim, attacker *entity.Cluster) {
	victim.UnderAttack = true
	victim.Attacker = attacker.RegistryID()
	if v, ok := g.ownerOf(victim); ok {
		v.UnderAttack = true
		if !v.Bot && v.PlayerID != uuid.Nil {
			g.out.SendTo(v.PlayerID, &proto.BattleWarning{Victim: victim.ID, Attacker: attacker.ID})
		}
	}
	g.updated(victim)
}

func (g *Game) unwarn(victim *entity.Cluster) {
	if !victim.UnderAttack {
		return
	}
	victim.UnderAttack = false
	victim.Attacker = entity.NoTarget
	if v, ok := g.ownerOf(victim); ok {
		v.UnderAttack = false
		for _, id := range v.Clusters {
			if c, ok := g.world.Cluster(id); ok && c.Active && c.UnderAttack {
				v.UnderAttack = true
				break
			}
		}
		if !v.Bot && v.PlayerID != uuid.Nil {
			g.out.SendTo(v.PlayerID, &proto.BattleUnwarning{Victim: victim.ID})
		}
	}
	if victim.Active {
		g.updated(victim)
	}
}

func (g *Game) ownerOf(c *entity.Cluster) (*entity.Virus, bool) {
	if !c.Owned() {
		return nil, false
	}
	return g.world.Virus(c.Owner)
}

// clusterAt resolves an active cluster by global id.
func (g *Game) clusterAt(id registry.ID) (*entity.Cluster, bool) {
	if id.Category() != registry.CategoryCluster {
		return nil, false
	}
	c, ok := g.world.Cluster(id.Local())
	if !ok || !c.Active {
		return nil, false
	}
	return c, true
}

// botIssuer routes AI decisions through the command handlers.
type botIssuer struct {
	g *Game
}

func (b botIssuer) run(cluster uint8, cmd Command) {
	c, ok := b.g.world.Cluster(cluster)
	if !ok || !c.Active {
		return
	}
	if c.WhiteBlood {
		if cmd.Type == CommandChase {
			b.g.chase(c, cmd.Chase.Target)
		}
		return
	}
	v, ok := b.g.world.Virus(c.Owner)
	if !ok || !v.Alive {
		return
	}
	cmd.ActorID = "bot"
	cmd.OriginTick = b.g.tick
	b.g.dispatch(v, cmd)
}

func (b botIssuer) Chase(cluster uint8, target registry.ID) {
	b.run(cluster, Command{Type: CommandChase, Chase: &ChaseCommand{Cluster: cluster, Target: target}})
}

func (b botIssuer) Evade(cluster uint8, threat registry.ID) {
	b.run(cluster, Command{Type: CommandEvade, Evade: &EvadeCommand{Cluster: cluster, Threat: threat}})
}

func (b botIssuer) Divide(cluster uint8, amounts composition.Counts) {
	b.run(cluster, Command{Type: CommandDivide, Divide: &DivideCommand{Cluster: cluster, Amounts: amounts}})
}

func (b botIssuer) Hybridize(cluster uint8, a, c cells.Type, n int) {
	b.run(cluster, Command{Type: CommandHybridize, Hybridize: &HybridizeCommand{Cluster: cluster, A: a, B: c, Count: n}})
}

func (b botIssuer) Split(cluster uint8, parts composition.Counts) {
	b.run(cluster, Command{Type: CommandSplit, Split: &SplitCommand{Cluster: cluster, Parts: parts}})
}
