package sim

import (
	"time"

	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/config"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
)

// Gameplay codes carried by GameStarted.
const (
	GameplayCodeTimed uint8 = iota + 1
	GameplayCodeIllness
)

// broadcastSnapshots sends the two position snapshots on their own
// cadences. The cluster cadence starts phase-offset from the cell cadence.
func (g *Game) broadcastSnapshots() {
	if g.elapsed >= g.nextUCellSnapshot {
		g.out.Broadcast(g.ucellSnapshot())
		g.nextUCellSnapshot = nextDue(g.nextUCellSnapshot, g.cfg.Net.UCellSnapshotInterval, g.elapsed)
	}
	if g.elapsed >= g.nextClusterSnapshot {
		g.out.Broadcast(g.clusterSnapshot())
		g.nextClusterSnapshot = nextDue(g.nextClusterSnapshot, g.cfg.Net.ClusterSnapshotInterval, g.elapsed)
	}
}

// nextDue keeps a cadence on its phase unless it fell a full interval
// behind, in which case it restarts from now.
func nextDue(due, interval, now time.Duration) time.Duration {
	due += interval
	if due <= now {
		due = now + interval
	}
	return due
}

func (g *Game) timestamp() uint32 {
	return uint32(g.elapsed.Milliseconds())
}

func (g *Game) ucellSnapshot() *proto.UCellSnapshot {
	p := &proto.UCellSnapshot{Timestamp: g.timestamp()}
	for _, u := range g.world.UCells() {
		if !u.Active {
			continue
		}
		pos, _ := g.bodies.Position(u.RegistryID())
		p.Cells = append(p.Cells, proto.UCellState{ID: u.ID, Pos: pos, Orientation: g.bodies.Orientation(u.RegistryID())})
	}
	return p
}

func (g *Game) clusterSnapshot() *proto.ClusterSnapshot {
	p := &proto.ClusterSnapshot{Timestamp: g.timestamp()}
	for _, c := range g.world.Clusters() {
		if !c.Active {
			continue
		}
		pos, _ := g.bodies.Position(c.RegistryID())
		p.Clusters = append(p.Clusters, proto.ClusterPosition{ID: c.ID, Pos: pos})
	}
	return p
}

func (g *Game) roster() *proto.VirusRoster {
	p := &proto.VirusRoster{}
	for _, v := range g.world.Viruses() {
		p.Viruses = append(p.Viruses, proto.VirusInfo{ID: v.ID, Name: v.Name, Color: v.Color, Bot: v.Bot, PlayerID: v.PlayerID})
	}
	return p
}

func (g *Game) gameStarted() *proto.GameStarted {
	code := GameplayCodeTimed
	if g.cfg.Session.Gameplay == config.GameplayIllness {
		code = GameplayCodeIllness
	}
	return &proto.GameStarted{Gameplay: code, Setting: float32(g.cfg.Session.Setting), Session: g.session}
}

func (g *Game) ucellSpawn(u *entity.UninfectedCell) *proto.UCellSpawn {
	id := u.RegistryID()
	pos, _ := g.bodies.Position(id)
	angle, rate := g.bodies.Spin(id)
	return &proto.UCellSpawn{ID: u.ID, Type: u.Type, Pos: pos, Orientation: angle, Spin: rate}
}

// sync sends one player everything a fresh replica needs, in the order a
// replica applies it.
func (g *Game) sync(player uuid.UUID) {
	if player == uuid.Nil {
		return
	}
	g.out.SendTo(player, g.roster())
	if !g.started {
		return
	}
	g.out.SendTo(player, g.gameStarted())
	for _, u := range g.world.UCells() {
		if u.Active {
			g.out.SendTo(player, g.ucellSpawn(u))
		}
	}
	for _, c := range g.world.Clusters() {
		if !c.Active {
			continue
		}
		pos, _ := g.bodies.Position(c.RegistryID())
		g.out.SendTo(player, &proto.NewCluster{ID: c.ID, Owner: c.Owner, WhiteBlood: c.WhiteBlood, Pos: pos, State: proto.StateOf(c)})
	}
	if g.over {
		g.out.SendTo(player, &proto.GameOver{Reason: g.reason, Ranking: g.Ranking()})
	}
}
