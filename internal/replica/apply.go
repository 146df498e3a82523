package replica

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// Apply folds one host packet into the replica. Packets naming entities the
// replica does not know are ignored; only client packets are an error.
func (r *Replica) Apply(p proto.Packet) error {
	if p.Tag().FromClient() {
		return fmt.Errorf("replica: %s is a client packet", p.Tag())
	}
	switch p := p.(type) {
	case *proto.VirusRoster:
		r.applyRoster(p)
	case *proto.GameStarted:
		r.started = true
		r.session = p.Session
		r.gameplay = p.Gameplay
		r.setting = p.Setting
	case *proto.UCellSpawn:
		r.applyUCellSpawn(p)
	case *proto.UCellSnapshot:
		r.applyUCellSnapshot(p)
	case *proto.ClusterSnapshot:
		r.applyClusterSnapshot(p)
	case *proto.NewCluster:
		r.applyNewCluster(p)
	case *proto.ClusterUpdate:
		if c, ok := r.world.Cluster(p.ID); ok {
			p.State.Apply(c)
			r.model.Readjust(&c.Cluster)
		}
	case *proto.ClusterDivide:
		if c, ok := r.world.Cluster(p.ID); ok && !c.WhiteBlood {
			r.model.Divide(&c.Cluster, p.Amounts.Composition())
		}
	case *proto.ClusterHybridize:
		r.applyHybridize(p)
	case *proto.ClusterSplit:
		r.applySplit(p)
	case *proto.BattleOutcome:
		r.applyBattle(p)
	case *proto.MedicationDeployed:
		r.applyMedication(p.CellType)
	case *proto.ImmuneCountdown:
		r.immuneIn = time.Duration(p.Seconds) * time.Second
		r.cfg.Cues.Play(CueImmuneCountdown)
	case *proto.MedicationCountdown:
		r.medicationIn = time.Duration(p.Seconds) * time.Second
		r.cfg.Cues.Play(CueMedicationCountdown)
	case *proto.BattleWarning:
		if c, ok := r.world.Cluster(p.Victim); ok {
			c.UnderAttack = true
			c.Attacker = registry.GlobalID(registry.CategoryCluster, p.Attacker)
			r.cfg.Cues.Play(CueUnderAttack)
		}
	case *proto.BattleUnwarning:
		if c, ok := r.world.Cluster(p.Victim); ok {
			c.UnderAttack = false
			c.Attacker = entity.NoTarget
		}
	case *proto.GameOver:
		r.applyGameOver(p)
	default:
		r.cfg.Logger.Printf("replica: ignoring %s", p.Tag())
	}
	r.applied++
	r.refreshViruses()
	r.updateInfection()
	return nil
}

func (r *Replica) applyRoster(p *proto.VirusRoster) {
	listed := make(map[uint8]bool, len(p.Viruses))
	for _, info := range p.Viruses {
		listed[info.ID] = true
		v, ok := r.world.Virus(info.ID)
		if !ok {
			v = &entity.Virus{ID: info.ID, Alive: true}
			r.world.AddVirus(v)
		}
		v.Name = info.Name
		v.Color = info.Color
		v.Bot = info.Bot
		v.PlayerID = info.PlayerID
		v.Mine = r.cfg.Local != uuid.Nil && info.PlayerID == r.cfg.Local
	}
	if r.started {
		return
	}
	// Seats can still change hands in the lobby.
	var gone []registry.ID
	for _, v := range r.world.Viruses() {
		if !listed[v.ID] {
			gone = append(gone, v.RegistryID())
		}
	}
	for _, id := range gone {
		r.world.Remove(id)
	}
}

func (r *Replica) applyUCellSpawn(p *proto.UCellSpawn) {
	if !p.Type.SubType() {
		return
	}
	id := registry.GlobalID(registry.CategoryUninfectedCell, p.ID)
	r.world.Remove(id)
	r.world.PlaceUCell(p.ID, p.Type)
	r.forget(id)
	r.bodies.SpawnSpinning(id, p.Pos, p.Orientation, p.Spin)
}

func (r *Replica) applyUCellSnapshot(p *proto.UCellSnapshot) {
	if p.Timestamp < r.ucellStamp {
		return
	}
	r.ucellStamp = p.Timestamp
	seen := make(map[uint8]bool, len(p.Cells))
	for _, s := range p.Cells {
		seen[s.ID] = true
		if _, ok := r.world.UCell(s.ID); !ok {
			continue
		}
		id := registry.GlobalID(registry.CategoryUninfectedCell, s.ID)
		r.correct(id, s.Pos)
		r.bodies.SetOrientation(id, s.Orientation)
	}
	for _, u := range r.world.UCells() {
		if !seen[u.ID] {
			r.remove(u.RegistryID())
		}
	}
}

func (r *Replica) applyClusterSnapshot(p *proto.ClusterSnapshot) {
	if p.Timestamp < r.clusterStamp {
		return
	}
	r.clusterStamp = p.Timestamp
	seen := make(map[uint8]bool, len(p.Clusters))
	for _, s := range p.Clusters {
		seen[s.ID] = true
		if _, ok := r.world.Cluster(s.ID); ok {
			r.correct(registry.GlobalID(registry.CategoryCluster, s.ID), s.Pos)
		}
	}
	for _, c := range r.world.Clusters() {
		if !seen[c.ID] {
			r.remove(c.RegistryID())
		}
	}
}

func (r *Replica) applyNewCluster(p *proto.NewCluster) {
	var state composition.Cluster
	if p.WhiteBlood {
		state = r.model.NewWhiteBloodCell()
	} else {
		v, ok := r.world.Virus(p.Owner)
		if !ok {
			return
		}
		v.Spawned = true
	}
	c := r.place(p.ID, p.Owner, state, p.Pos)
	p.State.Apply(c)
	r.model.Readjust(&c.Cluster)
}

// place registers a cluster under a host id, replacing any stale copy.
func (r *Replica) place(id, owner uint8, state composition.Cluster, pos mgl32.Vec3) *entity.Cluster {
	rid := registry.GlobalID(registry.CategoryCluster, id)
	r.remove(rid)
	c := r.world.PlaceCluster(id, owner, state)
	r.bodies.Spawn(rid, pos)
	return c
}

func (r *Replica) applyHybridize(p *proto.ClusterHybridize) {
	c, ok := r.world.Cluster(p.ID)
	if !ok || c.WhiteBlood {
		return
	}
	if _, ok := cells.HybridOf(p.A, p.B); !ok {
		return
	}
	n := int(p.Count)
	if !composition.CanHybridize(&c.Cluster, p.A, p.B, n) {
		r.cfg.Logger.Printf("replica: cluster %d cannot hybridize %d %s+%s", p.ID, n, p.A, p.B)
		return
	}
	r.model.Hybridize(&c.Cluster, p.A, p.B, n)
}

func (r *Replica) applySplit(p *proto.ClusterSplit) {
	src, ok := r.world.Cluster(p.Source)
	if !ok || src.WhiteBlood {
		return
	}
	parts := p.Parts.Composition()
	if !composition.CanSplit(&src.Cluster, parts) {
		r.cfg.Logger.Printf("replica: cluster %d cannot split off %v", p.Source, parts)
		return
	}
	part, _ := r.model.Split(&src.Cluster, parts)
	r.place(p.NewID, src.Owner, part, p.Pos)
}

func (r *Replica) applyBattle(p *proto.BattleOutcome) {
	mine := func(id uint8) bool {
		c, ok := r.world.Cluster(id)
		if !ok || c.WhiteBlood {
			return false
		}
		v, ok := r.world.Virus(c.Owner)
		return ok && v.Mine
	}
	switch {
	case mine(p.Winner):
		r.cfg.Cues.Play(CueBattleWon)
	case mine(p.Loser):
		r.cfg.Cues.Play(CueBattleLost)
	}
	r.remove(registry.GlobalID(registry.CategoryCluster, p.Loser))
}

func (r *Replica) applyMedication(t cells.Type) {
	r.medicationIn = 0
	r.cfg.Cues.Play(CueMedicationDeployed)
	if !t.Medicatable() {
		return
	}
	var emptied []registry.ID
	for _, c := range r.world.Clusters() {
		if c.WhiteBlood {
			continue
		}
		r.model.Medicate(&c.Cluster, t)
		if c.Empty() {
			emptied = append(emptied, c.RegistryID())
		}
	}
	for _, id := range emptied {
		r.remove(id)
	}
}

func (r *Replica) applyGameOver(p *proto.GameOver) {
	r.over = true
	r.reason = p.Reason
	r.ranking = append(r.ranking[:0], p.Ranking...)
	for i, id := range p.Ranking {
		if v, ok := r.world.Virus(id); ok {
			v.Rank = i + 1
		}
	}
	if v, ok := r.Mine(); ok {
		if v.Rank == 1 {
			r.cfg.Cues.Play(CueVictory)
		} else {
			r.cfg.Cues.Play(CueDefeat)
		}
	}
}

func (r *Replica) remove(id registry.ID) {
	r.world.Remove(id)
	r.forget(id)
}

// refreshViruses marks a spawned virus with no clusters left as destroyed.
func (r *Replica) refreshViruses() {
	for _, v := range r.world.Viruses() {
		v.UnderAttack = false
		v.Alive = !v.Spawned || len(v.Clusters) > 0
	}
	for _, c := range r.world.Clusters() {
		if c.UnderAttack && !c.WhiteBlood {
			if v, ok := r.world.Virus(c.Owner); ok {
				v.UnderAttack = true
			}
		}
	}
}
