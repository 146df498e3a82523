package proto

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// Counts is a composition on the wire, indexed by cells.Type.
type Counts [cells.NumSubTypes]uint16

// UCellState is one uninfected cell in a snapshot.
type UCellState struct {
	ID          uint8
	Pos         mgl32.Vec3
	Orientation float32
}

// UCellSnapshot carries every live uninfected cell. Timestamp is host
// elapsed milliseconds.
type UCellSnapshot struct {
	Timestamp uint32
	Cells     []UCellState
}

func (*UCellSnapshot) Tag() Tag { return TagUCellSnapshot }

func (p *UCellSnapshot) encode(w *writer) {
	w.u32(p.Timestamp)
	w.u16(uint16(len(p.Cells)))
	for _, c := range p.Cells {
		w.u8(c.ID)
		w.position(c.Pos)
		w.half(c.Orientation)
	}
}

func (p *UCellSnapshot) decode(r *reader) {
	p.Timestamp = r.u32()
	n := r.count(11)
	p.Cells = make([]UCellState, n)
	for i := range p.Cells {
		p.Cells[i] = UCellState{ID: r.u8(), Pos: r.position(), Orientation: r.half()}
	}
}

// ClusterPosition is one cluster in a snapshot. Clusters do not rotate.
type ClusterPosition struct {
	ID  uint8
	Pos mgl32.Vec3
}

type ClusterSnapshot struct {
	Timestamp uint32
	Clusters  []ClusterPosition
}

func (*ClusterSnapshot) Tag() Tag { return TagClusterSnapshot }

func (p *ClusterSnapshot) encode(w *writer) {
	w.u32(p.Timestamp)
	w.u16(uint16(len(p.Clusters)))
	for _, c := range p.Clusters {
		w.u8(c.ID)
		w.position(c.Pos)
	}
}

func (p *ClusterSnapshot) decode(r *reader) {
	p.Timestamp = r.u32()
	n := r.count(9)
	p.Clusters = make([]ClusterPosition, n)
	for i := range p.Clusters {
		p.Clusters[i] = ClusterPosition{ID: r.u8(), Pos: r.position()}
	}
}

// VirusInfo describes one roster entry. PlayerID is the zero UUID for bots.
type VirusInfo struct {
	ID       uint8
	Name     string
	Color    color.RGBA
	Bot      bool
	PlayerID uuid.UUID
}

type VirusRoster struct {
	Viruses []VirusInfo
}

func (*VirusRoster) Tag() Tag { return TagVirusRoster }

func (p *VirusRoster) encode(w *writer) {
	w.u16(uint16(len(p.Viruses)))
	for _, v := range p.Viruses {
		w.u8(v.ID)
		w.str(v.Name)
		w.u8(v.Color.R)
		w.u8(v.Color.G)
		w.u8(v.Color.B)
		w.u8(v.Color.A)
		w.boolean(v.Bot)
		w.id(v.PlayerID)
	}
}

func (p *VirusRoster) decode(r *reader) {
	n := r.count(23)
	p.Viruses = make([]VirusInfo, n)
	for i := range p.Viruses {
		v := &p.Viruses[i]
		v.ID = r.u8()
		v.Name = r.str()
		v.Color = color.RGBA{R: r.u8(), G: r.u8(), B: r.u8(), A: r.u8()}
		v.Bot = r.boolean()
		v.PlayerID = r.id()
	}
}

// GameStarted opens play. Setting is minutes for timed matches and the
// infection threshold for illness matches.
type GameStarted struct {
	Gameplay uint8
	Setting  float32
	Session  uuid.UUID
}

func (*GameStarted) Tag() Tag { return TagGameStarted }

func (p *GameStarted) encode(w *writer) {
	w.u8(p.Gameplay)
	w.f32(p.Setting)
	w.id(p.Session)
}

func (p *GameStarted) decode(r *reader) {
	p.Gameplay = r.u8()
	p.Setting = r.f32()
	p.Session = r.id()
}

// ClusterState is the replicated composition and behavior of a cluster.
type ClusterState struct {
	Counts      Counts
	Health      int32
	Nutrient    float32
	Action      uint8
	Target      registry.ID
	UnderAttack bool
}

func (s *ClusterState) encode(w *writer) {
	w.counts(s.Counts)
	w.i32(s.Health)
	w.f32(s.Nutrient)
	w.u8(s.Action)
	w.ref(s.Target)
	w.boolean(s.UnderAttack)
}

func (s *ClusterState) decode(r *reader) {
	s.Counts = r.counts()
	s.Health = r.i32()
	s.Nutrient = r.f32()
	s.Action = r.u8()
	s.Target = r.ref()
	s.UnderAttack = r.boolean()
}

type NewCluster struct {
	ID         uint8
	Owner      uint8
	WhiteBlood bool
	Pos        mgl32.Vec3
	State      ClusterState
}

func (*NewCluster) Tag() Tag { return TagNewCluster }

func (p *NewCluster) encode(w *writer) {
	w.u8(p.ID)
	w.u8(p.Owner)
	w.boolean(p.WhiteBlood)
	w.position(p.Pos)
	p.State.encode(w)
}

func (p *NewCluster) decode(r *reader) {
	p.ID = r.u8()
	p.Owner = r.u8()
	p.WhiteBlood = r.boolean()
	p.Pos = r.position()
	p.State.decode(r)
}

// ClusterUpdate follows every divide, hybridize, split, combine, battle and
// action change.
type ClusterUpdate struct {
	ID    uint8
	State ClusterState
}

func (*ClusterUpdate) Tag() Tag { return TagClusterUpdate }

func (p *ClusterUpdate) encode(w *writer) {
	w.u8(p.ID)
	p.State.encode(w)
}

func (p *ClusterUpdate) decode(r *reader) {
	p.ID = r.u8()
	p.State.decode(r)
}

type ClusterDivide struct {
	ID      uint8
	Amounts Counts
}

func (*ClusterDivide) Tag() Tag { return TagClusterDivide }

func (p *ClusterDivide) encode(w *writer) {
	w.u8(p.ID)
	w.counts(p.Amounts)
}

func (p *ClusterDivide) decode(r *reader) {
	p.ID = r.u8()
	p.Amounts = r.counts()
}

// ClusterHybridize carries only the source types; receivers derive the
// hybrid tier with cells.HybridOf.
type ClusterHybridize struct {
	ID    uint8
	A, B  cells.Type
	Count uint16
}

func (*ClusterHybridize) Tag() Tag { return TagClusterHybridize }

func (p *ClusterHybridize) encode(w *writer) {
	w.u8(p.ID)
	w.u8(uint8(p.A))
	w.u8(uint8(p.B))
	w.u16(p.Count)
}

func (p *ClusterHybridize) decode(r *reader) {
	p.ID = r.u8()
	p.A = r.cellType()
	p.B = r.cellType()
	p.Count = r.u16()
}

type ClusterSplit struct {
	Source uint8
	NewID  uint8
	Parts  Counts
	Pos    mgl32.Vec3
}

func (*ClusterSplit) Tag() Tag { return TagClusterSplit }

func (p *ClusterSplit) encode(w *writer) {
	w.u8(p.Source)
	w.u8(p.NewID)
	w.counts(p.Parts)
	w.position(p.Pos)
}

func (p *ClusterSplit) decode(r *reader) {
	p.Source = r.u8()
	p.NewID = r.u8()
	p.Parts = r.counts()
	p.Pos = r.position()
}

type BattleOutcome struct {
	Winner     uint8
	Loser      uint8
	Tie        bool
	Multiplier float32
	Culled     uint16
}

func (*BattleOutcome) Tag() Tag { return TagBattleOutcome }

func (p *BattleOutcome) encode(w *writer) {
	w.u8(p.Winner)
	w.u8(p.Loser)
	w.boolean(p.Tie)
	w.f32(p.Multiplier)
	w.u16(p.Culled)
}

func (p *BattleOutcome) decode(r *reader) {
	p.Winner = r.u8()
	p.Loser = r.u8()
	p.Tie = r.boolean()
	p.Multiplier = r.f32()
	p.Culled = r.u16()
}

type MedicationDeployed struct {
	CellType cells.Type
}

func (*MedicationDeployed) Tag() Tag { return TagMedicationDeployed }

func (p *MedicationDeployed) encode(w *writer) { w.u8(uint8(p.CellType)) }
func (p *MedicationDeployed) decode(r *reader) { p.CellType = r.cellType() }

type ImmuneCountdown struct {
	Seconds uint16
}

func (*ImmuneCountdown) Tag() Tag { return TagImmuneCountdown }

func (p *ImmuneCountdown) encode(w *writer) { w.u16(p.Seconds) }
func (p *ImmuneCountdown) decode(r *reader) { p.Seconds = r.u16() }

type MedicationCountdown struct {
	Seconds uint16
}

func (*MedicationCountdown) Tag() Tag { return TagMedicationCountdown }

func (p *MedicationCountdown) encode(w *writer) { w.u16(p.Seconds) }
func (p *MedicationCountdown) decode(r *reader) { p.Seconds = r.u16() }

// BattleWarning is sent only to the owner of the cluster under attack.
type BattleWarning struct {
	Victim   uint8
	Attacker uint8
}

func (*BattleWarning) Tag() Tag { return TagBattleWarning }

func (p *BattleWarning) encode(w *writer) {
	w.u8(p.Victim)
	w.u8(p.Attacker)
}

func (p *BattleWarning) decode(r *reader) {
	p.Victim = r.u8()
	p.Attacker = r.u8()
}

type BattleUnwarning struct {
	Victim uint8
}

func (*BattleUnwarning) Tag() Tag { return TagBattleUnwarning }

func (p *BattleUnwarning) encode(w *writer) { w.u8(p.Victim) }
func (p *BattleUnwarning) decode(r *reader) { p.Victim = r.u8() }

// Game over reasons.
const (
	ReasonEliminated uint8 = iota + 1
	ReasonLocalDestroyed
	ReasonHumansDestroyed
	ReasonTimeUp
	ReasonInfection
)

// GameOver carries the final ranking, best first.
type GameOver struct {
	Reason  uint8
	Ranking []uint8
}

func (*GameOver) Tag() Tag { return TagGameOver }

func (p *GameOver) encode(w *writer) {
	w.u8(p.Reason)
	w.u16(uint16(len(p.Ranking)))
	for _, id := range p.Ranking {
		w.u8(id)
	}
}

func (p *GameOver) decode(r *reader) {
	p.Reason = r.u8()
	n := r.count(1)
	p.Ranking = make([]uint8, n)
	for i := range p.Ranking {
		p.Ranking[i] = r.u8()
	}
}

// UCellSpawn introduces an uninfected cell to replicas.
type UCellSpawn struct {
	ID          uint8
	Type        cells.Type
	Pos         mgl32.Vec3
	Orientation float32
	Spin        float32
}

func (*UCellSpawn) Tag() Tag { return TagUCellSpawn }

func (p *UCellSpawn) encode(w *writer) {
	w.u8(p.ID)
	w.u8(uint8(p.Type))
	w.position(p.Pos)
	w.half(p.Orientation)
	w.half(p.Spin)
}

func (p *UCellSpawn) decode(r *reader) {
	p.ID = r.u8()
	p.Type = r.cellType()
	p.Pos = r.position()
	p.Orientation = r.half()
	p.Spin = r.half()
}
