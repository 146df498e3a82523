package proto

import (
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// NewClusterFromCell asks to enter play by infecting one uninfected cell.
type NewClusterFromCell struct {
	UCell uint8
}

func (*NewClusterFromCell) Tag() Tag { return TagNewClusterFromCell }

func (p *NewClusterFromCell) encode(w *writer) { w.u8(p.UCell) }
func (p *NewClusterFromCell) decode(r *reader) { p.UCell = r.u8() }

type Divide struct {
	Cluster uint8
	Amounts Counts
}

func (*Divide) Tag() Tag { return TagDivide }

func (p *Divide) encode(w *writer) {
	w.u8(p.Cluster)
	w.counts(p.Amounts)
}

func (p *Divide) decode(r *reader) {
	p.Cluster = r.u8()
	p.Amounts = r.counts()
}

type Hybridize struct {
	Cluster uint8
	A, B    cells.Type
	Count   uint16
}

func (*Hybridize) Tag() Tag { return TagHybridize }

func (p *Hybridize) encode(w *writer) {
	w.u8(p.Cluster)
	w.u8(uint8(p.A))
	w.u8(uint8(p.B))
	w.u16(p.Count)
}

func (p *Hybridize) decode(r *reader) {
	p.Cluster = r.u8()
	p.A = r.cellType()
	p.B = r.cellType()
	p.Count = r.u16()
}

type Split struct {
	Cluster uint8
	Parts   Counts
}

func (*Split) Tag() Tag { return TagSplit }

func (p *Split) encode(w *writer) {
	w.u8(p.Cluster)
	w.counts(p.Parts)
}

func (p *Split) decode(r *reader) {
	p.Cluster = r.u8()
	p.Parts = r.counts()
}

// Chase targets an uninfected cell, an enemy cluster, or an own cluster to
// combine with; the host derives which from the target.
type Chase struct {
	Cluster uint8
	Target  registry.ID
}

func (*Chase) Tag() Tag { return TagChase }

func (p *Chase) encode(w *writer) {
	w.u8(p.Cluster)
	w.ref(p.Target)
}

func (p *Chase) decode(r *reader) {
	p.Cluster = r.u8()
	p.Target = r.ref()
}

type Evade struct {
	Cluster uint8
	Threat  uint8
}

func (*Evade) Tag() Tag { return TagEvade }

func (p *Evade) encode(w *writer) {
	w.u8(p.Cluster)
	w.u8(p.Threat)
}

func (p *Evade) decode(r *reader) {
	p.Cluster = r.u8()
	p.Threat = r.u8()
}

type CancelAction struct {
	Cluster uint8
}

func (*CancelAction) Tag() Tag { return TagCancelAction }

func (p *CancelAction) encode(w *writer) { w.u8(p.Cluster) }
func (p *CancelAction) decode(r *reader) { p.Cluster = r.u8() }

type Ready struct {
	Ready bool
}

func (*Ready) Tag() Tag { return TagReady }

func (p *Ready) encode(w *writer) { w.boolean(p.Ready) }
func (p *Ready) decode(r *reader) { p.Ready = r.boolean() }
