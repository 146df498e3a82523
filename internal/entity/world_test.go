package entity

import (
	"testing"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

func newTestWorld(t *testing.T) (*World, *composition.Model) {
	t.Helper()
	w := NewWorld()
	w.AddVirus(&Virus{ID: 1, Name: "beta", Alive: true})
	w.AddVirus(&Virus{ID: 0, Name: "alpha", Alive: true})
	return w, composition.NewModel(cells.DefaultTable())
}

func TestAddVirusKeepsIDOrder(t *testing.T) {
	w, _ := newTestWorld(t)
	vs := w.Viruses()
	if len(vs) != 2 || vs[0].ID != 0 || vs[1].ID != 1 {
		t.Fatalf("expected viruses ordered by id, got %+v", vs)
	}
}

func TestSpawnClusterJoinsOwnerList(t *testing.T) {
	w, m := newTestWorld(t)
	first := w.SpawnCluster(0, m.NewFromCell(cells.RedBlood))
	second := w.SpawnCluster(0, m.NewFromCell(cells.Platelet))

	v, _ := w.Virus(0)
	if len(v.Clusters) != 2 || v.Clusters[0] != first.ID || v.Clusters[1] != second.ID {
		t.Fatalf("expected clusters in creation order, got %v", v.Clusters)
	}
	if first.Target != NoTarget || first.Action != Idle || !first.Active {
		t.Fatalf("expected fresh cluster idle and active, got %+v", first)
	}
}

func TestRemoveDetachesFromMemberships(t *testing.T) {
	w, m := newTestWorld(t)
	owned := w.SpawnCluster(1, m.NewFromCell(cells.RedBlood))
	wbc := w.SpawnCluster(0, m.NewWhiteBloodCell())

	if len(w.WhiteBloodCells()) != 1 {
		t.Fatalf("expected one white blood cell tracked")
	}
	if !w.Remove(owned.RegistryID()) || !w.Remove(wbc.RegistryID()) {
		t.Fatalf("expected removal to succeed")
	}
	v, _ := w.Virus(1)
	if len(v.Clusters) != 0 {
		t.Fatalf("expected owner list emptied, got %v", v.Clusters)
	}
	if len(w.WhiteBloodCells()) != 0 {
		t.Fatalf("expected white blood cell list emptied, got %v", w.WhiteBloodCells())
	}
	if _, ok := w.Cluster(owned.ID); ok {
		t.Fatalf("expected cluster gone from registry")
	}
}

func TestSweepRemovesInactiveAndEmpty(t *testing.T) {
	w, m := newTestWorld(t)
	keep := w.SpawnCluster(0, m.NewFromCell(cells.RedBlood))
	dead := w.SpawnCluster(0, m.NewFromCell(cells.RedBlood))
	empty := w.SpawnCluster(0, m.NewFromCell(cells.RedBlood))
	cell := w.SpawnUCell(cells.BigSilo)

	dead.Active = false
	empty.Counts = composition.Counts{}
	cell.Active = false

	removed := w.Sweep()
	if len(removed) != 3 {
		t.Fatalf("expected 3 removals, got %v", removed)
	}
	if _, ok := w.Cluster(keep.ID); !ok {
		t.Fatalf("expected active cluster to survive")
	}
	if w.Registry().Count(registry.CategoryUninfectedCell) != 0 {
		t.Fatalf("expected uninfected cell removed")
	}
}

func TestClusterIDsAreRecycled(t *testing.T) {
	w, m := newTestWorld(t)
	a := w.SpawnCluster(0, m.NewFromCell(cells.RedBlood))
	w.SpawnCluster(0, m.NewFromCell(cells.RedBlood))
	w.Remove(a.RegistryID())

	c := w.SpawnCluster(1, m.NewFromCell(cells.Platelet))
	if c.ID != a.ID {
		t.Fatalf("expected recycled id %d, got %d", a.ID, c.ID)
	}
}

func TestActionStateBusy(t *testing.T) {
	cases := map[ActionState]bool{
		Idle:                    false,
		ChasingUCellToInfect:    true,
		ChasingEnemyToBattle:    true,
		ChasingClusterToCombine: true,
		EvadingEnemy:            true,
		WaitingForOrder:         false,
	}
	for state, want := range cases {
		if got := state.Busy(); got != want {
			t.Fatalf("%s.Busy() = %v, want %v", state, got, want)
		}
	}
}
