package motion

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

func clusterID(local uint8) registry.ID {
	return registry.GlobalID(registry.CategoryCluster, local)
}

func near(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < 1e-4
}

func TestSeekMovesAtSpeedWithoutOvershoot(t *testing.T) {
	s := NewStore(0)
	id := clusterID(1)
	s.Spawn(id, mgl32.Vec3{})
	s.Seek(id, mgl32.Vec3{10, 0, 0}, 4)

	s.Step(1)
	if pos, _ := s.Position(id); !near(pos, mgl32.Vec3{4, 0, 0}) {
		t.Fatalf("expected (4,0,0) after one second, got %v", pos)
	}
	s.Step(1)
	s.Step(1)
	if pos, _ := s.Position(id); !near(pos, mgl32.Vec3{10, 0, 0}) {
		t.Fatalf("expected to settle on target, got %v", pos)
	}
}

func TestFleeMovesAway(t *testing.T) {
	s := NewStore(0)
	id := clusterID(2)
	s.Spawn(id, mgl32.Vec3{0, 1, 0})
	s.Flee(id, mgl32.Vec3{}, 2)
	s.Step(0.5)
	if pos, _ := s.Position(id); !near(pos, mgl32.Vec3{0, 2, 0}) {
		t.Fatalf("expected (0,2,0), got %v", pos)
	}
}

func TestStopHoldsPosition(t *testing.T) {
	s := NewStore(0)
	id := clusterID(3)
	s.Spawn(id, mgl32.Vec3{1, 1, 1})
	s.Seek(id, mgl32.Vec3{5, 5, 5}, 1)
	s.Stop(id)
	s.Step(1)
	if pos, _ := s.Position(id); !near(pos, mgl32.Vec3{1, 1, 1}) {
		t.Fatalf("expected body to hold, got %v", pos)
	}
}

func TestPositionsStayInsideRadius(t *testing.T) {
	s := NewStore(10)
	id := clusterID(4)
	s.Spawn(id, mgl32.Vec3{50, 0, 0})
	if pos, _ := s.Position(id); !near(pos, mgl32.Vec3{10, 0, 0}) {
		t.Fatalf("expected spawn clamped to radius, got %v", pos)
	}
	s.Flee(id, mgl32.Vec3{}, 100)
	s.Step(1)
	if pos, _ := s.Position(id); pos.Len() > 10+1e-4 {
		t.Fatalf("expected body bounded, got %v", pos)
	}
}

func TestSpinWrapsOrientation(t *testing.T) {
	s := NewStore(0)
	id := registry.GlobalID(registry.CategoryUninfectedCell, 0)
	s.SpawnSpinning(id, mgl32.Vec3{}, 6, 1)
	s.Step(1)
	got := s.Orientation(id)
	if want := float32(7 - 2*math.Pi); math.Abs(float64(got-want)) > 1e-4 {
		t.Fatalf("expected wrapped angle %v, got %v", want, got)
	}
	if s.Orientation(clusterID(9)) != 0 {
		t.Fatalf("expected zero orientation for unknown body")
	}
}

func TestSpinOnlyAppliesToSpinningBodies(t *testing.T) {
	s := NewStore(0)
	still := clusterID(1)
	spinning := registry.GlobalID(registry.CategoryUninfectedCell, 1)
	s.Spawn(still, mgl32.Vec3{})
	s.SpawnSpinning(spinning, mgl32.Vec3{5, 0, 0}, 1, 2)

	s.SetOrientation(still, 3)
	s.SetOrientation(spinning, 0.5)

	if angle, rate := s.Spin(still); angle != 0 || rate != 0 || s.Orientation(still) != 0 {
		t.Fatalf("expected a plain body to report no spin, got %v/%v", angle, rate)
	}
	if angle, rate := s.Spin(spinning); angle != 0.5 || rate != 2 {
		t.Fatalf("expected spin 0.5/2, got %v/%v", angle, rate)
	}
}

func TestRemoveAndRespawn(t *testing.T) {
	s := NewStore(0)
	id := clusterID(5)
	s.Spawn(id, mgl32.Vec3{1, 0, 0})
	s.Remove(id)
	if s.Has(id) || s.Len() != 0 {
		t.Fatalf("expected body removed")
	}
	s.Spawn(id, mgl32.Vec3{2, 0, 0})
	seen := 0
	s.Each(func(got registry.ID, pos mgl32.Vec3) {
		seen++
		if got != id || !near(pos, mgl32.Vec3{2, 0, 0}) {
			t.Fatalf("unexpected body %s at %v", got, pos)
		}
	})
	if seen != 1 {
		t.Fatalf("expected one body, saw %d", seen)
	}
}
