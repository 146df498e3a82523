package main

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

type fakeConn struct {
	in   chan proto.Packet
	sent chan proto.Packet
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan proto.Packet, 16), sent: make(chan proto.Packet, 64)}
}

func (c *fakeConn) Send(p proto.Packet) error {
	c.sent <- p
	return nil
}

func (c *fakeConn) Receive() (proto.Packet, error) {
	p, ok := <-c.in
	if !ok {
		return nil, io.EOF
	}
	return p, nil
}

// awaitSent returns the first sent packet of type T.
func awaitSent[T proto.Packet](t *testing.T, c *fakeConn) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case p := <-c.sent:
			if typed, ok := p.(T); ok {
				return typed
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func startSession(t *testing.T, c *fakeConn, player uuid.UUID) (*session, chan error) {
	t.Helper()
	s := newSession(c, player, sessionConfig{Table: cells.DefaultTable(), Autoplay: true, Frame: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	errs := make(chan error, 1)
	go func() { errs <- s.run(ctx) }()
	return s, errs
}

func TestSessionAutoplaysToGameOver(t *testing.T) {
	player := uuid.New()
	c := newFakeConn()
	s, errs := startSession(t, c, player)

	c.in <- &proto.VirusRoster{Viruses: []proto.VirusInfo{{ID: 0, Name: "alice", PlayerID: player}, {ID: 1, Name: "Bot 1", Bot: true}}}
	if ready := awaitSent[*proto.Ready](t, c); !ready.Ready {
		t.Fatalf("expected ready flag set")
	}

	c.in <- &proto.GameStarted{Session: uuid.New()}
	c.in <- &proto.UCellSpawn{ID: 1, Type: cells.Platelet, Pos: mgl32.Vec3{50, 0, 0}}
	c.in <- &proto.UCellSpawn{ID: 2, Type: cells.RedBlood, Pos: mgl32.Vec3{5, 0, 0}}
	if spawn := awaitSent[*proto.NewClusterFromCell](t, c); spawn.UCell != 2 {
		t.Fatalf("expected spawn on the cell nearest the centre, got %d", spawn.UCell)
	}

	var counts proto.Counts
	counts[cells.RedBlood] = 1
	c.in <- &proto.UCellSnapshot{Timestamp: 1, Cells: []proto.UCellState{{ID: 1, Pos: mgl32.Vec3{50, 0, 0}}}}
	c.in <- &proto.NewCluster{ID: 0, Owner: 0, Pos: mgl32.Vec3{5, 0, 0}, State: proto.ClusterState{Counts: counts, Health: 100, Target: entity.NoTarget}}
	chase := awaitSent[*proto.Chase](t, c)
	if chase.Cluster != 0 || chase.Target != registry.GlobalID(registry.CategoryUninfectedCell, 1) {
		t.Fatalf("unexpected chase %+v", chase)
	}

	c.in <- &proto.GameOver{Reason: proto.ReasonTimeUp, Ranking: []uint8{0, 1}}
	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not stop after game over")
	}

	lines := s.standings()
	if len(lines) != 3 || !strings.Contains(lines[0], "time up") || lines[1] != "#1 alice (you)" || lines[2] != "#2 Bot 1" {
		t.Fatalf("unexpected standings %q", lines)
	}
}

func TestSessionReportsLostConnection(t *testing.T) {
	c := newFakeConn()
	_, errs := startSession(t, c, uuid.New())
	close(c.in)
	select {
	case err := <-errs:
		if err == nil {
			t.Fatalf("expected an error when the stream ends mid-game")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not stop")
	}
}
