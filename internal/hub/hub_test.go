package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
)

type fakeEngine struct {
	mu       sync.Mutex
	status   sim.Status
	commands []sim.Command
}

func (f *fakeEngine) Enqueue(cmd sim.Command) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return true, ""
}

func (f *fakeEngine) Status() sim.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeEngine) types() []sim.CommandType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sim.CommandType, 0, len(f.commands))
	for _, cmd := range f.commands {
		out = append(out, cmd.Type)
	}
	return out
}

type fakeConn struct {
	mu     sync.Mutex
	kinds  []int
	writes [][]byte
	closed bool
	wrote  chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{wrote: make(chan struct{}, 64)}
}

func (c *fakeConn) WriteMessage(kind int, data []byte) error {
	c.mu.Lock()
	c.kinds = append(c.kinds, kind)
	c.writes = append(c.writes, data)
	c.mu.Unlock()
	c.wrote <- struct{}{}
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) waitWrites(t *testing.T, n int) [][]byte {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.wrote:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for write %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

func multiplayerEngine() *fakeEngine {
	return &fakeEngine{status: sim.Status{Session: uuid.New(), Multiplayer: true, MaxPlayers: 4, Gameplay: "timed", Setting: 10}}
}

func joinPlayer(t *testing.T, h *Hub, name string) uuid.UUID {
	t.Helper()
	resp, reason := h.Join(name)
	if reason != "" {
		t.Fatalf("expected %s to join, got reason %q", name, reason)
	}
	id, err := uuid.Parse(resp.PlayerID)
	if err != nil {
		t.Fatalf("join returned invalid player id %q: %v", resp.PlayerID, err)
	}
	return id
}

func TestJoinRequiresBoundEngine(t *testing.T) {
	h := New(Config{})
	if _, reason := h.Join("early"); reason != proto.RejectUnavailable {
		t.Fatalf("expected %q before bind, got %q", proto.RejectUnavailable, reason)
	}
}

func TestJoinStagesCommandAndFillsResponse(t *testing.T) {
	engine := multiplayerEngine()
	h := New(Config{TickRate: 30})
	h.Bind(engine)

	resp, reason := h.Join("alice")
	if reason != "" {
		t.Fatalf("unexpected rejection %q", reason)
	}
	if resp.Ver != proto.Version || resp.TickRate != 30 || resp.Gameplay != "timed" {
		t.Fatalf("unexpected join response %+v", resp)
	}
	if resp.SessionID != engine.status.Session.String() {
		t.Fatalf("expected session %s, got %s", engine.status.Session, resp.SessionID)
	}
	if got := engine.types(); len(got) != 1 || got[0] != sim.CommandJoin {
		t.Fatalf("expected one join command, got %v", got)
	}
	if engine.commands[0].Join == nil || engine.commands[0].Join.Name != "alice" {
		t.Fatalf("expected join name alice, got %+v", engine.commands[0].Join)
	}
}

func TestJoinLimits(t *testing.T) {
	t.Run("solo takes one player", func(t *testing.T) {
		h := New(Config{})
		h.Bind(&fakeEngine{status: sim.Status{MaxPlayers: 4}})
		joinPlayer(t, h, "solo")
		if _, reason := h.Join("second"); reason != proto.RejectSessionFull {
			t.Fatalf("expected %q, got %q", proto.RejectSessionFull, reason)
		}
	})

	t.Run("multiplayer max players", func(t *testing.T) {
		engine := multiplayerEngine()
		engine.status.MaxPlayers = 2
		h := New(Config{})
		h.Bind(engine)
		joinPlayer(t, h, "a")
		joinPlayer(t, h, "b")
		if _, reason := h.Join("c"); reason != proto.RejectSessionFull {
			t.Fatalf("expected %q, got %q", proto.RejectSessionFull, reason)
		}
	})

	t.Run("multiplayer after start", func(t *testing.T) {
		engine := multiplayerEngine()
		engine.status.Started = true
		h := New(Config{})
		h.Bind(engine)
		if _, reason := h.Join("late"); reason != proto.RejectSessionStarted {
			t.Fatalf("expected %q, got %q", proto.RejectSessionStarted, reason)
		}
	})
}

func TestSubscribeUnknownPlayerFails(t *testing.T) {
	h := New(Config{})
	h.Bind(multiplayerEngine())
	if _, ok := h.Subscribe(uuid.New(), newFakeConn()); ok {
		t.Fatalf("expected subscribe without join to fail")
	}
}

func TestBroadcastReachesSubscribersInOrder(t *testing.T) {
	engine := multiplayerEngine()
	h := New(Config{})
	h.Bind(engine)

	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	for i, conn := range conns {
		id := joinPlayer(t, h, []string{"a", "b"}[i])
		sub, ok := h.Subscribe(id, conn)
		if !ok {
			t.Fatalf("expected subscribe to succeed")
		}
		go sub.Run()
		t.Cleanup(func() { h.Unsubscribe(sub) })
	}

	h.Broadcast(&proto.ImmuneCountdown{Seconds: 3})
	h.Broadcast(&proto.MedicationCountdown{Seconds: 2})

	for _, conn := range conns {
		writes := conn.waitWrites(t, 2)
		if len(writes) != 2 {
			t.Fatalf("expected 2 writes, got %d", len(writes))
		}
		if proto.Tag(writes[0][0]) != proto.TagImmuneCountdown || proto.Tag(writes[1][0]) != proto.TagMedicationCountdown {
			t.Fatalf("packets delivered out of order: %v %v", writes[0][0], writes[1][0])
		}
	}

	types := engine.types()
	syncs := 0
	for _, typ := range types {
		if typ == sim.CommandSync {
			syncs++
		}
	}
	if syncs != 2 {
		t.Fatalf("expected a sync command per subscriber, got %v", types)
	}
}

func TestSendToTargetsOnePlayer(t *testing.T) {
	h := New(Config{})
	h.Bind(multiplayerEngine())

	first, second := newFakeConn(), newFakeConn()
	a := joinPlayer(t, h, "a")
	b := joinPlayer(t, h, "b")
	subA, _ := h.Subscribe(a, first)
	subB, _ := h.Subscribe(b, second)
	go subA.Run()
	go subB.Run()
	t.Cleanup(h.Close)

	h.SendTo(b, &proto.BattleWarning{Victim: 1, Attacker: 2})
	h.SendTo(uuid.New(), &proto.BattleWarning{Victim: 1, Attacker: 2})

	second.waitWrites(t, 1)
	first.mu.Lock()
	n := len(first.writes)
	first.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected no packets for the other player, got %d", n)
	}
}

func TestResubscribeKeepsPlayer(t *testing.T) {
	engine := multiplayerEngine()
	h := New(Config{})
	h.Bind(engine)

	id := joinPlayer(t, h, "a")
	oldConn := newFakeConn()
	old, _ := h.Subscribe(id, oldConn)
	if _, ok := h.Subscribe(id, newFakeConn()); !ok {
		t.Fatalf("expected resubscribe to succeed")
	}
	if !oldConn.isClosed() {
		t.Fatalf("expected previous connection to be closed")
	}

	h.Unsubscribe(old)
	if !h.HasPlayer(id) {
		t.Fatalf("expected stale connection teardown to keep the player")
	}
	for _, typ := range engine.types() {
		if typ == sim.CommandLeave {
			t.Fatalf("expected no leave command for a replaced connection")
		}
	}
}

func TestSendQueueOverflowDisconnects(t *testing.T) {
	engine := multiplayerEngine()
	h := New(Config{SendQueue: 1})
	h.Bind(engine)

	id := joinPlayer(t, h, "slow")
	conn := newFakeConn()
	if _, ok := h.Subscribe(id, conn); !ok {
		t.Fatalf("expected subscribe to succeed")
	}

	h.Broadcast(&proto.ImmuneCountdown{Seconds: 3})
	h.Broadcast(&proto.ImmuneCountdown{Seconds: 2})

	if h.HasPlayer(id) {
		t.Fatalf("expected slow player to be dropped")
	}
	if !conn.isClosed() {
		t.Fatalf("expected slow connection to be closed")
	}
	types := engine.types()
	if types[len(types)-1] != sim.CommandLeave {
		t.Fatalf("expected a leave command after overflow, got %v", types)
	}
}

func TestDiagnosticsReportsConnection(t *testing.T) {
	h := New(Config{})
	h.Bind(multiplayerEngine())
	connected := joinPlayer(t, h, "a")
	joinPlayer(t, h, "b")
	h.Subscribe(connected, newFakeConn())

	diag := h.Diagnostics()
	if len(diag) != 2 {
		t.Fatalf("expected 2 players, got %d", len(diag))
	}
	for _, d := range diag {
		want := d.ID == connected.String()
		if d.Connected != want {
			t.Fatalf("player %s (%s) connected=%v, want %v", d.ID, d.Name, d.Connected, want)
		}
	}
}

func TestIdleSubscriberIsPinged(t *testing.T) {
	h := New(Config{PingInterval: 10 * time.Millisecond})
	h.Bind(multiplayerEngine())
	if h.PongWait() != 20*time.Millisecond {
		t.Fatalf("expected pong wait of two ping intervals, got %s", h.PongWait())
	}

	id := joinPlayer(t, h, "idle")
	conn := newFakeConn()
	sub, ok := h.Subscribe(id, conn)
	if !ok {
		t.Fatalf("expected subscribe to succeed")
	}
	go sub.Run()
	t.Cleanup(func() { h.Unsubscribe(sub) })

	conn.waitWrites(t, 1)
	conn.mu.Lock()
	kind := conn.kinds[0]
	conn.mu.Unlock()
	if kind != websocket.PingMessage {
		t.Fatalf("expected a ping frame, got kind %d", kind)
	}
}
