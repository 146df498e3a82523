package ws

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/hub"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/network"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/sinks"
)

type recordingEngine struct {
	mu       sync.Mutex
	commands []sim.Command
}

func (e *recordingEngine) Enqueue(cmd sim.Command) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, cmd)
	return true, ""
}

func (e *recordingEngine) Status() sim.Status {
	return sim.Status{Multiplayer: true, MaxPlayers: 4}
}

// waitFor polls until a command of type typ is staged.
func (e *recordingEngine) waitFor(t *testing.T, typ sim.CommandType) sim.Command {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		for _, cmd := range e.commands {
			if cmd.Type == typ {
				e.mu.Unlock()
				return cmd
			}
		}
		e.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s command", typ)
	return sim.Command{}
}

type fixture struct {
	hub    *hub.Hub
	engine *recordingEngine
	events *sinks.MemorySink
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine := &recordingEngine{}
	h := hub.New(hub.Config{})
	h.Bind(engine)
	events := sinks.NewMemorySink()
	handler := NewHandler(h, HandlerConfig{Publisher: events})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)
	t.Cleanup(h.Close)
	return &fixture{hub: h, engine: engine, events: events, srv: srv}
}

func (f *fixture) dial(t *testing.T, player string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, f.srv.URL, player), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func (f *fixture) join(t *testing.T) uuid.UUID {
	t.Helper()
	resp, reason := f.hub.Join("tester")
	if reason != "" {
		t.Fatalf("join rejected: %s", reason)
	}
	return uuid.MustParse(resp.PlayerID)
}

func websocketURL(t *testing.T, baseURL, playerID string) string {
	t.Helper()

	parsed, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %v", err)
	}
	parsed.Scheme = "ws"
	parsed.Path = "/"
	query := parsed.Query()
	query.Set("id", playerID)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func TestHandleRejectsMissingID(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHandleClosesUnknownPlayer(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, uuid.NewString())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestHandleStagesClientPackets(t *testing.T) {
	f := newFixture(t)
	player := f.join(t)
	conn := f.dial(t, player.String())

	synced := f.engine.waitFor(t, sim.CommandSync)
	if synced.Player != player {
		t.Fatalf("expected sync for %s, got %s", player, synced.Player)
	}

	target := registry.GlobalID(registry.CategoryUninfectedCell, 4)
	if err := conn.WriteMessage(websocket.BinaryMessage, proto.Encode(&proto.Chase{Cluster: 2, Target: target})); err != nil {
		t.Fatalf("failed to send chase: %v", err)
	}
	chase := f.engine.waitFor(t, sim.CommandChase)
	if chase.Player != player || chase.Chase == nil || chase.Chase.Target != target {
		t.Fatalf("unexpected chase command %+v", chase)
	}
}

func TestHandleDiscardsMalformedPackets(t *testing.T) {
	f := newFixture(t)
	player := f.join(t)
	conn := f.dial(t, player.String())

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xEE, 1, 2}); err != nil {
		t.Fatalf("failed to send garbage: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, proto.Encode(&proto.GameOver{Reason: proto.ReasonTimeUp})); err != nil {
		t.Fatalf("failed to send host packet: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, proto.Encode(&proto.Ready{Ready: true})); err != nil {
		t.Fatalf("failed to send ready: %v", err)
	}

	f.engine.waitFor(t, sim.CommandReady)
	violations := f.events.OfType(network.EventProtocolViolation)
	if len(violations) != 2 {
		t.Fatalf("expected 2 protocol violations, got %d", len(violations))
	}
	payload, ok := violations[0].Payload.(network.ProtocolViolationPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", violations[0].Payload)
	}
	if payload.Tag != 0xEE || payload.Length != 3 {
		t.Fatalf("unexpected violation payload %+v", payload)
	}
}

func TestHandleDeliversHostPackets(t *testing.T) {
	f := newFixture(t)
	player := f.join(t)
	conn := f.dial(t, player.String())
	f.engine.waitFor(t, sim.CommandSync)

	f.hub.Broadcast(&proto.MedicationCountdown{Seconds: 5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected binary frame, got %d", kind)
	}
	packet, err := proto.Decode(payload)
	if err != nil {
		t.Fatalf("failed to decode broadcast: %v", err)
	}
	countdown, ok := packet.(*proto.MedicationCountdown)
	if !ok || countdown.Seconds != 5 {
		t.Fatalf("unexpected packet %#v", packet)
	}
}

func TestHandleDisconnectStagesLeave(t *testing.T) {
	f := newFixture(t)
	player := f.join(t)
	conn := f.dial(t, player.String())
	f.engine.waitFor(t, sim.CommandSync)

	conn.Close()

	leave := f.engine.waitFor(t, sim.CommandLeave)
	if leave.Player != player {
		t.Fatalf("expected leave for %s, got %s", player, leave.Player)
	}
	if f.hub.HasPlayer(player) {
		t.Fatalf("expected player to be removed after disconnect")
	}
}
