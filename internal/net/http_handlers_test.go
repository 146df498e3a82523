package net

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/config"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/hub"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/wsclient"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/observability"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

type staticEngine struct {
	status sim.Status
}

func (e *staticEngine) Enqueue(sim.Command) (bool, string) { return true, "" }
func (e *staticEngine) Status() sim.Status                 { return e.status }

func newStaticHandler(t *testing.T, status sim.Status, cfg HTTPHandlerConfig) (http.Handler, *hub.Hub) {
	t.Helper()
	h := hub.New(hub.Config{TickRate: 30})
	h.Bind(&staticEngine{status: status})
	if cfg.Status == nil {
		cfg.Status = func() sim.Status { return status }
	}
	return NewHTTPHandler(h, cfg), h
}

func TestHealth(t *testing.T) {
	handler, _ := newStaticHandler(t, sim.Status{}, HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestPprofIsMountedOnlyWhenEnabled(t *testing.T) {
	off, _ := newStaticHandler(t, sim.Status{}, HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	off.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected pprof to be absent by default, got %d", resp.Code)
	}

	on, _ := newStaticHandler(t, sim.Status{}, HTTPHandlerConfig{Observability: observability.Config{EnablePprofTrace: true}})
	resp = httptest.NewRecorder()
	on.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pprof index when enabled, got %d", resp.Code)
	}
}

func TestJoinRejectsWrongMethod(t *testing.T) {
	handler, _ := newStaticHandler(t, sim.Status{}, HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/join", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestJoinRejectsInvalidPayload(t *testing.T) {
	handler, _ := newStaticHandler(t, sim.Status{}, HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/join", bytes.NewReader([]byte("{"))))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestJoinReturnsHandshake(t *testing.T) {
	session := uuid.New()
	status := sim.Status{Session: session, Multiplayer: true, MaxPlayers: 2, Gameplay: config.GameplayIllness, Setting: 60}
	handler, h := newStaticHandler(t, status, HTTPHandlerConfig{})

	body, _ := json.Marshal(proto.JoinRequest{Ver: proto.Version, Name: "alice"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/join", bytes.NewReader(body)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}
	var join proto.JoinResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &join); err != nil {
		t.Fatalf("failed to decode join response: %v", err)
	}
	if join.SessionID != session.String() || join.Gameplay != config.GameplayIllness || join.Setting != 60 || join.TickRate != 30 {
		t.Fatalf("unexpected join response %+v", join)
	}
	player, err := uuid.Parse(join.PlayerID)
	if err != nil {
		t.Fatalf("invalid player id %q", join.PlayerID)
	}
	if !h.HasPlayer(player) {
		t.Fatalf("expected hub to track the joined player")
	}
}

func TestJoinRejectsStartedSession(t *testing.T) {
	status := sim.Status{Multiplayer: true, MaxPlayers: 2, Started: true}
	handler, _ := newStaticHandler(t, status, HTTPHandlerConfig{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/join", nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	var rejected proto.JoinRejected
	if err := json.Unmarshal(resp.Body.Bytes(), &rejected); err != nil {
		t.Fatalf("failed to decode rejection: %v", err)
	}
	if rejected.Reason != proto.RejectSessionStarted {
		t.Fatalf("expected reason %q, got %q", proto.RejectSessionStarted, rejected.Reason)
	}
}

func TestDiagnosticsReportsSessionAndTelemetry(t *testing.T) {
	session := uuid.New()
	status := sim.Status{Session: session, Multiplayer: true, MaxPlayers: 2, Tick: 77, Started: true, Elapsed: 1500 * time.Millisecond}
	metrics := &logging.Metrics{}
	metrics.TelemetryAdd("sim_battles_total", 3)

	recent := []logging.Event{{Type: "combat.battle_resolved", Tick: 70, Severity: logging.SeverityInfo, Actor: logging.ClusterRef(3)}}

	handler, _ := newStaticHandler(t, status, HTTPHandlerConfig{
		Metrics:  metrics,
		TickRate: 30,
		RouterStats: func() logging.RouterStats {
			return logging.RouterStats{EventsTotal: 9, DroppedTotal: 1, Sinks: []logging.SinkStats{{Name: "console", Written: 9}}}
		},
		RecentEvents: func() []logging.Event { return recent },
	})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload diagnosticsPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload.Session != session.String() || payload.Tick != 77 || !payload.Started || payload.Elapsed != 1500 {
		t.Fatalf("unexpected session fields %+v", payload)
	}
	if payload.Metrics["sim_battles_total"] != 3 {
		t.Fatalf("expected battle counter in metrics, got %v", payload.Metrics)
	}
	if payload.Router == nil || payload.Router.EventsTotal != 9 || payload.Router.DroppedTotal != 1 {
		t.Fatalf("unexpected router stats %+v", payload.Router)
	}
	if len(payload.Router.Sinks) != 1 || payload.Router.Sinks[0].Name != "console" || payload.Router.Sinks[0].Written != 9 {
		t.Fatalf("unexpected per-sink stats %+v", payload.Router.Sinks)
	}
	if len(payload.Recent) != 1 || payload.Recent[0].Type != "combat.battle_resolved" || payload.Recent[0].Actor != logging.ClusterRef(3) {
		t.Fatalf("unexpected recent events %+v", payload.Recent)
	}
	if payload.TickRate != 30 {
		t.Fatalf("expected tick rate 30, got %d", payload.TickRate)
	}
}

func TestClientPlaysThroughHost(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Multiplayer = true
	cfg.Session.MaxPlayers = 1
	cfg.Session.Bots = 0
	cfg.Level.UCells = 4
	cfg.Hazards.ImmuneTimeout = 0
	cfg.Hazards.MedicationTimeout = 0
	cfg.Sim.TickRate = 100
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	metrics := &logging.Metrics{}
	h := hub.New(hub.Config{TickRate: cfg.Sim.TickRate, Metrics: telemetry.WrapMetrics(metrics)})
	game := sim.NewGame(cfg, sim.Deps{Metrics: telemetry.WrapMetrics(metrics)}, h, sim.Hooks{})
	loop := sim.NewLoop(game, sim.LoopConfig{TickRate: cfg.Sim.TickRate, CommandCapacity: 64, PerActorLimit: 8}, sim.LoopHooks{})
	h.Bind(loop)

	srv := httptest.NewServer(NewHTTPHandler(h, HTTPHandlerConfig{Metrics: metrics, Status: loop.Status, TickRate: cfg.Sim.TickRate}))
	t.Cleanup(srv.Close)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(done)
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
		h.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := wsclient.Dial(ctx, srv.URL, "alice")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	roster := awaitPacket[*proto.VirusRoster](t, client)
	mine := false
	for _, v := range roster.Viruses {
		if v.PlayerID == client.Player && v.Name == "alice" {
			mine = true
		}
	}
	if !mine {
		t.Fatalf("expected roster to list alice's virus, got %+v", roster.Viruses)
	}

	if _, err := wsclient.Dial(ctx, srv.URL, "bob"); !errors.Is(err, wsclient.ErrJoinRejected) {
		t.Fatalf("expected second join to be rejected, got %v", err)
	}

	if err := client.Send(&proto.Ready{Ready: true}); err != nil {
		t.Fatalf("failed to send ready: %v", err)
	}
	started := awaitPacket[*proto.GameStarted](t, client)
	if started.Session != game.Session() {
		t.Fatalf("expected session %s, got %s", game.Session(), started.Session)
	}
	spawn := awaitPacket[*proto.UCellSpawn](t, client)

	if err := client.Send(&proto.NewClusterFromCell{UCell: spawn.ID}); err != nil {
		t.Fatalf("failed to send spawn: %v", err)
	}
	created := awaitPacket[*proto.NewCluster](t, client)
	if created.WhiteBlood {
		t.Fatalf("expected a virus cluster, got %+v", created)
	}
}

// awaitPacket reads until a packet of type T arrives.
func awaitPacket[T proto.Packet](t *testing.T, client *wsclient.ClientConn) T {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	client.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		packet, err := client.Receive()
		if err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		if p, ok := packet.(T); ok {
			return p
		}
	}
	var zero T
	t.Fatalf("timed out waiting for %T", zero)
	return zero
}
