// Package net serves the host's HTTP surface: health, diagnostics, the join
// handshake and the websocket upgrade.
package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/hub"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/ws"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/observability"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

const maxJoinBody = 4 * 1024

type HTTPHandlerConfig struct {
	Logger    telemetry.Logger
	Metrics   *logging.Metrics
	Publisher logging.Publisher
	// Status reports the simulation state; nil serves an empty status.
	Status func() sim.Status
	// RouterStats reports the event router counters when a router runs.
	RouterStats func() logging.RouterStats
	// RecentEvents lists the latest gameplay events, oldest first.
	RecentEvents  func() []logging.Event
	TickRate      int
	Observability observability.Config
}

type diagnosticsPayload struct {
	Status     string                  `json:"status"`
	ServerTime int64                   `json:"serverTime"`
	Session    string                  `json:"session"`
	Tick       uint64                  `json:"tick"`
	TickRate   int                     `json:"tickRate"`
	Elapsed    int64                   `json:"elapsedMillis"`
	Started    bool                    `json:"started"`
	Over       bool                    `json:"over"`
	Ranking    []uint8                 `json:"ranking,omitempty"`
	Players    []hub.PlayerDiagnostics `json:"players"`
	Metrics    map[string]uint64       `json:"metrics,omitempty"`
	Router     *logging.RouterStats    `json:"router,omitempty"`
	Recent     []logging.Event         `json:"recentEvents,omitempty"`
}

func NewHTTPHandler(h *hub.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	var metrics telemetry.Metrics = telemetry.NopMetrics{}
	if cfg.Metrics != nil {
		metrics = telemetry.WrapMetrics(cfg.Metrics)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var status sim.Status
		if cfg.Status != nil {
			status = cfg.Status()
		}
		payload := diagnosticsPayload{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Session:    status.Session.String(),
			Tick:       status.Tick,
			TickRate:   cfg.TickRate,
			Elapsed:    status.Elapsed.Milliseconds(),
			Started:    status.Started,
			Over:       status.Over,
			Ranking:    status.Ranking,
			Players:    h.Diagnostics(),
		}
		if cfg.Metrics != nil {
			payload.Metrics = cfg.Metrics.Snapshot()
		}
		if cfg.RouterStats != nil {
			stats := cfg.RouterStats()
			payload.Router = &stats
		}
		if cfg.RecentEvents != nil {
			payload.Recent = cfg.RecentEvents()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req proto.JoinRequest
		if r.Body != nil {
			defer r.Body.Close()
			decoder := json.NewDecoder(io.LimitReader(r.Body, maxJoinBody))
			if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}
		if req.Ver != 0 && req.Ver != proto.Version {
			writeJSON(w, nethttp.StatusConflict, proto.JoinRejected{Ver: proto.Version, Reason: "version_mismatch"})
			return
		}

		join, reason := h.Join(req.Name)
		if reason != "" {
			logger.Printf("join refused for %q: %s", req.Name, reason)
			metrics.Add("http_join_rejected_total", 1)
			writeJSON(w, nethttp.StatusConflict, proto.JoinRejected{Ver: proto.Version, Reason: reason})
			return
		}
		writeJSON(w, nethttp.StatusOK, join)
	})

	sessions := ws.NewHandler(h, ws.HandlerConfig{
		Logger:    logger,
		Metrics:   metrics,
		Publisher: cfg.Publisher,
	})
	mux.HandleFunc("/ws", sessions.Handle)

	if cfg.Observability.Register(mux) {
		logger.Printf("pprof handlers enabled under /debug/pprof/")
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
