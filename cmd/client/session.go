package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/wsclient"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/replica"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
)

const orderInterval = time.Second

// conn is the part of wsclient.ClientConn a session drives.
type conn interface {
	Send(proto.Packet) error
	Receive() (proto.Packet, error)
}

type sessionConfig struct {
	Table      cells.Table
	Radius     float32
	SpeedScale float64
	Autoplay   bool
	Frame      time.Duration
	Logger     telemetry.Logger
}

// session feeds host packets to a replica and, with autoplay, issues the
// orders a passive player would.
type session struct {
	conn    conn
	cfg     sessionConfig
	replica *replica.Replica

	readySent  bool
	spawnAsked time.Time
	lastOrders time.Time
}

func newSession(c conn, player uuid.UUID, cfg sessionConfig) *session {
	if cfg.Frame <= 0 {
		cfg.Frame = time.Second / 30
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	logger := cfg.Logger
	return &session{
		conn: c,
		cfg:  cfg,
		replica: replica.New(replica.Config{
			Table:      cfg.Table,
			Radius:     cfg.Radius,
			SpeedScale: cfg.SpeedScale,
			Local:      player,
			Logger:     logger,
			Cues: replica.CueFunc(func(c replica.Cue) {
				logger.Printf("[cue] %s", c)
			}),
		}),
	}
}

// run applies packets until the host announces game over or the stream
// ends.
func (s *session) run(ctx context.Context) error {
	packets := make(chan proto.Packet, 256)
	failed := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			p, err := s.conn.Receive()
			if err != nil {
				if proto.Malformed(err) {
					s.cfg.Logger.Printf("discarding malformed packet: %v", err)
					continue
				}
				failed <- err
				return
			}
			select {
			case packets <- p:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.Frame)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			if s.replica.Over() || wsclient.IsClosed(err) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		case p := <-packets:
			if err := s.replica.Apply(p); err != nil {
				s.cfg.Logger.Printf("%v", err)
				continue
			}
			s.react(p)
			if s.replica.Over() {
				return nil
			}
		case now := <-ticker.C:
			s.replica.Step(now.Sub(last).Seconds())
			last = now
			if s.cfg.Autoplay {
				s.play(now)
			}
		}
	}
}

func (s *session) react(p proto.Packet) {
	switch p := p.(type) {
	case *proto.VirusRoster:
		if !s.readySent && !s.replica.Started() {
			s.send(&proto.Ready{Ready: true})
			s.readySent = true
		}
	case *proto.GameStarted:
		s.cfg.Logger.Printf("game started session=%s", p.Session)
	}
}

// play spawns the local virus and keeps idle clusters busy.
func (s *session) play(now time.Time) {
	if !s.replica.Started() || s.replica.Over() {
		return
	}
	mine, ok := s.replica.Mine()
	if !ok || !mine.Alive {
		return
	}
	if !mine.Spawned {
		if now.Sub(s.spawnAsked) < orderInterval {
			return
		}
		if u, ok := s.nearestUCell(mgl32.Vec3{}, nil); ok {
			s.send(&proto.NewClusterFromCell{UCell: u.Local()})
			s.spawnAsked = now
		}
		return
	}
	if now.Sub(s.lastOrders) < orderInterval {
		return
	}
	s.lastOrders = now
	claimed := make(map[registry.ID]bool)
	for _, id := range mine.Clusters {
		c, ok := s.replica.World().Cluster(id)
		if !ok {
			continue
		}
		if c.Action != entity.Idle {
			claimed[c.Target] = true
			continue
		}
		here, _ := s.replica.Bodies().Position(c.RegistryID())
		if target, ok := s.nearestUCell(here, claimed); ok {
			claimed[target] = true
			s.send(&proto.Chase{Cluster: c.ID, Target: target})
		}
	}
}

func (s *session) nearestUCell(from mgl32.Vec3, skip map[registry.ID]bool) (registry.ID, bool) {
	best := registry.None
	bestDist := float32(math.MaxFloat32)
	for _, u := range s.replica.World().UCells() {
		id := u.RegistryID()
		if skip[id] {
			continue
		}
		pos, ok := s.replica.Bodies().Position(id)
		if !ok {
			continue
		}
		if d := pos.Sub(from).Len(); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, best != registry.None
}

func (s *session) send(p proto.Packet) {
	if err := s.conn.Send(p); err != nil {
		s.cfg.Logger.Printf("failed to send %s: %v", p.Tag(), err)
	}
}

// standings formats the final ranking, best first.
func (s *session) standings() []string {
	ranking := s.replica.Ranking()
	if len(ranking) == 0 {
		return nil
	}
	lines := []string{fmt.Sprintf("game over: %s", reasonText(s.replica.Reason()))}
	for i, id := range ranking {
		name := fmt.Sprintf("virus %d", id)
		suffix := ""
		if v, ok := s.replica.World().Virus(id); ok {
			name = v.Name
			if v.Mine {
				suffix = " (you)"
			}
		}
		lines = append(lines, fmt.Sprintf("#%d %s%s", i+1, name, suffix))
	}
	return lines
}

func reasonText(reason uint8) string {
	switch reason {
	case proto.ReasonEliminated:
		return "all viruses eliminated"
	case proto.ReasonLocalDestroyed:
		return "your virus was destroyed"
	case proto.ReasonHumansDestroyed:
		return "every player was destroyed"
	case proto.ReasonTimeUp:
		return "time up"
	case proto.ReasonInfection:
		return "infection threshold reached"
	default:
		return "unknown"
	}
}
