package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/config"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/wsclient"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
)

func main() {
	host := flag.String("host", "http://localhost:8080", "Host base URL")
	name := flag.String("name", "player", "Display name")
	configPath := flag.String("config", "", "Path to the host's YAML config (cell table and speed scale)")
	autoplay := flag.Bool("autoplay", true, "Spawn and chase cells without input")
	frameRate := flag.Int("fps", 30, "Replica frames per second")
	flag.Parse()

	logger := telemetry.WrapLogger(log.Default())
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, err := wsclient.Dial(dialCtx, *host, *name)
	cancel()
	if err != nil {
		log.Fatalf("failed to join %s: %v", *host, err)
	}
	defer conn.Close()
	logger.Printf("joined session=%s as player=%s", conn.Join.SessionID, conn.Player)

	s := newSession(conn, conn.Player, sessionConfig{
		Table:      cfg.Derived.Table,
		Radius:     cfg.Level.Radius,
		SpeedScale: cfg.Sim.SpeedScale,
		Autoplay:   *autoplay,
		Frame:      time.Second / time.Duration(max(*frameRate, 1)),
		Logger:     logger,
	})
	if err := s.run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
	for _, line := range s.standings() {
		logger.Printf("%s", line)
	}
}
