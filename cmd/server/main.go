package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/app"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config layered over the defaults")
	addr := flag.String("addr", "", "Listen address (empty = net.addr from config)")
	outputDir := flag.String("output-dir", "", "Directory for config.yaml, telemetry.csv and standings.csv")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigPath: *configPath, Addr: *addr, OutputDir: *outputDir}); err != nil {
		log.Fatalf("%v", err)
	}
}
