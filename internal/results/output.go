// Package results writes match output: the effective config, periodic
// telemetry samples and the final standings.
package results

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/config"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
)

// StandingRecord is one row of standings.csv.
type StandingRecord struct {
	Rank      int     `csv:"rank"`
	Virus     uint8   `csv:"virus"`
	Name      string  `csv:"name"`
	Bot       bool    `csv:"bot"`
	Infection float64 `csv:"infection"`
	Clusters  int     `csv:"clusters"`
	Cells     int     `csv:"cells"`
	Reason    string  `csv:"reason"`
}

// Sample is one row of telemetry.csv.
type Sample struct {
	Tick            uint64  `csv:"tick"`
	ElapsedSeconds  float64 `csv:"elapsed_s"`
	Clusters        int     `csv:"clusters"`
	WhiteBlood      int     `csv:"wbc"`
	UCells          int     `csv:"ucells"`
	MeanClusterSize float64 `csv:"mean_cluster_size"`
	AliveViruses    int     `csv:"alive_viruses"`
}

// SampleOf summarizes the game's world. It must run on the loop goroutine.
func SampleOf(g *sim.Game) Sample {
	world := g.World()
	s := Sample{
		Tick:           g.Tick(),
		ElapsedSeconds: g.Elapsed().Seconds(),
		UCells:         len(world.UCells()),
		WhiteBlood:     len(world.WhiteBloodCells()),
	}
	var sizes []float64
	for _, c := range world.Clusters() {
		if c.WhiteBlood {
			continue
		}
		sizes = append(sizes, float64(c.NumCellsTotal))
	}
	s.Clusters = len(sizes)
	if len(sizes) > 0 {
		s.MeanClusterSize = stat.Mean(sizes, nil)
	}
	for _, v := range world.Viruses() {
		if v.Alive {
			s.AliveViruses++
		}
	}
	return s
}

// Writer owns the output directory. A nil Writer discards everything.
type Writer struct {
	dir           string
	telemetryFile *os.File
	headerWritten bool
}

// NewWriter creates dir and opens telemetry.csv. It returns nil when dir is
// empty.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating telemetry.csv: %w", err)
	}
	return &Writer{dir: dir, telemetryFile: f}, nil
}

func (w *Writer) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// WriteConfig saves the effective configuration as config.yaml.
func (w *Writer) WriteConfig(cfg *config.Config) error {
	if w == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(w.dir, "config.yaml"))
}

// WriteTelemetry appends one sample, writing the header first.
func (w *Writer) WriteTelemetry(s Sample) error {
	if w == nil {
		return nil
	}
	records := []Sample{s}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.telemetryFile); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.telemetryFile); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WriteStandings replaces standings.csv with the final ranking.
func (w *Writer) WriteStandings(reason uint8, standings []sim.Standing) error {
	if w == nil {
		return nil
	}
	records := make([]StandingRecord, len(standings))
	for i, s := range standings {
		infection := s.Infection
		if math.IsNaN(infection) {
			infection = 0
		}
		records[i] = StandingRecord{
			Rank:      s.Rank,
			Virus:     s.Virus,
			Name:      s.Name,
			Bot:       s.Bot,
			Infection: infection,
			Clusters:  s.Clusters,
			Cells:     s.Cells,
			Reason:    sim.ReasonName(reason),
		}
		if records[i].Rank == 0 {
			records[i].Rank = i + 1
		}
	}
	f, err := os.Create(filepath.Join(w.dir, "standings.csv"))
	if err != nil {
		return fmt.Errorf("creating standings.csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("writing standings: %w", err)
	}
	return nil
}

// Close flushes and closes the telemetry file.
func (w *Writer) Close() error {
	if w == nil || w.telemetryFile == nil {
		return nil
	}
	err := w.telemetryFile.Close()
	w.telemetryFile = nil
	return err
}
