package logging

import "time"

// Config controls which sinks receive gameplay events and how much buffering
// sits between the simulation goroutine and the sink workers.
type Config struct {
	EnabledSinks []string `yaml:"sinks"`
	// SinkSeverity raises the minimum severity of individual sinks.
	SinkSeverity     map[string]Severity `yaml:"sink_severity"`
	BufferSize       int                 `yaml:"buffer_size"`
	MinimumSeverity  Severity            `yaml:"minimum_severity"`
	Fields           map[string]any      `yaml:"fields"`
	JSON             JSONConfig          `yaml:"json"`
	DropWarnInterval time.Duration       `yaml:"drop_warn_interval"`
	// RecentEvents sizes the in-memory ring served by /diagnostics; zero
	// disables it.
	RecentEvents int `yaml:"recent_events"`
}

type JSONConfig struct {
	FilePath      string        `yaml:"file_path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		RecentEvents:     64,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// SeverityFor returns the minimum severity configured for sink name.
func (c Config) SeverityFor(name string) Severity {
	if s, ok := c.SinkSeverity[name]; ok && s > c.MinimumSeverity {
		return s
	}
	return c.MinimumSeverity
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
