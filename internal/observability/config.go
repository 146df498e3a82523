// Package observability holds opt-in diagnostics toggles for the host.
package observability

import (
	nethttp "net/http"
	"net/http/pprof"
)

// Config captures opt-in observability toggles that wire into the host.
type Config struct {
	EnablePprofTrace bool `yaml:"enable_pprof_trace"`
}

// Register mounts the runtime profiler under /debug/pprof/ when enabled and
// reports whether it did.
func (c Config) Register(mux *nethttp.ServeMux) bool {
	if !c.EnablePprofTrace || mux == nil {
		return false
	}
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return true
}
