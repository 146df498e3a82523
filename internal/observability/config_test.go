package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegisterIsOptIn(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want int
	}{
		{name: "disabled", cfg: Config{}, want: http.StatusNotFound},
		{name: "enabled", cfg: Config{EnablePprofTrace: true}, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			if got := tc.cfg.Register(mux); got != tc.cfg.EnablePprofTrace {
				t.Fatalf("expected Register to report %v, got %v", tc.cfg.EnablePprofTrace, got)
			}
			resp := httptest.NewRecorder()
			mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
			if resp.Code != tc.want {
				t.Fatalf("expected %d from /debug/pprof/, got %d", tc.want, resp.Code)
			}
		})
	}
}
