package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
)

// fakeEndpoint is a minimal Endpoint for registry tests. A nil use
// means the endpoint has no CLI form.
type fakeEndpoint struct {
	method       string
	path         string
	use          string
	requiresInit bool
}

func (f *fakeEndpoint) Route() (string, string, http.HandlerFunc) {
	return f.method, f.path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeEndpoint) RequiresInit() bool { return f.requiresInit }

func (f *fakeEndpoint) Command(getServerURL func() string) *cobra.Command {
	if f.use == "" {
		return nil
	}
	return &cobra.Command{Use: f.use}
}

func TestBuildCommands(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeEndpoint{method: "GET", path: "/api/health", use: "health"})
	reg.Register(&fakeEndpoint{method: "POST", path: "/api/extract", use: "extract"})
	reg.Register(&fakeEndpoint{method: "GET", path: "/internal/debug", use: ""})

	apiCmd := reg.BuildCommands(func() string { return "http://localhost:8080" })
	if apiCmd.Use != "api" {
		t.Errorf("root command use = %q, want api", apiCmd.Use)
	}

	subs := apiCmd.Commands()
	if len(subs) != 2 {
		t.Fatalf("expected 2 subcommands (nil commands skipped), got %d", len(subs))
	}
	names := map[string]bool{}
	for _, c := range subs {
		names[c.Use] = true
	}
	if !names["health"] || !names["extract"] {
		t.Errorf("missing expected subcommands, got %v", names)
	}
}

func TestRegisterRoutes(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeEndpoint{method: "GET", path: "/open", use: "open"})
	reg.Register(&fakeEndpoint{method: "GET", path: "/gated", use: "gated", requiresInit: true})

	var wrapped []string
	middleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			wrapped = append(wrapped, r.URL.Path)
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, middleware)

	for _, path := range []string{"/open", "/gated"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}

	if len(wrapped) != 1 || wrapped[0] != "/gated" {
		t.Errorf("middleware should wrap only init-gated routes, saw %v", wrapped)
	}
}
