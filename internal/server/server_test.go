package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/credable-eng/fieldsift/internal/config"
	"github.com/credable-eng/fieldsift/internal/server/endpoints"
)

type asciiCodec struct{}

func (asciiCodec) Encode(text string) []int {
	toks := make([]int, len(text))
	for i := range text {
		toks[i] = int(text[i])
	}
	return toks
}

func (asciiCodec) Decode(toks []int) string {
	b := make([]byte, len(toks))
	for i, tk := range toks {
		b[i] = byte(tk)
	}
	return string(b)
}

func newTestManager(t *testing.T) *config.Manager {
	t.Helper()
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("llm:\n  model: test-model\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	mgr, err := config.NewManager(configFile)
	if err != nil {
		t.Fatalf("config manager: %v", err)
	}
	return mgr
}

func TestServer_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	port := "18080" // Non-standard port for testing
	srv, err := New(Config{
		Host:          "127.0.0.1",
		Port:          port,
		ConfigManager: newTestManager(t),
		Codec:         asciiCodec{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)

	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%s", port)
	if err := waitForServer(ctx, baseURL, 10*time.Second); err != nil {
		serverCancel()
		t.Fatalf("server did not start: %v", err)
	}

	t.Run("health_endpoint", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			t.Fatalf("health check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var health endpoints.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Status != "ok" {
			t.Errorf("health.Status = %q, want %q", health.Status, "ok")
		}
	})

	t.Run("schema_endpoint", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/schema")
		if err != nil {
			t.Fatalf("schema request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("schema status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var schemaResp endpoints.SchemaResponse
		if err := json.NewDecoder(resp.Body).Decode(&schemaResp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(schemaResp.Fields) == 0 {
			t.Error("expected schema fields")
		}
	})

	t.Run("is_running", func(t *testing.T) {
		if !srv.IsRunning() {
			t.Error("IsRunning() = false, want true")
		}
	})

	t.Run("double_start_fails", func(t *testing.T) {
		if err := srv.Start(ctx); err == nil {
			t.Error("second Start() should return error")
		}
	})

	// Shutdown
	serverCancel()

	select {
	case err := <-serverErr:
		if err != nil {
			t.Logf("server returned error (expected during shutdown): %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down within timeout")
	}

	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown, want false")
	}
}

func TestServer_RequiresConfigManager(t *testing.T) {
	if _, err := New(Config{Codec: asciiCodec{}}); err == nil {
		t.Error("expected error without config manager")
	}
}

func TestServer_BuildsFromConfig(t *testing.T) {
	srv, err := New(Config{
		ConfigManager: newTestManager(t),
		Codec:         asciiCodec{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	svcs := srv.Services()
	if svcs == nil || svcs.Pipeline == nil {
		t.Fatal("services not built")
	}
	if svcs.Schema == nil || svcs.Schema.Len() == 0 {
		t.Error("schema not loaded")
	}
	if svcs.LLM == nil {
		t.Error("completion client not built")
	}
}

// waitForServer polls the server until it responds or timeout.
func waitForServer(ctx context.Context, baseURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
		if err != nil {
			return err
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %s", timeout)
}
