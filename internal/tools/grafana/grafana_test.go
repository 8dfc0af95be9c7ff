package grafana

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sretools/remedian/internal/resilience"
	"github.com/sretools/remedian/internal/toolbox"
)

// newGrafanaStub serves a single Prometheus datasource and a canned range
// query result.
func newGrafanaStub(t *testing.T, values [][2]float64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/datasources", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `[{"id":3,"uid":"prom-main","name":"Prometheus","type":"prometheus"},{"id":5,"uid":"loki","name":"Loki","type":"loki"}]`)
	})
	mux.HandleFunc("GET /api/datasources/proxy/3/api/v1/query_range", func(w http.ResponseWriter, r *http.Request) {
		var pairs []string
		for _, v := range values {
			pairs = append(pairs, fmt.Sprintf(`[%d,"%g"]`, int64(v[0]), v[1]))
		}
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{"pod":"api-7d4f"},"values":[%s]}]}}`, strings.Join(pairs, ","))
	})
	return httptest.NewServer(mux)
}

func newTestTools(t *testing.T, srv *httptest.Server) *Tools {
	t.Helper()
	client := NewClient(Config{BaseURL: srv.URL, Token: "test-token"}, WithHTTPClient(srv.Client()))
	return New(client)
}

func TestTools_CPUUsageAggregation(t *testing.T) {
	srv := newGrafanaStub(t, [][2]float64{{1000, 0.2}, {1060, 0.8}, {1120, 0.5}})
	defer srv.Close()
	tools := newTestTools(t, srv)

	args := map[string]any{
		"query_type": "max", "hours": float64(2),
		"namespace": "default", "pod_name": "api-7d4f", "container_name": "api",
	}
	result, err := tools.getCPUUsageOver(context.Background(), args)
	if err != nil {
		t.Fatalf("getCPUUsageOver: %v", err)
	}
	out := result.(map[string]any)
	if out["cpu_cores"] != 0.8 {
		t.Errorf("max cpu = %v, want 0.8", out["cpu_cores"])
	}

	args["query_type"] = "avg"
	result, err = tools.getCPUUsageOver(context.Background(), args)
	if err != nil {
		t.Fatalf("getCPUUsageOver avg: %v", err)
	}
	avg := result.(map[string]any)["cpu_cores"].(float64)
	if avg < 0.49 || avg > 0.51 {
		t.Errorf("avg cpu = %v, want 0.5", avg)
	}
}

func TestTools_MemoryUsageInMegabytes(t *testing.T) {
	srv := newGrafanaStub(t, [][2]float64{{1000, 512 * 1024 * 1024}})
	defer srv.Close()
	tools := newTestTools(t, srv)

	result, err := tools.getMemoryUsageOver(context.Background(), map[string]any{
		"query_type": "max", "hours": float64(1),
		"namespace": "media", "pod_name": "jellyfin-0", "container_name": "jellyfin",
	})
	if err != nil {
		t.Fatalf("getMemoryUsageOver: %v", err)
	}
	if mb := result.(map[string]any)["memory_mb"]; mb != float64(512) {
		t.Errorf("memory_mb = %v, want 512", mb)
	}
}

func TestTools_NodeUsageReturnsDatapointMap(t *testing.T) {
	srv := newGrafanaStub(t, [][2]float64{{1000, 0.3}, {1060, 0.4}})
	defer srv.Close()
	tools := newTestTools(t, srv)

	result, err := tools.getNodeCPUUsage(context.Background(), map[string]any{"node_name": "worker-1"})
	if err != nil {
		t.Fatalf("getNodeCPUUsage: %v", err)
	}
	points := result.(map[int64]float64)
	if len(points) != 2 || points[1060] != 0.4 {
		t.Errorf("unexpected datapoints: %v", points)
	}
}

func TestTools_InvalidQueryType(t *testing.T) {
	srv := newGrafanaStub(t, nil)
	defer srv.Close()
	tools := newTestTools(t, srv)

	_, err := tools.getCPUUsageOver(context.Background(), map[string]any{
		"query_type": "median", "hours": float64(1),
		"namespace": "default", "pod_name": "p", "container_name": "c",
	})
	var toolErr *toolbox.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if !strings.Contains(toolErr.Message, "query_type") {
		t.Errorf("unexpected message: %q", toolErr.Message)
	}
}

func TestTools_EmptyResultIsToolError(t *testing.T) {
	srv := newGrafanaStub(t, nil)
	defer srv.Close()
	tools := newTestTools(t, srv)

	_, err := tools.getCPUUsageOver(context.Background(), map[string]any{
		"query_type": "max", "hours": float64(1),
		"namespace": "default", "pod_name": "gone", "container_name": "c",
	})
	var toolErr *toolbox.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
}

func TestClient_DatasourceSelection(t *testing.T) {
	srv := newGrafanaStub(t, nil)
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Token: "test-token", Datasource: "prom-main"},
		WithHTTPClient(srv.Client()))
	id, err := client.datasource(context.Background())
	if err != nil {
		t.Fatalf("datasource: %v", err)
	}
	if id != 3 {
		t.Errorf("datasource id = %d, want 3", id)
	}

	missing := NewClient(Config{BaseURL: srv.URL, Token: "test-token", Datasource: "nope"},
		WithHTTPClient(srv.Client()))
	if _, err := missing.datasource(context.Background()); err == nil {
		t.Error("expected error for unknown datasource")
	}
}

func TestClient_ConcurrentDatasourceResolution(t *testing.T) {
	const delay = 200 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		fmt.Fprint(w, `[{"id":3,"uid":"prom-main","name":"Prometheus","type":"prometheus"}]`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Token: "test-token"}, WithHTTPClient(srv.Client()))

	start := time.Now()
	var wg sync.WaitGroup
	ids := make([]int, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = client.datasource(context.Background())
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("datasource %d: %v", i, errs[i])
		}
		if ids[i] != 3 {
			t.Errorf("datasource %d id = %d, want 3", i, ids[i])
		}
	}
	// Serialized resolution would take at least two full backend delays.
	if elapsed >= 2*delay {
		t.Errorf("concurrent resolution took %v, first calls should not queue behind each other", elapsed)
	}
}

func TestClient_BreakerOpensOnRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "grafana", MaxFailures: 2})
	client := NewClient(Config{BaseURL: srv.URL, Token: "test-token"},
		WithHTTPClient(srv.Client()), WithCircuitBreaker(breaker))
	tools := New(client)

	args := map[string]any{"node_name": "worker-1"}
	for i := 0; i < 2; i++ {
		if _, err := tools.getNodeCPUUsage(context.Background(), args); err == nil {
			t.Fatal("expected failure while backend is down")
		}
	}

	_, err := tools.getNodeCPUUsage(context.Background(), args)
	var toolErr *toolbox.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected circuit open cause, got %v", toolErr.Cause)
	}
}
