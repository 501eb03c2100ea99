package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"github.com/xbklairith/aubit-poly/internal/scanner"
	"github.com/xbklairith/aubit-poly/pkg/healthprobe"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

type staticResults struct {
	result *scanner.Result
}

func (s *staticResults) Latest() *scanner.Result { return s.result }

func testResult() *scanner.Result {
	internal := arbitrage.CreateTestOpportunity("internal:polymarket:a", "0.05")
	hedging := arbitrage.CreateTestOpportunity("hedging:polymarket:b:BTC:YES", "0.12")
	hedging.Kind = arbitrage.KindHedging
	second := arbitrage.CreateTestOpportunity("internal:kalshi:c", "0.02")

	return &scanner.Result{
		ScanID:        "scan-1",
		StartedAt:     time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC),
		Markets:       map[types.Venue]int{types.VenuePolymarket: 2, types.VenueKalshi: 1},
		Opportunities: []*arbitrage.Opportunity{internal, second, hedging},
	}
}

func newTestServer(results ResultSource, liveFeed http.Handler) (*Server, *healthprobe.HealthChecker) {
	hc := healthprobe.New(0)
	return New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: hc,
		Results:       results,
		LiveFeed:      liveFeed,
	}), hc
}

func serve(s *Server, target string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Result()
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	server, hc := newTestServer(nil, nil)

	resp := serve(server, "/health")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp = serve(server, "/ready")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}

	hc.SetReady(true)
	resp = serve(server, "/ready")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(nil, nil)

	resp := serve(server, "/metrics")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics response body: %v", err)
	}
	if len(body) == 0 {
		t.Error("Metrics endpoint returned empty body")
	}
}

func TestOpportunitiesEndpoint(t *testing.T) {
	results := &staticResults{result: testResult()}
	server, _ := newTestServer(results, nil)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantIDs    []string
	}{
		{
			name:       "all",
			target:     "/api/opportunities",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"internal:polymarket:a", "internal:kalshi:c", "hedging:polymarket:b:BTC:YES"},
		},
		{
			name:       "kind-filter",
			target:     "/api/opportunities?kind=hedging",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"hedging:polymarket:b:BTC:YES"},
		},
		{
			name:       "limit",
			target:     "/api/opportunities?kind=internal&limit=1",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"internal:polymarket:a"},
		},
		{
			name:       "unknown-kind",
			target:     "/api/opportunities?kind=statistical",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad-limit",
			target:     "/api/opportunities?limit=-2",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(server, tt.target)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				var errResp ErrorResponse
				if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
					t.Errorf("expected error body, got %+v (%v)", errResp, err)
				}
				return
			}

			var body OpportunitiesResponse
			err := json.NewDecoder(resp.Body).Decode(&body)
			if err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if body.ScanID != "scan-1" {
				t.Errorf("scan id = %q, want scan-1", body.ScanID)
			}
			if body.Markets[types.VenuePolymarket] != 2 {
				t.Errorf("polymarket markets = %d, want 2", body.Markets[types.VenuePolymarket])
			}
			if body.Count != len(tt.wantIDs) {
				t.Fatalf("count = %d, want %d", body.Count, len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if body.Opportunities[i].ID != id {
					t.Errorf("opportunity[%d] = %q, want %q", i, body.Opportunities[i].ID, id)
				}
			}
		})
	}
}

func TestOpportunitiesEndpoint_BeforeFirstScan(t *testing.T) {
	server, _ := newTestServer(&staticResults{}, nil)

	resp := serve(server, "/api/opportunities")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestOptionalRoutes(t *testing.T) {
	server, _ := newTestServer(nil, nil)

	for _, target := range []string{"/api/opportunities", "/ws", "/nope"} {
		resp := serve(server, target)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d, want %d", target, resp.StatusCode, http.StatusNotFound)
		}
	}

	feed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	server, _ = newTestServer(nil, feed)

	resp := serve(server, "/ws")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("/ws status = %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	server, _ := newTestServer(nil, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Start() did not return after shutdown")
	}
}
