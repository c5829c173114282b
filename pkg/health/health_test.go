package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

func staticCheck(s Status) CheckFunc {
	return func(context.Context) Check { return Check{Status: s} }
}

func TestNewHealthChecker(t *testing.T) {
	hc := NewHealthChecker()

	if hc.checks == nil || hc.readyChecks == nil || hc.liveChecks == nil {
		t.Fatal("check maps not initialized")
	}
	if hc.timeout != DefaultCheckTimeout {
		t.Errorf("timeout = %v, want %v", hc.timeout, DefaultCheckTimeout)
	}
}

func TestRegisterCheck_Separation(t *testing.T) {
	hc := NewHealthChecker()

	var general, ready, live int
	hc.RegisterCheck("general", func(context.Context) Check { general++; return Check{Status: StatusHealthy} })
	hc.RegisterReadinessCheck("ready", func(context.Context) Check { ready++; return Check{Status: StatusHealthy} })
	hc.RegisterLivenessCheck("live", func(context.Context) Check { live++; return Check{Status: StatusHealthy} })

	ctx := context.Background()
	resp := hc.Check(ctx)
	hc.CheckReadiness(ctx)
	hc.CheckLiveness(ctx)

	if general != 1 || ready != 1 || live != 1 {
		t.Errorf("calls general=%d ready=%d live=%d, want 1 each", general, ready, live)
	}
	if _, ok := resp.Checks["general"]; !ok {
		t.Error("general check missing from response")
	}
	if _, ok := resp.Checks["ready"]; ok {
		t.Error("readiness check leaked into general response")
	}
	if resp.Checks["general"].Name != "general" {
		t.Errorf("name not defaulted from registration: %q", resp.Checks["general"].Name)
	}
}

func TestCheckStatusAggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		expected Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for i, s := range tt.statuses {
				hc.RegisterCheck(string(rune('a'+i)), staticCheck(s))
			}
			if got := hc.Check(context.Background()).Status; got != tt.expected {
				t.Errorf("status = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestCheckTimeout(t *testing.T) {
	hc := NewHealthChecker()
	hc.SetTimeout(20 * time.Millisecond)
	hc.RegisterCheck("slow", func(ctx context.Context) Check {
		<-ctx.Done()
		return Check{Status: StatusUnhealthy, Message: ctx.Err().Error()}
	})

	start := time.Now()
	resp := hc.Check(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("check not bounded by timeout: %v", elapsed)
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", resp.Status)
	}
	if resp.Checks["slow"].Duration <= 0 {
		t.Error("duration not recorded")
	}
}

func TestSessionCheck(t *testing.T) {
	tests := []struct {
		name     string
		stats    graph.Statistics
		err      error
		expected Status
	}{
		{"responsive", graph.Statistics{NodeCount: 3, LinkCount: 2}, nil, StatusHealthy},
		{"unresolved links", graph.Statistics{NodeCount: 1, LinkCount: 1, UnresolvedCount: 1}, nil, StatusDegraded},
		{"stopped", graph.Statistics{}, errors.New("session stopped"), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := SessionCheck(func(context.Context) (graph.Statistics, error) {
				return tt.stats, tt.err
			})(context.Background())

			if check.Status != tt.expected {
				t.Errorf("status = %s, want %s", check.Status, tt.expected)
			}
			if tt.err == nil && check.Details["nodes"] != tt.stats.NodeCount {
				t.Errorf("nodes detail = %v", check.Details["nodes"])
			}
		})
	}
}

func TestCacheCheck(t *testing.T) {
	ok := CacheCheck(func(context.Context) error { return nil })(context.Background())
	if ok.Status != StatusHealthy {
		t.Errorf("status = %s, want healthy", ok.Status)
	}

	down := CacheCheck(func(context.Context) error { return errors.New("dial tcp: refused") })(context.Background())
	if down.Status != StatusDegraded {
		t.Errorf("status = %s, want degraded", down.Status)
	}
	if down.Message != "dial tcp: refused" {
		t.Errorf("message = %q", down.Message)
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		name       string
		alloc, sys uint64
		expected   Status
	}{
		{"normal", 50, 100, StatusHealthy},
		{"high", 95, 100, StatusDegraded},
		{"zero sys", 10, 0, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := MemoryCheck(func() (uint64, uint64) { return tt.alloc, tt.sys })(context.Background())
			if check.Status != tt.expected {
				t.Errorf("status = %s, want %s", check.Status, tt.expected)
			}
		})
	}

	alloc, sys := RuntimeMemory()
	if alloc == 0 || sys == 0 {
		t.Error("runtime memory not sampled")
	}
}

func TestHTTPHandler(t *testing.T) {
	tests := []struct {
		name         string
		checkStatus  Status
		expectedCode int
	}{
		{"healthy returns 200", StatusHealthy, http.StatusOK},
		{"degraded returns 200", StatusDegraded, http.StatusOK},
		{"unhealthy returns 503", StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.RegisterCheck("test", staticCheck(tt.checkStatus))

			rec := httptest.NewRecorder()
			hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.expectedCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.expectedCode)
			}
			if rec.Header().Get("Content-Type") != "application/json" {
				t.Error("expected Content-Type application/json")
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.checkStatus {
				t.Errorf("status = %s, want %s", resp.Status, tt.checkStatus)
			}
		})
	}
}

func TestProbeHandlers_DegradedIsNotReady(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterReadinessCheck("cache", staticCheck(StatusDegraded))
	hc.RegisterLivenessCheck("session", staticCheck(StatusHealthy))

	rec := httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready code = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	hc.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live code = %d, want 200", rec.Code)
	}
}

func TestConcurrentCheckRegistration(t *testing.T) {
	hc := NewHealthChecker()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			hc.RegisterCheck(string(rune('A'+i)), SimpleCheck("x"))
		}(i)
		go func() {
			defer wg.Done()
			hc.Check(context.Background())
		}()
	}
	wg.Wait()

	if got := len(hc.Check(context.Background()).Checks); got != 50 {
		t.Errorf("checks = %d, want 50", got)
	}
}
