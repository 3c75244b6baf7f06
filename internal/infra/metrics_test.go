package infra

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.IncOrderPlaced("BETFAIR")
	m.IncOrderPlaced("BETFAIR")
	m.IncControlViolation("STRATEGY_EXPOSURE")
	m.IncExecutionError("BETDAQ", "venue")
	m.IncCorrelationFault("BETDAQ")
	m.IncStaleSnapshot()
	m.IncEventDropped()
	m.IncSimulatedFill()

	if got := testutil.ToFloat64(m.ordersPlaced.WithLabelValues("BETFAIR")); got != 2 {
		t.Errorf("Expected 2 placed orders, got %v", got)
	}
	if got := testutil.ToFloat64(m.controlViolations.WithLabelValues("STRATEGY_EXPOSURE")); got != 1 {
		t.Errorf("Expected 1 violation, got %v", got)
	}
	if got := testutil.ToFloat64(m.executionErrors.WithLabelValues("BETDAQ", "venue")); got != 1 {
		t.Errorf("Expected 1 execution error, got %v", got)
	}
	if got := testutil.ToFloat64(m.correlationFaults.WithLabelValues("BETDAQ")); got != 1 {
		t.Errorf("Expected 1 correlation fault, got %v", got)
	}
	for name, c := range map[string]float64{
		"stale":   testutil.ToFloat64(m.staleSnapshots),
		"dropped": testutil.ToFloat64(m.eventsDropped),
		"fills":   testutil.ToFloat64(m.simulatedFills),
	} {
		if c != 1 {
			t.Errorf("Expected %s=1, got %v", name, c)
		}
	}
}

func TestMetrics_LiveOrdersGauge(t *testing.T) {
	m := NewMetrics()
	m.SetLiveOrders(5)
	m.SetLiveOrders(3)

	if got := testutil.ToFloat64(m.liveOrders); got != 3 {
		t.Errorf("Expected 3 live orders, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.IncOrderPlaced("BETFAIR")
	m.SetLiveOrders(1)
	m.ObservePackageLatency("BETFAIR", "PLACE", 0.1)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.IncOrderPlaced("BETDAQ")
	m.ObservePackageLatency("BETDAQ", "PLACE", 0.25)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"betexec_orders_placed_total", "betexec_package_latency_seconds"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %s in output", want)
		}
	}
}
