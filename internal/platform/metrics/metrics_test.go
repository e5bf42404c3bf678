package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestRegistry_ObserveHTTPRequest(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	reg.ObserveHTTPRequest(http.MethodPost, "/api/employees", http.StatusCreated, 0.02)
	reg.ObserveHTTPRequest(http.MethodPost, "/api/employees", http.StatusCreated, 0.03)
	reg.ObserveHTTPRequest(http.MethodGet, "/api/employees/:id", http.StatusNotFound, 0.01)

	families, err := reg.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}

	requests := findFamily(t, families, "employee_api_http_requests_total")
	if len(requests.GetMetric()) != 2 {
		t.Fatalf("expected 2 label sets, got %d", len(requests.GetMetric()))
	}

	var created float64
	for _, m := range requests.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status" && lp.GetValue() == "201" {
				created = m.GetCounter().GetValue()
			}
		}
	}
	if created != 2 {
		t.Fatalf("expected 2 created requests, got %v", created)
	}

	latency := findFamily(t, families, "employee_api_http_request_duration_seconds")
	if latency.GetType() != dto.MetricType_HISTOGRAM {
		t.Fatalf("expected histogram, got %v", latency.GetType())
	}
}

func TestRegistry_Handler(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	reg.ObserveHTTPRequest(http.MethodGet, "/api/employees", http.StatusOK, 0.001)

	rec := httptest.NewRecorder()
	reg.Handler(zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `employee_api_http_requests_total{method="GET",route="/api/employees",status="200"} 1`) {
		t.Fatalf("expected request counter in exposition, got:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("expected go collector metrics in exposition")
	}
}
