package telemetry

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registration is checked through Describe() rather than DefaultGatherer.Gather():
// Gather only reports series observed at least once, so an unused *Vec would look
// unregistered even when it is fine.
func TestMetrics_AllRegistered(t *testing.T) {
	type describer interface {
		Describe(chan<- *prometheus.Desc)
	}

	metrics := map[string]describer{
		"http_requests_total":           HTTPRequestsTotal,
		"http_request_duration_seconds": HTTPRequestDuration,
		"permission_denials_total":      PermissionDenialsTotal,
		"team_auto_add_total":           TeamAutoAddTotal,
		"team_auto_unassign_total":      TeamAutoUnassignTotal,
		"document_downloads_total":      DocumentDownloadsTotal,
		"due_soon_notifications_total":  DueSoonNotificationsTotal,
		"db_open_connections":           DBOpenConnections,
	}

	for name, metric := range metrics {
		t.Run(name, func(t *testing.T) {
			ch := make(chan *prometheus.Desc, 10)
			metric.Describe(ch)
			close(ch)
			for desc := range ch {
				// Desc.String() renders as Desc{fqName: "<name>", ...}.
				if strings.Contains(desc.String(), `"`+name+`"`) {
					return
				}
			}
			t.Errorf("no descriptor registered under fqName %q", name)
		})
	}
}

func TestVecCounters_Increment(t *testing.T) {
	tests := []struct {
		name   string
		vec    *prometheus.CounterVec
		labels prometheus.Labels
		inc    func()
	}{
		{
			name:   "http requests",
			vec:    HTTPRequestsTotal,
			labels: prometheus.Labels{"method": "GET", "path": "/test", "status": "200"},
			inc:    func() { HTTPRequestsTotal.WithLabelValues("GET", "/test", "200").Inc() },
		},
		{
			name:   "permission denials",
			vec:    PermissionDenialsTotal,
			labels: prometheus.Labels{"resource": "task", "reason": "cross_tenant"},
			inc:    func() { PermissionDenialsTotal.WithLabelValues("task", "cross_tenant").Inc() },
		},
		{
			name:   "document downloads",
			vec:    DocumentDownloadsTotal,
			labels: prometheus.Labels{"organization_id": "org-test-001"},
			inc:    func() { DocumentDownloadsTotal.WithLabelValues("org-test-001").Inc() },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := vecValue(t, tt.vec, tt.labels)
			tt.inc()
			if after := vecValue(t, tt.vec, tt.labels); after-before < 1 {
				t.Errorf("counter did not advance (before=%.0f after=%.0f)", before, after)
			}
		})
	}
}

func TestPlainCounters_Increment(t *testing.T) {
	tests := []struct {
		name    string
		counter prometheus.Counter
		add     float64
	}{
		{"team auto-add", TeamAutoAddTotal, 1},
		{"team auto-unassign", TeamAutoUnassignTotal, 3},
		{"due-soon notifications", DueSoonNotificationsTotal, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := counterValue(t, tt.counter)
			tt.counter.Add(tt.add)
			if after := counterValue(t, tt.counter); after-before < tt.add {
				t.Errorf("counter advanced by %.0f, want at least %.0f", after-before, tt.add)
			}
		})
	}
}

func TestDBOpenConnections_Settable(t *testing.T) {
	DBOpenConnections.Set(5)
	DBOpenConnections.Set(0)
}

// vecValue reads the current value of one label combination of a CounterVec.
func vecValue(t *testing.T, cv *prometheus.CounterVec, labels prometheus.Labels) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 20)
	cv.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		if hasLabels(dm.GetLabel(), labels) {
			return dm.GetCounter().GetValue()
		}
	}
	return 0
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		return dm.GetCounter().GetValue()
	}
	return 0
}

func hasLabels(got []*dto.LabelPair, want prometheus.Labels) bool {
	for k, v := range want {
		found := false
		for _, lp := range got {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
