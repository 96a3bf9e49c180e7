// Package telemetry provides application-level observability for the TaskHub backend.
//
// All metrics register against the default Prometheus registry and are exposed on
// the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<PMS_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// (default port 9090, text exposition format, scraped rather than served through
// the Gin router). Metric groups:
//
//   - HTTP request counters and latency histograms
//   - Permission denial counters by resource kind and reason
//   - Team auto-add / auto-unassign counters
//   - Document download counters
//   - Due-date notification counters
//   - Database connection pool gauge (polled every 30 s)
//
// HTTP metrics label by c.FullPath() (the route template, /api/v1/projects/:id)
// rather than the raw URL. Labelling by raw URL would mint a new series per
// resource ID and blow up cardinality.
//
// Handlers record through the exported vars directly:
//
//	telemetry.PermissionDenialsTotal.WithLabelValues("task", "cross_tenant").Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequestsTotal counts processed requests with labels {method, path, status};
// HTTPRequestDuration observes latency with labels {method, path}. The bucket
// ladder runs 5 ms to 30 s, wide enough to catch document uploads on slow links.
//
// Useful queries:
//
//	rate(http_requests_total[5m])
//	sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m]))
//	histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// PermissionDenialsTotal counts denied permission checks with labels
// {resource, reason}. "resource" is the resource kind (project, task, document,
// report, role_change); "reason" is cross_tenant, not_assigned,
// insufficient_role, or not_found.
//
// A burst of cross_tenant denials is the signature of a tenant-probing client:
//
//	increase(permission_denials_total{reason="cross_tenant"}[10m]) > 10
var PermissionDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "permission_denials_total",
		Help: "Total number of denied permission checks, by resource kind and denial reason.",
	},
	[]string{"resource", "reason"},
)

// Team membership side-effect counters, recorded by the team coordinator.
//
// TeamAutoAddTotal counts memberships created because a task was assigned to a
// user not yet on the project team. TeamAutoUnassignTotal counts member-kind
// memberships removed when a project transitioned to completed.
var (
	TeamAutoAddTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "team_auto_add_total",
			Help: "Total number of project memberships created automatically on task assignment.",
		},
	)

	TeamAutoUnassignTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "team_auto_unassign_total",
			Help: "Total number of member-kind project memberships removed automatically on project completion.",
		},
	)
)

// DocumentDownloadsTotal counts document downloads per tenant. The label is the
// organization ID, whose cardinality is bounded by the tenant count.
var DocumentDownloadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "document_downloads_total",
		Help: "Total number of document downloads, by organization.",
	},
	[]string{"organization_id"},
)

// DueSoonNotificationsTotal increments once per due-date reminder created by the
// due_date_notifier job. If tasks are approaching their due dates while this
// counter sits flat, the job is failing silently; alert on that combination.
var DueSoonNotificationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "due_soon_notifications_total",
		Help: "Total number of task due-date reminder notifications created.",
	},
)

// DBOpenConnections tracks open connections in the sql.DB pool, sampled every
// 30 seconds by StartDBStatsCollector instead of per request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples the connection pool every 30 seconds and feeds
// the DBOpenConnections gauge. The goroutine stops itself once the database
// becomes unreachable, which is what happens after main defers db.Close() on
// shutdown. Call once, right after db.Connect succeeds.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
