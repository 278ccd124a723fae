package observer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	workspaceLabels = []string{"workspace_id"}

	CallLogsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_call_logs_created_total",
			Help: "Total number of call logs recorded, labeled by call outcome.",
		},
		[]string{"workspace_id", "status", "source"},
	)
	FollowupsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_followups_created_total",
			Help: "Total number of follow-ups scheduled, labeled by origin.",
		},
		[]string{"workspace_id", "origin"},
	)
	FollowupsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_followups_completed_total",
			Help: "Total number of follow-ups closed through a call.",
		},
		workspaceLabels,
	)
	SideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_side_effect_failures_total",
			Help: "Total number of best-effort steps that failed without failing the primary write.",
		},
		[]string{"workspace_id", "step", "error_type"},
	)
	AssignmentSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_assignment_skips_total",
			Help: "Total number of items excluded from bulk assignment operations.",
		},
		[]string{"workspace_id", "operation", "reason"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "call_campaign_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "route", "status"},
	)

	// Global metrics instance
	Metrics *metricsStore
)

// Import pipeline metrics
var (
	importLabels = []string{"workspace_id", "result"}

	ImportMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_import_messages_total",
			Help: "Total number of import pipeline messages handled, labeled by result (ack, nak, term).",
		},
		importLabels,
	)
	ImportItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_import_items_total",
			Help: "Total number of imported items, labeled by result (created, skipped).",
		},
		importLabels,
	)
)

// Stats cache metrics
var (
	StatsCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_stats_cache_requests_total",
			Help: "Total number of my calls stats cache operations, labeled by operation and result.",
		},
		[]string{"operation", "result"},
	)
)

// Labels for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "workspace_id", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "call_campaign_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// Domain event worker pool metrics
var (
	eventTasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_event_tasks_submitted_total",
			Help: "Total number of domain events submitted to the publisher pool.",
		},
		[]string{"event_type"},
	)
	eventTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_campaign_event_tasks_processed_total",
			Help: "Total number of domain events handled by the publisher pool, labeled by final status.",
		},
		[]string{"event_type", "status"},
	)
	eventQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "call_campaign_event_queue_length",
		Help: "Approximate number of domain events waiting in the publisher pool queue.",
	})
)

// metricsStore marks metrics as initialised.
type metricsStore struct{}

// InitMetrics enables metric collection. Metrics are registered by promauto.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
	if !enabled {
		return
	}
	Metrics = &metricsStore{}
}

// sanitizeTenant ensures the workspace label is valid or returns a default value.
func sanitizeTenant(tenant string) string {
	if tenant == "" {
		return "unknown"
	}
	return tenant
}

// IncCallLogCreated counts a recorded call log. Source is "item" or "followup".
func IncCallLogCreated(workspaceID, status, source string) {
	if !metricsEnabled {
		return
	}
	CallLogsCreatedTotal.WithLabelValues(sanitizeTenant(workspaceID), status, source).Inc()
}

// IncFollowupCreated counts a scheduled follow-up. Origin is "call_log" or "manual".
func IncFollowupCreated(workspaceID, origin string) {
	if !metricsEnabled {
		return
	}
	FollowupsCreatedTotal.WithLabelValues(sanitizeTenant(workspaceID), origin).Inc()
}

// IncFollowupCompleted counts a follow-up closed through a call.
func IncFollowupCompleted(workspaceID string) {
	if !metricsEnabled {
		return
	}
	FollowupsCompletedTotal.WithLabelValues(sanitizeTenant(workspaceID)).Inc()
}

// IncSideEffectFailure counts a failed best-effort step.
func IncSideEffectFailure(workspaceID, step string, err error) {
	if !metricsEnabled {
		return
	}
	errType := "none"
	if err != nil {
		errType = SanitizeErrorType(err.Error())
	}
	SideEffectFailuresTotal.WithLabelValues(sanitizeTenant(workspaceID), step, errType).Inc()
}

// AddAssignmentSkips counts items excluded from a bulk assignment operation.
func AddAssignmentSkips(workspaceID, operation, reason string, n int) {
	if !metricsEnabled || n == 0 {
		return
	}
	AssignmentSkipsTotal.WithLabelValues(sanitizeTenant(workspaceID), operation, reason).Add(float64(n))
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDurationSeconds.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// IncImportMessage counts an import message by its acknowledgement result.
func IncImportMessage(workspaceID, result string) {
	if !metricsEnabled {
		return
	}
	ImportMessagesTotal.WithLabelValues(sanitizeTenant(workspaceID), result).Inc()
}

// AddImportItems counts imported items by result.
func AddImportItems(workspaceID, result string, n int) {
	if !metricsEnabled || n == 0 {
		return
	}
	ImportItemsTotal.WithLabelValues(sanitizeTenant(workspaceID), result).Add(float64(n))
}

// IncStatsCache counts a stats cache operation. Result is hit, miss, ok or error.
func IncStatsCache(operation, result string) {
	if !metricsEnabled {
		return
	}
	StatsCacheRequestsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity, workspaceID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeTenant(workspaceID), status).Observe(duration.Seconds())
}

// IncEventTasksSubmitted counts a domain event handed to the publisher pool.
func IncEventTasksSubmitted(eventType string) {
	if Metrics != nil {
		eventTasksSubmittedTotal.WithLabelValues(eventType).Inc()
	}
}

// IncEventTasksProcessed counts a domain event by final status.
func IncEventTasksProcessed(eventType, status string) {
	if Metrics != nil {
		eventTasksProcessedTotal.WithLabelValues(eventType, status).Inc()
	}
}

// SetEventQueueLength sets the current publisher queue length.
func SetEventQueueLength(length int) {
	if Metrics != nil {
		eventQueueLength.Set(float64(length))
	}
}

// SanitizeErrorType maps specific errors or provides a default category.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "duplicate"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"), strings.Contains(errStr, "missing field"):
		return "validation"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "forbidden"):
		return "forbidden"
	case strings.Contains(errStr, "nats"), strings.Contains(errStr, "jetstream"):
		return "nats"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}
