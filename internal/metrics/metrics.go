package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shapeup_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shapeup_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shapeup_status_transitions_total",
			Help: "Applied membership status transitions",
		},
		[]string{"from", "to", "action"},
	)

	RejectedTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shapeup_rejected_transitions_total",
			Help: "Membership transitions refused by the state machine",
		},
		[]string{"from", "action"},
	)

	AttendanceRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shapeup_attendance_recorded_total",
			Help: "Attendance check-ins written to the ledger",
		},
		[]string{"actor"},
	)

	AttendanceRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shapeup_attendance_rejected_total",
			Help: "Attendance check-ins refused",
		},
		[]string{"reason"},
	)

	RenewalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shapeup_renewal_requests_total",
			Help: "Renewal requests by lifecycle event",
		},
		[]string{"event"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shapeup_notifications_total",
			Help: "Notifications by stage and outcome",
		},
		[]string{"stage", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shapeup_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTransition(from, to, action string) {
	StatusTransitionsTotal.WithLabelValues(from, to, action).Inc()
}

func RecordRejectedTransition(from, action string) {
	RejectedTransitionsTotal.WithLabelValues(from, action).Inc()
}

func RecordAttendance(actor string) {
	AttendanceRecordedTotal.WithLabelValues(actor).Inc()
}

func RecordAttendanceRejected(reason string) {
	AttendanceRejectedTotal.WithLabelValues(reason).Inc()
}

func RecordRenewal(event string) {
	RenewalRequestsTotal.WithLabelValues(event).Inc()
}

func RecordNotification(stage, status string) {
	NotificationsTotal.WithLabelValues(stage, status).Inc()
}
