package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/admin/members/:memberID/freeze", "200", 0.05)
	RecordHTTPRequest("POST", "/admin/members/:memberID/freeze", "200", 0.07)
	RecordHTTPRequest("POST", "/admin/members/:memberID/freeze", "409", 0.01)

	ok := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/admin/members/:memberID/freeze", "200"))
	conflict := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/admin/members/:memberID/freeze", "409"))

	assert.Equal(t, float64(2), ok)
	assert.Equal(t, float64(1), conflict)
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordTransition(t *testing.T) {
	StatusTransitionsTotal.Reset()

	RecordTransition("active", "frozen", "freeze")
	RecordTransition("frozen", "active", "unfreeze")
	RecordTransition("active", "frozen", "freeze")

	assert.Equal(t, float64(2), testutil.ToFloat64(StatusTransitionsTotal.WithLabelValues("active", "frozen", "freeze")))
	assert.Equal(t, float64(1), testutil.ToFloat64(StatusTransitionsTotal.WithLabelValues("frozen", "active", "unfreeze")))
}

func TestRecordRejectedTransition(t *testing.T) {
	RejectedTransitionsTotal.Reset()

	RecordRejectedTransition("pending", "freeze")

	assert.Equal(t, float64(1), testutil.ToFloat64(RejectedTransitionsTotal.WithLabelValues("pending", "freeze")))
}

func TestRecordAttendance(t *testing.T) {
	AttendanceRecordedTotal.Reset()
	AttendanceRejectedTotal.Reset()

	RecordAttendance("member")
	RecordAttendance("admin")
	RecordAttendance("member")
	RecordAttendanceRejected("already_recorded")

	assert.Equal(t, float64(2), testutil.ToFloat64(AttendanceRecordedTotal.WithLabelValues("member")))
	assert.Equal(t, float64(1), testutil.ToFloat64(AttendanceRecordedTotal.WithLabelValues("admin")))
	assert.Equal(t, float64(1), testutil.ToFloat64(AttendanceRejectedTotal.WithLabelValues("already_recorded")))
}

func TestRecordRenewal(t *testing.T) {
	RenewalRequestsTotal.Reset()

	RecordRenewal("created")
	RecordRenewal("approved")
	RecordRenewal("duplicate")

	assert.Equal(t, float64(1), testutil.ToFloat64(RenewalRequestsTotal.WithLabelValues("approved")))
	assert.Equal(t, 3, testutil.CollectAndCount(RenewalRequestsTotal))
}

func TestNotificationMetrics(t *testing.T) {
	NotificationsTotal.Reset()

	RecordNotification("enqueue", "success")
	RecordNotification("enqueue", "failed")
	RecordNotification("deliver", "success")

	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsTotal.WithLabelValues("enqueue", "failed")))

	NotificationQueueLength.Set(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(NotificationQueueLength))
	NotificationQueueLength.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(NotificationQueueLength))
}
