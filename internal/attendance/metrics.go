package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollbook_attendance_records_created_total",
		Help: "Attendance records persisted by the ingestion engine.",
	})
	duplicateItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollbook_attendance_duplicates_skipped_total",
		Help: "Batch items skipped because the day was already recorded.",
	})
	invalidItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollbook_attendance_invalid_items_total",
		Help: "Batch items skipped for failing validation.",
	})
	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollbook_absence_notifications_total",
		Help: "Absence notification attempts by outcome.",
	}, []string{"outcome"})
)
