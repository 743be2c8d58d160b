// internal/common/metrics/metrics.go
package metrics

import (
	"bookings-bot/internal/common/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_turns_total",
			Help: "Total number of inbound turns processed",
		},
		[]string{"activity_type", "outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_turn_duration_seconds",
			Help:    "Duration of turn processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"activity_type"},
	)

	StepFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_step_faults_total",
			Help: "Total number of faults that ended a dialog",
		},
		[]string{"step_id", "error_code"},
	)

	PromptRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_prompt_retries_total",
			Help: "Total number of prompts re-issued after a rejected reply",
		},
		[]string{"prompt_id"},
	)

	AppointmentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_appointments_created_total",
			Help: "Total number of appointments created",
		},
		[]string{"business_id"},
	)

	ActiveTurns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_active_turns",
			Help: "Number of turns currently being processed",
		},
	)
)

// Recorder exposes the collectors above through the narrow interfaces the dialog
// engine and the error handler depend on.
type Recorder struct{}

func (Recorder) RecordFault(source string, code errors.ErrorCode) {
	StepFaults.WithLabelValues(source, string(code)).Inc()
}

func (Recorder) RecordPromptRetry(promptID string) {
	PromptRetries.WithLabelValues(promptID).Inc()
}

func (Recorder) RecordAppointmentCreated(businessID string) {
	AppointmentsCreated.WithLabelValues(businessID).Inc()
}
