package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lms-api/internal/models"
)

// Completion triggers recorded on lms_enrollment_completions_total.
const (
	CompletionTriggerLessons = "lessons"
	CompletionTriggerManual  = "manual"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
// A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry              *prometheus.Registry
	handler               http.Handler
	requestDuration       *prometheus.HistogramVec
	requestTotal          *prometheus.CounterVec
	enrollmentsCreated    prometheus.Counter
	lessonsCompleted      prometheus.Counter
	enrollmentCompletions *prometheus.CounterVec
	loginAttempts         *prometheus.CounterVec

	requestCount           uint64
	requestDurationTotal   uint64
	enrollmentCreatedCount uint64
	lessonCompletedCount   uint64
	completionCount        uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	enrollmentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lms_enrollments_created_total",
		Help: "Enrollments created",
	})

	lessonsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lms_lessons_completed_total",
		Help: "Lesson completions recorded by students",
	})

	enrollmentCompletions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_enrollment_completions_total",
		Help: "Enrollments transitioned to COMPLETED",
	}, []string{"trigger"})

	loginAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollmentsCreated, lessonsCompleted, enrollmentCompletions, loginAttempts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:              registry,
		handler:               handler,
		requestDuration:       requestDuration,
		requestTotal:          requestTotal,
		enrollmentsCreated:    enrollmentsCreated,
		lessonsCompleted:      lessonsCompleted,
		enrollmentCompletions: enrollmentCompletions,
		loginAttempts:         loginAttempts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordEnrollmentCreated counts a new enrollment.
func (m *MetricsService) RecordEnrollmentCreated() {
	if m == nil {
		return
	}
	m.enrollmentsCreated.Inc()
	atomic.AddUint64(&m.enrollmentCreatedCount, 1)
}

// RecordLessonCompleted counts a newly recorded lesson completion.
func (m *MetricsService) RecordLessonCompleted() {
	if m == nil {
		return
	}
	m.lessonsCompleted.Inc()
	atomic.AddUint64(&m.lessonCompletedCount, 1)
}

// RecordEnrollmentCompleted counts a transition to COMPLETED.
func (m *MetricsService) RecordEnrollmentCompleted(trigger string) {
	if m == nil {
		return
	}
	m.enrollmentCompletions.WithLabelValues(trigger).Inc()
	atomic.AddUint64(&m.completionCount, 1)
}

// RecordLogin counts a login attempt outcome.
func (m *MetricsService) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		EnrollmentsCreated:       atomic.LoadUint64(&m.enrollmentCreatedCount),
		LessonsCompleted:         atomic.LoadUint64(&m.lessonCompletedCount),
		EnrollmentsCompleted:     atomic.LoadUint64(&m.completionCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
