// Package metrics exports object storage operation metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels.
const (
	OpPresign = "presign"
	OpUpload  = "upload"
	OpFetch   = "fetch"
	OpDelete  = "delete"
)

// Recorder tracks storage operation latency, outcomes and uploaded bytes.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	duration    *prometheus.HistogramVec
	operations  *prometheus.CounterVec
	uploadBytes prometheus.Counter
}

// NewRecorder registers the storage metrics with reg (the default registerer when nil).
func NewRecorder(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	if namespace == "" {
		namespace = "wardrobe"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Latency of object storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Object storage operations by outcome.",
		}, []string{"operation", "outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes written to object storage through the direct upload path.",
		}),
	}

	collectors := []prometheus.Collector{r.duration, r.operations, r.uploadBytes}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				collectors[i] = are.ExistingCollector
				continue
			}
			return nil, fmt.Errorf("register storage metric: %w", err)
		}
	}
	if existing, ok := collectors[0].(*prometheus.HistogramVec); ok {
		r.duration = existing
	}
	if existing, ok := collectors[1].(*prometheus.CounterVec); ok {
		r.operations = existing
	}
	if existing, ok := collectors[2].(prometheus.Counter); ok {
		r.uploadBytes = existing
	}

	return r, nil
}

// Observe records one operation. outcome is "ok" or a short error class.
func (r *Recorder) Observe(op, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(op).Observe(d.Seconds())
	r.operations.WithLabelValues(op, outcome).Inc()
}

// AddUploadedBytes counts bytes written by a direct upload.
func (r *Recorder) AddUploadedBytes(n int) {
	if r == nil {
		return
	}
	r.uploadBytes.Add(float64(n))
}
