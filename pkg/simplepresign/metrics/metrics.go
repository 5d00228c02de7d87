// Package metrics exposes issuance outcomes as Prometheus counters.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "presign"

// Failure reasons recorded on the failures counter
const (
	ReasonCredentialUnavailable = "credential_unavailable"
	ReasonSigning               = "signing"
	ReasonOther                 = "other"
)

// Sink is a simplepresign.EventSink backed by its own Prometheus registry.
type Sink struct {
	registry *prometheus.Registry
	issued   *prometheus.CounterVec
	failed   *prometheus.CounterVec
}

// NewSink creates a sink with a private registry. Process and Go runtime
// collectors are registered alongside the presign counters.
func NewSink(namespace string) (*Sink, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	s := &Sink{
		registry: prometheus.NewRegistry(),
		issued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "urls_issued_total",
				Help:      "Presigned upload URLs issued, by backend and credential source.",
			},
			[]string{"backend", "credential_source", "temporary"},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Presign requests that failed after validation, by backend and reason.",
			},
			[]string{"backend", "reason"},
		),
	}

	for _, c := range []prometheus.Collector{
		s.issued,
		s.failed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := s.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Sink) PresignIssued(ctx context.Context, event simplepresign.IssueEvent) {
	s.issued.WithLabelValues(event.Backend, string(event.CredentialSource), strconv.FormatBool(event.Temporary)).Inc()
}

func (s *Sink) PresignFailed(ctx context.Context, backend string, err error) {
	s.failed.WithLabelValues(backend, Reason(err)).Inc()
}

// Handler serves the registry in the Prometheus text format
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		DisableCompression: true,
	})
}

// Registry returns the underlying registry
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Reason classifies err into one of the failure reason labels
func Reason(err error) string {
	switch {
	case errors.Is(err, simplepresign.ErrCredentialUnavailable):
		return ReasonCredentialUnavailable
	case errors.Is(err, simplepresign.ErrSigning):
		return ReasonSigning
	default:
		return ReasonOther
	}
}
