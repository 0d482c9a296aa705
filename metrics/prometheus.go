// Package metrics exports custody service metrics to Prometheus.
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-custody/core"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "custody"

// DurationBuckets fit dispatch latencies reported in milliseconds.
var DurationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

type Option func(*PrometheusRecorder)

func WithNamespace(namespace string) Option {
	return func(r *PrometheusRecorder) {
		r.namespace = sanitize(namespace)
	}
}

func WithBuckets(buckets []float64) Option {
	return func(r *PrometheusRecorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// PrometheusRecorder implements core.MetricsRecorder. Collectors are created
// on first use and their label names are fixed by the tags of that first
// call: later calls fill missing labels with "" and drop unknown ones.
type PrometheusRecorder struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*labeledCounter
	histograms map[string]*labeledHistogram
}

type labeledCounter struct {
	vec    *prometheus.CounterVec
	labels []string
}

type labeledHistogram struct {
	vec    *prometheus.HistogramVec
	labels []string
}

func NewPrometheusRecorder(registerer prometheus.Registerer, opts ...Option) *PrometheusRecorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		registerer: registerer,
		namespace:  defaultNamespace,
		buckets:    DurationBuckets,
		counters:   map[string]*labeledCounter{},
		histograms: map[string]*labeledHistogram{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *PrometheusRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter := r.counter(name, tags)
	if counter == nil {
		return
	}
	counter.vec.WithLabelValues(labelValues(counter.labels, tags)...).Add(float64(value))
}

func (r *PrometheusRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram := r.histogram(name, tags)
	if histogram == nil {
		return
	}
	histogram.vec.WithLabelValues(labelValues(histogram.labels, tags)...).Observe(value)
}

func (r *PrometheusRecorder) counter(name string, tags map[string]string) *labeledCounter {
	key := r.metricName(name)
	if key == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[key]; ok {
		return existing
	}
	labels := labelNames(tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: key,
		Help: "Custody counter " + strings.TrimSpace(name) + ".",
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil
		}
		vec = existing
	}
	entry := &labeledCounter{vec: vec, labels: labels}
	r.counters[key] = entry
	return entry
}

func (r *PrometheusRecorder) histogram(name string, tags map[string]string) *labeledHistogram {
	key := r.metricName(name)
	if key == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[key]; ok {
		return existing
	}
	labels := labelNames(tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    key,
		Help:    "Custody histogram " + strings.TrimSpace(name) + ".",
		Buckets: r.buckets,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil
		}
		vec = existing
	}
	entry := &labeledHistogram{vec: vec, labels: labels}
	r.histograms[key] = entry
	return entry
}

// metricName maps "custody.dispatch.total" to "custody_dispatch_total" and
// prefixes the namespace when the name does not already carry it.
func (r *PrometheusRecorder) metricName(name string) string {
	sanitized := sanitize(name)
	if sanitized == "" {
		return ""
	}
	if r.namespace == "" || strings.HasPrefix(sanitized, r.namespace+"_") {
		return sanitized
	}
	return r.namespace + "_" + sanitized
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for key := range tags {
		if label := sanitize(key); label != "" {
			names = append(names, label)
		}
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags map[string]string) []string {
	byLabel := make(map[string]string, len(tags))
	for key, value := range tags {
		byLabel[sanitize(key)] = value
	}
	values := make([]string, len(labels))
	for i, label := range labels {
		values[i] = byLabel[label]
	}
	return values
}

func sanitize(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	b.Grow(len(value))
	for i, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)
