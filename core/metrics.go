package core

import "context"

const (
	metricDispatchTotal      = "custody.dispatch.total"
	metricDispatchDuration   = "custody.dispatch.duration_ms"
	metricUnsignedFallback   = "custody.dispatch.unsigned_fallback"
	metricDispatchLogFailure = "custody.dispatch_log.failure"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
