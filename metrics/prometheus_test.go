package metrics

import (
	"context"
	"testing"

	custody "github.com/goliatone/go-custody"
	"github.com/goliatone/go-custody/core"
	"github.com/goliatone/go-custody/security"
	"github.com/goliatone/go-custody/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder_CountersAndHistograms(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewPrometheusRecorder(registry)
	ctx := context.Background()

	recorder.IncCounter(ctx, "custody.dispatch.total", 1, map[string]string{"status": "success", "auth_mode": "api_key"})
	recorder.IncCounter(ctx, "custody.dispatch.total", 2, map[string]string{"status": "success", "auth_mode": "api_key"})
	// unknown labels are dropped, missing ones become empty.
	recorder.IncCounter(ctx, "custody.dispatch.total", 1, map[string]string{"status": "failure", "extra": "x"})
	recorder.ObserveHistogram(ctx, "dispatch.duration_ms", 12, map[string]string{"status": "success"})

	counter := recorder.counters["custody_dispatch_total"]
	if counter == nil {
		t.Fatalf("expected counter registered under sanitized name, have %v", recorder.counters)
	}
	if got := testutil.ToFloat64(counter.vec.WithLabelValues("api_key", "success")); got != 3 {
		t.Fatalf("expected 3 successes, got %v", got)
	}
	if got := testutil.ToFloat64(counter.vec.WithLabelValues("", "failure")); got != 1 {
		t.Fatalf("expected 1 failure with empty auth_mode, got %v", got)
	}
	if _, ok := recorder.histograms["custody_dispatch_duration_ms"]; !ok {
		t.Fatalf("expected namespace prefix on histogram, have %v", recorder.histograms)
	}
	if count, err := testutil.GatherAndCount(registry); err != nil || count != 3 {
		t.Fatalf("expected 3 series gathered, got %d (%v)", count, err)
	}
}

func TestPrometheusRecorder_ReusesCollectorsAcrossRecorders(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewPrometheusRecorder(registry)
	second := NewPrometheusRecorder(registry)

	first.IncCounter(context.Background(), "custody.jobs", 1, map[string]string{"status": "ok"})
	second.IncCounter(context.Background(), "custody.jobs", 1, map[string]string{"status": "ok"})

	if got := testutil.ToFloat64(first.counters["custody_jobs"].vec.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected shared collector to count 2, got %v", got)
	}
}

func TestPrometheusRecorder_IgnoresInvalidInput(t *testing.T) {
	recorder := NewPrometheusRecorder(prometheus.NewRegistry(), WithNamespace(""))
	recorder.IncCounter(context.Background(), "  ", 1, nil)
	recorder.IncCounter(context.Background(), "negative", -1, nil)
	if len(recorder.counters) != 0 {
		t.Fatalf("expected no collectors, got %v", recorder.counters)
	}

	var nilRecorder *PrometheusRecorder
	nilRecorder.IncCounter(context.Background(), "x", 1, nil)
	nilRecorder.ObserveHistogram(context.Background(), "x", 1, nil)
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"custody.dispatch.total": "custody_dispatch_total",
		"9lives":                 "_9lives",
		"auth-mode":              "auth_mode",
		"":                       "",
	}
	for input, want := range tests {
		if got := sanitize(input); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPrometheusRecorder_WiredIntoService(t *testing.T) {
	pair, err := security.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("generate signing key: %v", err)
	}
	registry := prometheus.NewRegistry()
	recorder := NewPrometheusRecorder(registry)
	svc, err := custody.Setup(custody.Config{
		BaseURL:        core.Literal("https://api.custody.test"),
		OrganizationID: core.Literal("org_metrics"),
		SigningKey:     core.Literal(pair.PrivateKey),
	},
		custody.WithEnvLookup(func(string) (string, bool) { return "", false }),
		custody.WithTransport(transport.NewStaticAdapter(core.TransportResult{OK: true, StatusCode: 200})),
		custody.WithMetricsRecorder(recorder),
	)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := svc.Dispatch(context.Background(), core.DispatchRequest{ActivityType: core.ActivitySignRawPayload}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, ok := recorder.counters["custody_dispatch_total"]; !ok {
		t.Fatalf("expected dispatch counter exported, have %v", recorder.counters)
	}
}
