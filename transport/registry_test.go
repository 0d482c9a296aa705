package transport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-custody/core"
)

type namedAdapter struct {
	*StaticAdapter
	kind string
}

func (a namedAdapter) Kind() string { return a.kind }

func TestRegistry_RegisterGetAndListDeterministic(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(NewStaticAdapter(core.TransportResult{OK: true})); err != nil {
		t.Fatalf("register static adapter: %v", err)
	}
	if err := registry.Register(NewRESTAdapter(nil)); err != nil {
		t.Fatalf("register rest adapter: %v", err)
	}

	if _, ok := registry.Get(" REST "); !ok {
		t.Fatalf("expected rest adapter to be registered")
	}

	listed := registry.List()
	if len(listed) != 2 {
		t.Fatalf("expected 2 adapters, got %d", len(listed))
	}
	if listed[0].Kind() != KindREST || listed[1].Kind() != KindStatic {
		t.Fatalf("expected deterministic sorted order, got %q and %q", listed[0].Kind(), listed[1].Kind())
	}

	if err := registry.Register(NewRESTAdapter(nil)); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register(namedAdapter{StaticAdapter: NewStaticAdapter(core.TransportResult{}), kind: " "}); err == nil {
		t.Fatalf("expected blank kind error")
	}
}

func TestRegistry_RegisterFactoryBuildsCustomAdapter(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterFactory("sandbox", func(config map[string]any) (Adapter, error) {
		return namedAdapter{StaticAdapter: NewStaticAdapter(core.TransportResult{OK: true}), kind: "sandbox"}, nil
	}); err != nil {
		t.Fatalf("register adapter factory: %v", err)
	}

	adapter, err := registry.Build("sandbox", nil)
	if err != nil {
		t.Fatalf("build adapter from factory: %v", err)
	}
	if adapter.Kind() != "sandbox" {
		t.Fatalf("expected sandbox adapter from factory, got %q", adapter.Kind())
	}
	if _, err := registry.Build("missing", nil); err == nil {
		t.Fatalf("expected unregistered kind error")
	}
}

func TestDefaultRegistry_BuildsRESTAndStatic(t *testing.T) {
	registry := NewDefaultRegistry()

	rest, err := registry.Build("", nil)
	if err != nil {
		t.Fatalf("build default: %v", err)
	}
	if rest.Kind() != KindREST {
		t.Fatalf("expected rest by default, got %q", rest.Kind())
	}

	static, err := registry.Build(KindStatic, map[string]any{"status_code": 403, "data": `{"message":"denied"}`})
	if err != nil {
		t.Fatalf("build static: %v", err)
	}
	payload, err := static.BuildPayload(http.MethodPost, "https://api.custody.test/activity", nil, []byte(`{}`))
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	result, err := static.Request(context.Background(), payload)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if result.OK || result.StatusCode != 403 || result.ErrorBody != `{"message":"denied"}` {
		t.Fatalf("unexpected static result %#v", result)
	}

	resolved, err := registry.Resolver()(KindStatic)
	if err != nil {
		t.Fatalf("resolve static: %v", err)
	}
	if _, ok := resolved.(*StaticAdapter); !ok {
		t.Fatalf("expected static adapter, got %T", resolved)
	}
}

func TestRESTFactory_AppliesOptions(t *testing.T) {
	adapter, err := NewRESTFactory(nil)(map[string]any{"timeout": "2s", "max_response_bytes": 512})
	if err != nil {
		t.Fatalf("build rest adapter: %v", err)
	}
	rest, ok := adapter.(*RESTAdapter)
	if !ok {
		t.Fatalf("expected rest adapter, got %T", adapter)
	}
	if rest.Timeout != 2*time.Second || rest.MaxResponseBodyBytes != 512 {
		t.Fatalf("unexpected rest options %#v", rest)
	}
	if _, err := NewRESTFactory(nil)(map[string]any{"timeout": "soon"}); err == nil {
		t.Fatalf("expected invalid timeout error")
	}
}

func TestRESTFactory_RateLimit(t *testing.T) {
	adapter, err := NewRESTFactory(nil)(map[string]any{"rate_limit": "5", "burst": 3})
	if err != nil {
		t.Fatalf("build rest adapter: %v", err)
	}
	limiter := adapter.(*RESTAdapter).Limiter
	if limiter == nil || limiter.Limit() != 5 || limiter.Burst() != 3 {
		t.Fatalf("unexpected limiter %#v", limiter)
	}
	if _, err := NewRESTFactory(nil)(map[string]any{"rate_limit": "fast"}); err == nil {
		t.Fatalf("expected invalid rate_limit error")
	}
	if _, err := NewRESTFactory(nil)(map[string]any{"rate_limit": 1, "burst": "lots"}); err == nil {
		t.Fatalf("expected invalid burst error")
	}
}
