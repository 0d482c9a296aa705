package transport

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-custody/core"
)

// Adapter is a core.Transport that can be looked up by kind.
type Adapter interface {
	core.Transport
	Kind() string
}

type AdapterFactory func(config map[string]any) (Adapter, error)

type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]Adapter
	factories map[string]AdapterFactory
}

func NewRegistry() *Registry {
	return &Registry{
		adapters:  map[string]Adapter{},
		factories: map[string]AdapterFactory{},
	}
}

// NewDefaultRegistry registers factories for the REST and static adapters.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.RegisterFactory(KindREST, NewRESTFactory(nil))
	_ = registry.RegisterFactory(KindStatic, staticFactory)
	return registry
}

func (r *Registry) Register(adapter Adapter) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	if adapter == nil {
		return fmt.Errorf("transport: adapter is nil")
	}
	kind := normalizeKind(adapter.Kind())
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("transport: adapter kind %q already registered", kind)
	}
	r.adapters[kind] = adapter
	return nil
}

func (r *Registry) RegisterFactory(kind string, factory AdapterFactory) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}
	if factory == nil {
		return fmt.Errorf("transport: adapter factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("transport: adapter factory kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// Build returns the registered adapter for kind, or builds one from its
// factory. An empty kind selects REST.
func (r *Registry) Build(kind string, config map[string]any) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		kind = KindREST
	}

	r.mu.RLock()
	adapter, ok := r.adapters[kind]
	factory := r.factories[kind]
	r.mu.RUnlock()
	if ok {
		return adapter, nil
	}
	if factory == nil {
		return nil, fmt.Errorf("transport: adapter kind %q not registered", kind)
	}
	built, err := factory(cloneMap(config))
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, fmt.Errorf("transport: factory for %q returned nil adapter", kind)
	}
	return built, nil
}

// Resolver adapts Build to the core transport resolver signature.
func (r *Registry) Resolver() func(kind string) (core.Transport, error) {
	return func(kind string) (core.Transport, error) {
		adapter, err := r.Build(kind, nil)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	}
}

func (r *Registry) Get(kind string) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[kind]
	return adapter, ok
}

func (r *Registry) List() []Adapter {
	if r == nil {
		return []Adapter{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	result := make([]Adapter, 0, len(kinds))
	for _, kind := range kinds {
		result = append(result, r.adapters[kind])
	}
	return result
}

// NewRESTFactory builds REST adapters from "timeout" (a duration string) and
// "max_response_bytes".
func NewRESTFactory(client HTTPDoer) AdapterFactory {
	return func(config map[string]any) (Adapter, error) {
		adapter := NewRESTAdapter(client)
		if raw, ok := config["timeout"]; ok {
			timeout, err := time.ParseDuration(strings.TrimSpace(fmt.Sprint(raw)))
			if err != nil {
				return nil, fmt.Errorf("transport: invalid timeout %v: %w", raw, err)
			}
			adapter.Timeout = timeout
		}
		switch limit := config["max_response_bytes"].(type) {
		case int:
			adapter.MaxResponseBodyBytes = int64(limit)
		case int64:
			adapter.MaxResponseBodyBytes = limit
		case float64:
			adapter.MaxResponseBodyBytes = int64(limit)
		}
		if raw, ok := config["rate_limit"]; ok {
			rps, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(raw)), 64)
			if err != nil {
				return nil, fmt.Errorf("transport: invalid rate_limit %v: %w", raw, err)
			}
			burst := 1
			if rawBurst, ok := config["burst"]; ok {
				burst, err = strconv.Atoi(strings.TrimSpace(fmt.Sprint(rawBurst)))
				if err != nil {
					return nil, fmt.Errorf("transport: invalid burst %v: %w", rawBurst, err)
				}
			}
			adapter.WithRateLimit(rps, burst)
		}
		return adapter, nil
	}
}

// staticFactory reads "status_code" and "data"; a 2xx status yields an OK
// result.
func staticFactory(config map[string]any) (Adapter, error) {
	status := 200
	switch value := config["status_code"].(type) {
	case int:
		status = value
	case float64:
		status = int(value)
	}
	result := core.TransportResult{StatusCode: status, OK: status >= 200 && status < 300}
	data := strings.TrimSpace(fmt.Sprint(config["data"]))
	if _, ok := config["data"]; !ok || data == "" {
		data = "{}"
	}
	if result.OK {
		result.Data = []byte(data)
	} else {
		result.ErrorBody = data
	}
	return NewStaticAdapter(result), nil
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

func cloneMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
