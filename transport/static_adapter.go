package transport

import (
	"context"
	"sync"

	"github.com/goliatone/go-custody/core"
)

const KindStatic = "static"

// StaticAdapter answers every request with a fixed result and keeps the
// payloads it was given. It is meant for dry runs and tests.
type StaticAdapter struct {
	Result core.TransportResult
	Err    error

	builder  *RESTAdapter
	mu       sync.Mutex
	payloads []core.Payload
}

func NewStaticAdapter(result core.TransportResult) *StaticAdapter {
	return &StaticAdapter{Result: result, builder: &RESTAdapter{}}
}

func (*StaticAdapter) Kind() string {
	return KindStatic
}

func (a *StaticAdapter) BuildPayload(method string, url string, headers map[string]string, body []byte) (core.Payload, error) {
	builder := a.builder
	if builder == nil {
		builder = &RESTAdapter{}
	}
	return builder.BuildPayload(method, url, headers, body)
}

func (a *StaticAdapter) Request(_ context.Context, payload core.Payload) (core.TransportResult, error) {
	a.mu.Lock()
	a.payloads = append(a.payloads, payload)
	a.mu.Unlock()
	if a.Err != nil {
		return core.TransportResult{}, a.Err
	}
	return a.Result, nil
}

// Payloads returns a copy of the payloads received so far.
func (a *StaticAdapter) Payloads() []core.Payload {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Payload, len(a.payloads))
	copy(out, a.payloads)
	return out
}

var _ core.Transport = (*StaticAdapter)(nil)
