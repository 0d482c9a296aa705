package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-custody/core"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"
)

const KindREST = "rest"

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTAdapter sends prepared activity payloads over HTTP. A 2xx response is
// returned as OK with the JSON body; any other status is returned as a
// rejected result carrying the raw body. Requests are never retried.
type RESTAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	// Limiter paces outbound requests. Nil means unlimited.
	Limiter *rate.Limiter
}

// WithRateLimit paces the adapter to rps requests per second with the given
// burst. A non-positive rps removes the limit.
func (a *RESTAdapter) WithRateLimit(rps float64, burst int) *RESTAdapter {
	if rps <= 0 {
		a.Limiter = nil
		return a
	}
	if burst <= 0 {
		burst = 1
	}
	a.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return a
}

func NewRESTAdapter(client HTTPDoer) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &RESTAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
	}
}

func (*RESTAdapter) Kind() string {
	return KindREST
}

func (a *RESTAdapter) BuildPayload(method string, rawURL string, headers map[string]string, body []byte) (core.Payload, error) {
	method = strings.TrimSpace(strings.ToUpper(method))
	if method == "" {
		method = http.MethodPost
	}
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return core.Payload{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "url": strings.TrimSpace(rawURL)},
		)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return core.Payload{}, transportError(
			"transport: request url must be absolute",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "url": parsedURL.String()},
		)
	}

	merged := map[string]string{}
	if a != nil {
		for key, value := range a.DefaultHeaders {
			if strings.TrimSpace(key) == "" {
				continue
			}
			merged[http.CanonicalHeaderKey(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}
	}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		merged[http.CanonicalHeaderKey(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	return core.Payload{
		Method:  method,
		URL:     parsedURL.String(),
		Headers: merged,
		Body:    append([]byte(nil), body...),
	}, nil
}

func (a *RESTAdapter) Request(ctx context.Context, payload core.Payload) (core.TransportResult, error) {
	if a == nil || a.Client == nil {
		return core.TransportResult{}, transportError(
			"transport: rest adapter requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindREST},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestCtx := ctx
	cancel := func() {}
	if a.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, a.Timeout)
	}
	defer cancel()

	if a.Limiter != nil {
		if err := a.Limiter.Wait(requestCtx); err != nil {
			return core.TransportResult{}, transportWrapError(
				err,
				goerrors.CategoryExternal,
				"transport: rate limit wait",
				http.StatusTooManyRequests,
				map[string]any{"adapter": KindREST, "url": payload.URL},
			)
		}
	}

	httpReq, err := http.NewRequestWithContext(requestCtx, payload.Method, payload.URL, bytes.NewReader(payload.Body))
	if err != nil {
		return core.TransportResult{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "method": payload.Method, "url": payload.URL},
		)
	}
	for key, value := range payload.Headers {
		httpReq.Header.Set(key, value)
	}

	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResult{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"adapter": KindREST, "method": payload.Method, "url": payload.URL},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := a.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultRESTResponseBodyLimit
	}
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.TransportResult{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"adapter": KindREST, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > maxBodyBytes {
		return core.TransportResult{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":          KindREST,
				"status_code":      httpRes.StatusCode,
				"response_limit_b": maxBodyBytes,
			},
		)
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return core.TransportResult{
			OK:         false,
			StatusCode: httpRes.StatusCode,
			ErrorBody:  string(body),
		}, nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if !json.Valid(trimmed) {
		return core.TransportResult{}, transportError(
			"transport: response body is not json",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"adapter": KindREST, "status_code": httpRes.StatusCode},
		)
	}
	return core.TransportResult{
		OK:         true,
		Data:       json.RawMessage(trimmed),
		StatusCode: httpRes.StatusCode,
	}, nil
}

var _ core.Transport = (*RESTAdapter)(nil)
