package core

import (
	"context"
	"errors"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Stamper produces the wire value of an API-key stamp over body.
type Stamper interface {
	StampRequest(body []byte, privateKeyPEM string) (string, error)
}

// Transport is the outbound HTTP collaborator. Request returns an error only
// when no remote outcome was obtained; remote failures come back as a
// TransportResult with OK false.
type Transport interface {
	BuildPayload(method string, url string, headers map[string]string, body []byte) (Payload, error)
	Request(ctx context.Context, payload Payload) (TransportResult, error)
}

type DispatchStatus string

const (
	DispatchStatusOK       DispatchStatus = "ok"
	DispatchStatusRejected DispatchStatus = "rejected"
	DispatchStatusFailed   DispatchStatus = "failed"
)

// DispatchEntry is the audit record of one dispatch attempt. It never holds
// key material or signatures.
type DispatchEntry struct {
	ID             string
	ActivityType   string
	OrganizationID string
	AuthMode       string
	Endpoint       string
	Signed         bool
	Status         DispatchStatus
	StatusCode     int
	ActivityID     string
	Error          string
	CreatedAt      time.Time
}

var ErrDispatchEntryNotFound = errors.New("core: dispatch entry not found")

type DispatchLog interface {
	Record(ctx context.Context, entry DispatchEntry) error
}

type DispatchLogFilter struct {
	ActivityType   string
	OrganizationID string
	Status         DispatchStatus
	Page           int
	PerPage        int
}

type DispatchLogPage struct {
	Items   []DispatchEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type DispatchLogReader interface {
	List(ctx context.Context, filter DispatchLogFilter) (DispatchLogPage, error)
}
