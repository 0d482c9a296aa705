package custody

import (
	"github.com/goliatone/go-custody/auth"
	"github.com/goliatone/go-custody/core"
	"github.com/goliatone/go-custody/transport"
)

type Config = core.Config

type ValueRef = core.ValueRef

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Stamper = core.Stamper
type Transport = core.Transport
type TransportResolver = core.TransportResolver
type DispatchLog = core.DispatchLog
type DispatchLogReader = core.DispatchLogReader

type AuthMode = core.AuthMode
type ActivityType = core.ActivityType
type DispatchRequest = core.DispatchRequest
type TransportResult = core.TransportResult

const (
	AuthModeAPIKey   = core.AuthModeAPIKey
	AuthModeWebAuthn = core.AuthModeWebAuthn
	AuthModePasskey  = core.AuthModePasskey

	FailClosed = core.FailClosed
	FailOpen   = core.FailOpen
)

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithEnvLookup         = core.WithEnvLookup
	WithStamper           = core.WithStamper
	WithTransport         = core.WithTransport
	WithTransportResolver = core.WithTransportResolver
	WithDispatchLog       = core.WithDispatchLog
	WithClock             = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup builds a Service with the API-key stamper and a transport picked from
// the default adapter registry by the configured kind. Options passed by the
// caller take precedence.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	defaults := []Option{
		core.WithStamper(auth.NewAPIKeyStamper()),
		core.WithTransportResolver(transport.NewDefaultRegistry().Resolver()),
	}
	return core.Setup(cfg, append(defaults, opts...)...)
}
