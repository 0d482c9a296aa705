package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service resolves endpoints, authenticates and dispatches activities. It is
// immutable after construction and safe for concurrent use.
type Service struct {
	config          Config
	settings        Settings
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	stamper         Stamper
	transport       Transport
	dispatchLog     DispatchLog
	clock           func() time.Time
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	Stamper         Stamper
	Transport       Transport
	DispatchLog     DispatchLog
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("custody", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("custody"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = time.Now
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	settings, err := finalConfig.Resolve(builder.envLookup)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	transport := builder.transport
	if transport == nil && builder.resolver != nil {
		transport, err = builder.resolver(finalConfig.Transport)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}

	return &Service{
		config:          finalConfig,
		settings:        settings,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		stamper:         builder.stamper,
		transport:       transport,
		dispatchLog:     builder.dispatchLog,
		clock:           builder.clock,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	return mapBuildError(s.errorMapper, err)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// OrganizationID returns the configured default organization.
func (s *Service) OrganizationID() string {
	if s == nil {
		return ""
	}
	return s.settings.OrganizationID
}

func (s *Service) FailurePolicy() FailurePolicy {
	if s == nil {
		return FailClosed
	}
	return s.settings.FailurePolicy
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorMapper:     s.errorMapper,
		Stamper:         s.stamper,
		Transport:       s.transport,
		DispatchLog:     s.dispatchLog,
	}
}

// Prepare builds the outbound request for req without sending it.
func (s *Service) Prepare(ctx context.Context, req DispatchRequest) (OutboundRequest, error) {
	if s == nil {
		return OutboundRequest{}, fmt.Errorf("core: service is nil")
	}
	out, _, err := s.prepare(ctx, req)
	return out, s.mapError(err)
}

func (s *Service) prepare(ctx context.Context, req DispatchRequest) (OutboundRequest, map[string]any, error) {
	activityType := ActivityType(strings.TrimSpace(string(req.ActivityType)))
	organizationID := strings.TrimSpace(req.OrganizationID)
	if organizationID == "" {
		organizationID = s.settings.OrganizationID
	}
	mode := ParseAuthMode(string(req.AuthMode))
	endpoint := activityType.Endpoint()
	fields := map[string]any{
		"activity_type":   string(activityType),
		"organization_id": organizationID,
		"auth_mode":       mode.String(),
		"endpoint":        endpoint,
	}

	if activityType == "" {
		return OutboundRequest{}, fields, NewError(ServiceErrorBadInput, goerrors.CategoryBadInput, "core: activity type is required")
	}
	if organizationID == "" {
		return OutboundRequest{}, fields, NewError(ServiceErrorBadInput, goerrors.CategoryBadInput, "core: organization id is required")
	}
	if !activityType.Known() {
		s.logWarn(ctx, "activity type has no dedicated endpoint", fields)
	}

	activity := NewActivityRequest(activityType, organizationID, req.Parameters, s.clock())
	body, err := activity.Marshal()
	if err != nil {
		return OutboundRequest{}, fields, WrapError(err, ServiceErrorBadInput, goerrors.CategoryBadInput, "core: encode activity request")
	}

	headers := s.baseHeaders()
	signed, err := s.applyAuth(ctx, req, mode, body, headers, fields)
	if err != nil {
		return OutboundRequest{}, fields, err
	}
	fields["signed"] = signed

	return OutboundRequest{
		Method:   http.MethodPost,
		URL:      s.settings.BaseURL + endpoint,
		Endpoint: endpoint,
		Headers:  headers,
		Body:     body,
		Activity: activity,
		Signed:   signed,
	}, fields, nil
}

// Dispatch prepares req and hands it to the transport. The remote outcome is
// returned unchanged; an error means the request was rejected locally or no
// remote outcome was obtained.
func (s *Service) Dispatch(ctx context.Context, req DispatchRequest) (TransportResult, error) {
	if s == nil {
		return TransportResult{}, fmt.Errorf("core: service is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()

	out, fields, err := s.prepare(ctx, req)
	if err != nil {
		s.recordDispatch(ctx, fields, DispatchStatusRejected, TransportResult{}, err)
		s.observeDispatch(ctx, startedAt, err, fields)
		return TransportResult{}, s.mapError(err)
	}
	if s.transport == nil {
		err := NewError(ServiceErrorInternal, goerrors.CategoryInternal, "core: transport is not configured")
		s.recordDispatch(ctx, fields, DispatchStatusRejected, TransportResult{}, err)
		s.observeDispatch(ctx, startedAt, err, fields)
		return TransportResult{}, err
	}

	payload, err := s.transport.BuildPayload(out.Method, out.URL, out.Headers, out.Body)
	if err == nil {
		var result TransportResult
		result, err = s.transport.Request(ctx, payload)
		if err == nil {
			return s.completeDispatch(ctx, startedAt, fields, result), nil
		}
	}

	if ErrorKind(err) == "" {
		err = WrapError(err, ErrorTransportFailed, goerrors.CategoryExternal, "core: transport request failed")
	}
	s.recordDispatch(ctx, fields, DispatchStatusFailed, TransportResult{}, err)
	s.observeDispatch(ctx, startedAt, err, fields)
	return TransportResult{}, err
}

func (s *Service) completeDispatch(
	ctx context.Context,
	startedAt time.Time,
	fields map[string]any,
	result TransportResult,
) TransportResult {
	fields["status_code"] = result.StatusCode
	if !result.OK {
		remoteErr := NewError(ErrorTransportFailed, goerrors.CategoryExternal,
			fmt.Sprintf("core: remote rejected activity with status %d", result.StatusCode))
		s.recordDispatch(ctx, fields, DispatchStatusFailed, result, remoteErr)
		s.observeDispatch(ctx, startedAt, remoteErr, fields)
		return result
	}
	if activityID := result.ActivityID(); activityID != "" {
		fields["activity_id"] = activityID
	}
	s.recordDispatch(ctx, fields, DispatchStatusOK, result, nil)
	s.observeDispatch(ctx, startedAt, nil, fields)
	return result
}

func (s *Service) recordDispatch(
	ctx context.Context,
	fields map[string]any,
	status DispatchStatus,
	result TransportResult,
	cause error,
) {
	if s.dispatchLog == nil {
		return
	}
	signed, _ := fields["signed"].(bool)
	entry := DispatchEntry{
		ActivityType:   stringField(fields, "activity_type"),
		OrganizationID: stringField(fields, "organization_id"),
		AuthMode:       stringField(fields, "auth_mode"),
		Endpoint:       stringField(fields, "endpoint"),
		Signed:         signed,
		Status:         status,
		StatusCode:     result.StatusCode,
		ActivityID:     result.ActivityID(),
		CreatedAt:      s.clock().UTC(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := s.dispatchLog.Record(ctx, entry); err != nil {
		logFields := cloneFields(fields)
		logFields["error"] = err.Error()
		s.logWarn(ctx, "dispatch log record failed", logFields)
		s.recordCounter(ctx, metricDispatchLogFailure, 1, nil)
	}
}

// StampBody stamps body with the configured signing key. It lets callers
// authenticate requests built outside Dispatch, such as read-only queries.
func (s *Service) StampBody(body []byte) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: service is nil")
	}
	if s.settings.SigningKeyPEM == "" || s.stamper == nil {
		return "", NewError(ErrorSigningKeyUnavailable, goerrors.CategoryAuth, "core: api key signing key is not configured")
	}
	return s.stamper.StampRequest(body, s.settings.SigningKeyPEM)
}
