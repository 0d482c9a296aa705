package core

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	HeaderStamp         = "X-Stamp"
	HeaderStampWebAuthn = "X-Stamp-WebAuthn"
	HeaderContentType   = "Content-Type"

	contentTypeJSON = "application/json"
)

// ClientSignatureHeader returns the header carrying a caller-supplied
// signature. WebAuthn and Passkey share one header.
func ClientSignatureHeader(mode AuthMode) string {
	switch mode {
	case AuthModeWebAuthn, AuthModePasskey:
		return HeaderStampWebAuthn
	default:
		return ""
	}
}

func (s *Service) baseHeaders() map[string]string {
	headers := map[string]string{
		HeaderContentType: contentTypeJSON,
	}
	if s.settings.APIKey != "" {
		headers[s.settings.APIKeyHeader] = s.settings.APIKey
	}
	return headers
}

// applyAuth adds the authentication header for req to headers. It reports
// whether the request ended up signed. When authentication is impossible the
// failure policy decides between an error and an unsigned send.
func (s *Service) applyAuth(
	ctx context.Context,
	req DispatchRequest,
	mode AuthMode,
	body []byte,
	headers map[string]string,
	fields map[string]any,
) (bool, error) {
	clientSignature := req.ClientSignature
	hasClientSignature := strings.TrimSpace(clientSignature) != ""

	switch {
	case mode == AuthModeAPIKey:
		if hasClientSignature {
			s.logWarn(ctx, "client signature ignored for api key auth", fields)
		}
		if s.settings.SigningKeyPEM == "" || s.stamper == nil {
			return s.sendUnsigned(ctx, NewError(
				ErrorSigningKeyUnavailable,
				goerrors.CategoryAuth,
				"core: api key signing key is not configured",
			), fields)
		}
		stamp, err := s.stamper.StampRequest(body, s.settings.SigningKeyPEM)
		if err != nil {
			return s.sendUnsigned(ctx, err, fields)
		}
		headers[HeaderStamp] = stamp
		return true, nil

	case mode.ClientSigned():
		if !hasClientSignature {
			return s.sendUnsigned(ctx, NewError(
				ErrorClientSignatureRequired,
				goerrors.CategoryAuth,
				"core: client signature is required for "+mode.String()+" auth",
			), fields)
		}
		headers[ClientSignatureHeader(mode)] = clientSignature
		return true, nil

	default:
		return s.sendUnsigned(ctx, NewError(
			ErrorUnsupportedAuthMode,
			goerrors.CategoryBadInput,
			"core: unsupported auth mode "+mode.String(),
		), fields)
	}
}

func (s *Service) sendUnsigned(ctx context.Context, cause error, fields map[string]any) (bool, error) {
	if !s.settings.FailOpen() {
		return false, cause
	}
	warnFields := cloneFields(fields)
	warnFields["signing_fallback"] = "unsigned"
	warnFields["error"] = cause.Error()
	if kind := ErrorKind(cause); kind != "" {
		warnFields["error_kind"] = kind
	}
	s.logWarn(ctx, "sending activity unsigned", warnFields)
	s.recordCounter(ctx, metricUnsignedFallback, 1, map[string]string{
		"auth_mode": stringField(fields, "auth_mode"),
	})
	return false, nil
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}
