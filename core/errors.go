package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Failure kinds. Each is carried as the TextCode of a *goerrors.Error so
// callers can branch with ErrorKind / IsKind.
const (
	ErrorInvalidPrivateKey         = "INVALID_PRIVATE_KEY"
	ErrorInvalidPointFormat        = "INVALID_POINT_FORMAT"
	ErrorPointDecompressionFailed  = "POINT_DECOMPRESSION_FAILED"
	ErrorPublicKeyExtractionFailed = "PUBLIC_KEY_EXTRACTION_FAILED"
	ErrorSigningFailed             = "SIGNING_FAILED"
	ErrorKeyGenerationFailed       = "KEY_GENERATION_FAILED"

	ErrorInvalidHex              = "INVALID_HEX"
	ErrorInvalidCiphertextFormat = "INVALID_CIPHERTEXT_FORMAT"
	ErrorInvalidAESFormat        = "INVALID_AES_FORMAT"
	ErrorHPKEDecryptionFailed    = "HPKE_DECRYPTION_FAILED"
	ErrorAESDecryptFailed        = "AES_DECRYPT_FAILED"
	ErrorInvalidJSON             = "INVALID_JSON"

	ErrorInvalidStamp            = "INVALID_STAMP"
	ErrorSigningKeyUnavailable   = "SIGNING_KEY_UNAVAILABLE"
	ErrorClientSignatureRequired = "CLIENT_SIGNATURE_REQUIRED"
	ErrorUnsupportedAuthMode     = "UNSUPPORTED_AUTH_MODE"
	ErrorTransportFailed         = "TRANSPORT_FAILED"

	ServiceErrorBadInput = "CUSTODY_BAD_INPUT"
	ServiceErrorInternal = "CUSTODY_INTERNAL_ERROR"
)

// NewError builds a kind-tagged error.
func NewError(kind string, category goerrors.Category, message string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(kind),
	)
}

// WrapError builds a kind-tagged error that keeps source in its chain.
func WrapError(source error, kind string, category goerrors.Category, message string) *goerrors.Error {
	if source == nil {
		return NewError(kind, category, message)
	}
	return ensureErrorEnvelope(
		goerrors.Wrap(source, category, message).
			WithTextCode(kind),
	)
}

// ErrorKind returns the failure kind carried by err, or "" when err is not a
// rich error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return strings.TrimSpace(rich.TextCode)
	}
	return ""
}

func IsKind(err error, kind string) bool {
	return kind != "" && ErrorKind(err) == kind
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "unsupported"):
		return NewError(ServiceErrorBadInput, goerrors.CategoryBadInput, err.Error())
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryExternal:
		return ErrorTransportFailed
	default:
		return ServiceErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
