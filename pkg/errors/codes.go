package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are namespaced by module prefix: COMMON_, DSS_, INFRA_.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Aliases used across layers.
const (
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
)

// Decision-support Module Error Codes
const (
	ErrCodeAnalysisFailed       ErrorCode = "DSS_001"
	ErrCodeModelNotAvailable    ErrorCode = "DSS_002"
	ErrCodeArtifactsNotFound    ErrorCode = "DSS_003"
	ErrCodeArtifactsCorrupt     ErrorCode = "DSS_004"
	ErrCodeTrainingFailed       ErrorCode = "DSS_005"
	ErrCodeInvalidClaim         ErrorCode = "DSS_006"
	ErrCodeFeatureDimension     ErrorCode = "DSS_007"
	ErrCodeTrainingInProgress   ErrorCode = "DSS_008"
	ErrCodeEventPublishFailed   ErrorCode = "DSS_009"
	ErrCodeInvalidCorpusRequest ErrorCode = "DSS_010"
)

// Infrastructure Error Codes
const (
	ErrCodeStorageError   ErrorCode = "INFRA_001"
	ErrCodeObjectNotFound ErrorCode = "INFRA_002"
	ErrCodeLockError      ErrorCode = "INFRA_003"
	ErrCodeMessagingError ErrorCode = "INFRA_004"
)

// ErrorCodeHTTPStatus maps codes to the HTTP status rendered by the API layer.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusBadRequest,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeAnalysisFailed:       http.StatusInternalServerError,
	ErrCodeModelNotAvailable:    http.StatusServiceUnavailable,
	ErrCodeArtifactsNotFound:    http.StatusNotFound,
	ErrCodeArtifactsCorrupt:     http.StatusInternalServerError,
	ErrCodeTrainingFailed:       http.StatusInternalServerError,
	ErrCodeInvalidClaim:         http.StatusBadRequest,
	ErrCodeFeatureDimension:     http.StatusInternalServerError,
	ErrCodeTrainingInProgress:   http.StatusConflict,
	ErrCodeEventPublishFailed:   http.StatusInternalServerError,
	ErrCodeInvalidCorpusRequest: http.StatusBadRequest,

	ErrCodeStorageError:   http.StatusInternalServerError,
	ErrCodeObjectNotFound: http.StatusNotFound,
	ErrCodeLockError:      http.StatusServiceUnavailable,
	ErrCodeMessagingError: http.StatusInternalServerError,
}

// ErrorCodeMessage holds the default human readable message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",

	ErrCodeAnalysisFailed:       "claim analysis failed",
	ErrCodeModelNotAvailable:    "decision models not available",
	ErrCodeArtifactsNotFound:    "model artifacts not found",
	ErrCodeArtifactsCorrupt:     "model artifacts corrupt or unreadable",
	ErrCodeTrainingFailed:       "model training failed",
	ErrCodeInvalidClaim:         "invalid claim record",
	ErrCodeFeatureDimension:     "feature dimension mismatch",
	ErrCodeTrainingInProgress:   "model training already in progress",
	ErrCodeEventPublishFailed:   "failed to publish analysis event",
	ErrCodeInvalidCorpusRequest: "invalid corpus request",

	ErrCodeStorageError:   "object storage error",
	ErrCodeObjectNotFound: "object not found",
	ErrCodeLockError:      "distributed lock error",
	ErrCodeMessagingError: "messaging error",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
