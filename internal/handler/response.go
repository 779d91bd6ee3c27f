package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unikrew/internal/domain"
	"unikrew/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.PureJSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.PureJSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.PureJSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.PureJSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Rate limits are checked first since pipeline stage errors wrap them.
func MapDomainError(err error) (status int, code, msg string) {
	var rlErr *domain.RateLimitError
	switch {
	case errors.As(err, &rlErr):
		return http.StatusTooManyRequests, "RATE_LIMITED", "upstream model " + rlErr.Provider + " is rate limited; retry later"
	case errors.Is(err, domain.ErrReceiptNotFound):
		return http.StatusNotFound, "RECEIPT_NOT_FOUND", "receipt not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: jpg, png, bmp, tiff, webp"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusInternalServerError, "UPLOAD_FAILED", "file upload to storage failed"
	case errors.Is(err, domain.ErrImageNotFound):
		return http.StatusNotFound, "IMAGE_NOT_FOUND", "image not found"
	case errors.Is(err, domain.ErrForbiddenPath):
		return http.StatusForbidden, "FORBIDDEN_PATH", "image path is outside the allowed root"
	case errors.Is(err, domain.ErrInvalidImage):
		return http.StatusBadRequest, "INVALID_IMAGE", "image could not be decoded"
	case errors.Is(err, domain.ErrNoTextDetected):
		return http.StatusUnprocessableEntity, "NO_TEXT_DETECTED", "no text detected in image"
	case errors.Is(err, domain.ErrInvalidLLMOutput):
		return http.StatusBadGateway, "INVALID_LLM_OUTPUT", "llm output did not match the expected schema"
	case errors.Is(err, domain.ErrClassificationFailed):
		return http.StatusBadGateway, "CLASSIFICATION_FAILED", "token classification failed"
	case errors.Is(err, domain.ErrReasoningFailed):
		return http.StatusBadGateway, "REASONING_FAILED", "llm reasoning failed"
	case errors.Is(err, domain.ErrOCRFailed):
		return http.StatusInternalServerError, "OCR_FAILED", "text extraction failed"
	case errors.Is(err, domain.ErrReceiptNotRetried):
		return http.StatusConflict, "RECEIPT_NOT_RETRYABLE", "only failed receipts can be retried"
	case errors.Is(err, domain.ErrUnsupportedExport):
		return http.StatusBadRequest, "UNSUPPORTED_EXPORT_FORMAT", "unsupported export format; allowed: csv, xlsx"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)

	var rlErr *domain.RateLimitError
	if errors.As(err, &rlErr) {
		secs := int(math.Ceil(rlErr.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
	}

	if status >= 500 {
		requestID, _ := c.Get(middleware.ContextKeyRequestID)
		zap.L().Error("internal error", zap.Any("request_id", requestID), zap.Error(err))
	}
	_ = c.Error(err)
	RespondError(c, status, code, msg)
}

// parsePagination reads offset and limit query params, clamping limit to 1..100.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
