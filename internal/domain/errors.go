package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")

	// Image source errors
	ErrImageNotFound = errors.New("image not found")
	ErrForbiddenPath = errors.New("image path is outside the allowed root")
	ErrInvalidImage  = errors.New("image could not be decoded")

	// Pipeline stage errors
	ErrNoTextDetected       = errors.New("no text detected in image")
	ErrOCRFailed            = errors.New("text extraction failed")
	ErrClassificationFailed = errors.New("token classification failed")
	ErrReasoningFailed      = errors.New("llm reasoning failed")
	ErrInvalidLLMOutput     = errors.New("llm output does not match the agent_output schema")
	ErrPromptTemplate       = errors.New("invalid prompt template")

	// Receipt lifecycle errors
	ErrReceiptNotFound   = errors.New("receipt not found")
	ErrReceiptNotRetried = errors.New("receipt is not in a retryable state")
	ErrUnsupportedExport = errors.New("unsupported export format")
)
