package handler

import "unikrew/internal/domain"

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// InferenceRequest is the body of POST /unikrew/inference.
type InferenceRequest struct {
	ImagePath string `json:"image_path" binding:"required" example:"s3://unikrew-receipts/samples/X51005200938.jpg"`
}

// UploadReceiptResponse is returned by POST /api/v1/receipts.
type UploadReceiptResponse struct {
	Receipt      *domain.Receipt `json:"receipt"`
	Deduplicated bool            `json:"deduplicated" example:"false"`
}

// ImageURLResponse carries a presigned image URL.
type ImageURLResponse struct {
	URL       string `json:"url" example:"https://unikrew-receipts.s3.amazonaws.com/receipts/...&X-Amz-Signature=..."`
	ExpiresIn int64  `json:"expires_in" example:"3600"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
