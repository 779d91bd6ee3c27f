package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"unikrew/internal/service"
)

// InferenceHandler serves the stateless extraction endpoint.
type InferenceHandler struct {
	receiptService service.ReceiptService
}

// NewInferenceHandler creates a new InferenceHandler.
func NewInferenceHandler(receiptService service.ReceiptService) *InferenceHandler {
	return &InferenceHandler{receiptService: receiptService}
}

// Infer handles POST /unikrew/inference
// @Summary Extract receipt fields from an image path
// @Description Runs OCR, token classification and LLM reasoning on the image at image_path
// @Description (a local path under the configured image root, or s3://bucket/key) and returns
// @Description the validated fields. Nothing is persisted. With detail=true the full
// @Description extraction (words, boxes, labels, entities, timings) is returned instead.
// @Tags inference
// @Accept json
// @Produce json
// @Param request body InferenceRequest true "Image location"
// @Param detail query bool false "Return the full extraction"
// @Success 200 {object} domain.ReceiptFields "Extracted fields"
// @Failure 400 {object} ErrorResponseBody "Invalid request or unsupported image"
// @Failure 403 {object} ErrorResponseBody "Path outside the image root"
// @Failure 404 {object} ErrorResponseBody "Image not found"
// @Failure 422 {object} ErrorResponseBody "No text detected"
// @Failure 429 {object} ErrorResponseBody "Upstream model rate limited"
// @Failure 502 {object} ErrorResponseBody "Upstream model failed"
// @Router /unikrew/inference [post]
func (h *InferenceHandler) Infer(c *gin.Context) {
	var req InferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "image_path is required")
		return
	}

	extraction, err := h.receiptService.Infer(c.Request.Context(), req.ImagePath)
	if err != nil {
		HandleError(c, err)
		return
	}

	if detail, _ := strconv.ParseBool(c.Query("detail")); detail {
		RespondOK(c, extraction)
		return
	}
	c.PureJSON(http.StatusOK, extraction.Fields)
}
