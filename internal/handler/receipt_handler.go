package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/export"
	"unikrew/internal/middleware"
	"unikrew/internal/service"
)

// ReceiptHandler handles stored receipt endpoints.
type ReceiptHandler struct {
	receiptService service.ReceiptService
	s3Cfg          *config.S3Config
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(receiptService service.ReceiptService, s3Cfg *config.S3Config) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService, s3Cfg: s3Cfg}
}

// Upload handles POST /api/v1/receipts
// @Summary Upload a receipt image
// @Description Stores the image and extracts its fields. Re-uploading identical bytes returns the
// @Description earlier completed receipt. When an upstream model is rate limited the receipt is
// @Description queued and extracted later by the background worker.
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt image (JPG, PNG, BMP, TIFF or WEBP)"
// @Success 201 {object} Response{data=UploadReceiptResponse} "Receipt stored"
// @Success 200 {object} Response{data=UploadReceiptResponse} "Existing receipt returned"
// @Failure 400 {object} ErrorResponseBody "Missing file or unsupported type"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 500 {object} ErrorResponseBody "Upload failed"
// @Security BearerAuth
// @Router /api/v1/receipts [post]
func (h *ReceiptHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.receiptService.Upload(c.Request.Context(), service.UploadInput{
		Filename: header.Filename,
		Size:     header.Size,
		File:     file,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	body := UploadReceiptResponse{Receipt: result.Receipt, Deduplicated: result.Deduplicated}
	if result.Deduplicated {
		RespondOK(c, body)
		return
	}
	RespondCreated(c, body)
}

// List handles GET /api/v1/receipts
// @Summary List receipts
// @Description List stored receipts, newest first
// @Tags receipts
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.Receipt,meta=PagMeta} "List of receipts"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /api/v1/receipts [get]
func (h *ReceiptHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	receipts, total, err := h.receiptService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, receipts, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/receipts/:id
// @Summary Get a receipt
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID (UUID)"
// @Success 200 {object} Response{data=domain.Receipt} "Receipt"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Receipt not found"
// @Security BearerAuth
// @Router /api/v1/receipts/{id} [get]
func (h *ReceiptHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	receipt, err := h.receiptService.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, receipt)
}

// ImageURL handles GET /api/v1/receipts/:id/image
// @Summary Get a presigned image URL
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID (UUID)"
// @Success 200 {object} Response{data=ImageURLResponse} "Presigned URL"
// @Failure 404 {object} ErrorResponseBody "Receipt not found"
// @Security BearerAuth
// @Router /api/v1/receipts/{id}/image [get]
func (h *ReceiptHandler) ImageURL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	url, err := h.receiptService.ImageURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ImageURLResponse{URL: url, ExpiresIn: h.s3Cfg.PresignExpiry})
}

// Retry handles POST /api/v1/receipts/:id/retry
// @Summary Retry a failed receipt
// @Description Queues a failed receipt for extraction by the background worker
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID (UUID)"
// @Success 202 {object} Response{data=domain.Receipt} "Receipt queued"
// @Failure 404 {object} ErrorResponseBody "Receipt not found"
// @Failure 409 {object} ErrorResponseBody "Receipt is not failed"
// @Security BearerAuth
// @Router /api/v1/receipts/{id}/retry [post]
func (h *ReceiptHandler) Retry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	receipt, err := h.receiptService.Retry(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.PureJSON(http.StatusAccepted, APIResponse{Success: true, Data: receipt})
}

// Delete handles DELETE /api/v1/receipts/:id
// @Summary Delete a receipt
// @Description Deletes the receipt row and its stored image
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID (UUID)"
// @Success 200 {object} Response "Receipt deleted"
// @Failure 404 {object} ErrorResponseBody "Receipt not found"
// @Security BearerAuth
// @Router /api/v1/receipts/{id} [delete]
func (h *ReceiptHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.receiptService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "receipt deleted", "deleted_by": middleware.GetSubject(c)})
}

// Export handles GET /api/v1/receipts/export
// @Summary Export receipts
// @Description Download all receipts as CSV (UTF-8 with BOM) or XLSX
// @Tags receipts
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file "Export file"
// @Failure 400 {object} ErrorResponseBody "Unsupported format"
// @Security BearerAuth
// @Router /api/v1/receipts/export [get]
func (h *ReceiptHandler) Export(c *gin.Context) {
	format := domain.ExportFormat(c.DefaultQuery("format", string(domain.ExportFormatCSV)))

	// Buffer so a failure midway still produces a JSON error response.
	var buf bytes.Buffer
	if err := h.receiptService.Export(c.Request.Context(), format, &buf); err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename("receipts", format, time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

// parseID reads the :id path param. It writes a 400 and returns false on failure.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid receipt ID")
		return uuid.Nil, false
	}
	return id, true
}
