package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"unikrew/internal/domain"
	"unikrew/internal/handler"
	"unikrew/internal/pipeline"
	"unikrew/mocks"
)

func inferenceRequest(t *testing.T, h *handler.InferenceHandler, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Infer(c)
	return w
}

func TestInferenceHandler_ReturnsFields(t *testing.T) {
	svc := new(mocks.MockReceiptService)
	h := handler.NewInferenceHandler(svc)

	fields := domain.ReceiptFields{
		Company: "OJC MARKETING SDN BHD", Date: "15/01/2019",
		Address: "NO 2 & 4, JALAN BAYU 4, BANDAR SERI ALAM, 81750 MASAI, JOHOR",
		Total:   "193.00", AgentComment: "All four fields agree with the OCR text.",
	}
	svc.On("Infer", mock.Anything, "receipts/X51006414631.jpg").
		Return(&pipeline.Extraction{Fields: fields}, nil)

	w := inferenceRequest(t, h, "/unikrew/inference", `{"image_path":"receipts/X51006414631.jpg"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{
		"company":       fields.Company,
		"date":          fields.Date,
		"address":       fields.Address,
		"total":         fields.Total,
		"agent_comment": fields.AgentComment,
	}, got)
	assert.Contains(t, w.Body.String(), "NO 2 & 4")
	svc.AssertExpectations(t)
}

func TestInferenceHandler_Detail(t *testing.T) {
	svc := new(mocks.MockReceiptService)
	h := handler.NewInferenceHandler(svc)
	svc.On("Infer", mock.Anything, "r.png").
		Return(&pipeline.Extraction{OCRText: "TOTAL 9.00", Labels: []string{"O", "B-TOTAL"}}, nil)

	w := inferenceRequest(t, h, "/unikrew/inference?detail=true", `{"image_path":"r.png"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                `json:"success"`
		Data    pipeline.Extraction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "TOTAL 9.00", resp.Data.OCRText)
	assert.Equal(t, []string{"O", "B-TOTAL"}, resp.Data.Labels)
}

func TestInferenceHandler_MissingPath(t *testing.T) {
	svc := new(mocks.MockReceiptService)
	h := handler.NewInferenceHandler(svc)

	w := inferenceRequest(t, h, "/unikrew/inference", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Infer", mock.Anything, mock.Anything)
}

func TestInferenceHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{domain.ErrImageNotFound, http.StatusNotFound},
		{domain.ErrForbiddenPath, http.StatusForbidden},
		{domain.ErrNoTextDetected, http.StatusUnprocessableEntity},
		{domain.ErrUnsupportedFileType, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := new(mocks.MockReceiptService)
			h := handler.NewInferenceHandler(svc)
			svc.On("Infer", mock.Anything, "x.png").Return(nil, tt.err)

			w := inferenceRequest(t, h, "/unikrew/inference", `{"image_path":"x.png"}`)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
