package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"unikrew/internal/domain"
	"unikrew/internal/pipeline"
	"unikrew/internal/port"
	"unikrew/mocks"
)

type stages struct {
	ocr        *mocks.MockTextExtractor
	classifier *mocks.MockTokenClassifier
	reasoner   *mocks.MockReasoner
	agent      *pipeline.Agent
}

func newStages() *stages {
	s := &stages{
		ocr:        new(mocks.MockTextExtractor),
		classifier: new(mocks.MockTokenClassifier),
		reasoner:   new(mocks.MockReasoner),
	}
	s.agent = pipeline.NewAgent(s.ocr, s.classifier, s.reasoner)
	return s
}

func receiptOCR() *port.OCROutput {
	return &port.OCROutput{
		Words: []domain.Word{
			{Text: "ACME", Box: domain.PixelBox{Left: 10, Top: 10, Width: 80, Height: 20}},
			{Text: "CORP", Box: domain.PixelBox{Left: 100, Top: 10, Width: 80, Height: 20}},
			{Text: "TOTAL", Box: domain.PixelBox{Left: 10, Top: 150, Width: 60, Height: 20}},
			{Text: "9.99", Box: domain.PixelBox{Left: 150, Top: 150, Width: 50, Height: 20}},
		},
		Width:  200,
		Height: 200,
		Engine: "tesseract",
	}
}

var testImage = pipeline.Image{Bytes: []byte("png-bytes"), ContentType: "image/png"}

func TestAgent_Run_Success(t *testing.T) {
	s := newStages()
	s.ocr.On("Extract", mock.Anything, port.OCRInput{Image: testImage.Bytes, ContentType: "image/png"}).
		Return(receiptOCR(), nil)
	s.classifier.On("Classify", mock.Anything, mock.MatchedBy(func(in port.ClassifyInput) bool {
		return assert.ObjectsAreEqual([]string{"ACME", "CORP", "TOTAL", "9.99"}, in.Words) &&
			in.Boxes[0] == domain.NormalizedBox{50, 50, 450, 150} &&
			in.Boxes[3] == domain.NormalizedBox{750, 750, 1000, 850}
	})).Return(&port.ClassifyOutput{
		Labels:    []string{"B-COMPANY", "I-COMPANY", "O", "B-TOTAL"},
		ModelUsed: "layoutlmv3",
	}, nil)
	s.reasoner.On("Reason", mock.Anything, port.ReasonInput{
		OCRText:  "ACME CORP TOTAL 9.99",
		Entities: domain.Entities{Company: "ACME CORP", Total: "9.99", Spans: map[string][]string{"COMPANY": {"ACME CORP"}, "TOTAL": {"9.99"}}},
	}).Return(&port.ReasonOutput{
		Fields:    domain.ReceiptFields{Company: "ACME CORP", Total: "9.99", AgentComment: "ok"},
		RawJSON:   []byte(`{"company": "ACME CORP"}`),
		ModelUsed: "openai/gpt-oss-120b",
	}, nil)

	ext, err := s.agent.Run(context.Background(), testImage)

	require.NoError(t, err)
	assert.Equal(t, "ACME CORP TOTAL 9.99", ext.OCRText)
	assert.Equal(t, "ACME CORP", ext.Entities.Company)
	assert.Equal(t, "9.99", ext.Fields.Total)
	assert.Equal(t, "layoutlmv3", ext.ClassifierModel)
	assert.Equal(t, "openai/gpt-oss-120b", ext.ReasonerModel)
	assert.Equal(t, "tesseract", ext.OCREngine)
	assert.Len(t, ext.Boxes, 4)
	s.ocr.AssertExpectations(t)
	s.classifier.AssertExpectations(t)
	s.reasoner.AssertExpectations(t)
}

func TestAgent_Run_NoTextSkipsModels(t *testing.T) {
	s := newStages()
	s.ocr.On("Extract", mock.Anything, mock.Anything).Return(&port.OCROutput{Width: 100, Height: 100}, nil)

	_, err := s.agent.Run(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.ErrNoTextDetected)
	s.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
	s.reasoner.AssertNotCalled(t, "Reason", mock.Anything, mock.Anything)
}

func TestAgent_Run_OCRFailure(t *testing.T) {
	s := newStages()
	s.ocr.On("Extract", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidImage)

	_, err := s.agent.Run(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.ErrOCRFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}

func TestAgent_Run_ClassifierRateLimited(t *testing.T) {
	s := newStages()
	s.ocr.On("Extract", mock.Anything, mock.Anything).Return(receiptOCR(), nil)
	s.classifier.On("Classify", mock.Anything, mock.Anything).
		Return(nil, domain.NewRateLimitError("layoutlm", errors.New("503"), 20))

	_, err := s.agent.Run(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.ErrClassificationFailed)
	var rl *domain.RateLimitError
	assert.True(t, errors.As(err, &rl))
	s.reasoner.AssertNotCalled(t, "Reason", mock.Anything, mock.Anything)
}

func TestAgent_Run_ReasoningFailure(t *testing.T) {
	s := newStages()
	s.ocr.On("Extract", mock.Anything, mock.Anything).Return(receiptOCR(), nil)
	s.classifier.On("Classify", mock.Anything, mock.Anything).
		Return(&port.ClassifyOutput{Labels: []string{"O", "O", "O", "O"}}, nil)
	s.reasoner.On("Reason", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidLLMOutput)

	_, err := s.agent.Run(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.ErrReasoningFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidLLMOutput)
}

func TestAgent_Run_InvalidDimensions(t *testing.T) {
	s := newStages()
	out := receiptOCR()
	out.Width = 0
	s.ocr.On("Extract", mock.Anything, mock.Anything).Return(out, nil)

	_, err := s.agent.Run(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}
