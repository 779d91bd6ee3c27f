// Package app assembles the concrete extraction stack from configuration.
package app

import (
	"fmt"

	"unikrew/internal/classifier/layoutlm"
	"unikrew/internal/config"
	"unikrew/internal/ocr/tesseract"
	"unikrew/internal/pipeline"
	"unikrew/internal/reasoner"

	// Reasoner providers register themselves with the reasoner factory.
	_ "unikrew/internal/reasoner/claude"
	_ "unikrew/internal/reasoner/gemini"
	_ "unikrew/internal/reasoner/openai"
)

// NewPipeline wires the tesseract extractor, the LayoutLM classifier
// client and the configured reasoner into a pipeline.Agent. The returned
// PromptStore is shared by every reasoner provider.
func NewPipeline(cfg *config.Config) (*pipeline.Agent, *reasoner.PromptStore, error) {
	prompts, err := reasoner.NewPromptStore(cfg.Prompts.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading prompts: %w", err)
	}

	rsn, err := reasoner.Build(&cfg.Reasoner, prompts)
	if err != nil {
		return nil, nil, fmt.Errorf("building reasoner: %w", err)
	}

	agent := pipeline.NewAgent(
		tesseract.NewEngine(&cfg.OCR),
		layoutlm.NewClassifier(&cfg.Classifier),
		rsn,
	)
	return agent, prompts, nil
}
