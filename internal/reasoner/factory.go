// Package reasoner reconciles OCR text with classifier entities through an
// LLM and validates its structured answer.
package reasoner

import (
	"fmt"
	"sort"

	"unikrew/internal/config"
	"unikrew/internal/port"
)

// ProviderFactory creates a Reasoner from a provider config.
type ProviderFactory func(cfg *config.ReasonerProviderConfig, prompts *PromptStore) (port.Reasoner, error)

// registry of reasoner provider factories, populated by init() in each provider package.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a reasoner provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// Providers lists the registered provider names.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewReasoner creates a Reasoner from a provider config using the registered factory.
func NewReasoner(cfg *config.ReasonerProviderConfig, prompts *PromptStore) (port.Reasoner, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown reasoner provider: %s", cfg.Provider)
	}
	return factory(cfg, prompts)
}

// Build assembles the configured reasoner. In "dual" mode the primary and
// secondary providers run in parallel and are merged; otherwise every
// configured provider is chained in a FallbackReasoner.
func Build(cfg *config.ReasonerConfig, prompts *PromptStore) (port.Reasoner, error) {
	primaryCfg := cfg.PrimaryConfig()
	primary, err := NewReasoner(primaryCfg, prompts)
	if err != nil {
		return nil, fmt.Errorf("primary reasoner: %w", err)
	}

	secondaryCfg := cfg.SecondaryConfig()
	if cfg.Mode == "dual" {
		if secondaryCfg == nil {
			return nil, fmt.Errorf("dual mode requires a secondary reasoner provider")
		}
		secondary, err := NewReasoner(secondaryCfg, prompts)
		if err != nil {
			return nil, fmt.Errorf("secondary reasoner: %w", err)
		}
		return NewMergeReasoner(primary, secondary), nil
	}

	reasoners := []port.Reasoner{primary}
	names := []string{primaryCfg.Provider}
	for _, tier := range []*config.ReasonerProviderConfig{secondaryCfg, cfg.TertiaryConfig()} {
		if tier == nil {
			continue
		}
		r, err := NewReasoner(tier, prompts)
		if err != nil {
			return nil, fmt.Errorf("%s reasoner: %w", tier.Provider, err)
		}
		reasoners = append(reasoners, r)
		names = append(names, tier.Provider)
	}
	if len(reasoners) == 1 {
		return primary, nil
	}
	return NewFallbackReasoner(reasoners, names), nil
}
