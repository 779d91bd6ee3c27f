package reasoner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"unikrew/internal/port"
)

// MergeReasoner wraps two Reasoners, runs both in parallel, and merges results.
type MergeReasoner struct {
	primary   port.Reasoner
	secondary port.Reasoner
}

// NewMergeReasoner creates a MergeReasoner from primary and secondary reasoners.
func NewMergeReasoner(primary, secondary port.Reasoner) *MergeReasoner {
	return &MergeReasoner{primary: primary, secondary: secondary}
}

func (m *MergeReasoner) Reason(ctx context.Context, input port.ReasonInput) (*port.ReasonOutput, error) {
	type result struct {
		output *port.ReasonOutput
		err    error
	}
	var pResult, sResult result

	// Each side's failure is handled below, so neither cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		pResult.output, pResult.err = m.primary.Reason(ctx, input)
		return nil
	})
	g.Go(func() error {
		sResult.output, sResult.err = m.secondary.Reason(ctx, input)
		return nil
	})
	_ = g.Wait()

	if pResult.err != nil && sResult.err != nil {
		// Keep the primary error in the chain so a rate limit stays detectable.
		return nil, fmt.Errorf("both reasoners failed: primary: %w; secondary: %v", pResult.err, sResult.err)
	}

	if pResult.err != nil {
		zap.L().Warn("reasoner.MergeReasoner: primary failed, using secondary only", zap.Error(pResult.err))
		sResult.output.FieldProvenance = map[string]string{"_source": "secondary_only"}
		sResult.output.SecondaryModel = sResult.output.ModelUsed
		return sResult.output, nil
	}

	if sResult.err != nil {
		zap.L().Warn("reasoner.MergeReasoner: secondary failed, using primary only", zap.Error(sResult.err))
		pResult.output.FieldProvenance = map[string]string{"_source": "primary_only"}
		return pResult.output, nil
	}

	return mergeOutputs(pResult.output, sResult.output)
}

func mergeOutputs(primary, secondary *port.ReasonOutput) (*port.ReasonOutput, error) {
	provenance := make(map[string]string)
	merged := primary.Fields
	s := secondary.Fields

	mergeString(&merged.Company, s.Company, "company", provenance)
	mergeString(&merged.Date, s.Date, "date", provenance)
	mergeString(&merged.Address, s.Address, "address", provenance)
	mergeString(&merged.Total, s.Total, "total", provenance)
	provenance["agent_comment"] = "primary"

	raw, err := IndentJSON(merged)
	if err != nil {
		return nil, fmt.Errorf("marshaling merged fields: %w", err)
	}

	return &port.ReasonOutput{
		Fields:          merged,
		RawJSON:         raw,
		ModelUsed:       primary.ModelUsed,
		PromptUsed:      primary.PromptUsed,
		FieldProvenance: provenance,
		SecondaryModel:  secondary.ModelUsed,
	}, nil
}

// mergeString implements the merge strategy for a single answer field.
func mergeString(pVal *string, sVal string, field string, provenance map[string]string) {
	switch {
	case *pVal == sVal:
		provenance[field] = "agree"
	case *pVal == "":
		*pVal = sVal
		provenance[field] = "secondary"
	case sVal == "":
		provenance[field] = "primary"
	default:
		provenance[field] = "disagreement"
	}
}
