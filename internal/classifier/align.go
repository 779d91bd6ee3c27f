package classifier

import (
	"fmt"
	"strconv"

	"unikrew/internal/domain"
)

// DefaultLabels is the id2label order of the receipt LayoutLMv3 fine-tune.
var DefaultLabels = []string{
	domain.LabelOutside,
	"B-COMPANY", "I-COMPANY",
	"B-DATE", "I-DATE",
	"B-ADDRESS", "I-ADDRESS",
	"B-TOTAL", "I-TOTAL",
}

// LabelMap resolves class ids to BIO labels.
type LabelMap map[int]string

// LabelMapFromList builds a LabelMap where the slice index is the class id.
func LabelMapFromList(labels []string) LabelMap {
	m := make(LabelMap, len(labels))
	for i, l := range labels {
		m[i] = l
	}
	return m
}

// LabelMapFromJSON converts a Hugging Face style {"0": "O", ...} mapping.
func LabelMapFromJSON(raw map[string]string) (LabelMap, error) {
	m := make(LabelMap, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid label id %q: %w", k, err)
		}
		m[id] = v
	}
	return m, nil
}

// AlignToWords maps sub-token predictions back to one label per word.
//
// wordIDs[i] is the index of the word that produced token i, or nil for
// special and padding tokens. Each word takes the prediction of its first
// sub-token. Words with no surviving token (truncated away) are labeled "O".
func AlignToWords(numWords int, predictions []int, wordIDs []*int, labels LabelMap) ([]string, error) {
	if len(predictions) != len(wordIDs) {
		return nil, fmt.Errorf("predictions (%d) and word_ids (%d) differ in length", len(predictions), len(wordIDs))
	}

	out := make([]string, numWords)
	seen := make([]bool, numWords)
	for i := range out {
		out[i] = domain.LabelOutside
	}

	for i, wid := range wordIDs {
		if wid == nil {
			continue
		}
		w := *wid
		if w < 0 || w >= numWords {
			return nil, fmt.Errorf("token %d references word %d of %d", i, w, numWords)
		}
		if seen[w] {
			continue
		}
		seen[w] = true

		label, ok := labels[predictions[i]]
		if !ok {
			return nil, fmt.Errorf("unknown class id %d", predictions[i])
		}
		out[w] = label
	}
	return out, nil
}
