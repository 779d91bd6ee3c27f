// Package classifier turns token-classification output into receipt entities.
package classifier

import (
	"strings"

	"unikrew/internal/domain"
)

// span is an open entity being assembled from consecutive words.
type span struct {
	label string
	words []string
}

// Reassemble collapses BIO-tagged words into whole-entity strings.
//
// "O" closes the open span, "B-X" closes it and opens a span of type X, and
// "I-X" extends the open span only when its type is X. Any other label is
// skipped without closing the span. The first span of each receipt field
// type wins; missing types are empty. Words and labels are zipped, so the
// shorter slice bounds the walk.
func Reassemble(words, labels []string) domain.Entities {
	spans := make(map[string][]string)
	var cur *span

	flush := func() {
		if cur != nil {
			spans[cur.label] = append(spans[cur.label], strings.Join(cur.words, " "))
			cur = nil
		}
	}

	n := min(len(words), len(labels))
	for i := 0; i < n; i++ {
		word, label := words[i], labels[i]
		if label == domain.LabelOutside {
			flush()
			continue
		}

		labelType := entityType(label)
		switch {
		case strings.HasPrefix(label, "B-"):
			flush()
			cur = &span{label: labelType, words: []string{word}}
		case strings.HasPrefix(label, "I-") && cur != nil && cur.label == labelType:
			cur.words = append(cur.words, word)
		}
	}
	flush()

	return domain.Entities{
		Company: first(spans, domain.EntityCompany),
		Date:    first(spans, domain.EntityDate),
		Address: first(spans, domain.EntityAddress),
		Total:   first(spans, domain.EntityTotal),
		Spans:   spans,
	}
}

// entityType returns the part of a label after its last hyphen.
func entityType(label string) string {
	if i := strings.LastIndex(label, "-"); i >= 0 {
		return label[i+1:]
	}
	return label
}

func first(spans map[string][]string, label string) string {
	if s := spans[label]; len(s) > 0 {
		return s[0]
	}
	return ""
}
