// internal/service/summary/words.go
package summary

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"wa-insights-service/internal/domain/segment"
)

const minWordLength = 4

var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "also": {}, "because": {}, "been": {}, "before": {},
	"being": {}, "could": {}, "does": {}, "doing": {}, "down": {}, "each": {}, "from": {},
	"have": {}, "having": {}, "hello": {}, "here": {}, "into": {}, "just": {}, "like": {},
	"more": {}, "most": {}, "much": {}, "only": {}, "other": {}, "over": {}, "please": {},
	"same": {}, "should": {}, "some": {}, "such": {}, "than": {}, "thank": {}, "thanks": {},
	"that": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "very": {}, "want": {}, "well": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "will": {}, "with": {}, "would": {},
	"your": {}, "yours": {}, "okay": {},
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// topWords counts content words in order and keeps the limit most frequent.
// Ties keep first-seen order.
func topWords(texts []string, limit int) []segment.WordCount {
	counts := map[string]int{}
	var order []string

	for _, text := range texts {
		for _, w := range tokenize(text) {
			if utf8.RuneCountInString(w) < minWordLength {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	out := make([]segment.WordCount, 0, len(order))
	for _, w := range order {
		out = append(out, segment.WordCount{Word: w, Count: counts[w]})
	}
	sortStableDesc(out, func(wc segment.WordCount) int { return wc.Count })

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
