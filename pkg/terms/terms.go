// Package terms computes term frequencies over normalized statute text.
// Counting is per section and results merge across a run, so ingest can
// report the dominant vocabulary of whatever it just pulled.
package terms

import (
	"sort"
	"strings"

	"github.com/RulesFoundation/atlas/models"
)

// stopwords is common English plus the drafting boilerplate that
// dominates raw statutory token counts. Extend as needed.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {},
	"against": {}, "all": {}, "also": {}, "am": {}, "an": {}, "and": {},
	"another": {}, "any": {}, "are": {}, "as": {}, "at": {},

	"be": {}, "because": {}, "been": {}, "before": {}, "being": {},
	"below": {}, "between": {}, "both": {}, "but": {}, "by": {},

	"can": {}, "cannot": {}, "could": {},

	"did": {}, "do": {}, "does": {}, "doing": {}, "down": {}, "during": {},

	"each": {}, "either": {}, "every": {},

	"few": {}, "for": {}, "from": {}, "further": {},

	"had": {}, "has": {}, "have": {}, "having": {}, "he": {}, "her": {},
	"here": {}, "hereafter": {}, "hereby": {}, "herein": {}, "hers": {},
	"him": {}, "himself": {}, "his": {}, "how": {}, "however": {},

	"i": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {},
	"itself": {},

	"may": {}, "more": {}, "most": {}, "must": {}, "my": {},

	"no": {}, "nor": {}, "not": {}, "nothing": {}, "now": {},

	"of": {}, "off": {}, "on": {}, "once": {}, "one": {}, "only": {},
	"or": {}, "other": {}, "our": {}, "out": {}, "over": {}, "own": {},

	"per": {},

	"same": {}, "she": {}, "should": {}, "so": {}, "some": {}, "such": {},

	"than": {}, "that": {}, "the": {}, "their": {}, "them": {},
	"themselves": {}, "then": {}, "there": {}, "thereafter": {},
	"thereby": {}, "therefore": {}, "therein": {}, "thereof": {},
	"thereto": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "to": {}, "together": {}, "too": {}, "toward": {},

	"under": {}, "until": {}, "up": {}, "upon": {}, "us": {},

	"very": {},

	"was": {}, "we": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"whether": {}, "which": {}, "while": {}, "who": {}, "whom": {},
	"whose": {}, "why": {}, "will": {}, "with": {}, "within": {},
	"without": {}, "would": {},

	"you": {}, "your": {},

	// Statutory drafting boilerplate.
	"act": {}, "amended": {}, "amendment": {}, "applicable": {},
	"apply": {}, "applies": {}, "chapter": {}, "clause": {},
	"described": {}, "division": {}, "effect": {}, "including": {},
	"means": {}, "paragraph": {}, "part": {}, "provided": {},
	"provision": {}, "provisions": {}, "pursuant": {}, "respect": {},
	"section": {}, "sections": {}, "shall": {}, "subchapter": {},
	"subclause": {}, "subdivision": {}, "subparagraph": {},
	"subsection": {}, "subsections": {}, "subtitle": {}, "title": {},
}

// IsStopword checks if a word should be filtered from frequency counts.
func IsStopword(word string) bool {
	_, exists := stopwords[strings.ToLower(word)]
	return exists
}

// Frequency maps a term to its occurrence count.
type Frequency map[string]int

// Count tokenizes text, strips punctuation, and counts the surviving
// terms. Numbers are dropped: statute text is dense with cross-reference
// numerals that carry no vocabulary signal.
func Count(text string) Frequency {
	words := strings.Fields(strings.ToLower(text))
	freq := make(Frequency)

	for _, word := range words {
		word = strings.TrimFunc(word, func(r rune) bool {
			return 'a' > r || r > 'z'
		})
		if word == "" || len(word) < 3 {
			continue
		}
		if _, exists := stopwords[word]; exists {
			continue
		}
		if strings.ContainsAny(word, "0123456789") {
			continue
		}
		freq[word]++
	}

	return freq
}

// CountSection counts terms across a section's heading, body, and all
// nested subsections.
func CountSection(section *models.Section) Frequency {
	var sb strings.Builder
	sb.WriteString(section.SectionTitle)
	sb.WriteString(" ")
	sb.WriteString(section.Text)
	var walk func(subs []models.Subsection)
	walk = func(subs []models.Subsection) {
		for _, sub := range subs {
			sb.WriteString(" ")
			sb.WriteString(sub.Heading)
			sb.WriteString(" ")
			sb.WriteString(sub.Text)
			walk(sub.Children)
		}
	}
	walk(section.Subsections)
	return Count(sb.String())
}

// Merge folds src into dst and returns dst.
func Merge(dst, src Frequency) Frequency {
	if dst == nil {
		dst = make(Frequency, len(src))
	}
	for term, count := range src {
		dst[term] += count
	}
	return dst
}

// TermCount pairs a term with its count for ranked output.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Top returns the n most frequent terms, ties broken alphabetically so
// output is stable.
func Top(freq Frequency, n int) []TermCount {
	counts := make([]TermCount, 0, len(freq))
	for term, count := range freq {
		counts = append(counts, TermCount{term, count})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Term < counts[j].Term
	})

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
