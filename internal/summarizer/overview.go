// Package summarizer picks representative sentences from tagged chunks.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"pdfrag/internal/domain"
)

var sentencePattern = regexp.MustCompile(`(?s)[^.!?]+[.!?]+`)

// Highlight is the most representative sentence of one section band.
type Highlight struct {
	Section  domain.Section
	Sentence string
	Chunks   int
}

// Overview scores sentences by normalised word frequency within each
// section and keeps the best one. Sections without chunks are omitted;
// output follows the order of labels.
type Overview struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	maxRunes     int
}

func NewOverview(maxRunes int) *Overview {
	if maxRunes <= 0 {
		maxRunes = 240
	}
	return &Overview{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
		maxRunes:     maxRunes,
	}
}

func (o *Overview) Summarize(chunks []domain.Chunk, labels []domain.Section) []Highlight {
	bySection := make(map[domain.Section][]string, len(labels))
	for _, c := range chunks {
		bySection[c.Section()] = append(bySection[c.Section()], c.Text)
	}
	out := make([]Highlight, 0, len(labels))
	for _, l := range labels {
		texts, ok := bySection[l]
		if !ok {
			continue
		}
		out = append(out, Highlight{
			Section:  l,
			Sentence: o.truncate(o.best(strings.Join(texts, "\n"))),
			Chunks:   len(texts),
		})
	}
	return out
}

// best returns the highest scoring sentence; earlier sentences win ties.
func (o *Overview) best(text string) string {
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range o.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := o.tokens(sent)
		s := 0.0
		for _, tok := range toks {
			s += freq[tok] / maxF
		}
		// normalise by sentence length to avoid bias
		if len(toks) > 0 {
			s /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{i, s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	return collapseSpace(sentences[scores[0].idx])
}

func (o *Overview) tokens(text string) []string {
	raw := o.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := o.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func (o *Overview) truncate(s string) string {
	r := []rune(s)
	if len(r) <= o.maxRunes {
		return s
	}
	return strings.TrimSpace(string(r[:o.maxRunes])) + "…"
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
