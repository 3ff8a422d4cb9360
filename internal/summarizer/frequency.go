package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	defaultMaxSentences = 3
	// Extracted PDF text often lacks punctuation; runs longer than this are
	// table dumps rather than sentences.
	maxSentenceRunes = 400
)

var (
	sentenceRe   = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	wordRe       = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// FrequencySummarizer picks the sentences whose words are most frequent in
// the whole document and returns them in document order.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords()}
}

// Summarize returns up to maxSentences sentences of text.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = defaultMaxSentences
	}
	sentences := s.sentences(text)
	if len(sentences) == 0 {
		flat := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
		if r := []rune(flat); len(r) > maxSentenceRunes {
			flat = string(r[:maxSentenceRunes])
		}
		return flat, nil
	}

	freq := make(map[string]float64)
	tokens := make([][]string, len(sentences))
	for i, sent := range sentences {
		tokens[i] = s.words(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	peak := 0.0
	for _, v := range freq {
		peak = math.Max(peak, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i := range sentences {
		sum := 0.0
		for _, tok := range tokens[i] {
			sum += freq[tok] / peak
		}
		if n := len(tokens[i]); n > 0 {
			sum /= math.Sqrt(float64(n))
		}
		ranked[i] = scored{idx: i, score: sum}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if maxSentences > len(ranked) {
		maxSentences = len(ranked)
	}

	picked := make([]int, maxSentences)
	for i := range picked {
		picked[i] = ranked[i].idx
	}
	sort.Ints(picked)
	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) sentences(text string) []string {
	var out []string
	for _, raw := range sentenceRe.FindAllString(text, -1) {
		sent := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
		if sent == "" || len([]rune(sent)) > maxSentenceRunes {
			continue
		}
		out = append(out, sent)
	}
	return out
}

func (s *FrequencySummarizer) words(sentence string) []string {
	raw := wordRe.FindAllString(strings.ToLower(sentence), -1)
	out := raw[:0]
	for _, w := range raw {
		if _, stop := s.stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
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
