package tone

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`\w+`)

// DefaultStopwords are excluded from marker suggestions.
var DefaultStopwords = buildStopwords(
	"a", "an", "the", "and", "or", "but", "if", "of", "to", "in", "on",
	"for", "with", "is", "are", "was", "were", "be", "been", "it", "its",
	"this", "that", "these", "those", "i", "you", "he", "she", "we", "they",
	"my", "your", "me", "do", "does", "did", "not", "no", "so", "at", "as",
	"by", "from", "what", "when", "how", "why", "which", "there", "here",
)

// MineMarkers reads a feedback log and suggests, per label, the terms that
// appear at least minFreq times, up to maxTerms each, ordered by descending
// frequency. The output is meant for manual promotion into the local rule
// sets above.
func MineMarkers(r io.Reader, stopwords map[string]struct{}, minFreq, maxTerms int) (map[Label][]string, error) {
	if stopwords == nil {
		stopwords = DefaultStopwords
	}
	if minFreq < 1 {
		minFreq = 2
	}
	if maxTerms < 1 {
		maxTerms = 30
	}

	counts := map[Label]map[string]int{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}

		label := ParseLabel(strings.ToLower(parts[0]))
		if label == Neutral {
			continue
		}

		if counts[label] == nil {
			counts[label] = map[string]int{}
		}
		for _, word := range wordPattern.FindAllString(strings.ToLower(parts[1]), -1) {
			if _, skip := stopwords[word]; skip {
				continue
			}
			counts[label][word]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan feedback log: %w", err)
	}

	suggestions := make(map[Label][]string, len(counts))
	for label, freq := range counts {
		type termCount struct {
			term  string
			count int
		}
		terms := make([]termCount, 0, len(freq))
		for term, count := range freq {
			if count >= minFreq {
				terms = append(terms, termCount{term, count})
			}
		}
		sort.Slice(terms, func(i, j int) bool {
			if terms[i].count != terms[j].count {
				return terms[i].count > terms[j].count
			}
			return terms[i].term < terms[j].term
		})
		if len(terms) > maxTerms {
			terms = terms[:maxTerms]
		}

		words := make([]string, len(terms))
		for i, tc := range terms {
			words[i] = tc.term
		}
		suggestions[label] = words
	}

	return suggestions, nil
}

func buildStopwords(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
