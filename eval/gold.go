// Package eval checks generated answers against a gold set and sweeps
// retrieval parameters.
package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Case is one newline-delimited gold record: a question plus the substrings
// a correct answer must contain.
type Case struct {
	Question            string   `json:"question"`
	IdealAnswerContains []string `json:"ideal_answer_contains"`
}

// LoadGold reads a JSONL gold file, skipping blank lines.
func LoadGold(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gold file: %w", err)
	}
	defer f.Close()

	var cases []Case
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var c Case
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("parse gold line %d: %w", lineNo, err)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gold file: %w", err)
	}

	return cases, nil
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// AnswerMatches reports whether every required substring appears in the
// answer, comparing case-insensitively with collapsed whitespace.
func AnswerMatches(answer string, mustContain []string) bool {
	normalized := whitespacePattern.ReplaceAllString(strings.ToLower(answer), " ")
	for _, term := range mustContain {
		if !strings.Contains(normalized, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
