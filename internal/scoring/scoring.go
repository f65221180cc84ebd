// Package scoring recovers a 0-100 score from free-text feedback.
package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultScore is returned when no rule matches.
const DefaultScore = 75

const (
	minScore = 0
	maxScore = 100
)

type rule struct {
	name    string
	pattern *regexp.Regexp
}

// Rules run in order and the first match wins. Later rules are more
// permissive and would false-positive on unrelated numbers if run first.
var rules = []rule{
	{name: "score_out_of_100", pattern: regexp.MustCompile(`(?i)\bscore\b[\s:=\-]*(\d+)\s*/\s*100\b`)},
	{name: "out_of_100", pattern: regexp.MustCompile(`(?i)(\d+)\s*/\s*100\b`)},
	{name: "score", pattern: regexp.MustCompile(`(?i)\bscore\b[\s:=\-]*(\d+)`)},
	{name: "rating", pattern: regexp.MustCompile(`(?i)\brating\b[\s:=\-]*(\d+)`)},
}

// Extract returns the first rule match clamped to [0,100], or DefaultScore.
func Extract(text string) int {
	score, _ := ExtractWithRule(text)
	return score
}

// ExtractWithRule also reports which rule matched, "default" when none did.
func ExtractWithRule(text string) (int, string) {
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return clamp(m[1]), r.name
	}
	return DefaultScore, "default"
}

func clamp(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		// only overflow reaches here, and overflow is always above the range
		return maxScore
	}
	if n < minScore {
		return minScore
	}
	if n > maxScore {
		return maxScore
	}
	return n
}

var markdownTokens = strings.NewReplacer(
	"###", "",
	"##", "",
	"**", "",
	"__", "",
	"`", "",
)

// StripMarkdown removes literal heading, emphasis and code tokens. Nothing
// else is rewritten.
func StripMarkdown(text string) string {
	return markdownTokens.Replace(text)
}
