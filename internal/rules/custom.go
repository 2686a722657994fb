package rules

import (
	"regexp"
	"strings"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// SplitWordList splits a multi-line custom word list into lines.
func SplitWordList(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return lineBreak.Split(text, -1)
}

// ParseCustomRules splits a custom word list into phrases to add and phrases to
// exclude. Blank lines are ignored; a line starting with "-" is an exclusion
// whose remainder keeps its case.
func ParseCustomRules(text string) (phrases, exclusions []string) {
	return parseLines(SplitWordList(text))
}

func parseLines(lines []string) (phrases, exclusions []string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "-"); ok {
			if rest = strings.TrimSpace(rest); rest != "" {
				exclusions = append(exclusions, rest)
			}
			continue
		}
		phrases = append(phrases, line)
	}
	return phrases, exclusions
}
