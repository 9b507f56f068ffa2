package questionnaire

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// "12. answer" or "12) answer", one per line.
	reAnswerLine = regexp.MustCompile(`(?m)^[ \t]*(\d+)[.)][ \t]*(.*)$`)
)

// fieldSeparators split "index<sep>value" lines in /add and /edit bodies.
const fieldSeparators = ":.-"

// ExtractAnswers finds every numbered answer line in a questionnaire reply.
// Lines without a number, with a zero index or with an empty answer are
// ignored. An empty result means the reply had the wrong format.
func ExtractAnswers(text string) map[int]string {
	answers := make(map[int]string)
	for _, m := range reAnswerLine.FindAllStringSubmatch(text, -1) {
		q, err := strconv.Atoi(m[1])
		if err != nil || q < 1 {
			continue
		}
		answer := strings.TrimSpace(m[2])
		if answer == "" {
			continue
		}
		answers[q] = answer
	}
	return answers
}

// ExtractFieldUpdates parses "index: value" lines, where the separator is
// the first of ':', '.' or '-'. Lines that don't parse are skipped. Values
// may be empty, which clears that answer when applied.
func ExtractFieldUpdates(block string) map[int]string {
	updates := make(map[int]string)
	// Lines may be arbitrarily long.
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		i := strings.IndexAny(line, fieldSeparators)
		if i < 0 {
			continue
		}
		q, err := strconv.Atoi(strings.TrimSpace(line[:i]))
		if err != nil || q < 1 {
			continue
		}
		updates[q] = strings.TrimSpace(line[i+1:])
	}
	return updates
}
