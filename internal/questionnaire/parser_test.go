package questionnaire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAnswers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[int]string
	}{
		{"dot and paren", "1. Hi\n2) Bob\n", map[int]string{1: "Hi", 2: "Bob"}},
		{"no numbers", "no numbers here", map[int]string{}},
		{"extra whitespace", "  3.   Anna  \n\t4)\tnone \n", map[int]string{3: "Anna", 4: "none"}},
		{"no space after separator", "1.Ann\n2)23", map[int]string{1: "Ann", 2: "23"}},
		{"windows newlines", "1. Ann\r\n2. 23\r\n", map[int]string{1: "Ann", 2: "23"}},
		{"chatter between answers", "hi all!\n1. Ann\nsorry, forgot:\n10. 1 May", map[int]string{1: "Ann", 10: "1 May"}},
		{"answer keeps separators", "11. Fate: Zero, K-On!", map[int]string{11: "Fate: Zero, K-On!"}},
		{"later duplicate wins", "1. Ann\n1. Anna", map[int]string{1: "Anna"}},
		{"empty answer skipped", "1.\n2. Bob", map[int]string{2: "Bob"}},
		{"zero index skipped", "0. nothing\n5) job", map[int]string{5: "job"}},
		{"number mid line is not an answer", "I am 25. Really", map[int]string{}},
		{"overflowing index skipped", "99999999999999999999. big\n7. RU", map[int]string{7: "RU"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAnswers(tt.text))
		})
	}
}

func TestExtractFieldUpdates(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  map[int]string
	}{
		{"first separator splits", "3: hello: world", map[int]string{3: "hello: world"}},
		{"all separators", "1: Ann\n2. 25 years\n5 - programmer", map[int]string{1: "Ann", 2: "25 years", 5: "programmer"}},
		{"value with other separators", "8. Saint-Petersburg", map[int]string{8: "Saint-Petersburg"}},
		{"empty value kept for removal", "4:\n6 - ", map[int]string{4: "", 6: ""}},
		{"unparseable lines dropped", "hello\nx: y\n: z\n2: ok\n-1: neg\n0: zero", map[int]string{2: "ok"}},
		{"blank block", "", map[int]string{}},
		{"windows newlines", "1: Ann\r\n2. 25\r\n", map[int]string{1: "Ann", 2: "25"}},
		{"lines after a very long line", "1: a\n" + strings.Repeat("x", 70000) + "\n2: b\n3: c", map[int]string{1: "a", 2: "b", 3: "c"}},
		{"very long value", "9: " + strings.Repeat("y", 70000), map[int]string{9: strings.Repeat("y", 70000)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFieldUpdates(tt.block))
		})
	}
}
