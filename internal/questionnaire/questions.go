// Package questionnaire knows the onboarding questions, reads answers out
// of chat messages and renders profiles back into chat text.
package questionnaire

import (
	"fmt"
	"strings"
)

type Question struct {
	Index  int
	Label  string // shown next to the answer in a profile
	Prompt string // asked in the welcome message
}

var Questions = []Question{
	{1, "Name", "What's your name?"},
	{2, "Age", "How old are you?"},
	{3, "Study", "Where do you study?"},
	{4, "Major", "If you're past school, what are you studying to become?"},
	{5, "Job", "If you don't study at all, what do you work as?"},
	{6, "Occupation", "If you don't work, what do you do?"},
	{7, "Country", "Which country are you from? (optional)"},
	{8, "City", "Which city are you from? (optional)"},
	{9, "Alias", "What's your nickname on the marketplace?"},
	{10, "Birthday", "When is your birthday?"},
	{11, "Collectibles", "Which titles do you collect?"},
	{12, "Heard of the magic chebureks?", "Be honest: have you ever heard of the magic chebureks?)"},
	{13, "Do you have any?", "If you have, do you own any?"},
	{14, "How many?", "If you do, how many?)))"},
}

var labels = func() map[int]string {
	m := make(map[int]string, len(Questions))
	for _, q := range Questions {
		m[q.Index] = q.Label
	}
	return m
}()

// Label returns the display label for a question index. Indices outside
// the questionnaire get a generic label.
func Label(index int) string {
	if l, ok := labels[index]; ok {
		return l
	}
	return fmt.Sprintf("Question %d", index)
}

// WelcomeMarker appears in every welcome message; replies to a message
// containing it are treated as questionnaire answers.
const WelcomeMarker = "welcome aboard"

// Welcome builds the greeting for a new member. mention is already
// formatted for HTML.
func Welcome(mention string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s! 😁\n\n", mention, WelcomeMarker)
	b.WriteString("Here come the standard questions:\n")
	for _, q := range Questions {
		fmt.Fprintf(&b, "%d. %s\n", q.Index, q.Prompt)
	}
	b.WriteString("\nReply to this message with your answers like this:\n1. answer\n2. answer\nand so on")
	return b.String()
}

// FormatHint is sent when a reply contains no numbered answers.
const FormatHint = "I couldn't read your answers.\n" +
	"Please put the question number before each answer, for example:\n" +
	"1. Name\n2. Age\n3. Study\nand so on"

// SavedReply acknowledges a questionnaire reply. indices must be sorted.
func SavedReply(indices []int) string {
	nums := make([]string, len(indices))
	for i, n := range indices {
		nums[i] = fmt.Sprint(n)
	}
	return "Thanks for your answers! I saved: " + strings.Join(nums, ", ") + ".\n" +
		"Use /info @username to look up a member\n" +
		"Use /info all to see everyone in the club\n" +
		"And try the magic /motto command 😉"
}
