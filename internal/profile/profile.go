// Package profile holds member profiles and the stores that keep them.
package profile

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrNotFound is returned by name lookups that match no profile.
	ErrNotFound = errors.New("profile not found")
	// ErrExists is returned when a manual profile would reuse a taken username.
	ErrExists = errors.New("profile already exists")
)

// Profile is one member's identity plus their questionnaire answers.
// ID is positive for a real account and negative for a profile added by
// hand that has not been linked to an account yet.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Answers   map[int]string
}

// New returns an empty profile for id.
func New(id int64) Profile {
	return Profile{ID: id, Answers: make(map[int]string)}
}

func (p Profile) Linked() bool {
	return p.ID > 0
}

// SetAnswer is the only write path for answers. Blank text removes the
// question, anything else is stored HTML-escaped.
func (p *Profile) SetAnswer(question int, text string) {
	if p.Answers == nil {
		p.Answers = make(map[int]string)
	}
	if strings.TrimSpace(text) == "" {
		delete(p.Answers, question)
		return
	}
	p.Answers[question] = html.EscapeString(text)
}

// Apply runs every update through SetAnswer.
func (p *Profile) Apply(updates map[int]string) {
	for q, text := range updates {
		p.SetAnswer(q, text)
	}
}

// Clone returns a copy that shares no map with p.
func (p Profile) Clone() Profile {
	out := p
	out.Answers = make(map[int]string, len(p.Answers))
	for q, a := range p.Answers {
		out.Answers[q] = a
	}
	return out
}

// FullName joins first and last name, skipping empty parts.
func (p Profile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// NormalizeName turns "@Ann " into the lookup key "ann".
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
