// Package intake turns classified chat input into store and formatter
// calls. It never talks to the network; the bot adapter decides which Flow
// a message belongs to and sends back whatever Dispatch returns.
package intake

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/eliseohh/welcomebot/internal/profile"
	"github.com/eliseohh/welcomebot/internal/questionnaire"
)

var (
	// ErrFormat means the text held no parseable answer lines.
	ErrFormat = errors.New("no answers found")
	// ErrExists means /add named a user who already has a profile.
	ErrExists = profile.ErrExists
	// ErrUsage means a required part of the request is missing.
	ErrUsage = errors.New("invalid request")
)

type Flow int

const (
	FlowOnboarding Flow = iota + 1 // reply to the welcome questionnaire
	FlowAdd                        // /add @name + answer lines
	FlowEdit                       // /edit @name + answer lines
	FlowInfo                       // /info, /info all, /info @name
)

func (f Flow) String() string {
	switch f {
	case FlowOnboarding:
		return "onboarding"
	case FlowAdd:
		return "add"
	case FlowEdit:
		return "edit"
	case FlowInfo:
		return "info"
	default:
		return fmt.Sprintf("flow(%d)", int(f))
	}
}

// Sender is the account a message came from.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

type Request struct {
	Flow   Flow
	Sender Sender
	Target string // username for add/edit/info
	Body   string // answer text
	Full   bool   // info: render every profile in full
}

// Result is what the adapter sends back. Saved lists the question numbers
// written by an onboarding reply, ascending.
type Result struct {
	Chunks  []string
	Profile profile.Profile
	Saved   []int
}

type Service struct {
	store      profile.Store
	chunkLimit int
}

func NewService(store profile.Store, chunkLimit int) *Service {
	if chunkLimit <= 0 {
		chunkLimit = questionnaire.MaxMessageChars
	}
	return &Service{store: store, chunkLimit: chunkLimit}
}

func (s *Service) Dispatch(req Request) (Result, error) {
	switch req.Flow {
	case FlowOnboarding:
		return s.SubmitAnswers(req.Sender, req.Body)
	case FlowAdd:
		return s.Add(req.Target, req.Body)
	case FlowEdit:
		return s.Edit(req.Target, req.Body)
	case FlowInfo:
		if req.Target != "" {
			return s.Lookup(req.Target)
		}
		return s.Roster(req.Full)
	default:
		return Result{}, fmt.Errorf("%w: unknown flow %s", ErrUsage, req.Flow)
	}
}

// SubmitAnswers stores a questionnaire reply on the sender's own profile.
// Answers not mentioned in the reply are kept.
func (s *Service) SubmitAnswers(sender Sender, text string) (Result, error) {
	answers := questionnaire.ExtractAnswers(text)
	if len(answers) == 0 {
		return Result{}, ErrFormat
	}

	p, err := s.store.Update(sender.ID, func(p *profile.Profile) {
		p.Username = sender.Username
		p.FirstName = sender.FirstName
		p.LastName = sender.LastName
		p.Apply(answers)
	})
	if err != nil {
		return Result{}, fmt.Errorf("save answers for %d: %w", sender.ID, err)
	}

	saved := make([]int, 0, len(answers))
	for q := range answers {
		saved = append(saved, q)
	}
	slices.Sort(saved)
	return Result{
		Chunks:  []string{questionnaire.SavedReply(saved)},
		Profile: p,
		Saved:   saved,
	}, nil
}

// Add creates a profile by hand for someone who has not answered yet.
func (s *Service) Add(name, body string) (Result, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return Result{}, ErrUsage
	}
	// AddUnlinked checks again atomically; this one reports a taken name
	// ahead of a malformed body.
	if _, err := s.store.FindByName(name); err == nil {
		return Result{}, ErrExists
	} else if !errors.Is(err, profile.ErrNotFound) {
		return Result{}, fmt.Errorf("add %q: %w", name, err)
	}

	updates := questionnaire.ExtractFieldUpdates(body)
	if len(updates) == 0 {
		return Result{}, ErrFormat
	}

	p := profile.Profile{Username: name}
	p.Apply(updates)
	p, err := s.store.AddUnlinked(p)
	if err != nil {
		return Result{}, fmt.Errorf("add %q: %w", name, err)
	}
	return Result{Chunks: []string{questionnaire.FormatProfile(p)}, Profile: p}, nil
}

// Edit applies "index: value" lines to the named profile. An empty value
// removes that answer.
func (s *Service) Edit(name, body string) (Result, error) {
	if strings.TrimSpace(name) == "" {
		return Result{}, ErrUsage
	}
	found, err := s.store.FindByName(name)
	if err != nil {
		return Result{}, err
	}

	updates := questionnaire.ExtractFieldUpdates(body)
	if len(updates) == 0 {
		return Result{Chunks: []string{questionnaire.FormatProfile(found)}, Profile: found}, ErrFormat
	}

	p, err := s.store.Update(found.ID, func(p *profile.Profile) {
		p.Apply(updates)
	})
	if err != nil {
		return Result{}, fmt.Errorf("edit %q: %w", name, err)
	}
	return Result{Chunks: []string{questionnaire.FormatProfile(p)}, Profile: p}, nil
}

func (s *Service) Lookup(name string) (Result, error) {
	p, err := s.store.FindByName(name)
	if err != nil {
		return Result{}, err
	}
	return Result{Chunks: []string{questionnaire.FormatProfile(p)}, Profile: p}, nil
}

func (s *Service) Roster(full bool) (Result, error) {
	profiles, err := s.store.List()
	if err != nil {
		return Result{}, fmt.Errorf("roster: %w", err)
	}
	mode := questionnaire.RosterList
	if full {
		mode = questionnaire.RosterFull
	}
	return Result{Chunks: questionnaire.FormatRoster(profiles, mode, s.chunkLimit)}, nil
}
