// Package wizard models the kiosk questionnaire as an explicit state machine.
// A Session is a plain value: it can be held by a client, stored server-side
// or round-tripped through JSON.
package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/soaringjerry/VisitPulse/internal/utils"
)

type Mode string

const (
	ModeCheckin      Mode = "checkin"
	ModeCheckout     Mode = "checkout"
	ModeCheckoutOnly Mode = "checkout_only"
)

type Section string

const (
	SectionEntry        Section = "entry"
	SectionCheckinName  Section = "checkin-name"
	SectionCheckoutName Section = "checkout-name"
	SectionQuestion1    Section = "question-1"
	SectionQuestion2    Section = "question-2"
	SectionQuestion3    Section = "question-3"
	SectionQuestion4    Section = "question-4"
	SectionQuestion5    Section = "question-5"
	SectionQuestion6    Section = "question-6"
	SectionQuestion7    Section = "question-7"
	SectionQuestion8    Section = "question-8"
	SectionQuestion9    Section = "question-9"
	SectionCheckinDone  Section = "checkin-done"
	SectionResults      Section = "results"
)

var knownSections = map[Section]bool{
	SectionEntry: true, SectionCheckinName: true, SectionCheckoutName: true,
	SectionQuestion1: true, SectionQuestion2: true, SectionQuestion3: true,
	SectionQuestion4: true, SectionQuestion5: true, SectionQuestion6: true,
	SectionQuestion7: true, SectionQuestion8: true, SectionQuestion9: true,
	SectionCheckinDone: true, SectionResults: true,
}

var (
	ErrWrongSection   = errors.New("wizard: action not allowed in this section")
	ErrLookupRequired = errors.New("wizard: check-out name needs a lookup before continuing")
	ErrLastSection    = errors.New("wizard: last question, complete the session instead")
	ErrNoHistory      = errors.New("wizard: nothing to go back to")
	ErrCompleted      = errors.New("wizard: session already completed")
	ErrUnknownMode    = errors.New("wizard: unknown mode")
)

// MissingError lists the required fields of a section that are still unanswered.
type MissingError struct {
	Section Section
	Fields  []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("wizard: %s is missing %s", e.Section, strings.Join(e.Fields, ", "))
}

type Session struct {
	ID         string    `json:"id"`
	Mode       Mode      `json:"mode,omitempty"`
	Current    Section   `json:"currentSection"`
	History    []Section `json:"history"`
	Answers    Answers   `json:"answers"`
	ResumeID   int64     `json:"resumeId,omitempty"`
	IsComplete bool      `json:"isComplete"`
}

func New(id string) *Session {
	return &Session{ID: id, Current: SectionEntry, History: []Section{}}
}

// Choose picks check-in or check-out on the entry screen.
func (s *Session) Choose(mode Mode) error {
	if s.IsComplete {
		return ErrCompleted
	}
	if s.Current != SectionEntry {
		return ErrWrongSection
	}
	switch mode {
	case ModeCheckin:
		s.advance(SectionCheckinName)
	case ModeCheckout:
		s.advance(SectionCheckoutName)
	default:
		return ErrUnknownMode
	}
	s.Mode = mode
	return nil
}

// Apply merges answers into the session. Completed sessions are read-only.
func (s *Session) Apply(in Answers) error {
	if s.IsComplete {
		return ErrCompleted
	}
	s.Answers.merge(in)
	return nil
}

// Missing returns the required fields of the current section that are unanswered.
func (s *Session) Missing() []string {
	a := &s.Answers
	var out []string
	need := func(ok bool, field string) {
		if !ok {
			out = append(out, field)
		}
	}
	switch s.Current {
	case SectionCheckinName, SectionCheckoutName:
		need(utils.NameKey(a.Name) != "", "name")
	case SectionQuestion1:
		need(a.Age != nil, "age")
	case SectionQuestion2:
		need(a.VisitingWith != "", "visitingWith")
		if a.VisitingWith == "other" {
			need(a.VisitingWithOther != "", "visitingWithOther")
		}
	case SectionQuestion3:
		need(len(a.TopicRanking) > 0, "topicRanking")
	case SectionQuestion4:
		need(a.FeelingBefore != nil, "feelingBefore")
	case SectionQuestion5:
		need(a.ConfidenceBefore != nil, "confidenceBefore")
		need(a.KnowledgeBefore != nil, "knowledgeBefore")
	case SectionQuestion6:
		need(a.FeelingAfter != nil, "feelingAfter")
	case SectionQuestion7:
		need(a.ActionChoice != "", "actionChoice")
	case SectionQuestion8:
		need(a.ConfidenceAfter != nil, "confidenceAfter")
	case SectionQuestion9:
		need(a.LearnedSomethingNew != nil, "learnedSomethingNew")
	}
	return out
}

func (s *Session) requireAnswered() error {
	if m := s.Missing(); len(m) > 0 {
		return &MissingError{Section: s.Current, Fields: m}
	}
	return nil
}

// Next moves to the following section. At checkout-name the caller must run
// the identity lookup and call Resume or StartCheckoutOnly instead.
func (s *Session) Next() error {
	if s.IsComplete {
		return ErrCompleted
	}
	if err := s.requireAnswered(); err != nil {
		return err
	}
	var to Section
	switch s.Current {
	case SectionEntry:
		return ErrWrongSection
	case SectionCheckoutName:
		return ErrLookupRequired
	case SectionCheckinName:
		to = SectionQuestion1
	case SectionQuestion1:
		to = SectionQuestion2
	case SectionQuestion2:
		to = SectionQuestion3
	case SectionQuestion3:
		r := s.Answers.TopicRanking
		s.Answers.MostImportantTopic = r[len(r)-1]
		if s.Mode == ModeCheckoutOnly {
			to = SectionQuestion6
		} else {
			to = SectionQuestion4
		}
	case SectionQuestion4:
		to = SectionQuestion5
	case SectionQuestion6:
		to = SectionQuestion7
	case SectionQuestion7:
		to = SectionQuestion8
	case SectionQuestion8:
		to = SectionQuestion9
	case SectionQuestion5, SectionQuestion9:
		return ErrLastSection
	default:
		return ErrWrongSection
	}
	s.advance(to)
	return nil
}

// Resume continues a check-out for a returning visitor: the check-in answers
// of row id are copied in and the check-in questions are skipped.
func (s *Session) Resume(id int64, prior Answers) error {
	if err := s.atCheckoutName(); err != nil {
		return err
	}
	a := &s.Answers
	a.clearCheckin()
	a.VisitorToken = prior.VisitorToken
	a.Age = copyInt(prior.Age)
	a.VisitingWith = prior.VisitingWith
	a.VisitingWithOther = prior.VisitingWithOther
	if len(prior.TopicRanking) > 0 {
		a.TopicRanking = append([]string(nil), prior.TopicRanking...)
	}
	a.MostImportantTopic = prior.MostImportantTopic
	a.FeelingBefore = copyInt(prior.FeelingBefore)
	a.ConfidenceBefore = copyInt(prior.ConfidenceBefore)
	s.ResumeID = id
	s.advance(SectionQuestion6)
	return nil
}

// StartCheckoutOnly switches to the flow for visitors without a usable
// check-in: demographics and ranking first, then the check-out questions.
func (s *Session) StartCheckoutOnly() error {
	if err := s.atCheckoutName(); err != nil {
		return err
	}
	s.Answers.clearCheckin()
	s.Mode = ModeCheckoutOnly
	s.ResumeID = 0
	s.advance(SectionQuestion1)
	return nil
}

func (s *Session) atCheckoutName() error {
	if s.IsComplete {
		return ErrCompleted
	}
	if s.Current != SectionCheckoutName {
		return ErrWrongSection
	}
	return s.requireAnswered()
}

// Previous returns to the section visited before the current one. Derived
// answers are left as they are.
func (s *Session) Previous() error {
	if s.IsComplete {
		return ErrCompleted
	}
	n := len(s.History)
	if n == 0 {
		return ErrNoHistory
	}
	s.Current = s.History[n-1]
	s.History = s.History[:n-1]
	switch s.Current {
	case SectionEntry:
		s.Mode = ""
	case SectionCheckoutName:
		s.Mode = ModeCheckout
		s.ResumeID = 0
	}
	return nil
}

// CanComplete reports whether the session is on the last question of its flow.
func (s *Session) CanComplete() bool {
	if s.IsComplete {
		return false
	}
	switch s.Mode {
	case ModeCheckin:
		return s.Current == SectionQuestion5
	case ModeCheckout, ModeCheckoutOnly:
		return s.Current == SectionQuestion9
	}
	return false
}

// Complete finishes the flow and moves to its terminal section.
func (s *Session) Complete() error {
	if s.IsComplete {
		return ErrCompleted
	}
	if !s.CanComplete() {
		return ErrWrongSection
	}
	if err := s.requireAnswered(); err != nil {
		return err
	}
	if s.Mode == ModeCheckin {
		s.advance(SectionCheckinDone)
	} else {
		s.advance(SectionResults)
	}
	s.IsComplete = true
	return nil
}

func (s *Session) advance(to Section) {
	s.History = append(s.History, s.Current)
	s.Current = to
}

func (s *Session) Clone() *Session {
	cp := *s
	cp.History = append([]Section{}, s.History...)
	cp.Answers = s.Answers.clone()
	return &cp
}

func (s *Session) Encode() ([]byte, error) { return json.Marshal(s) }

// Decode restores a session from Encode output.
func Decode(b []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if !knownSections[s.Current] {
		return nil, fmt.Errorf("decode session: unknown section %q", s.Current)
	}
	for _, h := range s.History {
		if !knownSections[h] {
			return nil, fmt.Errorf("decode session: unknown section %q in history", h)
		}
	}
	switch s.Mode {
	case "", ModeCheckin, ModeCheckout, ModeCheckoutOnly:
	default:
		return nil, fmt.Errorf("decode session: %w %q", ErrUnknownMode, s.Mode)
	}
	if s.History == nil {
		s.History = []Section{}
	}
	return &s, nil
}
