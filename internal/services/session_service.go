package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/VisitPulse/internal/logger"
	"github.com/soaringjerry/VisitPulse/internal/models"
	"github.com/soaringjerry/VisitPulse/internal/wizard"
)

// SessionService hosts kiosk wizard sessions in memory and drives them
// through the reconciler and the write path.
type SessionService struct {
	responses      *ResponseService
	log            *logger.Logger
	ttl            time.Duration
	resultsTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	now   func() time.Time
	idGen func() string
}

type sessionEntry struct {
	mu          sync.Mutex
	session     *wizard.Session
	touched     time.Time
	completedAt time.Time
	response    *models.SurveyResponse
}

// SessionState is what callers see of a session after each step.
type SessionState struct {
	Session     *wizard.Session        `json:"session"`
	Missing     []string               `json:"missing"`
	CanComplete bool                   `json:"canComplete"`
	Response    *models.SurveyResponse `json:"response,omitempty"`
	ExpiresAt   time.Time              `json:"expiresAt"`
}

func NewSessionService(responses *ResponseService, ttl, resultsTimeout time.Duration, log *logger.Logger) *SessionService {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if resultsTimeout <= 0 {
		resultsTimeout = 30 * time.Second
	}
	return &SessionService{
		responses:      responses,
		log:            log,
		ttl:            ttl,
		resultsTimeout: resultsTimeout,
		sessions:       map[string]*sessionEntry{},
		now:            func() time.Time { return time.Now().UTC() },
		idGen:          uuid.NewString,
	}
}

// Start opens a session. An empty mode leaves it on the entry screen.
func (s *SessionService) Start(mode wizard.Mode) (*SessionState, error) {
	sess := wizard.New(s.idGen())
	if mode != "" {
		if err := sess.Choose(mode); err != nil {
			return nil, wizardError(err)
		}
	}
	e := &sessionEntry{session: sess, touched: s.now()}
	s.mu.Lock()
	s.sessions[sess.ID] = e
	s.mu.Unlock()
	return s.state(e), nil
}

func (s *SessionService) Get(id string) (*SessionState, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.state(e), nil
}

func (s *SessionService) Choose(id string, mode wizard.Mode) (*SessionState, error) {
	return s.step(id, func(sess *wizard.Session) error { return sess.Choose(mode) })
}

// Answer merges answers into the session. Answers that the write path would
// reject are refused here, before the session moves past their question.
func (s *SessionService) Answer(id string, in wizard.Answers) (*SessionState, error) {
	if err := s.responses.CheckAnswers(toSubmission(wizard.ModeCheckout, in)); err != nil {
		return nil, err
	}
	return s.step(id, func(sess *wizard.Session) error { return sess.Apply(in) })
}

func (s *SessionService) Previous(id string) (*SessionState, error) {
	return s.step(id, func(sess *wizard.Session) error { return sess.Previous() })
}

// Next advances the session. On the check-out name screen it runs the
// identity lookup: a returning visitor resumes at the first check-out
// question, an unknown one starts the checkout-only flow, and a name that
// already checked out is refused with a conflict.
func (s *SessionService) Next(ctx context.Context, id string) (*SessionState, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sess := e.session
	if sess.Current != wizard.SectionCheckoutName {
		if err := sess.Next(); err != nil {
			return nil, wizardError(err)
		}
		e.touched = s.now()
		return s.state(e), nil
	}
	if m := sess.Missing(); len(m) > 0 {
		return nil, wizardError(&wizard.MissingError{Section: sess.Current, Fields: m})
	}
	d, err := s.responses.LookupCheckout(ctx, sess.Answers.Name)
	if err != nil {
		return nil, err
	}
	switch d.Status {
	case CheckoutConflict:
		s.log.Info("check-out name already used", "session", id, "name", sess.Answers.Name)
		return nil, NewConflictError("checkout.conflict")
	case CheckoutReturning:
		err = sess.Resume(d.Prefill.ResponseID, prefillAnswers(d.Prefill))
	default:
		err = sess.StartCheckoutOnly()
	}
	if err != nil {
		return nil, wizardError(err)
	}
	e.touched = s.now()
	return s.state(e), nil
}

// Complete saves the session's answers and moves it to its terminal section.
// The session is left untouched when saving fails.
func (s *SessionService) Complete(ctx context.Context, id string) (*SessionState, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sess := e.session
	if sess.IsComplete {
		return nil, wizardError(wizard.ErrCompleted)
	}
	if !sess.CanComplete() {
		return nil, wizardError(wizard.ErrWrongSection)
	}
	if m := sess.Missing(); len(m) > 0 {
		return nil, wizardError(&wizard.MissingError{Section: sess.Current, Fields: m})
	}
	sub := toSubmission(sess.Mode, sess.Answers)
	var res *SubmitResult
	if sess.ResumeID != 0 {
		res, err = s.responses.ResumeCheckout(ctx, sess.ResumeID, sub)
	} else {
		res, err = s.responses.Submit(ctx, sub)
	}
	if err != nil {
		return nil, err
	}
	if err := sess.Complete(); err != nil {
		return nil, wizardError(err)
	}
	now := s.now()
	e.touched = now
	e.completedAt = now
	e.response = res.Response
	return s.state(e), nil
}

func (s *SessionService) step(id string, fn func(*wizard.Session) error) (*SessionState, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.session); err != nil {
		return nil, wizardError(err)
	}
	e.touched = s.now()
	return s.state(e), nil
}

func (s *SessionService) entry(id string) (*sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, NewNotFoundError("session not found")
	}
	e.mu.Lock()
	expired := s.expired(e, s.now())
	e.mu.Unlock()
	if expired {
		delete(s.sessions, id)
		return nil, NewNotFoundError("session not found")
	}
	return e, nil
}

// expired must be called with e.mu held.
func (s *SessionService) expired(e *sessionEntry, now time.Time) bool {
	return now.After(s.expiresAt(e))
}

func (s *SessionService) expiresAt(e *sessionEntry) time.Time {
	if !e.completedAt.IsZero() {
		return e.completedAt.Add(s.resultsTimeout)
	}
	return e.touched.Add(s.ttl)
}

func (s *SessionService) state(e *sessionEntry) *SessionState {
	return &SessionState{
		Session:     e.session.Clone(),
		Missing:     e.session.Missing(),
		CanComplete: e.session.CanComplete(),
		Response:    e.response.Clone(),
		ExpiresAt:   s.expiresAt(e),
	}
}

// Sweep drops expired sessions and reports how many were removed.
func (s *SessionService) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		gone := s.expired(e, now)
		e.mu.Unlock()
		if gone {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps every interval until ctx is cancelled.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

func prefillAnswers(p *CheckoutPrefill) wizard.Answers {
	return wizard.Answers{
		VisitorToken:       p.VisitorToken,
		Age:                p.Age,
		VisitingWith:       p.VisitingWith,
		VisitingWithOther:  p.VisitingWithOther,
		TopicRanking:       p.TopicRanking,
		MostImportantTopic: p.MostImportantTopic,
		FeelingBefore:      p.FeelingBefore,
		ConfidenceBefore:   p.ConfidenceBefore,
	}
}

// toSubmission converts wizard answers; a check-in session never carries
// check-out answers into the write path.
func toSubmission(mode wizard.Mode, a wizard.Answers) Submission {
	sub := Submission{
		Name:              a.Name,
		VisitorToken:      a.VisitorToken,
		Age:               a.Age,
		VisitingWith:      a.VisitingWith,
		VisitingWithOther: a.VisitingWithOther,
		TopicRanking:      a.TopicRanking,
		FeelingBefore:     a.FeelingBefore,
		ConfidenceBefore:  a.ConfidenceBefore,
		KnowledgeBefore:   a.KnowledgeBefore,
	}
	if mode == wizard.ModeCheckin {
		sub.VisitorToken = ""
		return sub
	}
	sub.FeelingAfter = a.FeelingAfter
	sub.ActionChoice = a.ActionChoice
	sub.ConfidenceAfter = a.ConfidenceAfter
	sub.LearnedSomethingNew = a.LearnedSomethingNew
	sub.MostInterestingLearned = a.MostInterestingLearned
	return sub
}

func wizardError(err error) error {
	var me *wizard.MissingError
	if errors.As(err, &me) {
		fields := make(map[string]string, len(me.Fields))
		for _, f := range me.Fields {
			fields[f] = "required"
		}
		return NewValidationError(fields)
	}
	if errors.Is(err, wizard.ErrUnknownMode) {
		return NewValidationError(map[string]string{"mode": "oneof"})
	}
	return NewConflictError(err.Error())
}
