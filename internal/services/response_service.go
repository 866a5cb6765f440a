package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/soaringjerry/VisitPulse/internal/catalog"
	"github.com/soaringjerry/VisitPulse/internal/logger"
	"github.com/soaringjerry/VisitPulse/internal/models"
	"github.com/soaringjerry/VisitPulse/internal/utils"
)

// ResponseService owns the survey write path: deciding whether a submission
// inserts a new row or merges check-out answers into an open check-in.
type ResponseService struct {
	store    ResponseStore
	catalog  *catalog.Catalog
	validate *validator.Validate
	log      *logger.Logger

	// serializes lookup-then-write so two check-outs for one name cannot both merge
	mu sync.Mutex

	now      func() time.Time
	tokenGen func() string
}

func NewResponseService(store ResponseStore, cat *catalog.Catalog, log *logger.Logger) *ResponseService {
	if cat == nil {
		cat = catalog.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ResponseService{
		store:    store,
		catalog:  cat,
		validate: newValidator(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		tokenGen: uuid.NewString,
	}
}

func (s *ResponseService) Catalog() *catalog.Catalog { return s.catalog }

func (s *ResponseService) check(sub *Submission, requireName bool) error {
	fields, err := s.fieldErrors(sub, requireName)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// CheckAnswers validates a partial answer set with the rules of the write
// path. Fields that depend on answers not given yet are not reported.
func (s *ResponseService) CheckAnswers(sub Submission) error {
	fields, err := s.fieldErrors(&sub, false)
	if err != nil {
		return err
	}
	if fields["visitingWithOther"] == "required_if" {
		delete(fields, "visitingWithOther")
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func (s *ResponseService) fieldErrors(sub *Submission, requireName bool) (map[string]string, error) {
	sub.Normalize()
	fields, err := validationFields(s.validate.Struct(sub))
	if err != nil {
		return nil, NewInvalidError(err.Error())
	}
	if requireName && utils.NameKey(sub.Name) == "" {
		fields["name"] = "required"
	}
	if sub.VisitingWith != "" && !s.catalog.HasVisitingWith(sub.VisitingWith) {
		fields["visitingWith"] = "oneof"
	}
	if sub.TopicRanking != nil {
		if err := s.catalog.CheckRanking(sub.TopicRanking); err != nil {
			fields["topicRanking"] = "catalog"
		}
	}
	return fields, nil
}

// Submit stores a submission. Check-in data always creates a row. Check-out
// data merges into the latest open row with the same name (or the row named by
// the visitor token) and otherwise creates a checkout-only row.
func (s *ResponseService) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	if err := s.check(&sub, true); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(ctx, &sub)
}

func (s *ResponseService) submitLocked(ctx context.Context, sub *Submission) (*SubmitResult, error) {
	if !sub.IsCheckout() {
		return s.insert(ctx, sub)
	}
	key := utils.NameKey(sub.Name)
	rows, err := s.store.ListResponsesByNameKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find check-in rows: %w", err)
	}
	target := byToken(rows, sub.VisitorToken)
	if target == nil {
		target = FindMergeTarget(key, rows)
	}
	if target == nil {
		return s.insert(ctx, sub)
	}
	return s.mergeCheckout(ctx, target, sub)
}

// ResumeCheckout merges check-out answers into the row with id, as chosen by
// the reconciler when the visitor started check-out. If that row has been
// completed or removed since, the submission takes the regular Submit path.
func (s *ResponseService) ResumeCheckout(ctx context.Context, id int64, sub Submission) (*SubmitResult, error) {
	if err := s.check(&sub, true); err != nil {
		return nil, err
	}
	if !sub.IsCheckout() {
		return nil, NewValidationError(map[string]string{"feelingAfter": "required"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.store.GetResponse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load response %d: %w", id, err)
	}
	if cur == nil || cur.HasCheckout() {
		s.log.Warn("resume target no longer open, falling back to name match", "id", id)
		return s.submitLocked(ctx, &sub)
	}
	return s.mergeCheckout(ctx, cur, &sub)
}

// Update applies a partial update to the row with id. Present fields overwrite.
func (s *ResponseService) Update(ctx context.Context, id int64, patch Submission) (*models.SurveyResponse, error) {
	if err := s.check(&patch, false); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.store.GetResponse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load response %d: %w", id, err)
	}
	if cur == nil {
		return nil, NewNotFoundError("survey response not found")
	}
	r := cur.Clone()
	if name := utils.CleanName(patch.Name); name != "" {
		r.Name = name
		r.NameKey = utils.NameKey(name)
	}
	applyCheckin(r, &patch)
	applyCheckout(r, &patch)
	r.UpdatedAt = s.now()
	s.derive(r)
	ok, err := s.store.UpdateResponse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("update response %d: %w", id, err)
	}
	if !ok {
		return nil, NewNotFoundError("survey response not found")
	}
	return r, nil
}

func (s *ResponseService) Get(ctx context.Context, id int64) (*models.SurveyResponse, error) {
	r, err := s.store.GetResponse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load response %d: %w", id, err)
	}
	if r == nil {
		return nil, NewNotFoundError("survey response not found")
	}
	return r, nil
}

// List returns all rows, or only those in phase when it is non-empty.
func (s *ResponseService) List(ctx context.Context, phase models.Phase) ([]*models.SurveyResponse, error) {
	if phase != "" && !phase.Valid() {
		return nil, NewValidationError(map[string]string{"phase": "oneof"})
	}
	rows, err := s.store.ListResponses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	if phase == "" {
		return rows, nil
	}
	out := make([]*models.SurveyResponse, 0, len(rows))
	for _, r := range rows {
		if r.Phase == phase {
			out = append(out, r)
		}
	}
	return out, nil
}

// LookupCheckout runs the identity reconciler for a name typed at check-out.
func (s *ResponseService) LookupCheckout(ctx context.Context, name string) (*CheckoutDecision, error) {
	key := utils.NameKey(name)
	if key == "" {
		return nil, NewValidationError(map[string]string{"name": "required"})
	}
	rows, err := s.store.ListResponsesByNameKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find rows by name: %w", err)
	}
	d := ReconcileCheckout(name, rows)
	return &d, nil
}

func (s *ResponseService) insert(ctx context.Context, sub *Submission) (*SubmitResult, error) {
	now := s.now()
	name := utils.CleanName(sub.Name)
	r := &models.SurveyResponse{
		Name:              name,
		NameKey:           utils.NameKey(name),
		VisitorToken:      s.tokenGen(),
		IsNewCheckoutUser: sub.IsCheckout(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	applyCheckin(r, sub)
	applyCheckout(r, sub)
	s.derive(r)
	stored, err := s.store.InsertResponse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}
	s.log.Info("survey response created", "id", stored.ID, "phase", stored.Phase, "name", stored.Name)
	return &SubmitResult{Response: stored, Created: true}, nil
}

func (s *ResponseService) mergeCheckout(ctx context.Context, target *models.SurveyResponse, sub *Submission) (*SubmitResult, error) {
	r := target.Clone()
	applyCheckout(r, sub)
	r.IsNewCheckoutUser = false
	r.UpdatedAt = s.now()
	s.derive(r)
	ok, err := s.store.UpdateResponse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("merge check-out into %d: %w", r.ID, err)
	}
	if !ok {
		return nil, NewNotFoundError("survey response not found")
	}
	s.log.Info("check-out merged", "id", r.ID, "name", r.Name)
	return &SubmitResult{Response: r, Created: false}, nil
}

func (s *ResponseService) derive(r *models.SurveyResponse) { Derive(r, s.catalog) }

// Derive recomputes the fields that are never taken from the client:
// unanswered zeros, the most important topic, the result sentence and the
// phase. A nil catalog means the embedded default.
func Derive(r *models.SurveyResponse, cat *catalog.Catalog) {
	if cat == nil {
		cat = catalog.Default()
	}
	r.ClearZeroAnswers()
	r.MostImportantTopic = ""
	if n := len(r.TopicRanking); n > 0 {
		r.MostImportantTopic = r.TopicRanking[n-1]
	}
	r.Result = ""
	if r.HasCheckout() && r.MostImportantTopic != "" {
		r.Result = Result(r.ActionChoice, cat.TopicLabel(r.MostImportantTopic))
	}
	if !r.HasCheckout() {
		r.IsNewCheckoutUser = false
	}
	r.Phase = ClassifyPhase(r)
}

func applyCheckin(r *models.SurveyResponse, sub *Submission) {
	if sub.Age != nil {
		r.Age = models.Int(*sub.Age)
	}
	if sub.VisitingWith != "" {
		r.VisitingWith = sub.VisitingWith
	}
	if sub.VisitingWithOther != "" {
		r.VisitingWithOther = sub.VisitingWithOther
	}
	if sub.TopicRanking != nil {
		r.TopicRanking = append([]string(nil), sub.TopicRanking...)
	}
	if sub.FeelingBefore != nil {
		r.FeelingBefore = models.Int(*sub.FeelingBefore)
	}
	if sub.ConfidenceBefore != nil {
		r.ConfidenceBefore = models.Int(*sub.ConfidenceBefore)
	}
	if sub.KnowledgeBefore != nil {
		r.KnowledgeBefore = models.Int(*sub.KnowledgeBefore)
	}
}

func applyCheckout(r *models.SurveyResponse, sub *Submission) {
	if sub.FeelingAfter != nil {
		r.FeelingAfter = models.Int(*sub.FeelingAfter)
	}
	if sub.ActionChoice != "" {
		r.ActionChoice = sub.ActionChoice
	}
	if sub.ConfidenceAfter != nil {
		r.ConfidenceAfter = models.Int(*sub.ConfidenceAfter)
	}
	if sub.LearnedSomethingNew != nil {
		r.LearnedSomethingNew = models.Bool(*sub.LearnedSomethingNew)
	}
	if sub.MostInterestingLearned != "" {
		r.MostInterestingLearned = sub.MostInterestingLearned
	}
}

func byToken(rows []*models.SurveyResponse, token string) *models.SurveyResponse {
	if token == "" {
		return nil
	}
	for _, r := range rows {
		if r.VisitorToken == token && !r.HasCheckout() {
			return r
		}
	}
	return nil
}
