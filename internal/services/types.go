package services

import (
	"context"

	"github.com/soaringjerry/VisitPulse/internal/models"
	"github.com/soaringjerry/VisitPulse/internal/utils"
)

// ResponseStore abstracts persistence of survey rows.
type ResponseStore interface {
	InsertResponse(ctx context.Context, r *models.SurveyResponse) (*models.SurveyResponse, error)
	// UpdateResponse overwrites the row with r.ID; it returns false when no such row exists.
	UpdateResponse(ctx context.Context, r *models.SurveyResponse) (bool, error)
	GetResponse(ctx context.Context, id int64) (*models.SurveyResponse, error)
	ListResponses(ctx context.Context) ([]*models.SurveyResponse, error)
	ListResponsesByNameKey(ctx context.Context, nameKey string) ([]*models.SurveyResponse, error)
	DeleteAllResponses(ctx context.Context) (int, error)
}

// Submission is an incoming answer set, full or partial. Nil pointers and
// empty strings are "not answered". Normalize maps numeric zeros to nil.
type Submission struct {
	Name         string `json:"name" validate:"omitempty,max=100"`
	VisitorToken string `json:"visitorToken" validate:"omitempty,uuid"`

	Age               *int     `json:"age" validate:"omitempty,min=1,max=120"`
	VisitingWith      string   `json:"visitingWith" validate:"omitempty,max=40"`
	VisitingWithOther string   `json:"visitingWithOther" validate:"required_if=VisitingWith other,max=200"`
	TopicRanking      []string `json:"topicRanking" validate:"omitempty,dive,required"`
	FeelingBefore     *int     `json:"feelingBefore" validate:"omitempty,min=1,max=5"`
	ConfidenceBefore  *int     `json:"confidenceBefore" validate:"omitempty,min=1,max=5"`
	KnowledgeBefore   *int     `json:"knowledgeBefore" validate:"omitempty,min=1,max=3"`

	FeelingAfter           *int   `json:"feelingAfter" validate:"omitempty,min=1,max=5"`
	ActionChoice           string `json:"actionChoice" validate:"omitempty,max=40"`
	ConfidenceAfter        *int   `json:"confidenceAfter" validate:"omitempty,min=1,max=5"`
	LearnedSomethingNew    *bool  `json:"learnedSomethingNew"`
	MostInterestingLearned string `json:"mostInterestingLearned" validate:"max=1000"`
}

// Normalize trims text answers (collapsing whitespace in the name) and collapses the 0-as-unanswered convention into nil.
func (s *Submission) Normalize() {
	for _, p := range []**int{&s.Age, &s.FeelingBefore, &s.ConfidenceBefore, &s.KnowledgeBefore, &s.FeelingAfter, &s.ConfidenceAfter} {
		if *p != nil && **p == 0 {
			*p = nil
		}
	}
	s.Name = utils.CleanName(s.Name)
	s.VisitingWith = trim(s.VisitingWith)
	s.VisitingWithOther = trim(s.VisitingWithOther)
	s.ActionChoice = trim(s.ActionChoice)
	s.MostInterestingLearned = trim(s.MostInterestingLearned)
	s.VisitorToken = trim(s.VisitorToken)
	if len(s.TopicRanking) == 0 {
		s.TopicRanking = nil
	}
}

// IsCheckout reports whether the submission carries check-out data.
func (s *Submission) IsCheckout() bool { return s.FeelingAfter != nil }

// SubmitResult is the row after a submission plus whether it was newly inserted.
type SubmitResult struct {
	Response *models.SurveyResponse
	Created  bool
}
