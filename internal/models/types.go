package models

import "time"

// Phase is the lifecycle stage of a survey row. It is computed once when the
// row is written and stored alongside it.
type Phase string

const (
	PhaseCheckedIn    Phase = "checked_in"
	PhaseCheckoutOnly Phase = "checkout_only"
	PhaseComplete     Phase = "complete"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseCheckedIn, PhaseCheckoutOnly, PhaseComplete:
		return true
	}
	return false
}

// SurveyResponse is one visitor's check-in and/or check-out answers.
// Optional answers are pointers; nil means the question was not answered.
type SurveyResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	NameKey      string `json:"-"`
	VisitorToken string `json:"visitorToken"`

	Age               *int     `json:"age"`
	VisitingWith      string   `json:"visitingWith"`
	VisitingWithOther string   `json:"visitingWithOther"`
	TopicRanking      []string `json:"topicRanking"`
	// MostImportantTopic is the last element of TopicRanking.
	MostImportantTopic string `json:"mostImportantTopic"`
	FeelingBefore      *int   `json:"feelingBefore"`
	ConfidenceBefore   *int   `json:"confidenceBefore"`
	KnowledgeBefore    *int   `json:"knowledgeBefore"`

	FeelingAfter           *int   `json:"feelingAfter"`
	ActionChoice           string `json:"actionChoice"`
	ConfidenceAfter        *int   `json:"confidenceAfter"`
	LearnedSomethingNew    *bool  `json:"learnedSomethingNew"`
	MostInterestingLearned string `json:"mostInterestingLearned"`

	Result            string    `json:"result"`
	IsNewCheckoutUser bool      `json:"isNewCheckoutUser"`
	Phase             Phase     `json:"phase"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// HasCheckout reports whether check-out answers have been recorded.
func (r *SurveyResponse) HasCheckout() bool { return r.FeelingAfter != nil }

// HasCheckinProfile reports whether the demographic check-in answers are present.
func (r *SurveyResponse) HasCheckinProfile() bool {
	return r.Age != nil && r.VisitingWith != "" && r.MostImportantTopic != ""
}

// ClearZeroAnswers turns numeric answers of 0 into nil. Older exports used 0
// for "unanswered".
func (r *SurveyResponse) ClearZeroAnswers() {
	for _, p := range []**int{&r.Age, &r.FeelingBefore, &r.ConfidenceBefore, &r.KnowledgeBefore, &r.FeelingAfter, &r.ConfidenceAfter} {
		if *p != nil && **p == 0 {
			*p = nil
		}
	}
}

// Clone returns a deep copy of r.
func (r *SurveyResponse) Clone() *SurveyResponse {
	if r == nil {
		return nil
	}
	cp := *r
	cp.TopicRanking = append([]string(nil), r.TopicRanking...)
	cp.Age = cloneInt(r.Age)
	cp.FeelingBefore = cloneInt(r.FeelingBefore)
	cp.ConfidenceBefore = cloneInt(r.ConfidenceBefore)
	cp.KnowledgeBefore = cloneInt(r.KnowledgeBefore)
	cp.FeelingAfter = cloneInt(r.FeelingAfter)
	cp.ConfidenceAfter = cloneInt(r.ConfidenceAfter)
	if r.LearnedSomethingNew != nil {
		v := *r.LearnedSomethingNew
		cp.LearnedSomethingNew = &v
	}
	return &cp
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
