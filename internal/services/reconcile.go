package services

import (
	"github.com/soaringjerry/VisitPulse/internal/models"
	"github.com/soaringjerry/VisitPulse/internal/utils"
)

type CheckoutStatus string

const (
	// CheckoutReturning: an open check-in row exists; resume it.
	CheckoutReturning CheckoutStatus = "returning"
	// CheckoutNew: no usable check-in; run the checkout-only flow.
	CheckoutNew CheckoutStatus = "new"
	// CheckoutConflict: the name belongs to a visitor who already checked out.
	CheckoutConflict CheckoutStatus = "conflict"
)

// CheckoutPrefill carries the check-in answers a returning visitor resumes with.
type CheckoutPrefill struct {
	ResponseID         int64    `json:"responseId"`
	VisitorToken       string   `json:"visitorToken"`
	MostImportantTopic string   `json:"mostImportantTopic"`
	TopicRanking       []string `json:"topicRanking"`
	Age                *int     `json:"age"`
	VisitingWith       string   `json:"visitingWith"`
	VisitingWithOther  string   `json:"visitingWithOther"`
	FeelingBefore      *int     `json:"feelingBefore"`
	ConfidenceBefore   *int     `json:"confidenceBefore"`
}

type CheckoutDecision struct {
	Status  CheckoutStatus   `json:"status"`
	Prefill *CheckoutPrefill `json:"prefill,omitempty"`
}

// NameConflict reports whether some row with the same case-insensitive name
// has already completed check-out.
func NameConflict(name string, rows []*models.SurveyResponse) bool {
	key := utils.NameKey(name)
	if key == "" {
		return false
	}
	for _, r := range rows {
		if r != nil && keyOf(r) == key && r.HasCheckout() {
			return true
		}
	}
	return false
}

// ReconcileCheckout decides how a check-out that starts with name proceeds.
// A conflict blocks the name outright, even when an open check-in row with
// the same name also exists.
func ReconcileCheckout(name string, rows []*models.SurveyResponse) CheckoutDecision {
	if NameConflict(name, rows) {
		return CheckoutDecision{Status: CheckoutConflict}
	}
	key := utils.NameKey(name)
	var match *models.SurveyResponse
	for _, r := range rows {
		if r == nil || keyOf(r) != key || r.HasCheckout() || !r.HasCheckinProfile() {
			continue
		}
		if match == nil || newer(r, match) {
			match = r
		}
	}
	if match == nil {
		return CheckoutDecision{Status: CheckoutNew}
	}
	m := match.Clone()
	return CheckoutDecision{
		Status: CheckoutReturning,
		Prefill: &CheckoutPrefill{
			ResponseID:         m.ID,
			VisitorToken:       m.VisitorToken,
			MostImportantTopic: m.MostImportantTopic,
			TopicRanking:       m.TopicRanking,
			Age:                m.Age,
			VisitingWith:       m.VisitingWith,
			VisitingWithOther:  m.VisitingWithOther,
			FeelingBefore:      m.FeelingBefore,
			ConfidenceBefore:   m.ConfidenceBefore,
		},
	}
}

// FindMergeTarget returns the most recently created row with nameKey whose
// check-out is still open, or nil. Unlike ReconcileCheckout it does not
// require the demographic answers: the write path merges into any open row.
func FindMergeTarget(nameKey string, rows []*models.SurveyResponse) *models.SurveyResponse {
	var match *models.SurveyResponse
	for _, r := range rows {
		if r == nil || keyOf(r) != nameKey || r.HasCheckout() {
			continue
		}
		if match == nil || newer(r, match) {
			match = r
		}
	}
	return match
}

// ClassifyPhase derives the lifecycle phase from the answers present.
func ClassifyPhase(r *models.SurveyResponse) models.Phase {
	switch {
	case !r.HasCheckout():
		return models.PhaseCheckedIn
	case r.IsNewCheckoutUser:
		return models.PhaseCheckoutOnly
	default:
		return models.PhaseComplete
	}
}

func keyOf(r *models.SurveyResponse) string {
	if r.NameKey != "" {
		return r.NameKey
	}
	return utils.NameKey(r.Name)
}

// newer orders rows by creation, ties broken by id.
func newer(a, b *models.SurveyResponse) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
