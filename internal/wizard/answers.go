package wizard

import "strings"

// Answers accumulates everything a visitor has entered during one session.
// Pointer fields are nil until answered.
type Answers struct {
	Name         string `json:"name,omitempty"`
	VisitorToken string `json:"visitorToken,omitempty"`

	Age                *int     `json:"age,omitempty"`
	VisitingWith       string   `json:"visitingWith,omitempty"`
	VisitingWithOther  string   `json:"visitingWithOther,omitempty"`
	TopicRanking       []string `json:"topicRanking,omitempty"`
	MostImportantTopic string   `json:"mostImportantTopic,omitempty"`
	FeelingBefore      *int     `json:"feelingBefore,omitempty"`
	ConfidenceBefore   *int     `json:"confidenceBefore,omitempty"`
	KnowledgeBefore    *int     `json:"knowledgeBefore,omitempty"`

	FeelingAfter           *int   `json:"feelingAfter,omitempty"`
	ActionChoice           string `json:"actionChoice,omitempty"`
	ConfidenceAfter        *int   `json:"confidenceAfter,omitempty"`
	LearnedSomethingNew    *bool  `json:"learnedSomethingNew,omitempty"`
	MostInterestingLearned string `json:"mostInterestingLearned,omitempty"`
}

// merge overlays the answered fields of in onto a. A zero in a numeric field
// counts as unanswered.
func (a *Answers) merge(in Answers) {
	if v := strings.TrimSpace(in.Name); v != "" {
		a.Name = v
	}
	if in.VisitorToken != "" {
		a.VisitorToken = in.VisitorToken
	}
	setInt(&a.Age, in.Age)
	setStr(&a.VisitingWith, in.VisitingWith)
	setStr(&a.VisitingWithOther, in.VisitingWithOther)
	if len(in.TopicRanking) > 0 {
		a.TopicRanking = append([]string(nil), in.TopicRanking...)
	}
	setInt(&a.FeelingBefore, in.FeelingBefore)
	setInt(&a.ConfidenceBefore, in.ConfidenceBefore)
	setInt(&a.KnowledgeBefore, in.KnowledgeBefore)
	setInt(&a.FeelingAfter, in.FeelingAfter)
	setStr(&a.ActionChoice, in.ActionChoice)
	setInt(&a.ConfidenceAfter, in.ConfidenceAfter)
	if in.LearnedSomethingNew != nil {
		v := *in.LearnedSomethingNew
		a.LearnedSomethingNew = &v
	}
	setStr(&a.MostInterestingLearned, in.MostInterestingLearned)
}

// clearCheckin drops the check-in answers, keeping name and check-out fields.
func (a *Answers) clearCheckin() {
	a.VisitorToken = ""
	a.Age = nil
	a.VisitingWith = ""
	a.VisitingWithOther = ""
	a.TopicRanking = nil
	a.MostImportantTopic = ""
	a.FeelingBefore = nil
	a.ConfidenceBefore = nil
	a.KnowledgeBefore = nil
}

func (a Answers) clone() Answers {
	cp := a
	cp.TopicRanking = append([]string(nil), a.TopicRanking...)
	if len(a.TopicRanking) == 0 {
		cp.TopicRanking = nil
	}
	cp.Age = copyInt(a.Age)
	cp.FeelingBefore = copyInt(a.FeelingBefore)
	cp.ConfidenceBefore = copyInt(a.ConfidenceBefore)
	cp.KnowledgeBefore = copyInt(a.KnowledgeBefore)
	cp.FeelingAfter = copyInt(a.FeelingAfter)
	cp.ConfidenceAfter = copyInt(a.ConfidenceAfter)
	if a.LearnedSomethingNew != nil {
		v := *a.LearnedSomethingNew
		cp.LearnedSomethingNew = &v
	}
	return cp
}

func setInt(dst **int, v *int) {
	if v != nil && *v != 0 {
		n := *v
		*dst = &n
	}
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
