package services

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/VisitPulse/internal/models"
)

var exportHeader = []string{
	"id", "name", "visitor_token", "age", "visiting_with", "visiting_with_other",
	"topic_ranking", "most_important_topic", "feeling_before", "confidence_before",
	"knowledge_before", "feeling_after", "action_choice", "confidence_after",
	"learned_something_new", "most_interesting_learned", "result",
	"is_new_checkout_user", "phase", "created_at", "updated_at",
}

// ExportResponsesCSV renders one line per survey row, ordered by id.
// Unanswered fields are empty cells; the ranking is joined with "|".
func ExportResponsesCSV(rows []*models.SurveyResponse) ([]byte, error) {
	sorted := append([]*models.SurveyResponse(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(exportHeader)
	for _, r := range sorted {
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			textCell(r.Name),
			r.VisitorToken,
			intCell(r.Age),
			textCell(r.VisitingWith),
			textCell(r.VisitingWithOther),
			strings.Join(r.TopicRanking, "|"),
			r.MostImportantTopic,
			intCell(r.FeelingBefore),
			intCell(r.ConfidenceBefore),
			intCell(r.KnowledgeBefore),
			intCell(r.FeelingAfter),
			textCell(r.ActionChoice),
			intCell(r.ConfidenceAfter),
			boolCell(r.LearnedSomethingNew),
			textCell(r.MostInterestingLearned),
			r.Result,
			strconv.FormatBool(r.IsNewCheckoutUser),
			string(r.Phase),
			timeCell(r.CreatedAt),
			timeCell(r.UpdatedAt),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// textCell neutralizes visitor text that a spreadsheet would run as a formula.
func textCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func intCell(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func boolCell(p *bool) string {
	if p == nil {
		return ""
	}
	return strconv.FormatBool(*p)
}

func timeCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
