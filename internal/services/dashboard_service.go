package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/soaringjerry/VisitPulse/internal/catalog"
	"github.com/soaringjerry/VisitPulse/internal/models"
)

type DashboardStore interface {
	ListResponses(ctx context.Context) ([]*models.SurveyResponse, error)
}

type DashboardService struct {
	store   DashboardStore
	catalog *catalog.Catalog
}

type LabeledCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DashboardSummary struct {
	Total        int `json:"total"`
	CheckedIn    int `json:"checkedIn"`
	CheckoutOnly int `json:"checkoutOnly"`
	Complete     int `json:"complete"`

	Topics  []LabeledCount `json:"topics"`
	Actions []LabeledCount `json:"actions"`

	// averages are nil when no row answered the question
	AvgFeelingBefore    *float64 `json:"avgFeelingBefore"`
	AvgFeelingAfter     *float64 `json:"avgFeelingAfter"`
	AvgConfidenceBefore *float64 `json:"avgConfidenceBefore"`
	AvgConfidenceAfter  *float64 `json:"avgConfidenceAfter"`
	AvgFeelingDelta     *float64 `json:"avgFeelingDelta"`

	LearnedYes int `json:"learnedYes"`
	LearnedNo  int `json:"learnedNo"`

	Timeseries []DailyCount `json:"timeseries"`
}

func NewDashboardService(store DashboardStore, cat *catalog.Catalog) *DashboardService {
	if cat == nil {
		cat = catalog.Default()
	}
	return &DashboardService{store: store, catalog: cat}
}

func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	rows, err := s.store.ListResponses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return Summarize(rows, s.catalog), nil
}

func (s *DashboardService) ExportCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.store.ListResponses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return ExportResponsesCSV(rows)
}

// Summarize aggregates rows. Topic and action counts follow catalog order;
// keys outside the catalog are appended sorted.
func Summarize(rows []*models.SurveyResponse, cat *catalog.Catalog) *DashboardSummary {
	sum := &DashboardSummary{Total: len(rows)}
	topics := map[string]int{}
	actions := map[string]int{}
	days := map[string]int{}
	var fb, fa, cb, ca, delta mean
	for _, r := range rows {
		switch r.Phase {
		case models.PhaseCheckedIn:
			sum.CheckedIn++
		case models.PhaseCheckoutOnly:
			sum.CheckoutOnly++
		case models.PhaseComplete:
			sum.Complete++
		}
		if r.MostImportantTopic != "" {
			topics[r.MostImportantTopic]++
		}
		if r.ActionChoice != "" {
			actions[r.ActionChoice]++
		}
		fb.add(r.FeelingBefore)
		fa.add(r.FeelingAfter)
		cb.add(r.ConfidenceBefore)
		ca.add(r.ConfidenceAfter)
		if r.Phase == models.PhaseComplete && r.FeelingBefore != nil && r.FeelingAfter != nil {
			d := *r.FeelingAfter - *r.FeelingBefore
			delta.add(&d)
		}
		if r.LearnedSomethingNew != nil {
			if *r.LearnedSomethingNew {
				sum.LearnedYes++
			} else {
				sum.LearnedNo++
			}
		}
		if !r.CreatedAt.IsZero() {
			days[r.CreatedAt.UTC().Format("2006-01-02")]++
		}
	}
	sum.Topics = labeledCounts(cat.Topics, topics)
	sum.Actions = labeledCounts(cat.Actions, actions)
	sum.AvgFeelingBefore = fb.value()
	sum.AvgFeelingAfter = fa.value()
	sum.AvgConfidenceBefore = cb.value()
	sum.AvgConfidenceAfter = ca.value()
	sum.AvgFeelingDelta = delta.value()
	sum.Timeseries = buildTimeseries(days)
	return sum
}

type mean struct {
	total float64
	n     int
}

func (m *mean) add(v *int) {
	if v == nil {
		return
	}
	m.total += float64(*v)
	m.n++
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.total / float64(m.n)
	return &v
}

func labeledCounts(opts []catalog.Option, counts map[string]int) []LabeledCount {
	out := make([]LabeledCount, 0, len(opts))
	seen := map[string]bool{}
	for _, o := range opts {
		out = append(out, LabeledCount{Key: o.Key, Label: o.Label, Count: counts[o.Key]})
		seen[o.Key] = true
	}
	var extra []string
	for k := range counts {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, LabeledCount{Key: k, Label: k, Count: counts[k]})
	}
	return out
}

func buildTimeseries(counts map[string]int) []DailyCount {
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]DailyCount, 0, len(days))
	for _, d := range days {
		out = append(out, DailyCount{Date: d, Count: counts[d]})
	}
	return out
}
