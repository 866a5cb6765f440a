package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/VisitPulse/internal/models"
)

func newTestResponseService(store ResponseStore) *ResponseService {
	svc := NewResponseService(store, nil, nil)
	clock := time.Date(2025, 9, 17, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	n := 0
	svc.tokenGen = func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	}
	return svc
}

func checkinSubmission(name string) Submission {
	return Submission{
		Name:             name,
		Age:              models.Int(8),
		VisitingWith:     "family",
		TopicRanking:     []string{"WATER", "FOOD", "ENERGY", "TECHNOLOGY", "CLIMATE", "HEALTH"},
		FeelingBefore:    models.Int(4),
		ConfidenceBefore: models.Int(3),
		KnowledgeBefore:  models.Int(2),
	}
}

func checkoutSubmission(name string) Submission {
	return Submission{
		Name:                   name,
		FeelingAfter:           models.Int(5),
		ActionChoice:           "uitvinden",
		ConfidenceAfter:        models.Int(4),
		LearnedSomethingNew:    models.Bool(true),
		MostInterestingLearned: "robots",
	}
}

func TestSubmitCheckinCreatesRow(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)

	res, err := svc.Submit(context.Background(), checkinSubmission("  Anna "))
	require.NoError(t, err)
	require.True(t, res.Created)

	r := res.Response
	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, "Anna", r.Name)
	assert.Equal(t, "anna", r.NameKey)
	assert.Nil(t, r.FeelingAfter)
	assert.False(t, r.IsNewCheckoutUser)
	assert.Equal(t, "HEALTH", r.MostImportantTopic)
	assert.Equal(t, models.PhaseCheckedIn, r.Phase)
	assert.Empty(t, r.Result)
	assert.NotEmpty(t, r.VisitorToken)
}

func TestSubmitCheckinNeverMerges(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	_, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)
	res, err := svc.Submit(ctx, checkinSubmission("anna"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, store.rows, 2)
}

func TestSubmitCheckoutMergesIntoCheckin(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	in, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)

	out, err := svc.Submit(ctx, checkoutSubmission("ANNA"))
	require.NoError(t, err)
	assert.False(t, out.Created)

	r := out.Response
	assert.Equal(t, in.Response.ID, r.ID)
	assert.Equal(t, in.Response.CreatedAt, r.CreatedAt)
	assert.True(t, r.UpdatedAt.After(r.CreatedAt))
	assert.Equal(t, "Anna", r.Name, "merge keeps the check-in spelling")
	assert.Equal(t, 5, *r.FeelingAfter)
	assert.Equal(t, 4, *r.FeelingBefore, "check-in answers untouched")
	assert.False(t, r.IsNewCheckoutUser)
	assert.Equal(t, models.PhaseComplete, r.Phase)
	assert.Equal(t, "Jij bent een UITVINDER voor GEZONDHEID", r.Result)
	assert.Len(t, store.rows, 1)
}

func TestSubmitCheckoutPicksLatestOpenRow(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	_, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)
	second, err := svc.Submit(ctx, checkinSubmission("anna"))
	require.NoError(t, err)

	out, err := svc.Submit(ctx, checkoutSubmission("Anna"))
	require.NoError(t, err)
	assert.Equal(t, second.Response.ID, out.Response.ID)

	// the older open row is next in line
	again, err := svc.Submit(ctx, checkoutSubmission("Anna"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Response.ID)
	assert.False(t, again.Created)

	third, err := svc.Submit(ctx, checkoutSubmission("Anna"))
	require.NoError(t, err)
	assert.True(t, third.Created)
}

func TestSubmitCheckoutWithoutMatchCreatesCheckoutOnlyRow(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)

	sub := checkoutSubmission("Bram")
	sub.Age = models.Int(11)
	sub.VisitingWith = "school"
	sub.TopicRanking = []string{"HEALTH", "FOOD", "ENERGY", "TECHNOLOGY", "WATER", "CLIMATE"}

	res, err := svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	require.True(t, res.Created)
	r := res.Response
	assert.True(t, r.IsNewCheckoutUser)
	assert.Equal(t, models.PhaseCheckoutOnly, r.Phase)
	assert.Equal(t, "CLIMATE", r.MostImportantTopic)
	assert.Equal(t, "Jij bent een UITVINDER voor KLIMAAT", r.Result)
	assert.Nil(t, r.FeelingBefore)
}

func TestSubmitCheckoutIgnoresCompletedRows(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	_, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, checkoutSubmission("Anna"))
	require.NoError(t, err)

	res, err := svc.Submit(ctx, checkoutSubmission("anna"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.Response.IsNewCheckoutUser)
}

func TestSubmitCheckoutPrefersVisitorToken(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	first, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)

	sub := checkoutSubmission("Anna")
	sub.VisitorToken = first.Response.VisitorToken
	out, err := svc.Submit(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, first.Response.ID, out.Response.ID)
}

func TestSubmitNormalizesZeroAsUnanswered(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)

	sub := checkinSubmission("Anna")
	sub.FeelingBefore = models.Int(0)
	sub.FeelingAfter = models.Int(0)
	res, err := svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Nil(t, res.Response.FeelingBefore)
	assert.Nil(t, res.Response.FeelingAfter)
	assert.Equal(t, models.PhaseCheckedIn, res.Response.Phase)
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestResponseService(newStubStore())
	ctx := context.Background()

	cases := map[string]struct {
		mutate func(*Submission)
		field  string
	}{
		"empty name":         {func(s *Submission) { s.Name = "   " }, "name"},
		"feeling too high":   {func(s *Submission) { s.FeelingBefore = models.Int(6) }, "feelingBefore"},
		"knowledge too high": {func(s *Submission) { s.KnowledgeBefore = models.Int(4) }, "knowledgeBefore"},
		"bad company":        {func(s *Submission) { s.VisitingWith = "dog" }, "visitingWith"},
		"other needs text":   {func(s *Submission) { s.VisitingWith = "other" }, "visitingWithOther"},
		"short ranking":      {func(s *Submission) { s.TopicRanking = s.TopicRanking[:3] }, "topicRanking"},
		"unknown topic":      {func(s *Submission) { s.TopicRanking[0] = "SPACE" }, "topicRanking"},
		"bad token":          {func(s *Submission) { s.VisitorToken = "not-a-uuid" }, "visitorToken"},
		"name too long":      {func(s *Submission) { s.Name = strings.Repeat("a", 101) }, "name"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			sub := checkinSubmission("Anna")
			c.mutate(&sub)
			_, err := svc.Submit(ctx, sub)
			se, ok := AsServiceError(err)
			require.True(t, ok, "want ServiceError, got %v", err)
			assert.Equal(t, ErrorInvalid, se.Code)
			assert.Contains(t, se.Fields, c.field)
		})
	}
}

func TestSubmitNameLengthCountsTrimmedName(t *testing.T) {
	svc := newTestResponseService(newStubStore())
	name := strings.Repeat("a", 100)
	res, err := svc.Submit(context.Background(), checkinSubmission("   "+name+"   "))
	require.NoError(t, err)
	assert.Equal(t, name, res.Response.Name)
}

func TestSubmitStoreFailure(t *testing.T) {
	store := newStubStore()
	store.failErr = errStoreDown
	svc := newTestResponseService(store)
	_, err := svc.Submit(context.Background(), checkinSubmission("Anna"))
	require.ErrorIs(t, err, errStoreDown)
	_, isSvc := AsServiceError(err)
	assert.False(t, isSvc)
}

func TestResumeCheckout(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	in, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)

	out, err := svc.ResumeCheckout(ctx, in.Response.ID, checkoutSubmission("Anna"))
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, in.Response.ID, out.Response.ID)
	assert.Equal(t, models.PhaseComplete, out.Response.Phase)

	// completed in the meantime: falls back to the name path and creates a row
	again, err := svc.ResumeCheckout(ctx, in.Response.ID, checkoutSubmission("Anna"))
	require.NoError(t, err)
	assert.True(t, again.Created)

	_, err = svc.ResumeCheckout(ctx, in.Response.ID, checkinSubmission("Anna"))
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Contains(t, se.Fields, "feelingAfter")
}

func TestUpdateByID(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	in, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)

	r, err := svc.Update(ctx, in.Response.ID, Submission{FeelingAfter: models.Int(2), ActionChoice: "vertellen"})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseComplete, r.Phase)
	assert.Equal(t, "Jij bent een VERTELLER voor GEZONDHEID", r.Result)
	assert.Equal(t, "Anna", r.Name)
	assert.Equal(t, 8, *r.Age)

	r, err = svc.Update(ctx, in.Response.ID, Submission{Name: "Anna B", TopicRanking: []string{"HEALTH", "FOOD", "ENERGY", "TECHNOLOGY", "CLIMATE", "WATER"}})
	require.NoError(t, err)
	assert.Equal(t, "anna b", r.NameKey)
	assert.Equal(t, "WATER", r.MostImportantTopic)
	assert.Equal(t, "Jij bent een VERTELLER voor WATER", r.Result)

	_, err = svc.Update(ctx, 99, Submission{FeelingAfter: models.Int(2)})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, se.Code)
}

func TestGetAndList(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	_, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, checkoutSubmission("Bram"))
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := svc.List(ctx, models.PhaseCheckoutOnly)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "Bram", only[0].Name)

	_, err = svc.List(ctx, "done")
	assert.Error(t, err)

	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.Name)

	_, err = svc.Get(ctx, 42)
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, se.Code)
}

func TestLookupCheckout(t *testing.T) {
	store := newStubStore()
	svc := newTestResponseService(store)
	ctx := context.Background()

	in, err := svc.Submit(ctx, checkinSubmission("Anna"))
	require.NoError(t, err)

	d, err := svc.LookupCheckout(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, CheckoutReturning, d.Status)
	assert.Equal(t, in.Response.ID, d.Prefill.ResponseID)

	d, err = svc.LookupCheckout(ctx, "Cees")
	require.NoError(t, err)
	assert.Equal(t, CheckoutNew, d.Status)

	_, err = svc.Submit(ctx, checkoutSubmission("Anna"))
	require.NoError(t, err)
	d, err = svc.LookupCheckout(ctx, "ANNA")
	require.NoError(t, err)
	assert.Equal(t, CheckoutConflict, d.Status)

	_, err = svc.LookupCheckout(ctx, " ")
	assert.Error(t, err)
}
