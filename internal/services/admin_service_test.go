package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRows(t *testing.T, store *stubResponseStore, names ...string) {
	t.Helper()
	svc := newTestResponseService(store)
	for _, n := range names {
		_, err := svc.Submit(context.Background(), checkinSubmission(n))
		require.NoError(t, err)
	}
}

func TestAdminReset(t *testing.T) {
	store := newStubStore()
	seedRows(t, store, "Anna", "Bram")
	admin, err := NewAdminService(store, "museum-1234", nil, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = admin.Reset(ctx, "wrong")
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorUnauthorized, se.Code)
	assert.Len(t, store.rows, 2, "wrong code deletes nothing")

	n, err := admin.Reset(ctx, " museum-1234 ")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := store.ListResponses(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAdminDisabledWithoutCode(t *testing.T) {
	store := newStubStore()
	seedRows(t, store, "Anna")
	admin, err := NewAdminService(store, "", nil, 0)
	require.NoError(t, err)
	assert.False(t, admin.Enabled())

	_, err = admin.Reset(context.Background(), "")
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorUnauthorized, se.Code)
	assert.Len(t, store.rows, 1)
}

func TestAdminLogin(t *testing.T) {
	var gotSubject string
	var gotTTL time.Duration
	signer := func(sub string, ttl time.Duration) (string, error) {
		gotSubject, gotTTL = sub, ttl
		return "signed", nil
	}
	admin, err := NewAdminService(newStubStore(), "museum-1234", signer, time.Hour)
	require.NoError(t, err)
	admin.now = func() time.Time { return time.Date(2025, 9, 17, 9, 0, 0, 0, time.UTC) }

	res, err := admin.Login("museum-1234")
	require.NoError(t, err)
	assert.Equal(t, "signed", res.Token)
	assert.Equal(t, time.Date(2025, 9, 17, 10, 0, 0, 0, time.UTC), res.ExpiresAt)
	assert.Equal(t, "admin", gotSubject)
	assert.Equal(t, time.Hour, gotTTL)

	_, err = admin.Login("nope")
	_, ok := AsServiceError(err)
	assert.True(t, ok)
}

func TestAdminResetStoreFailure(t *testing.T) {
	store := newStubStore()
	store.failErr = errStoreDown
	admin, err := NewAdminService(store, "museum-1234", nil, 0)
	require.NoError(t, err)
	_, err = admin.Reset(context.Background(), "museum-1234")
	assert.True(t, errors.Is(err, errStoreDown))
}
