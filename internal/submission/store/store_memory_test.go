package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rekam/internal/submission/models"
	id "rekam/pkg/domain"
	"rekam/pkg/platform/sentinel"
)

const testCategory = models.CategoryMonthlyBulk

func newSubmission(owner id.UserID, name string, at time.Time) *models.Submission {
	return &models.Submission{
		ID:            id.NewSubmissionID(),
		Category:      testCategory,
		OwnerID:       owner,
		SubmitterName: "Operator",
		SubmitterNIK:  "3201010101010001",
		Payload:       models.Payload{"subject_name": name, "subject_nik": "3201010101010002"},
		SubmittedAt:   at,
	}
}

func TestInMemoryStoreOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	owner := id.UserID(id.NewSubmissionID())
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	first := newSubmission(owner, "first", at)
	second := newSubmission(owner, "second", at)
	older := newSubmission(owner, "older", at.Add(-time.Hour))
	for _, sub := range []*models.Submission{first, older, second} {
		require.NoError(t, s.Insert(ctx, testCategory, sub))
	}

	rows, total, err := s.Query(ctx, testCategory, models.Query{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, rows, 3)
	// equal timestamps fall back to reverse insertion order
	assert.Equal(t, "second", rows[0].Payload["subject_name"])
	assert.Equal(t, "first", rows[1].Payload["subject_name"])
	assert.Equal(t, "older", rows[2].Payload["subject_name"])
}

func TestInMemoryStorePaging(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	owner := id.UserID(id.NewSubmissionID())
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range 7 {
		require.NoError(t, s.Insert(ctx, testCategory, newSubmission(owner, "row", at.Add(time.Duration(i)*time.Minute))))
	}

	rows, total, err := s.Query(ctx, testCategory, models.Query{Offset: 5, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, rows, 2)

	rows, total, err = s.Query(ctx, testCategory, models.Query{Offset: 50, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Empty(t, rows)
}

func TestInMemoryStoreFilters(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	alice := id.UserID(id.NewSubmissionID())
	bob := id.UserID(id.NewSubmissionID())
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	siti := newSubmission(alice, "Siti Aminah", at)
	budi := newSubmission(bob, "Budi", at)
	require.NoError(t, s.Insert(ctx, testCategory, siti))
	require.NoError(t, s.Insert(ctx, testCategory, budi))

	t.Run("owner", func(t *testing.T) {
		rows, total, err := s.Query(ctx, testCategory, models.Query{Filter: models.Filter{OwnerID: bob}})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, budi.ID, rows[0].ID)
	})

	t.Run("search is case-insensitive over search fields", func(t *testing.T) {
		rows, _, err := s.Query(ctx, testCategory, models.Query{Filter: models.Filter{
			Search:       "SITI",
			SearchFields: []string{"subject_name", "subject_nik"},
		}})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, siti.ID, rows[0].ID)
	})

	t.Run("search ignores fields outside search fields", func(t *testing.T) {
		rows, _, err := s.Query(ctx, testCategory, models.Query{Filter: models.Filter{
			Search:       "siti",
			SearchFields: []string{"subject_nik"},
		}})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("id and owner together", func(t *testing.T) {
		rows, _, err := s.Query(ctx, testCategory, models.Query{Filter: models.Filter{ID: siti.ID, OwnerID: bob}})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestInMemoryStoreWrites(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	owner := id.UserID(id.NewSubmissionID())
	other := id.UserID(id.NewSubmissionID())
	sub := newSubmission(owner, "Siti", time.Now())
	require.NoError(t, s.Insert(ctx, testCategory, sub))

	t.Run("duplicate id conflicts", func(t *testing.T) {
		err := s.Insert(ctx, testCategory, sub)
		assert.True(t, errors.Is(err, sentinel.ErrConflict))
	})

	t.Run("update reports zero rows for another owner", func(t *testing.T) {
		ready := true
		n, err := s.Update(ctx, testCategory, models.Filter{ID: sub.ID, OwnerID: other}, models.Patch{Ready: &ready})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("update touches only patched columns", func(t *testing.T) {
		date := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		n, err := s.Update(ctx, testCategory, models.Filter{ID: sub.ID}, models.Patch{ScheduledDate: &date})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		rows, _, err := s.Query(ctx, testCategory, models.Query{Filter: models.Filter{ID: sub.ID}})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].ScheduledDate)
		assert.True(t, date.Equal(*rows[0].ScheduledDate))
		assert.Equal(t, "Siti", rows[0].Payload["subject_name"])
		assert.False(t, rows[0].ReadyForRecording)
	})

	t.Run("returned rows are copies", func(t *testing.T) {
		rows, _, err := s.Query(ctx, testCategory, models.Query{Filter: models.Filter{ID: sub.ID}})
		require.NoError(t, err)
		rows[0].Payload["subject_name"] = "mutated"

		rows, _, err = s.Query(ctx, testCategory, models.Query{Filter: models.Filter{ID: sub.ID}})
		require.NoError(t, err)
		assert.Equal(t, "Siti", rows[0].Payload["subject_name"])
	})

	t.Run("delete", func(t *testing.T) {
		n, err := s.Delete(ctx, testCategory, models.Filter{ID: sub.ID, OwnerID: owner})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = s.Delete(ctx, testCategory, models.Filter{ID: sub.ID, OwnerID: owner})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestInMemoryStoreWritesRequireID(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	owner := id.UserID(id.NewSubmissionID())
	for _, name := range []string{"Siti", "Budi"} {
		require.NoError(t, s.Insert(ctx, testCategory, newSubmission(owner, name, time.Now())))
	}

	ready := true
	_, err := s.Update(ctx, testCategory, models.Filter{OwnerID: owner}, models.Patch{Ready: &ready})
	assert.ErrorIs(t, err, ErrUnscopedWrite)
	_, _, err = s.ToggleReady(ctx, testCategory, models.Filter{})
	assert.ErrorIs(t, err, ErrUnscopedWrite)
	_, err = s.Delete(ctx, testCategory, models.Filter{OwnerID: owner})
	assert.ErrorIs(t, err, ErrUnscopedWrite)

	rows, total, err := s.Query(ctx, testCategory, models.Query{Filter: models.Filter{OwnerID: owner}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, r := range rows {
		assert.False(t, r.ReadyForRecording)
	}
}

func TestInMemoryStoreToggleReady(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	sub := newSubmission(id.UserID(id.NewSubmissionID()), "Siti", time.Now())
	require.NoError(t, s.Insert(ctx, testCategory, sub))

	t.Run("returns the written value", func(t *testing.T) {
		ready, n, err := s.ToggleReady(ctx, testCategory, models.Filter{ID: sub.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		assert.True(t, ready)

		ready, _, err = s.ToggleReady(ctx, testCategory, models.Filter{ID: sub.ID})
		require.NoError(t, err)
		assert.False(t, ready)
	})

	t.Run("concurrent toggles are never lost", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 51 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := s.ToggleReady(ctx, testCategory, models.Filter{ID: sub.ID})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		rows, _, err := s.Query(ctx, testCategory, models.Query{Filter: models.Filter{ID: sub.ID}})
		require.NoError(t, err)
		assert.True(t, rows[0].ReadyForRecording, "odd number of toggles from false")
	})

	t.Run("missing row", func(t *testing.T) {
		_, n, err := s.ToggleReady(ctx, testCategory, models.Filter{ID: id.NewSubmissionID()})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestTableName(t *testing.T) {
	name, err := TableName(models.CategoryDuplicateOperator)
	require.NoError(t, err)
	assert.Equal(t, `"submissions_duplicate_operator"`, name)

	for _, bad := range []string{"", "x; DROP TABLE profiles", "Mis-Recorded", "a_b"} {
		_, err := TableName(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildWhere(t *testing.T) {
	subID := id.NewSubmissionID()
	owner := id.UserID(id.NewSubmissionID())

	where, args := buildWhere(models.Filter{}, 1)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = buildWhere(models.Filter{
		ID:           subID,
		OwnerID:      owner,
		Search:       "siti",
		SearchFields: []string{"subject_name", "subject_nik"},
	}, 3)
	assert.Equal(t,
		` WHERE id = $3 AND owner_id = $4 AND (payload->>'subject_name' ILIKE $5 OR payload->>'subject_nik' ILIKE $5)`,
		where)
	require.Len(t, args, 3)
	assert.Equal(t, "%siti%", args[2])
}
