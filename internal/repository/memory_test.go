package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/entity"
)

func seed(t *testing.T, m *MemoryRepository, owner uuid.UUID, createdAt time.Time) entity.Report {
	t.Helper()
	r := entity.Report{
		OwnerID:       owner,
		FileName:      "cbc.txt",
		FileType:      constants.FormatText,
		Summary:       "Mild anemia.",
		Abnormalities: []string{"Low hemoglobin"},
		Status:        constants.StatusPending,
		CreatedAt:     createdAt,
	}
	require.NoError(t, m.Create(context.Background(), &r))
	return r
}

func TestMemoryCreateAndGet(t *testing.T) {
	m := NewMemoryRepository()
	r := seed(t, m, uuid.New(), time.Time{})

	assert.NotEqual(t, uuid.Nil, r.ID, "Create assigns an id")
	assert.False(t, r.CreatedAt.IsZero())

	got, err := m.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = m.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryCloneIsolation(t *testing.T) {
	m := NewMemoryRepository()
	r := seed(t, m, uuid.New(), time.Time{})

	got, err := m.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	got.Abnormalities[0] = "mutated"

	again, err := m.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Low hemoglobin", again.Abnormalities[0], "callers get copies, not shared slices")
}

func TestMemoryListByOwnerOrderAndLimit(t *testing.T) {
	m := NewMemoryRepository()
	owner := uuid.New()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	oldest := seed(t, m, owner, base)
	middle := seed(t, m, owner, base.Add(time.Hour))
	newest := seed(t, m, owner, base.Add(2*time.Hour))
	seed(t, m, uuid.New(), base.Add(3*time.Hour)) // different owner

	all, err := m.ListByOwner(context.Background(), owner, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID, all[0].ID)
	assert.Equal(t, middle.ID, all[1].ID)
	assert.Equal(t, oldest.ID, all[2].ID)

	limited, err := m.ListByOwner(context.Background(), owner, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, newest.ID, limited[0].ID)
}

func TestMemoryApplyReview(t *testing.T) {
	m := NewMemoryRepository()
	r := seed(t, m, uuid.New(), time.Time{})
	reviewer := uuid.New()

	got, err := m.ApplyReview(context.Background(), r.ID, entity.Review{
		Decision:   constants.StatusApproved,
		Comments:   "ok",
		ReviewerID: reviewer,
		ReviewedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, constants.StatusApproved, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, reviewer, *got.ReviewedBy)

	_, err = m.ApplyReview(context.Background(), r.ID, entity.Review{
		Decision: constants.StatusRejected, ReviewerID: uuid.New(), ReviewedAt: time.Now().UTC(),
	})
	assert.True(t, errors.Is(err, ErrAlreadyReviewed))

	_, err = m.ApplyReview(context.Background(), uuid.New(), entity.Review{
		Decision: constants.StatusApproved, ReviewerID: uuid.New(), ReviewedAt: time.Now().UTC(),
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryApplyReviewConcurrent(t *testing.T) {
	m := NewMemoryRepository()
	r := seed(t, m, uuid.New(), time.Time{})

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan constants.ReportStatus, racers)
	for i := 0; i < racers; i++ {
		decision := constants.StatusApproved
		if i%2 == 1 {
			decision = constants.StatusRejected
		}
		wg.Add(1)
		go func(d constants.ReportStatus) {
			defer wg.Done()
			got, err := m.ApplyReview(context.Background(), r.ID, entity.Review{
				Decision: d, ReviewerID: uuid.New(), ReviewedAt: time.Now().UTC(),
			})
			if err == nil {
				wins <- got.Status
			}
		}(decision)
	}
	wg.Wait()
	close(wins)

	var outcomes []constants.ReportStatus
	for s := range wins {
		outcomes = append(outcomes, s)
	}
	require.Len(t, outcomes, 1, "exactly one reviewer wins the race")

	final, err := m.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, outcomes[0], final.Status)
}

func TestMemoryListPending(t *testing.T) {
	m := NewMemoryRepository()
	pending := seed(t, m, uuid.New(), time.Time{})
	reviewed := seed(t, m, uuid.New(), time.Time{})
	_, err := m.ApplyReview(context.Background(), reviewed.ID, entity.Review{
		Decision: constants.StatusApproved, ReviewerID: uuid.New(), ReviewedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	queue, err := m.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, pending.ID, queue[0].ID)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemoryRepository()
	r := seed(t, m, uuid.New(), time.Time{})

	require.NoError(t, m.Delete(context.Background(), r.ID))
	assert.True(t, errors.Is(m.Delete(context.Background(), r.ID), ErrNotFound))
}
