package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/entity"
)

// MemoryRepository implements ReportRepository with in-memory storage.
// Used in tests and single-process dev runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]entity.Report
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{reports: make(map[uuid.UUID]entity.Report)}
}

func (m *MemoryRepository) Create(_ context.Context, r *entity.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m.reports[r.ID] = cloneReport(*r)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (entity.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return entity.Report{}, ErrNotFound
	}
	return cloneReport(r), nil
}

func (m *MemoryRepository) ListByOwner(_ context.Context, ownerID uuid.UUID, limit int) ([]entity.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entity.Report
	for _, r := range m.reports {
		if r.OwnerID == ownerID {
			out = append(out, cloneReport(r))
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) ListPending(_ context.Context) ([]entity.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entity.Report
	for _, r := range m.reports {
		if r.Status == constants.StatusPending {
			out = append(out, cloneReport(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryRepository) ApplyReview(_ context.Context, id uuid.UUID, rev entity.Review) (entity.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return entity.Report{}, ErrNotFound
	}
	if r.Status != constants.StatusPending {
		return entity.Report{}, ErrAlreadyReviewed
	}

	r.Status = rev.Decision
	r.DoctorComments = rev.Comments
	reviewer := rev.ReviewerID
	r.ReviewedBy = &reviewer
	at := rev.ReviewedAt
	r.ReviewedAt = &at
	r.UpdatedAt = time.Now().UTC()
	m.reports[id] = r
	return cloneReport(r), nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[id]; !ok {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func sortNewestFirst(rs []entity.Report) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID.String() > rs[j].ID.String()
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}

func cloneReport(r entity.Report) entity.Report {
	out := r
	out.Abnormalities = append([]string(nil), r.Abnormalities...)
	out.Recommendations = append([]string(nil), r.Recommendations...)
	if r.ReviewedBy != nil {
		rb := *r.ReviewedBy
		out.ReviewedBy = &rb
	}
	if r.ReviewedAt != nil {
		ra := *r.ReviewedAt
		out.ReviewedAt = &ra
	}
	return out
}

// StaticDirectory is a UserDirectory backed by a fixed map. The identity
// provider is an external collaborator; tests and dev runs seed this.
type StaticDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]entity.OwnerIdentity
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{users: make(map[uuid.UUID]entity.OwnerIdentity)}
}

func (d *StaticDirectory) Put(id uuid.UUID, ident entity.OwnerIdentity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = ident
}

func (d *StaticDirectory) GetIdentity(_ context.Context, id uuid.UUID) (entity.OwnerIdentity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[id], nil
}
