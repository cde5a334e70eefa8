package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scidatahub/platform/internal/models"
	repo "github.com/scidatahub/platform/internal/repository"
)

// In-memory stores mirroring the conditional write semantics of the postgres
// layer: a transition whose predicate matches no row returns ErrNotFound.

type fakeUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]models.User{}}
}

func (f *fakeUsers) add(u models.User) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		f.seq++
		u.ID = fmt.Sprintf("user-%d", f.seq)
	}
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, u models.User) (models.User, error) {
	return f.add(u), nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context, _ repo.UserFilter) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id, firstName, lastName, organization string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	if firstName != "" {
		u.FirstName = firstName
	}
	if lastName != "" {
		u.LastName = lastName
	}
	if organization != "" {
		u.Organization = organization
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	f.users[id] = u
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.IsActive = active
	f.users[id] = u
	return nil
}

type fakeSubmissions struct {
	mu   sync.Mutex
	seq  int
	subs map[string]models.Submission

	aggregates repo.ReviewAggregates
	totals     repo.SubmissionTotals
	exportRows []repo.ExportRow
}

func newFakeSubmissions() *fakeSubmissions {
	return &fakeSubmissions{subs: map[string]models.Submission{}}
}

func (f *fakeSubmissions) add(s models.Submission) models.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		f.seq++
		s.ID = fmt.Sprintf("sub-%d", f.seq)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()
	f.subs[s.ID] = s
	return s
}

func (f *fakeSubmissions) Create(_ context.Context, s models.Submission) (models.Submission, error) {
	return f.add(s), nil
}

func (f *fakeSubmissions) GetByID(_ context.Context, id string) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return models.Submission{}, repo.ErrNotFound
	}
	return s, nil
}

func (f *fakeSubmissions) List(_ context.Context, filter repo.SubmissionFilter) ([]models.Submission, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Submission
	for _, s := range f.subs {
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if s.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if filter.ReviewedBy != "" && (s.ReviewedBy == nil || *s.ReviewedBy != filter.ReviewedBy) {
			continue
		}
		if filter.Category != "" && string(s.Category) != filter.Category {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeSubmissions) Update(_ context.Context, s models.Submission) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[s.ID]; !ok {
		return models.Submission{}, repo.ErrNotFound
	}
	s.UpdatedAt = time.Now()
	f.subs[s.ID] = s
	return s, nil
}

func (f *fakeSubmissions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.subs, id)
	return nil
}

func (f *fakeSubmissions) Assign(_ context.Context, id, reviewerID string) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok || s.Status != models.StatusPending {
		return models.Submission{}, repo.ErrNotFound
	}
	s.Status = models.StatusUnderReview
	s.ReviewedBy = &reviewerID
	s.UpdatedAt = time.Now()
	f.subs[id] = s
	return s, nil
}

func (f *fakeSubmissions) Release(_ context.Context, id, reviewerID string) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok || s.Status != models.StatusUnderReview || s.ReviewedBy == nil || *s.ReviewedBy != reviewerID {
		return models.Submission{}, repo.ErrNotFound
	}
	s.Status = models.StatusPending
	s.ReviewedBy = nil
	s.UpdatedAt = time.Now()
	f.subs[id] = s
	return s, nil
}

func (f *fakeSubmissions) Decide(_ context.Context, id, reviewerID string, decision models.SubmissionStatus, comments string) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok || s.Status != models.StatusUnderReview || s.ReviewedBy == nil || *s.ReviewedBy != reviewerID {
		return models.Submission{}, repo.ErrNotFound
	}
	now := time.Now()
	s.Status = decision
	s.ReviewComments = comments
	s.ReviewDate = &now
	s.UpdatedAt = now
	f.subs[id] = s
	return s, nil
}

func (f *fakeSubmissions) BatchDecide(_ context.Context, ids []string, decision models.SubmissionStatus, reviewerID, comments string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for _, id := range ids {
		s, ok := f.subs[id]
		if !ok || (s.Status != models.StatusPending && s.Status != models.StatusUnderReview) {
			continue
		}
		s.Status = decision
		s.ReviewedBy = &reviewerID
		s.ReviewComments = comments
		s.ReviewDate = &now
		s.UpdatedAt = now
		f.subs[id] = s
		n++
	}
	return n, nil
}

func (f *fakeSubmissions) Totals(_ context.Context) (repo.SubmissionTotals, error) {
	return f.totals, nil
}

func (f *fakeSubmissions) ReviewAggregates(_ context.Context, _ repo.StatsFilter) (repo.ReviewAggregates, error) {
	return f.aggregates, nil
}

func (f *fakeSubmissions) ExportRows(_ context.Context, _ repo.ExportFilter) ([]repo.ExportRow, error) {
	return f.exportRows, nil
}

type fakeAuditLogs struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAuditLogs) Create(_ context.Context, l models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, l)
	return nil
}

func (f *fakeAuditLogs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
