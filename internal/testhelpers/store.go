// Package testhelpers provides shared test doubles for the triage service.
package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonesrussell/civic-triage/internal/domain"
)

// MemoryStore is an in-memory implementation of every storage interface
// the service consumes. Ticket IDs are unique like the real schema.
type MemoryStore struct {
	mu          sync.RWMutex
	agencies    map[int64]domain.Agency
	categories  map[int64]domain.Category
	submissions map[int64]domain.Submission
	tickets     map[string]int64
	users       map[string]domain.User
	nextID      int64

	// Now stamps inserted rows. Defaults to time.Now.
	Now func() time.Time

	// Injected failures, returned by the matching methods when set.
	CountErr    error
	ExistsErr   error
	CategoryErr error
	InsertErr   error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agencies:    make(map[int64]domain.Agency),
		categories:  make(map[int64]domain.Category),
		submissions: make(map[int64]domain.Submission),
		tickets:     make(map[string]int64),
		users:       make(map[string]domain.User),
		Now:         time.Now,
	}
}

// AddAgency stores an agency and returns its ID.
func (m *MemoryStore) AddAgency(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	info := name + " contact desk"
	m.agencies[m.nextID] = domain.Agency{ID: m.nextID, Name: name, ContactInformation: &info}
	return m.nextID
}

// AddCategory stores a category owned by agencyID (nil for none).
func (m *MemoryStore) AddCategory(name string, agencyID *int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.categories[m.nextID] = domain.Category{ID: m.nextID, Name: name, AgencyID: agencyID}
	return m.nextID
}

// AddUser stores u.
func (m *MemoryStore) AddUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	m.users[u.Username] = u
}

// FindCategoryByID implements routing.CategoryStore.
func (m *MemoryStore) FindCategoryByID(_ context.Context, id int64) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.CategoryErr != nil {
		return nil, m.CategoryErr
	}
	c, ok := m.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

// FindCategoryByName implements routing.CategoryStore.
func (m *MemoryStore) FindCategoryByName(_ context.Context, name string) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.CategoryErr != nil {
		return nil, m.CategoryErr
	}
	for _, c := range m.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, domain.ErrNotFound)
}

// CountSubmissionsCreatedBetween implements ticket.Store.
func (m *MemoryStore) CountSubmissionsCreatedBetween(_ context.Context, start, end time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	n := 0
	for _, s := range m.submissions {
		if !s.CreatedAt.Before(start) && !s.CreatedAt.After(end) {
			n++
		}
	}
	return n, nil
}

// ExistsSubmissionWithTicketID implements ticket.Store.
func (m *MemoryStore) ExistsSubmissionWithTicketID(_ context.Context, ticketID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.tickets[ticketID]
	return ok, nil
}

// InsertSubmission stores s, assigning ID and timestamps. A taken ticket
// ID returns domain.ErrDuplicateTicketID.
func (m *MemoryStore) InsertSubmission(_ context.Context, s *domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if _, taken := m.tickets[s.TicketID]; taken {
		return fmt.Errorf("insert %s: %w", s.TicketID, domain.ErrDuplicateTicketID)
	}

	m.nextID++
	s.ID = m.nextID
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.Now()
	}
	s.UpdatedAt = s.CreatedAt
	m.submissions[s.ID] = *s
	m.tickets[s.TicketID] = s.ID
	return nil
}

// FindSubmissionByTicketID returns the submission with its category and agency.
func (m *MemoryStore) FindSubmissionByTicketID(_ context.Context, ticketID string) (*domain.SubmissionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", ticketID, domain.ErrNotFound)
	}
	d := m.detail(m.submissions[id])
	return &d, nil
}

// FindSubmissionByID returns the submission with its category and agency.
func (m *MemoryStore) FindSubmissionByID(_ context.Context, id int64) (*domain.SubmissionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %d: %w", id, domain.ErrNotFound)
	}
	d := m.detail(s)
	return &d, nil
}

// ListSubmissionsByAgency returns the agency's submissions, newest first.
func (m *MemoryStore) ListSubmissionsByAgency(_ context.Context, agencyID int64) ([]domain.SubmissionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.SubmissionDetail, 0)
	for _, s := range m.submissions {
		if s.AgencyID != nil && *s.AgencyID == agencyID {
			out = append(out, m.detail(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListSubmissionsByIDs returns the listed submissions that belong to
// agencyID, in the order given.
func (m *MemoryStore) ListSubmissionsByIDs(_ context.Context, agencyID int64, ids []int64) ([]domain.SubmissionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.SubmissionDetail, 0, len(ids))
	for _, id := range ids {
		s, ok := m.submissions[id]
		if ok && s.AgencyID != nil && *s.AgencyID == agencyID {
			out = append(out, m.detail(s))
		}
	}
	return out, nil
}

// UpdateSubmissionStatus writes status and admin response only.
func (m *MemoryStore) UpdateSubmissionStatus(_ context.Context, id int64, status domain.Status, adminResponse *string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return fmt.Errorf("submission %d: %w", id, domain.ErrNotFound)
	}
	s.Status = status
	s.AdminResponse = adminResponse
	s.UpdatedAt = updatedAt
	m.submissions[id] = s
	return nil
}

// ListCategories returns all categories by ID.
func (m *MemoryStore) ListCategories(_ context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListAgencies returns all agencies by ID.
func (m *MemoryStore) ListAgencies(_ context.Context) ([]domain.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Agency, 0, len(m.agencies))
	for _, a := range m.agencies {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SubmissionStats counts submissions. Uncategorized rows count toward the
// total and status but not toward any category.
func (m *MemoryStore) SubmissionStats(_ context.Context) (*domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.Stats{
		TotalSubmissions:      len(m.submissions),
		SubmissionsByStatus:   make(map[domain.Status]int),
		SubmissionsByCategory: make([]domain.CategoryCount, 0),
	}
	byCategory := make(map[int64]int)
	for _, s := range m.submissions {
		stats.SubmissionsByStatus[s.Status]++
		if s.CategoryID != nil {
			byCategory[*s.CategoryID]++
		}
	}
	ids := make([]int64, 0, len(byCategory))
	for id := range byCategory {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if c, ok := m.categories[id]; ok {
			stats.SubmissionsByCategory = append(stats.SubmissionsByCategory, domain.CategoryCount{CategoryName: c.Name, Count: byCategory[id]})
		}
	}
	return stats, nil
}

// CountOpenByAgency counts Received and In Progress submissions per agency.
func (m *MemoryStore) CountOpenByAgency(_ context.Context) ([]domain.OpenCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type key struct {
		agency int64
		status domain.Status
	}
	counts := make(map[key]int)
	for _, s := range m.submissions {
		if s.AgencyID != nil && s.Status.Open() {
			counts[key{*s.AgencyID, s.Status}]++
		}
	}
	out := make([]domain.OpenCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.OpenCount{AgencyID: k.agency, AgencyName: m.agencies[k.agency].Name, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgencyID != out[j].AgencyID {
			return out[i].AgencyID < out[j].AgencyID
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// FindUserByUsername implements auth.UserStore.
func (m *MemoryStore) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	return &u, nil
}

// CreateUser stores u and sets its ID. Usernames are unique.
func (m *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.users[u.Username]; taken {
		return fmt.Errorf("user %q already exists", u.Username)
	}
	m.nextID++
	u.ID = m.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.Now()
	}
	m.users[u.Username] = *u
	return nil
}

// FindAgencyByID returns an agency.
func (m *MemoryStore) FindAgencyByID(_ context.Context, id int64) (*domain.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agencies[id]
	if !ok {
		return nil, fmt.Errorf("agency %d: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

// Submissions returns a snapshot of every stored submission.
func (m *MemoryStore) Submissions() []domain.Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Submission, 0, len(m.submissions))
	for _, s := range m.submissions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetSubmissionStatus changes a stored submission's status for test setup.
func (m *MemoryStore) SetSubmissionStatus(id int64, status domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.submissions[id]
	s.Status = status
	m.submissions[id] = s
}

// detail must be called with m.mu held.
func (m *MemoryStore) detail(s domain.Submission) domain.SubmissionDetail {
	d := domain.SubmissionDetail{Submission: s}
	if s.CategoryID != nil {
		if c, ok := m.categories[*s.CategoryID]; ok {
			d.Category = &domain.CategorySummary{ID: c.ID, Name: c.Name, Description: c.Description}
		}
	}
	if s.AgencyID != nil {
		if a, ok := m.agencies[*s.AgencyID]; ok {
			d.Agency = &domain.AgencySummary{ID: a.ID, Name: a.Name, ContactInformation: a.ContactInformation}
		}
	}
	return d
}
