package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/civic-triage/internal/domain"
)

// Store implements the storage interfaces of the routing, ticket, intake,
// auth and digest packages.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the handle for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

const categoryColumns = `id, name, description, agency_id`

// FindCategoryByID returns a category or domain.ErrNotFound.
func (s *Store) FindCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := s.db.GetContext(ctx, &c, s.q(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("category %d", id))
	}
	return &c, nil
}

// FindCategoryByName returns the category with exactly this name.
func (s *Store) FindCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	err := s.db.GetContext(ctx, &c, s.q(`SELECT `+categoryColumns+` FROM categories WHERE name = ?`), name)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("category %q", name))
	}
	return &c, nil
}

// ListCategories returns every category ordered by ID.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := make([]domain.Category, 0)
	if err := s.db.SelectContext(ctx, &categories, `SELECT `+categoryColumns+` FROM categories ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

const agencyColumns = `id, name, contact_email, contact_information`

// FindAgencyByID returns an agency or domain.ErrNotFound.
func (s *Store) FindAgencyByID(ctx context.Context, id int64) (*domain.Agency, error) {
	var a domain.Agency
	err := s.db.GetContext(ctx, &a, s.q(`SELECT `+agencyColumns+` FROM agencies WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("agency %d", id))
	}
	return &a, nil
}

// ListAgencies returns every agency ordered by ID.
func (s *Store) ListAgencies(ctx context.Context) ([]domain.Agency, error) {
	agencies := make([]domain.Agency, 0)
	if err := s.db.SelectContext(ctx, &agencies, `SELECT `+agencyColumns+` FROM agencies ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	return agencies, nil
}

// CountSubmissionsCreatedBetween counts submissions with start <= created_at <= end.
func (s *Store) CountSubmissionsCreatedBetween(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		s.q(`SELECT COUNT(*) FROM submissions WHERE created_at BETWEEN ? AND ?`),
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// ExistsSubmissionWithTicketID reports whether ticketID is taken.
func (s *Store) ExistsSubmissionWithTicketID(ctx context.Context, ticketID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		s.q(`SELECT EXISTS (SELECT 1 FROM submissions WHERE ticket_id = ?)`), ticketID)
	if err != nil {
		return false, fmt.Errorf("check ticket id: %w", err)
	}
	return exists, nil
}

// InsertSubmission stores sub and sets its ID and timestamps. A taken
// ticket ID returns domain.ErrDuplicateTicketID.
func (s *Store) InsertSubmission(ctx context.Context, sub *domain.Submission) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.CreatedAt

	query := s.q(`
		INSERT INTO submissions (
			ticket_id, category_id, agency_id, subject, description,
			citizen_contact, language_preference, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.db.QueryRowxContext(ctx, query,
		sub.TicketID,
		sub.CategoryID,
		sub.AgencyID,
		sub.Subject,
		sub.Description,
		sub.CitizenContact,
		sub.LanguagePreference,
		sub.Status,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Scan(&sub.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert submission %s: %w", sub.TicketID, domain.ErrDuplicateTicketID)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// UpdateSubmissionStatus writes status and admin response. Routing columns
// are never touched.
func (s *Store) UpdateSubmissionStatus(ctx context.Context, id int64, status domain.Status, adminResponse *string, updatedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE submissions SET status = ?, admin_response = ?, updated_at = ? WHERE id = ?`),
		status, adminResponse, updatedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update submission %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("submission %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

const detailSelect = `
	SELECT s.id, s.ticket_id, s.category_id, s.agency_id, s.subject, s.description,
	       s.citizen_contact, s.language_preference, s.status, s.admin_response,
	       s.created_at, s.updated_at,
	       c.name AS category_name, c.description AS category_description,
	       a.name AS agency_name, a.contact_information AS agency_contact
	FROM submissions s
	LEFT JOIN categories c ON c.id = s.category_id
	LEFT JOIN agencies a ON a.id = s.agency_id
`

type detailRow struct {
	domain.Submission
	CategoryName        sql.NullString `db:"category_name"`
	CategoryDescription sql.NullString `db:"category_description"`
	AgencyName          sql.NullString `db:"agency_name"`
	AgencyContact       sql.NullString `db:"agency_contact"`
}

func (r detailRow) toDetail() domain.SubmissionDetail {
	d := domain.SubmissionDetail{Submission: r.Submission}
	if r.CategoryID != nil && r.CategoryName.Valid {
		d.Category = &domain.CategorySummary{
			ID:          *r.CategoryID,
			Name:        r.CategoryName.String,
			Description: nullableString(r.CategoryDescription),
		}
	}
	if r.AgencyID != nil && r.AgencyName.Valid {
		d.Agency = &domain.AgencySummary{
			ID:                 *r.AgencyID,
			Name:               r.AgencyName.String,
			ContactInformation: nullableString(r.AgencyContact),
		}
	}
	return d
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// FindSubmissionByTicketID returns a submission with its category and agency.
func (s *Store) FindSubmissionByTicketID(ctx context.Context, ticketID string) (*domain.SubmissionDetail, error) {
	var row detailRow
	if err := s.db.GetContext(ctx, &row, s.q(detailSelect+` WHERE s.ticket_id = ?`), ticketID); err != nil {
		return nil, notFound(err, "submission "+ticketID)
	}
	d := row.toDetail()
	return &d, nil
}

// FindSubmissionByID returns a submission with its category and agency.
func (s *Store) FindSubmissionByID(ctx context.Context, id int64) (*domain.SubmissionDetail, error) {
	var row detailRow
	if err := s.db.GetContext(ctx, &row, s.q(detailSelect+` WHERE s.id = ?`), id); err != nil {
		return nil, notFound(err, fmt.Sprintf("submission %d", id))
	}
	d := row.toDetail()
	return &d, nil
}

// ListSubmissionsByAgency returns the agency's submissions, newest first.
func (s *Store) ListSubmissionsByAgency(ctx context.Context, agencyID int64) ([]domain.SubmissionDetail, error) {
	var rows []detailRow
	err := s.db.SelectContext(ctx, &rows,
		s.q(detailSelect+` WHERE s.agency_id = ? ORDER BY s.created_at DESC, s.id DESC`), agencyID)
	if err != nil {
		return nil, fmt.Errorf("list submissions for agency %d: %w", agencyID, err)
	}
	return toDetails(rows), nil
}

// ListSubmissionsByIDs returns the listed submissions owned by agencyID, in
// the order of ids.
func (s *Store) ListSubmissionsByIDs(ctx context.Context, agencyID int64, ids []int64) ([]domain.SubmissionDetail, error) {
	if len(ids) == 0 {
		return []domain.SubmissionDetail{}, nil
	}

	query, args, err := sqlx.In(detailSelect+` WHERE s.agency_id = ? AND s.id IN (?)`, agencyID, ids)
	if err != nil {
		return nil, fmt.Errorf("build submission id query: %w", err)
	}

	var rows []detailRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("list submissions by id: %w", err)
	}

	byID := make(map[int64]detailRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]domain.SubmissionDetail, 0, len(rows))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r.toDetail())
		}
	}
	return out, nil
}

func toDetails(rows []detailRow) []domain.SubmissionDetail {
	out := make([]domain.SubmissionDetail, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDetail())
	}
	return out
}

// SubmissionStats computes the dashboard summary. Uncategorized
// submissions count toward the total and status only.
func (s *Store) SubmissionStats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{SubmissionsByStatus: make(map[domain.Status]int)}

	if err := s.db.GetContext(ctx, &stats.TotalSubmissions, `SELECT COUNT(*) FROM submissions`); err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}

	var byStatus []domain.StatusCount
	err := s.db.SelectContext(ctx, &byStatus,
		`SELECT status, COUNT(*) AS count FROM submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for _, sc := range byStatus {
		stats.SubmissionsByStatus[sc.Status] = sc.Count
	}

	stats.SubmissionsByCategory = make([]domain.CategoryCount, 0)
	err = s.db.SelectContext(ctx, &stats.SubmissionsByCategory, `
		SELECT c.name AS category_name, COUNT(s.id) AS count
		FROM submissions s
		JOIN categories c ON c.id = s.category_id
		GROUP BY c.id, c.name
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}

	return stats, nil
}

// CountOpenByAgency counts Received and In Progress submissions per agency.
func (s *Store) CountOpenByAgency(ctx context.Context) ([]domain.OpenCount, error) {
	counts := make([]domain.OpenCount, 0)
	err := s.db.SelectContext(ctx, &counts, s.q(`
		SELECT a.id AS agency_id, a.name AS agency_name, s.status, COUNT(*) AS count
		FROM submissions s
		JOIN agencies a ON a.id = s.agency_id
		WHERE s.status IN (?, ?)
		GROUP BY a.id, a.name, s.status
		ORDER BY a.id, s.status
	`), domain.StatusReceived, domain.StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("count open submissions: %w", err)
	}
	return counts, nil
}

const userColumns = `id, username, password_hash, agency_id, role, created_at`

// FindUserByUsername returns an admin user or domain.ErrNotFound.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	if err != nil {
		return nil, notFound(err, "user "+username)
	}
	return &u, nil
}

// CreateUser inserts u and sets its ID.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleAdmin
	}
	u.CreatedAt = s.now().UTC()

	err := s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO users (username, password_hash, agency_id, role, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		u.Username, u.PasswordHash, u.AgencyID, u.Role, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q already exists: %w", u.Username, err)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
