// Package intake is the submission service: it routes and stores citizen
// complaints, serves ticket tracking, and handles agency admin updates.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	infracontext "github.com/jonesrussell/civic-triage/infrastructure/context"
	infraevents "github.com/jonesrussell/civic-triage/infrastructure/events"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/export"
	"github.com/jonesrussell/civic-triage/internal/routing"
	"github.com/jonesrussell/civic-triage/internal/search"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
	"github.com/jonesrussell/civic-triage/internal/ticket"
)

// Store is the persistence the service needs.
type Store interface {
	InsertSubmission(ctx context.Context, s *domain.Submission) error
	FindSubmissionByTicketID(ctx context.Context, ticketID string) (*domain.SubmissionDetail, error)
	FindSubmissionByID(ctx context.Context, id int64) (*domain.SubmissionDetail, error)
	ListSubmissionsByAgency(ctx context.Context, agencyID int64) ([]domain.SubmissionDetail, error)
	ListSubmissionsByIDs(ctx context.Context, agencyID int64, ids []int64) ([]domain.SubmissionDetail, error)
	UpdateSubmissionStatus(ctx context.Context, id int64, status domain.Status, adminResponse *string, updatedAt time.Time) error
	SubmissionStats(ctx context.Context) (*domain.Stats, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListAgencies(ctx context.Context) ([]domain.Agency, error)
}

// Router decides category and agency for a submission.
type Router interface {
	Route(ctx context.Context, req routing.Request) (domain.Resolution, bool)
}

// Issuer hands out unique ticket IDs.
type Issuer interface {
	Issue(ctx context.Context, commit ticket.CommitFunc) (string, error)
}

// Publisher emits lifecycle events in the background.
type Publisher interface {
	PublishAsync(ctx context.Context, event infraevents.Event)
}

// Searcher indexes and queries submissions.
type Searcher interface {
	IndexSubmission(ctx context.Context, d domain.SubmissionDetail) error
	Search(ctx context.Context, agencyID int64, query string, size int) ([]search.Hit, error)
}

// NewSubmission is a citizen complaint as received.
type NewSubmission struct {
	Subject            *string
	Description        string
	CitizenContact     string
	LanguagePreference string
	CategoryID         *int64
}

// Receipt is returned after a successful submission.
type Receipt struct {
	TicketID   string
	Submission domain.Submission
	Resolution domain.Resolution
	Routed     bool
}

// Update is an admin change to a submission. An unset AdminResponse keeps
// the stored value; an explicit null clears it.
type Update struct {
	Status        domain.Status
	AdminResponse OptionalString
	UpdatedBy     string
}

// Service implements the intake and admin operations.
type Service struct {
	store     Store
	router    Router
	issuer    Issuer
	publisher Publisher
	searcher  Searcher
	languages []string
	location  *time.Location
	now       func() time.Time
	telemetry *telemetry.Provider
	validator *inputValidator
	log       logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher emits submission events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithSearcher enables indexing and admin search.
func WithSearcher(sr Searcher) Option {
	return func(s *Service) { s.searcher = sr }
}

// WithLanguages sets the accepted language preferences.
func WithLanguages(langs ...string) Option {
	return func(s *Service) {
		if len(langs) > 0 {
			s.languages = langs
		}
	}
}

// WithLocation sets the zone used for exported timestamps.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTelemetry records submission metrics.
func WithTelemetry(tp *telemetry.Provider) Option {
	return func(s *Service) { s.telemetry = tp }
}

// NewService wires the service.
func NewService(store Store, router Router, issuer Issuer, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		router:    router,
		issuer:    issuer,
		languages: []string{DefaultLanguage, "kinyarwanda"},
		location:  time.Local,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = newInputValidator(s.languages)
	return s
}

// Languages lists accepted language preferences.
func (s *Service) Languages() []string {
	return append([]string(nil), s.languages...)
}

// Submit validates, routes and stores a submission under a fresh ticket
// ID. An unrouted submission is stored with no category or agency.
func (s *Service) Submit(ctx context.Context, in NewSubmission) (*Receipt, error) {
	if err := s.validator.submission(&in); err != nil {
		return nil, err
	}

	res, routed := s.router.Route(ctx, routing.Request{
		Description:        in.Description,
		Language:           in.LanguagePreference,
		ExplicitCategoryID: in.CategoryID,
	})

	sub := domain.Submission{
		Subject:            in.Subject,
		Description:        in.Description,
		CitizenContact:     in.CitizenContact,
		LanguagePreference: in.LanguagePreference,
		Status:             domain.StatusReceived,
	}
	if routed {
		sub.CategoryID = &res.CategoryID
		sub.AgencyID = &res.AgencyID
	}

	ticketID, err := s.issuer.Issue(ctx, func(ctx context.Context, candidate string) error {
		attempt := sub
		attempt.ID = 0
		attempt.TicketID = candidate
		attempt.CreatedAt = s.now()
		if insertErr := s.store.InsertSubmission(ctx, &attempt); insertErr != nil {
			return insertErr
		}
		sub = attempt
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("issue ticket: %w", err)
	}

	s.telemetry.RecordSubmission(ctx, sub.LanguagePreference)

	source := domain.SourceNone
	if routed {
		source = res.Source
	}
	logger.FromContext(ctx).Info("Submission received",
		logger.String("ticket_id", ticketID),
		logger.Int64("submission_id", sub.ID),
		logger.String("routing_source", string(source)),
		logger.OptionalInt64("agency_id", sub.AgencyID),
	)

	s.publish(ctx, infraevents.Event{
		EventType: infraevents.SubmissionCreated,
		TicketID:  ticketID,
		Payload: infraevents.SubmissionCreatedPayload{
			SubmissionID:  sub.ID,
			CategoryID:    sub.CategoryID,
			AgencyID:      sub.AgencyID,
			RoutingSource: string(source),
			Language:      sub.LanguagePreference,
		},
	})
	s.index(ctx, sub.ID)

	return &Receipt{TicketID: ticketID, Submission: sub, Resolution: res, Routed: routed}, nil
}

// Track returns a submission by ticket ID.
func (s *Service) Track(ctx context.Context, ticketID string) (*domain.SubmissionDetail, error) {
	return s.store.FindSubmissionByTicketID(ctx, ticketID)
}

// ListForAgency returns the agency's submissions, newest first.
func (s *Service) ListForAgency(ctx context.Context, agencyID int64) ([]domain.SubmissionDetail, error) {
	return s.store.ListSubmissionsByAgency(ctx, agencyID)
}

// GetForAgency returns a submission owned by agencyID. It fails with
// domain.ErrNotFound or domain.ErrForbidden.
func (s *Service) GetForAgency(ctx context.Context, agencyID, id int64) (*domain.SubmissionDetail, error) {
	d, err := s.store.FindSubmissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.AgencyID == nil || *d.AgencyID != agencyID {
		return nil, fmt.Errorf("submission %d: %w", id, domain.ErrForbidden)
	}
	return d, nil
}

// UpdateForAgency changes status and admin response of a submission owned
// by agencyID and returns the stored result.
func (s *Service) UpdateForAgency(ctx context.Context, agencyID, id int64, u Update) (*domain.SubmissionDetail, error) {
	if err := s.validator.update(&u); err != nil {
		return nil, err
	}

	current, err := s.GetForAgency(ctx, agencyID, id)
	if err != nil {
		return nil, err
	}

	response := current.AdminResponse
	if u.AdminResponse.Set {
		response = u.AdminResponse.Value
	}

	if err := s.store.UpdateSubmissionStatus(ctx, id, u.Status, response, s.now()); err != nil {
		return nil, fmt.Errorf("update submission %d: %w", id, err)
	}

	updated, err := s.store.FindSubmissionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload submission %d: %w", id, err)
	}

	s.telemetry.RecordStatusUpdate(ctx, string(u.Status))
	logger.FromContext(ctx).Info("Submission updated",
		logger.Int64("submission_id", id),
		logger.String("previous_status", string(current.Status)),
		logger.String("status", string(u.Status)),
		logger.String("updated_by", u.UpdatedBy),
	)

	s.publish(ctx, infraevents.Event{
		EventType: infraevents.SubmissionUpdated,
		TicketID:  updated.TicketID,
		Payload: infraevents.SubmissionUpdatedPayload{
			SubmissionID:   id,
			AgencyID:       agencyID,
			PreviousStatus: string(current.Status),
			Status:         string(u.Status),
			UpdatedBy:      u.UpdatedBy,
		},
	})
	s.indexDetail(ctx, *updated)

	return updated, nil
}

// Stats returns the public dashboard summary.
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.store.SubmissionStats(ctx)
}

// Categories lists all categories.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

// Agencies lists all agencies.
func (s *Service) Agencies(ctx context.Context) ([]domain.Agency, error) {
	return s.store.ListAgencies(ctx)
}

// SearchEnabled reports whether Search can serve queries.
func (s *Service) SearchEnabled() bool {
	return s.searcher != nil
}

// Search runs a full-text query over the agency's submissions, best match
// first. It returns search.ErrDisabled when search is not configured.
func (s *Service) Search(ctx context.Context, agencyID int64, query string, size int) ([]domain.SubmissionDetail, error) {
	if s.searcher == nil {
		return nil, search.ErrDisabled
	}
	hits, err := s.searcher.Search(ctx, agencyID, query, size)
	if err != nil {
		return nil, fmt.Errorf("search submissions: %w", err)
	}
	return s.store.ListSubmissionsByIDs(ctx, agencyID, search.IDs(hits))
}

// Export writes the agency's submissions to w as an XLSX workbook.
func (s *Service) Export(ctx context.Context, agencyID int64, w io.Writer) error {
	subs, err := s.store.ListSubmissionsByAgency(ctx, agencyID)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	return export.WriteSubmissions(w, subs, s.location)
}

func (s *Service) publish(ctx context.Context, event infraevents.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishAsync(ctx, event)
}

func (s *Service) index(ctx context.Context, id int64) {
	if s.searcher == nil {
		return
	}
	d, err := s.store.FindSubmissionByID(ctx, id)
	if err != nil {
		s.log.Warn("Failed to load submission for indexing",
			logger.Int64("submission_id", id), logger.Error(err))
		return
	}
	s.indexDetail(ctx, *d)
}

// indexDetail is best effort; the database stays the source of truth.
func (s *Service) indexDetail(ctx context.Context, d domain.SubmissionDetail) {
	if s.searcher == nil {
		return
	}
	ctx, cancel := infracontext.Detached(ctx)
	defer cancel()

	if err := s.searcher.IndexSubmission(ctx, d); err != nil {
		s.log.Warn("Failed to index submission",
			logger.Int64("submission_id", d.ID), logger.Error(err))
	}
}

// IsValidation reports whether err carries field errors.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
