// Package api exposes the intake service over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	infraerrors "github.com/jonesrussell/civic-triage/infrastructure/errors"
	infragin "github.com/jonesrussell/civic-triage/infrastructure/gin"
	"github.com/jonesrussell/civic-triage/infrastructure/jwt"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/auth"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/export"
	"github.com/jonesrussell/civic-triage/internal/intake"
	"github.com/jonesrussell/civic-triage/internal/search"
	"github.com/jonesrussell/civic-triage/internal/ticket"
)

// Messages shared with API clients.
const (
	msgValidation        = "Validation Error"
	msgInvalidBody       = "Request body must be valid JSON."
	msgSubmissionCreated = "Submission received successfully."
	msgTicketExhausted   = "Failed to generate a unique ticket ID. Please try again."
	msgTicketRequired    = "Valid Ticket ID is required."
	msgTrackNotFound     = "Submission not found."
	msgNotFound          = "Submission not found"
	msgInvalidID         = "Invalid Submission ID provided."
	msgNoAgency          = "Unauthorized: Admin agency information not available."
	msgUpdateForbidden   = "Forbidden: You are not authorized to update this submission."
	msgViewForbidden     = "Forbidden: You are not authorized to view this submission."
	msgUpdated           = "Submission updated successfully"
	msgMissingLogin      = "Username and password are required."
	msgInvalidLogin      = "Invalid credentials"
	msgLoginOK           = "Login successful"
	msgSearchDisabled    = "Search is not enabled."
)

// Service is the intake surface the handlers call.
type Service interface {
	Submit(ctx context.Context, in intake.NewSubmission) (*intake.Receipt, error)
	Track(ctx context.Context, ticketID string) (*domain.SubmissionDetail, error)
	ListForAgency(ctx context.Context, agencyID int64) ([]domain.SubmissionDetail, error)
	GetForAgency(ctx context.Context, agencyID, id int64) (*domain.SubmissionDetail, error)
	UpdateForAgency(ctx context.Context, agencyID, id int64, u intake.Update) (*domain.SubmissionDetail, error)
	Stats(ctx context.Context) (*domain.Stats, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Agencies(ctx context.Context) ([]domain.Agency, error)
	Search(ctx context.Context, agencyID int64, query string, size int) ([]domain.SubmissionDetail, error)
	Export(ctx context.Context, agencyID int64, w io.Writer) error
}

// Authenticator signs in agency admins.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
}

// Handler serves the public and admin endpoints.
type Handler struct {
	service Service
	auth    Authenticator
	now     func() time.Time
}

// NewHandler returns a Handler.
func NewHandler(service Service, authenticator Authenticator) *Handler {
	return &Handler{service: service, auth: authenticator, now: time.Now}
}

type createSubmissionRequest struct {
	Subject            *string `json:"subject"`
	Description        string  `json:"description"`
	CitizenContact     string  `json:"citizen_contact"`
	LanguagePreference string  `json:"language_preference"`
	CategoryID         *int64  `json:"category_id"`
}

type updateSubmissionRequest struct {
	Status        string                `json:"status"`
	AdminResponse intake.OptionalString `json:"admin_response"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type agencyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type loginResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	Agency    *agencyRef `json:"agency"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// CreateSubmission handles POST /submissions.
func (h *Handler) CreateSubmission(c *gin.Context) {
	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		infragin.Fail(c, http.StatusBadRequest, msgValidation, msgInvalidBody)
		return
	}

	receipt, err := h.service.Submit(c.Request.Context(), intake.NewSubmission{
		Subject:            req.Subject,
		Description:        req.Description,
		CitizenContact:     req.CitizenContact,
		LanguagePreference: req.LanguagePreference,
		CategoryID:         req.CategoryID,
	})
	if err != nil {
		if errors.Is(err, ticket.ErrRetryBudgetExhausted) {
			logger.FromContext(c.Request.Context()).Error("Ticket ID generation exhausted", logger.Error(err))
			infragin.Fail(c, http.StatusInternalServerError, msgTicketExhausted)
			return
		}
		respondError(c, err, msgNotFound, msgViewForbidden)
		return
	}

	infragin.OK(c, http.StatusCreated, msgSubmissionCreated, gin.H{"ticketId": receipt.TicketID})
}

// TrackSubmission handles GET /submissions/:ticketId.
func (h *Handler) TrackSubmission(c *gin.Context) {
	ticketID := strings.TrimSpace(c.Param("ticketId"))
	if ticketID == "" {
		infragin.Fail(c, http.StatusBadRequest, msgTicketRequired)
		return
	}

	detail, err := h.service.Track(c.Request.Context(), ticketID)
	if err != nil {
		respondError(c, err, msgTrackNotFound, msgViewForbidden)
		return
	}
	infragin.OK(c, http.StatusOK, "", detail)
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		infragin.Error(c, infraerrors.Internal("Failed to retrieve categories.", err))
		return
	}

	out := make([]domain.CategorySummary, len(categories))
	for i, cat := range categories {
		out[i] = domain.CategorySummary{ID: cat.ID, Name: cat.Name, Description: cat.Description}
	}
	infragin.OK(c, http.StatusOK, "", out)
}

// ListAgencies handles GET /agencies.
func (h *Handler) ListAgencies(c *gin.Context) {
	agencies, err := h.service.Agencies(c.Request.Context())
	if err != nil {
		infragin.Error(c, infraerrors.Internal("Failed to retrieve agencies.", err))
		return
	}
	infragin.OK(c, http.StatusOK, "", agencies)
}

// StatsSummary handles GET /stats/summary.
func (h *Handler) StatsSummary(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		infragin.Error(c, infraerrors.Internal("Failed to retrieve statistics summary.", err))
		return
	}
	infragin.OK(c, http.StatusOK, "", stats)
}

// Login handles POST /admin/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		infragin.Fail(c, http.StatusBadRequest, msgMissingLogin)
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		infragin.Fail(c, http.StatusBadRequest, msgMissingLogin)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		infragin.Fail(c, http.StatusUnauthorized, msgInvalidLogin)
		return
	case err != nil:
		infragin.Error(c, infraerrors.Internal("Login failed due to an internal error.", err))
		return
	}

	resp := loginResponse{
		ID:        session.User.ID,
		Username:  session.User.Username,
		Role:      session.User.Role,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}
	if session.Agency != nil {
		resp.Agency = &agencyRef{ID: session.Agency.ID, Name: session.Agency.Name}
	}
	infragin.OK(c, http.StatusOK, msgLoginOK, resp)
}

// ListSubmissions handles GET /admin/submissions.
func (h *Handler) ListSubmissions(c *gin.Context) {
	agencyID, ok := adminAgency(c)
	if !ok {
		return
	}

	subs, err := h.service.ListForAgency(c.Request.Context(), agencyID)
	if err != nil {
		infragin.Error(c, infraerrors.Internal("Failed to retrieve submissions.", err))
		return
	}
	infragin.OK(c, http.StatusOK, "", nonNil(subs))
}

// GetSubmission handles GET /admin/submissions/:id.
func (h *Handler) GetSubmission(c *gin.Context) {
	agencyID, ok := adminAgency(c)
	if !ok {
		return
	}
	id, ok := submissionID(c)
	if !ok {
		return
	}

	detail, err := h.service.GetForAgency(c.Request.Context(), agencyID, id)
	if err != nil {
		respondError(c, err, msgNotFound, msgViewForbidden)
		return
	}
	infragin.OK(c, http.StatusOK, "", detail)
}

// UpdateSubmission handles PUT /admin/submissions/:id.
func (h *Handler) UpdateSubmission(c *gin.Context) {
	agencyID, ok := adminAgency(c)
	if !ok {
		return
	}
	id, ok := submissionID(c)
	if !ok {
		return
	}

	var req updateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		infragin.Fail(c, http.StatusBadRequest, msgValidation, msgInvalidBody)
		return
	}

	var updatedBy string
	if claims, found := jwt.GetClaims(c); found {
		updatedBy = claims.Username
	}

	detail, err := h.service.UpdateForAgency(c.Request.Context(), agencyID, id, intake.Update{
		Status:        domain.Status(req.Status),
		AdminResponse: req.AdminResponse,
		UpdatedBy:     updatedBy,
	})
	if err != nil {
		respondError(c, err, msgNotFound, msgUpdateForbidden)
		return
	}
	infragin.OK(c, http.StatusOK, msgUpdated, detail)
}

// SearchSubmissions handles GET /admin/submissions/search?q=&size=.
func (h *Handler) SearchSubmissions(c *gin.Context) {
	agencyID, ok := adminAgency(c)
	if !ok {
		return
	}

	size, _ := strconv.Atoi(c.Query("size"))
	results, err := h.service.Search(c.Request.Context(), agencyID, c.Query("q"), size)
	if err != nil {
		if errors.Is(err, search.ErrDisabled) {
			infragin.Fail(c, http.StatusServiceUnavailable, msgSearchDisabled)
			return
		}
		infragin.Error(c, infraerrors.Internal("Failed to search submissions.", err))
		return
	}
	infragin.OK(c, http.StatusOK, "", nonNil(results))
}

// ExportSubmissions handles GET /admin/submissions/export.
func (h *Handler) ExportSubmissions(c *gin.Context) {
	agencyID, ok := adminAgency(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), agencyID, &buf); err != nil {
		infragin.Error(c, infraerrors.Internal("Failed to export submissions.", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(agencyID, h.now())+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// adminAgency returns the agency carried by the caller's token.
func adminAgency(c *gin.Context) (int64, bool) {
	claims, ok := jwt.GetClaims(c)
	if !ok || claims.AgencyID == nil {
		infragin.Fail(c, http.StatusUnauthorized, msgNoAgency)
		return 0, false
	}
	return *claims.AgencyID, true
}

func submissionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		infragin.Fail(c, http.StatusBadRequest, msgInvalidID)
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error, notFound, forbidden string) {
	if ve, ok := intake.IsValidation(err); ok {
		infragin.Fail(c, http.StatusBadRequest, msgValidation, ve.Messages()...)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		infragin.Error(c, infraerrors.NotFound(notFound))
	case errors.Is(err, domain.ErrForbidden):
		infragin.Error(c, infraerrors.Forbidden(forbidden))
	default:
		infragin.Error(c, infraerrors.Internal("Internal server error", err))
	}
}

func nonNil(subs []domain.SubmissionDetail) []domain.SubmissionDetail {
	if subs == nil {
		return []domain.SubmissionDetail{}
	}
	return subs
}
