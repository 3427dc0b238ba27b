// Package search indexes submissions into Elasticsearch and serves the
// admin full-text search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/telemetry"
)

// DefaultIndexName is the submissions index.
const DefaultIndexName = "civic_submissions"

const (
	defaultSearchSize = 50
	maxSearchSize     = 200
)

// ErrDisabled is returned by Search when no Elasticsearch client is wired.
var ErrDisabled = errors.New("search is not configured")

// Document is the indexed form of a submission. Citizen contact details
// are never indexed.
type Document struct {
	SubmissionID       int64     `json:"submission_id"`
	TicketID           string    `json:"ticket_id"`
	Subject            string    `json:"subject,omitempty"`
	Description        string    `json:"description"`
	Status             string    `json:"status"`
	LanguagePreference string    `json:"language_preference"`
	CategoryName       string    `json:"category_name,omitempty"`
	AgencyID           *int64    `json:"agency_id,omitempty"`
	AdminResponse      string    `json:"admin_response,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewDocument flattens a submission detail.
func NewDocument(d domain.SubmissionDetail) Document {
	doc := Document{
		SubmissionID:       d.ID,
		TicketID:           d.TicketID,
		Description:        d.Description,
		Status:             string(d.Status),
		LanguagePreference: d.LanguagePreference,
		AgencyID:           d.AgencyID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.Subject != nil {
		doc.Subject = *d.Subject
	}
	if d.AdminResponse != nil {
		doc.AdminResponse = *d.AdminResponse
	}
	if d.Category != nil {
		doc.CategoryName = d.Category.Name
	}
	return doc
}

// Index writes and queries the submissions index. A nil *Index is a valid
// disabled index: writes are no-ops and Search returns ErrDisabled.
type Index struct {
	client    *es.Client
	name      string
	refresh   string
	log       logger.Logger
	telemetry *telemetry.Provider
}

// Option configures an Index.
type Option func(*Index)

// WithIndexName overrides DefaultIndexName.
func WithIndexName(name string) Option {
	return func(i *Index) {
		if name != "" {
			i.name = name
		}
	}
}

// WithRefresh sets the refresh parameter on writes ("true", "wait_for").
func WithRefresh(refresh string) Option {
	return func(i *Index) {
		i.refresh = refresh
	}
}

// WithTelemetry records indexing outcomes.
func WithTelemetry(tp *telemetry.Provider) Option {
	return func(i *Index) {
		i.telemetry = tp
	}
}

// New returns nil when client is nil.
func New(client *es.Client, log logger.Logger, opts ...Option) *Index {
	if client == nil {
		return nil
	}
	i := &Index{client: client, name: DefaultIndexName, log: log}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Enabled reports whether a client is wired.
func (i *Index) Enabled() bool {
	return i != nil && i.client != nil
}

// Name returns the index name.
func (i *Index) Name() string {
	if i == nil {
		return ""
	}
	return i.name
}

// Ping checks cluster connectivity.
func (i *Index) Ping(ctx context.Context) error {
	if !i.Enabled() {
		return ErrDisabled
	}
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping elasticsearch: %s", res.Status())
	}
	return nil
}

var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"submission_id":       map[string]any{"type": "long"},
			"ticket_id":           map[string]any{"type": "keyword"},
			"subject":             map[string]any{"type": "text"},
			"description":         map[string]any{"type": "text"},
			"status":              map[string]any{"type": "keyword"},
			"language_preference": map[string]any{"type": "keyword"},
			"category_name":       map[string]any{"type": "keyword"},
			"agency_id":           map[string]any{"type": "long"},
			"admin_response":      map[string]any{"type": "text"},
			"created_at":          map[string]any{"type": "date"},
			"updated_at":          map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with its mapping if it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	if !i.Enabled() {
		return nil
	}

	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index existence: %w", err)
	}
	_ = res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		return nil
	case res.StatusCode != http.StatusNotFound:
		return fmt.Errorf("check index existence: %s", res.Status())
	}

	body, err := json.Marshal(indexMapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	res, err = i.client.Indices.Create(i.name,
		i.client.Indices.Create.WithBody(bytes.NewReader(body)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		// Another instance may have created it between the two calls.
		if strings.Contains(string(msg), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index %s: %s", i.name, string(msg))
	}

	i.log.Info("Search index created", logger.String("index", i.name))
	return nil
}

// IndexSubmission upserts the submission document.
func (i *Index) IndexSubmission(ctx context.Context, d domain.SubmissionDetail) error {
	if !i.Enabled() {
		return nil
	}

	body, err := json.Marshal(NewDocument(d))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		i.client.Index.WithDocumentID(strconv.FormatInt(d.ID, 10)),
		i.client.Index.WithContext(ctx),
	}
	if i.refresh != "" {
		opts = append(opts, i.client.Index.WithRefresh(i.refresh))
	}

	res, err := i.client.Index(i.name, bytes.NewReader(body), opts...)
	if err != nil {
		i.telemetry.RecordSearchIndex(ctx, false)
		return fmt.Errorf("index submission %d: %w", d.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		i.telemetry.RecordSearchIndex(ctx, false)
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index submission %d: %s", d.ID, string(msg))
	}

	i.telemetry.RecordSearchIndex(ctx, true)
	return nil
}
