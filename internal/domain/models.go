// Package domain holds the entities shared by the routing core and the
// intake service.
package domain

import "time"

// Status is a submission's lifecycle state.
type Status string

const (
	StatusReceived   Status = "Received"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusReceived, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Open reports whether the submission still needs agency attention.
func (s Status) Open() bool {
	return s == StatusReceived || s == StatusInProgress
}

// Agency is a government body that handles submissions.
type Agency struct {
	ID                 int64   `db:"id"                  json:"id"`
	Name               string  `db:"name"                json:"name"`
	ContactEmail       *string `db:"contact_email"       json:"contact_email,omitempty"`
	ContactInformation *string `db:"contact_information" json:"contact_information,omitempty"`
}

// Category groups submissions and names the agency that owns them.
type Category struct {
	ID          int64   `db:"id"          json:"id"`
	Name        string  `db:"name"        json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	AgencyID    *int64  `db:"agency_id"   json:"agency_id,omitempty"`
}

// Submission is a citizen complaint. CategoryID, AgencyID and TicketID are
// fixed at creation.
type Submission struct {
	ID                 int64     `db:"id"                  json:"id"`
	TicketID           string    `db:"ticket_id"           json:"ticket_id"`
	CategoryID         *int64    `db:"category_id"         json:"category_id,omitempty"`
	AgencyID           *int64    `db:"agency_id"           json:"agency_id,omitempty"`
	Subject            *string   `db:"subject"             json:"subject,omitempty"`
	Description        string    `db:"description"         json:"description"`
	CitizenContact     string    `db:"citizen_contact"     json:"citizen_contact"`
	LanguagePreference string    `db:"language_preference" json:"language_preference"`
	Status             Status    `db:"status"              json:"status"`
	AdminResponse      *string   `db:"admin_response"      json:"admin_response,omitempty"`
	CreatedAt          time.Time `db:"created_at"          json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"          json:"updated_at"`
}

// CategorySummary is the category block embedded in submission views.
type CategorySummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// AgencySummary is the agency block embedded in submission views.
type AgencySummary struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	ContactInformation *string `json:"contact_information,omitempty"`
}

// SubmissionDetail is a submission with its category and agency attached.
type SubmissionDetail struct {
	Submission
	Category *CategorySummary `json:"category,omitempty"`
	Agency   *AgencySummary   `json:"agency,omitempty"`
}

// User is an agency administrator.
type User struct {
	ID           int64     `db:"id"            json:"id"`
	Username     string    `db:"username"      json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	AgencyID     *int64    `db:"agency_id"     json:"agency_id,omitempty"`
	Role         string    `db:"role"          json:"role"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}

// RoleAdmin is the default and only user role.
const RoleAdmin = "admin"

// Stats is the public dashboard summary.
type Stats struct {
	TotalSubmissions      int             `json:"totalSubmissions"`
	SubmissionsByStatus   map[Status]int  `json:"submissionsByStatus"`
	SubmissionsByCategory []CategoryCount `json:"submissionsByCategory"`
}

// CategoryCount is the number of submissions in one category.
type CategoryCount struct {
	CategoryName string `db:"category_name" json:"category_name"`
	Count        int    `db:"count"         json:"count"`
}

// StatusCount is the number of submissions in one status.
type StatusCount struct {
	Status Status `db:"status"`
	Count  int    `db:"count"`
}

// OpenCount is the number of open submissions per agency and status.
type OpenCount struct {
	AgencyID   int64  `db:"agency_id"`
	AgencyName string `db:"agency_name"`
	Status     Status `db:"status"`
	Count      int    `db:"count"`
}
