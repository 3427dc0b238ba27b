package domain

// RoutingSource says which fallback step produced a resolution.
type RoutingSource string

const (
	SourceExplicit   RoutingSource = "explicit"
	SourceClassified RoutingSource = "classified"
	SourceDefault    RoutingSource = "default"
	SourceNone       RoutingSource = "none"
)

// Resolution is a routing decision: a category and the agency that owns it.
// AgencyID always equals the category's agency.
type Resolution struct {
	CategoryID   int64
	AgencyID     int64
	CategoryName string
	Source       RoutingSource
}
