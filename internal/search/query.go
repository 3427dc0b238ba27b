package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Hit is one search result.
type Hit struct {
	SubmissionID int64
	Score        float64
}

// buildQuery matches text fields and restricts results to one agency.
func buildQuery(agencyID int64, query string, size int) map[string]any {
	return map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"multi_match": map[string]any{
							"query":  query,
							"fields": []string{"subject^2", "description", "admin_response", "ticket_id^3"},
						},
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"agency_id": agencyID}},
				},
			},
		},
		"sort": []any{
			"_score",
			map[string]any{"created_at": map[string]any{"order": "desc"}},
		},
		"_source": false,
	}
}

// Search returns IDs of the agency's submissions matching query, best
// first. size <= 0 uses the default page size.
func (i *Index) Search(ctx context.Context, agencyID int64, query string, size int) ([]Hit, error) {
	if !i.Enabled() {
		return nil, ErrDisabled
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []Hit{}, nil
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	size = min(size, maxSearchSize)

	body, err := json.Marshal(buildQuery(agencyID, query, size))
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search %s: %s", i.name, string(msg))
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&esResponse); decodeErr != nil {
		return nil, fmt.Errorf("decode search response: %w", decodeErr)
	}

	hits := make([]Hit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		id, parseErr := strconv.ParseInt(h.ID, 10, 64)
		if parseErr != nil {
			i.log.Warn("Skipping search hit with non-numeric id")
			continue
		}
		hits = append(hits, Hit{SubmissionID: id, Score: h.Score})
	}
	return hits, nil
}

// IDs returns the submission IDs of hits in order.
func IDs(hits []Hit) []int64 {
	ids := make([]int64, len(hits))
	for n, h := range hits {
		ids[n] = h.SubmissionID
	}
	return ids
}
