// Package books implements port.DocumentFetcher against the bookkeeping
// backend's JSON API.
package books

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/config"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/filter"
)

const searchPath = "/api/v1/documents/search"

// Client talks to the bookkeeping backend.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a fetcher from a books config.
func NewClient(cfg *config.BooksConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// searchRequest is the wire shape of a document search.
type searchRequest struct {
	Kinds      []domain.DocumentKind  `json:"kinds"`
	IssuedFrom string                 `json:"issued_from,omitempty"`
	IssuedTo   string                 `json:"issued_to,omitempty"`
	States     []domain.DocumentState `json:"states,omitempty"`
	Clauses    []domain.FilterClause  `json:"clauses,omitempty"`
}

type searchResponse struct {
	Documents []domain.AccountingDocument `json:"documents"`
}

// Fetch retrieves all documents matching the predicate, ordered by issue
// date then document number.
func (c *Client) Fetch(ctx context.Context, predicate filter.QueryPredicate) ([]domain.AccountingDocument, error) {
	reqBody := searchRequest{
		Kinds:   predicate.Kinds,
		States:  statesFor(predicate.States),
		Clauses: predicate.Clauses,
	}
	if !predicate.IssuedFrom.IsZero() {
		reqBody.IssuedFrom = predicate.IssuedFrom.Format("2006-01-02")
	}
	if !predicate.IssuedTo.IsZero() {
		reqBody.IssuedTo = predicate.IssuedTo.Format("2006-01-02")
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrFetchUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFetchRejected, resp.StatusCode, truncate(respBody, 300))
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchUnavailable, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response: %v", domain.ErrFetchRejected, err)
	}

	docs := parsed.Documents
	// The predicate is re-applied locally: the backend query may be looser
	// than the resolved state asymmetry.
	kept := docs[:0]
	for _, doc := range docs {
		if predicate.Matches(doc) {
			kept = append(kept, doc)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].IssueDate.Equal(kept[j].IssueDate) {
			return kept[i].IssueDate.Before(kept[j].IssueDate)
		}
		return kept[i].Number < kept[j].Number
	})
	return kept, nil
}

// statesFor widens the state filter for the backend query; the asymmetric
// draft admission is enforced locally by QueryPredicate.Matches.
func statesFor(state domain.StateFilter) []domain.DocumentState {
	switch state {
	case domain.StateAny:
		return nil
	case domain.StatePostedOnly:
		return []domain.DocumentState{domain.StatePosted}
	default:
		return []domain.DocumentState{domain.StatePosted, domain.StateDraft}
	}
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
