package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mkrasov/foundry/internal/filter"
)

// ErrMalformed marks a response whose shape did not match the contract.
var ErrMalformed = errors.New("malformed response")

// StatusError is a non-2xx answer from the upstream service.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Client talks to the industry backend over HTTP. It owns no retry or
// timeout policy beyond the configured http.Client; callers bound requests
// through the context.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given backend base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// NewWithHTTPClient creates a Client with a custom http.Client (used by tests
// and by callers that want a transport-level timeout).
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	c := New(baseURL)
	c.httpClient = hc
	return c
}

// FetchCategories retrieves the category catalog. One-shot per session; the
// caller hands the result to filter hydration.
func (c *Client) FetchCategories(ctx context.Context) ([]filter.Category, error) {
	var categories []filter.Category
	if err := c.getJSON(ctx, "/api/manufacturing-categories", nil, &categories); err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	return categories, nil
}

// FetchCatalog retrieves the catalog entries matching a built query.
func (c *Client) FetchCatalog(ctx context.Context, q filter.Query) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := c.getJSON(ctx, "/api/manufacturing", encodeQuery(q), &entries); err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	return entries, nil
}

// FetchManufacturing retrieves the build answer for one parameter tuple.
func (c *Client) FetchManufacturing(ctx context.Context, typeID int32, me, te int, facilityTax float64) (*ManufacturingResult, error) {
	params := url.Values{}
	params.Set("ME", strconv.Itoa(me))
	params.Set("TE", strconv.Itoa(te))
	params.Set("facilityTax", strconv.FormatFloat(facilityTax, 'f', -1, 64))

	var result ManufacturingResult
	if err := c.getJSON(ctx, fmt.Sprintf("/api/manufacturing/%d", typeID), params, &result); err != nil {
		return nil, fmt.Errorf("fetching manufacturing for type %d: %w", typeID, err)
	}
	return &result, nil
}

// encodeQuery serializes a filter.Query to wire parameters. nameFilter and
// maxProductionCosts are omitted when falsy; hasRequiredSkillsOnly is always
// sent. The asymmetry is part of the upstream filtering contract.
func encodeQuery(q filter.Query) url.Values {
	params := url.Values{}
	params.Set("sortBy", string(q.SortBy))

	if q.NameFilter != "" {
		params.Set("nameFilter", q.NameFilter)
	}
	if q.MaxProductionCost != 0 {
		params.Set("maxProductionCosts", strconv.FormatFloat(q.MaxProductionCost, 'f', -1, 64))
	}

	params.Set("hasRequiredSkillsOnly", strconv.FormatBool(q.HasRequiredSkillsOnly))

	ids := make([]string, len(q.CategoryIDs))
	for i, id := range q.CategoryIDs {
		ids[i] = strconv.FormatInt(int64(id), 10)
	}
	params.Set("categoryIDs", strings.Join(ids, ","))

	return params
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
