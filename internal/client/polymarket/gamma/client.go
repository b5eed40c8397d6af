package gamma

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gamma API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://gamma-api.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// ListMarkets fetches active markets for a category tag, highest 24h volume
// first. Results are raw listings; eligibility filtering happens upstream.
func (c *Client) ListMarkets(ctx context.Context, tagSlug string, limit int) ([]MarketListing, error) {
	if limit <= 0 {
		limit = 20
	}
	query := url.Values{}
	query.Set("tag_slug", tagSlug)
	query.Set("closed", "false")
	query.Set("active", "true")
	query.Set("archived", "false")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("order", "volume24hr")
	query.Set("ascending", "false")

	body, err := c.doRequest(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	return parseListings(body)
}

// GetMarket fetches a single market by its Gamma ID.
func (c *Client) GetMarket(ctx context.Context, externalID string) (*MarketListing, error) {
	if externalID == "" {
		return nil, fmt.Errorf("market id is required")
	}
	body, err := c.doRequest(ctx, "/markets/"+url.PathEscape(externalID), nil)
	if err != nil {
		return nil, err
	}
	return parseListing(body)
}

// Resolution reports the settled outcome of a market: OutcomeYes, OutcomeNo,
// OutcomeCancelled, or empty when the market has not resolved yet.
func (c *Client) Resolution(ctx context.Context, externalID string) (string, error) {
	listing, err := c.GetMarket(ctx, externalID)
	if err != nil {
		return "", err
	}
	return listing.ResolvedOutcome()
}
