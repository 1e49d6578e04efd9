package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dan-solli/kinship/pkg/command"
	"github.com/dan-solli/kinship/pkg/graph"
)

const defaultTimeout = 30 * time.Second

// Client implements Fetcher over JSON/HTTP. Requests are not retried.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FetchTree loads the root batch of a family
func (c *Client) FetchTree(ctx context.Context, familyID string) (*TreeResult, error) {
	var out TreeResult
	path := "/families/" + url.PathEscape(familyID) + "/tree"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search loads the batch around the best match for query
func (c *Client) Search(ctx context.Context, query string) (*TreeResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	var out TreeResult
	path := "/search?" + url.Values{"q": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchRelatives loads id and its neighbors for the expanded pair
func (c *Client) FetchRelatives(ctx context.Context, id string, pair graph.ExpandPair) (*RelativesResult, error) {
	if pair == graph.ExpandNone {
		return nil, fmt.Errorf("cannot expand %s: no relation pair", id)
	}
	var out RelativesResult
	path := "/nodes/" + url.PathEscape(id) + "/relatives?" + url.Values{"expand": {pair.String()}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit posts a command envelope
func (c *Client) Submit(ctx context.Context, cmd command.Command) (*CommandResult, error) {
	body, err := command.Encode(cmd)
	if err != nil {
		return nil, err
	}
	var out CommandResult
	if err := c.do(ctx, http.MethodPost, "/commands", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		var eb errorBody
		if err := json.Unmarshal(respBody, &eb); err == nil {
			if eb.Message != "" {
				msg = eb.Message
			} else if eb.Error != "" {
				msg = eb.Error
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

var _ Fetcher = (*Client)(nil)
