package issue_tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"basegraph.app/crmrelay/core/config"
)

// GraphQLClient executes one GraphQL document and returns the unwrapped data
// object.
type GraphQLClient interface {
	Execute(ctx context.Context, document string, variables map[string]any) (map[string]any, error)
}

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a Linear GraphQL client. A nil httpClient gets one bounded by
// cfg.Timeout.
func NewClient(cfg config.TrackerConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		endpoint:   cfg.APIURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   map[string]any    `json:"data"`
	Errors []json.RawMessage `json:"errors"`
}

// Execute sends a single request. It does not retry: the caller decides what a
// failure means.
func (c *Client) Execute(ctx context.Context, document string, variables map[string]any) (map[string]any, error) {
	if variables == nil {
		variables = map[string]any{}
	}

	payload, err := json.Marshal(graphQLRequest{Query: document, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	// Linear expects personal API keys as-is, without a "Bearer" scheme.
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: excerpt(body), Err: err}
	}

	if len(parsed.Errors) > 0 {
		return nil, &ApplicationError{Errors: parsed.Errors}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       excerpt(body),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if parsed.Data == nil {
		return map[string]any{}, nil
	}
	return parsed.Data, nil
}

// decodeData converts an untyped data object into out.
func decodeData(data map[string]any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("re-encode graphql data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

var _ GraphQLClient = (*Client)(nil)
