package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mohamedamezian/NN-Instagram/util"
)

// MaxPageSize is the largest page the admin API hands out.
const MaxPageSize = 250

// ErrNotConfigured is returned when no shop or token is configured.
var ErrNotConfigured = errors.New("store is not configured")

// Client is a minimal GraphQL client for the commerce admin API.
// Staged uploads go through uploadClient, whose timeout outlasts GraphQL calls.
type Client struct {
	endpoint     string
	accessToken  string
	pageSize     int
	httpClient   *http.Client
	uploadClient *http.Client
}

const defaultUploadTimeout = 15 * time.Minute

func NewClient(conf *util.AppConfig) *Client {
	sc := conf.Conf.Store
	timeout := time.Duration(sc.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	uploadTimeout := time.Duration(sc.TransferTimeoutSeconds) * time.Second
	if uploadTimeout <= 0 {
		uploadTimeout = defaultUploadTimeout
	}
	endpoint := ""
	if sc.Shop != "" {
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", sc.Shop, sc.ApiVersion)
	}
	c := NewClientWithEndpoint(endpoint, sc.AccessToken, sc.PageSize, &http.Client{Timeout: timeout})
	c.uploadClient = &http.Client{Timeout: uploadTimeout}
	return c
}

// NewClientWithEndpoint builds a client against an explicit GraphQL endpoint.
func NewClientWithEndpoint(endpoint, accessToken string, pageSize int, httpClient *http.Client) *Client {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		endpoint:     endpoint,
		accessToken:  accessToken,
		pageSize:     pageSize,
		httpClient:   httpClient,
		uploadClient: httpClient,
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// GraphQLError carries top-level "errors" of a response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "store GraphQL error: " + strings.Join(e.Messages, "; ")
}

// do posts one GraphQL document and decodes "data" into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if c.endpoint == "" || c.accessToken == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", util.UserAgent())
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("store returned status %d: %s", resp.StatusCode, truncate(body, 512))
	}

	var gr graphqlResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if len(gr.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range gr.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func logUserErrors(op string, errs UserErrors) {
	for _, e := range errs {
		log.Printf("Store: %s user error on %v: %s", op, e.Field, e.Message)
	}
}
