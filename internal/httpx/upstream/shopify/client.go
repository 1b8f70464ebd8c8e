package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	defaultAPIVersion = "2024-10"
	defaultTimeout    = 30 * time.Second
)

// ErrUnknownStore is returned for a store other than the configured shop
var ErrUnknownStore = errors.New("store is not the configured shop")

// Client is a Shopify Admin REST API client for the blog and shop endpoints
type Client struct {
	shopDomain  string
	accessToken string
	baseURL     string
	apiVersion  string
	httpClient  *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL instead of https://{shop}
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithAPIVersion sets the Admin API version
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new Shopify API client for one shop
func New(shopDomain, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		baseURL:     "https://" + shopDomain,
		apiVersion:  defaultAPIVersion,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ShopDomain returns the shop the client talks to. It doubles as the store ID.
func (c *Client) ShopDomain() string {
	return c.shopDomain
}

// APIError represents an error response from the Admin API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify API error (status %d): %s", e.StatusCode, e.Message)
}

// Shop is the subset of shop settings the service reads
type Shop struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	IANATimezone string `json:"iana_timezone"`
	Timezone     string `json:"timezone"`
}

// GetShop retrieves the shop settings
// GET /admin/api/{version}/shop.json
func (c *Client) GetShop(ctx context.Context) (*Shop, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("shop.json"), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out struct {
		Shop Shop `json:"shop"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out.Shop, nil
}

// ArticleInput represents input for creating a blog article
type ArticleInput struct {
	Title       string     `json:"title"`
	BodyHTML    string     `json:"body_html"`
	SummaryHTML string     `json:"summary_html,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Article is a created blog article
type Article struct {
	ID          int64      `json:"id"`
	BlogID      int64      `json:"blog_id"`
	Title       string     `json:"title"`
	Handle      string     `json:"handle"`
	PublishedAt *time.Time `json:"published_at"`
}

// CreateArticle creates an article in a blog
// POST /admin/api/{version}/blogs/{blog_id}/articles.json
func (c *Client) CreateArticle(ctx context.Context, blogID string, in ArticleInput) (*Article, error) {
	body, err := json.Marshal(map[string]ArticleInput{"article": in})
	if err != nil {
		return nil, fmt.Errorf("encoding article: %w", err)
	}

	endpoint := c.endpoint(fmt.Sprintf("blogs/%s/articles.json", blogID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Article Article `json:"article"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out.Article, nil
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/admin/api/%s/%s", c.baseURL, c.apiVersion, path)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// errorMessage flattens the "errors" field, which is either a string or a field map
func errorMessage(body []byte) string {
	var resp struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Errors) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(resp.Errors, &s); err == nil {
		return s
	}

	var fields map[string][]string
	if err := json.Unmarshal(resp.Errors, &fields); err == nil {
		parts := make([]string, 0, len(fields))
		for field, msgs := range fields {
			parts = append(parts, field+" "+strings.Join(msgs, ", "))
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}

	return string(resp.Errors)
}
