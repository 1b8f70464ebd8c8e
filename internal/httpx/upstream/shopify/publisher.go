package shopify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/vadim/neo-content/internal/domain/post/entity"
)

// Publisher pushes posts to a Shopify blog and reads the shop timezone
type Publisher struct {
	client *Client
	blogID string
}

// NewPublisher creates a new Shopify publisher for one blog
func NewPublisher(client *Client, blogID string) *Publisher {
	return &Publisher{client: client, blogID: blogID}
}

// StoreID returns the shop domain the publisher writes to
func (p *Publisher) StoreID() string {
	return p.client.ShopDomain()
}

// Publish creates the blog article for a post and returns its article ID.
// Scheduled posts are created with a future published_at, which Shopify keeps hidden until then.
func (p *Publisher) Publish(ctx context.Context, post *entity.Post) (string, error) {
	if post.StoreID != p.client.ShopDomain() {
		return "", fmt.Errorf("%w: %s", ErrUnknownStore, post.StoreID)
	}

	body, err := renderMarkdown(post.Content)
	if err != nil {
		return "", fmt.Errorf("rendering content: %w", err)
	}

	in := ArticleInput{
		Title:    post.Title,
		BodyHTML: body,
		Tags:     strings.Join(post.Tags, ", "),
	}
	if post.MetaDescription != "" {
		in.SummaryHTML = "<p>" + htmlEscape(post.MetaDescription) + "</p>"
	}

	switch post.Status {
	case entity.PostStatusScheduled:
		in.Published = true
		in.PublishedAt = post.ScheduledAt
	case entity.PostStatusPublished:
		in.Published = true
		in.PublishedAt = post.PublishedAt
	default:
		in.Published = false
	}

	article, err := p.client.CreateArticle(ctx, p.blogID, in)
	if err != nil {
		return "", mapError(err)
	}

	return strconv.FormatInt(article.ID, 10), nil
}

// StoreTimezone returns the IANA timezone configured for the shop
func (p *Publisher) StoreTimezone(ctx context.Context, storeID string) (string, error) {
	if storeID != p.client.ShopDomain() {
		return "", fmt.Errorf("%w: %s", ErrUnknownStore, storeID)
	}

	shop, err := p.client.GetShop(ctx)
	if err != nil {
		return "", mapError(err)
	}
	if shop.IANATimezone == "" {
		return "", errors.New("shop has no iana_timezone")
	}
	return shop.IANATimezone, nil
}

func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func htmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

func mapError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", entity.ErrPlatformUnauthorized, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", entity.ErrPlatformRateLimited, err)
	default:
		return err
	}
}
