// Package kai implements the api/flo-iidx, api/eag-iidx, api/flo-sdvx and
// api/eag-sdvx import sources. FLO and EAG are separate services that speak
// the same "Kai" API shape, so one client and one converter per game serve
// both; only the base URL and service name differ.
package kai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// TokenSource resolves the importing user's API token for the service.
type TokenSource interface {
	Token(ctx context.Context, userID int) (string, error)
}

// StaticToken is a TokenSource that hands every user the same token. The
// daemon uses it when a single service token is configured.
type StaticToken string

func (t StaticToken) Token(context.Context, int) (string, error) {
	if t == "" {
		return "", fmt.Errorf("no api token configured")
	}
	return string(t), nil
}

// Pagination guard. The play-history endpoints page by a few hundred
// entries, so anything past this is the API looping on itself.
const maxPages = 1000

// Client talks to one Kai-API service.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// page is the envelope every paginated Kai endpoint responds with.
type page struct {
	Links struct {
		Next string `json:"_next"`
	} `json:"_links"`
	Items []json.RawMessage `json:"_items"`
}

// traverse walks a paginated endpoint lazily, yielding items as pages
// arrive. A failed page ends the sequence early; the items already yielded
// stand, matching the partial-batch behavior the orchestrator expects.
func (c *Client) traverse(ctx context.Context, path, token string, logger *slog.Logger) iter.Seq[json.RawMessage] {
	return func(yield func(json.RawMessage) bool) {
		next := c.baseURL + path
		for pages := 0; next != ""; pages++ {
			if pages >= maxPages {
				logger.Warn("pagination limit hit, stopping traversal", "url", next)
				return
			}

			var body page
			if err := c.getJSON(ctx, next, token, &body); err != nil {
				logger.Warn("page fetch failed, keeping scores fetched so far",
					"url", next, "error", err)
				return
			}

			for _, item := range body.Items {
				if !yield(item) {
					return
				}
			}

			nextURL, err := c.resolveNext(body.Links.Next)
			if err != nil {
				logger.Warn("bad next link, stopping traversal", "link", body.Links.Next, "error", err)
				return
			}
			if nextURL == next {
				logger.Warn("next link loops back on itself, stopping traversal", "url", next)
				return
			}
			next = nextURL
		}
	}
}

// resolveNext normalizes the _next link, which some deployments send as a
// path and others as an absolute URL.
func (c *Client) resolveNext(link string) (string, error) {
	if link == "" {
		return "", nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return link, nil
	}
	return c.baseURL + u.String(), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
