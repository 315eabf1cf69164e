package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"folio/models"
)

const DefaultHost = "https://hacker-news.firebaseio.com/v0"

// List names a ranked story list of the public API
type List string

const (
	BestStories List = "beststories"
	AskStories  List = "askstories"
	ShowStories List = "showstories"
	JobStories  List = "jobstories"
)

type Client struct {
	host string
	http *http.Client
}

// NewClient creates a client for the API rooted at host. A zero timeout
// leaves requests bounded only by their context.
func NewClient(host string, timeout time.Duration) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		host: strings.TrimSuffix(host, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// StoryIDs fetches the ordered item IDs of a ranked list
func (c *Client) StoryIDs(ctx context.Context, list List) ([]int64, error) {
	var ids []int64
	if err := c.get(ctx, fmt.Sprintf("%s/%s.json", c.host, list), &ids); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", list, err)
	}
	return ids, nil
}

// Item fetches a single item. The API answers null for unknown IDs, which
// is returned as a nil item without an error.
func (c *Client) Item(ctx context.Context, id int64) (*models.Item, error) {
	var item *models.Item
	if err := c.get(ctx, fmt.Sprintf("%s/item/%d.json", c.host, id), &item); err != nil {
		return nil, fmt.Errorf("failed to fetch item %d: %w", id, err)
	}
	return item, nil
}

func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}
