package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/util"
)

const (
	mediaFields   = "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp,like_count,comments_count,view_count,children{id,media_type,media_url,thumbnail_url}"
	profileFields = "id,user_id,username,name,followers_count,profile_picture_url"
)

// ErrAuthExpired is returned before any request when the credential expiry
// lies in the past.
var ErrAuthExpired = errors.New("remote credential expired")

// ErrTooLarge is returned by Download when an asset exceeds the size cap.
var ErrTooLarge = errors.New("media asset exceeds download limit")

// Client talks to the remote media API.
type Client struct {
	baseURL          string
	pageLimit        int
	maxPosts         int
	maxDownloadBytes int64
	httpClient       *http.Client
	downloadClient   *http.Client
	now              func() time.Time
}

const (
	defaultTimeout         = 30 * time.Second
	defaultTransferTimeout = 15 * time.Minute
)

func NewClient(conf *util.AppConfig) *Client {
	gc := conf.Conf.Graph
	return &Client{
		baseURL:          gc.BaseURL,
		pageLimit:        gc.PageLimit,
		maxPosts:         gc.MaxPosts,
		maxDownloadBytes: gc.MaxDownloadBytes,
		httpClient:       &http.Client{Timeout: seconds(gc.TimeoutSeconds, defaultTimeout)},
		downloadClient:   &http.Client{Timeout: seconds(gc.TransferTimeoutSeconds, defaultTransferTimeout)},
		now:              time.Now,
	}
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// childEdge is how the API nests carousel children.
type childEdge struct {
	Data []domain.ChildMedia `json:"data"`
}

// mediaPage is the wire shape of one page of the media edge.
type mediaPage struct {
	Data []struct {
		domain.RemotePost
		RawChildren *childEdge `json:"children"`
	} `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
	Error *APIError `json:"error"`
}

// Fetch returns the caller's media collection and profile. An empty
// collection is not an error.
func (c *Client) Fetch(ctx context.Context, cred domain.Credential) (*domain.Feed, error) {
	if cred.Expired(c.now()) {
		return nil, ErrAuthExpired
	}

	posts, err := c.fetchMedia(ctx, cred)
	if err != nil {
		return nil, err
	}

	profile, err := c.fetchProfile(ctx, cred)
	if err != nil {
		return nil, err
	}

	log.Printf("Graph: Fetched %d posts for %s", len(posts), profile.Username)
	return &domain.Feed{Posts: posts, Profile: *profile}, nil
}

func (c *Client) fetchMedia(ctx context.Context, cred domain.Credential) ([]domain.RemotePost, error) {
	q := url.Values{}
	q.Set("fields", mediaFields)
	if c.pageLimit > 0 {
		q.Set("limit", strconv.Itoa(c.pageLimit))
	}
	next := c.baseURL + "/me/media?" + q.Encode()

	posts := make([]domain.RemotePost, 0)
	for next != "" {
		var page mediaPage
		if err := c.getJSON(ctx, next, cred, &page); err != nil {
			return nil, err
		}
		if page.Error != nil {
			return nil, page.Error
		}
		for _, item := range page.Data {
			posts = append(posts, normalize(item.RemotePost, item.RawChildren))
			if c.maxPosts > 0 && len(posts) >= c.maxPosts {
				return posts, nil
			}
		}
		if len(page.Data) == 0 {
			break
		}
		next = page.Paging.Next
	}
	return posts, nil
}

func normalize(post domain.RemotePost, children *childEdge) domain.RemotePost {
	post.Children = nil
	if post.MediaType == domain.MediaCarousel && children != nil {
		post.Children = append([]domain.ChildMedia(nil), children.Data...)
	}
	return post
}

func (c *Client) fetchProfile(ctx context.Context, cred domain.Credential) (*domain.Profile, error) {
	var resp struct {
		domain.Profile
		Error *APIError `json:"error"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/me?fields="+url.QueryEscape(profileFields), cred, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Username == "" {
		return nil, &APIError{Message: "profile response carries no username"}
	}
	return &resp.Profile, nil
}

// getJSON decodes the body into v. An error envelope wins over the HTTP status.
func (c *Client) getJSON(ctx context.Context, rawURL string, cred domain.Credential, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", util.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if apiErr := parseEnvelope(body); apiErr != nil {
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Raw: body}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}

// Download is a fully buffered media asset.
type Download struct {
	Data        []byte
	ContentType string
}

// Download fetches one media asset into memory. It runs on its own client
// whose timeout covers the whole transfer; ctx still bounds it.
func (c *Client) Download(ctx context.Context, rawURL string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", util.UserAgent())

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if c.maxDownloadBytes > 0 {
		if resp.ContentLength > c.maxDownloadBytes {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
		}
		reader = io.LimitReader(resp.Body, c.maxDownloadBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	if c.maxDownloadBytes > 0 && int64(len(data)) > c.maxDownloadBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, c.maxDownloadBytes)
	}

	return &Download{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}
