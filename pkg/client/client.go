// Package client talks to the platform: metadata resolution, stream
// enumeration and the actual transfers. All failures come back classified
// so the retry policy can decide what to do with them.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"main/pkg/fsutil"
	"main/pkg/models"
)

const (
	defaultBaseURL = "https://api.vidplatform.example"
	refererURL     = "https://www.vidplatform.example/"

	// membersPageSize is the upstream's maximum page size for collection
	// member listings.
	membersPageSize = 100
)

// Client is a platform API client bound to one identity. Build a fresh one
// through the same constructor to rotate identities.
type Client struct {
	baseURL string
	http    *http.Client
	id      identity
}

// NewClient creates a client with a fresh identity and its own cookie jar,
// so rotated clients never share upstream session state.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar},
		id:      newIdentity(),
	}, nil
}

// Identity returns the user agent the client currently presents.
func (c *Client) Identity() string {
	return c.id.UserAgent
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Add("User-Agent", c.id.UserAgent)
	req.Header.Add("X-Visitor-Id", c.id.Visitor)
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, path, query)
	if err != nil {
		return err
	}

	do, err := c.http.Do(req)
	if err != nil {
		return models.NewDownloadError(models.ErrTransient, "request failed", "", err)
	}
	defer do.Body.Close()

	if do.StatusCode != http.StatusOK {
		return classifyResponse(do)
	}

	return json.NewDecoder(do.Body).Decode(out)
}

// classifyResponse maps an upstream error status onto the failure taxonomy.
// The body is consulted only for 403, where the upstream hides bot
// challenges and region blocks behind the same status.
func classifyResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusGone,
		resp.StatusCode == http.StatusUnavailableForLegalReasons:
		return models.NewDownloadError(models.ErrUnavailable,
			"content is unavailable",
			"The video may have been removed or made private.", nil)

	case resp.StatusCode == http.StatusTooManyRequests:
		return models.NewDownloadError(models.ErrRateLimited,
			"rate limited by upstream",
			"Wait a few minutes before downloading more items.", nil)

	case resp.StatusCode == http.StatusForbidden:
		lower := strings.ToLower(string(body))
		for _, marker := range []string{"signature", "cipher", "challenge", "bot"} {
			if strings.Contains(lower, marker) {
				return models.NewDownloadError(models.ErrAntiAutomation,
					"blocked by anti-automation measures",
					"Try again later; the client identity has been rotated.", nil)
			}
		}
		return models.NewDownloadError(models.ErrUnavailable,
			"access to this content is forbidden",
			"The video may be region-locked or members-only.", nil)

	case resp.StatusCode >= http.StatusInternalServerError:
		return models.NewDownloadError(models.ErrTransient,
			fmt.Sprintf("upstream error: %s", resp.Status), "", nil)

	default:
		return models.NewDownloadError(models.ErrUnknown,
			fmt.Sprintf("unexpected response: %s", resp.Status), "", nil)
	}
}

// ResolveItem resolves a normalized URL into item metadata.
func (c *Client) ResolveItem(ctx context.Context, rawURL string) (*models.ItemMeta, error) {
	query := url.Values{}
	query.Set("url", rawURL)

	var obj models.ItemMeta
	if err := c.getJSON(ctx, "/v1/resolve", query, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// ListStreams lists the downloadable renditions of an item.
func (c *Client) ListStreams(ctx context.Context, itemID string) ([]*models.StreamDescriptor, error) {
	var obj struct {
		Streams []*models.StreamDescriptor `json:"streams"`
	}
	if err := c.getJSON(ctx, "/v1/items/"+itemID+"/streams", nil, &obj); err != nil {
		return nil, err
	}
	return obj.Streams, nil
}

// ResolveCollection resolves a normalized URL into collection metadata.
func (c *Client) ResolveCollection(ctx context.Context, rawURL string) (*models.CollectionMeta, error) {
	query := url.Values{}
	query.Set("url", rawURL)

	var obj models.CollectionMeta
	if err := c.getJSON(ctx, "/v1/collections/resolve", query, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// EnumerateMembers pages through a collection's member list until the
// upstream returns an empty page.
func (c *Client) EnumerateMembers(ctx context.Context, collectionID string) ([]models.MemberRef, error) {
	var all []models.MemberRef
	offset := 0

	for {
		query := url.Values{}
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(membersPageSize))

		var obj struct {
			Members []models.MemberRef `json:"members"`
		}
		if err := c.getJSON(ctx, "/v1/collections/"+collectionID+"/items", query, &obj); err != nil {
			return nil, err
		}

		if len(obj.Members) == 0 {
			break
		}
		all = append(all, obj.Members...)
		offset += len(obj.Members)
	}

	return all, nil
}

// Transfer downloads the stream into destPath, reporting progress through
// onProgress as (done, total) units: bytes for progressive streams, segments
// for HLS. Partial files are left in place on failure.
func (c *Client) Transfer(ctx context.Context, stream *models.StreamDescriptor, destPath string, onProgress func(done, total int64)) error {
	if stream.IsManifest() {
		return c.transferHLS(ctx, stream.URL, destPath, onProgress)
	}

	resp, err := c.downloadFile(ctx, stream.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	if total <= 0 {
		total = stream.SizeBytes
	}

	f, err := fsutil.WriteFile(destPath)
	if err != nil {
		return models.NewDownloadError(models.ErrUnknown, "cannot create output file", "", err)
	}
	defer f.Close()

	counter := &models.WriteCounter{Total: total, OnProgress: onProgress}
	if _, err = io.Copy(io.MultiWriter(f, counter), resp.Body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return models.NewDownloadError(models.ErrTransient, "transfer interrupted", "", err)
	}
	return nil
}

// downloadFile opens a media URL for reading. The Range header makes the CDN
// serve 206 with an exact Content-Length even for throttled streams.
func (c *Client) downloadFile(ctx context.Context, mediaURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("User-Agent", c.id.UserAgent)
	req.Header.Add("Referer", refererURL)
	req.Header.Add("Range", "bytes=0-")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, models.NewDownloadError(models.ErrTransient, "media request failed", "", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		defer resp.Body.Close()
		return nil, classifyResponse(resp)
	}

	return resp, nil
}
