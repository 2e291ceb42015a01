package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/grafov/m3u8"

	"main/pkg/fsutil"
	"main/pkg/models"
)

// transferHLS downloads an HLS stream: pick the top-bandwidth variant from
// the master playlist, then append the media segments to destPath in order.
// Progress is reported in segments, not bytes.
func (c *Client) transferHLS(ctx context.Context, manifestURL, destPath string, onProgress func(done, total int64)) error {
	media, mediaURL, err := c.resolveMediaPlaylist(ctx, manifestURL)
	if err != nil {
		return err
	}

	var segURLs []string
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		u, err := resolveRef(mediaURL, seg.URI)
		if err != nil {
			return models.NewDownloadError(models.ErrUnknown, "bad segment URI in playlist", "", err)
		}
		segURLs = append(segURLs, u)
	}
	if len(segURLs) == 0 {
		return models.NewDownloadError(models.ErrUnavailable, "playlist has no segments", "", nil)
	}

	f, err := fsutil.WriteFile(destPath)
	if err != nil {
		return models.NewDownloadError(models.ErrUnknown, "cannot create output file", "", err)
	}
	defer f.Close()

	total := int64(len(segURLs))
	for i, segURL := range segURLs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.appendSegment(ctx, segURL, f); err != nil {
			return err
		}
		if onProgress != nil {
			onProgress(int64(i+1), total)
		}
	}
	return nil
}

// resolveMediaPlaylist fetches manifestURL and returns a media playlist.
// A master playlist is followed one level down to its highest-bandwidth
// variant.
func (c *Client) resolveMediaPlaylist(ctx context.Context, manifestURL string) (*m3u8.MediaPlaylist, string, error) {
	playlist, err := c.fetchPlaylist(ctx, manifestURL)
	if err != nil {
		return nil, "", err
	}

	if media, ok := playlist.(*m3u8.MediaPlaylist); ok {
		return media, manifestURL, nil
	}

	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, "", models.NewDownloadError(models.ErrUnknown, "unrecognized playlist type", "", nil)
	}

	variants := make([]*m3u8.Variant, 0, len(master.Variants))
	for _, v := range master.Variants {
		if v != nil {
			variants = append(variants, v)
		}
	}
	if len(variants) == 0 {
		return nil, "", models.NewDownloadError(models.ErrUnavailable, "master playlist has no variants", "", nil)
	}
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Bandwidth > variants[j].Bandwidth
	})

	variantURL, err := resolveRef(manifestURL, variants[0].URI)
	if err != nil {
		return nil, "", models.NewDownloadError(models.ErrUnknown, "bad variant URI in master playlist", "", err)
	}

	playlist, err = c.fetchPlaylist(ctx, variantURL)
	if err != nil {
		return nil, "", err
	}
	media, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, "", models.NewDownloadError(models.ErrUnknown, "variant did not resolve to a media playlist", "", nil)
	}
	return media, variantURL, nil
}

func (c *Client) fetchPlaylist(ctx context.Context, playlistURL string) (m3u8.Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("User-Agent", c.id.UserAgent)
	req.Header.Add("Referer", refererURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, models.NewDownloadError(models.ErrTransient, "playlist request failed", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse(resp)
	}

	playlist, _, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return nil, models.NewDownloadError(models.ErrUnknown, "cannot parse playlist", "", err)
	}
	return playlist, nil
}

func (c *Client) appendSegment(ctx context.Context, segURL string, w io.Writer) error {
	resp, err := c.downloadFile(ctx, segURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return models.NewDownloadError(models.ErrTransient, "segment transfer interrupted", "", err)
	}
	return nil
}

// resolveRef resolves ref against base, handling both absolute and relative
// playlist URIs.
func resolveRef(base, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty URI")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
