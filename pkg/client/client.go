// Package client talks to a voxlab server and turns its responses into
// volume fields.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/taigrr/voxlab/pkg/api"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/volume"
)

var (
	// ErrNetwork matches transport failures and non-2xx responses.
	ErrNetwork = errors.New("network error")

	// ErrParse matches malformed JSON, sample payloads of the wrong length
	// and unreadable dims headers.
	ErrParse = errors.New("parse error")
)

// DefaultBaseURL is where a locally started voxlab-server listens.
const DefaultBaseURL = "http://localhost:9000"

// Client fetches volume listings and samples. The zero value talks to
// DefaultBaseURL with http.DefaultClient.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) url(parts ...string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/api/" + strings.Join(parts, "/")
}

// get issues a GET and returns the body of a 2xx response. Any other status
// is reported as ErrNetwork carrying the server's JSON error message when
// there is one.
func (c *Client) get(ctx context.Context, u string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: building request for %s: %v", ErrNetwork, u, err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %w", ErrNetwork, u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.Error
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, nil, fmt.Errorf("%w: GET %s: %s: %s", ErrNetwork, u, resp.Status, e.Error)
		}
		return nil, nil, fmt.Errorf("%w: GET %s: %s", ErrNetwork, u, resp.Status)
	}
	logging.Debugf("GET %s: %s", u, humanize.Bytes(uint64(len(body))))
	return body, resp.Header, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	body, _, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrParse, u, err)
	}
	return nil
}

// Health returns the server's status and the ids it can serve.
func (c *Client) Health(ctx context.Context) (api.Health, error) {
	var h api.Health
	err := c.getJSON(ctx, c.url("health"), &h)
	return h, err
}

// Volumes lists the volumes the server knows about.
func (c *Client) Volumes(ctx context.Context) ([]api.VolumeInfo, error) {
	var list api.VolumeList
	if err := c.getJSON(ctx, c.url("volumes"), &list); err != nil {
		return nil, err
	}
	return list.Volumes, nil
}

// Info returns the metadata of one volume.
func (c *Client) Info(ctx context.Context, id string) (api.VolumeInfo, error) {
	var info api.VolumeInfo
	err := c.getJSON(ctx, c.url("volumes", id, "info"), &info)
	return info, err
}

// Full fetches the native-resolution samples described by info.
func (c *Client) Full(ctx context.Context, info api.VolumeInfo) (*volume.Field, error) {
	return c.field(ctx, c.url("volumes", info.ID, "full"), info.Dims(), info.Range())
}

// Low fetches the server's cached preview of info.
func (c *Client) Low(ctx context.Context, info api.VolumeInfo) (*volume.Field, error) {
	return c.field(ctx, c.url("volumes", info.ID, "low"), info.LowResDims(), info.Range())
}

func (c *Client) field(ctx context.Context, u string, d volume.Dims, r volume.ValueRange) (*volume.Field, error) {
	body, _, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	f, err := volume.FieldFromBytes(d, r, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, u, err)
	}
	return f, nil
}

// AtResolution fetches volume id resampled so its longest axis is about
// res. The actual dims come from the X-Volume-Dims header and the value
// range from the volume's metadata, which this fetches first.
func (c *Client) AtResolution(ctx context.Context, id string, res int) (*volume.Field, error) {
	info, err := c.Info(ctx, id)
	if err != nil {
		return nil, err
	}
	u := c.url("volumes", id, "at", strconv.Itoa(res))
	body, header, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	d, err := volume.ParseDims(header.Get(api.DimsHeader))
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", ErrParse, api.DimsHeader, err)
	}
	f, err := volume.FieldFromBytes(d, info.Range(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, u, err)
	}
	return f, nil
}

// Fetch returns the samples of info at res: ResolutionFull, ResolutionPreview
// or a target longest axis.
func (c *Client) Fetch(ctx context.Context, info api.VolumeInfo, res int) (*volume.Field, error) {
	switch res {
	case ResolutionFull:
		return c.Full(ctx, info)
	case ResolutionPreview:
		return c.Low(ctx, info)
	}
	return c.AtResolution(ctx, info.ID, res)
}
