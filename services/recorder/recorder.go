// Package recorder appends BAC results to the remote FaceBeer table.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"facebeer-go/errcode"
	"facebeer-go/x/strconvx"
)

// TimestampLayout is month/day/year hour:minute in local time.
const TimestampLayout = "01/02/06 15:04"

type Client struct {
	url  string
	http *http.Client
	now  func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default client (which has the configured timeout).
func WithHTTPClient(c *http.Client) Option { return func(r *Client) { r.http = c } }

// WithClock overrides time.Now for the timestamp field.
func WithClock(now func() time.Time) Option { return func(r *Client) { r.now = now } }

func New(endpoint string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "recorder.new", Msg: "bad url " + endpoint}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{url: endpoint, http: &http.Client{Timeout: timeout}, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type response struct {
	Code json.Number `json:"code"`
}

// Record posts {name, bac, timestamp} as a form and returns the "code" field
// of the JSON reply verbatim. Transport failures, non-2xx statuses and
// unreadable replies are RemoteWrite errors.
func (c *Client) Record(ctx context.Context, name string, value float64) (int, error) {
	form := url.Values{
		"name":      {name},
		"bac":       {strconvx.FormatDecimal(value)},
		"timestamp": {c.now().Local().Format(TimestampLayout)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, errcode.Remote("recorder.record", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errcode.Remote("recorder.record", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, errcode.Remote("recorder.record", err)
	}
	if resp.StatusCode/100 != 2 {
		return 0, errcode.Remote("recorder.record", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, errcode.Remote("recorder.record", fmt.Errorf("decode reply: %w", err))
	}
	code, err := strconv.Atoi(r.Code.String())
	if err != nil {
		return 0, errcode.Remote("recorder.record", fmt.Errorf("reply code %q: %w", r.Code, err))
	}
	return code, nil
}
