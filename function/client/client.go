package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/ratelimit"
	"github.com/dimasma0305/ctfscrape/function/retry"
	"github.com/imroc/req/v3"
	"golang.org/x/sync/semaphore"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/110.0"

type Options struct {
	UserAgent       string
	Headers         map[string]string
	Cookies         map[string]string
	Token           string
	Timeout         time.Duration
	ProbeTimeout    time.Duration
	DownloadTimeout time.Duration
	Insecure        bool
	// MaxConcurrent caps requests in flight across every caller. 0 means no cap.
	MaxConcurrent int
	Limiter       *ratelimit.Limiter
	Retry         retry.Policy
}

// Client is the one session every adapter and download shares. It is safe for
// concurrent use; nothing on it changes after New.
type Client struct {
	c            *req.Client
	stream       *req.Client
	sem          *semaphore.Weighted
	limiter      *ratelimit.Limiter
	policy       retry.Policy
	probeTimeout time.Duration
}

// ProbeResult is the raw answer to a single detection request.
type ProbeResult struct {
	Status int
	Body   []byte
}

func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.Default
	}

	c := req.C().
		SetUserAgent(opts.UserAgent).
		SetTimeout(opts.Timeout).
		SetCommonHeader("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	if opts.Insecure {
		c.EnableInsecureSkipVerify()
	}
	if len(opts.Headers) > 0 {
		c.SetCommonHeaders(opts.Headers)
	}
	if len(opts.Cookies) > 0 {
		cookies := make([]*http.Cookie, 0, len(opts.Cookies))
		for name, value := range opts.Cookies {
			cookies = append(cookies, &http.Cookie{Name: name, Value: value})
		}
		c.SetCommonCookies(cookies...)
		// django based platforms want the csrf cookie echoed back
		if csrf, ok := opts.Cookies["csrftoken"]; ok {
			c.SetCommonHeader("X-CSRFToken", csrf)
		}
	}
	if opts.Token != "" {
		c.SetCommonBearerAuthToken(opts.Token)
	}

	stream := c.Clone().DisableAutoReadResponse().SetTimeout(opts.DownloadTimeout)

	cl := &Client{
		c:            c,
		stream:       stream,
		limiter:      opts.Limiter,
		policy:       opts.Retry,
		probeTimeout: opts.ProbeTimeout,
	}
	if opts.MaxConcurrent > 0 {
		cl.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return cl
}

// acquire waits for the rate limiter and a connection slot. The returned
// func releases the slot.
func (cl *Client) acquire(ctx context.Context) (func(), error) {
	if cl.sem != nil {
		if err := cl.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	release := func() {
		if cl.sem != nil {
			cl.sem.Release(1)
		}
	}
	if err := cl.limiter.Wait(ctx); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (cl *Client) once(ctx context.Context, url string) ([]byte, error) {
	release, err := cl.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := cl.c.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	body := res.Bytes()
	if err := classify(url, res.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func classify(url string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{URL: url, Status: status, Bot: IsBotChallenge(body)}
	case IsBotChallenge(body):
		return &AuthError{URL: url, Status: status, Bot: true}
	case status < 200 || status > 299:
		return &StatusError{URL: url, Status: status}
	}
	return nil
}

// GetBytes fetches url, retrying transient failures under the client policy.
func (cl *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	var (
		body  []byte
		count retry.Counter
	)
	err := retry.Do(ctx, cl.policy, count.Wrap(func(attempt int) error {
		b, err := cl.once(ctx, url)
		if err != nil {
			if !Retryable(err) {
				return retry.Permanent(err)
			}
			log.DebugH2("attempt %d for %s failed: %v", attempt, url, err)
			return err
		}
		body = b
		return nil
	}))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: url, Attempts: count.Attempts(), Err: err}
	}
	return body, nil
}

// GetJSON is GetBytes followed by decoding into v. A body that is not JSON
// gives a *MalformedError.
func (cl *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := cl.GetBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return Malformed(url, err)
	}
	return nil
}

// Probe sends a single request with the short probe timeout and reports
// whatever came back, whatever the status.
func (cl *Client) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, cl.probeTimeout)
	defer cancel()

	release, err := cl.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := cl.c.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	return &ProbeResult{Status: res.StatusCode, Body: res.Bytes()}, nil
}

// Download streams url into w in a single attempt. declared is the length the
// server announced, or -1 when it did not.
func (cl *Client) Download(ctx context.Context, url string, w io.Writer) (written, declared int64, err error) {
	release, err := cl.acquire(ctx)
	if err != nil {
		return 0, -1, err
	}
	defer release()

	res, err := cl.stream.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, -1, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		head, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		return 0, -1, classify(url, res.StatusCode, head)
	}
	written, err = io.Copy(w, res.Body)
	if err != nil {
		return written, res.ContentLength, fmt.Errorf("read body of %s: %w", url, err)
	}
	return written, res.ContentLength, nil
}
