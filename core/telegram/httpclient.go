package telegram

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/schoolbot/core/telegram/netutil"
)

// HTTPOptions tunes the client used for Bot API calls.
type HTTPOptions struct {
	// PollTimeout is the long-poll wait; the request timeout is kept above it.
	PollTimeout time.Duration
	Retries     int
	Backoff     time.Duration
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.PollTimeout <= 0 {
		o.PollTimeout = defaultLongPollSeconds * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	} else if o.Retries == 0 {
		o.Retries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// NewHTTPClient returns a client that retries transient transport failures.
// getUpdates holds the connection for up to PollTimeout, so the overall
// request timeout leaves 20s of headroom on top of it.
func NewHTTPClient(opts HTTPOptions) *http.Client {
	opts = opts.withDefaults()
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: opts.PollTimeout + 10*time.Second,
	}
	return &http.Client{
		Timeout: opts.PollTimeout + 20*time.Second,
		Transport: &retryTransport{
			next:    base,
			retries: opts.Retries,
			backoff: opts.Backoff,
		},
	}
}

var errNoReplay = errors.New("telegram: request body cannot be replayed")

type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for attempt := 1; attempt <= t.retries && err != nil && netutil.Transient(err); attempt++ {
		again, rerr := rewind(req)
		if rerr != nil {
			return nil, err
		}
		wait := time.NewTimer(netutil.Backoff(attempt, t.backoff, err))
		select {
		case <-req.Context().Done():
			wait.Stop()
			return nil, req.Context().Err()
		case <-wait.C:
		}
		resp, err = t.next.RoundTrip(again)
	}
	return resp, err
}

// rewind clones req with a fresh body. Requests whose body cannot be
// replayed are not retried.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errNoReplay
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}
