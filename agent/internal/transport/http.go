// Package transport performs the single request/response exchange that
// carries an already sealed body to the callback server.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"beacon/agent/internal/fault"
	"beacon/agent/internal/logger"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBody        = 4 << 20
)

// Transport sends one opaque body and returns the opaque response.
type Transport interface {
	Send(ctx context.Context, body []byte) ([]byte, error)
}

// StatusError is returned (wrapped in a transport fault) when the server
// answers with anything other than 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
}

type Options struct {
	URL                string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Headers            map[string]string
}

type HTTP struct {
	url     string
	headers http.Header
	client  *http.Client
}

func NewHTTP(opts Options) *HTTP {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	}
	if opts.InsecureSkipVerify {
		logger.Warnf("TLS certificate verification is DISABLED for %s", opts.URL)
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in
	}
	h := make(http.Header, len(opts.Headers)+1)
	h.Set("Content-Type", "text/plain")
	for k, v := range opts.Headers {
		h.Set(k, v)
	}
	return &HTTP{
		url:     opts.URL,
		headers: h,
		client:  &http.Client{Transport: tr, Timeout: opts.Timeout},
	}
}

// Send POSTs body and returns the response body on 200. Every failure is a
// fault.KindTransport error; the caller owns the retry policy.
func (t *HTTP) Send(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fault.Transport("send", err)
	}
	req.Header = t.headers.Clone()

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fault.Transport("send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, fault.Transport("send", &StatusError{Code: resp.StatusCode})
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fault.Transport("read response", err)
	}
	return b, nil
}
