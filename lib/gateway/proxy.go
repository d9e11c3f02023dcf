package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/models"
)

// InboundRequest is the caller's request detached from the HTTP framework, so
// the forwarder can be exercised without a running server.
type InboundRequest struct {
	Method      string
	Path        string
	QueryString string
	Header      http.Header
	Body        []byte
	CallerIP    string
}

// Result is the upstream's answer, relayed verbatim.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
}

var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// Forwarder executes the bounded outbound call to a tenant upstream. It never
// retries: upstream idempotency is unknown.
type Forwarder struct {
	client  *http.Client
	timeout time.Duration
}

func NewForwarder(timeout time.Duration) *Forwarder {
	return &Forwarder{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Forward sends the inbound request to api's upstream and returns the
// response. Timeouts and transport failures map to BadGateway; the caller
// never hangs past the configured bound.
func (f *Forwarder) Forward(ctx context.Context, api *models.Apis, inbound InboundRequest) (*Result, error) {
	target := strings.TrimSuffix(api.UpstreamBaseURL, "/")
	if inbound.Path != "" {
		target += "/" + strings.TrimPrefix(inbound.Path, "/")
	}
	if inbound.QueryString != "" {
		target += "?" + inbound.QueryString
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var body io.Reader
	if bodyMethods[inbound.Method] && len(inbound.Body) > 0 {
		body = bytes.NewReader(inbound.Body)
	}

	req, err := http.NewRequestWithContext(ctx, inbound.Method, target, body)
	if err != nil {
		return nil, lib.ErrBadGateway("Bad Gateway")
	}

	for name, values := range inbound.Header {
		if strings.EqualFold(name, "x-api-key") {
			// the gateway credential never reaches the upstream
			continue
		}
		if strings.EqualFold(name, "Host") {
			continue
		}
		req.Header.Set(name, strings.Join(values, ", "))
	}
	if upstream, err := url.Parse(api.UpstreamBaseURL); err == nil {
		req.Host = upstream.Host
	}
	req.Header.Set("X-Forwarded-For", inbound.CallerIP)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, lib.ErrBadGateway("Bad Gateway")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, lib.ErrBadGateway("Bad Gateway")
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
		Duration:    time.Since(start),
	}, nil
}
