package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/config"

	"github.com/rs/zerolog"
)

// maxBodySize bounds how much of a backend response is read.
const maxBodySize = 10 << 20

// Client implements the backend interfaces of this package over HTTP.
type Client struct {
	baseURL   *url.URL
	offersURL *url.URL
	http      *http.Client
	logger    zerolog.Logger
}

var (
	_ CartStore      = (*Client)(nil)
	_ ProductCatalog = (*Client)(nil)
	_ ProfileAPI     = (*Client)(nil)
	_ OrderAPI       = (*Client)(nil)
	_ Authenticator  = (*Client)(nil)
)

// NewClient creates a backend client. When httpClient is nil a client with
// the configured timeout is used.
func NewClient(cfg config.BackendConfig, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	base, err := parseBase(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}

	offersRaw := cfg.OffersBaseURL
	if offersRaw == "" {
		offersRaw = cfg.BaseURL
	}
	offers, err := parseBase(offersRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid backend offers URL: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:   base,
		offersURL: offers,
		http:      httpClient,
		logger:    logger.With().Str("component", "storeapi").Logger(),
	}, nil
}

// parseBase parses a base URL and guarantees a trailing slash so relative
// endpoint paths resolve beneath it.
func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// request describes a single backend call.
type request struct {
	op     string
	method string
	base   *url.URL
	path   string
	query  url.Values
	body   any
	accept string
}

// response is the raw outcome of a backend call.
type response struct {
	status      int
	contentType string
	body        []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// do performs the request and returns the raw response. Transport failures
// are returned as *Error.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	endpoint := req.base.ResolveReference(&url.URL{Path: req.path})
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, &Error{Op: req.op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return nil, &Error{Op: req.op, Err: err}
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("op", req.op).
			Str("method", req.method).
			Str("path", req.path).
			Msg("backend request failed")
		return nil, &Error{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Op: req.op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug().
		Str("op", req.op).
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Msg("backend response")

	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        raw,
	}, nil
}

// doJSON performs the request and decodes a JSON body into out. The status
// code is returned so callers can decide how to treat non-2xx responses that
// still carry a JSON error object.
func (c *Client) doJSON(ctx context.Context, req request, out any) (int, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return 0, err
	}
	return resp.status, c.decode(req.op, resp, out)
}

// decode unmarshals a JSON response body into out. PHP error pages and
// undecodable bodies are reported as *Error wrapping ErrMalformedResponse.
func (c *Client) decode(op string, resp *response, out any) error {
	if looksLikePHPError(resp.body) {
		c.logger.Error().
			Str("op", op).
			Int("status", resp.status).
			Str("body", excerpt(resp.body)).
			Msg("backend returned an error page")
		return &Error{
			Op:      op,
			Status:  resp.status,
			Message: "backend encountered an internal error",
			Err:     ErrMalformedResponse,
		}
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		if !resp.ok() {
			return &Error{Op: op, Status: resp.status, Message: excerpt(resp.body)}
		}
		c.logger.Error().
			Err(err).
			Str("op", op).
			Str("body", excerpt(resp.body)).
			Msg("failed to decode backend response")
		return &Error{Op: op, Status: resp.status, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}

	return nil
}

// looksLikePHPError reports whether body is an HTML error page or carries a
// PHP notice ahead of the JSON payload.
func looksLikePHPError(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return true
	}
	return bytes.Contains(body, []byte("<br />")) ||
		bytes.Contains(body, []byte("Fatal error")) ||
		bytes.Contains(body, []byte("<b>Warning</b>"))
}

func excerpt(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
