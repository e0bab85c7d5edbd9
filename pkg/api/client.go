// Package api provides the gateway to the dataset-quality service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/logging"
)

// DefaultTimeout is the maximum time to wait for service responses.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Options configures a Gateway.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport overrides the underlying round tripper (tests use httptest's).
	Transport http.RoundTripper
}

// Gateway performs JSON request/response exchanges with the service and
// normalizes every failure into *Error. It never retries.
type Gateway struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// NewGateway creates a new gateway for the service at opts.BaseURL.
func NewGateway(opts Options, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	named := logger.Named("api")

	return &Gateway{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: LoggingTransport(transport, named),
		},
		userAgent: opts.UserAgent,
		logger:    named,
	}, nil
}

// BaseURL returns the service root the gateway talks to.
func (g *Gateway) BaseURL() string {
	return g.baseURL.String()
}

// Request sends body (JSON-encoded when non-nil) to path and returns the raw
// JSON response. It is the generic form of every typed endpoint method.
func (g *Gateway) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := g.doJSON(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// doJSON encodes in as the request body (if non-nil) and decodes the response into out (if non-nil).
func (g *Gateway) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return NewLocalError(fmt.Sprintf("failed to encode request: %v", err), nil)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return g.do(ctx, method, path, body, contentType, out)
}

// doMultipart streams r as the "file" field of a multipart form.
func (g *Gateway) doMultipart(ctx context.Context, path, filename string, r io.Reader, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	err := g.do(ctx, http.MethodPost, path, pr, mw.FormDataContentType(), out)
	// Unblock the writer goroutine if the request ended before the body was consumed.
	pr.Close()
	return err
}

// do executes an HTTP request and decodes the response.
func (g *Gateway) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	endpoint := g.buildURL(path)
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &Error{Kind: KindLocal, Method: method, Path: path, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return g.transportError(method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Method: method, Path: path, StatusCode: resp.StatusCode,
			Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, resp.Status, respBody)
		apiErr.Method = method
		apiErr.Path = path

		g.logger.Warn("Service returned error",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(apiErr.Kind)),
			zap.String("body", logging.SanitizeBody(respBody)))
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		g.logger.Error("Malformed response from service",
			zap.String("request_id", requestID),
			zap.String("path", path),
			zap.String("body", logging.SanitizeBody(respBody)),
			zap.Error(err))
		return &Error{Kind: KindTransport, Method: method, Path: path, StatusCode: resp.StatusCode,
			Message: "malformed response from service", Cause: err}
	}

	return nil
}

// transportError converts a client-side failure into *Error.
func (g *Gateway) transportError(method, path string, err error) *Error {
	msg := fmt.Sprintf("service unreachable at %s", g.baseURL.Host)

	var urlErr *url.Error
	switch {
	case errors.Is(err, context.Canceled):
		msg = "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case errors.As(err, &urlErr) && urlErr.Timeout():
		msg = fmt.Sprintf("request timed out after %s", g.httpClient.Timeout)
	}

	g.logger.Debug("Request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("error", logging.SanitizeError(err)))

	return &Error{Kind: KindTransport, Method: method, Path: path, Message: msg, Cause: err}
}

// buildURL joins path onto the base URL. Each segment in path must already
// be escaped; see escapeSegments.
func (g *Gateway) buildURL(path string) string {
	u := *g.baseURL

	escaped := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		unescaped = escaped
	}
	u.Path = unescaped
	u.RawPath = escaped
	return u.String()
}

// escapeSegments joins path segments, escaping each one.
func escapeSegments(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}
