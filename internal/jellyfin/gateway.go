package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mross/tempo/internal/domain"
)

const defaultTimeout = 60 * time.Second

// Gateway is the single chokepoint for all catalog network calls. It
// normalizes transport failures into the error taxonomy and performs the
// mixed-content pre-flight. It does not retry, does not cache, and a
// call always yields exactly one result.
type Gateway struct {
	httpClient *http.Client
	// secureOrigin pins the gateway to https: requests to plain-http
	// URLs fail fast with ErrMixedContent instead of dying silently in
	// the transport.
	secureOrigin bool
	logger       *slog.Logger
}

// NewGateway creates a Gateway. secureOrigin should be true when the
// configured server URL is https, so that any stray http URL is caught
// before it hits the network.
func NewGateway(secureOrigin bool, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		secureOrigin: secureOrigin,
		logger:       logger,
	}
}

// do performs one request and returns the raw body. Every failure mode
// maps onto the taxonomy: ErrMixedContent before I/O, NetworkError for
// transport failures, HTTPError for non-2xx statuses.
func (g *Gateway) do(ctx context.Context, method, reqURL string, headers map[string]string, body []byte) ([]byte, error) {
	if g.secureOrigin && strings.HasPrefix(reqURL, "http:") {
		g.logger.Error("blocked insecure request from secure origin", "url", reqURL)
		return nil, domain.ErrMixedContent
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	g.logger.Debug("catalog request", "method", method, "url", reqURL)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Error("catalog request failed", "url", reqURL, "error", err)
		return nil, &NetworkError{Err: err, Hint: networkErrorHint}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err, Hint: networkErrorHint}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Error("catalog request error", "status", resp.StatusCode, "url", reqURL)
		return nil, &HTTPError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}

	return respBody, nil
}

// JSON performs a request and decodes the response body into dest.
// Malformed bodies surface as JSONError rather than propagating
// undefined fields downstream.
func (g *Gateway) JSON(ctx context.Context, method, reqURL string, headers map[string]string, body []byte, dest interface{}) error {
	respBody, err := g.do(ctx, method, reqURL, headers, body)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return &JSONError{Err: err}
	}
	return nil
}

// Bytes performs a request in binary mode and returns the raw payload.
// Used for image fetches; the asset cache sits above this.
func (g *Gateway) Bytes(ctx context.Context, reqURL string, headers map[string]string) ([]byte, error) {
	return g.do(ctx, http.MethodGet, reqURL, headers, nil)
}

// joinQuery appends encoded query values to a base URL.
func joinQuery(base string, query url.Values) string {
	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}
