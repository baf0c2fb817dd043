package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tartampluch/go-tempo/internal/config"
)

// ExprFetcher retrieves a pipeline expression from a remote location.
// This interface allows for mocking in tests and decoupling from the network layer.
type ExprFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher implements ExprFetcher using the standard net/http library.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with configured timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// Fetch downloads an expression. Only http and https are accepted, the body is
// capped at config.MaxHTTPResponseSize and surrounding whitespace is trimmed.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}

	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return "", fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	// Query parameters might contain tokens.
	safeURL := u.Scheme + "://" + u.Host + u.Path

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, safeURL),
	)
	log.Debug(config.MsgFetchStarted)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("network error during fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Warn(config.MsgFetchBadStatus,
			slog.Int(config.LogKeyStatus, resp.StatusCode),
		)
		return "", fmt.Errorf("server returned unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxHTTPResponseSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > config.MaxHTTPResponseSize {
		return "", fmt.Errorf("%s: %d bytes", config.ErrBodyTooLarge, config.MaxHTTPResponseSize)
	}

	return strings.TrimSpace(string(body)), nil
}
