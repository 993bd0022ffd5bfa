package depreg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sammcj/depindex/internal/security"
	"github.com/sirupsen/logrus"
)

// HTTPClient is the minimal interface registry clients depend on, so tests
// can substitute an httptest.Server-backed client or a stub.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	// DefaultRegistryRateLimit is the default maximum requests per second
	// issued to any single registry host.
	DefaultRegistryRateLimit = 10
	// RegistryRateLimitEnvVar overrides DefaultRegistryRateLimit.
	RegistryRateLimitEnvVar = "DEPINDEX_REGISTRY_RATE_LIMIT"

	// maxResponseBytes bounds registry API/body reads to avoid memory
	// exhaustion from a hostile or misbehaving registry.
	maxResponseBytes = 20 * 1024 * 1024
)

// RateLimitedHTTPClient wraps http.Client with a token-bucket limiter, one
// request in flight at a time per instance (registry clients hold one each).
type RateLimitedHTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	mu      sync.Mutex
}

func registryRateLimit() float64 {
	if v := os.Getenv(RegistryRateLimitEnvVar); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return DefaultRegistryRateLimit
}

// NewRateLimitedHTTPClient builds a client with a 30s timeout and the
// configured (or default) rate limit.
func NewRateLimitedHTTPClient() *RateLimitedHTTPClient {
	return &RateLimitedHTTPClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(registryRateLimit()), 1),
	}
}

func (c *RateLimitedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// Fetch issues a GET request, checks domain access and response-body content
// safety via internal/security, and returns the raw body bytes.
func Fetch(ctx context.Context, client HTTPClient, logger *logrus.Logger, reqURL string, headers map[string]string) ([]byte, error) {
	parsed, err := url.Parse(reqURL)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}

	if err := security.CheckDomainAccess(parsed.Hostname()); err != nil {
		if secErr, ok := err.(*security.SecurityError); ok {
			return nil, security.FormatSecurityBlockError(secErr)
		}
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "depindex/1.0")
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{"url": reqURL}).Debug("fetching registry resource")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewRateLimited(reqURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if isTextualContentType(contentType) {
		sourceContext := security.SourceContext{
			URL:         reqURL,
			Domain:      parsed.Hostname(),
			ContentType: contentType,
			Tool:        "depreg",
		}
		if result, err := security.AnalyseContent(string(body), sourceContext); err == nil {
			switch result.Action {
			case security.ActionBlock:
				return nil, security.FormatSecurityBlockErrorFromResult(result)
			case security.ActionWarn:
				if logger != nil {
					logger.Warnf("security warning [ID: %s]: %s", result.ID, result.Message)
				}
			}
		}
	}

	return body, nil
}

// isTextualContentType reports whether a response body is worth running
// through the content-safety analyser here. Binary archive bytes (tarballs,
// zips, jars) are skipped at this layer; only JSON/text registry API
// responses are scanned in Fetch. Decoded package source files are scanned
// individually, once per file, by internal/indexer's filterUnsafeFiles.
func isTextualContentType(contentType string) bool {
	switch {
	case contentType == "":
		return true
	default:
		for _, prefix := range []string{"application/json", "text/", "application/xml", "application/octet-stream"} {
			if len(contentType) >= len(prefix) && contentType[:len(prefix)] == prefix {
				return prefix != "application/octet-stream"
			}
		}
		return false
	}
}
