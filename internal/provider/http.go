package provider

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

	"github.com/sirupsen/logrus"
)

const defaultTimeout = 10 * time.Second

// APIError represents a non-2xx provider response with status code and (capped) body.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Status, e.Body)
}

// Options configures a provider client.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// client is the JSON-over-HTTP plumbing shared by every provider.
type client struct {
	name    string
	apiKey  string
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

func newClient(name, defaultBaseURL string, opts Options) client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return client{
		name:    name,
		apiKey:  opts.APIKey,
		baseURL: base,
		http:    hc,
		log:     log.WithField("provider", name),
	}
}

// Name returns the provider name.
func (c *client) Name() string { return c.name }

func (c *client) requireKey() error {
	if c.apiKey == "" {
		return fmt.Errorf("%s: %w", c.name, ErrMissingAPIKey)
	}
	return nil
}

// getJSON issues a GET to baseURL+path and decodes the JSON response into out.
// The query string is never included in errors since it carries the api key.
func (c *client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", c.name, err)
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "swing-bot/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s GET %s: %w", c.name, path, scrubURLError(err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.WithError(err).Debug("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
		if err != nil {
			return &APIError{Provider: c.name, Status: resp.StatusCode, Body: fmt.Sprintf("GET %s -> failed to read error body", path)}
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			return &APIError{Provider: c.name, Status: resp.StatusCode, Body: fmt.Sprintf("GET %s -> %s (retry-after: %s)", path, string(body), ra)}
		}
		return &APIError{Provider: c.name, Status: resp.StatusCode, Body: fmt.Sprintf("GET %s -> %s", path, string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding %s: %w", c.name, path, err)
	}
	return nil
}

// scrubURLError drops the request URL from transport errors.
func scrubURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}

func parseFloatField(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}
