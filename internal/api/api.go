// Package api defines the contract every timesheet provider implements and
// the shared HTTP plumbing the provider clients are built on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Service is the capability set shared by all timesheet providers.
// Implementations are constructed per CLI invocation; constructors return a
// *ConfigError when required credentials are absent, so construction doubles
// as a capability probe.
type Service interface {
	// Name is a stable identifier used for config storage keys and CLI
	// routing. It never changes for a given provider.
	Name() string
	// IsConfigured reports whether all required credential keys are present.
	// It must not perform network I/O.
	IsConfigured() bool
	// WriteHours submits or upserts a timesheet entry for day. When the
	// remote day already has an entry, implementations update it instead of
	// erroring.
	WriteHours(ctx context.Context, hours float64, description string, day time.Time) error
	// LockDay marks a day as finalized on providers that support it and is
	// a silent success on providers without such a concept.
	LockDay(ctx context.Context, day time.Time) error
}

// ConfigError reports missing credentials or routing configuration that the
// user can fix by running configure.
type ConfigError struct {
	Message    string
	MissingKey string
}

func (e *ConfigError) Error() string {
	if e.MissingKey == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (missing %s)", e.Message, e.MissingKey)
}

// MissingKeys returns the required keys absent from cfg, in order.
func MissingKeys(cfg map[string]string, required []string) []string {
	var missing []string
	for _, k := range required {
		if cfg[k] == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// Cachebust returns a millisecond timestamp used as the "_" query parameter
// some provider endpoints require to defeat intermediary caches.
func Cachebust() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// Transport is the HTTP plumbing owned by each provider client: a base URL
// plus the headers and basic-auth credentials attached to every request.
type Transport struct {
	HTTP    *http.Client
	BaseURL string

	// Header entries are set on every outgoing request.
	Header http.Header
	// BasicUser/BasicPass enable HTTP basic auth when BasicPass is non-empty.
	BasicUser string
	BasicPass string
}

// Endpoint joins path onto the base URL.
func (t *Transport) Endpoint(path string) string {
	return strings.TrimRight(t.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Get issues a GET and returns the response body and status code.
func (t *Transport) Get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	return t.do(ctx, http.MethodGet, path, query, nil)
}

// PostJSON issues a POST with a JSON body.
func (t *Transport) PostJSON(ctx context.Context, path string, query url.Values, body any) ([]byte, int, error) {
	return t.do(ctx, http.MethodPost, path, query, body)
}

// PutJSON issues a PUT with a JSON body.
func (t *Transport) PutJSON(ctx context.Context, path string, query url.Values, body any) ([]byte, int, error) {
	return t.do(ctx, http.MethodPut, path, query, body)
}

// PatchJSON issues a PATCH with a JSON body.
func (t *Transport) PatchJSON(ctx context.Context, path string, query url.Values, body any) ([]byte, int, error) {
	return t.do(ctx, http.MethodPatch, path, query, body)
}

func (t *Transport) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, int, error) {
	endpoint := t.Endpoint(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshalling %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("creating %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if t.BasicPass != "" {
		req.SetBasicAuth(t.BasicUser, t.BasicPass)
	}

	client := t.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	return data, resp.StatusCode, nil
}
