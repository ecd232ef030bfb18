// Package severa logs hours to Visma Severa. There is no token endpoint for
// third parties, so authentication emulates the browser: scrape the external
// login page, post credentials to the Visma Connect identity provider, and
// exchange the resulting consent fields for a local access token.
package severa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brbcoffee/ttcli/internal/api"
	"github.com/brbcoffee/ttcli/internal/config"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

// Config keys stored for this service.
const (
	UsernameKey = "SEVERA_USERNAME"
	PasswordKey = "SEVERA_PASSWORD"
)

// ServiceName is the stable identifier for this provider.
const ServiceName = "Severa"

var requiredKeys = []string{UsernameKey, PasswordKey}

const (
	defaultBaseURL    = "https://severa.visma.com/psarest/v0.1"
	defaultSiteURL    = "https://severa.visma.com"
	defaultConnectURL = "https://connect.visma.com/password"

	tokenCacheFile = "severa_token.json"
	// expiryMargin keeps us from reusing a cached token that is about to
	// expire mid-operation.
	expiryMargin = 5 * time.Minute
)

// Registration describes this provider for the service registry.
func Registration() api.Registration {
	return api.Registration{
		Name: ServiceName,
		Keys: requiredKeys,
		New: func(cfg map[string]string, store *config.Store) (api.Service, error) {
			return New(cfg, store)
		},
	}
}

// Client is a Severa API client. The login chain is run lazily on the first
// authenticated call and the token is memoized for the instance's lifetime
// and cached on disk across invocations.
type Client struct {
	transport api.Transport
	cfg       map[string]string
	token     *Token

	// SiteURL and ConnectURL exist as fields so tests can point the login
	// chain at a local server.
	SiteURL    string
	ConnectURL string
	CacheFile  string
}

// New constructs a client from the stored service config.
func New(cfg map[string]string, store *config.Store) (*Client, error) {
	if missing := api.MissingKeys(cfg, requiredKeys); len(missing) > 0 {
		return nil, &api.ConfigError{
			Message:    "Severa is not configured, run: ttcli configure severa",
			MissingKey: missing[0],
		}
	}

	// The login chain relies on cookies set across the redirect hops.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	cacheFile := ""
	if store != nil {
		cacheFile = filepath.Join(store.Dir(), tokenCacheFile)
	}

	return &Client{
		transport: api.Transport{
			HTTP:    &http.Client{Jar: jar},
			BaseURL: defaultBaseURL,
			Header:  http.Header{},
		},
		cfg:        cfg,
		SiteURL:    defaultSiteURL,
		ConnectURL: defaultConnectURL,
		CacheFile:  cacheFile,
	}, nil
}

// Name implements api.Service.
func (c *Client) Name() string {
	return ServiceName
}

// IsConfigured implements api.Service without network I/O.
func (c *Client) IsConfigured() bool {
	return len(api.MissingKeys(c.cfg, requiredKeys)) == 0
}

// SetBaseURL points the client at a different API root (tests).
func (c *Client) SetBaseURL(u string) {
	c.transport.BaseURL = u
}

func (c *Client) adoptToken(tok *Token) {
	c.token = tok
	c.transport.Header.Set("authorization", "bearer "+tok.AccessToken)
	c.transport.Header.Set("referer", c.SiteURL+"/")
}

// cachedToken loads the on-disk token if it is still comfortably valid.
func (c *Client) cachedToken() *Token {
	if c.CacheFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.CacheFile)
	if err != nil {
		return nil
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil
	}
	if time.Until(tok.ExpiresUTC.Time) < expiryMargin {
		return nil
	}
	return &tok
}

// saveCachedToken persists the token for later invocations. Best effort.
func (c *Client) saveCachedToken(tok *Token) {
	if c.CacheFile == "" {
		return
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return
	}
	tmpPath := c.CacheFile + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not cache severa token: %v\n", err)
		return
	}
	if err := os.Rename(tmpPath, c.CacheFile); err != nil {
		_ = os.Remove(tmpPath)
		fmt.Fprintf(os.Stderr, "Warning: could not cache severa token: %v\n", err)
	}
}

// login runs the three-step browser-emulation flow unless a usable token is
// already in memory or on disk.
func (c *Client) login(ctx context.Context) error {
	if c.token != nil {
		return nil
	}
	if tok := c.cachedToken(); tok != nil {
		c.adoptToken(tok)
		return nil
	}

	// Step 1: the external login page carries a CSRF token and return URL.
	page, status, err := c.transport.Get(ctx, "/authentication/ExternalLogin", url.Values{
		"provider":     {"VismaConnect"},
		"redirect_uri": {c.SiteURL},
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("external login page returned status %d", status)
	}
	form, err := parseLoginForm(bytes.NewReader(page))
	if err != nil {
		return err
	}

	// Step 2: post the credentials to the identity provider.
	values := url.Values{
		"Username":                         {c.cfg[UsernameKey]},
		"Password":                         {c.cfg[PasswordKey]},
		"RememberUsername":                 {"false"},
		"IsPlatformAuthenticatorAvailable": {"true"},
		"ClientId":                         {"severa"},
		"ReturnUrl":                        {form.ReturnURL},
		"__RequestVerificationToken":       {form.CSRFToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ConnectURL, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("creating password request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.transport.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("posting credentials: %w", err)
	}
	consent, err := parseConsentForm(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	// Step 3: exchange the consent fields for a local access token.
	data, status, err := c.transport.PostJSON(ctx,
		"/authentication/vismaConnect/obtainLocalAccessToken",
		url.Values{"_": {api.Cachebust()}},
		map[string]string{
			"id_token":      consent.IDToken,
			"scope":         consent.Scope,
			"code":          consent.Code,
			"session_state": consent.SessionState,
		})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("token exchange returned status %d: %s", status, data)
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil || tok.AccessToken == "" {
		return fmt.Errorf("severa login rejected, check your username and password")
	}

	c.adoptToken(&tok)
	c.saveCachedToken(&tok)
	return nil
}

// userGUID returns the logged-in user's guid, logging in if needed.
func (c *Client) userGUID(ctx context.Context) (string, error) {
	if err := c.login(ctx); err != nil {
		return "", err
	}
	return c.token.User.GUID, nil
}

// phaseTreePhases lists the user's phase tree. With an empty parent it
// returns the top-level projects; with a parent guid it returns that
// project's phases.
func (c *Client) phaseTreePhases(ctx context.Context, parentGUID string) ([]Phase, error) {
	guid, err := c.userGUID(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"firstRow": {"0"},
		"rowCount": {"100"},
		"_":        {api.Cachebust()},
	}
	if parentGUID == "" {
		params.Set("calculateRowCount", "false")
	} else {
		params.Set("parentPhaseGuid", parentGUID)
	}

	data, status, err := c.transport.Get(ctx, "/users/"+guid+"/phasetreephases", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("phase tree returned status %d: %s", status, data)
	}
	var phases []Phase
	if err := json.Unmarshal(data, &phases); err != nil {
		return nil, fmt.Errorf("decoding phase tree: %w", err)
	}
	return phases, nil
}

// WriteHours implements api.Service. Hours go to the first available project
// and its first phase; Severa exposes no per-invocation target selection.
func (c *Client) WriteHours(ctx context.Context, hours float64, description string, day time.Time) error {
	_, err := c.WriteWorkHour(ctx, hours, description, day)
	return err
}

// WriteWorkHour posts a work-hour record and returns the created record.
func (c *Client) WriteWorkHour(ctx context.Context, hours float64, description string, day time.Time) (*WorkHour, error) {
	guid, err := c.userGUID(ctx)
	if err != nil {
		return nil, err
	}

	projects, err := c.phaseTreePhases(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("no severa projects available to log hours to")
	}
	project := projects[0]

	phases, err := c.phaseTreePhases(ctx, project.GUID)
	if err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		return nil, fmt.Errorf("severa project %q has no phases to log hours to", project.Name)
	}
	phase := phases[0]

	body := workHourRequest{
		WorkType:     project.DefaultWorkType,
		Phase:        PhaseRef{GUID: phase.GUID, Name: phase.Name},
		Customer:     project.Customer,
		Project:      project.Project,
		User:         userRef{GUID: guid},
		Description:  description,
		Quantity:     hours,
		EventDate:    timeutil.ISODate(day),
		IsModifiable: true,
	}

	data, status, err := c.transport.PostJSON(ctx, "/workhours", url.Values{"_": {api.Cachebust()}}, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("writing work hours returned status %d: %s", status, data)
	}
	var wh WorkHour
	if err := json.Unmarshal(data, &wh); err != nil {
		return nil, fmt.Errorf("decoding work hour response: %w", err)
	}
	return &wh, nil
}

// WorkHours lists the user's logged work hours in [from, to].
func (c *Client) WorkHours(ctx context.Context, from, to time.Time) ([]WorkHour, error) {
	guid, err := c.userGUID(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"startDate": {timeutil.ISODate(from)},
		"endDate":   {timeutil.ISODate(to)},
		"_":         {api.Cachebust()},
	}
	data, status, err := c.transport.Get(ctx, "/users/"+guid+"/workhours", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("listing work hours returned status %d: %s", status, data)
	}
	var hours []WorkHour
	if err := json.Unmarshal(data, &hours); err != nil {
		return nil, fmt.Errorf("decoding work hours: %w", err)
	}
	return hours, nil
}

// LockDay implements api.Service by marking the work day completed via a
// JSON-Patch request.
func (c *Client) LockDay(ctx context.Context, day time.Time) error {
	guid, err := c.userGUID(ctx)
	if err != nil {
		return err
	}

	patch := []map[string]any{
		{"op": "replace", "path": "isCompleted", "value": true},
	}
	data, status, err := c.transport.PatchJSON(ctx,
		"/users/"+guid+"/workdays/"+timeutil.ISODate(day),
		url.Values{"_": {api.Cachebust()}},
		patch)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("locking day returned status %d: %s", status, data)
	}
	return nil
}
