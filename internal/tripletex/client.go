// Package tripletex logs hours to the TripleTex timesheet API. Authentication
// runs through an external login service that exchanges an employee token for
// a session token with an expiry date; the session token is persisted into
// the config store so later invocations skip the exchange.
package tripletex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brbcoffee/ttcli/internal/api"
	"github.com/brbcoffee/ttcli/internal/config"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

// Config keys stored for this service.
const (
	EmployeeTokenKey      = "TT_EMPLOYEE_TOKEN"
	ServiceURLKey         = "TT_SERVICE_URL"
	ConfiguredActivityKey = "TT_CONFIGURED_ACTIVITY"

	sessionTokenKey = "SESSION_TOKEN"
)

// ServiceName is the stable identifier for this provider.
const ServiceName = "TripleTex"

var requiredKeys = []string{EmployeeTokenKey, ServiceURLKey}

// ErrConflictNotFound is returned when the API reports an existing entry for
// the day but the follow-up lookup cannot locate it. There is no safe
// recovery from this inconsistency.
var ErrConflictNotFound = errors.New("an entry already exists for that day but it could not be found to update")

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

// Client is a TripleTex API client. It owns its HTTP transport and cached
// session token; the config store is only touched to persist the token.
type Client struct {
	transport api.Transport
	store     *config.Store
	cfg       map[string]string
	token     *SessionToken
	employee  *Employee
}

// New constructs a client from the stored service config. Missing required
// keys surface as a *api.ConfigError naming the first absent key.
func New(cfg map[string]string, store *config.Store) (*Client, error) {
	if missing := api.MissingKeys(cfg, requiredKeys); len(missing) > 0 {
		return nil, &api.ConfigError{
			Message:    "TripleTex is not configured, run: ttcli configure tripletex",
			MissingKey: missing[0],
		}
	}
	return &Client{
		transport: api.Transport{HTTP: &http.Client{}},
		store:     store,
		cfg:       cfg,
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

// savedSessionToken returns the token persisted in the service config, if any.
func (c *Client) savedSessionToken() *SessionToken {
	raw := c.cfg[sessionTokenKey]
	if raw == "" {
		return nil
	}
	var tok SessionToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil
	}
	return &tok
}

// persistSessionToken writes the token back into the config store so the
// next invocation can reuse it. Best effort: a failed write only costs a
// re-login later.
func (c *Client) persistSessionToken(tok *SessionToken) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return
	}
	c.cfg[sessionTokenKey] = string(raw)
	_ = c.store.Write(ServiceName, c.cfg)
}

func (c *Client) adoptToken(tok *SessionToken) {
	c.token = tok
	c.transport.BaseURL = tok.APIURL()
	c.transport.BasicUser = "0"
	c.transport.BasicPass = tok.Token
}

// login ensures the client holds a usable session token: the in-memory one,
// a persisted non-expired one, or a fresh one from the login service.
func (c *Client) login(ctx context.Context) error {
	if c.token != nil {
		return nil
	}

	if tok := c.savedSessionToken(); tok != nil && !tok.Expired(time.Now()) {
		c.adoptToken(tok)
		return nil
	}

	body, err := json.Marshal(map[string]string{"employeeToken": c.cfg[EmployeeTokenKey]})
	if err != nil {
		return fmt.Errorf("marshalling login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg[ServiceURLKey], bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.transport.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("tripletex login: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading login response: %w", err)
	}

	var tok SessionToken
	if err := json.Unmarshal(data, &tok); err != nil || tok.Token == "" {
		// Hard login failure. Do not retry with the same credentials; the
		// user should clear and re-enter them.
		return fmt.Errorf("tripletex login rejected, check your employee token and service url")
	}

	c.adoptToken(&tok)
	c.persistSessionToken(&tok)
	return nil
}

// Employee returns the identity the session token belongs to, fetched once
// per client instance.
func (c *Client) Employee(ctx context.Context) (*Employee, error) {
	if err := c.login(ctx); err != nil {
		return nil, err
	}
	if c.employee != nil {
		return c.employee, nil
	}

	data, status, err := c.transport.Get(ctx, "/token/session/>whoAmI", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("whoAmI returned status %d: %s", status, data)
	}
	var env employeeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding whoAmI response: %w", err)
	}
	c.employee = &env.Value
	return c.employee, nil
}

// WriteHours implements api.Service using the configured default activity.
func (c *Client) WriteHours(ctx context.Context, hours float64, description string, day time.Time) error {
	_, err := c.WriteEntry(ctx, hours, description, day, 0, 0)
	return err
}

// WriteEntry submits a timesheet entry, upserting when the remote day/activity
// already has one. activityID and projectID of 0 fall back to the configured
// default activity; if neither resolves, a *api.ConfigError is returned.
// The returned entry reflects the final remote state (the update result on
// conflict, not the original create attempt).
func (c *Client) WriteEntry(ctx context.Context, hours float64, description string, day time.Time, activityID, projectID int) (*TimesheetEntry, error) {
	if err := c.login(ctx); err != nil {
		return nil, err
	}

	if activityID == 0 {
		ca, err := c.configuredActivity()
		if err != nil {
			return nil, &api.ConfigError{
				Message:    "couldn't figure out which tripletex project or activity to log hours to, please run: ttcli configure tripletex",
				MissingKey: ConfiguredActivityKey,
			}
		}
		activityID = ca.Activity.ID
		if projectID == 0 && ca.Project != nil {
			projectID = ca.Project.ID
		}
	}

	emp, err := c.Employee(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"activity": map[string]int{"id": activityID},
		"employee": map[string]int{"id": emp.EmployeeID},
		"date":     timeutil.ISODate(day),
		"hours":    hours,
		"comment":  description,
	}
	if projectID != 0 {
		body["project"] = map[string]int{"id": projectID}
	}

	data, status, err := c.transport.PostJSON(ctx, "timesheet/entry", nil, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusConflict {
		return c.updateConflicting(ctx, hours, description, day, activityID, projectID)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("creating timesheet entry returned status %d: %s", status, data)
	}

	var env entryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding timesheet entry response: %w", err)
	}
	return &env.Value, nil
}

// updateConflicting locates the entry that caused a 409 in a one-day window
// and updates its hours and comment.
func (c *Client) updateConflicting(ctx context.Context, hours float64, description string, day time.Time, activityID, projectID int) (*TimesheetEntry, error) {
	params := url.Values{
		"dateFrom":   {timeutil.ISODate(day)},
		"dateTo":     {timeutil.ISODate(day.AddDate(0, 0, 1))},
		"activityId": {strconv.Itoa(activityID)},
	}
	if projectID != 0 {
		params.Set("projectId", strconv.Itoa(projectID))
	}

	data, status, err := c.transport.Get(ctx, "timesheet/entry", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("looking up conflicting entry returned status %d: %s", status, data)
	}
	var search entrySearch
	if err := json.Unmarshal(data, &search); err != nil {
		return nil, fmt.Errorf("decoding conflicting entry lookup: %w", err)
	}
	if search.FullResultSize < 1 {
		return nil, ErrConflictNotFound
	}

	id := search.Values[0].ID
	data, status, err = c.transport.PutJSON(ctx, "timesheet/entry/"+strconv.Itoa(id), nil, map[string]any{
		"hours":   hours,
		"comment": description,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("updating timesheet entry %d returned status %d: %s", id, status, data)
	}

	var env entryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding timesheet entry update: %w", err)
	}
	return &env.Value, nil
}

// LockDay implements api.Service. Locking isn't a thing in TripleTex, but
// it's in the contract so callers can treat all providers uniformly.
func (c *Client) LockDay(ctx context.Context, day time.Time) error {
	return nil
}

func (c *Client) configuredActivity() (*ConfiguredActivity, error) {
	raw := c.cfg[ConfiguredActivityKey]
	if raw == "" {
		return nil, fmt.Errorf("no default activity configured")
	}
	var ca ConfiguredActivity
	if err := json.Unmarshal([]byte(raw), &ca); err != nil {
		return nil, fmt.Errorf("parsing configured activity: %w", err)
	}
	if ca.Activity.ID == 0 {
		return nil, fmt.Errorf("configured activity has no id")
	}
	return &ca, nil
}

// FindActivities looks up activities whose name matches name.
func (c *Client) FindActivities(ctx context.Context, name string) (*ActivitySearch, error) {
	if err := c.login(ctx); err != nil {
		return nil, err
	}
	data, status, err := c.transport.Get(ctx, "activity", url.Values{"name": {name}})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("activity search returned status %d: %s", status, data)
	}
	var search ActivitySearch
	if err := json.Unmarshal(data, &search); err != nil {
		return nil, fmt.Errorf("decoding activity search: %w", err)
	}
	return &search, nil
}

// RecentActivities fetches the employee's recently used activities, both
// general ones and ones grouped by recent project.
func (c *Client) RecentActivities(ctx context.Context) (*RecentActivities, error) {
	if err := c.login(ctx); err != nil {
		return nil, err
	}

	data, status, err := c.transport.Get(ctx, "/timesheet/entry/>recentProjects", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("recent projects returned status %d: %s", status, data)
	}
	var projects projectList
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("decoding recent projects: %w", err)
	}

	data, status, err = c.transport.Get(ctx, "/timesheet/entry/>recentActivities", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("recent activities returned status %d: %s", status, data)
	}
	var general activityList
	if err := json.Unmarshal(data, &general); err != nil {
		return nil, fmt.Errorf("decoding recent activities: %w", err)
	}

	result := &RecentActivities{General: general.Values}
	for _, project := range projects.Values {
		data, status, err := c.transport.Get(ctx, "/timesheet/entry/>recentActivities",
			url.Values{"projectId": {strconv.Itoa(project.ID)}})
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("recent activities for project %d returned status %d: %s", project.ID, status, data)
		}
		var acts activityList
		if err := json.Unmarshal(data, &acts); err != nil {
			return nil, fmt.Errorf("decoding recent activities for project %d: %w", project.ID, err)
		}
		result.Project = append(result.Project, ProjectActivities{
			Project:    project,
			Activities: acts.Values,
		})
	}
	return result, nil
}

// TimesheetWeek fetches the employee's timesheet entries for an ISO week of
// the current year.
func (c *Client) TimesheetWeek(ctx context.Context, week int) ([]TimesheetEntry, error) {
	emp, err := c.Employee(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"weekYear":    {fmt.Sprintf("%d-%d", time.Now().Year(), week)},
		"employeeIds": {strconv.Itoa(emp.EmployeeID)},
		"fields":      {"timesheetEntries(project(*),activity(*),*)"},
	}
	data, status, err := c.transport.Get(ctx, "/timesheet/week", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("timesheet week returned status %d: %s", status, data)
	}
	var weeks weekList
	if err := json.Unmarshal(data, &weeks); err != nil {
		return nil, fmt.Errorf("decoding timesheet week: %w", err)
	}
	if len(weeks.Values) == 0 {
		return nil, nil
	}
	return weeks.Values[0].TimesheetEntries, nil
}
