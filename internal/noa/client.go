// Package noa logs hours to Noa Workbook. The API exposes a weekly timesheet
// of pre-created day slots; writing hours means finding the slot for the day
// and updating it, never creating entries from scratch.
package noa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/brbcoffee/ttcli/internal/api"
	"github.com/brbcoffee/ttcli/internal/config"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

// Config keys stored for this service.
const (
	UsernameKey = "NOA_USERNAME"
	PasswordKey = "NOA_PASSWORD"
)

// ServiceName is the stable identifier for this provider.
const ServiceName = "Noa Workbook"

var requiredKeys = []string{UsernameKey, PasswordKey}

const defaultBaseURL = "https://noa.workbook.net/api"

// ErrNoSlot is returned when a week has no writable slot for the requested
// day. Workbook pre-creates the slots; without one there is nothing to update.
var ErrNoSlot = fmt.Errorf("no timesheet slot exists for that day")

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

// Client is a Noa Workbook API client. The handshake runs lazily on the first
// authenticated call; the session rides on cookies after that. Week fetches
// are cached per ISO week for the instance's lifetime.
type Client struct {
	transport api.Transport
	cfg       map[string]string

	session *session
	weeks   map[string][]TimesheetEntry
}

// New constructs a client from the stored service config.
func New(cfg map[string]string, _ *config.Store) (*Client, error) {
	if missing := api.MissingKeys(cfg, requiredKeys); len(missing) > 0 {
		return nil, &api.ConfigError{
			Message:    "Noa Workbook is not configured, run: ttcli configure noa",
			MissingKey: missing[0],
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &Client{
		transport: api.Transport{
			HTTP:    &http.Client{Jar: jar},
			BaseURL: defaultBaseURL,
			Header:  http.Header{},
		},
		cfg:   cfg,
		weeks: make(map[string][]TimesheetEntry),
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

// login performs the handshake once per instance. The session is carried by
// cookies, so all we keep is the response itself.
func (c *Client) login(ctx context.Context) (*session, error) {
	if c.session != nil {
		return c.session, nil
	}

	data, status, err := c.transport.PostJSON(ctx, "/auth/handshake", nil, map[string]any{
		"UserName":   c.cfg[UsernameKey],
		"Password":   c.cfg[PasswordKey],
		"RememberMe": false,
	})
	if err != nil {
		return nil, err
	}
	var s session
	if status != http.StatusOK || json.Unmarshal(data, &s) != nil || s.ID == 0 {
		return nil, fmt.Errorf("noa workbook login rejected, check your username and password")
	}
	c.session = &s
	return c.session, nil
}

// ResourceID returns the logged-in resource id, logging in if needed.
func (c *Client) ResourceID(ctx context.Context) (int, error) {
	s, err := c.login(ctx)
	if err != nil {
		return 0, err
	}
	return s.ID, nil
}

// UserName returns the logged-in user's display name.
func (c *Client) UserName(ctx context.Context) (string, error) {
	s, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	return s.Name, nil
}

// WeekDays fetches the timesheet slots of an ISO week, dropping filler rows
// without a task. Results are cached per week.
func (c *Client) WeekDays(ctx context.Context, year, week int) ([]TimesheetEntry, error) {
	cacheKey := fmt.Sprintf("%d-W%02d", year, week)
	if cached, ok := c.weeks[cacheKey]; ok {
		return cached, nil
	}

	resourceID, err := c.ResourceID(ctx)
	if err != nil {
		return nil, err
	}
	start, _ := timeutil.WeekSpan(year, week)

	data, status, err := c.transport.Get(ctx, "/json/reply/TimeEntryDailyRequest", url.Values{
		"ResourceId": {fmt.Sprint(resourceID)},
		"Date":       {timeutil.ISODate(start)},
		"Week":       {"True"},
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetching week %s returned status %d: %s", cacheKey, status, data)
	}

	var all []TimesheetEntry
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decoding week %s: %w", cacheKey, err)
	}
	days := make([]TimesheetEntry, 0, len(all))
	for _, entry := range all {
		if entry.TaskID != nil {
			days = append(days, entry)
		}
	}
	c.weeks[cacheKey] = days
	return days, nil
}

// LoggedDuringWeek returns the week's slots that already carry hours.
func (c *Client) LoggedDuringWeek(ctx context.Context, year, week int) ([]TimesheetEntry, error) {
	days, err := c.WeekDays(ctx, year, week)
	if err != nil {
		return nil, err
	}
	var logged []TimesheetEntry
	for _, entry := range days {
		if entry.Hours != nil {
			logged = append(logged, entry)
		}
	}
	return logged, nil
}

// OpenDays returns the week's slots with no hours logged yet.
func (c *Client) OpenDays(ctx context.Context, year, week int) ([]TimesheetEntry, error) {
	days, err := c.WeekDays(ctx, year, week)
	if err != nil {
		return nil, err
	}
	var open []TimesheetEntry
	for _, entry := range days {
		if entry.Hours == nil {
			open = append(open, entry)
		}
	}
	return open, nil
}

// DayVisualization describes which task a day's hours land on.
func (c *Client) DayVisualization(ctx context.Context, day time.Time) (*DayVisualization, error) {
	resourceID, err := c.ResourceID(ctx)
	if err != nil {
		return nil, err
	}

	data, status, err := c.transport.Get(ctx, "/json/reply/TimeEntrySheetVisualizationRequest", url.Values{
		"ResourceId": {fmt.Sprint(resourceID)},
		"Date":       {timeutil.ISODate(day)},
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetching day visualization returned status %d: %s", status, data)
	}
	var visualizations []DayVisualization
	if err := json.Unmarshal(data, &visualizations); err != nil {
		return nil, fmt.Errorf("decoding day visualization: %w", err)
	}
	if len(visualizations) == 0 {
		return nil, fmt.Errorf("no day visualization for %s", timeutil.ISODate(day))
	}
	return &visualizations[0], nil
}

// WriteHours implements api.Service by updating the day's pre-created slot.
func (c *Client) WriteHours(ctx context.Context, hours float64, description string, day time.Time) error {
	_, err := c.WriteEntry(ctx, hours, description, day)
	return err
}

// WriteEntry updates the slot matching day and returns the updated entry.
func (c *Client) WriteEntry(ctx context.Context, hours float64, description string, day time.Time) (*TimesheetEntry, error) {
	year, week := day.ISOWeek()
	days, err := c.WeekDays(ctx, year, week)
	if err != nil {
		return nil, err
	}

	var slot *TimesheetEntry
	for i := range days {
		if timeutil.SameDay(days[i].PostDate.Time, day) {
			slot = &days[i]
			break
		}
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSlot, timeutil.ISODate(day))
	}

	data, status, err := c.transport.PostJSON(ctx, "/json/reply/TimeEntryUpdateRequest", nil, updateRequest{
		ID:          slot.ID,
		ActivityID:  slot.ActivityID,
		Billable:    true,
		Hours:       hours,
		TaskID:      *slot.TaskID,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("updating time entry returned status %d: %s", status, data)
	}
	var updated TimesheetEntry
	if err := json.Unmarshal(data, &updated); err != nil {
		return nil, fmt.Errorf("decoding updated entry: %w", err)
	}
	return &updated, nil
}

// LockDay implements api.Service. Workbook has no day-locking concept.
func (c *Client) LockDay(ctx context.Context, day time.Time) error {
	return nil
}
