package tripletex

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date is a calendar date serialized as ISO-8601 (YYYY-MM-DD), the format
// the TripleTex API uses for all date fields.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

var schemeRe = regexp.MustCompile(`^https?://`)

// SessionToken is the response from the login service. It is persisted into
// the service config so later invocations can skip re-authenticating until
// expirationDate has passed.
type SessionToken struct {
	ID             int    `json:"id"`
	URL            string `json:"url"`
	Token          string `json:"token"`
	ExpirationDate Date   `json:"expirationDate"`
}

// APIURL returns the API base URL the token is valid for. TripleTex responds
// with urls that omit the scheme, which is required.
func (t *SessionToken) APIURL() string {
	u := strings.TrimRight(t.URL, "/")
	if schemeRe.MatchString(u) {
		return u
	}
	return "https://" + u
}

// Expired reports whether the token must not be used on the given day.
// A token expiring today is still valid.
func (t *SessionToken) Expired(now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.ExpirationDate.Before(today)
}

// Employee is the whoAmI identity the session token belongs to.
type Employee struct {
	EmployeeID int    `json:"employeeId"`
	EmployeeNo string `json:"employeeNumber,omitempty"`
}

// Activity identifies a billing activity.
type Activity struct {
	ID          int    `json:"id"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Project identifies a billing project.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// ConfiguredActivity is the default billing target chosen during configure,
// stored as JSON in the service config.
type ConfiguredActivity struct {
	Activity  Activity `json:"activity"`
	Project   *Project `json:"project,omitempty"`
	IsProject bool     `json:"isProject"`
}

// TimesheetEntry is one logged unit of work.
type TimesheetEntry struct {
	ID       int       `json:"id"`
	Date     Date      `json:"date"`
	Hours    float64   `json:"hours"`
	Comment  string    `json:"comment"`
	Activity *Activity `json:"activity,omitempty"`
	Project  *Project  `json:"project,omitempty"`
}

// RecentActivities groups recently used activities: general ones and ones
// scoped to a project.
type RecentActivities struct {
	General []Activity
	Project []ProjectActivities
}

// ProjectActivities pairs a project with its recently used activities.
type ProjectActivities struct {
	Project    Project
	Activities []Activity
}

// ActivitySearch is the result of a by-name activity lookup.
type ActivitySearch struct {
	Count  int        `json:"count"`
	Values []Activity `json:"values"`
}

type entryEnvelope struct {
	Value TimesheetEntry `json:"value"`
}

type employeeEnvelope struct {
	Value Employee `json:"value"`
}

type entrySearch struct {
	FullResultSize int              `json:"fullResultSize"`
	Values         []TimesheetEntry `json:"values"`
}

type activityList struct {
	Values []Activity `json:"values"`
}

type projectList struct {
	Values []Project `json:"values"`
}

type weekList struct {
	Values []struct {
		TimesheetEntries []TimesheetEntry `json:"timesheetEntries"`
	} `json:"values"`
}
