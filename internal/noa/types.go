package noa

import (
	"fmt"
	"strings"
	"time"
)

// Time parses the zone-less timestamps the Workbook API emits.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format("2006-01-02T15:04:05") + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999",
		"2006-01-02T15:04:05",
		time.RFC3339,
	} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse workbook time %q", s)
}

// session is the /auth/handshake response.
type session struct {
	ID   int    `json:"Id"`
	Name string `json:"Name"`
}

// TimesheetEntry is one day slot of the weekly timesheet. Hours and
// Description are nil on days nothing has been logged to yet; TaskId is
// absent on filler rows that cannot take hours at all.
type TimesheetEntry struct {
	ID               int      `json:"Id"`
	ActivityID       int      `json:"ActivityId"`
	TaskID           *int     `json:"TaskId,omitempty"`
	JobID            int      `json:"JobId"`
	ResourceID       int      `json:"ResourceId"`
	Billable         bool     `json:"Billable"`
	PostDate         Time     `json:"PostDate"`
	RegistrationDate Time     `json:"RegistrationDate"`
	Hours            *float64 `json:"Hours,omitempty"`
	Description      *string  `json:"Description,omitempty"`
	TaskPhaseName    string   `json:"TaskPhaseName,omitempty"`
}

// DayVisualization describes the task a day's hours land on.
type DayVisualization struct {
	ActivityID      int     `json:"ActivityId"`
	ActivityText    string  `json:"ActivityText"`
	CustomerID      int     `json:"CustomerId"`
	CustomerName    string  `json:"CustomerName"`
	JobID           int     `json:"JobId"`
	JobName         string  `json:"JobName"`
	ProjectID       int     `json:"ProjectId"`
	ProjectName     string  `json:"ProjectName"`
	TaskID          int     `json:"TaskId"`
	TaskDescription string  `json:"TaskDescription"`
	TaskHours       float64 `json:"TaskHours"`
}

// updateRequest is the exact payload of TimeEntryUpdateRequest. The server
// wants "Activityid" with a lowercase i, unlike every other field.
type updateRequest struct {
	ID          int     `json:"Id"`
	ActivityID  int     `json:"Activityid"`
	Billable    bool    `json:"Billable"`
	Hours       float64 `json:"Hours"`
	TaskID      int     `json:"TaskId"`
	Description string  `json:"Description"`
}
