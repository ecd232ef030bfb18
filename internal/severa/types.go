package severa

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Time handles the timestamp formats the Severa API emits, with and without
// a zone suffix.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.999",
		"2006-01-02T15:04:05",
	} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse severa time %q", s)
}

// User is the logged-in Severa user.
type User struct {
	GUID      string `json:"guid"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Token is the local access token obtained at the end of the login chain.
// It is cached on disk and reused while expiresUtc is comfortably in the
// future.
type Token struct {
	AccessToken string `json:"accessToken"`
	ExpiresUTC  Time   `json:"expiresUtc"`
	User        User   `json:"user"`
}

// Phase is a node in the user's phase tree: top-level nodes are projects,
// their children are the phases hours can be logged against. The workType,
// customer and project blobs are passed through to the work-hour payload
// untouched.
type Phase struct {
	GUID            string          `json:"guid"`
	Name            string          `json:"name"`
	DefaultWorkType json.RawMessage `json:"defaultWorkType,omitempty"`
	Customer        json.RawMessage `json:"customer,omitempty"`
	Project         json.RawMessage `json:"project,omitempty"`
}

// PhaseRef is the phase reference embedded in work-hour payloads.
type PhaseRef struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

type userRef struct {
	GUID string `json:"guid"`
}

// workHourRequest is the exact payload shape of POST /workhours.
type workHourRequest struct {
	GUID         *string         `json:"guid"`
	WorkType     json.RawMessage `json:"workType"`
	Phase        PhaseRef        `json:"phase"`
	Customer     json.RawMessage `json:"customer"`
	Project      json.RawMessage `json:"project"`
	User         userRef         `json:"user"`
	Overtime     *string         `json:"overtime"`
	Description  string          `json:"description"`
	Quantity     float64         `json:"quantity"`
	EventDate    string          `json:"eventDate"`
	StartTime    *string         `json:"startTime"`
	EndTime      *string         `json:"endTime"`
	IsModifiable bool            `json:"isModifiable"`
}

// WorkHour is a logged work-hour record.
type WorkHour struct {
	GUID        string   `json:"guid"`
	Quantity    float64  `json:"quantity"`
	Description string   `json:"description"`
	EventDate   string   `json:"eventDate"`
	Phase       PhaseRef `json:"phase,omitempty"`
}
