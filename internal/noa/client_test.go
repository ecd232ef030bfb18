package noa_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brbcoffee/ttcli/internal/api"
	"github.com/brbcoffee/ttcli/internal/noa"
)

// fakeWorkbook serves the handshake and the weekly timesheet. The week it
// hands out has a filler row without a task, a logged Monday and an open
// Tuesday, all dated relative to the requested week start.
type fakeWorkbook struct {
	*httptest.Server

	handshakeCalls int
	weekCalls      int
	updateCalls    int
	lastUpdateBody []byte
	rejectLogin    bool
}

func newFakeWorkbook(t *testing.T) *fakeWorkbook {
	t.Helper()
	f := &fakeWorkbook{}
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/handshake", func(w http.ResponseWriter, r *http.Request) {
		f.handshakeCalls++
		var creds map[string]any
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decoding handshake body: %v", err)
		}
		if creds["RememberMe"] != false {
			t.Errorf("RememberMe = %v, want false", creds["RememberMe"])
		}
		if f.rejectLogin {
			fmt.Fprint(w, `{"Message": "Invalid credentials"}`)
			return
		}
		fmt.Fprint(w, `{"Id": 99, "Name": "Alice Larsen"}`)
	})

	mux.HandleFunc("/json/reply/TimeEntryDailyRequest", func(w http.ResponseWriter, r *http.Request) {
		f.weekCalls++
		if got := r.URL.Query().Get("ResourceId"); got != "99" {
			t.Errorf("ResourceId = %q, want 99", got)
		}
		start, err := time.Parse("2006-01-02", r.URL.Query().Get("Date"))
		if err != nil {
			t.Errorf("Date = %q, want a week start date", r.URL.Query().Get("Date"))
		}
		monday := start.Format("2006-01-02")
		tuesday := start.AddDate(0, 0, 1).Format("2006-01-02")
		fmt.Fprintf(w, `[
			{"Id": 1, "ActivityId": 10, "PostDate": "%[1]sT00:00:00"},
			{"Id": 2, "ActivityId": 10, "TaskId": 500, "PostDate": "%[1]sT00:00:00",
			 "RegistrationDate": "%[1]sT00:00:00", "Hours": 7.5, "Description": "done"},
			{"Id": 3, "ActivityId": 11, "TaskId": 501, "PostDate": "%[2]sT00:00:00",
			 "RegistrationDate": "%[2]sT00:00:00"}
		]`, monday, tuesday)
	})

	mux.HandleFunc("/json/reply/TimeEntryUpdateRequest", func(w http.ResponseWriter, r *http.Request) {
		f.updateCalls++
		f.lastUpdateBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"Id": 3, "ActivityId": 11, "TaskId": 501,
			"PostDate": "2026-08-25T00:00:00", "RegistrationDate": "2026-08-25T00:00:00",
			"Hours": 7.5, "Description": "dev"}`)
	})

	mux.HandleFunc("/json/reply/TimeEntrySheetVisualizationRequest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"ActivityId": 10, "CustomerName": "Acme", "JobName": "Retainer",
			"TaskId": 500, "TaskDescription": "Development"}]`)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeWorkbook) *noa.Client {
	t.Helper()
	client, err := noa.New(map[string]string{
		noa.UsernameKey: "alice",
		noa.PasswordKey: "hunter2",
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	client.SetBaseURL(f.URL)
	return client
}

func TestNewMissingKeys(t *testing.T) {
	_, err := noa.New(map[string]string{noa.UsernameKey: "alice"}, nil)
	var cfgErr *api.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("New error = %v, want *api.ConfigError", err)
	}
	if cfgErr.MissingKey != noa.PasswordKey {
		t.Errorf("MissingKey = %q, want %q", cfgErr.MissingKey, noa.PasswordKey)
	}
}

func TestHandshakeRunsOncePerInstance(t *testing.T) {
	f := newFakeWorkbook(t)
	client := newTestClient(t, f)

	if _, err := client.WeekDays(context.Background(), 2026, 35); err != nil {
		t.Fatalf("WeekDays: %v", err)
	}
	if _, err := client.WeekDays(context.Background(), 2026, 36); err != nil {
		t.Fatalf("WeekDays: %v", err)
	}
	if f.handshakeCalls != 1 {
		t.Errorf("handshake calls = %d, want 1", f.handshakeCalls)
	}
}

func TestRejectedHandshakeFails(t *testing.T) {
	f := newFakeWorkbook(t)
	f.rejectLogin = true
	client := newTestClient(t, f)

	_, err := client.ResourceID(context.Background())
	if err == nil {
		t.Fatal("expected an error for rejected credentials")
	}
}

func TestWeekDaysFiltersAndCaches(t *testing.T) {
	f := newFakeWorkbook(t)
	client := newTestClient(t, f)

	days, err := client.WeekDays(context.Background(), 2026, 35)
	if err != nil {
		t.Fatalf("WeekDays: %v", err)
	}
	// The filler row without a TaskId must be dropped.
	if len(days) != 2 {
		t.Fatalf("len(days) = %d, want 2", len(days))
	}
	for _, day := range days {
		if day.TaskID == nil {
			t.Errorf("entry %d has no TaskId, should have been filtered", day.ID)
		}
	}

	if _, err := client.WeekDays(context.Background(), 2026, 35); err != nil {
		t.Fatalf("WeekDays: %v", err)
	}
	if f.weekCalls != 1 {
		t.Errorf("week fetches = %d, want 1 (same week must be served from cache)", f.weekCalls)
	}
}

func TestLoggedAndOpenPartition(t *testing.T) {
	f := newFakeWorkbook(t)
	client := newTestClient(t, f)

	logged, err := client.LoggedDuringWeek(context.Background(), 2026, 35)
	if err != nil {
		t.Fatalf("LoggedDuringWeek: %v", err)
	}
	if len(logged) != 1 || logged[0].ID != 2 {
		t.Errorf("logged = %v, want the one entry with hours", logged)
	}

	open, err := client.OpenDays(context.Background(), 2026, 35)
	if err != nil {
		t.Fatalf("OpenDays: %v", err)
	}
	if len(open) != 1 || open[0].ID != 3 {
		t.Errorf("open = %v, want the one entry without hours", open)
	}
}

func TestWriteEntryUpdatesMatchingSlot(t *testing.T) {
	f := newFakeWorkbook(t)
	client := newTestClient(t, f)

	// Tuesday of ISO week 35, 2026: the open slot in the fake week.
	day := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	entry, err := client.WriteEntry(context.Background(), 7.5, "dev", day)
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if entry.ID != 3 || entry.Hours == nil || *entry.Hours != 7.5 {
		t.Errorf("updated entry = %+v", entry)
	}

	var body map[string]any
	if err := json.Unmarshal(f.lastUpdateBody, &body); err != nil {
		t.Fatalf("unmarshalling update body: %v", err)
	}
	if body["Id"] != float64(3) {
		t.Errorf("Id = %v, want 3 (the slot for that day)", body["Id"])
	}
	// The server wants "Activityid", not "ActivityId".
	if body["Activityid"] != float64(11) {
		t.Errorf("Activityid = %v, want 11", body["Activityid"])
	}
	if body["TaskId"] != float64(501) {
		t.Errorf("TaskId = %v, want 501", body["TaskId"])
	}
	if body["Billable"] != true {
		t.Errorf("Billable = %v, want true", body["Billable"])
	}
	if body["Description"] != "dev" {
		t.Errorf("Description = %v, want dev", body["Description"])
	}
}

func TestWriteEntryWithoutSlotFails(t *testing.T) {
	f := newFakeWorkbook(t)
	client := newTestClient(t, f)

	// Sunday has no slot in the fake week; nothing must be created.
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	_, err := client.WriteEntry(context.Background(), 7.5, "dev", day)
	if !errors.Is(err, noa.ErrNoSlot) {
		t.Errorf("WriteEntry error = %v, want ErrNoSlot", err)
	}
	if f.updateCalls != 0 {
		t.Errorf("update calls = %d, want 0", f.updateCalls)
	}
}

func TestDayVisualization(t *testing.T) {
	f := newFakeWorkbook(t)
	client := newTestClient(t, f)

	vis, err := client.DayVisualization(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DayVisualization: %v", err)
	}
	if vis.CustomerName != "Acme" || vis.JobName != "Retainer" || vis.TaskDescription != "Development" {
		t.Errorf("visualization = %+v", vis)
	}
}

func TestLockDayIsNoOp(t *testing.T) {
	f := newFakeWorkbook(t)
	client := newTestClient(t, f)
	if err := client.LockDay(context.Background(), time.Now()); err != nil {
		t.Errorf("LockDay: %v", err)
	}
}
