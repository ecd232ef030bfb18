// Package report aggregates Noa Workbook timesheet weeks into a monthly
// report and renders it as markdown, CSV or a standalone HTML file.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/brbcoffee/ttcli/internal/noa"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

// Source is the slice of the Workbook client the report needs.
type Source interface {
	LoggedDuringWeek(ctx context.Context, year, week int) ([]noa.TimesheetEntry, error)
	UserName(ctx context.Context) (string, error)
}

// Entry is one logged day in the report.
type Entry struct {
	Date        time.Time
	Day         string
	Hours       float64
	Description string
}

// Week groups a month's entries by ISO week.
type Week struct {
	Number  int
	Entries []Entry
	Total   float64
}

// Month is a full monthly report.
type Month struct {
	Name     string
	Year     int
	UserName string
	Weeks    []Week
	Total    float64
}

// BuildMonth collects the logged entries of every ISO week touching the given
// month. Unless includeFuture is set, the current month is capped at today.
func BuildMonth(ctx context.Context, src Source, now time.Time, month time.Month, includeFuture bool) (*Month, error) {
	first, last := timeutil.MonthSpan(now, month, includeFuture)
	firstWeek := timeutil.WeekNumber(first)
	lastWeek := timeutil.WeekNumber(last)
	// A month starting mid-week can open in the last ISO week of the
	// previous year; fold that back to week 1.
	if firstWeek > lastWeek {
		firstWeek = 1
	}

	name, err := src.UserName(ctx)
	if err != nil {
		return nil, err
	}

	report := &Month{
		Name:     first.Month().String(),
		Year:     first.Year(),
		UserName: name,
	}
	for week := firstWeek; week <= lastWeek; week++ {
		logged, err := src.LoggedDuringWeek(ctx, first.Year(), week)
		if err != nil {
			return nil, err
		}

		var entries []Entry
		for _, slot := range logged {
			if slot.Description == nil {
				continue
			}
			day := slot.PostDate.Time
			if day.Month() != month || day.Before(first) || day.After(last) {
				continue
			}
			entries = append(entries, Entry{
				Date:        day,
				Day:         day.Weekday().String(),
				Hours:       *slot.Hours,
				Description: *slot.Description,
			})
		}
		if len(entries) == 0 {
			continue
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Date.Before(entries[j].Date)
		})

		total := 0.0
		for _, e := range entries {
			total += e.Hours
		}
		report.Weeks = append(report.Weeks, Week{Number: week, Entries: entries, Total: total})
		report.Total += total
	}
	return report, nil
}

// RenderMarkdown writes the report as plain text suitable for a terminal.
func RenderMarkdown(w io.Writer, m *Month) {
	fmt.Fprintf(w, "%s %d — %s\n", m.Name, m.Year, m.UserName)
	fmt.Fprintln(w, "--------------------------------")
	for _, week := range m.Weeks {
		for _, e := range week.Entries {
			fmt.Fprintf(w, "%-10s %s  %5.2fh  %s\n",
				e.Day, timeutil.ISODate(e.Date), e.Hours, e.Description)
		}
		fmt.Fprintf(w, "%-10s w%d %19.2fh\n", "Total", week.Number, week.Total)
		fmt.Fprintln(w, "--------------------------------")
	}
	fmt.Fprintf(w, "%-10s %22.2fh\n", "Total", m.Total)
}

// RenderCSV writes the report as date,hours,description rows.
func RenderCSV(w io.Writer, m *Month) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "hours", "description"}); err != nil {
		return err
	}
	for _, week := range m.Weeks {
		for _, e := range week.Entries {
			row := []string{
				timeutil.ISODate(e.Date),
				strconv.FormatFloat(e.Hours, 'f', -1, 64),
				e.Description,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Timesheet {{.Name}} {{.Year}}</title>
<style>
  body { font-family: sans-serif; margin: 2em; }
  table { border-collapse: collapse; margin-bottom: 1.5em; }
  th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; text-align: left; }
  tfoot td { font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Name}} {{.Year}} — {{.UserName}}</h1>
{{range .Weeks}}
<h2>Week {{.Number}}</h2>
<table>
  <thead><tr><th>Day</th><th>Hours</th><th>Description</th></tr></thead>
  <tbody>
  {{range .Entries}}
    <tr><td>{{.Day}}</td><td>{{.Hours}}</td><td>{{.Description}}</td></tr>
  {{end}}
  </tbody>
  <tfoot><tr><td>Total</td><td colspan="2">{{.Total}}</td></tr></tfoot>
</table>
{{end}}
<h2>Month total: {{.Total}}</h2>
</body>
</html>
`))

// WriteHTML renders the report as a standalone HTML file.
func WriteHTML(path string, m *Month) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := htmlTemplate.Execute(f, m); err != nil {
		f.Close()
		return fmt.Errorf("rendering report: %w", err)
	}
	return f.Close()
}
