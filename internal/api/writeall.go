package api

import (
	"context"
	"errors"
	"time"

	"github.com/brbcoffee/ttcli/internal/output"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

// WriteToAll writes the given hours to every service in order, optionally
// locking the day afterwards. A failure on one service never prevents
// attempts on the others, and nothing already written is rolled back; each
// failure is reported with the service's name. Returns the number of
// services that failed.
func WriteToAll(ctx context.Context, services []Service, hours float64, description string, day time.Time, lock bool, p *output.Printer) int {
	failed := 0
	for _, svc := range services {
		p.Printf("%s", p.Styles().Warning.Render("Writing to "+svc.Name()))
		if err := svc.WriteHours(ctx, hours, description, day); err != nil {
			p.Printf("\n")
			reportFailure(p, svc.Name(), err)
			failed++
			continue
		}
		p.Printf(" %s\n", p.Styles().Success.Render("Done"))

		if !lock {
			continue
		}
		p.Printf("%s", p.Styles().Warning.Render("Locking "+timeutil.ISODate(day)+" in "+svc.Name()))
		if err := svc.LockDay(ctx, day); err != nil {
			p.Printf("\n")
			reportFailure(p, svc.Name(), err)
			failed++
			continue
		}
		p.Printf(" %s\n", p.Styles().Success.Render("Done"))
	}
	return failed
}

func reportFailure(p *output.Printer, name string, err error) {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		p.Warnf("Warning: %s: %s", name, cfgErr.Message)
		return
	}
	p.Errorf("Error: %s: %v", name, err)
}
