package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/multierr"

	"gigdesk/internal/agents"
	"gigdesk/internal/domain"
	"gigdesk/internal/events"
)

// RunResult is what one orchestration pass hands back to the caller.
type RunResult struct {
	Logs        []string `json:"logs"`
	ActionCount int      `json:"actionCount"`
	// DomainErrors joins every per-domain failure; the run itself still succeeded.
	DomainErrors error `json:"-"`
}

// FailedDomains lists the domains that ended in an error, in run order.
func (r RunResult) FailedDomains() []string {
	var out []string
	for _, err := range multierr.Errors(r.DomainErrors) {
		var de *DomainError
		if errors.As(err, &de) {
			out = append(out, de.Domain)
		}
	}
	return out
}

type scanFunc func(ctx context.Context, s *scan) error

// scan carries one domain's state through a run.
type scan struct {
	e      Engine
	domain string
	userID string
	now    time.Time
	logs   []string
	count  int
	// writeErrs collects ledger write failures; the domain keeps going.
	writeErrs error
}

func (s *scan) logf(format string, args ...any) {
	s.logs = append(s.logs, fmt.Sprintf(format, args...))
}

func (s *scan) fail(err error) {
	s.logf("%s Error: %s", s.domain, err.Error())
}

type outcome int

const (
	emitted outcome = iota
	alreadyPending
	writeFailed
)

// emit writes one action to the ledger. A write failure is logged and kept
// against the domain so the remaining candidates still run.
func (s *scan) emit(ctx context.Context, a agents.Action) outcome {
	meta := a.Payload()
	meta["uniqueKey"] = agents.Key(a, s.now)
	ok, err := s.e.Ledger().CreateIfAbsent(ctx, s.userID, a.Domain, a.Kind, a.Message(), meta)
	if err != nil {
		s.fail(err)
		s.writeErrs = multierr.Append(s.writeErrs, fmt.Errorf("write %s: %w", a.Kind, err))
		return writeFailed
	}
	if !ok {
		return alreadyPending
	}
	s.count++
	return emitted
}

func (s *scan) report(ctx context.Context, message string) error {
	return s.e.Ledger().Report(ctx, s.userID, s.domain, message)
}

// RunAllAgents scans every domain for userID. Only a missing user id fails the
// call; per-domain failures end up in the log and in RunResult.DomainErrors.
func (e Engine) RunAllAgents(ctx context.Context, userID string) (RunResult, error) {
	if strings.TrimSpace(userID) == "" {
		return RunResult{}, errors.New("user id is required")
	}
	now := e.now()
	order := []struct {
		domain string
		fn     scanFunc
	}{
		{domain.DomainHunter, e.scanHunter},
		{domain.DomainCollections, e.scanCollections},
		{domain.DomainCFO, e.scanCFO},
		{domain.DomainProductivity, e.scanProductivity},
		{domain.DomainTax, e.scanTax},
	}
	slots := make([]*scan, len(order))
	errs := make([]error, len(order))
	runOne := func(i int) {
		s := &scan{e: e, domain: order[i].domain, userID: userID, now: now}
		slots[i] = s
		var pc panics.Catcher
		pc.Try(func() { errs[i] = order[i].fn(ctx, s) })
		if r := pc.Recovered(); r != nil {
			errs[i] = fmt.Errorf("panic: %v", r.Value)
		}
		if errs[i] != nil {
			s.fail(errs[i])
		}
		errs[i] = multierr.Append(errs[i], s.writeErrs)
	}
	if e.Config.Agents.Concurrent {
		var wg conc.WaitGroup
		for i := range order {
			wg.Go(func() { runOne(i) })
		}
		wg.Wait()
	} else {
		for i := range order {
			runOne(i)
		}
	}

	var res RunResult
	for i, s := range slots {
		res.Logs = append(res.Logs, s.logs...)
		res.ActionCount += s.count
		if errs[i] != nil {
			e.log().Warn("agent domain failed", "domain", s.domain, "user_id", userID, "error", errs[i])
			res.DomainErrors = multierr.Append(res.DomainErrors, &DomainError{Domain: s.domain, Err: errs[i]})
		}
	}
	failed := res.FailedDomains()
	if err := e.events().Append(ctx, nil, events.TypeAgentsRun, userID, events.EntityUser, userID, events.EventPayload{
		"actions":        res.ActionCount,
		"failed_domains": failed,
	}); err != nil {
		e.log().Warn("record agents run", "user_id", userID, "error", err)
	}
	e.log().Info("agents run", "user_id", userID, "actions", res.ActionCount, "failed_domains", failed)
	return res, nil
}

// Hunter only counts matches; bids become notifications when the user confirms one.
func (e Engine) scanHunter(ctx context.Context, s *scan) error {
	s.logf("Hunter: Scanning for job matches...")
	user, err := e.sets().User(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	cfg := e.Config.Agents.Hunter
	var since time.Time
	if cfg.MaxJobAgeDays > 0 {
		since = s.now.AddDate(0, 0, -cfg.MaxJobAgeDays)
	}
	jobs, err := e.sets().OpenJobs(ctx, s.userID, since)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	matches := agents.Hunter{Config: cfg}.Matches(user, jobs, s.now)
	s.logf("Hunter: Found %d new matches.", len(matches))
	if len(matches) == 0 {
		return s.report(ctx, "Scanned latest jobs. No new high-match opportunities found.")
	}
	return s.report(ctx, fmt.Sprintf("Scanned latest jobs. Found %d high-match opportunities.", len(matches)))
}

func (e Engine) scanCollections(ctx context.Context, s *scan) error {
	s.logf("Collections: Checking overdue invoices...")
	invoices, err := e.sets().OverdueInvoices(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}
	unit := agents.Collections{Config: e.Config.Agents.Collections, Reminders: e.sets()}
	var produced int
	for _, inv := range invoices {
		if !unit.ShouldAct(inv, s.now) {
			continue
		}
		a, err := unit.Evaluate(ctx, inv, s.now)
		if err != nil {
			return err
		}
		if a == nil {
			continue
		}
		produced++
		switch s.emit(ctx, *a) {
		case emitted:
			s.logf("Collections: Action generated for %s", inv.ID)
		case alreadyPending:
			s.logf("Collections: Reminder for %s already pending", inv.ID)
		}
	}
	if produced == 0 {
		return s.report(ctx, fmt.Sprintf("Monitored %d overdue invoices. No immediate escalation needed.", len(invoices)))
	}
	return nil
}

func (e Engine) scanCFO(ctx context.Context, s *scan) error {
	s.logf("CFO: Analyzing recent transactions...")
	txn, err := e.sets().LatestTransaction(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	unit := agents.CFO{Config: e.Config.Agents.CFO, Currency: e.Config.Currency, Balances: e.sets()}
	if txn != nil && unit.ShouldAct(*txn) {
		a, err := unit.Evaluate(ctx, *txn)
		if err != nil {
			return err
		}
		if a != nil {
			switch s.emit(ctx, *a) {
			case emitted:
				s.logf("CFO: Smart split suggested for %s", txn.ID)
			case alreadyPending:
				s.logf("CFO: Smart split for %s already pending", txn.ID)
			}
			return nil
		}
	}
	return s.report(ctx, "Financial health check complete. Cash flow within normal parameters.")
}

func (e Engine) scanProductivity(ctx context.Context, s *scan) error {
	s.logf("Productivity: Evaluating schedule...")
	tasks, err := e.sets().Tasks(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	evts, err := e.sets().CalendarEvents(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}
	unit := agents.Productivity{Config: e.Config.Agents.Productivity}
	schedule := unit.Snapshot(s.userID, tasks, evts)
	var actions []agents.Action
	if unit.ShouldEvaluateSchedule(agents.TriggerCalendarUpdated, schedule) {
		actions = unit.EvaluateSchedule(schedule, s.now)
	}
	if len(actions) == 0 {
		return s.report(ctx, "Schedule optimized. No conflicts or overload detected.")
	}
	var generated int
	for _, a := range actions {
		if s.emit(ctx, a) == emitted {
			generated++
		}
	}
	s.logf("Productivity: Generated %d schedule suggestions.", generated)
	return nil
}

func (e Engine) scanTax(ctx context.Context, s *scan) error {
	s.logf("Tax: Reviewing expenses...")
	txn, err := e.sets().LatestTransaction(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	unit, err := agents.NewTax(e.Config.Agents.Tax)
	if err != nil {
		return err
	}
	if txn != nil && unit.ShouldAct(*txn) {
		if a := unit.Evaluate(*txn); a != nil {
			switch s.emit(ctx, *a) {
			case emitted:
				s.logf("Tax: Categorization suggestion for %s", txn.Narration)
			case alreadyPending:
				s.logf("Tax: Categorization for %s already pending", txn.Narration)
			}
			return nil
		}
	}
	return s.report(ctx, "Expense categorization up to date.")
}
