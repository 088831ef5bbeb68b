package agents

import (
	"fmt"
	"slices"
	"time"

	"gigdesk/internal/config"
	"gigdesk/internal/domain"
)

// Schedule triggers.
const (
	TriggerCalendarUpdated = "calendar_updated"
	TriggerTaskUpdated     = "task_updated"
	TriggerDailyReview     = "daily_review"
)

type Capacity struct {
	BillableDaysPerYear int
	BillableHoursPerDay float64
}

// WeeklyHours spreads the yearly billable hours over 52 weeks.
func (c Capacity) WeeklyHours() float64 {
	return float64(c.BillableDaysPerYear) * c.BillableHoursPerDay / 52
}

// Schedule is the snapshot Productivity evaluates.
type Schedule struct {
	UserID   string
	Tasks    []domain.Task
	Events   []domain.CalendarEvent
	Capacity Capacity
}

type Productivity struct {
	Config config.Productivity
}

// Snapshot builds a schedule with the configured capacity constants.
func (p Productivity) Snapshot(userID string, tasks []domain.Task, events []domain.CalendarEvent) Schedule {
	tasks = slices.Clone(tasks)
	for i := range tasks {
		if tasks[i].EstHours <= 0 {
			tasks[i].EstHours = p.Config.DefaultEstHours
		}
	}
	return Schedule{
		UserID: userID,
		Tasks:  tasks,
		Events: events,
		Capacity: Capacity{
			BillableDaysPerYear: p.Config.BillableDaysPerYear,
			BillableHoursPerDay: p.Config.BillableHoursPerDay,
		},
	}
}

func (p Productivity) ShouldEvaluateSchedule(trigger string, s Schedule) bool {
	switch trigger {
	case TriggerCalendarUpdated, TriggerTaskUpdated, TriggerDailyReview:
	default:
		return false
	}
	return len(s.Tasks) > 0 || len(s.Events) > 0
}

// EvaluateSchedule may return several actions, in a fixed order: block new
// jobs, deep work block, reprioritize.
func (p Productivity) EvaluateSchedule(s Schedule, now time.Time) []Action {
	var actions []Action
	open := openTasks(s.Tasks)

	if a := p.overload(s, open, now); a != nil {
		actions = append(actions, *a)
	}
	if a := p.deepWork(s, open, now); a != nil {
		actions = append(actions, *a)
	}
	if a := p.reprioritize(open, now); a != nil {
		actions = append(actions, *a)
	}
	return actions
}

func (p Productivity) overload(s Schedule, open []domain.Task, now time.Time) *Action {
	days := p.Config.LookaheadDays
	windowEnd := now.AddDate(0, 0, days)
	var committed float64
	for _, t := range open {
		if t.DueDate == nil || t.DueDate.Before(windowEnd) {
			committed += t.EstHours
		}
	}
	for _, e := range s.Events {
		start, end := e.Start, e.End
		if start.Before(now) {
			start = now
		}
		if end.After(windowEnd) {
			end = windowEnd
		}
		if end.After(start) {
			committed += end.Sub(start).Hours()
		}
	}
	capacity := s.Capacity.WeeklyHours() * float64(days) / 7
	if committed <= capacity {
		return nil
	}
	return &Action{
		Domain:   domain.DomainProductivity,
		Kind:     domain.KindScheduleAlert,
		Priority: PriorityHigh,
		BlockNewJobs: &BlockNewJobs{
			CommittedHours: committed,
			CapacityHours:  capacity,
			Until:          windowEnd,
			Reason: fmt.Sprintf("Overbooked: %.1fh committed over the next %d days against %.1fh capacity. Pause new bids until %s.",
				committed, days, capacity, windowEnd.Format(time.DateOnly)),
		},
	}
}

func (p Productivity) deepWork(s Schedule, open []domain.Task, now time.Time) *Action {
	if len(open) == 0 {
		return nil
	}
	horizon := now.Add(48 * time.Hour)
	for _, e := range s.Events {
		if e.Kind == "focus" && e.Start.Before(horizon) && e.End.After(now) {
			return nil
		}
	}
	start := nextWeekdayMorning(now)
	hours := p.Config.DeepWorkHours
	return &Action{
		Domain:   domain.DomainProductivity,
		Kind:     domain.KindScheduleAlert,
		Priority: PriorityMedium,
		DeepWorkBlock: &DeepWorkBlock{
			Title: open[0].Title,
			Start: start,
			End:   start.Add(time.Duration(hours * float64(time.Hour))),
			Hours: hours,
		},
	}
}

func (p Productivity) reprioritize(open []domain.Task, now time.Time) *Action {
	far := now.AddDate(0, 0, p.Config.FarDueDays)
	var (
		suggestions []PrioritySuggestion
		up, down    int
	)
	for _, t := range open {
		if t.DueDate == nil {
			continue
		}
		switch {
		case t.DueDate.Before(now) && t.Priority != PriorityHigh:
			suggestions = append(suggestions, PrioritySuggestion{TaskID: t.ID, Title: t.Title, CurrentPriority: t.Priority, SuggestedPriority: PriorityHigh})
			up++
		case t.DueDate.After(far) && t.Priority != PriorityLow:
			suggestions = append(suggestions, PrioritySuggestion{TaskID: t.ID, Title: t.Title, CurrentPriority: t.Priority, SuggestedPriority: PriorityLow})
			down++
		}
	}
	if len(suggestions) == 0 {
		return nil
	}
	return &Action{
		Domain:   domain.DomainProductivity,
		Kind:     domain.KindScheduleAlert,
		Priority: PriorityMedium,
		Reprioritize: &Reprioritize{
			Suggestions: suggestions,
			Message:     fmt.Sprintf("Reprioritize %d tasks: %d overdue to high, %d distant to low.", len(suggestions), up, down),
		},
	}
}

// openTasks returns undone tasks, earliest due first; undated tasks last.
func openTasks(tasks []domain.Task) []domain.Task {
	var open []domain.Task
	for _, t := range tasks {
		if !t.Done {
			open = append(open, t)
		}
	}
	slices.SortStableFunc(open, func(a, b domain.Task) int {
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	})
	return open
}

func nextWeekdayMorning(now time.Time) time.Time {
	y, m, d := now.Date()
	t := time.Date(y, m, d+1, 9, 0, 0, 0, now.Location())
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
