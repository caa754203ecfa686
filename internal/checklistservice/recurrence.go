package checklistservice

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/starford/othala/internal/models"
)

// nextOccurrence evaluates the rule and returns the first occurrence
// strictly after the given time. A zero time means the rule is exhausted.
func nextOccurrence(rule *models.RecurrenceRule, after time.Time) (time.Time, error) {
	r, err := rrule.StrToRRule(rule.RRule)
	if err != nil {
		return time.Time{}, fmt.Errorf("checklistservice: parse rrule %q: %w", rule.RRule, err)
	}
	if !rule.DTStart.IsZero() {
		r.DTStart(rule.DTStart)
	}
	return r.After(after, false), nil
}

// advanceRecurrence walks the incoming checklist and, for every recurring
// item that just transitioned to COMPLETED, records the completion and
// advances its next-due date. prev supplies the before-states by item id;
// items new in this update count as transitions.
func advanceRecurrence(prev, next *models.Checklist, now time.Time) {
	before := make(map[string]models.Status)
	var collect func(items []models.Item)
	collect = func(items []models.Item) {
		for i := range items {
			if items[i].ID != "" {
				before[items[i].ID] = items[i].Status
			}
			collect(items[i].Children)
		}
	}
	if prev != nil {
		collect(prev.Items)
	}

	var walk func(items []models.Item)
	walk = func(items []models.Item) {
		for i := range items {
			it := &items[i]
			if it.Recurrence != nil && it.Status == models.StatusCompleted &&
				before[it.ID] != models.StatusCompleted {
				it.Recurrence.LastCompleted = now
				if due, err := nextOccurrence(it.Recurrence, now); err == nil && !due.IsZero() {
					it.Recurrence.NextDue = due
				}
			}
			walk(it.Children)
		}
	}
	walk(next.Items)
}
