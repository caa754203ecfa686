// Package models defines the domain types for Othala.
package models

import "time"

// ChecklistType distinguishes plain checkbox lists from status/time-tracked
// task lists.
type ChecklistType string

const (
	TypeSimple ChecklistType = "simple"
	TypeTask   ChecklistType = "task"
)

// Status is the lifecycle state of a task-typed item.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusPaused     Status = "PAUSED"
)

// Action is the fixed vocabulary used to tag history commits.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionRename Action = "rename"
	ActionMove   Action = "move"
	ActionDelete Action = "delete"
)

// Checklist is a single document: an ordered, optionally nested list of items.
type Checklist struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Type      ChecklistType `json:"type"`
	Category  string        `json:"category"`
	Items     []Item        `json:"items"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
	UpdatedAt time.Time     `json:"updated_at,omitempty"`
	Owner     string        `json:"owner,omitempty"`
	IsShared  bool          `json:"is_shared,omitempty"`
}

// Item is one line/node in a checklist. Children are exclusively owned by
// their parent; there are no back-references, ancestry is positional and
// recovered from indentation during parse.
type Item struct {
	ID          string          `json:"id,omitempty"`
	Text        string          `json:"text"`
	Completed   bool            `json:"completed"`
	Order       int             `json:"order"`
	Children    []Item          `json:"children,omitempty"`
	Status      Status          `json:"status,omitempty"`
	TimeEntries []TimeEntry     `json:"time_entries,omitempty"`
	Estimated   int             `json:"estimated,omitempty"` // minutes
	TargetDate  string          `json:"target_date,omitempty"`
	Description string          `json:"description,omitempty"`
	Recurrence  *RecurrenceRule `json:"recurrence,omitempty"`

	// Extra holds free-form metadata fields (createdBy, timestamps, ...)
	// carried in the metadata JSON blob. Preserved verbatim on
	// re-serialization so documents written by newer versions survive.
	Extra map[string]any `json:"extra,omitempty"`

	// Unknown holds raw pipe-delimited segments with unrecognized keys,
	// in original order. Pass-through for forward compatibility.
	Unknown []string `json:"unknown,omitempty"`
}

// TimeEntry records one tracked work interval. Entries are append-only:
// appended when a timer stops or manual time is logged, never mutated.
type TimeEntry struct {
	ID        string    `json:"id,omitempty"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  int64     `json:"duration"` // seconds
}

// RecurrenceRule describes a repeating task via an RFC 5545 RRULE.
type RecurrenceRule struct {
	RRule         string    `json:"rrule"`
	DTStart       time.Time `json:"dtstart,omitempty"`
	NextDue       time.Time `json:"next_due,omitempty"`
	LastCompleted time.Time `json:"last_completed,omitempty"`
}

// HistoryEntry is a read projection of one commit, derived on demand from
// the version-control log. Never persisted independently.
type HistoryEntry struct {
	CommitHash string    `json:"commit_hash"`
	Date       time.Time `json:"date"`
	Action     Action    `json:"action"`
	Title      string    `json:"title"`
}

// HistoryVersion is the materialized content of a document at one commit.
type HistoryVersion struct {
	CommitHash string    `json:"commit_hash"`
	Date       time.Time `json:"date"`
	Content    string    `json:"content"`
	Title      string    `json:"title"`
}

// CountItems returns the total number of items and the number completed,
// walking nested children.
func (c *Checklist) CountItems() (total, done int) {
	var walk func(items []Item)
	walk = func(items []Item) {
		for i := range items {
			total++
			if items[i].Completed {
				done++
			}
			walk(items[i].Children)
		}
	}
	walk(c.Items)
	return total, done
}
