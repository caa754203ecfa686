// Package codec serializes checklist trees to the line-oriented markdown
// dialect and parses them back with exact round-trip fidelity.
package codec

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/othala/internal/models"
)

// pipeGlyph replaces literal '|' characters inside free-text fields so they
// cannot collide with the field delimiter.
const pipeGlyph = "∣" // ∣

const fieldSep = " | "

var (
	// checkboxRe matches the leading checkbox of an item line.
	checkboxRe = regexp.MustCompile(`^\s*-\s*\[( |x|X)?\]`)
	// checkboxTokenRe matches any checkbox token anywhere in the line.
	// Hand-edited files occasionally contain duplicated or garbled tokens;
	// all of them are stripped rather than rejecting the line.
	checkboxTokenRe = regexp.MustCompile(`-\s*\[(?: |x|X)?\]\s*`)
)

func escape(s string) string {
	return strings.ReplaceAll(s, "|", pipeGlyph)
}

func unescape(s string) string {
	return strings.ReplaceAll(s, pipeGlyph, "|")
}

// EncodeLine renders a single item (without its children) as one text line.
// Indentation is two spaces per depth level. Task-only fields are emitted
// only for task-typed checklists.
func EncodeLine(it *models.Item, typ models.ChecklistType, depth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	if it.Completed {
		b.WriteString("- [x] ")
	} else {
		b.WriteString("- [ ] ")
	}
	b.WriteString(escape(it.Text))

	if typ == models.TypeTask {
		if it.Status != "" && it.Status != models.StatusTodo {
			b.WriteString(fieldSep + "status:" + string(it.Status))
		}
		if len(it.TimeEntries) == 0 {
			b.WriteString(fieldSep + "time:0")
		} else {
			entries, err := json.Marshal(it.TimeEntries)
			if err == nil {
				b.WriteString(fieldSep + "time:" + string(entries))
			} else {
				b.WriteString(fieldSep + "time:0")
			}
		}
		if it.Estimated > 0 {
			b.WriteString(fieldSep + "estimated:" + strconv.Itoa(it.Estimated))
		}
		if it.TargetDate != "" {
			b.WriteString(fieldSep + "target:" + it.TargetDate)
		}
	}

	if r := it.Recurrence; r != nil {
		b.WriteString(fieldSep + "rrule:" + r.RRule)
		if !r.DTStart.IsZero() {
			b.WriteString(fieldSep + "dtstart:" + r.DTStart.Format(time.RFC3339))
		}
		if !r.NextDue.IsZero() {
			b.WriteString(fieldSep + "nextDue:" + r.NextDue.Format(time.RFC3339))
		}
		if !r.LastCompleted.IsZero() {
			b.WriteString(fieldSep + "lastCompleted:" + r.LastCompleted.Format(time.RFC3339))
		}
	}

	if it.Description != "" {
		b.WriteString(fieldSep + "description:" + escape(it.Description))
	}

	if it.ID != "" || len(it.Extra) > 0 {
		meta := make(map[string]any, len(it.Extra)+1)
		for k, v := range it.Extra {
			meta[k] = v
		}
		if it.ID != "" {
			meta["id"] = it.ID
		}
		blob, err := json.Marshal(meta)
		if err == nil {
			b.WriteString(fieldSep + "metadata:" + string(blob))
		}
	}

	for _, raw := range it.Unknown {
		b.WriteString(fieldSep + raw)
	}

	return b.String()
}

// DecodeLine parses one item line into an item's scalar fields. Malformed
// metadata degrades to zero values; the returned count reports repaired
// oddities (duplicated checkbox tokens, unparseable JSON) so callers can
// surface a non-fatal warning instead of silently repairing.
func DecodeLine(line string) (models.Item, int) {
	var it models.Item
	warnings := 0

	if m := checkboxRe.FindStringSubmatch(line); m != nil {
		it.Completed = m[1] == "x" || m[1] == "X"
	}

	if tokens := checkboxTokenRe.FindAllString(line, -1); len(tokens) > 1 {
		warnings++
	}
	stripped := strings.TrimSpace(checkboxTokenRe.ReplaceAllString(line, ""))

	segs := strings.Split(stripped, fieldSep)
	it.Text = unescape(segs[0])

	for _, seg := range segs[1:] {
		idx := strings.Index(seg, ":")
		if idx < 0 {
			it.Unknown = append(it.Unknown, seg)
			continue
		}
		key, val := seg[:idx], seg[idx+1:]
		switch key {
		case "status":
			it.Status = models.Status(val)
		case "time":
			if val != "0" && val != "" {
				if err := json.Unmarshal([]byte(val), &it.TimeEntries); err != nil {
					it.TimeEntries = nil
					warnings++
				}
			}
		case "estimated":
			n, err := strconv.Atoi(val)
			if err != nil {
				warnings++
			} else {
				it.Estimated = n
			}
		case "target":
			it.TargetDate = val
		case "description":
			it.Description = unescape(val)
		case "metadata":
			if !applyMetadata(&it, val) {
				warnings++
			}
		case "rrule":
			recurrence(&it).RRule = val
		case "dtstart":
			recurrence(&it).DTStart = parseTime(val, &warnings)
		case "nextDue":
			recurrence(&it).NextDue = parseTime(val, &warnings)
		case "lastCompleted":
			recurrence(&it).LastCompleted = parseTime(val, &warnings)
		default:
			it.Unknown = append(it.Unknown, seg)
		}
	}

	return it, warnings
}

// applyMetadata merges a metadata JSON blob into the item: a string "id"
// becomes the item ID, everything else lands in the Extra bag. Returns
// false when the blob is not valid JSON.
func applyMetadata(it *models.Item, raw string) bool {
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return false
	}
	if id, ok := meta["id"].(string); ok {
		it.ID = id
		delete(meta, "id")
	}
	if len(meta) > 0 {
		if it.Extra == nil {
			it.Extra = make(map[string]any, len(meta))
		}
		for k, v := range meta {
			it.Extra[k] = v
		}
	}
	return true
}

func recurrence(it *models.Item) *models.RecurrenceRule {
	if it.Recurrence == nil {
		it.Recurrence = &models.RecurrenceRule{}
	}
	return it.Recurrence
}

func parseTime(val string, warnings *int) time.Time {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		return t
	}
	*warnings++
	return time.Time{}
}

// indentLevel computes the nesting depth of a line from its leading spaces.
func indentLevel(line string) int {
	spaces := 0
	for _, r := range line {
		if r != ' ' {
			break
		}
		spaces++
	}
	return spaces / 2
}
