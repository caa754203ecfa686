package codec

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/othala/internal/models"
)

// TaskMarker is the literal comment that tags a document as task-typed.
const TaskMarker = "<!-- type:task -->"

var (
	metaCommentRe = regexp.MustCompile(`^\s*<!--\s*meta:(.*\S)\s*-->\s*$`)
	// taskKeyRe detects task-only metadata keys anywhere in the body.
	// Older documents omit the type marker, so detection must scan every
	// item line, not just the header.
	taskKeyRe = regexp.MustCompile(`\|\s*(status|time|estimated|target):`)
)

// ParseResult holds the output of parsing a checklist document.
type ParseResult struct {
	Checklist *models.Checklist
	// Warnings counts malformed lines that were repaired or skipped
	// rather than aborting the parse.
	Warnings int
}

// Parse decodes a whole document. A single bad line never fails the parse;
// it is skipped or degraded to defaults and counted in Warnings.
func Parse(data []byte, id, category string) *ParseResult {
	lines := strings.Split(string(data), "\n")

	c := &models.Checklist{
		ID:       id,
		Category: category,
		Type:     models.TypeSimple,
		Title:    "Untitled",
	}
	warnings := 0

	if len(lines) > 0 {
		if t := strings.TrimSpace(strings.TrimLeft(lines[0], "# ")); t != "" {
			c.Title = t
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == TaskMarker || taskKeyRe.MatchString(line) {
			c.Type = models.TypeTask
			break
		}
	}

	// Collect item lines, attaching a structured-comment sidecar to the
	// item line that immediately follows it.
	var raw []rawLine
	pendingMeta := ""
	for _, line := range lines[1:] {
		if m := metaCommentRe.FindStringSubmatch(line); m != nil {
			pendingMeta = m[1]
			continue
		}
		if checkboxRe.MatchString(line) {
			raw = append(raw, rawLine{text: line, meta: pendingMeta, level: indentLevel(line)})
			pendingMeta = ""
			continue
		}
		pendingMeta = ""
	}

	items, _ := buildTree(raw, 0, 0, &warnings)
	c.Items = items

	if c.Type == models.TypeTask {
		normalizeTaskItems(c.Items)
	}

	return &ParseResult{Checklist: c, Warnings: warnings}
}

// normalizeTaskItems enforces the task-type invariant: once a status
// exists, completed is derived from it and never stored independently.
// Items without a status get one inferred from the checkbox.
func normalizeTaskItems(items []models.Item) {
	for i := range items {
		if items[i].Status == "" {
			if items[i].Completed {
				items[i].Status = models.StatusCompleted
			} else {
				items[i].Status = models.StatusTodo
			}
		} else {
			items[i].Completed = items[i].Status == models.StatusCompleted
		}
		normalizeTaskItems(items[i].Children)
	}
}

// Serialize renders a checklist back to document text. Items are stably
// sorted by order at each level; equal order values indicate a caller bug
// but fall back to slice order instead of crashing. An empty checklist
// serializes to the header only.
func Serialize(c *models.Checklist) []byte {
	var b strings.Builder
	b.WriteString("# " + c.Title + "\n")
	if c.Type == models.TypeTask {
		b.WriteString(TaskMarker + "\n")
	}
	writeItems(&b, c.Items, c.Type, 0)
	return []byte(b.String())
}

func writeItems(b *strings.Builder, items []models.Item, typ models.ChecklistType, depth int) {
	sorted := make([]models.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	for i := range sorted {
		b.WriteString(EncodeLine(&sorted[i], typ, depth))
		b.WriteString("\n")
		writeItems(b, sorted[i].Children, typ, depth+1)
	}
}
