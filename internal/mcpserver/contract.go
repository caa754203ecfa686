package mcpserver

// DocumentFormatContract describes the canonical checklist document format
// that LLM consumers should follow when hand-writing documents.
const DocumentFormatContract = `# Othala Checklist Document Format

Every checklist stored in Othala is a Markdown file following this structure.

## Structure

` + "```" + `markdown
# Human-readable title

<!-- type:task -->                  # only for task checklists

- [ ] open item
- [x] completed item
  - [ ] nested child (2 spaces per level)
- [ ] task item | status:IN_PROGRESS | estimated:30 | target:2026-09-01
` + "```" + `

## Rules

1. **Title** is the first line, as a Markdown H1. Files without one display
   as "Untitled".
2. **Items** are checkbox lines: ` + "`" + `- [ ]` + "`" + ` (open) or ` + "`" + `- [x]` + "`" + ` (done).
   Nesting uses exactly two spaces of indentation per level.
3. **Metadata** rides on the item line as ` + "`" + ` | key:value` + "`" + ` pairs after the
   text. Known keys: ` + "`" + `status` + "`" + ` (TODO, IN_PROGRESS, COMPLETED, PAUSED),
   ` + "`" + `time` + "`" + ` (JSON array of tracked intervals, or 0), ` + "`" + `estimated` + "`" + ` (minutes),
   ` + "`" + `target` + "`" + ` (ISO date), ` + "`" + `rrule` + "`" + `/` + "`" + `dtstart` + "`" + `/` + "`" + `nextDue` + "`" + `/` + "`" + `lastCompleted` + "`" + `
   (recurrence), ` + "`" + `description` + "`" + `, ` + "`" + `metadata` + "`" + ` (JSON blob with the item id).
   Unknown keys are preserved verbatim; do not invent new ones.
4. **Task checklists** carry the ` + "`" + `<!-- type:task -->` + "`" + ` marker comment, or are
   detected by the presence of task-only keys.
5. **Literal pipes** in item text must be written as ` + "`" + `∣` + "`" + ` (U+2223); a raw
   ` + "`" + `|` + "`" + ` starts a metadata field.
6. **Paths** are ` + "`" + `<owner>/<category>/<id>.md` + "`" + ` with forward slashes; names in
   ASCII, item text in any language.
7. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
# Kitchen renovation

<!-- type:task -->

- [x] measure the room | status:COMPLETED | estimated:60
- [ ] order cabinets | status:IN_PROGRESS | target:2026-09-15
  - [ ] compare quotes
  - [ ] confirm delivery window
- [ ] repaint walls
` + "```" + `
`
