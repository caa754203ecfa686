package codec

import "github.com/starford/othala/internal/models"

// rawLine is one filtered item line plus an optional metadata sidecar
// captured from a structured comment immediately preceding it.
type rawLine struct {
	text  string
	meta  string
	level int
}

// buildTree reconstructs a nested item tree from ordered raw lines using
// indentation depth. The entire algorithm is a single rule: a line at the
// parent level is consumed and recursed into, a shallower line returns to
// the caller, and a deeper line with no matching parent row is skipped.
// Sibling order is assigned during the same traversal, so ties are
// impossible by construction.
func buildTree(lines []rawLine, start, parentLevel int, warnings *int) ([]models.Item, int) {
	var items []models.Item
	i := start
	order := 0

	for i < len(lines) {
		level := lines[i].level

		if level < parentLevel {
			// Belongs to an ancestor level.
			return items, i
		}

		if level > parentLevel {
			// Orphaned deeper line with no parent row at this position
			// (malformed input). Skip it rather than crash.
			*warnings++
			i++
			continue
		}

		it, w := DecodeLine(lines[i].text)
		*warnings += w
		if lines[i].meta != "" {
			if !applyMetadata(&it, lines[i].meta) {
				*warnings++
			}
		}
		it.Order = order
		order++

		children, next := buildTree(lines, i+1, parentLevel+1, warnings)
		if len(children) > 0 {
			it.Children = children
		}
		items = append(items, it)
		i = next
	}

	return items, i
}
