package codec

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// StripFrontmatter removes a leading YAML frontmatter block (between ---
// delimiters) and returns the remaining body. Documents migrated from
// other tools sometimes carry frontmatter; the checklist grammar does not
// use it, so history reads and parses operate on the body only. Invalid
// YAML means the block is not frontmatter at all and the content is
// returned unchanged.
func StripFrontmatter(data []byte) []byte {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return data
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return data
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return data
	}

	body := rest[idx+1+len(delim):]
	return bytes.TrimLeft(body, "\n\r")
}
