package director

import "regexp"

var fencedBlock = regexp.MustCompile("(?s)```[\\w+-]*[ \\t]*\\r?\\n(.*?)\\r?\\n```")

// ExtractCode returns the body of the first fenced code block, or "" if there
// is none.
func ExtractCode(markdown string) string {
	m := fencedBlock.FindStringSubmatch(markdown)
	if m == nil {
		return ""
	}
	return m[1]
}
