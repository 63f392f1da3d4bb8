package resource

import "strings"

// SplitList parses comma-separated form input such as "checkout, pricing"
// into trimmed items. Empty items are dropped; input with no items yields
// nil.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinList is the inverse of SplitList for display in a form field.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

// String returns a pointer to s, or nil when s is empty after trimming.
// Optional form fields use it so that a blank input means absent.
func String(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
