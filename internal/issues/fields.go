package issues

import (
	"strings"
)

// ValidationError rejects user input before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// Fields is the editable content of an issue.
type Fields struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// Normalize trims the title and canonicalizes both lists, then requires a
// non-empty title.
func (f Fields) Normalize() (Fields, error) {
	out := Fields{
		Title:     strings.TrimSpace(f.Title),
		Body:      f.Body,
		Labels:    NormalizeList(f.Labels...),
		Assignees: NormalizeList(f.Assignees...),
	}
	if out.Title == "" {
		return Fields{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	return out, nil
}

// NormalizeList splits each value on commas and newlines and returns the
// trimmed, non-empty entries in first-seen order without duplicates.
func NormalizeList(values ...string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, v := range values {
		for _, part := range strings.FieldsFunc(v, isListSeparator) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

func isListSeparator(r rune) bool {
	return r == ',' || r == '\n' || r == '\r'
}
