package website

import "regexp"

var parentPlaceholder = regexp.MustCompile(`\{parent:([^}]+)\}`)

// ReplaceParentPlaceholders substitutes every {parent:key} that resolve knows.
// Unknown keys are left as written.
func ReplaceParentPlaceholders(text string, resolve Resolver) (string, bool) {
	changed := false
	out := parentPlaceholder.ReplaceAllStringFunc(text, func(m string) string {
		key := parentPlaceholder.FindStringSubmatch(m)[1]
		if ref, ok := resolve(key); ok {
			changed = true
			return ref
		}
		return m
	})
	return out, changed
}
