package description

import (
	"strings"
	"unicode"
)

const onlyModifier = "only"

// FilterOnly keeps shortcuts marked [only=a,b] when websiteID is listed,
// dropping the modifier, and removes them otherwise. A removal takes one
// adjacent whitespace character with it, the preceding one when present.
func FilterOnly(text, websiteID string) (string, error) {
	shortcuts, err := Tokenize(text)
	if err != nil {
		return "", err
	}
	websiteID = strings.ToLower(websiteID)

	var reps []Replacement
	prevEnd := 0
	for _, sc := range shortcuts {
		list, ok := sc.Modifier(onlyModifier)
		if !ok {
			prevEnd = sc.End
			continue
		}
		if listed(list, websiteID) {
			kept := sc
			kept.Modifiers = nil
			for _, m := range sc.Modifiers {
				if m.Key != onlyModifier {
					kept.Modifiers = append(kept.Modifiers, m)
				}
			}
			reps = append(reps, Replacement{Start: sc.Start, End: sc.End, Text: kept.String()})
			prevEnd = sc.End
			continue
		}

		start, end := sc.Start, sc.End
		if start > prevEnd && isSpace(text[start-1]) {
			start--
		} else if end < len(text) && isSpace(text[end]) {
			end++
		}
		reps = append(reps, Replacement{Start: start, End: end})
		prevEnd = end
	}
	return Rewrite(text, reps), nil
}

func listed(list, websiteID string) bool {
	for _, id := range strings.Split(list, ",") {
		if strings.ToLower(strings.TrimSpace(id)) == websiteID {
			return true
		}
	}
	return false
}

func isSpace(c byte) bool {
	return c < 0x80 && unicode.IsSpace(rune(c))
}
