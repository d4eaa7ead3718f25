package description

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedShortcut = errors.New("malformed shortcut")

// Shortcut is one {...} occurrence. Start and End are byte offsets into the
// tokenized text, End exclusive.
type Shortcut struct {
	Start     int
	End       int
	Original  string
	Modifiers []Modifier
	Key       string
	Arg       string
	HasArg    bool
}

type Modifier struct {
	Key   string
	Value string
}

func (s Shortcut) Modifier(key string) (string, bool) {
	for _, m := range s.Modifiers {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// String renders the shortcut back to its source form.
func (s Shortcut) String() string {
	var b strings.Builder
	b.WriteByte('{')
	if len(s.Modifiers) > 0 {
		b.WriteByte('[')
		for i, m := range s.Modifiers {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(m.Key + "=" + m.Value)
		}
		b.WriteByte(']')
	}
	b.WriteString(s.Key)
	if s.HasArg {
		b.WriteString(":" + s.Arg)
	}
	b.WriteByte('}')
	return b.String()
}

// Tokenize lists every shortcut in text in order. A brace that does not open a
// well formed shortcut is left as literal text, except a modifier block which
// must close and hold key=value entries.
func Tokenize(text string) ([]Shortcut, error) {
	var out []Shortcut
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		sc, ok, err := parseAt(text, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, sc)
		i = sc.End - 1
	}
	return out, nil
}

func parseAt(text string, start int) (Shortcut, bool, error) {
	sc := Shortcut{Start: start}
	pos := start + 1

	if pos < len(text) && text[pos] == '[' {
		end := strings.IndexAny(text[pos:], "]}")
		if end < 0 || text[pos+end] != ']' {
			return sc, false, fmt.Errorf("%w: unclosed modifier block at %d", ErrMalformedShortcut, start)
		}
		block := text[pos+1 : pos+end]
		for _, entry := range strings.Split(block, ";") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			k, v, found := strings.Cut(entry, "=")
			if !found || strings.TrimSpace(k) == "" {
				return sc, false, fmt.Errorf("%w: bad modifier %q at %d", ErrMalformedShortcut, entry, start)
			}
			sc.Modifiers = append(sc.Modifiers, Modifier{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
		}
		pos += end + 1
	}

	keyStart := pos
	for pos < len(text) && isKeyChar(text[pos]) {
		pos++
	}
	sc.Key = text[keyStart:pos]
	if sc.Key == "" || pos >= len(text) {
		return badKey(sc)
	}

	if text[pos] == ':' {
		argEnd := strings.IndexAny(text[pos+1:], "{}")
		if argEnd < 0 || text[pos+1+argEnd] != '}' {
			return badKey(sc)
		}
		sc.Arg = text[pos+1 : pos+1+argEnd]
		sc.HasArg = true
		pos += 1 + argEnd
	}
	if text[pos] != '}' {
		return badKey(sc)
	}
	sc.End = pos + 1
	sc.Original = text[sc.Start:sc.End]
	return sc, true, nil
}

// badKey rejects a shortcut body. Plain braces are literal text; after a
// modifier block they are an error.
func badKey(sc Shortcut) (Shortcut, bool, error) {
	if len(sc.Modifiers) > 0 {
		return sc, false, fmt.Errorf("%w: modifier block without shortcut at %d", ErrMalformedShortcut, sc.Start)
	}
	return sc, false, nil
}

func isKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '$'
}

// Replacement swaps text[Start:End] for Text.
type Replacement struct {
	Start int
	End   int
	Text  string
}

// Rewrite applies ordered, non-overlapping replacements in one pass.
func Rewrite(text string, reps []Replacement) string {
	if len(reps) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, r := range reps {
		b.WriteString(text[last:r.Start])
		b.WriteString(r.Text)
		last = r.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// Expand tokenizes text and replaces each shortcut for which fn returns true.
func Expand(text string, fn func(Shortcut) (string, bool)) (string, error) {
	shortcuts, err := Tokenize(text)
	if err != nil {
		return "", err
	}
	var reps []Replacement
	for _, sc := range shortcuts {
		if s, ok := fn(sc); ok {
			reps = append(reps, Replacement{Start: sc.Start, End: sc.End, Text: s})
		}
	}
	return Rewrite(text, reps), nil
}
