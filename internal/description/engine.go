// Package description renders a submission's description for one
// destination: built-in and user shortcuts, [only=...] filtering, username
// links and the destination's own formatting hooks.
package description

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/website"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	rendererhtml "github.com/yuin/goldmark/renderer/html"
)

const Advertisement = `<p>Posted using <a href="https://github.com/maheshrc27/postflow">PostFlow</a></p>`

// Input carries the resolved part values a description is built from.
type Input struct {
	Website        website.Website
	Default        models.DescriptionData
	Description    models.DescriptionData
	Title          string
	Tags           []string
	ContentWarning string
	Advertise      bool
}

type Options struct {
	Shortcuts  ShortcutSource
	Converters ConverterSource
	Registry   *website.Registry
}

type Engine struct {
	shortcuts  ShortcutSource
	converters ConverterSource
	registry   *website.Registry
	md         goldmark.Markdown
}

func NewEngine(opts Options) *Engine {
	return &Engine{
		shortcuts:  opts.Shortcuts,
		converters: opts.Converters,
		registry:   opts.Registry,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(rendererhtml.WithUnsafe(), rendererhtml.WithHardWraps()),
		),
	}
}

// Combine picks the text a destination starts from. fromDefault reports
// whether the default part's text was used.
func Combine(defaults, own models.DescriptionData) (text string, fromDefault bool) {
	if own.OverwriteDefault && strings.TrimSpace(own.Value) != "" {
		return own.Value, false
	}
	return defaults.Value, true
}

// Description runs the full pipeline for in.Website.
func (e *Engine) Description(ctx context.Context, in Input) (string, error) {
	text, _ := Combine(in.Default, in.Description)
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	w := in.Website
	info := w.Info()

	text = e.builtins(text, in)

	text, err := FilterOnly(text, info.ID)
	if err != nil {
		return "", err
	}

	text, err = e.expandCustom(ctx, text, in)
	if err != nil {
		return "", err
	}

	if !info.SkipHTMLStandardization {
		if text, err = e.standardize(text); err != nil {
			return "", err
		}
	}

	text = w.PreparseDescription(text)

	if text, err = e.expandUsernames(text); err != nil {
		return "", err
	}

	text = w.ParseDescription(text)

	if in.Advertise && info.EnableAdvertisement {
		text = strings.TrimRight(text, " \n") + "\n\n" + w.ParseDescription(Advertisement)
	}

	return strings.TrimSpace(w.PostParseDescription(text)), nil
}

func (e *Engine) builtins(text string, in Input) string {
	return strings.NewReplacer(
		"{default}", in.Default.Value,
		"{title}", in.Title,
		"{tags}", in.Website.GenerateTagsString(in.Tags, text),
		"{cw}", in.ContentWarning,
	).Replace(text)
}

// expandCustom replaces user shortcuts. Built-ins that only surfaced after
// [only=...] filtering are resolved here too.
func (e *Engine) expandCustom(ctx context.Context, text string, in Input) (string, error) {
	byName := map[string]*models.CustomShortcut{}
	if e.shortcuts != nil {
		list, err := e.shortcuts.ListShortcuts(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load custom shortcuts: %w", err)
		}
		for _, s := range list {
			byName[s.Shortcut] = s
		}
	}

	return Expand(text, func(sc Shortcut) (string, bool) {
		if len(sc.Modifiers) > 0 {
			return "", false
		}
		if s, ok := byName[sc.Key]; ok {
			if s.IsDynamic {
				return strings.ReplaceAll(s.Content, "{$}", sc.Arg), true
			}
			return s.Content, true
		}
		if sc.HasArg {
			return "", false
		}
		switch sc.Key {
		case "default":
			return in.Default.Value, true
		case "title":
			return in.Title, true
		case "tags":
			return in.Website.GenerateTagsString(in.Tags, text), true
		case "cw":
			return in.ContentWarning, true
		}
		return "", false
	})
}

// standardize renders Markdown to HTML. Raw HTML passes through.
func (e *Engine) standardize(text string) (string, error) {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render description: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (e *Engine) expandUsernames(text string) (string, error) {
	if e.registry == nil {
		return text, nil
	}
	byKey := map[string]website.UsernameShortcut{}
	for _, s := range e.registry.UsernameShortcuts() {
		byKey[s.Key] = s
	}
	if len(byKey) == 0 {
		return text, nil
	}
	return Expand(text, func(sc Shortcut) (string, bool) {
		s, ok := byKey[sc.Key]
		if !ok || !sc.HasArg || sc.Arg == "" || len(sc.Modifiers) > 0 {
			return "", false
		}
		return website.Link(strings.ReplaceAll(s.URL, "$1", sc.Arg), sc.Arg), true
	})
}
