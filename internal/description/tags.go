package description

import (
	"context"
	"fmt"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
)

// MergeTags combines default and destination tags. Destination tags replace
// the defaults when OverwriteDefault is set. Duplicates keep their first
// position.
func MergeTags(defaults, own models.TagData) []string {
	var all []string
	if !own.OverwriteDefault {
		all = append(all, defaults.Value...)
	}
	all = append(all, own.Value...)
	return dedupe(all)
}

// ConvertTags applies the converters scoped to websiteID. A tag converted to
// blank is dropped; tags without a converter pass through.
func ConvertTags(tags []string, converters []*models.TagConverter, websiteID string) []string {
	byTag := make(map[string]*models.TagConverter, len(converters))
	for _, c := range converters {
		byTag[strings.ToLower(strings.TrimSpace(c.Tag))] = c
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		c, ok := byTag[strings.ToLower(t)]
		if !ok {
			out = append(out, t)
			continue
		}
		conv, ok := c.Conversions[websiteID]
		if !ok {
			out = append(out, t)
			continue
		}
		if conv = strings.TrimSpace(conv); conv != "" {
			out = append(out, conv)
		}
	}
	return dedupe(out)
}

// Tags resolves the final tag list of one destination.
func (e *Engine) Tags(ctx context.Context, websiteID string, defaults, own models.TagData) ([]string, error) {
	tags := MergeTags(defaults, own)
	if e.converters == nil {
		return tags, nil
	}
	converters, err := e.converters.ListTagConverters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag converters: %w", err)
	}
	return ConvertTags(tags, converters, websiteID), nil
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
