package posting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/website"
)

type ChildPartStore interface {
	PartStore
	ListChildSubmissionIDs(ctx context.Context, parentID string) ([]string, error)
}

// ChildPropagator fills {parent:key} placeholders in child submissions once
// their parent has posted.
type ChildPropagator struct {
	submissions SubmissionStore
	parts       ChildPartStore
	registry    *website.Registry
}

func NewChildPropagator(submissions SubmissionStore, parts ChildPartStore, registry *website.Registry) *ChildPropagator {
	return &ChildPropagator{submissions: submissions, parts: parts, registry: registry}
}

func (p *ChildPropagator) Update(ctx context.Context, parent *models.Submission, parts []*models.SubmissionPart) []string {
	ids, err := p.parts.ListChildSubmissionIDs(ctx, parent.ID)
	if err != nil {
		return []string{fmt.Sprintf("failed to load child submissions of %s: %v", parent.Title, err)}
	}
	if len(ids) == 0 {
		return nil
	}

	resolve := parentResolver(parts)
	var errs []string
	for _, id := range ids {
		errs = append(errs, p.updateChild(ctx, id, resolve)...)
	}
	if len(errs) > 0 {
		slog.Warn("child submissions not fully updated", "parent_id", parent.ID, "errors", len(errs))
	}
	return errs
}

func (p *ChildPropagator) updateChild(ctx context.Context, id string, resolve website.Resolver) []string {
	sub, err := p.submissions.GetByID(ctx, id)
	if err != nil {
		return []string{fmt.Sprintf("%s: %v", id, err)}
	}
	if sub == nil {
		return nil
	}
	parts, err := p.parts.ListBySubmission(ctx, id)
	if err != nil {
		return []string{fmt.Sprintf("%s: %v", sub.Title, err)}
	}

	var errs []string
	for _, part := range parts {
		if err := p.updatePart(ctx, part, resolve); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", sub.Title, err))
		}
	}
	return errs
}

func (p *ChildPropagator) updatePart(ctx context.Context, part *models.SubmissionPart, resolve website.Resolver) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while updating %s part: %v", part.Website, r)
		}
	}()

	desc, changed := website.ReplaceParentPlaceholders(part.Options.Description.Value, resolve)
	if changed {
		part.Options.Description.Value = desc
	}
	if !part.IsDefault {
		if site, ok := p.registry.Get(part.Website); ok && site.UpdateChildPart(part, resolve) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := p.parts.Update(ctx, part); err != nil {
		return fmt.Errorf("failed to update %s part: %w", part.Website, err)
	}
	return nil
}

// parentResolver maps a key to a posted reference, matching account ids
// before website ids. The maps are built on first use.
func parentResolver(parts []*models.SubmissionPart) website.Resolver {
	var (
		once      sync.Once
		byAccount map[string]string
		byWebsite map[string]string
	)
	build := func() {
		byAccount = map[string]string{}
		byWebsite = map[string]string{}
		for _, part := range parts {
			if part.IsDefault || part.PostStatus != models.PostStatusSuccess || part.PostedTo == "" {
				continue
			}
			byAccount[part.AccountID] = part.PostedTo
			site := strings.ToLower(part.Website)
			if _, ok := byWebsite[site]; !ok {
				byWebsite[site] = part.PostedTo
			}
		}
	}
	return func(key string) (string, bool) {
		once.Do(build)
		if v, ok := byAccount[key]; ok {
			return v, true
		}
		v, ok := byWebsite[strings.ToLower(key)]
		return v, ok
	}
}
