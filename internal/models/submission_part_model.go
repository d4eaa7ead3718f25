package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type PostStatus string

const (
	PostStatusUnposted  PostStatus = "UNPOSTED"
	PostStatusSuccess   PostStatus = "SUCCESS"
	PostStatusFailed    PostStatus = "FAILED"
	PostStatusCancelled PostStatus = "CANCELLED"
)

type DescriptionData struct {
	Value            string `json:"value"`
	OverwriteDefault bool   `json:"overwrite_default"`
}

type TagData struct {
	Value            []string `json:"value"`
	OverwriteDefault bool     `json:"overwrite_default"`
}

// PartOptions is the options payload stored per part. The default part holds
// the shared values; destination parts override them. Extra carries
// destination-specific fields.
type PartOptions struct {
	Title          string          `json:"title,omitempty"`
	Rating         string          `json:"rating,omitempty"`
	Tags           TagData         `json:"tags"`
	Description    DescriptionData `json:"description"`
	ContentWarning string          `json:"content_warning,omitempty"`
	ParentID       string          `json:"parent_id,omitempty"`
	Sources        []string        `json:"sources,omitempty"`
	Extra          map[string]any  `json:"extra,omitempty"`
}

func (o PartOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

func (o *PartOptions) Scan(src any) error {
	return scanJSON(src, o)
}

func (o PartOptions) Clone() PartOptions {
	c := o
	c.Tags.Value = append([]string(nil), o.Tags.Value...)
	c.Sources = append([]string(nil), o.Sources...)
	if o.Extra != nil {
		c.Extra = make(map[string]any, len(o.Extra))
		for k, v := range o.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// ExtraString reads a destination-specific string field.
func (o PartOptions) ExtraString(key string) string {
	if o.Extra == nil {
		return ""
	}
	s, _ := o.Extra[key].(string)
	return s
}

type SubmissionPart struct {
	ID           string      `db:"id" json:"id"`
	SubmissionID string      `db:"submission_id" json:"submission_id"`
	AccountID    string      `db:"account_id" json:"account_id"`
	Website      string      `db:"website" json:"website"`
	IsDefault    bool        `db:"is_default" json:"is_default"`
	PostStatus   PostStatus  `db:"post_status" json:"post_status"`
	PostedTo     string      `db:"posted_to" json:"posted_to,omitempty"`
	Options      PartOptions `db:"options" json:"options"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

func (p *SubmissionPart) Clone() *SubmissionPart {
	if p == nil {
		return nil
	}
	c := *p
	c.Options = p.Options.Clone()
	return &c
}

// DefaultPart returns the submission-wide default part, or nil.
func DefaultPart(parts []*SubmissionPart) *SubmissionPart {
	for _, p := range parts {
		if p.IsDefault {
			return p
		}
	}
	return nil
}
