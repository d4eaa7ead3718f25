package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type SubmissionType string

const (
	SubmissionTypeFile         SubmissionType = "FILE"
	SubmissionTypeNotification SubmissionType = "NOTIFICATION"
)

func (t SubmissionType) Valid() bool {
	return t == SubmissionTypeFile || t == SubmissionTypeNotification
}

type Schedule struct {
	IsScheduled bool       `json:"is_scheduled"`
	PostAt      *time.Time `json:"post_at,omitempty"`
}

type FileRecord struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

type SubmissionFiles struct {
	Primary    *FileRecord  `json:"primary,omitempty"`
	Thumbnail  *FileRecord  `json:"thumbnail,omitempty"`
	Fallback   *FileRecord  `json:"fallback,omitempty"`
	Additional []FileRecord `json:"additional,omitempty"`
}

// Records returns every referenced file, primary first.
func (f *SubmissionFiles) Records() []*FileRecord {
	if f == nil {
		return nil
	}
	var out []*FileRecord
	for _, r := range []*FileRecord{f.Primary, f.Thumbnail, f.Fallback} {
		if r != nil {
			out = append(out, r)
		}
	}
	for i := range f.Additional {
		out = append(out, &f.Additional[i])
	}
	return out
}

func (f SubmissionFiles) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *SubmissionFiles) Scan(src any) error {
	return scanJSON(src, f)
}

type Submission struct {
	ID        string           `db:"id" json:"id"`
	Type      SubmissionType   `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Order     int              `db:"sort_order" json:"order"`
	Schedule  Schedule         `json:"schedule"`
	Sources   []string         `db:"sources" json:"sources"`
	Files     *SubmissionFiles `db:"files" json:"files,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so a posting cycle is isolated from edits to the
// live record.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	if s.Schedule.PostAt != nil {
		t := *s.Schedule.PostAt
		c.Schedule.PostAt = &t
	}
	c.Sources = append([]string(nil), s.Sources...)
	if s.Files != nil {
		files := SubmissionFiles{Additional: append([]FileRecord(nil), s.Files.Additional...)}
		if s.Files.Primary != nil {
			r := *s.Files.Primary
			files.Primary = &r
		}
		if s.Files.Thumbnail != nil {
			r := *s.Files.Thumbnail
			files.Thumbnail = &r
		}
		if s.Files.Fallback != nil {
			r := *s.Files.Fallback
			files.Fallback = &r
		}
		c.Files = &files
	}
	return &c
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported json column type")
	}
}
