package models

import "time"

type FileBuffer struct {
	Buffer      []byte `json:"-"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
	URL         string `json:"url,omitempty"`
}

// PostData is the per-destination view assembled fresh for every post. It is
// never persisted.
type PostData struct {
	Submission     *Submission     `json:"-"`
	Part           *SubmissionPart `json:"-"`
	Title          string          `json:"title"`
	Rating         string          `json:"rating"`
	Tags           []string        `json:"tags"`
	Description    string          `json:"description"`
	ContentWarning string          `json:"content_warning,omitempty"`
	Sources        []string        `json:"sources"`
	Primary        *FileBuffer     `json:"primary,omitempty"`
	Thumbnail      *FileBuffer     `json:"thumbnail,omitempty"`
	Fallback       *FileBuffer     `json:"fallback,omitempty"`
	Additional     []*FileBuffer   `json:"additional,omitempty"`

	// DescriptionFromDefault is set when the default part's text was used.
	DescriptionFromDefault bool `json:"description_from_default"`
}

type PostResponse struct {
	Website        string    `json:"website"`
	AccountID      string    `json:"account_id"`
	Source         string    `json:"source,omitempty"`
	Message        string    `json:"message,omitempty"`
	Error          string    `json:"error,omitempty"`
	Stack          string    `json:"stack,omitempty"`
	AdditionalInfo any       `json:"additional_info,omitempty"`
	Time           time.Time `json:"time"`
}

type ValidationResult struct {
	Problems []string `json:"problems"`
	Warnings []string `json:"warnings"`
}

func (v *ValidationResult) Merge(o ValidationResult) {
	v.Problems = append(v.Problems, o.Problems...)
	v.Warnings = append(v.Warnings, o.Warnings...)
}
