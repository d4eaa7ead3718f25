package transfer

import (
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

// SubmissionCreation is the JSON "submission" field of a multipart create
// request. Website of each destination part is taken from its account.
type SubmissionCreation struct {
	Type    models.SubmissionType `json:"type"`
	Title   string                `json:"title"`
	Order   int                   `json:"order"`
	Sources []string              `json:"sources"`
	Parts   []PartCreation        `json:"parts"`
}

type PartCreation struct {
	AccountID string             `json:"account_id"`
	IsDefault bool               `json:"is_default"`
	Options   models.PartOptions `json:"options"`
}

type FileUpload struct {
	Name string
	Data []byte
}

type SubmissionUploads struct {
	Primary    *FileUpload
	Thumbnail  *FileUpload
	Fallback   *FileUpload
	Additional []FileUpload
}

type SubmissionDetail struct {
	Submission *models.Submission       `json:"submission"`
	Parts      []*models.SubmissionPart `json:"parts"`
}

type ScheduleRequest struct {
	PostAt time.Time `json:"post_at"`
}

// AccountCreation adds an account whose credentials are entered directly
// instead of through an oauth redirect.
type AccountCreation struct {
	Website string         `json:"website"`
	Alias   string         `json:"alias"`
	Data    map[string]any `json:"data"`
}
