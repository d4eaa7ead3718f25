package website

import (
	"context"
	"errors"
	"time"

	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
)

var (
	ErrUnsupported = errors.New("website does not support this submission type")
	ErrNoFile      = errors.New("submission has no primary file")
)

// UsernameShortcut turns {key:name} into a link to name's profile. URL holds a
// $1 placeholder for the name.
type UsernameShortcut struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Info describes a destination and the capabilities the posting pipeline
// consults. ID is the lowercase identifier used by {[only=...]} modifiers.
type Info struct {
	ID                      string
	Name                    string
	AcceptsSourceURLs       bool
	AcceptsAdditionalFiles  bool
	RefreshBeforePost       bool
	WaitBetweenPosts        time.Duration
	EnableAdvertisement     bool
	SkipHTMLStandardization bool
	AcceptedMimeTypes       []string
	UsernameShortcuts       []UsernameShortcut
}

func (i Info) Accepts(mimeType string) bool {
	if len(i.AcceptedMimeTypes) == 0 {
		return true
	}
	for _, m := range i.AcceptedMimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

type ScalingOptions struct {
	MaxSize   int64
	MaxWidth  int
	MaxHeight int
}

// Resolver maps a {parent:key} key to the parent's posted reference.
type Resolver func(key string) (string, bool)

type Website interface {
	Info() Info

	// CheckLogin verifies the account's credentials, refreshing them when the
	// destination supports it.
	CheckLogin(ctx context.Context, account *models.Account) (*models.LoginStatus, error)

	// PostFileSubmission and PostNotificationSubmission perform the remote
	// call. Implementations check token between their own network steps.
	PostFileSubmission(ctx context.Context, token *cancel.Token, data *models.PostData, account *models.Account) (*models.PostResponse, error)
	PostNotificationSubmission(ctx context.Context, token *cancel.Token, data *models.PostData, account *models.Account) (*models.PostResponse, error)

	ValidateFileSubmission(sub *models.Submission, part, defaultPart *models.SubmissionPart) models.ValidationResult
	ValidateNotificationSubmission(sub *models.Submission, part, defaultPart *models.SubmissionPart) models.ValidationResult

	GenerateTagsString(tags []string, description string) string
	PreparseDescription(text string) string
	ParseDescription(text string) string
	PostParseDescription(text string) string

	// FallbackFileParser renders the description as a text file for
	// destinations that take one in place of a missing primary file.
	FallbackFileParser(html string) (text string, mimeType string)
	ScalingOptions(file *models.FileRecord) *ScalingOptions

	// UpdateChildPart rewrites destination-specific fields of a child part
	// once its parent has posted. It reports whether part changed.
	UpdateChildPart(part *models.SubmissionPart, resolve Resolver) bool
}

// Base supplies the default behaviour for the optional hooks. Destinations
// embed it and override what they need.
type Base struct{}

func (Base) PostNotificationSubmission(context.Context, *cancel.Token, *models.PostData, *models.Account) (*models.PostResponse, error) {
	return nil, ErrUnsupported
}

func (Base) ValidateNotificationSubmission(*models.Submission, *models.SubmissionPart, *models.SubmissionPart) models.ValidationResult {
	return models.ValidationResult{}
}

func (Base) GenerateTagsString(tags []string, _ string) string {
	return Hashtags(tags)
}

func (Base) PreparseDescription(text string) string { return text }

func (Base) ParseDescription(text string) string { return HTMLToText(text) }

func (Base) PostParseDescription(text string) string { return text }

func (Base) FallbackFileParser(html string) (string, string) {
	return HTMLToText(html), "text/plain"
}

func (Base) ScalingOptions(*models.FileRecord) *ScalingOptions { return nil }

func (Base) UpdateChildPart(*models.SubmissionPart, Resolver) bool { return false }

// CheckFiles reports the problems shared by every file destination.
func CheckFiles(info Info, sub *models.Submission) models.ValidationResult {
	var res models.ValidationResult
	if sub.Files == nil || sub.Files.Primary == nil {
		res.Problems = append(res.Problems, info.Name+": "+ErrNoFile.Error())
		return res
	}
	if !info.Accepts(sub.Files.Primary.MimeType) {
		res.Problems = append(res.Problems, info.Name+" does not accept "+sub.Files.Primary.MimeType)
	}
	if len(sub.Files.Additional) > 0 && !info.AcceptsAdditionalFiles {
		res.Warnings = append(res.Warnings, info.Name+" ignores additional files")
	}
	for _, f := range sub.Files.Additional {
		if info.AcceptsAdditionalFiles && !info.Accepts(f.MimeType) {
			res.Problems = append(res.Problems, info.Name+" does not accept "+f.MimeType)
		}
	}
	return res
}

// Response fills the identifying fields every destination returns.
func Response(info Info, account *models.Account, source, message string) *models.PostResponse {
	resp := &models.PostResponse{
		Website: info.ID,
		Source:  source,
		Message: message,
		Time:    time.Now(),
	}
	if account != nil {
		resp.AccountID = account.ID
	}
	return resp
}
