package website

import (
	"context"
	"testing"

	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSite struct {
	Base
	info Info
}

func (s stubSite) Info() Info { return s.info }

func (s stubSite) CheckLogin(context.Context, *models.Account) (*models.LoginStatus, error) {
	return &models.LoginStatus{LoggedIn: true}, nil
}

func (s stubSite) PostFileSubmission(context.Context, *cancel.Token, *models.PostData, *models.Account) (*models.PostResponse, error) {
	return &models.PostResponse{Website: s.info.ID}, nil
}

func (s stubSite) ValidateFileSubmission(sub *models.Submission, _, _ *models.SubmissionPart) models.ValidationResult {
	return CheckFiles(s.info, sub)
}

func TestRegistry(t *testing.T) {
	a := stubSite{info: Info{ID: "alpha", UsernameShortcuts: []UsernameShortcut{{Key: "al", URL: "https://a.test/$1"}}}}
	b := stubSite{info: Info{ID: "beta", UsernameShortcuts: []UsernameShortcut{{Key: "be", URL: "https://b.test/$1"}}}}
	r := NewRegistry(b, a)

	got, ok := r.Get("ALPHA")
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Info().ID)

	_, ok = r.Get("gamma")
	assert.False(t, ok)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Info().ID)
	assert.Equal(t, []UsernameShortcut{{Key: "al", URL: "https://a.test/$1"}, {Key: "be", URL: "https://b.test/$1"}}, r.UsernameShortcuts())
}

func TestBaseDefaults(t *testing.T) {
	var s Website = stubSite{info: Info{ID: "alpha"}}
	_, err := s.PostNotificationSubmission(context.Background(), cancel.NewToken(), &models.PostData{}, nil)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, "#a #b", s.GenerateTagsString([]string{"a", "b"}, ""))
	assert.Equal(t, "x", s.PreparseDescription("x"))
	assert.Equal(t, "bold", s.ParseDescription("<b>bold</b>"))
	text, mime := s.FallbackFileParser("<p>hi</p>")
	assert.Equal(t, "hi", text)
	assert.Equal(t, "text/plain", mime)
	assert.Nil(t, s.ScalingOptions(nil))
	assert.False(t, s.UpdateChildPart(&models.SubmissionPart{}, nil))
}

func TestCheckFiles(t *testing.T) {
	info := Info{Name: "Alpha", AcceptedMimeTypes: []string{"image/png"}}

	res := CheckFiles(info, &models.Submission{})
	assert.Len(t, res.Problems, 1)

	res = CheckFiles(info, &models.Submission{Files: &models.SubmissionFiles{
		Primary:    &models.FileRecord{MimeType: "video/mp4"},
		Additional: []models.FileRecord{{MimeType: "image/png"}},
	}})
	assert.Equal(t, []string{"Alpha does not accept video/mp4"}, res.Problems)
	assert.Equal(t, []string{"Alpha ignores additional files"}, res.Warnings)
}
