package tiktok

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/internal/website"
)

const (
	ID           = "tiktok"
	apiURL       = "https://open.tiktokapis.com"
	maxTitle     = 2200
	maxPhotos    = 35
	privacyLevel = "PUBLIC_TO_EVERYONE"
)

var mention = regexp.MustCompile(`\{tt:([^}]+)\}`)

type Config struct {
	ClientKey    string
	ClientSecret string
	RedirectURL  string
	BaseURL      string
	HTTPClient   *http.Client
}

type Tiktok struct {
	website.Base
	cfg Config
}

func New(cfg Config) *Tiktok {
	if cfg.BaseURL == "" {
		cfg.BaseURL = apiURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = website.DefaultClient
	}
	return &Tiktok{cfg: cfg}
}

func (t *Tiktok) Info() website.Info {
	return website.Info{
		ID:                     ID,
		Name:                   "TikTok",
		AcceptsAdditionalFiles: true,
		WaitBetweenPosts:       time.Minute,
		AcceptedMimeTypes:      []string{"video/mp4", "video/quicktime", "video/webm", "image/jpeg", "image/webp"},
		UsernameShortcuts: []website.UsernameShortcut{
			{Key: "tt", URL: "https://www.tiktok.com/@$1"},
		},
	}
}

func (t *Tiktok) PreparseDescription(text string) string {
	return mention.ReplaceAllString(text, "@$1")
}

func (t *Tiktok) PostParseDescription(text string) string {
	if r := []rune(text); len(r) > maxTitle {
		return string(r[:maxTitle])
	}
	return text
}

func (t *Tiktok) ValidateFileSubmission(sub *models.Submission, _, _ *models.SubmissionPart) models.ValidationResult {
	res := website.CheckFiles(t.Info(), sub)
	if sub.Files == nil || sub.Files.Primary == nil {
		return res
	}
	if isVideo(sub.Files.Primary.MimeType) && len(sub.Files.Additional) > 0 {
		res.Warnings = append(res.Warnings, "TikTok posts additional files only with photo posts")
	}
	if len(sub.Files.Additional)+1 > maxPhotos {
		res.Problems = append(res.Problems, fmt.Sprintf("TikTok accepts at most %d photos", maxPhotos))
	}
	return res
}

// CheckLogin rotates the access token with the refresh token and reads the
// user profile.
func (t *Tiktok) CheckLogin(ctx context.Context, account *models.Account) (*models.LoginStatus, error) {
	status := &models.LoginStatus{AccountID: account.ID, Website: ID, CheckedAt: time.Now()}
	refreshToken := account.String("refresh_token")
	if refreshToken == "" {
		return status, nil
	}

	data := url.Values{}
	data.Set("client_key", t.cfg.ClientKey)
	data.Set("client_secret", t.cfg.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/v2/oauth/token/", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token transfer.TiktokTokenResponse
	if err := website.Do(t.cfg.HTTPClient, req, &token); err != nil {
		slog.Info(err.Error())
		return status, nil
	}
	if token.AccessToken == "" {
		return status, nil
	}

	status.Data = map[string]any{
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"open_id":       token.OpenID,
		"expires_at":    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second).Format(time.RFC3339),
	}

	var user transfer.TiktokUserResponse
	err = website.SendJSON(ctx, t.cfg.HTTPClient, http.MethodGet,
		t.cfg.BaseURL+"/v2/user/info/?fields=open_id,display_name,username",
		bearer(token.AccessToken), nil, &user)
	if err != nil {
		slog.Info(err.Error())
		return status, nil
	}
	status.LoggedIn = true
	status.Username = user.Data.User.Username
	return status, nil
}

func (t *Tiktok) PostFileSubmission(ctx context.Context, token *cancel.Token, data *models.PostData, account *models.Account) (*models.PostResponse, error) {
	accessToken := account.String("access_token")
	if accessToken == "" {
		return nil, errors.New("tiktok account has no credentials")
	}
	if data.Primary == nil || data.Primary.URL == "" {
		return nil, website.ErrNoFile
	}

	var creator transfer.TiktokCreatorInfoResponse
	err := website.SendJSON(ctx, t.cfg.HTTPClient, http.MethodPost,
		t.cfg.BaseURL+"/v2/post/publish/creator_info/query/", bearer(accessToken), struct{}{}, &creator)
	if err != nil {
		return nil, fmt.Errorf("failed to query creator info: %w", err)
	}

	if token.IsCancelled() {
		return nil, cancel.ErrCancelled
	}

	var result transfer.TiktokPublishResponse
	if isVideo(data.Primary.ContentType) {
		var body transfer.TiktokVideoRequest
		body.PostInfo = transfer.TiktokVideoPostInfo{
			Title:                 data.Description,
			PrivacyLevel:          privacyLevel,
			DisableDuet:           creator.Data.DuetDisabled,
			DisableComment:        creator.Data.CommentDisabled,
			DisableStitch:         creator.Data.StitchDisabled,
			VideoCoverTimestampMs: 1000,
		}
		body.SourceInfo.Source = "PULL_FROM_URL"
		body.SourceInfo.VideoURL = data.Primary.URL
		err = website.SendJSON(ctx, t.cfg.HTTPClient, http.MethodPost,
			t.cfg.BaseURL+"/v2/post/publish/video/init/", bearer(accessToken), body, &result)
	} else {
		photos := []string{data.Primary.URL}
		for _, f := range data.Additional {
			if f.URL != "" && len(photos) < maxPhotos {
				photos = append(photos, f.URL)
			}
		}
		var body transfer.TiktokPhotoRequest
		body.PostInfo = transfer.TiktokPhotoPostInfo{
			Title:          data.Title,
			Description:    data.Description,
			PrivacyLevel:   privacyLevel,
			DisableComment: creator.Data.CommentDisabled,
			AutoAddMusic:   true,
		}
		body.SourceInfo.Source = "PULL_FROM_URL"
		body.SourceInfo.PhotoImages = photos
		body.PostMode = "DIRECT_POST"
		body.MediaType = "PHOTO"
		err = website.SendJSON(ctx, t.cfg.HTTPClient, http.MethodPost,
			t.cfg.BaseURL+"/v2/post/publish/content/init/", bearer(accessToken), body, &result)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to publish on tiktok: %w", err)
	}
	if result.Error.Code != "" && result.Error.Code != "ok" {
		return nil, fmt.Errorf("tiktok: %s", result.Error.Message)
	}

	// TikTok publishes asynchronously and only returns a publish id.
	return website.Response(t.Info(), account, "", result.Data.PublishID), nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func isVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}
