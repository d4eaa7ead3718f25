package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/website"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	ID       = "youtube"
	maxTitle = 100
	maxTags  = 500
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint and RevokeURL override the Google hosts.
	Endpoint  string
	RevokeURL string
}

type Youtube struct {
	website.Base
	oauth     *oauth2.Config
	endpoint  string
	revokeURL string
}

func New(cfg Config) *Youtube {
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = revokeURL
	}
	return &Youtube{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		endpoint:  cfg.Endpoint,
		revokeURL: cfg.RevokeURL,
	}
}

func (y *Youtube) Info() website.Info {
	return website.Info{
		ID:                ID,
		Name:              "YouTube",
		RefreshBeforePost: true,
		AcceptedMimeTypes: []string{"video/mp4", "video/quicktime", "video/webm", "video/x-msvideo", "video/x-matroska"},
		UsernameShortcuts: []website.UsernameShortcut{
			{Key: "yt", URL: "https://www.youtube.com/@$1"},
		},
	}
}

// YouTube tags travel in the snippet, so the description gets none.
func (y *Youtube) GenerateTagsString([]string, string) string { return "" }

func (y *Youtube) ValidateFileSubmission(sub *models.Submission, part, defaultPart *models.SubmissionPart) models.ValidationResult {
	res := website.CheckFiles(y.Info(), sub)
	title := sub.Title
	if part != nil && part.Options.Title != "" {
		title = part.Options.Title
	} else if defaultPart != nil && defaultPart.Options.Title != "" {
		title = defaultPart.Options.Title
	}
	if len([]rune(title)) > maxTitle {
		res.Warnings = append(res.Warnings, fmt.Sprintf("YouTube titles are cut to %d characters", maxTitle))
	}
	return res
}

func (y *Youtube) token(account *models.Account) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  account.String("access_token"),
		RefreshToken: account.String("refresh_token"),
		Expiry:       account.Time("expires_at"),
	}
}

func (y *Youtube) service(ctx context.Context, src oauth2.TokenSource) (*youtube.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, src))}
	if y.endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.endpoint))
	}
	return youtube.NewService(ctx, opts...)
}

// CheckLogin refreshes the oauth2 token when expired and reads the channel
// name.
func (y *Youtube) CheckLogin(ctx context.Context, account *models.Account) (*models.LoginStatus, error) {
	status := &models.LoginStatus{AccountID: account.ID, Website: ID, CheckedAt: time.Now()}
	if account.String("refresh_token") == "" {
		return status, nil
	}

	src := y.oauth.TokenSource(ctx, y.token(account))
	token, err := src.Token()
	if err != nil {
		slog.Info(err.Error())
		return status, nil
	}
	if token.AccessToken != account.String("access_token") {
		status.Data = map[string]any{
			"access_token":  token.AccessToken,
			"refresh_token": account.String("refresh_token"),
			"expires_at":    token.Expiry.Format(time.RFC3339),
		}
		if token.RefreshToken != "" {
			status.Data["refresh_token"] = token.RefreshToken
		}
	}

	svc, err := y.service(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, err
	}
	resp, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return status, nil
	}
	status.LoggedIn = true
	if len(resp.Items) > 0 && resp.Items[0].Snippet != nil {
		status.Username = strings.TrimPrefix(resp.Items[0].Snippet.CustomUrl, "@")
	}
	return status, nil
}

func (y *Youtube) PostFileSubmission(ctx context.Context, token *cancel.Token, data *models.PostData, account *models.Account) (*models.PostResponse, error) {
	if account.String("access_token") == "" {
		return nil, errors.New("youtube account has no credentials")
	}
	if data.Primary == nil || len(data.Primary.Buffer) == 0 {
		return nil, website.ErrNoFile
	}

	svc, err := y.service(ctx, y.oauth.TokenSource(ctx, y.token(account)))
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube service: %w", err)
	}

	title := data.Title
	if r := []rune(title); len(r) > maxTitle {
		title = string(r[:maxTitle])
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: data.Description,
			Tags:        limitTags(data.Tags),
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
		},
	}
	if data.Rating != "" && data.Rating != "general" {
		video.Status.PrivacyStatus = "unlisted"
	}

	if token.IsCancelled() {
		return nil, cancel.ErrCancelled
	}

	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(bytes.NewReader(data.Primary.Buffer)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("error uploading video: %w", err)
	}

	if data.Thumbnail != nil && len(data.Thumbnail.Buffer) > 0 && !token.IsCancelled() {
		_, err := svc.Thumbnails.Set(resp.Id).Media(bytes.NewReader(data.Thumbnail.Buffer)).Context(ctx).Do()
		if err != nil {
			slog.Warn("failed to set youtube thumbnail", "video_id", resp.Id, "error", err)
		}
	}

	return website.Response(y.Info(), account, "https://youtu.be/"+resp.Id, ""), nil
}

// limitTags keeps tags until their combined length reaches YouTube's cap.
func limitTags(tags []string) []string {
	var out []string
	n := 0
	for _, t := range tags {
		n += len(t) + 1
		if n > maxTags {
			break
		}
		out = append(out, t)
	}
	return out
}
