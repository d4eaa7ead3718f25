package instagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/internal/website"
)

const (
	ID            = "instagram"
	graphURL      = "https://graph.instagram.com"
	graphVersion  = "v21.0"
	maxTags       = 30
	maxCarousel   = 10
	refreshWithin = 7 * 24 * time.Hour
)

var mention = regexp.MustCompile(`\{ig:([^}]+)\}`)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// BaseURL and APIURL override the graph and oauth hosts.
	BaseURL    string
	APIURL     string
	HTTPClient *http.Client
}

type Instagram struct {
	website.Base
	cfg Config
}

func New(cfg Config) *Instagram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = graphURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = apiURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = website.DefaultClient
	}
	return &Instagram{cfg: cfg}
}

func (ig *Instagram) Info() website.Info {
	return website.Info{
		ID:                     ID,
		Name:                   "Instagram",
		AcceptsAdditionalFiles: true,
		WaitBetweenPosts:       time.Minute,
		AcceptedMimeTypes:      []string{"image/jpeg", "image/png"},
		UsernameShortcuts: []website.UsernameShortcut{
			{Key: "ig", URL: "https://instagram.com/$1"},
		},
	}
}

func (ig *Instagram) GenerateTagsString(tags []string, _ string) string {
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return website.Hashtags(tags)
}

func (ig *Instagram) PreparseDescription(text string) string {
	return mention.ReplaceAllString(text, "@$1")
}

func (ig *Instagram) ValidateFileSubmission(sub *models.Submission, _, _ *models.SubmissionPart) models.ValidationResult {
	res := website.CheckFiles(ig.Info(), sub)
	if sub.Files != nil && len(sub.Files.Additional)+1 > maxCarousel {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Instagram posts at most %d images", maxCarousel))
	}
	return res
}

// CheckLogin refreshes the long-lived token when it is close to expiry and
// reads the profile.
func (ig *Instagram) CheckLogin(ctx context.Context, account *models.Account) (*models.LoginStatus, error) {
	status := &models.LoginStatus{AccountID: account.ID, Website: ID, CheckedAt: time.Now()}
	token := account.String("access_token")
	if token == "" {
		return status, nil
	}

	if exp := account.Time("expires_at"); !exp.IsZero() && time.Until(exp) < refreshWithin {
		var result transfer.InstagramToken
		u := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s", ig.cfg.BaseURL, url.QueryEscape(token))
		if err := website.SendJSON(ctx, ig.cfg.HTTPClient, http.MethodGet, u, nil, nil, &result); err != nil {
			slog.Info(err.Error())
			return status, nil
		}
		token = result.AccessToken
		status.Data = copyData(account.Data)
		status.Data["access_token"] = token
		status.Data["expires_at"] = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second).Format(time.RFC3339)
	}

	var info transfer.InstagramUserInfo
	u := fmt.Sprintf("%s/me?fields=id,username,name&access_token=%s", ig.cfg.BaseURL, url.QueryEscape(token))
	if err := website.SendJSON(ctx, ig.cfg.HTTPClient, http.MethodGet, u, nil, nil, &info); err != nil {
		slog.Info(err.Error())
		return status, nil
	}
	status.LoggedIn = true
	status.Username = info.Username
	return status, nil
}

func (ig *Instagram) PostFileSubmission(ctx context.Context, token *cancel.Token, data *models.PostData, account *models.Account) (*models.PostResponse, error) {
	accessToken := account.String("access_token")
	userID := account.String("user_id")
	if accessToken == "" || userID == "" {
		return nil, errors.New("instagram account has no credentials")
	}
	if data.Primary == nil || data.Primary.URL == "" {
		return nil, website.ErrNoFile
	}

	images := []*models.FileBuffer{data.Primary}
	for _, f := range data.Additional {
		if len(images) == maxCarousel {
			break
		}
		images = append(images, f)
	}

	var creationID string
	if len(images) == 1 {
		id, err := ig.createContainer(ctx, userID, accessToken, map[string]any{
			"image_url": data.Primary.URL,
			"caption":   data.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create instagram media: %w", err)
		}
		creationID = id
	} else {
		children := make([]string, 0, len(images))
		for _, img := range images {
			if token.IsCancelled() {
				return nil, cancel.ErrCancelled
			}
			id, err := ig.createContainer(ctx, userID, accessToken, map[string]any{
				"image_url":        img.URL,
				"is_carousel_item": true,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create carousel item: %w", err)
			}
			children = append(children, id)
		}
		id, err := ig.createContainer(ctx, userID, accessToken, map[string]any{
			"media_type": "CAROUSEL",
			"caption":    data.Description,
			"children":   children,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create carousel: %w", err)
		}
		creationID = id
	}

	if token.IsCancelled() {
		return nil, cancel.ErrCancelled
	}

	mediaID, err := ig.publish(ctx, userID, accessToken, creationID)
	if err != nil {
		return nil, err
	}

	var media struct {
		Permalink string `json:"permalink"`
	}
	u := fmt.Sprintf("%s/%s/%s?fields=permalink&access_token=%s", ig.cfg.BaseURL, graphVersion, mediaID, url.QueryEscape(accessToken))
	if err := website.SendJSON(ctx, ig.cfg.HTTPClient, http.MethodGet, u, nil, nil, &media); err != nil {
		slog.Info(err.Error())
	}
	return website.Response(ig.Info(), account, media.Permalink, mediaID), nil
}

func (ig *Instagram) createContainer(ctx context.Context, userID, accessToken string, payload map[string]any) (string, error) {
	payload["access_token"] = accessToken
	var result struct {
		ID string `json:"id"`
	}
	u := fmt.Sprintf("%s/%s/%s/media", ig.cfg.BaseURL, graphVersion, userID)
	if err := website.SendJSON(ctx, ig.cfg.HTTPClient, http.MethodPost, u, nil, payload, &result); err != nil {
		return "", explain(err)
	}
	if result.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}
	return result.ID, nil
}

func (ig *Instagram) publish(ctx context.Context, userID, accessToken, creationID string) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	u := fmt.Sprintf("%s/%s/%s/media_publish", ig.cfg.BaseURL, graphVersion, userID)
	payload := map[string]string{
		"creation_id":  creationID,
		"access_token": accessToken,
	}
	if err := website.SendJSON(ctx, ig.cfg.HTTPClient, http.MethodPost, u, nil, payload, &result); err != nil {
		return "", fmt.Errorf("failed to publish instagram media: %w", explain(err))
	}
	return result.ID, nil
}

// explain prefers the Graph API error message over the raw body.
func explain(err error) error {
	var httpErr *website.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	var body transfer.InstagramErrorResponse
	if decodeErr := transfer.Decode(httpErr.Body, &body); decodeErr != nil || body.Error.Message == "" {
		return err
	}
	return fmt.Errorf("instagram: %s (code %d)", body.Error.Message, body.Error.Code)
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
