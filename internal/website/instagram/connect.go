package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/internal/website"
)

const (
	authURL = "https://www.instagram.com/oauth/authorize"
	apiURL  = "https://api.instagram.com"
	scopes  = "instagram_business_basic,instagram_business_content_publish"
)

func (ig *Instagram) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", ig.cfg.ClientID)
	params.Add("scope", scopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", ig.cfg.RedirectURL)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", authURL, params.Encode())
}

// Connect trades the code for a short-lived token, then for a long-lived
// one, and reads the profile.
func (ig *Instagram) Connect(ctx context.Context, code string) (*website.Connection, error) {
	if code == "" {
		return nil, errors.New("code is empty")
	}

	data := url.Values{}
	data.Set("client_id", ig.cfg.ClientID)
	data.Set("client_secret", ig.cfg.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", ig.cfg.RedirectURL)
	data.Set("code", code)

	var short transfer.InstagramShortToken
	if err := website.PostForm(ctx, ig.cfg.HTTPClient, ig.cfg.APIURL+"/oauth/access_token", data, &short); err != nil {
		return nil, fmt.Errorf("failed to get short-lived token: %w", explain(err))
	}

	var long transfer.InstagramToken
	u := fmt.Sprintf("%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		ig.cfg.BaseURL, url.QueryEscape(ig.cfg.ClientSecret), url.QueryEscape(short.AccessToken))
	if err := website.SendJSON(ctx, ig.cfg.HTTPClient, http.MethodGet, u, nil, nil, &long); err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %w", explain(err))
	}

	var info transfer.InstagramUserInfo
	u = fmt.Sprintf("%s/me?fields=id,username,name&access_token=%s", ig.cfg.BaseURL, url.QueryEscape(long.AccessToken))
	if err := website.SendJSON(ctx, ig.cfg.HTTPClient, http.MethodGet, u, nil, nil, &info); err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", explain(err))
	}

	return &website.Connection{
		Alias: info.Username,
		Data: map[string]any{
			"access_token": long.AccessToken,
			"user_id":      info.UserID,
			"expires_at":   time.Now().Add(time.Duration(long.ExpiresIn) * time.Second).Format(time.RFC3339),
		},
	}, nil
}

// Instagram has no token revocation endpoint.
func (ig *Instagram) Disconnect(context.Context, *models.Account) error { return nil }
