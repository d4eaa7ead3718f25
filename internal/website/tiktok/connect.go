package tiktok

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
	authURL = "https://www.tiktok.com/v2/auth/authorize"
	scopes  = "user.info.basic,user.info.profile,video.publish,video.upload"
)

func (t *Tiktok) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_key", t.cfg.ClientKey)
	params.Add("scope", scopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", t.cfg.RedirectURL)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", authURL, params.Encode())
}

func (t *Tiktok) Connect(ctx context.Context, code string) (*website.Connection, error) {
	if code == "" {
		return nil, errors.New("code is empty")
	}

	data := url.Values{}
	data.Add("client_key", t.cfg.ClientKey)
	data.Add("client_secret", t.cfg.ClientSecret)
	data.Add("code", code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", t.cfg.RedirectURL)

	var token transfer.TiktokTokenResponse
	if err := website.PostForm(ctx, t.cfg.HTTPClient, t.cfg.BaseURL+"/v2/oauth/token/", data, &token); err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("tiktok returned no access token")
	}

	var user transfer.TiktokUserResponse
	err := website.SendJSON(ctx, t.cfg.HTTPClient, http.MethodGet,
		t.cfg.BaseURL+"/v2/user/info/?fields=open_id,display_name,username",
		bearer(token.AccessToken), nil, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info: %w", err)
	}

	return &website.Connection{
		Alias: user.Data.User.Username,
		Data: map[string]any{
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
			"open_id":       token.OpenID,
			"expires_at":    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second).Format(time.RFC3339),
		},
	}, nil
}

// Disconnect revokes the account's access token.
func (t *Tiktok) Disconnect(ctx context.Context, account *models.Account) error {
	token := account.String("access_token")
	if token == "" {
		return nil
	}
	data := url.Values{}
	data.Add("client_key", t.cfg.ClientKey)
	data.Add("client_secret", t.cfg.ClientSecret)
	data.Add("token", token)
	if err := website.PostForm(ctx, t.cfg.HTTPClient, t.cfg.BaseURL+"/v2/oauth/revoke/", data, nil); err != nil {
		return fmt.Errorf("failed to revoke tiktok access: %w", err)
	}
	return nil
}
