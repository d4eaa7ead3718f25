package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/website"
	"golang.org/x/oauth2"
)

const revokeURL = "https://oauth2.googleapis.com/revoke"

func (y *Youtube) AuthURL(state string) string {
	return y.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (y *Youtube) Connect(ctx context.Context, code string) (*website.Connection, error) {
	if code == "" {
		return nil, errors.New("code is empty")
	}
	if y.oauth.ClientID == "" || y.oauth.ClientSecret == "" || y.oauth.RedirectURL == "" {
		return nil, errors.New("youtube oauth2 configuration is incomplete")
	}

	token, err := y.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, errors.New("google returned no refresh token")
	}

	svc, err := y.service(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, err
	}
	resp, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read channel: %w", err)
	}
	alias := ""
	if len(resp.Items) > 0 && resp.Items[0].Snippet != nil {
		alias = strings.TrimPrefix(resp.Items[0].Snippet.CustomUrl, "@")
		if alias == "" {
			alias = resp.Items[0].Snippet.Title
		}
	}

	return &website.Connection{
		Alias: alias,
		Data: map[string]any{
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
			"expires_at":    token.Expiry.Format(time.RFC3339),
		},
	}, nil
}

// Disconnect revokes the refresh token, which also ends its access tokens.
func (y *Youtube) Disconnect(ctx context.Context, account *models.Account) error {
	token := account.String("refresh_token")
	if token == "" {
		token = account.String("access_token")
	}
	if token == "" {
		return nil
	}
	if err := website.PostForm(ctx, nil, y.revokeURL, url.Values{"token": {token}}, nil); err != nil {
		return fmt.Errorf("failed to revoke google access: %w", err)
	}
	return nil
}
