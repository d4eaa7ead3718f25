package service

import (
	"context"
	"testing"

	"github.com/maheshrc27/postflow/internal/website"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountCreateEncryptsData(t *testing.T) {
	repo := newMemAccounts()
	site := &loginSite{id: "bluesky", loggedIn: true}
	svc := NewAccountService(repo, website.NewRegistry(site), "secret")
	ctx := context.Background()

	acct, err := svc.Create(ctx, "Bluesky", "me", map[string]any{"app_password": "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "bluesky", acct.Website)

	stored, _ := repo.GetByID(ctx, acct.ID)
	assert.NotEmpty(t, stored.EncryptedData)
	assert.NotContains(t, stored.EncryptedData, "hunter2")

	got, err := svc.Get(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got.String("app_password"))

	statuses := svc.Statuses()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].LoggedIn)
	assert.Equal(t, acct.ID, statuses[0].AccountID)
	assert.Equal(t, "bluesky", statuses[0].Website)
}

func TestAccountCreateRejectsUnknownWebsite(t *testing.T) {
	svc := NewAccountService(newMemAccounts(), website.NewRegistry(), "secret")
	_, err := svc.Create(context.Background(), "nowhere", "me", nil)
	assert.ErrorIs(t, err, ErrUnknownWebsite)
}

func TestAccountRefreshStoresRotatedCredentials(t *testing.T) {
	repo := newMemAccounts()
	site := &loginSite{id: "tiktok", loggedIn: true}
	svc := NewAccountService(repo, website.NewRegistry(site), "secret")
	ctx := context.Background()

	acct, err := svc.Create(ctx, "tiktok", "me", map[string]any{"access_token": "old"})
	require.NoError(t, err)

	site.rotate = map[string]any{"access_token": "new"}
	status, err := svc.Refresh(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, status.LoggedIn)

	got, err := svc.Get(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.String("access_token"))
	assert.Equal(t, "old", site.checked[1]["access_token"])
}

func TestAccountGetMissing(t *testing.T) {
	svc := NewAccountService(newMemAccounts(), website.NewRegistry(), "secret")
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountConnectAndRemove(t *testing.T) {
	repo := newMemAccounts()
	site := connectSite{&loginSite{id: "tiktok", loggedIn: true, connection: &website.Connection{
		Alias: "maker",
		Data:  map[string]any{"access_token": "at"},
	}}}
	plain := &loginSite{id: "bluesky"}
	svc := NewAccountService(repo, website.NewRegistry(site, plain), "secret")
	ctx := context.Background()

	u, err := svc.AuthURL("tiktok", "st")
	require.NoError(t, err)
	assert.Equal(t, "https://auth.test/?state=st", u)

	_, err = svc.AuthURL("bluesky", "st")
	assert.ErrorIs(t, err, website.ErrNoConnector)

	acct, err := svc.Connect(ctx, "tiktok", "code")
	require.NoError(t, err)
	assert.Equal(t, "maker", acct.Alias)

	list, err := svc.List(ctx, "TikTok")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Remove(ctx, acct.ID))
	assert.Equal(t, []string{"at"}, site.revoked)
	assert.Empty(t, svc.Statuses())

	list, err = svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAccountRefreshAll(t *testing.T) {
	repo := newMemAccounts()
	site := &loginSite{id: "bluesky", loggedIn: true}
	svc := NewAccountService(repo, website.NewRegistry(site), "secret")
	ctx := context.Background()

	for _, alias := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, "bluesky", alias, map[string]any{})
		require.NoError(t, err)
	}
	site.checked = nil
	require.NoError(t, svc.RefreshAll(ctx, 2))
	assert.Len(t, site.checked, 3)
	assert.Len(t, svc.Statuses(), 3)
}
