package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "the-code", r.PostForm.Get("code"))
			w.Write([]byte(`{"access_token":"short","user_id":42}`))
		case "/access_token":
			assert.Equal(t, "short", r.URL.Query().Get("access_token"))
			assert.Equal(t, "ig_exchange_token", r.URL.Query().Get("grant_type"))
			w.Write([]byte(`{"access_token":"long","token_type":"bearer","expires_in":5184000}`))
		case "/me":
			assert.Equal(t, "long", r.URL.Query().Get("access_token"))
			json.NewEncoder(w).Encode(map[string]string{"id": "1789", "username": "painter"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ig := New(Config{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL, APIURL: srv.URL, HTTPClient: srv.Client()})
	conn, err := ig.Connect(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "painter", conn.Alias)
	assert.Equal(t, "long", conn.Data["access_token"])
	assert.Equal(t, "1789", conn.Data["user_id"])

	acct := &models.Account{Data: conn.Data}
	assert.False(t, acct.Time("expires_at").IsZero())
}

func TestConnectReportsGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid code","code":100}}`))
	}))
	defer srv.Close()

	ig := New(Config{BaseURL: srv.URL, APIURL: srv.URL, HTTPClient: srv.Client()})
	_, err := ig.Connect(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid code")
}

func TestDescriptionHooks(t *testing.T) {
	ig := New(Config{})
	assert.Equal(t, "by @artist", ig.PreparseDescription("by {ig:artist}"))

	tags := make([]string, maxTags+5)
	for i := range tags {
		tags[i] = "t"
	}
	assert.Len(t, ig.GenerateTagsString(tags, ""), maxTags*3-1)
}
