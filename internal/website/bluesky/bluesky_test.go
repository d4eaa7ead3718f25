package bluesky

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func account() *models.Account {
	return &models.Account{ID: "acct1", Website: ID, Data: map[string]any{
		"handle":       "test.bsky.social",
		"app_password": "secret",
	}}
}

func newServer(t *testing.T, records *[]postRecord) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/com.atproto.server.createSession":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"AuthenticationRequired"}`))
				return
			}
			json.NewEncoder(w).Encode(session{DID: "did:plc:test", Handle: "test.bsky.social", AccessJwt: "jwt"})
		case "/com.atproto.repo.createRecord":
			assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
			var body struct {
				Record postRecord `json:"record"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			*records = append(*records, body.Record)
			json.NewEncoder(w).Encode(strongRef{URI: "at://did:plc:test/app.bsky.feed.post/abc123", CID: "cid1"})
		case "/com.atproto.repo.getRecord":
			assert.Equal(t, "parent", r.URL.Query().Get("rkey"))
			w.Write([]byte(`{"uri":"at://did:plc:other/app.bsky.feed.post/parent","cid":"pcid","value":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestBluesky_PostNotification(t *testing.T) {
	var records []postRecord
	srv := newServer(t, &records)
	defer srv.Close()

	b := New(Config{BaseURL: srv.URL})
	data := &models.PostData{
		Description: "hello world",
		Sources:     []string{"https://example.test/1"},
		Part:        &models.SubmissionPart{},
	}
	resp, err := b.PostNotificationSubmission(context.Background(), cancel.NewToken(), data, account())
	require.NoError(t, err)
	assert.Equal(t, "https://bsky.app/profile/test.bsky.social/post/abc123", resp.Source)
	assert.Equal(t, "acct1", resp.AccountID)

	require.Len(t, records, 1)
	assert.Equal(t, "hello world\n\nhttps://example.test/1", records[0].Text)
	assert.Nil(t, records[0].Reply)
}

func TestBluesky_Reply(t *testing.T) {
	var records []postRecord
	srv := newServer(t, &records)
	defer srv.Close()

	b := New(Config{BaseURL: srv.URL})
	part := &models.SubmissionPart{Options: models.PartOptions{Extra: map[string]any{
		ReplyToKey: "https://bsky.app/profile/other.bsky.social/post/parent",
	}}}
	_, err := b.PostNotificationSubmission(context.Background(), cancel.NewToken(), &models.PostData{Description: "child", Part: part}, account())
	require.NoError(t, err)

	require.Len(t, records, 1)
	require.NotNil(t, records[0].Reply)
	assert.Equal(t, "pcid", records[0].Reply.Parent.CID)
	assert.Equal(t, records[0].Reply.Parent, records[0].Reply.Root)
}

func TestBluesky_CheckLogin(t *testing.T) {
	var records []postRecord
	srv := newServer(t, &records)
	defer srv.Close()

	b := New(Config{BaseURL: srv.URL})
	status, err := b.CheckLogin(context.Background(), account())
	require.NoError(t, err)
	assert.True(t, status.LoggedIn)
	assert.Equal(t, "test.bsky.social", status.Username)

	bad := account()
	bad.Data["app_password"] = "wrong"
	status, err = b.CheckLogin(context.Background(), bad)
	require.NoError(t, err)
	assert.False(t, status.LoggedIn)
}

func TestBluesky_CancelledBeforeCreate(t *testing.T) {
	var records []postRecord
	srv := newServer(t, &records)
	defer srv.Close()

	tok := cancel.NewToken()
	tok.Cancel()
	_, err := New(Config{BaseURL: srv.URL}).PostNotificationSubmission(context.Background(), tok, &models.PostData{Description: "x"}, account())
	assert.ErrorIs(t, err, cancel.ErrCancelled)
	assert.Empty(t, records)
}

func TestBluesky_UpdateChildPart(t *testing.T) {
	b := New(Config{})
	part := &models.SubmissionPart{Options: models.PartOptions{Extra: map[string]any{ReplyToKey: "{parent:bluesky}"}}}
	changed := b.UpdateChildPart(part, func(key string) (string, bool) {
		if key == "bluesky" {
			return "https://bsky.app/profile/a/post/b", true
		}
		return "", false
	})
	assert.True(t, changed)
	assert.Equal(t, "https://bsky.app/profile/a/post/b", part.Options.ExtraString(ReplyToKey))

	assert.False(t, b.UpdateChildPart(&models.SubmissionPart{}, nil))
}

func TestCompose(t *testing.T) {
	assert.Equal(t, "hi", Compose("hi", nil))

	long := strings.Repeat("a", 400)
	out := Compose(long, []string{"https://s.test"})
	assert.Len(t, []rune(out), maxLength)
	assert.True(t, strings.HasSuffix(out, "\n\nhttps://s.test"))
}

func TestBluesky_PreparseMentions(t *testing.T) {
	assert.Equal(t, "hi @bob.bsky.social", New(Config{}).PreparseDescription("hi {bsky:bob.bsky.social}"))
}
