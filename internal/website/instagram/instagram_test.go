package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/maheshrc27/postflow/internal/cancel"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphServer struct {
	mu          sync.Mutex
	containers  []map[string]any
	published   []string
	failPublish bool
}

func (g *graphServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()

		switch r.URL.Path {
		case "/v21.0/u1/media":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "tok", body["access_token"])
			g.containers = append(g.containers, body)
			fmt.Fprintf(w, `{"id":"c%d"}`, len(g.containers))
		case "/v21.0/u1/media_publish":
			if g.failPublish {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"message":"Media not ready","code":9007}}`))
				return
			}
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			g.published = append(g.published, body["creation_id"])
			w.Write([]byte(`{"id":"m1"}`))
		case "/v21.0/m1":
			w.Write([]byte(`{"permalink":"https://instagram.com/p/abc"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func igAccount() *models.Account {
	return &models.Account{ID: "acct1", Website: ID, Data: map[string]any{"access_token": "tok", "user_id": "u1"}}
}

func image(url string) *models.FileBuffer {
	return &models.FileBuffer{ContentType: "image/png", URL: url}
}

func TestPostSingleImage(t *testing.T) {
	g := &graphServer{}
	srv := httptest.NewServer(g.handler(t))
	defer srv.Close()

	ig := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	resp, err := ig.PostFileSubmission(context.Background(), cancel.NewToken(), &models.PostData{
		Description: "caption",
		Primary:     image("https://cdn/1.png"),
	}, igAccount())
	require.NoError(t, err)

	assert.Equal(t, "https://instagram.com/p/abc", resp.Source)
	assert.Equal(t, "m1", resp.Message)
	assert.Equal(t, "acct1", resp.AccountID)
	require.Len(t, g.containers, 1)
	assert.Equal(t, "https://cdn/1.png", g.containers[0]["image_url"])
	assert.Equal(t, "caption", g.containers[0]["caption"])
	assert.Equal(t, []string{"c1"}, g.published)
}

func TestPostCarousel(t *testing.T) {
	g := &graphServer{}
	srv := httptest.NewServer(g.handler(t))
	defer srv.Close()

	ig := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := ig.PostFileSubmission(context.Background(), cancel.NewToken(), &models.PostData{
		Description: "caption",
		Primary:     image("https://cdn/1.png"),
		Additional:  []*models.FileBuffer{image("https://cdn/2.png")},
	}, igAccount())
	require.NoError(t, err)

	require.Len(t, g.containers, 3)
	assert.Equal(t, true, g.containers[0]["is_carousel_item"])
	assert.Equal(t, "https://cdn/2.png", g.containers[1]["image_url"])
	assert.Equal(t, "CAROUSEL", g.containers[2]["media_type"])
	assert.Equal(t, []any{"c1", "c2"}, g.containers[2]["children"])
	assert.Equal(t, []string{"c3"}, g.published)
}

func TestPostReportsPublishError(t *testing.T) {
	g := &graphServer{failPublish: true}
	srv := httptest.NewServer(g.handler(t))
	defer srv.Close()

	ig := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := ig.PostFileSubmission(context.Background(), cancel.NewToken(), &models.PostData{
		Primary: image("https://cdn/1.png"),
	}, igAccount())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Media not ready")
}

func TestPostStopsWhenCancelled(t *testing.T) {
	g := &graphServer{}
	srv := httptest.NewServer(g.handler(t))
	defer srv.Close()

	token := cancel.NewToken()
	token.Cancel()
	ig := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := ig.PostFileSubmission(context.Background(), token, &models.PostData{
		Primary: image("https://cdn/1.png"),
	}, igAccount())
	assert.ErrorIs(t, err, cancel.ErrCancelled)
	assert.Empty(t, g.published)
}

func TestPostRequiresCredentials(t *testing.T) {
	ig := New(Config{})
	_, err := ig.PostFileSubmission(context.Background(), cancel.NewToken(), &models.PostData{
		Primary: image("https://cdn/1.png"),
	}, &models.Account{})
	assert.Error(t, err)
}
