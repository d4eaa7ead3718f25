package bluesky

import (
	"bytes"
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
	"github.com/maheshrc27/postflow/internal/website"
)

const (
	ID        = "bluesky"
	baseURL   = "https://bsky.social/xrpc"
	maxLength = 300
	maxImages = 4

	// ReplyToKey names the part option holding the URL of the post to reply
	// to. It usually carries a {parent:bluesky} placeholder.
	ReplyToKey = "reply_to"
)

var (
	mention = regexp.MustCompile(`\{bsky:([^}]+)\}`)
	postURL = regexp.MustCompile(`^https://bsky\.app/profile/([^/]+)/post/([^/?#]+)`)
)

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

type Bluesky struct {
	website.Base
	cfg Config
}

func New(cfg Config) *Bluesky {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = website.DefaultClient
	}
	return &Bluesky{cfg: cfg}
}

func (b *Bluesky) Info() website.Info {
	return website.Info{
		ID:                     ID,
		Name:                   "Bluesky",
		AcceptsSourceURLs:      true,
		AcceptsAdditionalFiles: true,
		RefreshBeforePost:      true,
		WaitBetweenPosts:       10 * time.Second,
		EnableAdvertisement:    true,
		AcceptedMimeTypes:      []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		UsernameShortcuts: []website.UsernameShortcut{
			{Key: "bsky", URL: "https://bsky.app/profile/$1"},
		},
	}
}

func (b *Bluesky) PreparseDescription(text string) string {
	return mention.ReplaceAllString(text, "@$1")
}

func (b *Bluesky) ScalingOptions(*models.FileRecord) *website.ScalingOptions {
	return &website.ScalingOptions{MaxSize: 1_000_000}
}

func (b *Bluesky) ValidateFileSubmission(sub *models.Submission, _, _ *models.SubmissionPart) models.ValidationResult {
	res := website.CheckFiles(b.Info(), sub)
	if sub.Files != nil && len(sub.Files.Additional)+1 > maxImages {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Bluesky posts at most %d images", maxImages))
	}
	for _, f := range sub.Files.Records() {
		if f.Size > 1_000_000 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s is larger than 1MB and may be rejected", f.Name))
		}
	}
	return res
}

func (b *Bluesky) ValidateNotificationSubmission(*models.Submission, *models.SubmissionPart, *models.SubmissionPart) models.ValidationResult {
	return models.ValidationResult{}
}

// UpdateChildPart resolves {parent:...} inside the reply target so a child
// submission replies to its parent's post.
func (b *Bluesky) UpdateChildPart(part *models.SubmissionPart, resolve website.Resolver) bool {
	replyTo := part.Options.ExtraString(ReplyToKey)
	if replyTo == "" {
		return false
	}
	out, changed := website.ReplaceParentPlaceholders(replyTo, resolve)
	if changed {
		part.Options.Extra[ReplyToKey] = out
	}
	return changed
}

type session struct {
	DID       string `json:"did"`
	Handle    string `json:"handle"`
	AccessJwt string `json:"accessJwt"`
}

func (b *Bluesky) authenticate(ctx context.Context, account *models.Account) (*session, error) {
	body := map[string]string{
		"identifier": account.String("handle"),
		"password":   account.String("app_password"),
	}
	if body["identifier"] == "" || body["password"] == "" {
		return nil, errors.New("bluesky account has no credentials")
	}
	var s session
	if err := website.SendJSON(ctx, b.cfg.HTTPClient, http.MethodPost, b.cfg.BaseURL+"/com.atproto.server.createSession", nil, body, &s); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	slog.Debug("authenticated with Bluesky", "handle", s.Handle, "did", s.DID)
	return &s, nil
}

func (b *Bluesky) CheckLogin(ctx context.Context, account *models.Account) (*models.LoginStatus, error) {
	status := &models.LoginStatus{AccountID: account.ID, Website: ID, CheckedAt: time.Now()}
	s, err := b.authenticate(ctx, account)
	if err != nil {
		slog.Info(err.Error())
		return status, nil
	}
	status.LoggedIn = true
	status.Username = s.Handle
	return status, nil
}

type strongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type replyRef struct {
	Root   strongRef `json:"root"`
	Parent strongRef `json:"parent"`
}

type image struct {
	Alt   string `json:"alt"`
	Image any    `json:"image"`
}

type embed struct {
	Type   string  `json:"$type"`
	Images []image `json:"images"`
}

type postRecord struct {
	Type      string    `json:"$type"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"createdAt"`
	Langs     []string  `json:"langs,omitempty"`
	Reply     *replyRef `json:"reply,omitempty"`
	Embed     *embed    `json:"embed,omitempty"`
}

func (b *Bluesky) PostNotificationSubmission(ctx context.Context, token *cancel.Token, data *models.PostData, account *models.Account) (*models.PostResponse, error) {
	return b.post(ctx, token, data, account, nil)
}

func (b *Bluesky) PostFileSubmission(ctx context.Context, token *cancel.Token, data *models.PostData, account *models.Account) (*models.PostResponse, error) {
	if data.Primary == nil {
		return nil, website.ErrNoFile
	}
	files := append([]*models.FileBuffer{data.Primary}, data.Additional...)
	if len(files) > maxImages {
		files = files[:maxImages]
	}
	return b.post(ctx, token, data, account, files)
}

func (b *Bluesky) post(ctx context.Context, token *cancel.Token, data *models.PostData, account *models.Account, files []*models.FileBuffer) (*models.PostResponse, error) {
	s, err := b.authenticate(ctx, account)
	if err != nil {
		return nil, err
	}
	auth := map[string]string{"Authorization": "Bearer " + s.AccessJwt}

	record := postRecord{
		Type:      "app.bsky.feed.post",
		Text:      Compose(data.Description, data.Sources),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Langs:     []string{"en"},
	}

	if len(files) > 0 {
		e := &embed{Type: "app.bsky.embed.images"}
		for _, f := range files {
			if token.IsCancelled() {
				return nil, cancel.ErrCancelled
			}
			blob, err := b.uploadBlob(ctx, auth, f)
			if err != nil {
				return nil, err
			}
			e.Images = append(e.Images, image{Alt: data.Title, Image: blob})
		}
		record.Embed = e
	}

	if replyTo := replyTarget(data.Part); replyTo != "" {
		ref, err := b.resolveReply(ctx, auth, replyTo)
		if err != nil {
			return nil, err
		}
		record.Reply = ref
	}

	if token.IsCancelled() {
		return nil, cancel.ErrCancelled
	}

	var created strongRef
	req := map[string]any{
		"repo":       s.DID,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}
	if err := website.SendJSON(ctx, b.cfg.HTTPClient, http.MethodPost, b.cfg.BaseURL+"/com.atproto.repo.createRecord", auth, req, &created); err != nil {
		return nil, fmt.Errorf("post failed: %w", err)
	}

	link := ""
	if parts := strings.Split(strings.TrimPrefix(created.URI, "at://"), "/"); len(parts) >= 3 {
		link = fmt.Sprintf("https://bsky.app/profile/%s/post/%s", s.Handle, parts[len(parts)-1])
	}
	slog.Info("posted to Bluesky", "uri", created.URI, "url", link)
	return website.Response(b.Info(), account, link, created.URI), nil
}

func (b *Bluesky) uploadBlob(ctx context.Context, auth map[string]string, f *models.FileBuffer) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/com.atproto.repo.uploadBlob", bytes.NewReader(f.Buffer))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", f.ContentType)
	for k, v := range auth {
		req.Header.Set(k, v)
	}
	var out struct {
		Blob any `json:"blob"`
	}
	if err := website.Do(b.cfg.HTTPClient, req, &out); err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.FileName, err)
	}
	return out.Blob, nil
}

// resolveReply turns a bsky.app post URL into the strong references a reply
// record needs.
func (b *Bluesky) resolveReply(ctx context.Context, auth map[string]string, link string) (*replyRef, error) {
	m := postURL.FindStringSubmatch(link)
	if m == nil {
		return nil, fmt.Errorf("cannot reply to %q: not a bluesky post", link)
	}
	q := url.Values{}
	q.Set("repo", m[1])
	q.Set("collection", "app.bsky.feed.post")
	q.Set("rkey", m[2])

	var rec struct {
		URI   string `json:"uri"`
		CID   string `json:"cid"`
		Value struct {
			Reply *replyRef `json:"reply"`
		} `json:"value"`
	}
	if err := website.SendJSON(ctx, b.cfg.HTTPClient, http.MethodGet, b.cfg.BaseURL+"/com.atproto.repo.getRecord?"+q.Encode(), auth, nil, &rec); err != nil {
		return nil, fmt.Errorf("resolve reply target: %w", err)
	}
	parent := strongRef{URI: rec.URI, CID: rec.CID}
	ref := &replyRef{Root: parent, Parent: parent}
	if rec.Value.Reply != nil {
		ref.Root = rec.Value.Reply.Root
	}
	return ref, nil
}

// replyTarget returns the reply URL once every parent placeholder is resolved.
func replyTarget(part *models.SubmissionPart) string {
	if part == nil {
		return ""
	}
	r := part.Options.ExtraString(ReplyToKey)
	if strings.Contains(r, "{parent:") {
		return ""
	}
	return r
}

// Compose appends sources to text and cuts the result to the post limit,
// keeping the sources intact when possible.
func Compose(text string, sources []string) string {
	suffix := ""
	if len(sources) > 0 {
		suffix = "\n\n" + strings.Join(sources, "\n")
	}
	body := []rune(text)
	room := maxLength - len([]rune(suffix))
	if room < 0 {
		return truncate(text, maxLength)
	}
	if len(body) > room {
		text = truncate(text, room)
	}
	return strings.TrimSpace(text + suffix)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
