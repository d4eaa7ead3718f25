package postdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/postflow/internal/description"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/website"
)

// FileLoader reads a stored file's bytes.
type FileLoader interface {
	Load(ctx context.Context, rec *models.FileRecord) (*models.FileBuffer, error)
}

type SettingsSource interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// Files holds a submission's file bytes, read once per posting cycle and
// shared by every destination.
type Files struct {
	Primary    *models.FileBuffer
	Thumbnail  *models.FileBuffer
	Fallback   *models.FileBuffer
	Additional []*models.FileBuffer
}

// LoadFiles reads every file referenced by sub.
func LoadFiles(ctx context.Context, loader FileLoader, sub *models.Submission) (*Files, error) {
	files := &Files{}
	if sub.Type != models.SubmissionTypeFile || sub.Files == nil {
		return files, nil
	}
	load := func(rec *models.FileRecord) (*models.FileBuffer, error) {
		if rec == nil {
			return nil, nil
		}
		buf, err := loader.Load(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", rec.Name, err)
		}
		return buf, nil
	}

	var err error
	if files.Primary, err = load(sub.Files.Primary); err != nil {
		return nil, err
	}
	if files.Thumbnail, err = load(sub.Files.Thumbnail); err != nil {
		return nil, err
	}
	if files.Fallback, err = load(sub.Files.Fallback); err != nil {
		return nil, err
	}
	for i := range sub.Files.Additional {
		buf, err := load(&sub.Files.Additional[i])
		if err != nil {
			return nil, err
		}
		files.Additional = append(files.Additional, buf)
	}
	return files, nil
}

// Request names what one destination's post data is built from.
type Request struct {
	Submission  *models.Submission
	Part        *models.SubmissionPart
	DefaultPart *models.SubmissionPart
	Website     website.Website
	Files       *Files
	Sources     []string
}

type Builder struct {
	engine   *description.Engine
	settings SettingsSource
}

func NewBuilder(engine *description.Engine, settings SettingsSource) *Builder {
	return &Builder{engine: engine, settings: settings}
}

func (b *Builder) Build(ctx context.Context, req Request) (*models.PostData, error) {
	def := req.DefaultPart
	if def == nil {
		def = &models.SubmissionPart{IsDefault: true}
	}
	part := req.Part
	info := req.Website.Info()

	advertise := false
	if b.settings != nil {
		s, err := b.settings.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		advertise = s != nil && s.Advertise
	}

	data := &models.PostData{
		Submission:     req.Submission,
		Part:           part,
		Title:          first(part.Options.Title, def.Options.Title, req.Submission.Title),
		Rating:         first(part.Options.Rating, def.Options.Rating),
		ContentWarning: first(part.Options.ContentWarning, def.Options.ContentWarning),
	}

	tags, err := b.engine.Tags(ctx, info.ID, def.Options.Tags, part.Options.Tags)
	if err != nil {
		return nil, err
	}
	data.Tags = tags

	_, data.DescriptionFromDefault = description.Combine(def.Options.Description, part.Options.Description)
	data.Description, err = b.engine.Description(ctx, description.Input{
		Website:        req.Website,
		Default:        def.Options.Description,
		Description:    part.Options.Description,
		Title:          data.Title,
		Tags:           tags,
		ContentWarning: data.ContentWarning,
		Advertise:      advertise,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build description: %w", err)
	}

	var sources []string
	sources = append(sources, req.Submission.Sources...)
	sources = append(sources, def.Options.Sources...)
	sources = append(sources, part.Options.Sources...)
	if info.AcceptsSourceURLs {
		sources = append(sources, req.Sources...)
	}
	data.Sources = unique(sources)

	if req.Submission.Type == models.SubmissionTypeFile && req.Files != nil {
		b.attachFiles(data, req, def)
	}
	return data, nil
}

func (b *Builder) attachFiles(data *models.PostData, req Request, def *models.SubmissionPart) {
	w := req.Website
	info := w.Info()
	files := req.Files

	data.Primary = files.Primary
	data.Thumbnail = files.Thumbnail
	data.Fallback = files.Fallback
	if info.AcceptsAdditionalFiles {
		data.Additional = files.Additional
	}

	if data.Primary != nil && !info.Accepts(data.Primary.ContentType) {
		switch {
		case files.Fallback != nil && info.Accepts(files.Fallback.ContentType):
			data.Primary = files.Fallback
		default:
			combined, _ := description.Combine(def.Options.Description, req.Part.Options.Description)
			text, mime := w.FallbackFileParser(combined)
			if info.Accepts(mime) {
				data.Primary = &models.FileBuffer{
					Buffer:      []byte(text),
					ContentType: mime,
					FileName:    strings.TrimSuffix(data.Primary.FileName, extension(data.Primary.FileName)) + ".txt",
				}
			}
		}
	}

	if req.Submission.Files == nil || req.Submission.Files.Primary == nil {
		return
	}
	if opts := w.ScalingOptions(req.Submission.Files.Primary); opts != nil && opts.MaxSize > 0 && data.Primary != nil && int64(len(data.Primary.Buffer)) > opts.MaxSize {
		slog.Warn("file exceeds destination size limit",
			"website", info.ID,
			"file", data.Primary.FileName,
			"size", len(data.Primary.Buffer),
			"max", opts.MaxSize,
		)
	}
}

func first(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func unique(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
