package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	cfg "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrUnknownFileType = errors.New("unknown file type")

// ObjectClient is the part of *s3.Client the file service uses.
type ObjectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// R2Service stores submission files in Cloudflare R2. Uploaded objects are
// public so destinations that pull by URL can read them.
type R2Service struct {
	client    ObjectClient
	bucket    string
	publicURL string
}

func NewR2Service(ctx context.Context, c cfg.R2) (*R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to load r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID))
	})
	return NewR2ServiceWithClient(client, c.BucketName, c.PublicURL), nil
}

func NewR2ServiceWithClient(client ObjectClient, bucket, publicURL string) *R2Service {
	return &R2Service{client: client, bucket: bucket, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// Upload sniffs data's type, stores it under a random key and returns the
// record to persist with the submission.
func (r *R2Service) Upload(ctx context.Context, name string, data []byte) (*models.FileRecord, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownFileType)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate file key: %w", err)
	}
	key := fmt.Sprintf("submissions/%s.%s", id, kind.Extension)

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(kind.MIME.Value),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return &models.FileRecord{
		Key:      key,
		Name:     name,
		MimeType: kind.MIME.Value,
		Size:     int64(len(data)),
		URL:      r.publicURL + "/" + key,
	}, nil
}

// Load reads a stored file's bytes.
func (r *R2Service) Load(ctx context.Context, rec *models.FileRecord) (*models.FileBuffer, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(rec.Key),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to fetch %s: %w", rec.Name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rec.Name, err)
	}

	contentType := rec.MimeType
	if contentType == "" {
		if kind, err := filetype.Match(data); err == nil && kind != types.Unknown {
			contentType = kind.MIME.Value
		}
	}

	return &models.FileBuffer{
		Buffer:      data,
		ContentType: contentType,
		FileName:    rec.Name,
		URL:         rec.URL,
	}, nil
}

func (r *R2Service) Delete(ctx context.Context, rec *models.FileRecord) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(rec.Key),
	})
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to delete %s: %w", rec.Name, err)
	}
	return nil
}
