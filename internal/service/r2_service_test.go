package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestR2UploadLoadDelete(t *testing.T) {
	objects := newFakeObjects()
	r2 := NewR2ServiceWithClient(objects, "bucket", "https://cdn.test/")
	ctx := context.Background()

	rec, err := r2.Upload(ctx, "art.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", rec.MimeType)
	assert.Equal(t, "art.png", rec.Name)
	assert.Equal(t, int64(len(pngBytes)), rec.Size)
	assert.Regexp(t, `^submissions/.+\.png$`, rec.Key)
	assert.Equal(t, "https://cdn.test/"+rec.Key, rec.URL)
	assert.Equal(t, "image/png", objects.types["bucket/"+rec.Key])

	buf, err := r2.Load(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, buf.Buffer)
	assert.Equal(t, "image/png", buf.ContentType)
	assert.Equal(t, rec.URL, buf.URL)

	rec.MimeType = ""
	buf, err = r2.Load(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "image/png", buf.ContentType)

	require.NoError(t, r2.Delete(ctx, rec))
	_, err = r2.Load(ctx, rec)
	assert.Error(t, err)
}

func TestR2UploadRejectsUnknownType(t *testing.T) {
	r2 := NewR2ServiceWithClient(newFakeObjects(), "bucket", "https://cdn.test")
	_, err := r2.Upload(context.Background(), "notes.bin", []byte("plain words"))
	assert.ErrorIs(t, err, ErrUnknownFileType)
}
