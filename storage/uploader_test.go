package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deep3/social/models"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type brokenStorage struct{ puts int }

func (b *brokenStorage) EnsureBucket(context.Context) error { return nil }
func (b *brokenStorage) Put(context.Context, string, io.Reader, int64, string) error {
	b.puts++
	return errors.New("connection refused")
}
func (b *brokenStorage) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("unavailable")
}
func (b *brokenStorage) Delete(context.Context, string) error { return nil }
func (b *brokenStorage) Bucket() string                       { return "media" }
func (b *brokenStorage) URL(key string) string                { return "https://cdn.invalid/" + key }
func (b *brokenStorage) Name() string                         { return "minio" }

type memRecorder struct{ files []*models.UploadedFile }

func (m *memRecorder) RecordUpload(_ context.Context, f *models.UploadedFile) error {
	m.files = append(m.files, f)
	return nil
}

func TestUploadToDisk(t *testing.T) {
	dir := t.TempDir()
	rec := &memRecorder{}
	up := NewUploader(NewDisk(dir, "http://localhost:8080"), nil, 1<<20, rec, nil)

	f, err := up.Upload(context.Background(), "u1", CategoryProfilePicture, "", "Me.PNG", "image/png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "disk", f.Backend)
	assert.Equal(t, "image/png", f.ContentType)
	assert.True(t, strings.HasPrefix(f.Key, "profile-pictures/u1/"))
	assert.True(t, strings.HasSuffix(f.Key, "-Me.PNG"))
	assert.Equal(t, "http://localhost:8080/uploads/"+f.Key, f.URL)
	require.Len(t, rec.files, 1)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Key)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)
}

func TestUploadFallsBackToDisk(t *testing.T) {
	primary := &brokenStorage{}
	up := NewUploader(primary, NewDisk(t.TempDir(), ""), 1<<20, nil, nil)

	f, err := up.Upload(context.Background(), "u1", CategoryPostMedia, "", "lesson.png", "image/png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, 1, primary.puts)
	assert.Equal(t, "disk", f.Backend)
	assert.Equal(t, "/uploads/"+f.Key, f.URL)
}

func TestUploadTransportErrorWithoutFallback(t *testing.T) {
	up := NewUploader(&brokenStorage{}, nil, 1<<20, nil, nil)
	_, err := up.Upload(context.Background(), "u1", CategoryPostMedia, "", "a.png", "image/png", bytes.NewReader(pngBytes))
	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindTransport, ue.Kind)
}

func TestUploadRejectsLargeFile(t *testing.T) {
	up := NewUploader(NewDisk(t.TempDir(), ""), nil, 16, nil, nil)
	_, err := up.Upload(context.Background(), "u1", CategoryPostMedia, "", "a.png", "image/png", bytes.NewReader(pngBytes))
	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindTooLarge, ue.Kind)
}

func TestUploadRejectsNonMedia(t *testing.T) {
	up := NewUploader(NewDisk(t.TempDir(), ""), nil, 1<<20, nil, nil)
	ctx := context.Background()

	_, err := up.Upload(ctx, "u1", CategoryPostMedia, "", "notes.txt", "text/plain", strings.NewReader("just some lesson notes"))
	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindUnsupportedType, ue.Kind)

	_, err = up.Upload(ctx, "u1", CategoryPostMedia, "", "fake.png", "video/mp4", bytes.NewReader(pngBytes))
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindUnsupportedType, ue.Kind)
}

func TestUploadAcceptsUnsniffableVideoOnDeclaredType(t *testing.T) {
	up := NewUploader(NewDisk(t.TempDir(), ""), nil, 1<<20, nil, nil)
	data := bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 32)
	f, err := up.Upload(context.Background(), "u1", CategoryPostMedia, "", "clip.mov", "video/quicktime", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "video/quicktime", f.ContentType)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Banner-Images")
	require.NoError(t, err)
	assert.Equal(t, CategoryBanner, c)

	c, err = ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, CategoryPostMedia, c)

	_, err = ParseCategory("avatars")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDiskRejectsTraversal(t *testing.T) {
	d := NewDisk(t.TempDir(), "")
	err := d.Put(context.Background(), "../escape.png", bytes.NewReader(pngBytes), 0, "image/png")
	assert.Error(t, err)
}

func TestUploadKeyLayout(t *testing.T) {
	up := NewUploader(NewDisk(t.TempDir(), ""), nil, 1<<20, nil, nil)
	up.now = func() time.Time { return time.UnixMilli(1709542800123) }
	ctx := context.Background()

	cases := []struct {
		name     string
		category Category
		entity   string
		filename string
		declared string
		want     string
	}{
		{"profile", CategoryProfilePicture, "", "me.png", "image/png", "profile-pictures/u1/1709542800123-me.png"},
		{"banner ignores entity", CategoryBanner, "p1", "top.png", "image/png", "banner-images/u1/1709542800123-top.png"},
		{"post media under post", CategoryPostMedia, "p1", "lab.png", "image/png", "post-media/u1/p1/1709542800123-lab.png"},
		{"post media without post", CategoryPostMedia, "", "lab.png", "image/png", "post-media/u1/1709542800123-lab.png"},
		{"client path stripped", CategoryPostMedia, "", `C:\Users\kim\../Year 10 lab.png`, "image/png", "post-media/u1/1709542800123-Year-10-lab.png"},
		{"traversal entity", CategoryPostMedia, "../../etc", "x.png", "image/png", "post-media/u1/etc/1709542800123-x.png"},
		{"extension from type", CategoryPostMedia, "", "snapshot", "image/png", "post-media/u1/1709542800123-snapshot.png"},
		{"empty name", CategoryPostMedia, "", "", "image/png", "post-media/u1/1709542800123-file.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := up.Upload(ctx, "u1", tc.category, tc.entity, tc.filename, tc.declared, bytes.NewReader(pngBytes))
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.Key)
		})
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "file", safeName(".."))
	assert.Equal(t, "passwd", safeName("../../etc/passwd"))
	assert.Equal(t, "r-sum-.png", safeName("résumé.png"))
	long := safeName(strings.Repeat("a", 300) + ".png")
	assert.Len(t, long, maxNameLen)
	assert.True(t, strings.HasSuffix(long, ".png"))
}
