package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deep3/social/models"
)

// Category groups uploads by where they are shown.
type Category string

const (
	CategoryProfilePicture Category = "profile-pictures"
	CategoryBanner         Category = "banner-images"
	CategoryPostMedia      Category = "post-media"
)

// ParseCategory accepts the public category names.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryProfilePicture, CategoryBanner, CategoryPostMedia:
		return c, nil
	case "":
		return CategoryPostMedia, nil
	default:
		return "", &models.ValidationError{Field: "category", Reason: "must be one of: profile-pictures banner-images post-media"}
	}
}

// UploadErrorKind classifies why an upload was refused.
type UploadErrorKind string

const (
	KindTooLarge        UploadErrorKind = "too_large"
	KindUnsupportedType UploadErrorKind = "unsupported_type"
	KindTransport       UploadErrorKind = "transport"
)

// UploadError is returned for every refused or failed upload.
type UploadError struct {
	Kind UploadErrorKind
	Msg  string
	Err  error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("upload %s: %s", e.Kind, e.Msg)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Recorder persists upload metadata.
type Recorder interface {
	RecordUpload(ctx context.Context, f *models.UploadedFile) error
}

// Uploader validates media and writes it to the primary backend, falling back to disk.
type Uploader struct {
	primary  ObjectStorage
	fallback ObjectStorage
	maxBytes int64
	recorder Recorder
	log      *zap.Logger
	now      func() time.Time
}

// NewUploader wires an uploader. fallback and recorder may be nil.
func NewUploader(primary, fallback ObjectStorage, maxBytes int64, recorder Recorder, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	if fallback != nil && primary != nil && fallback.Name() == primary.Name() {
		fallback = nil
	}
	return &Uploader{primary: primary, fallback: fallback, maxBytes: maxBytes, recorder: recorder, log: log, now: time.Now}
}

// MaxBytes is the largest accepted upload.
func (u *Uploader) MaxBytes() int64 { return u.maxBytes }

// Upload stores one file for ownerID and returns its record. entityID groups
// post media under the post it belongs to and is ignored for other categories.
func (u *Uploader) Upload(ctx context.Context, ownerID string, category Category, entityID, filename, declaredType string, r io.Reader) (*models.UploadedFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, &UploadError{Kind: KindTransport, Msg: "read body", Err: err}
	}
	if int64(len(data)) > u.maxBytes {
		return nil, &UploadError{Kind: KindTooLarge, Msg: fmt.Sprintf("file exceeds %d bytes", u.maxBytes)}
	}
	if len(data) == 0 {
		return nil, &UploadError{Kind: KindUnsupportedType, Msg: "file is empty"}
	}
	contentType, err := sniff(data, declaredType)
	if err != nil {
		return nil, err
	}

	key := u.objectKey(ownerID, category, entityID, filename, contentType)
	backend, err := u.put(ctx, key, data, contentType)
	if err != nil {
		return nil, err
	}

	rec := &models.UploadedFile{
		OwnerID:     ownerID,
		Category:    string(category),
		Key:         key,
		URL:         backend.URL(key),
		Backend:     backend.Name(),
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if u.recorder != nil {
		if err := u.recorder.RecordUpload(ctx, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (u *Uploader) put(ctx context.Context, key string, data []byte, contentType string) (ObjectStorage, error) {
	err := u.primary.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err == nil {
		return u.primary, nil
	}
	if u.fallback == nil {
		return nil, &UploadError{Kind: KindTransport, Msg: "store object", Err: err}
	}
	u.log.Warn("primary storage failed, writing to fallback",
		zap.String("backend", u.primary.Name()), zap.String("key", key), zap.Error(err))
	if ferr := u.fallback.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); ferr != nil {
		return nil, &UploadError{Kind: KindTransport, Msg: "store object", Err: ferr}
	}
	return u.fallback, nil
}

// sniff decides the stored content type from the bytes and the client's claim.
// Containers the sniffer cannot recognise are accepted on the declared type alone.
func sniff(data []byte, declared string) (string, error) {
	detected, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	claimed, _, _ := mime.ParseMediaType(declared)

	isMedia := func(t string) bool { return strings.HasPrefix(t, "image/") || strings.HasPrefix(t, "video/") }
	family := func(t string) string { return strings.SplitN(t, "/", 2)[0] }

	switch {
	case isMedia(detected):
		if claimed != "" && isMedia(claimed) && family(claimed) != family(detected) {
			return "", &UploadError{Kind: KindUnsupportedType, Msg: fmt.Sprintf("declared %s but content is %s", claimed, detected)}
		}
		return detected, nil
	case detected == "application/octet-stream" && isMedia(claimed):
		return claimed, nil
	default:
		return "", &UploadError{Kind: KindUnsupportedType, Msg: "only images and videos are accepted, got " + detected}
	}
}

// objectKey lays files out as {category}/{owner}/[{entity}/]{unix millis}-{name}.
func (u *Uploader) objectKey(ownerID string, category Category, entityID, filename, contentType string) string {
	dir := string(category) + "/" + safeName(ownerID)
	if category == CategoryPostMedia && strings.TrimSpace(entityID) != "" {
		dir += "/" + safeName(entityID)
	}
	name := safeName(filename)
	if path.Ext(name) == "" {
		name += extensionFor("", contentType)
	}
	return fmt.Sprintf("%s/%d-%s", dir, u.now().UnixMilli(), name)
}

const maxNameLen = 100

// safeName keeps the base name of a client supplied path and replaces every
// byte outside [A-Za-z0-9._-] with '-'.
func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.TrimLeft(b.String(), ".-")
	if len(out) > maxNameLen {
		ext := path.Ext(out)
		if len(ext) > 10 {
			ext = ""
		}
		out = out[:maxNameLen-len(ext)] + ext
	}
	if out == "" {
		return "file"
	}
	return out
}

func extensionFor(filename, contentType string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
