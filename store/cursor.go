package store

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/deep3/social/models"
)

// cursor marks the last row of a page in (created_at desc, id desc) order.
type cursor struct {
	CreatedAt time.Time
	ID        string
}

func encodeCursor(createdAt time.Time, id string) string {
	raw := strconv.FormatInt(createdAt.UTC().UnixNano(), 10) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (cursor, error) {
	invalid := &models.ValidationError{Field: "cursor", Reason: "is malformed"}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, invalid
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return cursor{}, invalid
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return cursor{}, invalid
	}
	return cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}
