package store

import (
	"context"

	"github.com/deep3/social/models"
)

// RecordUpload stores where an uploaded file landed.
func (s *Store) RecordUpload(ctx context.Context, f *models.UploadedFile) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.clock()
	}
	db, cancel := s.begin(ctx)
	defer cancel()
	return wrap("record upload", db.Create(f).Error)
}
