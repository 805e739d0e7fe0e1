// Package store is the content store: users, posts, comments, moderation and the NFT drafts.
// Every operation takes the caller's session explicitly and runs under a per-call deadline.
package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/deep3/social/events"
	"github.com/deep3/social/models"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Store reads and writes the social graph through gorm.
type Store struct {
	db      *gorm.DB
	now     func() time.Time
	timeout time.Duration
	events  events.Publisher
	log     *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTimeout bounds every store call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPublisher sends domain events after successful writes.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger sets the logger used for non fatal problems.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds a Store on top of an open, migrated connection.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		now:     time.Now,
		timeout: DefaultTimeout,
		events:  events.Nop{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) begin(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(opCtx), cancel
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

func (s *Store) publish(ctx context.Context, typ, actorID, targetID string, data map[string]any) {
	s.events.Publish(ctx, events.Event{
		Type:     typ,
		ActorID:  actorID,
		TargetID: targetID,
		Data:     data,
		At:       s.clock(),
	})
}

func zapUser(u *models.User) []zap.Field {
	return []zap.Field{zap.String("user_id", u.ID), zap.String("role", string(u.Role))}
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}
