package store

import (
	"context"
	"strconv"
	"time"

	"github.com/deep3/social/models"
)

// FeedReader is the read side of the feed. Both *Store and *Fallback implement it.
type FeedReader interface {
	ListPosts(ctx context.Context, cursor string, pageSize int) (*Page, error)
}

var (
	_ FeedReader = (*Store)(nil)
	_ FeedReader = (*Fallback)(nil)
)

// Fallback serves a fixed set of sample posts when the database is unreachable.
type Fallback struct {
	posts []models.Post
}

// NewFallback builds the sample feed anchored at now.
func NewFallback(now time.Time) *Fallback {
	sample := []struct {
		author, content string
		tags            []string
		age             time.Duration
	}{
		{"sample-teacher", "Exit tickets changed how I plan tomorrow's lesson. Three questions, two minutes, one sticky note per student.", []string{"assessment", "planning"}, 2 * time.Hour},
		{"sample-educator", "Our school garden doubles as a fractions lab. Bed layouts are the best word problems.", []string{"math", "outdoorlearning"}, 6 * time.Hour},
		{"sample-parent", "Reading together for 15 minutes a night made a visible difference this term.", []string{"literacy", "family"}, 20 * time.Hour},
		{"sample-teacher", "Peer review rubrics co-written with the class get far better buy-in.", []string{"assessment", "studentvoice"}, 30 * time.Hour},
	}
	f := &Fallback{}
	for i, s := range sample {
		created := now.UTC().Add(-s.age)
		f.posts = append(f.posts, models.Post{
			ID:        "sample-" + strconv.Itoa(i+1),
			AuthorID:  s.author,
			Content:   s.content,
			Tags:      s.tags,
			MediaURLs: []string{},
			MediaType: models.MediaNone,
			CreatedAt: created,
			UpdatedAt: created,
			Likes:     []string{},
			Shares:    []string{},
			Comments:  []string{},
		})
	}
	return f
}

// ListPosts pages through the sample feed. Its cursor is a plain offset.
func (f *Fallback) ListPosts(_ context.Context, cursor string, pageSize int) (*Page, error) {
	pageSize = clampPageSize(pageSize)
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, &models.ValidationError{Field: "cursor", Reason: "is malformed"}
		}
		start = n
	}
	if start > len(f.posts) {
		start = len(f.posts)
	}
	end := start + pageSize
	if end > len(f.posts) {
		end = len(f.posts)
	}
	items := make([]models.Post, end-start)
	copy(items, f.posts[start:end])

	page := &Page{Items: items, HasMore: end < len(f.posts), Fallback: true}
	if page.HasMore {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}
