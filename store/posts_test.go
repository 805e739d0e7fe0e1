package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deep3/social/events"
	"github.com/deep3/social/models"
)

func TestCreatePost(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestStore(t, WithPublisher(pub))
	ctx := context.Background()
	u := mustRegister(t, s, "teacher@example.org", models.RoleTeacher)

	post, err := s.CreatePost(ctx, sessionOf(u), CreatePostInput{
		Content:   "Fraction walls <script>alert(1)</script>work wonders",
		Tags:      []string{"#Math", " math ", "Science"},
		MediaURLs: []string{"https://cdn.example.org/post-media/wall.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "science"}, []string(post.Tags))
	assert.Equal(t, models.MediaImage, post.MediaType)
	assert.NotContains(t, post.Content, "script")
	assert.Equal(t, []string{events.PostCreated}, pub.types())

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.AuthorID)
	assert.Empty(t, got.Likes)
	assert.NotNil(t, got.Likes)
	assert.Equal(t, post.CreatedAt.Unix(), got.CreatedAt.Unix())

	author, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, author.Stats.Posts)

	video, err := s.CreatePost(ctx, sessionOf(u), CreatePostInput{
		Content: "Lab demo", Tags: []string{"science"},
		MediaURLs: []string{"https://cdn.example.org/post-media/demo.MP4?x=1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MediaVideo, video.MediaType)
}

func TestCreatePostRejects(t *testing.T) {
	pub := &recordingPublisher{}
	s, conn := newTestStore(t, WithPublisher(pub))
	ctx := context.Background()
	u := mustRegister(t, s, "teacher@example.org", models.RoleTeacher)
	sess := sessionOf(u)

	_, err := s.CreatePost(ctx, sess, CreatePostInput{Content: "no tags"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreatePost(ctx, sess, CreatePostInput{Content: "   ", Tags: []string{"x"}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreatePost(ctx, sess, CreatePostInput{
		Content: "mismatch", Tags: []string{"x"}, MediaType: models.MediaNone,
		MediaURLs: []string{"https://cdn.example.org/a.png"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreatePost(ctx, nil, CreatePostInput{Content: "hi", Tags: []string{"x"}})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	suspended := *sess
	suspended.IsSuspended = true
	_, err = s.CreatePost(ctx, &suspended, CreatePostInput{Content: "hi", Tags: []string{"x"}})
	assert.ErrorIs(t, err, ErrForbidden)

	// the counter update finds no author, so the inserted post is rolled back
	ghost := &models.Session{UserID: "missing-user", Role: models.RoleParent}
	_, err = s.CreatePost(ctx, ghost, CreatePostInput{Content: "orphan", Tags: []string{"x"}})
	assert.ErrorIs(t, err, ErrNotFound)

	var posts int64
	require.NoError(t, conn.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
	author, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, author.Stats.Posts)
	assert.Empty(t, pub.types())
}

func TestListPostsPagination(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	sess := sessionOf(mustRegister(t, s, "teacher@example.org", models.RoleTeacher))

	var created []string
	for i := 0; i < 15; i++ {
		created = append(created, mustPost(t, s, sess, fmt.Sprintf("post %d", i)).ID)
	}

	first, err := s.ListPosts(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, first.Items, 10)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextCursor)
	assert.Equal(t, created[14], first.Items[0].ID)

	second, err := s.ListPosts(ctx, first.NextCursor, 10)
	require.NoError(t, err)
	require.Len(t, second.Items, 5)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, created[0], second.Items[4].ID)

	seen := map[string]bool{}
	for _, p := range append(first.Items, second.Items...) {
		assert.False(t, seen[p.ID], "post %s returned twice", p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, seen, 15)

	for i := 1; i < len(first.Items); i++ {
		assert.True(t, !first.Items[i].CreatedAt.After(first.Items[i-1].CreatedAt))
	}
}

func TestListPostsHidesFlaggedAndRemoved(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	admin := mustAdmin(t, s)
	sess := sessionOf(mustRegister(t, s, "teacher@example.org", models.RoleTeacher))

	keep := mustPost(t, s, sess, "keep")
	flagged := mustPost(t, s, sess, "flag me")
	removed := mustPost(t, s, sess, "remove me")
	require.NoError(t, s.FlagPost(ctx, admin, flagged.ID, "off topic"))
	require.NoError(t, s.FlagPost(ctx, admin, removed.ID, "spam"))
	require.NoError(t, s.RemovePost(ctx, admin, removed.ID, ""))

	page, err := s.ListPosts(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, keep.ID, page.Items[0].ID)
	assert.False(t, page.HasMore)
}

func TestListPostsBadCursor(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.ListPosts(context.Background(), "%%%not-base64", 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestToggleLike(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestStore(t, WithPublisher(pub))
	ctx := context.Background()
	u := mustRegister(t, s, "teacher@example.org", models.RoleTeacher)
	post := mustPost(t, s, sessionOf(u), "like me")

	liked, err := s.ToggleLike(ctx, sessionOf(u), post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID}, got.Likes)

	liked, err = s.ToggleLike(ctx, sessionOf(u), post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	got, err = s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)

	assert.Equal(t, []string{events.PostCreated, events.PostLiked, events.PostUnliked}, pub.types())

	_, err = s.ToggleLike(ctx, sessionOf(u), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentLikesFromDistinctUsers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	author := mustRegister(t, s, "author@example.org", models.RoleTeacher)
	post := mustPost(t, s, sessionOf(author), "popular")

	var users []*models.User
	for i := 0; i < 5; i++ {
		users = append(users, mustRegister(t, s, fmt.Sprintf("fan%d@example.org", i), models.RoleParent))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(users))
	for _, u := range users {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			liked, err := s.ToggleLike(ctx, sessionOf(u), post.ID)
			if err == nil && !liked {
				err = fmt.Errorf("user %s ended unliked", u.ID)
			}
			errs <- err
		}(u)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, len(users))
}

func TestSharePostKeepsRepeats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustRegister(t, s, "teacher@example.org", models.RoleTeacher)
	post := mustPost(t, s, sessionOf(u), "share me")

	n, err := s.SharePost(ctx, sessionOf(u), post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = s.SharePost(ctx, sessionOf(u), post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID, u.ID}, got.Shares)
}

func TestRemovedPostRejectsInteraction(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	admin := mustAdmin(t, s)
	sess := sessionOf(mustRegister(t, s, "teacher@example.org", models.RoleTeacher))
	post := mustPost(t, s, sess, "soon gone")

	require.NoError(t, s.FlagPost(ctx, admin, post.ID, "spam"))
	require.NoError(t, s.RemovePost(ctx, admin, post.ID, "confirmed spam"))

	_, err := s.ToggleLike(ctx, sess, post.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.SharePost(ctx, sess, post.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.AddComment(ctx, sess, post.ID, "hello?")
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRemoved)
	assert.Equal(t, "confirmed spam", got.RemovedReason)
}

func TestComments(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestStore(t, WithPublisher(pub))
	ctx := context.Background()
	author := sessionOf(mustRegister(t, s, "teacher@example.org", models.RoleTeacher))
	reader := sessionOf(mustRegister(t, s, "parent@example.org", models.RoleParent))
	post := mustPost(t, s, author, "thoughts?")

	c1, err := s.AddComment(ctx, reader, post.ID, "Love this")
	require.NoError(t, err)
	c2, err := s.AddComment(ctx, author, post.ID, "Thanks!")
	require.NoError(t, err)
	assert.Contains(t, pub.types(), events.CommentCreated)

	liked, err := s.ToggleCommentLike(ctx, author, c1.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	comments, err := s.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, c1.ID, comments[0].ID)
	assert.Equal(t, c2.ID, comments[1].ID)
	assert.Equal(t, []string{author.UserID}, comments[0].Likes)
	assert.Empty(t, comments[1].Likes)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c1.ID, c2.ID}, got.Comments)

	liked, err = s.ToggleCommentLike(ctx, author, c1.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = s.AddComment(ctx, reader, "missing", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.AddComment(ctx, reader, post.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.ListComments(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ToggleCommentLike(ctx, reader, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
