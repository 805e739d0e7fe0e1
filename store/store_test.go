package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/deep3/social/config"
	"github.com/deep3/social/events"
	"github.com/deep3/social/models"
)

type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := config.OpenDatabase(config.AppConfig{DBDriver: "sqlite", DatabaseURI: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	clk := &tickClock{t: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	return New(conn, append([]Option{WithClock(clk.Now)}, opts...)...), conn
}

func mustRegister(t *testing.T, s *Store, email string, role models.Role) *models.User {
	t.Helper()
	in := RegisterInput{Email: email, Password: "secret1", DisplayName: "Member " + string(role), Role: role}
	if role.RequiresWorkEmail() {
		in.WorkEmail = "staff@lincoln-high.edu"
	}
	u, err := s.Register(context.Background(), in)
	require.NoError(t, err)
	return u
}

func sessionOf(u *models.User) *models.Session {
	return models.NewSession(u, "test-token", time.Now())
}

func mustAdmin(t *testing.T, s *Store) *models.Session {
	t.Helper()
	u := mustRegister(t, s, "admin-"+uuid.NewString()[:8]+"@example.org", models.RoleParent)
	admin, err := s.GrantAdmin(context.Background(), u.Email)
	require.NoError(t, err)
	return sessionOf(admin)
}

func mustPost(t *testing.T, s *Store, sess *models.Session, content string, tags ...string) *models.Post {
	t.Helper()
	if len(tags) == 0 {
		tags = []string{"general"}
	}
	p, err := s.CreatePost(context.Background(), sess, CreatePostInput{Content: content, Tags: tags})
	require.NoError(t, err)
	return p
}

func TestRegister(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.Register(ctx, RegisterInput{
		Email: "  Ms.Rivera@Example.org ", Password: "secret1", DisplayName: "Ms Rivera",
		Role: models.RoleTeacher, WorkEmail: "rivera@lincoln-high.edu",
	})
	require.NoError(t, err)
	assert.Equal(t, "ms.rivera@example.org", u.Email)
	assert.False(t, u.IsVerified)
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, u.NeedsVerification())

	_, err = s.Register(ctx, RegisterInput{
		Email: "MS.RIVERA@example.org", Password: "secret1", DisplayName: "Dup",
		Role: models.RoleParent,
	})
	assert.ErrorIs(t, err, ErrConflict)

	parent, err := s.Register(ctx, RegisterInput{Email: "dad@gmail.com", Password: "secret1", DisplayName: "Dad", Role: models.RoleParent})
	require.NoError(t, err)
	assert.True(t, parent.Trusted())
}

func TestRegisterRejects(t *testing.T) {
	s, _ := newTestStore(t)
	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"admin role", RegisterInput{Email: "a@example.org", Password: "secret1", DisplayName: "A", Role: models.RoleAdmin}, "role"},
		{"short password", RegisterInput{Email: "b@example.org", Password: "12345", DisplayName: "B", Role: models.RoleParent}, "password"},
		{"teacher without work email", RegisterInput{Email: "c@example.org", Password: "secret1", DisplayName: "C", Role: models.RoleTeacher}, "work_email"},
		{"educator with webmail", RegisterInput{Email: "d@example.org", Password: "secret1", DisplayName: "D", Role: models.RoleEducator, WorkEmail: "d@Gmail.com"}, "work_email"},
		{"unknown role", RegisterInput{Email: "e@example.org", Password: "secret1", DisplayName: "E", Role: "student"}, "role"},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "secret1", DisplayName: "F", Role: models.RoleParent}, "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tc.in)
			require.ErrorIs(t, err, ErrValidation)
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustRegister(t, s, "parent@example.org", models.RoleParent)

	got, err := s.Authenticate(ctx, "PARENT@example.org", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "parent@example.org", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody@example.org", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustRegister(t, s, "teacher@example.org", models.RoleTeacher)

	bio := "Year 5 teacher, <b>science</b> lover"
	pic := "https://cdn.example.org/profile-pictures/me.png"
	updated, err := s.UpdateProfile(ctx, sessionOf(u), ProfileUpdate{Bio: &bio, ProfilePicture: &pic})
	require.NoError(t, err)
	assert.Equal(t, "Year 5 teacher, science lover", updated.Bio)
	assert.Equal(t, pic, updated.ProfilePicture)

	reloaded, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Bio, reloaded.Bio)

	bad := "not a url"
	_, err = s.UpdateProfile(ctx, sessionOf(u), ProfileUpdate{BannerImage: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.UpdateProfile(ctx, nil, ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGetUserNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "user", nf.Entity)
}

func TestGrantAdmin(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustRegister(t, s, "head@example.org", models.RoleEducator)

	admin, err := s.GrantAdmin(ctx, "HEAD@example.org")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.IsVerified)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	sess, err := s.SessionFor(ctx, u.ID, "jti")
	require.NoError(t, err)
	assert.True(t, sess.IsAdmin)

	_, err = s.GrantAdmin(ctx, "ghost@example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUnavailable(t *testing.T) {
	s, conn := newTestStore(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = s.ListPosts(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestWrapKeepsDomainErrors(t *testing.T) {
	assert.ErrorIs(t, wrap("op", notFound("post", "x")), ErrNotFound)
	assert.ErrorIs(t, wrap("op", gorm.ErrDuplicatedKey), ErrConflict)
	assert.ErrorIs(t, wrap("op", context.DeadlineExceeded), ErrStoreUnavailable)
	assert.Nil(t, wrap("op", nil))
	assert.True(t, strings.HasPrefix(wrap("op", assert.AnError).Error(), "op: "))
}
