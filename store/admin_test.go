package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deep3/social/events"
	"github.com/deep3/social/models"
	"github.com/deep3/social/moderation"
)

func TestFlagApproveLifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestStore(t, WithPublisher(pub))
	ctx := context.Background()
	admin := mustAdmin(t, s)
	sess := sessionOf(mustRegister(t, s, "teacher@example.org", models.RoleTeacher))
	post := mustPost(t, s, sess, "borderline")

	err := s.FlagPost(ctx, sess, post.ID, "spam")
	assert.ErrorIs(t, err, ErrForbidden)

	err = s.FlagPost(ctx, admin, post.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, s.FlagPost(ctx, admin, post.ID, "off topic",
		moderation.WithAgent(models.AgentContentRelevance, 0.82)))
	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFlagged)
	assert.Equal(t, "off topic", got.FlagReason)

	require.NoError(t, s.FlagPost(ctx, admin, post.ID, "possible spam"))
	got, err = s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "possible spam", got.FlagReason)

	flagged, err := s.GetFlaggedPosts(ctx, admin)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, post.ID, flagged[0].ID)

	require.NoError(t, s.ApprovePost(ctx, admin, post.ID, "fine after review"))
	got, err = s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFlagged)
	assert.Empty(t, got.FlagReason)
	assert.True(t, got.IsModerated)
	assert.Equal(t, moderation.StateApproved, moderation.StateOf(got))

	err = s.ApprovePost(ctx, admin, post.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	err = s.RemovePost(ctx, admin, post.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	page, err := s.ListPosts(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	logs, err := s.ListModerationLogs(ctx, admin, 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, models.ActionApproved, logs[0].Action)
	first := logs[2]
	assert.Equal(t, models.ActionFlagged, first.Action)
	assert.Equal(t, models.TargetPost, first.TargetType)
	assert.Equal(t, admin.UserID, first.ModeratorID)
	assert.Equal(t, models.AgentContentRelevance, first.AgentType)
	require.NotNil(t, first.Confidence)
	assert.InDelta(t, 0.82, *first.Confidence, 1e-9)

	assert.Contains(t, pub.types(), events.PostFlagged)
	assert.Contains(t, pub.types(), events.PostApproved)
}

func TestFlagRemovedPostIsInvalid(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	admin := mustAdmin(t, s)
	sess := sessionOf(mustRegister(t, s, "teacher@example.org", models.RoleTeacher))
	post := mustPost(t, s, sess, "gone")

	require.NoError(t, s.FlagPost(ctx, admin, post.ID, "spam"))
	require.NoError(t, s.RemovePost(ctx, admin, post.ID, ""))

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "spam", got.RemovedReason)
	assert.Equal(t, moderation.StateRemoved, moderation.StateOf(got))

	assert.ErrorIs(t, s.FlagPost(ctx, admin, post.ID, "again"), ErrInvalidTransition)
	assert.ErrorIs(t, s.FlagPost(ctx, admin, "missing", "spam"), ErrNotFound)

	flagged, err := s.GetFlaggedPosts(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestVerifyUser(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestStore(t, WithPublisher(pub))
	ctx := context.Background()
	admin := mustAdmin(t, s)
	teacher := mustRegister(t, s, "teacher@example.org", models.RoleTeacher)
	parent := mustRegister(t, s, "parent@example.org", models.RoleParent)

	assert.ErrorIs(t, s.VerifyUser(ctx, sessionOf(parent), teacher.ID), ErrForbidden)

	require.NoError(t, s.VerifyUser(ctx, admin, teacher.ID))
	got, err := s.GetUser(ctx, teacher.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.True(t, got.Trusted())

	assert.ErrorIs(t, s.VerifyUser(ctx, admin, teacher.ID), ErrInvalidTransition)
	assert.ErrorIs(t, s.VerifyUser(ctx, admin, parent.ID), ErrInvalidTransition)
	assert.ErrorIs(t, s.VerifyUser(ctx, admin, "missing"), ErrNotFound)

	logs, err := s.ListModerationLogs(ctx, admin, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionVerifyUser, logs[0].Action)
	assert.Equal(t, models.TargetUser, logs[0].TargetType)
	assert.Equal(t, teacher.ID, logs[0].TargetID)
	assert.Contains(t, pub.types(), events.UserVerified)

	stats, err := s.AdminStats(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.VerifiedTeachers)
}

func TestSuspendUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	admin := mustAdmin(t, s)
	teacher := mustRegister(t, s, "teacher@example.org", models.RoleTeacher)

	assert.ErrorIs(t, s.SuspendUser(ctx, admin, teacher.ID, ""), ErrValidation)
	assert.ErrorIs(t, s.SuspendUser(ctx, admin, admin.UserID, "testing"), ErrInvalidTransition)

	require.NoError(t, s.SuspendUser(ctx, admin, teacher.ID, "harassment"))
	assert.ErrorIs(t, s.SuspendUser(ctx, admin, teacher.ID, "again"), ErrInvalidTransition)

	sess, err := s.SessionFor(ctx, teacher.ID, "jti")
	require.NoError(t, err)
	assert.True(t, sess.IsSuspended)
	_, err = s.CreatePost(ctx, sess, CreatePostInput{Content: "still here", Tags: []string{"x"}})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := s.GetUser(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, "harassment", got.SuspendedReason)
}

func TestModerationLogIsAppendOnly(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	admin := mustAdmin(t, s)
	teacher := mustRegister(t, s, "teacher@example.org", models.RoleTeacher)
	require.NoError(t, s.VerifyUser(ctx, admin, teacher.ID))

	var entry models.ModerationLog
	require.NoError(t, conn.First(&entry).Error)

	err := conn.Model(&entry).Update("reason", "rewritten").Error
	assert.ErrorIs(t, err, models.ErrLogImmutable)
	err = conn.Delete(&entry).Error
	assert.ErrorIs(t, err, models.ErrLogImmutable)

	var n int64
	require.NoError(t, conn.Model(&models.ModerationLog{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestAdminReadsRequireAdmin(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	sess := sessionOf(mustRegister(t, s, "teacher@example.org", models.RoleTeacher))

	_, err := s.GetAllUsers(ctx, sess)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.GetFlaggedPosts(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.ListModerationLogs(ctx, sess, 10)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.AdminStats(ctx, sess)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAdminStatsAndUsers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	admin := mustAdmin(t, s)
	sess := sessionOf(mustRegister(t, s, "teacher@example.org", models.RoleTeacher))
	mustRegister(t, s, "parent@example.org", models.RoleParent)

	p := mustPost(t, s, sess, "one")
	mustPost(t, s, sess, "two")
	require.NoError(t, s.FlagPost(ctx, admin, p.ID, "check"))

	stats, err := s.AdminStats(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalUsers)
	assert.EqualValues(t, 0, stats.VerifiedTeachers)
	assert.EqualValues(t, 2, stats.PostsToday)
	assert.EqualValues(t, 1, stats.FlaggedContent)

	users, err := s.GetAllUsers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "parent@example.org", users[0].Email)
}
