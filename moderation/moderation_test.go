package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deep3/social/models"
)

func TestNextPostState(t *testing.T) {
	cases := []struct {
		from   PostState
		action models.ModerationAction
		want   PostState
		ok     bool
	}{
		{StateActive, models.ActionFlagged, StateFlagged, true},
		{StateApproved, models.ActionFlagged, StateFlagged, true},
		{StateFlagged, models.ActionFlagged, StateFlagged, true},
		{StateFlagged, models.ActionApproved, StateApproved, true},
		{StateFlagged, models.ActionRemoved, StateRemoved, true},
		{StateActive, models.ActionApproved, StateActive, false},
		{StateActive, models.ActionRemoved, StateActive, false},
		{StateRemoved, models.ActionFlagged, StateRemoved, false},
		{StateRemoved, models.ActionApproved, StateRemoved, false},
	}
	for _, tc := range cases {
		got, err := NextPostState(tc.from, tc.action)
		assert.Equal(t, tc.want, got, "%s + %s", tc.from, tc.action)
		if tc.ok {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateActive, StateOf(&models.Post{}))
	assert.Equal(t, StateFlagged, StateOf(&models.Post{IsFlagged: true}))
	assert.Equal(t, StateApproved, StateOf(&models.Post{IsModerated: true}))
	assert.Equal(t, StateRemoved, StateOf(&models.Post{IsRemoved: true, IsFlagged: true}))
}

func TestAuthorize(t *testing.T) {
	assert.ErrorIs(t, Authorize(nil, models.ActionFlagged), ErrUnauthenticated)
	assert.ErrorIs(t, Authorize(&models.Session{UserID: "u"}, models.ActionFlagged), ErrForbidden)
	assert.NoError(t, Authorize(&models.Session{UserID: "a", IsAdmin: true}, models.ActionFlagged))
}

func TestCanParticipate(t *testing.T) {
	assert.NoError(t, CanParticipate(&models.Session{UserID: "u"}))
	assert.ErrorIs(t, CanParticipate(&models.Session{UserID: "u", IsSuspended: true}), ErrForbidden)
}

func TestCheckVerify(t *testing.T) {
	assert.NoError(t, CheckVerify(&models.User{Role: models.RoleTeacher}))
	assert.ErrorIs(t, CheckVerify(&models.User{Role: models.RoleParent}), ErrInvalidTransition)
	assert.ErrorIs(t, CheckVerify(&models.User{Role: models.RoleEducator, IsVerified: true}), ErrInvalidTransition)
}

func TestCheckSuspend(t *testing.T) {
	admin := &models.Session{UserID: "admin", IsAdmin: true}
	assert.ErrorIs(t, CheckSuspend(admin, &models.User{ID: "u1"}, " "), models.ErrValidation)
	assert.ErrorIs(t, CheckSuspend(admin, &models.User{ID: "admin"}, "spam"), ErrInvalidTransition)
	assert.ErrorIs(t, CheckSuspend(admin, &models.User{ID: "u1", IsSuspended: true}, "spam"), ErrInvalidTransition)
	assert.NoError(t, CheckSuspend(admin, &models.User{ID: "u1"}, "spam"))
}

func TestNewLog(t *testing.T) {
	admin := &models.Session{UserID: "admin", IsAdmin: true}
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	entry, err := NewLog(admin, models.ActionFlagged, models.TargetPost, "p1", " spam ", at,
		WithAgent(models.AgentSafetyMonitoring, 0.92))
	require.NoError(t, err)
	assert.Equal(t, "spam", entry.Reason)
	assert.Equal(t, "admin", entry.ModeratorID)
	require.NotNil(t, entry.Confidence)
	assert.InDelta(t, 0.92, *entry.Confidence, 1e-9)

	_, err = NewLog(admin, models.ActionFlagged, models.TargetPost, "p1", "x", at,
		WithAgent(models.AgentSafetyMonitoring, 2))
	assert.ErrorIs(t, err, models.ErrValidation)
}
