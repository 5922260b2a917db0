// Package storetest is a behavioural test suite run against every
// store.Store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the suite. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("Pledges", func(t *testing.T) { testPledges(t, newStore(t)) })
	t.Run("Completions", func(t *testing.T) { testCompletions(t, newStore(t)) })
	t.Run("CascadeDelete", func(t *testing.T) { testCascadeDelete(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Awards", func(t *testing.T) { testAwards(t, newStore(t)) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
}

func testPledges(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := &models.Pledge{Category: models.CategoryE, PledgeText: "Plant a tree", ImageURL: models.DefaultImage, Points: 10}
	require.NoError(t, s.CreatePledge(ctx, first))
	require.NotEqual(t, uuid.Nil, first.ID)
	time.Sleep(5 * time.Millisecond)
	second := &models.Pledge{Category: models.CategoryE, PledgeText: "Bike to work", ImageURL: "/uploads/bike.png", Points: 5}
	require.NoError(t, s.CreatePledge(ctx, second))
	other := &models.Pledge{Category: models.CategoryS, PledgeText: "Volunteer", ImageURL: models.DefaultImage}
	require.NoError(t, s.CreatePledge(ctx, other))

	list, err := s.ListPledges(ctx, models.CategoryE)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "insertion order")
	assert.Equal(t, second.ID, list[1].ID)

	empty, err := s.ListPledges(ctx, models.CategoryG)
	require.NoError(t, err)
	assert.Empty(t, empty)

	got, err := s.GetPledge(ctx, models.CategoryE, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plant a tree", got.PledgeText)
	assert.Equal(t, 10, got.Points)

	_, err = s.GetPledge(ctx, models.CategoryS, first.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got.Points = 0
	got.Gift = "Tote bag"
	require.NoError(t, s.UpdatePledge(ctx, got))
	got, err = s.GetPledge(ctx, models.CategoryE, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Points)
	assert.Equal(t, "Tote bag", got.Gift)

	missing := &models.Pledge{ID: uuid.New(), Category: models.CategoryE, PledgeText: "x"}
	assert.ErrorIs(t, s.UpdatePledge(ctx, missing), models.ErrNotFound)

	refs, err := s.PledgeImageRefs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.DefaultImage, "/uploads/bike.png"}, refs)
}

func testCompletions(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := &models.User{Email: "ada@example.com", PasswordHash: "x", Name: "Ada"}
	require.NoError(t, s.CreateUser(ctx, user))
	pledge := &models.Pledge{Category: models.CategoryG, PledgeText: "Read the policy", ImageURL: models.DefaultImage, Points: 7}
	require.NoError(t, s.CreatePledge(ctx, pledge))

	_, err := s.FindCompletion(ctx, user.ID, pledge.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	rec := &models.CompletionRecord{UserID: user.ID, PledgeID: pledge.ID, Category: models.CategoryG}
	require.NoError(t, s.CreateCompletion(ctx, rec))

	dup := &models.CompletionRecord{UserID: user.ID, PledgeID: pledge.ID, Category: models.CategoryG}
	assert.ErrorIs(t, s.CreateCompletion(ctx, dup), models.ErrConflict, "(user, pledge) is unique")

	pending, err := s.ListUserCompletions(ctx, user.ID, models.CategoryG, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].Pledge)
	assert.Equal(t, pledge.ID, pending[0].Pledge.ID)

	done, err := s.ListUserCompletions(ctx, user.ID, models.CategoryG, true)
	require.NoError(t, err)
	assert.Empty(t, done)

	at := time.Now().UTC().Truncate(time.Millisecond)
	flipped, err := s.MarkCompleted(ctx, rec.ID, 7, at)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = s.MarkCompleted(ctx, rec.ID, 99, at)
	require.NoError(t, err)
	assert.False(t, flipped, "second flip is a no-op")

	found, err := s.FindCompletion(ctx, user.ID, pledge.ID)
	require.NoError(t, err)
	assert.True(t, found.IsCompleted)
	assert.Equal(t, 7, found.Points)
	require.NotNil(t, found.CompletedAt)
	assert.WithinDuration(t, at, *found.CompletedAt, time.Second)

	scanned, err := s.ScanCompleted(ctx, models.CategoryG)
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	require.NotNil(t, scanned[0].User)
	require.NotNil(t, scanned[0].Pledge)
	assert.Equal(t, "Ada", scanned[0].User.Name)

	none, err := s.ScanCompleted(ctx, models.CategoryE)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCascadeDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := &models.User{Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, user))
	doomed := &models.Pledge{Category: models.CategoryE, PledgeText: "Doomed", ImageURL: models.DefaultImage, Points: 3}
	require.NoError(t, s.CreatePledge(ctx, doomed))
	kept := &models.Pledge{Category: models.CategoryE, PledgeText: "Kept", ImageURL: models.DefaultImage, Points: 4}
	require.NoError(t, s.CreatePledge(ctx, kept))

	for _, p := range []*models.Pledge{doomed, kept} {
		rec := &models.CompletionRecord{UserID: user.ID, PledgeID: p.ID, Category: models.CategoryE}
		require.NoError(t, s.CreateCompletion(ctx, rec))
		_, err := s.MarkCompleted(ctx, rec.ID, p.Points, time.Now())
		require.NoError(t, err)
	}

	assert.ErrorIs(t, s.DeletePledge(ctx, models.CategoryS, doomed.ID), models.ErrNotFound)
	require.NoError(t, s.DeletePledge(ctx, models.CategoryE, doomed.ID))
	assert.ErrorIs(t, s.DeletePledge(ctx, models.CategoryE, doomed.ID), models.ErrNotFound)

	_, err := s.FindCompletion(ctx, user.ID, doomed.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	scanned, err := s.ScanCompleted(ctx, models.CategoryE)
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	assert.Equal(t, kept.ID, scanned[0].PledgeID)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := &models.User{Email: "  Ada@Example.com ", PasswordHash: "x", Name: "Ada"}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.Equal(t, models.RoleUser, user.Role)

	dup := &models.User{Email: "ada@example.com", PasswordHash: "y"}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), models.ErrConflict)

	got, err := s.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.SetUserRole(ctx, "ada@example.com", models.RoleAdmin))
	assert.ErrorIs(t, s.SetUserRole(ctx, "nobody@example.com", models.RoleAdmin), models.ErrNotFound)

	require.NoError(t, s.SetDeviceToken(ctx, user.ID, "fcm-token"))
	got, err = s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
	assert.Equal(t, "fcm-token", got.DeviceToken)
}

func testAwards(t *testing.T, s store.Store) {
	ctx := context.Background()
	award := &models.Award{Category: models.CategoryS, Title: "Community Hero", Description: "10 social pledges"}
	require.NoError(t, s.CreateAward(ctx, award))

	list, err := s.ListAwards(ctx, models.CategoryS)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = s.GetAward(ctx, models.CategoryE, award.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	award.Icon = "star"
	require.NoError(t, s.UpdateAward(ctx, award))
	got, err := s.GetAward(ctx, models.CategoryS, award.ID)
	require.NoError(t, err)
	assert.Equal(t, "star", got.Icon)

	require.NoError(t, s.DeleteAward(ctx, models.CategoryS, award.ID))
	assert.ErrorIs(t, s.DeleteAward(ctx, models.CategoryS, award.ID), models.ErrNotFound)
}

func testNotifications(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := uuid.New()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n := &models.Notification{UserID: userID, Type: models.NotificationPledgeCompleted, Title: "Reward"}
		require.NoError(t, s.CreateNotification(ctx, n))
		ids = append(ids, n.ID)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: uuid.New(), Type: "other", Title: "x"}))

	page, err := s.ListNotifications(ctx, userID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.EqualValues(t, 3, page.Unread)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, ids[2], page.Notifications[0].ID, "newest first")

	require.NoError(t, s.MarkNotificationRead(ctx, userID, ids[0]))
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, uuid.New(), ids[1]), models.ErrNotFound, "only the owner can mark")

	page, err = s.ListNotifications(ctx, userID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.EqualValues(t, 2, page.Unread)

	require.NoError(t, s.MarkAllNotificationsRead(ctx, userID))
	page, err = s.ListNotifications(ctx, userID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Unread)
}
