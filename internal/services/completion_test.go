package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestComplete_Idempotent(t *testing.T) {
	db := newStore(t)
	pub := &recordingPublisher{}
	svc := NewCompletionService(db, pub, zap.NewNop())
	ctx := context.Background()

	user := newUser(t, db, "ada@example.com", "Ada")
	pledge := newPledge(t, db, models.CategoryE, "Plant a tree", 10)

	rec, transitioned, err := svc.Complete(ctx, principal(user), models.CategoryE, pledge.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.True(t, rec.IsCompleted)
	assert.Equal(t, 10, rec.Points)
	require.NotNil(t, rec.CompletedAt)

	again, transitioned, err := svc.Complete(ctx, principal(user), models.CategoryE, pledge.ID)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, rec.ID, again.ID)

	require.Equal(t, 1, pub.count(), "only the transition emits an event")
	ev := pub.events[0]
	assert.Equal(t, user.ID, ev.UserID)
	assert.Equal(t, "Ada", ev.Name)
	assert.Equal(t, "ada@example.com", ev.Email)
	assert.Equal(t, "Plant a tree", ev.PledgeText)
	assert.Equal(t, 10, ev.Points)
}

func TestComplete_PointsSnapshot(t *testing.T) {
	db := newStore(t)
	svc := NewCompletionService(db, &recordingPublisher{}, zap.NewNop())
	ctx := context.Background()

	user := newUser(t, db, "ada@example.com", "Ada")
	pledge := newPledge(t, db, models.CategoryS, "Volunteer", 10)

	_, _, err := svc.Complete(ctx, principal(user), models.CategoryS, pledge.ID)
	require.NoError(t, err)

	pledge.Points = 50
	require.NoError(t, db.UpdatePledge(ctx, pledge))

	rec, err := db.FindCompletion(ctx, user.ID, pledge.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Points)

	board, err := NewRankingService(db, zap.NewNop()).Compute(ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 10, board[0].S)
	assert.Equal(t, 10, board[0].Total)
}

func TestComplete_NotFound(t *testing.T) {
	db := newStore(t)
	svc := NewCompletionService(db, &recordingPublisher{}, zap.NewNop())
	ctx := context.Background()

	user := newUser(t, db, "ada@example.com", "Ada")
	pledge := newPledge(t, db, models.CategoryE, "Plant a tree", 10)

	_, _, err := svc.Complete(ctx, principal(user), models.CategoryE, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, _, err = svc.Complete(ctx, principal(user), models.CategoryG, pledge.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "pledge ids are scoped to their category")

	_, _, err = svc.Complete(ctx, models.Principal{}, models.CategoryE, pledge.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestComplete_FlipsExistingIncompleteRecord(t *testing.T) {
	db := newStore(t)
	pub := &recordingPublisher{}
	svc := NewCompletionService(db, pub, zap.NewNop())
	ctx := context.Background()

	user := newUser(t, db, "ada@example.com", "Ada")
	pledge := newPledge(t, db, models.CategoryG, "Read the policy", 7)
	require.NoError(t, db.CreateCompletion(ctx, &models.CompletionRecord{
		UserID: user.ID, PledgeID: pledge.ID, Category: models.CategoryG,
	}))

	rec, transitioned, err := svc.Complete(ctx, principal(user), models.CategoryG, pledge.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, 7, rec.Points)
	assert.Equal(t, 1, pub.count())
}

func TestComplete_PublishFailureDoesNotFail(t *testing.T) {
	db := newStore(t)
	svc := NewCompletionService(db, &recordingPublisher{err: errors.New("queue full")}, zap.NewNop())

	user := newUser(t, db, "ada@example.com", "Ada")
	pledge := newPledge(t, db, models.CategoryE, "Plant a tree", 10)

	_, transitioned, err := svc.Complete(context.Background(), principal(user), models.CategoryE, pledge.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)
}

func TestComplete_ConcurrentSingleTransition(t *testing.T) {
	db := newStore(t)
	pub := &recordingPublisher{}
	svc := NewCompletionService(db, pub, zap.NewNop())
	ctx := context.Background()

	user := newUser(t, db, "ada@example.com", "Ada")
	pledge := newPledge(t, db, models.CategoryE, "Plant a tree", 10)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan bool, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, transitioned, err := svc.Complete(ctx, principal(user), models.CategoryE, pledge.ID)
			if err != nil {
				errs <- err
				return
			}
			results <- transitioned
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	transitions := 0
	for r := range results {
		if r {
			transitions++
		}
	}
	assert.Equal(t, 1, transitions)
	assert.Equal(t, 1, pub.count())

	var count int64
	require.NoError(t, db.DB().Model(&models.CompletionRecord{}).
		Where("user_id = ? AND pledge_id = ?", user.ID, pledge.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCompleted_SkipsVanishedPledges(t *testing.T) {
	db := newStore(t)
	svc := NewCompletionService(db, &recordingPublisher{}, zap.NewNop())
	ctx := context.Background()

	user := newUser(t, db, "ada@example.com", "Ada")
	kept := newPledge(t, db, models.CategoryE, "Plant a tree", 10)
	gone := newPledge(t, db, models.CategoryE, "Bike to work", 5)
	for _, p := range []*models.Pledge{kept, gone} {
		_, _, err := svc.Complete(ctx, principal(user), models.CategoryE, p.ID)
		require.NoError(t, err)
	}
	// Remove the pledge row only, leaving its completion behind.
	require.NoError(t, db.DB().Delete(&models.Pledge{}, "id = ?", gone.ID).Error)

	list, err := svc.Completed(ctx, user.ID, models.CategoryE)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].Pledge.ID)
	assert.Equal(t, 10, list[0].Points)
}
