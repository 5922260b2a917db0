package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/arnold/esg-pledges-api/internal/database"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/notify"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func newStore(t *testing.T) *database.Store {
	t.Helper()
	db, err := database.Open(":memory:", logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newUser(t *testing.T, db *database.Store, email, name string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: name, PasswordHash: "x"}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func newPledge(t *testing.T, db *database.Store, category models.Category, text string, points int) *models.Pledge {
	t.Helper()
	p := &models.Pledge{Category: category, PledgeText: text, Gift: "Seed kit", ImageURL: models.DefaultImage, Points: points}
	require.NoError(t, db.CreatePledge(context.Background(), p))
	return p
}

func principal(u *models.User) models.Principal {
	return models.Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.RewardEarned
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.RewardEarned) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func fileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}
