package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSink struct {
	name  string
	err   error
	block chan struct{}

	mu     sync.Mutex
	events []RewardEarned
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, ev RewardEarned) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func event() RewardEarned {
	return RewardEarned{UserID: uuid.New(), PledgeID: uuid.New(), Category: "e", Points: 10, Gift: "Tote bag"}
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("smtp down")}
	ok := &recordingSink{name: "ok"}
	d := NewDispatcher(zap.NewNop(), 2, 8, failing, ok)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Publish(context.Background(), event()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Equal(t, 5, failing.count(), "a failing sink still sees every event")
	assert.Equal(t, 5, ok.count(), "a failing sink does not stop the others")
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &recordingSink{name: "slow", block: block}
	d := NewDispatcher(zap.NewNop(), 1, 1, sink)

	var dropped int
	for i := 0; i < 5; i++ {
		if err := d.Publish(context.Background(), event()); errors.Is(err, ErrQueueFull) {
			dropped++
		}
	}
	assert.GreaterOrEqual(t, dropped, 3)

	close(block)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 5-dropped, sink.count())
}

func TestDispatcher_PublishAfterClose(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 1, 1)
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	assert.ErrorIs(t, d.Publish(context.Background(), event()), ErrClosed)
}
