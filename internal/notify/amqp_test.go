package notify

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAMQP_RoundTrip(t *testing.T) {
	url := os.Getenv("AMQP_TEST_URL")
	if url == "" {
		t.Skip("AMQP_TEST_URL not set")
	}
	queue := "reward_events_test_" + time.Now().Format("150405.000")

	pub, err := NewAMQPPublisher(url, queue)
	require.NoError(t, err)
	defer pub.Close()

	consumer, err := NewAMQPConsumer(url, queue, zap.NewNop())
	require.NoError(t, err)
	defer consumer.Close()

	sink := &recordingSink{name: "rec"}
	d := NewDispatcher(zap.NewNop(), 1, 1, sink)
	defer d.Close(context.Background())

	ev := event()
	require.NoError(t, pub.Publish(context.Background(), ev))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx, d) }()

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, ev.PledgeID, sink.events[0].PledgeID)
}

type fakeChannel struct {
	mu        sync.Mutex
	failWith  error
	published [][]byte
	closed    bool
}

func (c *fakeChannel) Publish(_, _ string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.published = append(c.published, msg.Body)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func fakePublisher(channels ...*fakeChannel) (*AMQPPublisher, *int) {
	dials := 0
	p := &AMQPPublisher{
		queue: "rewards",
		connect: func() (io.Closer, publishChannel, error) {
			if dials >= len(channels) {
				return nil, nil, errors.New("broker unreachable")
			}
			ch := channels[dials]
			dials++
			return nopCloser{}, ch, nil
		},
	}
	return p, &dials
}

func TestAMQPPublisher_ReopensClosedChannel(t *testing.T) {
	dropped := &fakeChannel{failWith: amqp.ErrClosed}
	fresh := &fakeChannel{}
	p, dials := fakePublisher(dropped, fresh)
	require.NoError(t, p.reconnect())

	require.NoError(t, p.Publish(context.Background(), event()))
	assert.Equal(t, 2, *dials)
	assert.True(t, dropped.closed)
	assert.Len(t, fresh.published, 1)

	require.NoError(t, p.Publish(context.Background(), event()))
	assert.Equal(t, 2, *dials)
	assert.Len(t, fresh.published, 2)
}

func TestAMQPPublisher_RetriesDialOnNextPublish(t *testing.T) {
	fresh := &fakeChannel{}
	p, dials := fakePublisher(&fakeChannel{failWith: amqp.ErrClosed})
	require.NoError(t, p.reconnect())

	// The broker is down: the reconnect fails and the event is lost.
	require.Error(t, p.Publish(context.Background(), event()))

	// Once it is back, the next publish dials again.
	p.connect = func() (io.Closer, publishChannel, error) {
		*dials++
		return nopCloser{}, fresh, nil
	}
	require.NoError(t, p.Publish(context.Background(), event()))
	assert.Len(t, fresh.published, 1)
	assert.Equal(t, 2, *dials)
}

func TestAMQPPublisher_OtherErrorsAreNotRetried(t *testing.T) {
	ch := &fakeChannel{failWith: errors.New("frame too large")}
	p, dials := fakePublisher(ch)
	require.NoError(t, p.reconnect())

	require.Error(t, p.Publish(context.Background(), event()))
	assert.Equal(t, 1, *dials)
	require.NoError(t, p.Close())
}

func TestAMQPPublisher_AsOutboxSink(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := fakePublisher(ch)
	require.NoError(t, p.reconnect())

	outbox := NewDispatcher(zap.NewNop(), 1, 4, p)
	require.NoError(t, outbox.Publish(context.Background(), event()))
	require.NoError(t, outbox.Close(context.Background()))

	ch.mu.Lock()
	defer ch.mu.Unlock()
	assert.Len(t, ch.published, 1)
}
