package images

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// RefLister reports every image ref still in use.
type RefLister interface {
	PledgeImageRefs(ctx context.Context) ([]string, error)
}

// Sweeper deletes stored images that no pledge references once they are
// older than the grace period. Uploads that failed halfway and images left
// behind by a crash between a pledge write and its image cleanup end up here.
type Sweeper struct {
	store  Store
	refs   RefLister
	grace  time.Duration
	logger *zap.Logger
	now    func() time.Time

	sched gocron.Scheduler
}

func NewSweeper(store Store, refs RefLister, grace time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		refs:   refs,
		grace:  grace,
		logger: logger,
		now:    time.Now,
	}
}

// Sweep runs one pass and returns how many images were deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	inUse, err := s.refs.PledgeImageRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list image refs: %w", err)
	}
	keep := make(map[string]bool, len(inUse))
	for _, ref := range inUse {
		keep[ref] = true
	}

	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.grace)
	deleted := 0
	for _, obj := range objects {
		if keep[obj.Ref] || obj.ModTime.After(cutoff) || nameFromRef(obj.Ref) == "" {
			continue
		}
		if err := s.store.Delete(ctx, obj.Ref); err != nil {
			s.logger.Warn("sweep: delete orphaned image", zap.String("ref", obj.Ref), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Start schedules Sweep every interval until Stop is called.
func (s *Sweeper) Start(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("sweep: orphaned images", zap.Error(err))
				return
			}
			if n > 0 {
				s.logger.Info("sweep: removed orphaned images", zap.Int("count", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule sweep: %w", err)
	}

	sched.Start()
	s.sched = sched
	return nil
}

func (s *Sweeper) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
