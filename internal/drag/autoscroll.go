package drag

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// autoScroller scrolls the viewport on a ticker while the pointer sits in an
// edge zone. A nil autoScroller is inert.
type autoScroller struct {
	vp      Viewport
	sched   Scheduler
	zone    float64
	step    float64
	dir     atomic.Int32
	stopped atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func startAutoScroll(host Host, cfg Config) *autoScroller {
	ctx, cancel := context.WithCancel(context.Background())
	s := &autoScroller{
		vp:     host.Viewport,
		sched:  host.Scheduler,
		zone:   cfg.ScrollZone,
		step:   cfg.ScrollStep,
		cancel: cancel,
	}
	s.wg.Add(1)
	go s.run(ctx, cfg.Interval)
	return s
}

func (s *autoScroller) run(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.dir.Load() == 0 {
				continue
			}
			if s.sched != nil {
				s.sched.Schedule(s.tick)
			} else {
				s.tick()
			}
		}
	}
}

// tick scrolls one step. A tick that the scheduler runs after stop is dropped.
func (s *autoScroller) tick() {
	if s.stopped.Load() {
		return
	}
	if d := s.dir.Load(); d != 0 {
		s.vp.ScrollBy(float64(d) * s.step)
	}
}

// steer sets the scroll direction from the pointer position.
func (s *autoScroller) steer(p Point) {
	if s == nil {
		return
	}
	top, bottom := s.vp.Bounds()
	switch {
	case p.Y < top+s.zone:
		s.dir.Store(-1)
	case p.Y > bottom-s.zone:
		s.dir.Store(1)
	default:
		s.dir.Store(0)
	}
}

// stop halts scrolling and waits for the ticker goroutine to exit.
func (s *autoScroller) stop() {
	if s == nil {
		return
	}
	s.stopped.Store(true)
	s.dir.Store(0)
	s.cancel()
	s.wg.Wait()
}
