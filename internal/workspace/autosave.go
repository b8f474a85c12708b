package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type autosaver struct {
	cron *cron.Cron
}

// StartAutosave flushes dirty sessions on the cron schedule spec (standard
// five-field syntax or descriptors such as "@every 30s"). An empty spec is a
// no-op.
func (w *Workspace) StartAutosave(spec string, timeout time.Duration) error {
	if spec == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := w.Flush(ctx); err != nil {
			w.logger.Warn("autosave: flush failed", slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("autosave: flushed")
	})
	if err != nil {
		return fmt.Errorf("autosave: invalid schedule %q: %w", spec, err)
	}

	w.mu.Lock()
	if w.autosave != nil {
		w.mu.Unlock()
		return fmt.Errorf("autosave: already running")
	}
	w.autosave = &autosaver{cron: c}
	w.mu.Unlock()

	c.Start()
	w.logger.Info("autosave: started", slog.String("schedule", spec))
	return nil
}

// StopAutosave stops the schedule and waits for a running flush to finish.
func (w *Workspace) StopAutosave() {
	w.mu.Lock()
	a := w.autosave
	w.autosave = nil
	w.mu.Unlock()
	if a == nil {
		return
	}
	<-a.cron.Stop().Done()
}
