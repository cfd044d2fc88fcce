package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TemplateCompleter closes assessment templates whose window has passed.
type TemplateCompleter interface {
	CompleteExpired(ctx context.Context, now time.Time) (int, error)
}

// WindowSweeper periodically transitions ACTIVE templates past their closing
// time to COMPLETED so they stop accepting new attempts.
type WindowSweeper struct {
	assessments TemplateCompleter
	period      time.Duration
	log         zerolog.Logger
}

func NewWindowSweeper(assessments TemplateCompleter, period time.Duration, log zerolog.Logger) *WindowSweeper {
	return &WindowSweeper{
		assessments: assessments,
		period:      period,
		log:         log.With().Str("component", "window_sweeper").Logger(),
	}
}

func (w *WindowSweeper) Start(ctx context.Context) {
	w.log.Info().Dur("period", w.period).Msg("WindowSweeper started")

	ticker := time.NewTicker(w.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("WindowSweeper stopped")
			return

		case <-ticker.C:
			n, err := w.assessments.CompleteExpired(ctx, time.Now())
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Window sweep failed")
				}
				continue
			}
			if n > 0 {
				w.log.Info().Int("templates", n).Msg("Closed expired assessment windows")
			}
		}
	}
}
