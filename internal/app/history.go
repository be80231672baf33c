package app

import (
	"context"

	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/store"
)

const (
	historyBuffer = 64
	// trimEvery is how many inserts pass between history trims.
	trimEvery = 100
)

// recordHistory stores every published prediction until ctx is done. It runs
// beside the processing loop.
func (a *App) recordHistory(ctx context.Context, updates <-chan pipeline.Record) error {
	predictions := a.config.Store.Predictions()
	inserted := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-updates:
			if !ok {
				return nil
			}
			err := predictions.Insert(&store.Prediction{
				Kind:       rec.Kind.String(),
				Label:      rec.Label,
				Confidence: rec.Confidence,
				ProducedAt: rec.ProducedAt,
			})
			if err != nil {
				a.logger.Warn("record prediction", "error", err)
				continue
			}

			inserted++
			if a.config.HistorySize > 0 && inserted%trimEvery == 0 {
				if _, err := predictions.Trim(a.config.HistorySize); err != nil {
					a.logger.Warn("trim prediction history", "error", err)
				}
			}
		}
	}
}
