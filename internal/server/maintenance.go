package server

import (
	"context"
	"time"

	"lofi/internal/logging"
)

func (s *Server) maintain(ctx context.Context) {
	if s.history == nil {
		return
	}
	s.maintenanceTick(ctx)

	ticker := time.NewTicker(s.maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.maintenanceTick(ctx)
		}
	}
}

func (s *Server) maintenanceTick(ctx context.Context) {
	if retention := s.cfg.HistoryRetention(); retention > 0 {
		pruned, err := s.history.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			logging.WarnWithContext(s.logger, "history prune failed", "history_prune", logging.Error(err))
		} else if pruned > 0 {
			s.logger.Info("history pruned", logging.Int64("removed", pruned))
		}
	}
	if s.metrics == nil {
		return
	}
	summary, err := s.history.Summary(ctx)
	if err != nil {
		s.logger.Debug("history summary failed", logging.Error(err))
		return
	}
	s.metrics.ObserveHistory(summary)
}
