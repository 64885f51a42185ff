package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartCleanupWorker runs the maintenance sweep on a ticker until
// StopCleanupWorker is called. Safe to run repeatedly and concurrently
// with live traffic.
func (m *Manager) StartCleanupWorker() {
	if m.stopCleanup != nil {
		return
	}
	m.stopCleanup = make(chan struct{})

	go func() {
		ticker := time.NewTicker(m.config.Session.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := m.CleanupExpired(ctx); err != nil && m.logger != nil {
					m.logger.Error("session cleanup worker failed", zap.Error(err))
				}
				if _, err := m.audit.CleanupOldEvents(ctx, m.config.Session.Retention); err != nil && m.logger != nil {
					m.logger.Error("security event cleanup failed", zap.Error(err))
				}
				cancel()
			case <-m.stopCleanup:
				return
			}
		}
	}()

	if m.logger != nil {
		m.logger.Info("started session cleanup worker",
			zap.Duration("interval", m.config.Session.CleanupInterval))
	}
}

func (m *Manager) StopCleanupWorker() {
	if m.stopCleanup != nil {
		close(m.stopCleanup)
		m.stopCleanup = nil
	}
}
