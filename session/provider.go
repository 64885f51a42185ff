package session

import (
	"context"

	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/audit"
	"github.com/novabank/onboard/services/logging"
	"github.com/novabank/onboard/services/token"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Options = fx.Options(
	fx.Provide(NewSessionManager),
	fx.Invoke(registerCleanupWorker),
)

func NewSessionManager(db *gorm.DB, cfg *config.Config, tokens *token.Service, auditSvc *audit.Service, logger *logging.Service) *Manager {
	return NewManager(db, cfg, tokens, auditSvc, logger)
}

func registerCleanupWorker(lc fx.Lifecycle, manager *Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			manager.StartCleanupWorker()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			manager.StopCleanupWorker()
			return nil
		},
	})
}
