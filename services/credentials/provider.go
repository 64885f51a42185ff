package credentials

import (
	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Options = fx.Options(
	fx.Provide(NewCredentialsService),
)

func NewCredentialsService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	return NewService(cfg, db, logger)
}
