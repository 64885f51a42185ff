package mail

import (
	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/audit"
	"github.com/novabank/onboard/services/logging"
	"go.uber.org/fx"
)

func NewMailService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	return NewService(&cfg.Mail, logger)
}

var Options = fx.Options(
	fx.Provide(NewMailService),
	fx.Provide(func(svc *Service) audit.AlertSender { return svc }),
)
