package audit

import (
	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func NewAuditService(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Service {
	return NewService(db, cfg, logger)
}

type OptionalAlertSender struct {
	fx.In
	AlertSender AlertSender `optional:"true"`
}

func WireAlertSender(svc *Service, opt OptionalAlertSender) {
	if svc != nil && opt.AlertSender != nil {
		svc.SetAlertSender(opt.AlertSender)
	}
}

var Options = fx.Options(
	fx.Provide(NewAuditService),
	fx.Invoke(WireAlertSender),
)
