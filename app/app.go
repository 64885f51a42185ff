package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/database"
	authhandler "github.com/novabank/onboard/handlers/auth"
	"github.com/novabank/onboard/server"
	"github.com/novabank/onboard/services/audit"
	"github.com/novabank/onboard/services/credentials"
	"github.com/novabank/onboard/services/fingerprint"
	"github.com/novabank/onboard/services/logging"
	"github.com/novabank/onboard/services/mail"
	"github.com/novabank/onboard/services/mfa"
	"github.com/novabank/onboard/services/token"
	"github.com/novabank/onboard/session"
	"go.uber.org/fx"
)

// App owns the fx container and its lifecycle. Construction wires every
// service; Run blocks until SIGINT/SIGTERM and then stops gracefully.
type App struct {
	fx     *fx.App
	logger *logging.Service
}

func New(customConfig *config.Config) *App {
	app := &App{}

	cfg := customConfig
	if cfg == nil {
		cfg = &config.Config{}
		if err := config.LoadConfig(cfg); err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}
	}

	options := []fx.Option{
		config.NewProvider(cfg),
		logging.Module,
		fx.Provide(func() *database.ModelsOption {
			return database.WithModels(
				&credentials.Credential{},
				&fingerprint.DeviceRecord{},
				&audit.SecurityEvent{},
				&mfa.TOTPSecret{},
				&mfa.UsedCode{},
				&session.Session{},
			)
		}),
		database.Module,
		token.Options,
		audit.Options,
		credentials.Options,
		mfa.Options,
		session.Options,
		server.NewProvider(),
		fx.Provide(authhandler.NewHandler),
		fx.Invoke(func(srv *server.Server, h *authhandler.Handler) {
			h.RegisterRoutes(srv.Echo())
		}),
		fx.Populate(&app.logger),
		fx.NopLogger,
	}

	if cfg.Mail.Enabled {
		options = append(options, mail.Options)
	}

	app.fx = fx.New(options...)

	return app
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

func (a *App) Run() {
	if err := a.Start(context.Background()); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if a.logger != nil {
		a.logger.Info("received shutdown signal, stopping")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Stop(ctx); err != nil {
		if a.logger != nil {
			a.logger.Errorf("failed to stop gracefully: %v", err)
		} else {
			log.Printf("failed to stop gracefully: %v", err)
		}
	}
}
