package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"contrato-firma/internal/config"
	deliveryhttp "contrato-firma/internal/delivery/http"
	"contrato-firma/internal/infrastructure/database"
	"contrato-firma/internal/infrastructure/extraction"
	"contrato-firma/internal/infrastructure/httpclient"
	"contrato-firma/internal/infrastructure/logger"
	"contrato-firma/internal/infrastructure/pdfinspect"
	"contrato-firma/internal/infrastructure/redis"
	"contrato-firma/internal/infrastructure/repository"
	"contrato-firma/internal/server"
	"contrato-firma/internal/upload"
	"contrato-firma/internal/usecase"
)

// Options returns every module of the service
func Options() fx.Option {
	return fx.Options(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),

		// Configuration
		config.Module,

		// Infrastructure
		logger.Module,
		database.Module,
		redis.Module,
		repository.Module,
		httpclient.Module,
		pdfinspect.Module,
		extraction.Module,

		// Business Logic
		upload.Module,
		usecase.Module,

		// Delivery
		deliveryhttp.Module,

		// Server
		server.Module,
	)
}

// Application wraps the fx.App with start and graceful stop
type Application struct {
	app *fx.App
}

func NewApplication(opts ...fx.Option) *Application {
	return &Application{
		app: fx.New(append([]fx.Option{Options()}, opts...)...),
	}
}

// Run starts the application and blocks until SIGINT, SIGTERM or an fx shutdown
func (a *Application) Run() error {
	if err := a.app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), a.app.StartTimeout())
	defer cancel()

	if err := a.app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	signal := <-a.app.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.app.StopTimeout())
	defer stopCancel()

	if err := a.app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	if signal.ExitCode != 0 {
		os.Exit(signal.ExitCode)
	}
	return nil
}
