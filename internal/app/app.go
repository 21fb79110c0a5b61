package app

import (
	"context"
	"net/http"
	"time"

	cablerobot "github.com/iwtcode/cableRobot"
	"github.com/iwtcode/cableRobot/internal/adapters/handlers"
	"github.com/iwtcode/cableRobot/internal/config"
	"github.com/iwtcode/cableRobot/internal/interfaces"
	"github.com/iwtcode/cableRobot/internal/middleware/logging"
	"github.com/iwtcode/cableRobot/internal/services/telemetry"
	"github.com/iwtcode/cableRobot/internal/usecases"

	"go.uber.org/fx"
)

// New создает новый экземпляр fx.App
func New() *fx.App {
	return fx.New(Options())
}

// Options - полный набор модулей приложения.
func Options() fx.Option {
	return fx.Options(
		ConfigModule,
		LoggingModule,
		ProducerModule,
		RobotModule,
		ServiceModule,
		UsecaseModule,
		HttpServerModule,
		// Invoke-функции для запуска фоновых задач и хуков жизненного цикла
		fx.Invoke(InvokeRobot),
		fx.Invoke(InvokeStatusStreaming),
	)
}

// --- Модули FX ---

var ConfigModule = fx.Module("config_module",
	fx.Provide(config.LoadConfiguration),
)

func ProvideLogger(cfg *config.AppConfig) *logging.Logger {
	loggerCfg := &logging.Config{
		Enabled:    cfg.Logging.Enable,
		Level:      cfg.Logging.Level,
		LogsDir:    cfg.Logging.LogsDir,
		SavingDays: uint(cfg.Logging.SavingDays),
	}
	return logging.NewLogger(loggerCfg, "CableRobotApp")
}

var LoggingModule = fx.Module("logging_module",
	fx.Provide(ProvideLogger),
)

// ProvideProducer создает продюсера и закрывает его при остановке.
func ProvideProducer(lc fx.Lifecycle, cfg *config.AppConfig, logger *logging.Logger) (interfaces.KafkaService, error) {
	producer, err := telemetry.NewKafkaProducer(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	return producer, nil
}

// ProvideHomingNotifier публикует события хоминга через продюсера.
func ProvideHomingNotifier(lc fx.Lifecycle, producer interfaces.KafkaService, logger *logging.Logger) *telemetry.HomingNotifier {
	notifier := telemetry.NewHomingNotifier(producer, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return notifier.Close()
		},
	})
	return notifier
}

var ProducerModule = fx.Module("producer_module",
	fx.Provide(ProvideProducer, ProvideHomingNotifier),
)

func ProvideClient(cfg *config.AppConfig, logger *logging.Logger, notifier *telemetry.HomingNotifier) (*cablerobot.Client, error) {
	return cablerobot.New(cfg.Robot,
		cablerobot.WithLogger(logger.WithPrefix("CORE").Entry()),
		cablerobot.WithNotifier(notifier),
	)
}

var RobotModule = fx.Module("robot_module",
	fx.Provide(ProvideClient),
)

func ProvideStatusStreamer(client *cablerobot.Client, producer interfaces.KafkaService, logger *logging.Logger) interfaces.StatusStreamer {
	return telemetry.NewStatusStreamer(client.Robot(), producer, logger)
}

var ServiceModule = fx.Module("service_module",
	fx.Provide(ProvideStatusStreamer),
)

var UsecaseModule = fx.Module("usecases_module",
	fx.Provide(usecases.NewUsecases),
)

var HttpServerModule = fx.Module("http_server_module",
	fx.Provide(
		handlers.NewHandler,
		handlers.ProvideRouter,
	),
	fx.Invoke(InvokeHttpServer),
)

// InvokeRobot запускает цикл реального времени и автомат хоминга.
func InvokeRobot(lc fx.Lifecycle, client *cablerobot.Client, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting cable robot...")
			if err := client.Open(); err != nil {
				logger.Error("FATAL: Failed to start cable robot", "error", err)
				return err // Это остановит запуск приложения
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping cable robot...")
			return client.Close()
		},
	})
}

// InvokeStatusStreaming запускает публикацию состояния при включенной Kafka.
func InvokeStatusStreaming(lc fx.Lifecycle, cfg *config.AppConfig, streamer interfaces.StatusStreamer, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Kafka.Enable {
				logger.Info("Kafka disabled, status streaming not started")
				return nil
			}
			if err := streamer.StartStreaming(cfg.StatusInterval); err != nil {
				logger.Warn("Failed to start status streaming", "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return streamer.StopStreaming()
		},
	})
}

// InvokeHttpServer запускает HTTP-сервер.
func InvokeHttpServer(lc fx.Lifecycle, cfg *config.AppConfig, h http.Handler, logger *logging.Logger) {
	serverAddr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("HTTP Server is starting", "address", serverAddr)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Failed to start server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
