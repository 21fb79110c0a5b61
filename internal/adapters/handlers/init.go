package handlers

import (
	"net/http"

	"github.com/iwtcode/cableRobot/internal/config"
	"github.com/iwtcode/cableRobot/internal/interfaces"
	"github.com/iwtcode/cableRobot/internal/middleware/logging"

	"github.com/gin-gonic/gin"
)

// Handler - структура для обработчиков HTTP-запросов
type Handler struct {
	usecase interfaces.Usecases
	logger  *logging.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(usecase interfaces.Usecases, logger *logging.Logger) *Handler {
	return &Handler{
		usecase: usecase,
		logger:  logger.WithPrefix("HANDLER"),
	}
}

// ProvideRouter настраивает и возвращает HTTP-роутер
func ProvideRouter(h *Handler, cfg *config.AppConfig) http.Handler {
	gin.SetMode(cfg.GinMode)

	router := gin.Default()

	// Logger Middleware
	router.Use(LoggingMiddleware(h.logger))

	// Группа API v1
	v1 := router.Group("/api/v1")
	{
		homing := v1.Group("/homing")
		{
			homing.GET("/state", h.GetHomingState)
			homing.POST("/start", h.StartHoming)
			homing.POST("/startup", h.StartUp)
			homing.POST("/optimize", h.Optimize)
			homing.POST("/home", h.GoHome)
			homing.POST("/disable", h.DisableHoming)
			homing.POST("/stop", h.StopWaiting)
			homing.POST("/fault", h.FaultTrigger)
			homing.POST("/fault-reset", h.FaultReset)
		}

		actuators := v1.Group("/actuators")
		{
			actuators.GET("", h.GetActuators)
			actuators.GET("/:id", h.GetActuator)
			actuators.POST("/hold", h.HoldCableLength)
		}

		v1.POST("/sysid/start", h.StartSysID)

		streaming := v1.Group("/streaming")
		{
			streaming.POST("/start", h.StartStreaming)
			streaming.POST("/stop", h.StopStreaming)
		}
	}

	return router
}
