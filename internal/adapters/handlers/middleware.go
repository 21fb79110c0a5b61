package handlers

import (
	"net/http"
	"time"

	"github.com/iwtcode/cableRobot/internal/middleware/logging"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware пишет в журнал начало и завершение запроса.
// GET-запросы (опрос состояния хоминга и актуаторов) идут на уровне DEBUG,
// команды оператора на уровне INFO.
func LoggingMiddleware(parentLogger *logging.Logger) gin.HandlerFunc {
	logger := parentLogger.WithPrefix("HTTP")

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		log := logger.Info
		if c.Request.Method == http.MethodGet {
			log = logger.Debug
		}

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.Request.RemoteAddr,
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, "actuator", id)
		}

		start := time.Now()
		log("Request started", fields...)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		log("Request completed",
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
		)
	}
}
