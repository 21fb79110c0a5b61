package handlers

import (
	"net/http"

	"github.com/iwtcode/cableRobot/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetHomingState возвращает состояние процедуры хоминга.
// @Summary Состояние хоминга
// @Tags Homing
// @Produce json
// @Success 200 {object} models.HomingStateResponse
// @Router /homing/state [get]
func (h *Handler) GetHomingState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "homing": h.usecase.HomingState()})
}

// StartHoming включает приводы (IDLE -> ENABLED).
// @Summary Включить приводы
// @Tags Homing
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 409 {object} models.ErrorResponse "Событие недопустимо в текущем состоянии"
// @Router /homing/start [post]
func (h *Handler) StartHoming(c *gin.Context) {
	if err := h.usecase.StartHoming(); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "Homing start requested")
}

// StartUp запускает сбор измерений.
// @Summary Запустить сбор измерений
// @Tags Homing
// @Accept json
// @Produce json
// @Param input body models.HomingStartRequest true "Моменты и число измерений"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 409 {object} models.ErrorResponse "Событие недопустимо в текущем состоянии"
// @Router /homing/startup [post]
func (h *Handler) StartUp(c *gin.Context) {
	var req models.HomingStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	h.logger.Info("Attempting to start homing data acquisition", "num_meas", req.NumMeas, "actuators", len(req.MaxTorques))
	if err := h.usecase.StartUp(req); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "Homing data acquisition requested")
}

// Optimize запускает оптимизацию по собранным данным.
// @Summary Запустить оптимизацию
// @Tags Homing
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /homing/optimize [post]
func (h *Handler) Optimize(c *gin.Context) {
	if err := h.usecase.Optimize(); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "Optimization requested")
}

// GoHome применяет готовые результаты калибровки.
// @Summary Перейти в домашнюю конфигурацию
// @Tags Homing
// @Accept json
// @Produce json
// @Param input body models.HomingHomeRequest true "Результаты калибровки"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /homing/home [post]
func (h *Handler) GoHome(c *gin.Context) {
	var req models.HomingHomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}
	if err := h.usecase.GoHome(req); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "Go home requested")
}

func (h *Handler) DisableHoming(c *gin.Context) {
	if err := h.usecase.DisableHoming(); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "Disable requested")
}

// StopWaiting прерывает текущее ожидание робота.
func (h *Handler) StopWaiting(c *gin.Context) {
	h.usecase.StopWaiting()
	h.OK(c, "Stop requested")
}

func (h *Handler) FaultTrigger(c *gin.Context) {
	h.logger.Warn("Fault triggered by operator")
	if err := h.usecase.FaultTrigger(); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "Fault triggered")
}

func (h *Handler) FaultReset(c *gin.Context) {
	if err := h.usecase.FaultReset(); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "Fault reset requested")
}
