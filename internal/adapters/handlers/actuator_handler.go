package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/iwtcode/cableRobot/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetActuators возвращает снимок состояния всех актуаторов.
// @Summary Состояние актуаторов
// @Tags Actuators
// @Produce json
// @Success 200 {object} models.ActuatorsResponse
// @Router /actuators [get]
func (h *Handler) GetActuators(c *gin.Context) {
	actuators := h.usecase.GetActuators()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"count":     len(actuators),
		"actuators": actuators,
	})
}

// GetActuator возвращает состояние одного актуатора.
// @Summary Состояние актуатора
// @Tags Actuators
// @Produce json
// @Param id path int true "ID актуатора"
// @Failure 404 {object} models.ErrorResponse "Актуатор не найден"
// @Router /actuators/{id} [get]
func (h *Handler) GetActuator(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 8)
	if err != nil {
		h.BadRequest(c, err, "Invalid actuator id")
		return
	}
	st, err := h.usecase.GetActuator(uint8(id))
	if err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "actuator": st})
}

// HoldCableLength передает актуатор контроллеру в режиме удержания длины троса.
// @Summary Удерживать длину троса
// @Tags Actuators
// @Accept json
// @Produce json
// @Param input body models.ActuatorRequest true "ID актуатора"
// @Success 200 {object} models.MessageResponse
// @Router /actuators/hold [post]
func (h *Handler) HoldCableLength(c *gin.Context) {
	var req models.ActuatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Missing or invalid actuator_id")
		return
	}
	if err := h.usecase.HoldCableLength(*req.ActuatorID); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, fmt.Sprintf("Holding cable length of actuator %d", *req.ActuatorID))
}

// StartSysID запускает идентификацию удерживаемого привода.
// @Summary Запустить идентификацию
// @Tags SysID
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 409 {object} models.ErrorResponse "Привод не готов"
// @Router /sysid/start [post]
func (h *Handler) StartSysID(c *gin.Context) {
	if err := h.usecase.StartSysID(); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "System identification started")
}

// StartStreaming запускает публикацию состояния актуаторов в Kafka.
// @Summary Запустить публикацию состояния
// @Tags Streaming
// @Accept json
// @Produce json
// @Param input body models.StreamingRequest true "Интервал публикации"
// @Success 200 {object} models.MessageResponse
// @Router /streaming/start [post]
func (h *Handler) StartStreaming(c *gin.Context) {
	var req models.StreamingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	interval := time.Duration(req.Interval) * time.Millisecond
	if err := h.usecase.StartStreaming(interval); err != nil {
		h.ErrorResponse(c, err, http.StatusConflict, "Streaming not started", true)
		return
	}
	h.OK(c, fmt.Sprintf("Status streaming started every %s", interval))
}

func (h *Handler) StopStreaming(c *gin.Context) {
	if err := h.usecase.StopStreaming(); err != nil {
		h.AppErrorResponse(c, err)
		return
	}
	h.OK(c, "Status streaming stopped")
}
