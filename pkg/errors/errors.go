package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	InternalServerError = "internal server error"
	BadRequest          = "bad request"
	NotFound            = "not_found"
	Conflict            = "conflict"
	Timeout             = "timeout"

	InvalidDataCode         = http.StatusBadRequest
	NotFoundErrorCode       = http.StatusNotFound
	ConflictErrorCode       = http.StatusConflict
	TimeoutErrorCode        = http.StatusGatewayTimeout
	InternalServerErrorCode = http.StatusInternalServerError
)

// AppError представляет собой стандартизированную структуру ошибки для API.
type AppError struct {
	Code         int    `json:"code"`    // HTTP статус код
	Message      string `json:"message"` // Сообщение для клиента
	Err          error  `json:"-"`       // Внутренняя ошибка, не для клиента
	IsUserFacing bool   `json:"-"`       // Флаг, указывающий, можно ли показывать `Err`
}

func (a *AppError) Error() string {
	if a == nil {
		return ""
	}
	if a.Err != nil {
		return fmt.Sprintf("%s (code: %d): %v", a.Message, a.Code, a.Err)
	}
	return fmt.Sprintf("%s (code: %d)", a.Message, a.Code)
}

func (a *AppError) Unwrap() error { return a.Err }

// NewAppError создает новый экземпляр AppError.
func NewAppError(httpCode int, message string, err error, isUserFacing bool) *AppError {
	return &AppError{
		Code:         httpCode,
		Message:      message,
		Err:          err,
		IsUserFacing: isUserFacing,
	}
}

// Ошибки ядра управления. Сравнивать через errors.Is.
var (
	ErrProtocolFault     = errors.New("drive protocol fault")
	ErrTimeout           = errors.New("wait timed out")
	ErrUserAbort         = errors.New("aborted by user")
	ErrTargetMismatch    = errors.New("actuator missing from status snapshot")
	ErrParse             = errors.New("optimizer result parse error")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrEventIgnored      = errors.New("event ignored in current state")
	ErrInvalidPayload    = errors.New("invalid event payload")
	ErrDataNotFound      = errors.New("data not found")
	ErrNotReady          = errors.New("actuator not ready")
)

// FromError сопоставляет ошибку ядра с HTTP-ответом.
func FromError(err error) *AppError {
	var appErr *AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrInvalidPayload):
		return NewAppError(InvalidDataCode, BadRequest, err, true)
	case errors.Is(err, ErrDataNotFound):
		return NewAppError(NotFoundErrorCode, NotFound, err, true)
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrEventIgnored), errors.Is(err, ErrNotReady):
		return NewAppError(ConflictErrorCode, Conflict, err, true)
	case errors.Is(err, ErrTimeout):
		return NewAppError(TimeoutErrorCode, Timeout, err, true)
	default:
		return NewAppError(InternalServerErrorCode, InternalServerError, err, false)
	}
}
