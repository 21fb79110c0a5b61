package interfaces

import (
	"time"
)

// StatusStreamer определяет контракт для сервиса, публикующего состояние актуаторов.
type StatusStreamer interface {
	StartStreaming(interval time.Duration) error
	StopStreaming() error
	IsStreaming() bool
}
