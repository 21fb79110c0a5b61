package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
)

// WaitResult - исход ограниченного ожидания.
type WaitResult uint8

const (
	Reached WaitResult = iota
	TimedOut
	Cancelled
)

func (r WaitResult) String() string {
	switch r {
	case Reached:
		return "REACHED"
	case TimedOut:
		return "TIMED_OUT"
	case Cancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(r))
	}
}

// Err возвращает nil для Reached, иначе ErrTimeout или ErrUserAbort.
func (r WaitResult) Err() error {
	switch r {
	case Reached:
		return nil
	case TimedOut:
		return apperrors.ErrTimeout
	default:
		return apperrors.ErrUserAbort
	}
}

// Waiter - ограниченное по времени ожидание условия с внешней отменой.
// Одновременно могут ждать несколько вызывающих; Stop прерывает всех.
type Waiter struct {
	mu      sync.Mutex
	waiters int
	stop    chan struct{}
}

func NewWaiter() *Waiter {
	return &Waiter{stop: make(chan struct{})}
}

// Poll проверяет cond с периодом period, пока оно не выполнится, не истечет
// maxWait, не будет вызван Stop или не завершится ctx.
func (w *Waiter) Poll(ctx context.Context, period, maxWait time.Duration, cond func() bool) WaitResult {
	stop := w.begin()
	defer w.end()

	if cond() {
		return Reached
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return Cancelled
		case <-stop:
			return Cancelled
		case <-deadline.C:
			if cond() {
				return Reached
			}
			return TimedOut
		case <-ticker.C:
			if cond() {
				return Reached
			}
		}
	}
}

// PollUntil - Poll, возвращающий ошибку вместо WaitResult.
func (w *Waiter) PollUntil(ctx context.Context, period, maxWait time.Duration, cond func() bool) error {
	return w.Poll(ctx, period, maxWait, cond).Err()
}

func (w *Waiter) IsWaiting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.waiters > 0
}

// Stop прерывает текущие ожидания. Без активных ожиданий ничего не делает.
func (w *Waiter) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.waiters == 0 {
		return
	}
	close(w.stop)
	w.stop = make(chan struct{})
}

func (w *Waiter) begin() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waiters++
	return w.stop
}

func (w *Waiter) end() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waiters--
}
