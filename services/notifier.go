package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workhub-manager/server/logging"
	"workhub-manager/server/models"
	"workhub-manager/server/repositories"

	"github.com/sony/gobreaker"
)

// NewNoticeBreaker trips after more than three consecutive failed notice writes.
func NewNoticeBreaker(timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notices-cb",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

// NoticeDispatcher writes notices through a circuit breaker so an unhealthy
// notification store fails fast.
type NoticeDispatcher struct {
	Notices repositories.NoticeRepository
	Breaker *gobreaker.CircuitBreaker
}

func NewNoticeDispatcher(notices repositories.NoticeRepository, breaker *gobreaker.CircuitBreaker) *NoticeDispatcher {
	return &NoticeDispatcher{Notices: notices, Breaker: breaker}
}

func (d *NoticeDispatcher) Dispatch(ctx context.Context, notice *models.Notice) error {
	_, err := d.Breaker.Execute(func() (interface{}, error) {
		return nil, d.Notices.Create(ctx, notice)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logging.Logger.Warnf("Event ID: NOTICE_BREAKER_OPEN, Description: Notice for task %s rejected: %v", notice.Task.Hex(), err)
		return fmt.Errorf("notification store unavailable: %w", err)
	}
	if err != nil {
		logging.Logger.Errorf("Event ID: NOTICE_CREATE_FAILED, Description: Failed to create notice for task %s: %v", notice.Task.Hex(), err)
		return err
	}
	logging.Logger.Infof("Event ID: NOTICE_CREATED, Description: Notice %s sent to %d users", notice.ID.Hex(), len(notice.Team))
	return nil
}
