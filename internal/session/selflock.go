package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"empire_bot/internal/domain"
)

// selfLockLoop renews the self-lock immediately and then on every tick.
// The ticker starts before the first renewal, so a slow call never shifts
// the schedule.
func (s *Session) selfLockLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.selfLockEvery)
	defer ticker.Stop()

	s.renewSelfLock(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.renewSelfLock(ctx)
		}
	}
}

// renewSelfLock runs one independent renewal. Every outcome is notified.
func (s *Session) renewSelfLock(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Self-lock panic recovered", slog.Any("panic", r))
		}
	}()

	hours := s.acc.SelfLock.PeriodHours

	token, err := s.deps.Client.RequestSecurityToken(ctx)
	switch {
	case errors.Is(err, domain.ErrMissingSecurityToken):
		s.deps.Notifier.Notify("Self-lock skipped: no security token was issued.", domain.CategorySelfLock)
		return
	case err != nil:
		s.deps.Notifier.Notify(fmt.Sprintf("Self-lock skipped: security token request failed, %v", err), domain.CategorySelfLock)
		return
	}

	if err := s.deps.Client.ApplySelfLock(ctx, hours, token); err != nil {
		s.deps.Notifier.Notify(fmt.Sprintf("Self-lock for %dh was rejected, %v", hours, err), domain.CategorySelfLock)
		return
	}

	s.deps.Notifier.Notify(fmt.Sprintf("Self-lock applied for %d hours.", hours), domain.CategorySelfLock)
}
