package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"qwesade/internal/domain"
	"qwesade/internal/models"
)

const recheckInterval = time.Minute

// FailoverSessionRepository переключается на запасное хранилище при ошибке основного
// и раз в минуту пробует вернуться к основному.
type FailoverSessionRepository struct {
	primary  domain.SessionRepository
	fallback domain.SessionRepository
	logger   *zerolog.Logger

	downSince atomic.Int64
	now       func() time.Time
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary true, если основное хранилище доступно или пора повторить попытку
func (r *FailoverSessionRepository) usePrimary() bool {
	since := r.downSince.Load()
	return since == 0 || r.now().Sub(time.Unix(0, since)) > recheckInterval
}

func (r *FailoverSessionRepository) observe(err error) bool {
	if err == nil {
		if r.downSince.Swap(0) != 0 {
			r.logger.Info().Msg("Primary session repository recovered")
		}
		return true
	}
	if r.downSince.Swap(r.now().UnixNano()) == 0 {
		r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	}
	return false
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, userID int64) (*models.Session, error) {
	if r.usePrimary() {
		s, err := r.primary.GetSession(ctx, userID)
		if r.observe(err) {
			return s, nil
		}
	}
	return r.fallback.GetSession(ctx, userID)
}

func (r *FailoverSessionRepository) SetSession(ctx context.Context, session *models.Session) error {
	if r.usePrimary() && r.observe(r.primary.SetSession(ctx, session)) {
		return nil
	}
	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverSessionRepository) ClearSession(ctx context.Context, userID int64) error {
	// запасная копия тоже очищается, чтобы после восстановления не всплыла старая сессия
	_ = r.fallback.ClearSession(ctx, userID)
	if r.usePrimary() {
		r.observe(r.primary.ClearSession(ctx, userID))
	}
	return nil
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if r.observe(err) {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
