package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"qwesade/internal/domain"
	"qwesade/internal/models"
)

type StateService struct {
	repo   domain.SessionRepository
	logger *zerolog.Logger
	now    func() time.Time
}

func NewStateService(repo domain.SessionRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// GetSession возвращает сессию пользователя или новую пустую, если ее нет
func (s *StateService) GetSession(ctx context.Context, userID int64) (*models.Session, error) {
	session, err := s.repo.GetSession(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get session")
		return nil, err
	}
	if session == nil {
		session = models.NewSession(userID)
	}
	return session, nil
}

func (s *StateService) SaveSession(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = s.now()
	if err := s.repo.SetSession(ctx, session); err != nil {
		s.logger.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to save session")
		return err
	}
	return nil
}

func (s *StateService) ClearSession(ctx context.Context, userID int64) error {
	return s.repo.ClearSession(ctx, userID)
}

func (s *StateService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return s.repo.CheckRateLimit(ctx, userID, limit, window)
}
