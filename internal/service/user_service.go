package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/config"
	"github.com/stemsi/qiyas-mock/internal/model"
	"github.com/stemsi/qiyas-mock/internal/repository"
)

const entitlementTTL = 5 * time.Minute

// UserService handles account lookups and the entitlement gate.
type UserService struct {
	repo *repository.UserRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.UserRepository, rdb *redis.Client, log zerolog.Logger) *UserService {
	return &UserService{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "user_service").Logger(),
	}
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Create inserts a new account.
func (s *UserService) Create(ctx context.Context, u *model.User) error {
	return s.repo.Create(ctx, u)
}

// Entitled reports whether the user has unlocked premium templates. The flag
// is cached briefly; a cache failure falls through to the database.
func (s *UserService) Entitled(ctx context.Context, userID int) (bool, error) {
	key := config.CacheKey.UserEntitlementKey(userID)

	cached, err := s.rdb.Get(ctx, key).Bool()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Entitlement cache read failed")
	}

	premium, err := s.repo.IsPremium(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("read entitlement: %w", err)
	}
	if err := s.rdb.Set(ctx, key, premium, entitlementTTL).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Entitlement cache write failed")
	}
	return premium, nil
}
