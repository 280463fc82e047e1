package usecases

import (
	"context"
	"math"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/db"
	"telemetry-server/entities"
	applog "telemetry-server/logger"
	"telemetry-server/repositories"
)

type SubscriptionRequest struct {
	TotalSpace    int64      `json:"total_space"`
	DistanceLimit float64    `json:"distance_limit"`
	IsActive      *bool      `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

type SubscriptionUseCase struct {
	db  db.Database
	log *applog.Logger
}

func NewSubscriptionUseCase(database db.Database, log *applog.Logger) *SubscriptionUseCase {
	return &SubscriptionUseCase{db: database, log: log}
}

// Set creates or replaces userID's allowance. Space already consumed is kept.
func (uc *SubscriptionUseCase) Set(ctx context.Context, userID string, req SubscriptionRequest) (*entities.Subscription, error) {
	if req.TotalSpace < 0 {
		return nil, apperr.InvalidArgument("total_space must not be negative")
	}
	if req.DistanceLimit < 0 || math.IsNaN(req.DistanceLimit) || math.IsInf(req.DistanceLimit, 0) {
		return nil, apperr.InvalidArgument("distance_limit must be a non-negative number")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	var sub *entities.Subscription
	err := uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)
		if _, err := repos.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		err := repos.Subscriptions.Upsert(ctx, &entities.Subscription{
			UserID:        userID,
			TotalSpace:    req.TotalSpace,
			DistanceLimit: req.DistanceLimit,
			IsActive:      active,
			ExpiresAt:     req.ExpiresAt,
		})
		if err != nil {
			return err
		}
		sub, err = repos.Subscriptions.GetByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info("subscription updated", "user_id", userID, "total_space", sub.TotalSpace, "active", sub.IsActive)
	return sub, nil
}

func (uc *SubscriptionUseCase) Get(ctx context.Context, userID string) (*entities.Subscription, error) {
	return repositories.New(uc.db).Subscriptions.GetByUserID(ctx, userID)
}
