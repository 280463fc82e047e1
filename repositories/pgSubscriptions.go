package repositories

import (
	"context"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/db"
	"telemetry-server/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionPgRepository struct {
	db db.Database
}

func NewSubscriptionPgRepository(database db.Database) SubscriptionRepository {
	return &subscriptionPgRepository{db: database}
}

func (r *subscriptionPgRepository) GetByUserID(ctx context.Context, userID string) (*entities.Subscription, error) {
	var sub entities.Subscription
	if err := r.db.GetDB().WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, translate(err, "get subscription", "subscription")
	}
	return &sub, nil
}

func (r *subscriptionPgRepository) Upsert(ctx context.Context, sub *entities.Subscription) error {
	err := r.db.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_space", "distance_limit", "is_active", "expires_at", "updated_at"}),
		}).
		Create(sub).Error
	if err != nil {
		return translate(err, "upsert subscription", "subscription")
	}
	return nil
}

func (r *subscriptionPgRepository) Consume(ctx context.Context, userID string, delta int64) error {
	if delta == 0 {
		return nil
	}
	q := r.db.GetDB().WithContext(ctx).Model(&entities.Subscription{}).Where("user_id = ?", userID)
	var expr clause.Expr
	if delta > 0 {
		q = q.Where("space_consumed + ? <= total_space", delta)
		expr = gorm.Expr("space_consumed + ?", delta)
	} else {
		expr = gorm.Expr("CASE WHEN space_consumed + ? < 0 THEN 0 ELSE space_consumed + ? END", delta, delta)
	}
	res := q.Updates(map[string]interface{}{
		"space_consumed": expr,
		"updated_at":     time.Now().UTC(),
	})
	if res.Error != nil {
		return translate(res.Error, "consume subscription space", "subscription")
	}
	if res.RowsAffected == 0 {
		if delta > 0 {
			return apperr.QuotaExceeded("storage space exhausted")
		}
		return translate(gormNotFound, "consume subscription space", "subscription")
	}
	return nil
}
