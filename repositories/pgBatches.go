package repositories

import (
	"context"

	"telemetry-server/db"
	"telemetry-server/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type batchPgRepository struct {
	db db.Database
}

func NewBatchPgRepository(database db.Database) BatchRepository {
	return &batchPgRepository{db: database}
}

func (r *batchPgRepository) CreateIfAbsent(ctx context.Context, batch *entities.DataBatch) (bool, error) {
	res := r.db.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(batch)
	if res.Error != nil {
		return false, translate(res.Error, "create batch", "batch")
	}
	return res.RowsAffected == 1, nil
}

func (r *batchPgRepository) GetByID(ctx context.Context, id string) (*entities.DataBatch, error) {
	var batch entities.DataBatch
	if err := r.db.GetDB().WithContext(ctx).Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, translate(err, "get batch", "batch")
	}
	return &batch, nil
}

func (r *batchPgRepository) IncrementCount(ctx context.Context, id string, n int64) error {
	if n == 0 {
		return nil
	}
	res := r.db.GetDB().WithContext(ctx).Model(&entities.DataBatch{}).
		Where("id = ?", id).
		Update("data_count", gorm.Expr("data_count + ?", n))
	if res.Error != nil {
		return translate(res.Error, "increment batch count", "batch")
	}
	if res.RowsAffected == 0 {
		return translate(gormNotFound, "increment batch count", "batch")
	}
	return nil
}
