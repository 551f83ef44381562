package repo

import (
	"context"

	"github.com/dushixiang/vigil/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewAlertRepo(db *gorm.DB) *AlertRepo {
	return &AlertRepo{
		Repository: orz.NewRepository[models.AlertRecord, string](db),
	}
}

type AlertRepo struct {
	orz.Repository[models.AlertRecord, string]
}

// FindByTradeId 查找某个信号的全部提醒记录
func (r AlertRepo) FindByTradeId(ctx context.Context, tradeID string) ([]models.AlertRecord, error) {
	var records []models.AlertRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("trade_id = ?", tradeID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

// FindRecent 查找最近的提醒记录
func (r AlertRepo) FindRecent(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	var records []models.AlertRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
