package repo

import (
	"context"
	"time"

	"github.com/dushixiang/vigil/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTradeRepo(db *gorm.DB) *TradeRepo {
	return &TradeRepo{
		Repository: orz.NewRepository[models.Trade, string](db),
	}
}

type TradeRepo struct {
	orz.Repository[models.Trade, string]
}

// FindActive 查找所有仍需监控的信号（未平仓、未过期）
func (r TradeRepo) FindActive(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("status NOT IN ?", []string{models.StatusClosed, models.StatusExpired}).
		Order("created_at ASC").
		Find(&trades).Error
	return trades, err
}

// FindActiveByPair 查找指定交易对的活跃信号
func (r TradeRepo) FindActiveByPair(ctx context.Context, pair string) (m models.Trade, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("pair = ? AND status NOT IN ?", pair, []string{models.StatusClosed, models.StatusExpired}).
		Order("created_at DESC").
		First(&m).Error
	return m, err
}

// FindFinished 查找最近终结的信号
func (r TradeRepo) FindFinished(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("status IN ?", []string{models.StatusClosed, models.StatusExpired}).
		Order("updated_at DESC").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}

// FindFinishedSince 查找指定时间之后终结的信号，供每日汇总使用
func (r TradeRepo) FindFinishedSince(ctx context.Context, since time.Time) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("status IN ? AND updated_at >= ?", []string{models.StatusClosed, models.StatusExpired}, since).
		Order("updated_at ASC").
		Find(&trades).Error
	return trades, err
}

// CloseAllByPair 将指定交易对的所有活跃信号标记为已平仓，返回受影响数量
func (r TradeRepo) CloseAllByPair(ctx context.Context, pair string) (int64, error) {
	db := r.GetDB(ctx)
	result := db.Table(r.GetTableName()).
		Where("pair = ? AND status NOT IN ?", pair, []string{models.StatusClosed, models.StatusExpired}).
		Update("status", models.StatusClosed)
	return result.RowsAffected, result.Error
}
