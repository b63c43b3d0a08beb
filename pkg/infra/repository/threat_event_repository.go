package repository

import (
	"context"

	"github.com/NeuralTrust/ThreatGuard/pkg/domain/threatevent"
	"gorm.io/gorm"
)

type threatEventRepository struct {
	db *gorm.DB
}

func NewThreatEventRepository(db *gorm.DB) threatevent.Repository {
	return &threatEventRepository{
		db: db,
	}
}

func (r *threatEventRepository) Save(ctx context.Context, evt *threatevent.ThreatEvent) error {
	return r.db.WithContext(ctx).Create(evt).Error
}
