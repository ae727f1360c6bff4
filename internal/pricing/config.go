package pricing

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
)

// ConfigProvider supplies the global pricing configuration. It is queried
// exactly once per quote; the result is snapshotted into session metadata so
// later materialization never rereads it.
type ConfigProvider interface {
	Active(ctx context.Context) (*models.PlatformConfig, error)
}

type configRepository struct {
	db *gorm.DB
}

// NewConfigRepository reads the active platform config row. When no row is
// active, pricing falls back to zero tax and zero fee.
func NewConfigRepository(db *gorm.DB) ConfigProvider {
	return &configRepository{db: db}
}

func (r *configRepository) Active(ctx context.Context) (*models.PlatformConfig, error) {
	var cfg models.PlatformConfig
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("updated_at DESC").
		First(&cfg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &models.PlatformConfig{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform config")
	}
	return &cfg, nil
}
