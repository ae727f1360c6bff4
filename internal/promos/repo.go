package promos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
)

// Repository manages promo codes and their usage records. Reads happen at
// quote time; the usage record and counter increment happen inside the
// materialization transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByCode(ctx context.Context, sellerID uuid.UUID, code string) (*models.PromoCode, error)
	CountUsageByBuyer(ctx context.Context, promoCodeID, buyerID uuid.UUID) (int64, error)
	RecordUsage(ctx context.Context, usage *models.PromoCodeUsage) error
	IncrementUsageCount(ctx context.Context, promoCodeID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a promo repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveByCode(ctx context.Context, sellerID uuid.UUID, code string) (*models.PromoCode, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND code = ? AND active = ?", sellerID, code, true).
		First(&promo).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	return &promo, nil
}

func (r *repository) CountUsageByBuyer(ctx context.Context, promoCodeID, buyerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PromoCodeUsage{}).
		Where("promo_code_id = ? AND buyer_id = ?", promoCodeID, buyerID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promo usage")
	}
	return count, nil
}

func (r *repository) RecordUsage(ctx context.Context, usage *models.PromoCodeUsage) error {
	if err := r.db.WithContext(ctx).Create(usage).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record promo usage")
	}
	return nil
}

func (r *repository) IncrementUsageCount(ctx context.Context, promoCodeID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ?", promoCodeID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "increment promo usage")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}
	return nil
}
