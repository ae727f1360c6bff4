package sellers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
)

// Repository manages seller reads plus the payout-readiness flag the
// processor's account webhook keeps in sync.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindByPayoutAccountID(ctx context.Context, accountID string) (*models.Seller, error)
	UpdatePayoutsEnabled(ctx context.Context, sellerID uuid.UUID, enabled bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a seller repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&seller).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	return &seller, nil
}

func (r *repository) FindByPayoutAccountID(ctx context.Context, accountID string) (*models.Seller, error) {
	if accountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout account id required")
	}
	var seller models.Seller
	err := r.db.WithContext(ctx).Where("payout_account_id = ?", accountID).First(&seller).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found for payout account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller by payout account")
	}
	return &seller, nil
}

func (r *repository) UpdatePayoutsEnabled(ctx context.Context, sellerID uuid.UUID, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ?", sellerID).
		UpdateColumn("payouts_enabled", enabled)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update payouts flag")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return nil
}
