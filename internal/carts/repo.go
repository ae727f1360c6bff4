package carts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
)

// Repository exposes the cart operations the checkout pipeline needs: reading
// the active cart at quote time and clearing it at materialization.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	// Clear marks the buyer's active cart converted and removes its items.
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ? AND status = ?", buyerID, enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return &cart, nil
}

func (r *repository) Clear(ctx context.Context, buyerID uuid.UUID) error {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND status = ?", buyerID, enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart for clear")
	}

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Delete(&models.CartItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart items")
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		UpdateColumn("status", enums.CartStatusConverted).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cart converted")
	}
	return nil
}
