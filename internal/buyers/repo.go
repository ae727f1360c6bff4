package buyers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
)

// Repository manages buyer reads and the loyalty balance.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Buyer, error)
	// AddLoyaltyPoints credits points atomically; a zero grant is a no-op.
	AddLoyaltyPoints(ctx context.Context, buyerID uuid.UUID, points int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a buyer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Buyer, error) {
	var buyer models.Buyer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&buyer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}
	return &buyer, nil
}

func (r *repository) AddLoyaltyPoints(ctx context.Context, buyerID uuid.UUID, points int) error {
	if points == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Buyer{}).
		Where("id = ?", buyerID).
		UpdateColumn("loyalty_points", gorm.Expr("loyalty_points + ?", points))
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "add loyalty points")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
	}
	return nil
}
