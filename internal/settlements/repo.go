package settlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
)

// Repository manages the settlement ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, settlement *models.Settlement) error
	// FindPendingDue returns every pending settlement whose scheduled date is
	// at or before cutoff, ordered by seller for stable batch grouping.
	FindPendingDue(ctx context.Context, cutoff time.Time) ([]models.Settlement, error)
	FindPendingByOrder(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Settlement, error)
	// MarkSettled stamps transfer metadata onto the given pending rows.
	MarkSettled(ctx context.Context, ids []uuid.UUID, transferID string, settledAt time.Time) error
	Save(ctx context.Context, settlement *models.Settlement) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, settlement *models.Settlement) error {
	if err := r.db.WithContext(ctx).Create(settlement).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement")
	}
	return nil
}

func (r *repository) FindPendingDue(ctx context.Context, cutoff time.Time) ([]models.Settlement, error) {
	var rows []models.Settlement
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", enums.SettlementStatusPending, cutoff).
		Order("seller_id, scheduled_for").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due settlements")
	}
	return rows, nil
}

func (r *repository) FindPendingByOrder(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error) {
	var row models.Settlement
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.SettlementStatusPending).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending settlement for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement by order")
	}
	return &row, nil
}

func (r *repository) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Settlement, error) {
	var rows []models.Settlement
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("scheduled_for DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller settlements")
	}
	return rows, nil
}

func (r *repository) MarkSettled(ctx context.Context, ids []uuid.UUID, transferID string, settledAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Settlement{}).
		Where("id IN ? AND status = ?", ids, enums.SettlementStatusPending).
		Updates(map[string]any{
			"status":      enums.SettlementStatusSettled,
			"transfer_id": transferID,
			"settled_at":  settledAt,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark settlements settled")
	}
	return nil
}

func (r *repository) Save(ctx context.Context, settlement *models.Settlement) error {
	if err := r.db.WithContext(ctx).Save(settlement).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settlement")
	}
	return nil
}
