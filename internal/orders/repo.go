package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
)

// Repository manages order aggregates. Reads preload line items; the order row
// and its items are always written inside the materialization or adjustment
// transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	// FindByPaymentRef matches either external reference kind.
	FindByPaymentRef(ctx context.Context, ref string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	SaveLineItem(ctx context.Context, item *models.OrderLineItem) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	// Unique violations on the payment reference surface untranslated so the
	// materializer can treat the race as "already materialized".
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	return r.findOne(ctx, "code = ?", code)
}

func (r *repository) FindByPaymentRef(ctx context.Context, ref string) (*models.Order, error) {
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	return r.findOne(ctx, "payment_intent_id = ? OR checkout_session_id = ?", ref, ref)
}

func (r *repository) findOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where(query, args...).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return rows, nil
}

func (r *repository) Save(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).
		Omit("Items").
		Save(order).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
	}
	return nil
}

func (r *repository) SaveLineItem(ctx context.Context, item *models.OrderLineItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save line item")
	}
	return nil
}
