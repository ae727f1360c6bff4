package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

// Service creates seller notifications. All operations are fire-and-forget
// from the caller's perspective: failures are logged and never propagate into
// the order pipeline.
type Service interface {
	NotifyNewOrder(ctx context.Context, sellerID, orderID uuid.UUID, orderCode string)
	NotifyOrderEvent(ctx context.Context, sellerID uuid.UUID, orderID *uuid.UUID, kind enums.NotificationType, message string)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires notifications dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) NotifyNewOrder(ctx context.Context, sellerID, orderID uuid.UUID, orderCode string) {
	s.NotifyOrderEvent(ctx, sellerID, &orderID, enums.NotificationTypeNewOrder,
		fmt.Sprintf("New order %s received", orderCode))
}

func (s *service) NotifyOrderEvent(ctx context.Context, sellerID uuid.UUID, orderID *uuid.UUID, kind enums.NotificationType, message string) {
	if sellerID == uuid.Nil {
		return
	}
	notification := &models.Notification{
		SellerID: sellerID,
		OrderID:  orderID,
		Type:     kind,
		Message:  message,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		ctx = s.logg.WithSellerID(ctx, sellerID.String())
		s.logg.Error(ctx, "failed to create seller notification", err)
	}
}
