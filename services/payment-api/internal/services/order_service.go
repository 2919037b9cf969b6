package services

import (
	"context"

	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/database"
	"github.com/nimeshabuddhika/checkout-service/pkg/repositories"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/views"
	"go.uber.org/zap"
)

type OrderService interface {
	GetOrder(ctx context.Context, traceID string, sessionID string) (views.OrderResponse, error)
}

type OrderServiceImpl struct {
	logger    *zap.Logger
	db        database.Querier // nil when no order store is configured
	orderRepo repositories.OrderRepository
}

func NewOrderService(logger *zap.Logger, db database.Querier, orderRepo repositories.OrderRepository) OrderService {
	return &OrderServiceImpl{
		logger:    logger,
		db:        db,
		orderRepo: orderRepo,
	}
}

func (o *OrderServiceImpl) GetOrder(ctx context.Context, traceID string, sessionID string) (views.OrderResponse, error) {
	if o.db == nil {
		return views.OrderResponse{}, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "order store is not configured", nil)
	}
	order, err := o.orderRepo.FindBySessionID(ctx, o.db, sessionID)
	if err != nil {
		return views.OrderResponse{}, pkg.HandleSQLError(traceID, o.logger, err)
	}
	return views.ToOrderResponse(order), nil
}
