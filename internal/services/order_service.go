package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// Order event routing.
const (
	OrderExchange        = "order_events"
	RoutingOrderPlaced   = "order.placed"
	RoutingStatusUpdated = "order.status_updated"
)

// Transactor runs a unit of work inside one database transaction. fn may be
// run again in a fresh transaction after a serialization failure.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *repositories.Tx) error) error
}

// EventPublisher delivers order events to the message broker.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderLineRequest is one caller-supplied checkout line.
type OrderLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// OrderService handles business logic related to orders, including the
// checkout transaction.
type OrderService struct {
	store     Transactor
	orders    repositories.OrderRepository
	pricing   pricing.Config
	publisher EventPublisher
	metrics   *metrics.Checkout
	onStock   func(ctx context.Context, productIDs ...string)
	log       *zap.Logger
}

// OrderOption configures optional collaborators of OrderService.
type OrderOption func(*OrderService)

// WithEventPublisher publishes order events after commit.
func WithEventPublisher(p EventPublisher) OrderOption {
	return func(s *OrderService) { s.publisher = p }
}

// WithCheckoutMetrics records checkout outcomes.
func WithCheckoutMetrics(m *metrics.Checkout) OrderOption {
	return func(s *OrderService) { s.metrics = m }
}

// WithStockListener is called with the products whose stock changed after
// a committed checkout.
func WithStockListener(fn func(ctx context.Context, productIDs ...string)) OrderOption {
	return func(s *OrderService) { s.onStock = fn }
}

// NewOrderService creates a new OrderService.
func NewOrderService(store Transactor, orders repositories.OrderRepository, cfg pricing.Config, log *zap.Logger, opts ...OrderOption) *OrderService {
	s := &OrderService{
		store:   store,
		orders:  orders,
		pricing: cfg,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder converts the requested lines into a pending order. Within one
// transaction it checks stock, snapshots unit prices, writes the order and
// its items, decrements stock and empties the user's cart. Any failure rolls
// everything back.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, lines []OrderLineRequest) (*models.Order, error) {
	start := time.Now()
	order, err := s.placeOrder(ctx, userID, lines)
	if err != nil {
		s.metrics.Failed(failureReason(err), time.Since(start))
		s.log.Warn("order placement failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.metrics.Placed(time.Since(start))
	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("items", len(order.Items)))

	if s.onStock != nil {
		ids := make([]string, 0, len(order.Items))
		for _, item := range order.Items {
			ids = append(ids, item.ProductID)
		}
		s.onStock(ctx, ids...)
	}
	s.publish(RoutingOrderPlaced, order)

	stored, err := s.orders.GetByIDForUser(ctx, userID, order.ID)
	if err != nil {
		s.log.Warn("failed to reload placed order", zap.String("order_id", order.ID), zap.Error(err))
		return order, nil
	}
	return stored, nil
}

func (s *OrderService) placeOrder(ctx context.Context, userID string, lines []OrderLineRequest) (*models.Order, error) {
	if userID == "" || len(lines) == 0 {
		return nil, fmt.Errorf("%w: no items provided", ErrInvalidRequest)
	}
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			return nil, fmt.Errorf("%w: every item needs a product ID and a quantity of at least 1", ErrInvalidRequest)
		}
	}

	var order *models.Order
	err := s.store.Transaction(ctx, func(tx *repositories.Tx) error {
		priced := make([]pricing.Line, 0, len(lines))
		items := make([]models.OrderItem, 0, len(lines))
		requested := make(map[string]int, len(lines))

		for _, l := range lines {
			product, err := tx.Products.GetForUpdate(ctx, l.ProductID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return productError(l.ProductID, ErrProductNotFound)
				}
				return creationFailed(err)
			}

			// Lines repeating a product draw on the same stock.
			requested[l.ProductID] += l.Quantity
			if product.Stock < requested[l.ProductID] {
				return productError(l.ProductID, ErrInsufficientStock)
			}

			line := pricing.Line{UnitPrice: product.Price, Quantity: l.Quantity}
			priced = append(priced, line)
			items = append(items, models.OrderItem{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Price:     product.Price,
				Subtotal:  pricing.Round2(line.Subtotal()),
			})
		}

		totals := pricing.Quote(s.pricing, priced)
		o := &models.Order{
			UserID:   userID,
			Status:   models.OrderStatusPending,
			Subtotal: totals.Subtotal,
			Tax:      totals.Tax,
			Shipping: totals.Shipping,
			Total:    totals.Total,
			Items:    items,
		}
		if err := tx.Orders.Create(ctx, o); err != nil {
			return creationFailed(err)
		}

		for _, l := range lines {
			if err := tx.Products.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return creationFailed(err)
			}
		}

		if _, err := tx.Carts.ClearByUser(ctx, userID); err != nil {
			return creationFailed(err)
		}

		order = o
		return nil
	})
	if err != nil {
		var perr *ProductError
		if errors.As(err, &perr) || errors.Is(err, ErrOrderCreationFailed) {
			return nil, err
		}
		// Begin or commit failed.
		return nil, creationFailed(err)
	}
	return order, nil
}

func creationFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrOrderCreationFailed, err)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case repositories.IsRetryable(err):
		return "serialization_conflict"
	}
	return "creation_failed"
}

// orderEvent is the message body published for order events.
type orderEvent struct {
	OrderID string           `json:"order_id"`
	UserID  string           `json:"user_id"`
	Status  string           `json:"status"`
	Total   string           `json:"total"`
	Items   []orderEventItem `json:"items,omitempty"`
	At      time.Time        `json:"at"`
}

type orderEventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// publish is best effort: the order is already committed.
func (s *OrderService) publish(routingKey string, order *models.Order) {
	if s.publisher == nil {
		return
	}

	event := orderEvent{
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  order.Status,
		Total:   order.Total.StringFixed(2),
		At:      time.Now().UTC(),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, orderEventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
		})
	}

	body, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to marshal order event", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(OrderExchange, routingKey, body); err != nil {
		s.log.Warn("failed to publish order event",
			zap.String("order_id", order.ID),
			zap.String("routing_key", routingKey),
			zap.Error(err))
	}
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// GetOrder returns one of the user's orders.
func (s *OrderService) GetOrder(ctx context.Context, userID, id string) (*models.Order, error) {
	order, err := s.orders.GetByIDForUser(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// SetOrderStatus moves any order to status. It is the admin path: a
// cancelled order stays cancelled, and cancelling returns the order's units
// to stock in the same transaction.
func (s *OrderService) SetOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrderStatus, status)
	}
	return s.transition(ctx, id, status, func(*models.Order) error { return nil })
}

// CancelOrder cancels one of the user's orders while it is still pending and
// returns its units to stock.
func (s *OrderService) CancelOrder(ctx context.Context, userID, id string) (*models.Order, error) {
	return s.transition(ctx, id, models.OrderStatusCancelled, func(order *models.Order) error {
		if order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: %s orders cannot be cancelled", ErrInvalidOrderStatus, order.Status)
		}
		return nil
	})
}

// transition locks the order, lets allow veto the change and writes the new
// status. Events and stock notifications follow the commit.
func (s *OrderService) transition(ctx context.Context, id, status string, allow func(*models.Order) error) (*models.Order, error) {
	var (
		order     *models.Order
		changed   bool
		restocked []string
	)
	err := s.store.Transaction(ctx, func(tx *repositories.Tx) error {
		changed, restocked = false, nil

		o, err := tx.Orders.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if err := allow(o); err != nil {
			return err
		}
		order = o

		if o.Status == status {
			return nil
		}
		if o.Status == models.OrderStatusCancelled {
			return fmt.Errorf("%w: cancelled orders cannot move to %s", ErrInvalidOrderStatus, status)
		}

		if status == models.OrderStatusCancelled {
			for _, item := range o.Items {
				if err := tx.Products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return fmt.Errorf("failed to restock product %s: %w", item.ProductID, err)
				}
				restocked = append(restocked, item.ProductID)
			}
		}

		if err := tx.Orders.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		o.Status = status
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidOrderStatus) {
			return nil, err
		}
		s.log.Error("order status update failed", zap.String("order_id", id), zap.String("status", status), zap.Error(err))
		return nil, fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}

	if changed {
		s.log.Info("order status updated",
			zap.String("order_id", id),
			zap.String("status", status),
			zap.Int("restocked_items", len(restocked)))
		if len(restocked) > 0 && s.onStock != nil {
			s.onStock(ctx, restocked...)
		}
		s.publish(RoutingStatusUpdated, order)
	}
	return order, nil
}
