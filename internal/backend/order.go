package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Order is a confirmed purchase created from a cart.
type Order struct {
	OrderID   string     `json:"order_id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	Status    string     `json:"status"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at,omitempty"`
}

// OrderList is every order belonging to one user.
type OrderList struct {
	UserID      string  `json:"user_id"`
	Orders      []Order `json:"orders"`
	TotalOrders int     `json:"total_orders"`
	Service     string  `json:"service"`
}

// OrderChange reports the outcome of a status update or cancellation.
type OrderChange struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Service string `json:"service"`
}

var orderStatuses = map[string]bool{
	"confirmed":  true,
	"processing": true,
	"shipped":    true,
	"delivered":  true,
	"cancelled":  true,
}

// Orders simulates an order processing microservice with in-memory storage.
type Orders struct {
	UnhealthyRate float64
	FaultRate     float64

	name   string
	inject *Injector

	mutex  sync.Mutex
	orders map[string]Order
}

func NewOrders(inject *Injector) *Orders {
	return &Orders{
		UnhealthyRate: 0.12,
		FaultRate:     0.07,
		name:          "order-service",
		inject:        inject,
		orders:        make(map[string]Order),
	}
}

// HealthCheck reports the simulated health of the order service.
func (o *Orders) HealthCheck(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if o.inject.Fail(o.UnhealthyRate) {
		return HealthStatus{
			Service:   o.name,
			Status:    StatusUnhealthy,
			Timestamp: time.Now().Format(time.RFC3339),
			Message:   "order processing system down",
		}, nil
	}

	return HealthStatus{
		Service:   o.name,
		Status:    StatusHealthy,
		Timestamp: time.Now().Format(time.RFC3339),
	}, nil
}

// Create builds a new order from the given cart items.
func (o *Orders) Create(ctx context.Context, userID string, items []CartItem) (any, error) {
	if err := o.inject.Delay(ctx); err != nil {
		return nil, err
	}

	if o.inject.Fail(o.FaultRate) {
		return nil, fmt.Errorf("payment processing failed")
	}

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}

	order := Order{
		OrderID:   uuid.NewString()[:8],
		UserID:    userID,
		Items:     items,
		Total:     round2(total),
		Status:    "confirmed",
		CreatedAt: time.Now().Format(time.RFC3339),
	}

	o.mutex.Lock()
	o.orders[order.OrderID] = order
	o.mutex.Unlock()

	return order, nil
}

// Get returns a single order by ID.
func (o *Orders) Get(ctx context.Context, orderID string) (any, error) {
	if err := o.inject.Delay(ctx); err != nil {
		return nil, err
	}

	o.mutex.Lock()
	order, ok := o.orders[orderID]
	o.mutex.Unlock()

	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}

	return order, nil
}

// UserOrders returns every order placed by the given user.
func (o *Orders) UserOrders(ctx context.Context, userID string) (any, error) {
	if err := o.inject.Delay(ctx); err != nil {
		return nil, err
	}

	o.mutex.Lock()
	orders := make([]Order, 0)
	for _, order := range o.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	o.mutex.Unlock()

	return OrderList{
		UserID:      userID,
		Orders:      orders,
		TotalOrders: len(orders),
		Service:     o.name,
	}, nil
}

// UpdateStatus moves an order to a new status.
func (o *Orders) UpdateStatus(ctx context.Context, orderID, status string) (any, error) {
	if err := o.inject.Delay(ctx); err != nil {
		return nil, err
	}

	if !orderStatuses[status] {
		return nil, fmt.Errorf("invalid status %q: %w", status, ErrBadRequest)
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	order, ok := o.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}

	order.Status = status
	order.UpdatedAt = time.Now().Format(time.RFC3339)
	o.orders[orderID] = order

	return OrderChange{
		OrderID: orderID,
		Status:  status,
		Message: "order status updated",
		Service: o.name,
	}, nil
}

// Cancel cancels an order that has not shipped yet.
func (o *Orders) Cancel(ctx context.Context, orderID string) (any, error) {
	if err := o.inject.Delay(ctx); err != nil {
		return nil, err
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	order, ok := o.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}

	if order.Status == "shipped" || order.Status == "delivered" {
		return nil, fmt.Errorf("cannot cancel %s order: %w", order.Status, ErrBadRequest)
	}

	order.Status = "cancelled"
	order.UpdatedAt = time.Now().Format(time.RFC3339)
	o.orders[orderID] = order

	return OrderChange{
		OrderID: orderID,
		Status:  "cancelled",
		Message: "order cancelled",
		Service: o.name,
	}, nil
}
