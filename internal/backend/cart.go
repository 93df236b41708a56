package backend

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// CartItem is a single product line in a user's cart.
type CartItem struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// CartResult is the full contents of one user's cart.
type CartResult struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"item_count"`
	Service   string     `json:"service"`
}

// CartChange reports the outcome of a cart mutation.
type CartChange struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	ItemCount int    `json:"item_count"`
	Service   string `json:"service"`
}

// Cart simulates a shopping cart microservice with in-memory storage.
type Cart struct {
	UnhealthyRate float64
	FaultRate     float64

	name   string
	inject *Injector

	mutex sync.Mutex
	carts map[string][]CartItem
}

// Known products the cart can resolve. A real cart would call the catalog
// service instead of holding its own price table.
var cartProducts = map[int]struct {
	Name  string
	Price float64
}{
	1: {"Laptop", 999.99},
	2: {"Phone", 599.99},
	3: {"Book", 19.99},
	4: {"Headphones", 149.99},
	5: {"Shoes", 79.99},
}

func NewCart(inject *Injector) *Cart {
	return &Cart{
		UnhealthyRate: 0.08,
		FaultRate:     0.03,
		name:          "cart-service",
		inject:        inject,
		carts:         make(map[string][]CartItem),
	}
}

// HealthCheck reports the simulated health of the cart service.
func (c *Cart) HealthCheck(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.inject.Fail(c.UnhealthyRate) {
		return HealthStatus{
			Service:   c.name,
			Status:    StatusUnhealthy,
			Timestamp: time.Now().Format(time.RFC3339),
			Message:   "cart service overloaded",
		}, nil
	}

	return HealthStatus{
		Service:   c.name,
		Status:    StatusHealthy,
		Timestamp: time.Now().Format(time.RFC3339),
	}, nil
}

// Get returns the user's cart, creating an empty view if none exists.
func (c *Cart) Get(ctx context.Context, userID string) (any, error) {
	if err := c.inject.Delay(ctx); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	items := append([]CartItem(nil), c.carts[userID]...)
	c.mutex.Unlock()

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}

	return CartResult{
		UserID:    userID,
		Items:     items,
		Total:     round2(total),
		ItemCount: len(items),
		Service:   c.name,
	}, nil
}

// Add puts a product into the user's cart.
func (c *Cart) Add(ctx context.Context, userID string, productID, quantity int) (any, error) {
	if err := c.inject.Delay(ctx); err != nil {
		return nil, err
	}

	if c.inject.Fail(c.FaultRate) {
		return nil, fmt.Errorf("failed to add item to cart")
	}

	product, ok := cartProducts[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}

	if quantity < 1 {
		quantity = 1
	}

	c.mutex.Lock()
	c.carts[userID] = append(c.carts[userID], CartItem{
		ProductID: productID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  quantity,
	})
	count := len(c.carts[userID])
	c.mutex.Unlock()

	return CartChange{
		Message:   fmt.Sprintf("added %s to cart", product.Name),
		UserID:    userID,
		ItemCount: count,
		Service:   c.name,
	}, nil
}

// Remove deletes the first matching product line from the user's cart.
func (c *Cart) Remove(ctx context.Context, userID string, productID int) (any, error) {
	if err := c.inject.Delay(ctx); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	items := c.carts[userID]
	for i, item := range items {
		if item.ProductID == productID {
			c.carts[userID] = append(items[:i], items[i+1:]...)
			return CartChange{
				Message:   fmt.Sprintf("removed %s from cart", item.Name),
				UserID:    userID,
				ItemCount: len(c.carts[userID]),
				Service:   c.name,
			}, nil
		}
	}

	return nil, fmt.Errorf("product %d not in cart: %w", productID, ErrNotFound)
}

// Clear empties the user's cart.
func (c *Cart) Clear(ctx context.Context, userID string) (any, error) {
	if err := c.inject.Delay(ctx); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	delete(c.carts, userID)
	c.mutex.Unlock()

	return CartChange{
		Message: "cart cleared",
		UserID:  userID,
		Service: c.name,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
