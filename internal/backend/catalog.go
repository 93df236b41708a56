package backend

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Product is a catalog entry.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// ProductList is the result of a catalog listing or search.
type ProductList struct {
	Products []Product `json:"products"`
	Query    string    `json:"query,omitempty"`
	Total    int       `json:"total"`
	Service  string    `json:"service"`
}

// ProductResult wraps a single product lookup.
type ProductResult struct {
	Product Product `json:"product"`
	Service string  `json:"service"`
}

// Catalog simulates a product catalog microservice with a fixed inventory.
type Catalog struct {
	// UnhealthyRate and FaultRate control the simulated failure injection
	// and exist only for the simulation; the mesh never depends on them.
	UnhealthyRate float64
	FaultRate     float64

	name     string
	inject   *Injector
	products []Product
}

func NewCatalog(inject *Injector) *Catalog {
	return &Catalog{
		UnhealthyRate: 0.10,
		FaultRate:     0.05,
		name:          "catalog-service",
		inject:        inject,
		products: []Product{
			{ID: 1, Name: "Laptop", Price: 999.99, Category: "Electronics"},
			{ID: 2, Name: "Phone", Price: 599.99, Category: "Electronics"},
			{ID: 3, Name: "Book", Price: 19.99, Category: "Books"},
			{ID: 4, Name: "Headphones", Price: 149.99, Category: "Electronics"},
			{ID: 5, Name: "Shoes", Price: 79.99, Category: "Fashion"},
		},
	}
}

// HealthCheck reports the simulated health of the catalog service.
func (c *Catalog) HealthCheck(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.inject.Fail(c.UnhealthyRate) {
		return HealthStatus{
			Service:   c.name,
			Status:    StatusUnhealthy,
			Timestamp: time.Now().Format(time.RFC3339),
			Message:   "service temporarily unavailable",
		}, nil
	}

	return HealthStatus{
		Service:   c.name,
		Status:    StatusHealthy,
		Timestamp: time.Now().Format(time.RFC3339),
	}, nil
}

// Products returns the full inventory.
func (c *Catalog) Products(ctx context.Context) (any, error) {
	if err := c.inject.Delay(ctx); err != nil {
		return nil, err
	}

	if c.inject.Fail(c.FaultRate) {
		return nil, fmt.Errorf("database connection failed")
	}

	return ProductList{
		Products: c.products,
		Total:    len(c.products),
		Service:  c.name,
	}, nil
}

// Product looks up a single product by ID.
func (c *Catalog) Product(ctx context.Context, id int) (any, error) {
	if err := c.inject.Delay(ctx); err != nil {
		return nil, err
	}

	for _, p := range c.products {
		if p.ID == id {
			return ProductResult{Product: p, Service: c.name}, nil
		}
	}

	return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
}

// Search returns products whose name or category matches the query.
func (c *Catalog) Search(ctx context.Context, query string) (any, error) {
	if err := c.inject.Delay(ctx); err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	results := make([]Product, 0)
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Category), q) {
			results = append(results, p)
		}
	}

	return ProductList{
		Products: results,
		Query:    query,
		Total:    len(results),
		Service:  c.name,
	}, nil
}
