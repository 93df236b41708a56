package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/meshsim/gateway/internal/backend"
	"github.com/meshsim/gateway/internal/discovery"
	"github.com/meshsim/gateway/internal/mesh"
	"github.com/meshsim/gateway/internal/metrics"
)

// Gateway exposes the backend services over HTTP, routing every call
// through the mesh dispatcher.
type Gateway struct {
	logger     *slog.Logger
	dispatcher *mesh.Dispatcher
	catalog    *backend.Catalog
	cart       *backend.Cart
	orders     *backend.Orders
	services   *discovery.Registry
	collector  *metrics.Collector
}

func NewGateway(
	logger *slog.Logger,
	dispatcher *mesh.Dispatcher,
	catalog *backend.Catalog,
	cart *backend.Cart,
	orders *backend.Orders,
	services *discovery.Registry,
	collector *metrics.Collector,
) *Gateway {
	return &Gateway{
		logger:     logger,
		dispatcher: dispatcher,
		catalog:    catalog,
		cart:       cart,
		orders:     orders,
		services:   services,
		collector:  collector,
	}
}

// forward dispatches one operation through the mesh and writes the result
// or the mapped error, emitting metric events along the way.
func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, service string, op backend.Operation) {
	g.logger.Info("received request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("service", service))

	g.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventDispatchReceived,
		Timestamp: time.Now(),
		Service:   service,
	})

	start := time.Now()
	result, err := g.dispatcher.Forward(r.Context(), service, op)
	duration := time.Since(start)

	if err != nil {
		status := errorStatus(err)

		if status == http.StatusServiceUnavailable && isCircuitOpen(err) {
			g.emitEvent(metrics.MetricEvent{
				Type:      metrics.EventCircuitRejected,
				Timestamp: time.Now(),
				Service:   service,
			})
		} else {
			g.emitEvent(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Timestamp:  time.Now(),
				Service:    service,
				Duration:   duration,
				StatusCode: status,
			})
		}

		respondError(w, status, err)
		return
	}

	g.emitEvent(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Service:    service,
		Duration:   duration,
		StatusCode: http.StatusOK,
	})

	respondJSON(w, http.StatusOK, result)
}

func (g *Gateway) emitEvent(event metrics.MetricEvent) {
	if g.collector == nil {
		return
	}

	select {
	case g.collector.EventChannel() <- event:
	default:
	}
}

// Root describes the gateway and its routes.
func (g *Gateway) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service":     "mesh-gateway",
		"description": "service mesh gateway simulation",
		"services": map[string]string{
			"catalog": "/catalog/*",
			"cart":    "/cart/*",
			"order":   "/order/*",
		},
		"mesh_features": []string{
			"circuit breaker",
			"retry with backoff",
			"load balancing",
			"health monitoring",
		},
	})
}

// MeshStatus reports every circuit breaker's state.
func (g *Gateway) MeshStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"circuit_breakers": g.dispatcher.Breakers().Status(),
		"timestamp":        time.Now().Format(time.RFC3339),
		"gateway_status":   "healthy",
	})
}

// MeshReset force-closes a named service's breaker.
func (g *Gateway) MeshReset(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	if !g.dispatcher.Breakers().ResetBreaker(service) {
		respondDetail(w, http.StatusNotFound, "service not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "circuit breaker reset for " + service,
	})
}

// MeshServices lists the registered services and their observed health.
func (g *Gateway) MeshServices(w http.ResponseWriter, r *http.Request) {
	services := g.services.Snapshot()

	healthy := 0
	for _, s := range services {
		if s.Status == discovery.StatusHealthy {
			healthy++
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"services":         services,
		"total_services":   len(services),
		"healthy_services": healthy,
	})
}

// --- catalog routes ---

func (g *Gateway) CatalogHealth(w http.ResponseWriter, r *http.Request) {
	g.forward(w, r, "catalog", g.catalog.HealthCheck)
}

func (g *Gateway) CatalogProducts(w http.ResponseWriter, r *http.Request) {
	g.forward(w, r, "catalog", g.catalog.Products)
}

func (g *Gateway) CatalogProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "product id must be an integer")
		return
	}

	g.forward(w, r, "catalog", func(ctx context.Context) (any, error) {
		return g.catalog.Product(ctx, id)
	})
}

func (g *Gateway) CatalogSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondDetail(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	g.forward(w, r, "catalog", func(ctx context.Context) (any, error) {
		return g.catalog.Search(ctx, query)
	})
}

// --- cart routes ---

func (g *Gateway) CartHealth(w http.ResponseWriter, r *http.Request) {
	g.forward(w, r, "cart", g.cart.HealthCheck)
}

func (g *Gateway) CartGet(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	g.forward(w, r, "cart", func(ctx context.Context) (any, error) {
		return g.cart.Get(ctx, userID)
	})
}

func (g *Gateway) CartAdd(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	productID, err := strconv.Atoi(r.URL.Query().Get("product_id"))
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "product_id must be an integer")
		return
	}

	quantity := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		quantity, err = strconv.Atoi(q)
		if err != nil {
			respondDetail(w, http.StatusBadRequest, "quantity must be an integer")
			return
		}
	}

	g.forward(w, r, "cart", func(ctx context.Context) (any, error) {
		return g.cart.Add(ctx, userID, productID, quantity)
	})
}

func (g *Gateway) CartRemove(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	productID, err := strconv.Atoi(r.PathValue("product"))
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "product id must be an integer")
		return
	}

	g.forward(w, r, "cart", func(ctx context.Context) (any, error) {
		return g.cart.Remove(ctx, userID, productID)
	})
}

func (g *Gateway) CartClear(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	g.forward(w, r, "cart", func(ctx context.Context) (any, error) {
		return g.cart.Clear(ctx, userID)
	})
}

// --- order routes ---

func (g *Gateway) OrderHealth(w http.ResponseWriter, r *http.Request) {
	g.forward(w, r, "order", g.orders.HealthCheck)
}

// OrderCreate builds an order from the user's cart, then clears the cart.
// Each step goes through the mesh independently.
func (g *Gateway) OrderCreate(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondDetail(w, http.StatusBadRequest, "query parameter user_id is required")
		return
	}

	ctx := r.Context()

	cartResult, err := g.dispatcher.Forward(ctx, "cart", func(ctx context.Context) (any, error) {
		return g.cart.Get(ctx, userID)
	})
	if err != nil {
		respondError(w, errorStatus(err), err)
		return
	}

	cart, ok := cartResult.(backend.CartResult)
	if !ok || len(cart.Items) == 0 {
		respondDetail(w, http.StatusBadRequest, "cart is empty")
		return
	}

	g.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventDispatchReceived,
		Timestamp: time.Now(),
		Service:   "order",
	})

	start := time.Now()
	orderResult, err := g.dispatcher.Forward(ctx, "order", func(ctx context.Context) (any, error) {
		return g.orders.Create(ctx, userID, cart.Items)
	})
	if err != nil {
		respondError(w, errorStatus(err), err)
		return
	}

	g.emitEvent(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Service:    "order",
		Duration:   time.Since(start),
		StatusCode: http.StatusOK,
	})

	// Clear the cart after a successful order; a failure here leaves the
	// order in place and only logs.
	if _, err := g.dispatcher.Forward(ctx, "cart", func(ctx context.Context) (any, error) {
		return g.cart.Clear(ctx, userID)
	}); err != nil {
		g.logger.Warn("failed to clear cart after order",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	respondJSON(w, http.StatusOK, orderResult)
}

func (g *Gateway) OrderGet(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	g.forward(w, r, "order", func(ctx context.Context) (any, error) {
		return g.orders.Get(ctx, orderID)
	})
}

func (g *Gateway) OrderUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	g.forward(w, r, "order", func(ctx context.Context) (any, error) {
		return g.orders.UserOrders(ctx, userID)
	})
}

func (g *Gateway) OrderUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	status := r.URL.Query().Get("status")
	if status == "" {
		respondDetail(w, http.StatusBadRequest, "query parameter status is required")
		return
	}

	g.forward(w, r, "order", func(ctx context.Context) (any, error) {
		return g.orders.UpdateStatus(ctx, orderID, status)
	})
}

func (g *Gateway) OrderCancel(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	g.forward(w, r, "order", func(ctx context.Context) (any, error) {
		return g.orders.Cancel(ctx, orderID)
	})
}
