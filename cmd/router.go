package main

import (
	"net/http"

	"github.com/meshsim/gateway/internal/handler"
	"github.com/meshsim/gateway/internal/metrics"
)

func setupRouter(gw *handler.Gateway, collector *metrics.Collector, picker *handler.ReplicaPicker) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", gw.Root)

	mux.HandleFunc("GET /mesh/status", gw.MeshStatus)
	mux.HandleFunc("POST /mesh/reset/{service}", gw.MeshReset)
	mux.HandleFunc("GET /mesh/services", gw.MeshServices)
	mux.HandleFunc("GET /metrics", collector.Handler(gatewayName))

	mux.HandleFunc("GET /catalog/health", gw.CatalogHealth)
	mux.HandleFunc("GET /catalog/products", gw.CatalogProducts)
	mux.HandleFunc("GET /catalog/products/{id}", gw.CatalogProduct)
	mux.HandleFunc("GET /catalog/search", gw.CatalogSearch)

	mux.HandleFunc("GET /cart/health", gw.CartHealth)
	mux.HandleFunc("GET /cart/{user}", gw.CartGet)
	mux.HandleFunc("POST /cart/{user}/add", gw.CartAdd)
	mux.HandleFunc("DELETE /cart/{user}/remove/{product}", gw.CartRemove)
	mux.HandleFunc("DELETE /cart/{user}/clear", gw.CartClear)

	mux.HandleFunc("GET /order/health", gw.OrderHealth)
	mux.HandleFunc("POST /order/create", gw.OrderCreate)
	mux.HandleFunc("GET /order/{id}", gw.OrderGet)
	mux.HandleFunc("GET /order/user/{user}", gw.OrderUserOrders)
	mux.HandleFunc("POST /order/{id}/status", gw.OrderUpdateStatus)
	mux.HandleFunc("DELETE /order/{id}", gw.OrderCancel)

	return handler.MeshHeaders(picker, mux)
}
