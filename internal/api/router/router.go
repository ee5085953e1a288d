package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"govenda/internal/api/cart"
	"govenda/internal/api/catalog"
	"govenda/internal/domain"
	"govenda/internal/pkg/cache"
	"govenda/internal/pkg/middleware"
	"govenda/internal/pkg/token"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(cartHandler *cart.Handler, catalogHandler *catalog.Handler, tokenSvc token.TokenService, cacheClient cache.Client, rateLimit int, ratePeriod time.Duration) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	// (com os padrões de método e path do Go 1.22+).
	mux := http.NewServeMux()

	// --- 1. Rotas de infraestrutura ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Autenticação: todas as rotas de negócio exigem um operador autenticado
	// (vendedor ou admin).
	auth := middleware.NewAuthMiddleware(tokenSvc)
	operator := middleware.PermissionMiddleware(domain.RoleSeller, domain.RoleAdmin)
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return auth(operator(h))
	}

	// --- 2. Rotas do wizard de venda (v1) ---
	mux.HandleFunc("POST /v1/carts", protected(cartHandler.OpenCartHandler))
	mux.HandleFunc("GET /v1/carts/{id}", protected(cartHandler.GetCartHandler))
	mux.HandleFunc("DELETE /v1/carts/{id}", protected(cartHandler.CancelCartHandler))
	mux.HandleFunc("POST /v1/carts/{id}/items/toggle", protected(cartHandler.ToggleItemHandler))
	mux.HandleFunc("PUT /v1/carts/{id}/items/quantity", protected(cartHandler.SetQuantityHandler))
	mux.HandleFunc("PUT /v1/carts/{id}/items/zoning", protected(cartHandler.SetZoningHandler))
	mux.HandleFunc("PUT /v1/carts/{id}/customer", protected(cartHandler.SetCustomerHandler))
	mux.HandleFunc("PUT /v1/carts/{id}/environment", protected(cartHandler.SetEnvironmentHandler))
	mux.HandleFunc("PUT /v1/carts/{id}/observations", protected(cartHandler.SetObservationsHandler))
	mux.HandleFunc("PUT /v1/carts/{id}/payment-plan", protected(cartHandler.SetPaymentPlanHandler))
	mux.HandleFunc("POST /v1/carts/{id}/finalize", protected(cartHandler.FinalizeHandler))

	// --- 3. Rotas de leitura do catálogo (v1) ---
	mux.HandleFunc("GET /v1/environments/{id}/products", protected(catalogHandler.ListProductsHandler))
	mux.HandleFunc("GET /v1/environments/{id}/services", protected(catalogHandler.ListServicesHandler))

	// --- 4. Middlewares globais ---
	return middleware.RateLimiter(cacheClient, rateLimit, ratePeriod)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
