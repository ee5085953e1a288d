package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
)

// CatalogService define o contrato que o Handler espera da camada de Serviço.
type CatalogService interface {
	ListByEnvironment(ctx context.Context, environmentID string, kind domain.ItemKind) ([]domain.CatalogItem, error)
}

// Handler agrupa os métodos de Handler de leitura do catálogo.
type Handler struct {
	Service CatalogService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc CatalogService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	errorResponse := domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// ListProductsHandler lida com GET /v1/environments/{id}/products.
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListByEnvironment(r.Context(), r.PathValue("id"), domain.KindProduct)
	h.handleServiceResponse(w, r, items, err, http.StatusOK)
}

// ListServicesHandler lida com GET /v1/environments/{id}/services.
func (h *Handler) ListServicesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListByEnvironment(r.Context(), r.PathValue("id"), domain.KindService)
	h.handleServiceResponse(w, r, items, err, http.StatusOK)
}
