package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
	"govenda/internal/pkg/middleware"
	"govenda/internal/service/pricingservice"
)

// CartService define o contrato que o Handler espera do armazém de carrinhos.
type CartService interface {
	Open() domain.Cart
	Snapshot(sessionID string) (domain.Cart, error)
	Toggle(sessionID string, item domain.CatalogItem) (bool, error)
	SetQuantity(sessionID, itemID string, kind domain.ItemKind, qty int) error
	SetZoning(sessionID, itemID string, kind domain.ItemKind, text string) error
	SetCustomer(sessionID string, customer domain.CustomerRef) error
	SetEnvironment(sessionID, environmentID string) error
	SetObservations(sessionID, observations string) error
	SetPaymentPlan(sessionID string, plan domain.PaymentPlan) error
	Clear(sessionID string)
}

// CatalogService define a leitura de catálogo necessária para o toggle.
type CatalogService interface {
	GetItem(ctx context.Context, id string, kind domain.ItemKind) (domain.CatalogItem, error)
}

// SubmissionService define o contrato do controlador de submissão.
type SubmissionService interface {
	Finalize(ctx context.Context, cart domain.Cart, userID string) (domain.SaleResult, error)
	State(sessionID string) domain.SubmissionState
	Discard(sessionID string)
}

// Handler agrupa os métodos de Handler do wizard de venda.
type Handler struct {
	Carts      CartService
	Catalog    CatalogService
	Submission SubmissionService
	Logger     logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os Serviços e o Logger.
func NewHandler(carts CartService, catalog CatalogService, submission SubmissionService, log logger.Logger) *Handler {
	return &Handler{
		Carts:      carts,
		Catalog:    catalog,
		Submission: submission,
		Logger:     log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		// Sucesso
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

	// TRATAMENTO DE ERROS
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

// decode lê o corpo JSON da requisição para o destino informado.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return false
	}
	return true
}

// cartView é o snapshot do carrinho acompanhado da precificação derivada,
// recomputada a cada leitura (função pura, segura de chamar a todo tick).
type cartView struct {
	Cart     domain.Cart            `json:"cart"`
	Pricing  pricingservice.Summary `json:"pricing"`
	Schedule []decimal.Decimal      `json:"installment_schedule"`
	State    domain.SubmissionState `json:"submission_state"`
}

// --- DTOs de entrada ---

type itemRequest struct {
	ItemID     string          `json:"item_id"`
	Kind       domain.ItemKind `json:"kind"`
	Quantity   int             `json:"quantity,omitempty"`
	ZoningNote string          `json:"zoning_note,omitempty"`
}

type paymentPlanRequest struct {
	Method       domain.PaymentMethod `json:"method"`
	Installments int                  `json:"installments"`
}

type observationsRequest struct {
	Observations string `json:"observations"`
}

type environmentRequest struct {
	EnvironmentID string `json:"environment_id"`
}

// OpenCartHandler lida com POST /v1/carts: abre uma sessão de wizard.
func (h *Handler) OpenCartHandler(w http.ResponseWriter, r *http.Request) {
	cart := h.Carts.Open()
	h.respondWithView(w, r, cart.SessionID, http.StatusCreated)
}

// GetCartHandler lida com GET /v1/carts/{id}: snapshot + precificação ao vivo.
func (h *Handler) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, r, r.PathValue("id"), http.StatusOK)
}

// CancelCartHandler lida com DELETE /v1/carts/{id}: cancelamento explícito.
func (h *Handler) CancelCartHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := h.Carts.Snapshot(sessionID); err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}
	h.Carts.Clear(sessionID)
	h.Submission.Discard(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// ToggleItemHandler lida com POST /v1/carts/{id}/items/toggle.
// Busca o item no catálogo (para preço e zoneamento padrão) e alterna a seleção.
func (h *Handler) ToggleItemHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.Catalog.GetItem(r.Context(), req.ItemID, req.Kind)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}

	selected, err := h.Carts.Toggle(sessionID, item)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}

	h.handleServiceResponse(w, r, map[string]interface{}{"selected": selected}, nil, http.StatusOK)
}

// SetQuantityHandler lida com PUT /v1/carts/{id}/items/quantity.
func (h *Handler) SetQuantityHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.Carts.SetQuantity(sessionID, req.ItemID, req.Kind, req.Quantity)
	h.afterMutation(w, r, sessionID, err)
}

// SetZoningHandler lida com PUT /v1/carts/{id}/items/zoning.
func (h *Handler) SetZoningHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.Carts.SetZoning(sessionID, req.ItemID, req.Kind, req.ZoningNote)
	h.afterMutation(w, r, sessionID, err)
}

// SetCustomerHandler lida com PUT /v1/carts/{id}/customer.
func (h *Handler) SetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req domain.CustomerRef
	if !h.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		h.handleServiceResponse(w, r, nil, apperror.NewInvalidCustomerError(), 0)
		return
	}

	err := h.Carts.SetCustomer(sessionID, req)
	h.afterMutation(w, r, sessionID, err)
}

// SetEnvironmentHandler lida com PUT /v1/carts/{id}/environment.
func (h *Handler) SetEnvironmentHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req environmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.EnvironmentID == "" {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("O identificador do ambiente é obrigatório."), 0)
		return
	}

	err := h.Carts.SetEnvironment(sessionID, req.EnvironmentID)
	h.afterMutation(w, r, sessionID, err)
}

// SetObservationsHandler lida com PUT /v1/carts/{id}/observations.
func (h *Handler) SetObservationsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req observationsRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.Carts.SetObservations(sessionID, req.Observations)
	h.afterMutation(w, r, sessionID, err)
}

// SetPaymentPlanHandler lida com PUT /v1/carts/{id}/payment-plan.
func (h *Handler) SetPaymentPlanHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req paymentPlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.Carts.SetPaymentPlan(sessionID, domain.PaymentPlan{
		Method:       req.Method,
		Installments: req.Installments,
	})
	h.afterMutation(w, r, sessionID, err)
}

// FinalizeHandler lida com POST /v1/carts/{id}/finalize: dispara a máquina de
// submissão sobre um snapshot do carrinho. O carrinho vivo só é limpo quando
// a venda é confirmada; em qualquer falha ele permanece populado para uma
// nova finalização.
func (h *Handler) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Autorização necessária para finalizar a venda."), 0)
		return
	}

	snapshot, err := h.Carts.Snapshot(sessionID)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}

	result, err := h.Submission.Finalize(r.Context(), snapshot, claims.UserID)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}

	// Venda confirmada: descarta o carrinho e a máquina da sessão. O snapshot
	// da sessão deixa de existir, então uma refinalização nem chega aqui.
	h.Carts.Clear(sessionID)
	h.Submission.Discard(sessionID)
	h.handleServiceResponse(w, r, result, nil, http.StatusCreated)
}

// afterMutation responde a uma mutação do carrinho com a visão atualizada.
func (h *Handler) afterMutation(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}
	h.respondWithView(w, r, sessionID, http.StatusOK)
}

// respondWithView monta a visão carrinho + precificação + estado de submissão.
func (h *Handler) respondWithView(w http.ResponseWriter, r *http.Request, sessionID string, status int) {
	snapshot, err := h.Carts.Snapshot(sessionID)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}

	summary := pricingservice.Summarize(snapshot, snapshot.PaymentPlan)
	view := cartView{
		Cart:     snapshot,
		Pricing:  summary,
		Schedule: pricingservice.Schedule(summary.Total, snapshot.PaymentPlan.Installments),
		State:    h.Submission.State(sessionID),
	}
	h.handleServiceResponse(w, r, view, nil, status)
}
