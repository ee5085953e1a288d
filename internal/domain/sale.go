package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind identifica se um item de linha é um produto ou um serviço.
type ItemKind string

const (
	KindProduct ItemKind = "PRODUCT"
	KindService ItemKind = "SERVICE"
)

// PaymentMethod é o meio de pagamento escolhido para a venda.
// O parcelamento só é relevante para CARD e INVOICE.
type PaymentMethod string

const (
	MethodCash    PaymentMethod = "CASH"
	MethodCard    PaymentMethod = "CARD"
	MethodPix     PaymentMethod = "PIX"
	MethodInvoice PaymentMethod = "INVOICE"
)

// LineItem representa um produto ou serviço selecionado dentro do carrinho.
// A quantidade é sempre >= 1; a anotação de zoneamento é texto livre opcional.
type LineItem struct {
	ItemID     string          `json:"item_id"`
	Kind       ItemKind        `json:"kind"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	ZoningNote string          `json:"zoning_note,omitempty"`
}

// CustomerRef é um snapshot de referência do cliente selecionado no wizard.
// O registro completo do cliente pertence ao serviço de cadastro (externo).
type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PaymentPlan define as condições de pagamento escolhidas.
type PaymentPlan struct {
	Method       PaymentMethod `json:"method"`
	Installments int           `json:"installments"`
}

// Cart é o agregado da venda em composição: itens selecionados mais o
// contexto da seleção (ambiente, cliente, observações, plano de pagamento).
// É criado no início do wizard e descartado ao concluir ou cancelar.
type Cart struct {
	SessionID     string       `json:"session_id"`
	EnvironmentID string       `json:"environment_id,omitempty"`
	Customer      *CustomerRef `json:"customer,omitempty"`
	LineItems     []LineItem   `json:"line_items"`
	Observations  string       `json:"observations,omitempty"`
	PaymentPlan   PaymentPlan  `json:"payment_plan"`
	CreatedAt     time.Time    `json:"created_at"`
}

// SaleItem é o snapshot precificado de um LineItem dentro do payload de venda.
type SaleItem struct {
	ItemID     string          `json:"item_id"`
	Kind       ItemKind        `json:"kind"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ZoningNote string          `json:"zoning_note,omitempty"`
}

// Constantes fixas do payload de venda.
const (
	SaleTypeVenda       = "venda"
	SaleStatusConcluida = "concluida"
)

// SaleRequest é o payload imutável enviado ao serviço de criação de pedidos.
// É construído UMA vez por finalização e reutilizado idêntico em todas as
// retentativas daquela finalização; a chave de idempotência permite que o
// servidor deduplique reenvios da mesma venda lógica.
type SaleRequest struct {
	IdempotencyKey   string          `json:"idempotency_key"`
	SellerID         string          `json:"seller_id"`
	CustomerID       string          `json:"customer_id"`
	LineItems        []SaleItem      `json:"line_items"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	Installments     int             `json:"installments"`
	InstallmentValue decimal.Decimal `json:"installment_value"`
	Total            decimal.Decimal `json:"total"`
	SaleType         string          `json:"sale_type"`
	Status           string          `json:"status"`
	Date             time.Time       `json:"date"`
	Observation      string          `json:"observation,omitempty"`
}

// SaleResult é o registro confirmado pelo servidor após a criação da venda.
// Imutável; pertence ao chamador pelo resto da sessão (relatórios, recibo).
type SaleResult struct {
	SaleID    string    `json:"sale_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Seller é o vendedor resolvido a partir do usuário autenticado.
type Seller struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// SubmissionState enumera os estados da máquina de submissão de venda.
type SubmissionState string

const (
	StateIdle       SubmissionState = "IDLE"
	StateResolving  SubmissionState = "RESOLVING"
	StateSubmitting SubmissionState = "SUBMITTING"
	StateRetrying   SubmissionState = "RETRYING"
	StateCompleted  SubmissionState = "COMPLETED"
	StateFailed     SubmissionState = "FAILED"
)

// Terminal informa se o estado encerra a máquina de submissão.
func (s SubmissionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// SubmissionNotice é a mensagem de status emitida a cada transição de estado
// (canal lateral de notificação; não faz parte do contrato de controle).
type SubmissionNotice struct {
	SessionID   string          `json:"session_id"`
	State       SubmissionState `json:"state"`
	Attempt     int             `json:"attempt,omitempty"`
	MaxAttempts int             `json:"max_attempts,omitempty"`
	Message     string          `json:"message"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
type UserRole string

// Constantes para os papéis de usuário (boas práticas)
const (
	RoleAdmin  UserRole = "admin"
	RoleSeller UserRole = "seller"
)
