package saleservice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
	"govenda/internal/service/pricingservice"
)

// Service é o construtor do payload de venda: valida o carrinho e monta o
// SaleRequest congelado que será submetido ao serviço de pedidos.
type Service struct {
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do construtor de payload.
func NewService(log logger.Logger) *Service {
	return &Service{logger: log}
}

// Validate aplica as regras de elegibilidade do carrinho na ordem de
// precedência fixa (a primeira violação encontrada vence):
//  1. carrinho sem itens
//  2. cliente ausente ou sem identificador
//  3. total calculado <= 0
//  4. itens com preço unitário inválido (todos os ofensores são reportados juntos)
//
// A validação é local e síncrona; nenhuma violação chega à rede.
func (s *Service) Validate(cart domain.Cart) error {
	// 1. NoItemsSelected
	if len(cart.LineItems) == 0 {
		return apperror.NewNoItemsSelectedError()
	}

	// 2. InvalidCustomer
	if cart.Customer == nil || cart.Customer.ID == "" {
		return apperror.NewInvalidCustomerError()
	}

	// 3. NonPositiveTotal
	summary := pricingservice.Summarize(cart, cart.PaymentPlan)
	if !summary.Total.IsPositive() {
		return apperror.NewNonPositiveTotalError()
	}

	// 4. InvalidLineItemPricing — coleta os nomes de TODOS os itens ofensores.
	var offenders []string
	for _, li := range cart.LineItems {
		if !li.UnitPrice.IsPositive() {
			offenders = append(offenders, li.Name)
		}
	}
	if len(offenders) > 0 {
		return apperror.NewInvalidLineItemPricingError(offenders)
	}

	// O total precisa comportar o número de parcelas pedido com toda parcela
	// positiva. Não basta o valor nominal ser positivo: o resíduo absorvido
	// pela última parcela também não pode zerar (e.g. 0.02 em 3x).
	installments := cart.PaymentPlan.Installments
	if installments < 1 {
		installments = 1
	}
	if len(pricingservice.Schedule(summary.Total, installments)) != installments {
		return apperror.NewValidationError("O valor da parcela deve ser maior que zero; reduza o número de parcelas.")
	}

	return nil
}

// Build valida o carrinho e constrói o SaleRequest congelado da finalização.
// O payload é montado UMA única vez por finalização: a data é carimbada aqui
// e a chave de idempotência é gerada aqui; retentativas reutilizam o mesmo
// payload byte a byte.
func (s *Service) Build(cart domain.Cart, sellerID string) (domain.SaleRequest, error) {
	if err := s.Validate(cart); err != nil {
		return domain.SaleRequest{}, err
	}

	plan, err := pricingservice.ValidatePlan(cart.PaymentPlan)
	if err != nil {
		return domain.SaleRequest{}, err
	}

	summary := pricingservice.Summarize(cart, plan)

	items := make([]domain.SaleItem, 0, len(cart.LineItems))
	for _, li := range cart.LineItems {
		items = append(items, domain.SaleItem{
			ItemID:     li.ItemID,
			Kind:       li.Kind,
			Name:       li.Name,
			UnitPrice:  li.UnitPrice.Round(2),
			Quantity:   li.Quantity,
			Subtotal:   li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2),
			ZoningNote: li.ZoningNote,
		})
	}

	request := domain.SaleRequest{
		IdempotencyKey:   uuid.New().String(),
		SellerID:         sellerID,
		CustomerID:       cart.Customer.ID,
		LineItems:        items,
		PaymentMethod:    plan.Method,
		Installments:     plan.Installments,
		InstallmentValue: summary.InstallmentValue,
		Total:            summary.Total,
		SaleType:         domain.SaleTypeVenda,
		Status:           domain.SaleStatusConcluida,
		Date:             time.Now().UTC(),
		Observation:      cart.Observations,
	}

	s.logger.Debug("Payload de venda construído.", map[string]interface{}{
		"session_id":      cart.SessionID,
		"idempotency_key": request.IdempotencyKey,
		"total":           request.Total.String(),
		"installments":    request.Installments,
	})

	return request, nil
}
