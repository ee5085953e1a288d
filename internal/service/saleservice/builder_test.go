package saleservice_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
	"govenda/internal/service/saleservice"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger("error")
}

func validCart() domain.Cart {
	return domain.Cart{
		SessionID:     "s-1",
		EnvironmentID: "env-1",
		Customer:      &domain.CustomerRef{ID: "c-1", Name: "Maria"},
		LineItems: []domain.LineItem{
			{ItemID: "1", Kind: domain.KindProduct, Name: "Piso Vinílico", UnitPrice: decimal.NewFromFloat(120.00), Quantity: 2, ZoningNote: "Sala"},
			{ItemID: "2", Kind: domain.KindService, Name: "Instalação", UnitPrice: decimal.NewFromFloat(300.00), Quantity: 1},
		},
		Observations: "Entregar no período da manhã",
		PaymentPlan:  domain.PaymentPlan{Method: domain.MethodCard, Installments: 3},
	}
}

// --- Testes para Validate (ordem de precedência) ---

// Carrinho vazio E sem cliente: a primeira violação vence (NoItemsSelected).
func TestValidate_PrecedenceEmptyCartBeforeMissingCustomer(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	cart := validCart()
	cart.LineItems = nil
	cart.Customer = nil

	err := svc.Validate(cart)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "não possui itens")
}

func TestValidate_Fail_MissingCustomer(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	cart := validCart()
	cart.Customer = nil

	err := svc.Validate(cart)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Cliente ausente")

	// Cliente presente mas sem identificador resolvível: mesma violação.
	cart.Customer = &domain.CustomerRef{Name: "Sem ID"}
	err = svc.Validate(cart)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Cliente ausente")
}

func TestValidate_Fail_NonPositiveTotal(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	cart := validCart()
	cart.LineItems = []domain.LineItem{
		{ItemID: "1", Kind: domain.KindProduct, Name: "Amostra grátis", UnitPrice: decimal.Zero, Quantity: 2},
	}

	err := svc.Validate(cart)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "maior que zero")
}

// Todos os itens com preço inválido são reportados JUNTOS, não um por vez.
func TestValidate_Fail_InvalidPricingReportsAllOffenders(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	cart := validCart()
	cart.LineItems = append(cart.LineItems,
		domain.LineItem{ItemID: "3", Kind: domain.KindProduct, Name: "Rodapé", UnitPrice: decimal.Zero, Quantity: 1},
		domain.LineItem{ItemID: "4", Kind: domain.KindService, Name: "Medição", UnitPrice: decimal.NewFromFloat(-10), Quantity: 1},
	)

	err := svc.Validate(cart)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "Rodapé")
	assert.Contains(t, err.Error(), "Medição")
}

func TestValidate_Success(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	assert.NoError(t, svc.Validate(validCart()))
}

// --- Testes para Build ---

func TestBuild_FreezesPayload(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	before := time.Now().UTC()
	request, err := svc.Build(validCart(), "seller-1")
	after := time.Now().UTC()

	assert.NoError(t, err)
	assert.Equal(t, "seller-1", request.SellerID)
	assert.Equal(t, "c-1", request.CustomerID)
	assert.Equal(t, domain.SaleTypeVenda, request.SaleType)
	assert.Equal(t, domain.SaleStatusConcluida, request.Status)
	assert.Equal(t, domain.MethodCard, request.PaymentMethod)
	assert.Equal(t, 3, request.Installments)
	assert.True(t, request.Total.Equal(decimal.NewFromFloat(540.00)))
	assert.True(t, request.InstallmentValue.Equal(decimal.NewFromFloat(180.00)))
	assert.NotEmpty(t, request.IdempotencyKey)
	assert.Equal(t, "Entregar no período da manhã", request.Observation)

	// A data é carimbada no momento da construção.
	assert.False(t, request.Date.Before(before))
	assert.False(t, request.Date.After(after))

	// Snapshot precificado das linhas.
	assert.Len(t, request.LineItems, 2)
	assert.True(t, request.LineItems[0].Subtotal.Equal(decimal.NewFromFloat(240.00)))
	assert.True(t, request.LineItems[1].Subtotal.Equal(decimal.NewFromFloat(300.00)))
	assert.Equal(t, "Sala", request.LineItems[0].ZoningNote)
}

// Cada finalização gera uma chave de idempotência própria: finalizações
// distintas são vendas lógicas distintas.
func TestBuild_NewIdempotencyKeyPerBuild(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	first, err := svc.Build(validCart(), "seller-1")
	assert.NoError(t, err)

	second, err := svc.Build(validCart(), "seller-1")
	assert.NoError(t, err)

	assert.NotEqual(t, first.IdempotencyKey, second.IdempotencyKey)
}

func TestBuild_Fail_ValidationStopsBuild(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	cart := validCart()
	cart.LineItems = nil

	_, err := svc.Build(cart, "seller-1")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
}

// Parcela que arredonda para zero é rejeitada antes da rede.
func TestValidate_Fail_ZeroValueInstallment(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	cart := validCart()
	cart.LineItems = []domain.LineItem{
		{ItemID: "1", Kind: domain.KindProduct, Name: "Parafuso", UnitPrice: decimal.NewFromFloat(0.01), Quantity: 1},
	}
	cart.PaymentPlan = domain.PaymentPlan{Method: domain.MethodInvoice, Installments: 24}

	err := svc.Validate(cart)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parcela")
}

// Valor nominal positivo não basta: 0.02 em 3x dá parcela nominal de 0.01,
// mas o resíduo da última parcela zeraria. O plano é rejeitado.
func TestValidate_Fail_ResidualInstallmentWouldBeZero(t *testing.T) {
	svc := saleservice.NewService(newTestLogger())

	cart := validCart()
	cart.LineItems = []domain.LineItem{
		{ItemID: "1", Kind: domain.KindProduct, Name: "Parafuso", UnitPrice: decimal.NewFromFloat(0.01), Quantity: 2},
	}
	cart.PaymentPlan = domain.PaymentPlan{Method: domain.MethodInvoice, Installments: 3}

	err := svc.Validate(cart)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "parcela")
}
