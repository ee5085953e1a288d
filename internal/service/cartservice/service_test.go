package cartservice_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
	"govenda/internal/service/cartservice"
)

// Helper function to create a basic logger
func newTestLogger() logger.Logger {
	return logger.NewLogger("error")
}

func catalogItem(id, name string, kind domain.ItemKind, price float64, zoning string) domain.CatalogItem {
	return domain.CatalogItem{
		ID:            id,
		EnvironmentID: "env-1",
		Kind:          kind,
		Name:          name,
		UnitPrice:     decimal.NewFromFloat(price),
		DefaultZoning: zoning,
	}
}

// --- Testes para Toggle ---

func TestToggle_AddsWithDefaults(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()

	item := catalogItem("p1", "Piso Vinílico", domain.KindProduct, 120.00, "Sala")
	selected, err := svc.Toggle(cart.SessionID, item)

	assert.NoError(t, err)
	assert.True(t, selected)

	snapshot, err := svc.Snapshot(cart.SessionID)
	assert.NoError(t, err)
	assert.Len(t, snapshot.LineItems, 1)
	// Seleção inicia com quantidade 1 e zoneamento padrão do catálogo.
	assert.Equal(t, 1, snapshot.LineItems[0].Quantity)
	assert.Equal(t, "Sala", snapshot.LineItems[0].ZoningNote)
	assert.True(t, snapshot.LineItems[0].UnitPrice.Equal(decimal.NewFromFloat(120.00)))
}

func TestToggle_RemovesWhenAlreadySelected(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()

	item := catalogItem("p1", "Piso Vinílico", domain.KindProduct, 120.00, "")

	selected, err := svc.Toggle(cart.SessionID, item)
	assert.NoError(t, err)
	assert.True(t, selected)

	// Toggle é alternância pura, não incremento.
	selected, err = svc.Toggle(cart.SessionID, item)
	assert.NoError(t, err)
	assert.False(t, selected)

	snapshot, _ := svc.Snapshot(cart.SessionID)
	assert.Len(t, snapshot.LineItems, 0)
	assert.False(t, svc.IsSelected(cart.SessionID, "p1", domain.KindProduct))
}

func TestToggle_SameIDDifferentKindAreDistinct(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()

	svc.Toggle(cart.SessionID, catalogItem("x1", "Produto X", domain.KindProduct, 10, ""))
	svc.Toggle(cart.SessionID, catalogItem("x1", "Serviço X", domain.KindService, 20, ""))

	snapshot, _ := svc.Snapshot(cart.SessionID)
	assert.Len(t, snapshot.LineItems, 2)
	assert.True(t, svc.IsSelected(cart.SessionID, "x1", domain.KindProduct))
	assert.True(t, svc.IsSelected(cart.SessionID, "x1", domain.KindService))
}

func TestToggle_Fail_UnknownSession(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())

	_, err := svc.Toggle("nope", catalogItem("p1", "Piso", domain.KindProduct, 10, ""))

	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

// --- Testes para SetQuantity ---

func TestSetQuantity_ClampsToAtLeastOne(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()
	svc.Toggle(cart.SessionID, catalogItem("p1", "Piso", domain.KindProduct, 10, ""))

	err := svc.SetQuantity(cart.SessionID, "p1", domain.KindProduct, -5)
	assert.NoError(t, err)

	snapshot, _ := svc.Snapshot(cart.SessionID)
	assert.Equal(t, 1, snapshot.LineItems[0].Quantity)

	err = svc.SetQuantity(cart.SessionID, "p1", domain.KindProduct, 7)
	assert.NoError(t, err)

	snapshot, _ = svc.Snapshot(cart.SessionID)
	assert.Equal(t, 7, snapshot.LineItems[0].Quantity)
}

func TestSetQuantity_NoOpWhenNotSelected(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()

	err := svc.SetQuantity(cart.SessionID, "ghost", domain.KindProduct, 3)

	assert.NoError(t, err)
	snapshot, _ := svc.Snapshot(cart.SessionID)
	assert.Len(t, snapshot.LineItems, 0)
}

// --- Testes para SetZoning ---

func TestSetZoning_OverwritesNote(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()
	svc.Toggle(cart.SessionID, catalogItem("s1", "Instalação", domain.KindService, 300, "Cozinha"))

	err := svc.SetZoning(cart.SessionID, "s1", domain.KindService, "Área gourmet")

	assert.NoError(t, err)
	snapshot, _ := svc.Snapshot(cart.SessionID)
	assert.Equal(t, "Área gourmet", snapshot.LineItems[0].ZoningNote)
}

// --- Testes para SetPaymentPlan ---

func TestSetPaymentPlan_NormalizesCashToSingleInstallment(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()

	err := svc.SetPaymentPlan(cart.SessionID, domain.PaymentPlan{Method: domain.MethodCash, Installments: 5})

	assert.NoError(t, err)
	snapshot, _ := svc.Snapshot(cart.SessionID)
	// CASH força 1 parcela.
	assert.Equal(t, 1, snapshot.PaymentPlan.Installments)
}

func TestSetPaymentPlan_Fail_OutOfDomain(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()

	err := svc.SetPaymentPlan(cart.SessionID, domain.PaymentPlan{Method: domain.MethodCard, Installments: 13})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
}

// --- Testes para Snapshot / Clear ---

func TestSnapshot_IsDeepCopy(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()
	svc.Toggle(cart.SessionID, catalogItem("p1", "Piso", domain.KindProduct, 10, ""))
	svc.SetCustomer(cart.SessionID, domain.CustomerRef{ID: "c1", Name: "Maria"})

	snapshot, err := svc.Snapshot(cart.SessionID)
	assert.NoError(t, err)

	// Mutação no snapshot não pode vazar para o carrinho vivo.
	snapshot.LineItems[0].Quantity = 99
	snapshot.Customer.ID = "outro"

	live, _ := svc.Snapshot(cart.SessionID)
	assert.Equal(t, 1, live.LineItems[0].Quantity)
	assert.Equal(t, "c1", live.Customer.ID)
}

func TestClear_DiscardsSession(t *testing.T) {
	svc := cartservice.NewService(newTestLogger())
	cart := svc.Open()

	svc.Clear(cart.SessionID)

	_, err := svc.Snapshot(cart.SessionID)
	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
}
