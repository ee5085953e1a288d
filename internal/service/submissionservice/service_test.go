package submissionservice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
	"govenda/internal/service/saleservice"
	"govenda/internal/service/submissionservice"
)

// MockOrderClient é uma implementação mock da interface OrderClient
type MockOrderClient struct {
	mock.Mock
}

func (m *MockOrderClient) CreateSale(ctx context.Context, sale domain.SaleRequest) (domain.SaleResult, error) {
	args := m.Called(ctx, sale)
	return args.Get(0).(domain.SaleResult), args.Error(1)
}

// MockSellerResolver é uma implementação mock da interface SellerResolver
type MockSellerResolver struct {
	mock.Mock
}

func (m *MockSellerResolver) Resolve(ctx context.Context, userID string) (domain.Seller, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.Seller), args.Error(1)
}

// recordingNotifier captura as notificações de status emitidas pela máquina.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []domain.SubmissionNotice
}

func (n *recordingNotifier) Notify(notice domain.SubmissionNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) states() []domain.SubmissionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.SubmissionState, 0, len(n.notices))
	for _, notice := range n.notices {
		out = append(out, notice.State)
	}
	return out
}

func newTestLogger() logger.Logger {
	return logger.NewLogger("error")
}

func validCart() domain.Cart {
	return domain.Cart{
		SessionID: "s-1",
		Customer:  &domain.CustomerRef{ID: "c-1", Name: "Maria"},
		LineItems: []domain.LineItem{
			{ItemID: "1", Kind: domain.KindProduct, Name: "Piso Vinílico", UnitPrice: decimal.NewFromFloat(120.00), Quantity: 2},
			{ItemID: "2", Kind: domain.KindService, Name: "Instalação", UnitPrice: decimal.NewFromFloat(300.00), Quantity: 1},
		},
		PaymentPlan: domain.PaymentPlan{Method: domain.MethodCard, Installments: 3},
	}
}

func testSeller() domain.Seller {
	return domain.Seller{ID: "seller-1", UserID: "user-1", Name: "João"}
}

// newTestService monta o controlador com o construtor de payload real e os
// colaboradores de rede mockados. Backoff mínimo para não arrastar os testes.
func newTestService(orders *MockOrderClient, sellers *MockSellerResolver, notifier *recordingNotifier, maxAttempts int) *submissionservice.Service {
	log := newTestLogger()
	builder := saleservice.NewService(log)
	return submissionservice.NewService(orders, sellers, builder, notifier, log, maxAttempts, time.Millisecond, time.Second)
}

// --- Testes para Finalize ---

func TestFinalize_Success_FirstAttempt(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Return(domain.SaleResult{SaleID: "sale-1", CreatedAt: time.Now()}, nil).Once()

	result, err := svc.Finalize(context.Background(), validCart(), "user-1")

	assert.NoError(t, err)
	assert.Equal(t, "sale-1", result.SaleID)
	assert.Equal(t, domain.StateCompleted, svc.State("s-1"))
	assert.Equal(t, []domain.SubmissionState{
		domain.StateResolving,
		domain.StateSubmitting,
		domain.StateCompleted,
	}, notifier.states())
	mockSellers.AssertExpectations(t)
	mockOrders.AssertExpectations(t)
}

// Duas falhas transientes seguidas de sucesso: o payload enviado é o MESMO nas
// três tentativas e a sequência de estados passa por Retrying entre elas.
func TestFinalize_Success_AfterTransientRetries(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()

	var mu sync.Mutex
	var sent []domain.SaleRequest
	capture := func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, args.Get(1).(domain.SaleRequest))
	}

	transient := apperror.NewTransientSubmissionError("serviço de pedidos indisponível", nil)
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Run(capture).Return(domain.SaleResult{}, transient).Twice()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Run(capture).Return(domain.SaleResult{SaleID: "sale-2"}, nil).Once()

	result, err := svc.Finalize(context.Background(), validCart(), "user-1")

	assert.NoError(t, err)
	assert.Equal(t, "sale-2", result.SaleID)
	assert.Equal(t, domain.StateCompleted, svc.State("s-1"))

	// O vendedor é resolvido uma vez por finalização, não por tentativa.
	mockSellers.AssertNumberOfCalls(t, "Resolve", 1)
	mockOrders.AssertNumberOfCalls(t, "CreateSale", 3)

	// Payload congelado: mesmas chaves, mesma data, mesmos valores.
	assert.Len(t, sent, 3)
	assert.Equal(t, sent[0], sent[1])
	assert.Equal(t, sent[0], sent[2])
	assert.NotEmpty(t, sent[0].IdempotencyKey)

	assert.Equal(t, []domain.SubmissionState{
		domain.StateResolving,
		domain.StateSubmitting,
		domain.StateRetrying,
		domain.StateSubmitting,
		domain.StateRetrying,
		domain.StateSubmitting,
		domain.StateCompleted,
	}, notifier.states())
}

func TestFinalize_Fail_RetriesExhausted(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Return(domain.SaleResult{}, apperror.NewTransientSubmissionError("timeout", nil)).Times(3)

	_, err := svc.Finalize(context.Background(), validCart(), "user-1")

	assert.Error(t, err)
	exhausted, ok := err.(*apperror.SubmissionExhaustedError)
	assert.True(t, ok, "esperava SubmissionExhaustedError, veio %T", err)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, domain.StateFailed, svc.State("s-1"))

	// Exatamente maxAttempts chamadas, nunca mais.
	mockOrders.AssertNumberOfCalls(t, "CreateSale", 3)

	states := notifier.states()
	assert.Equal(t, domain.StateFailed, states[len(states)-1])
}

// Violações de validação falham localmente: nenhum colaborador de rede é tocado.
func TestFinalize_Fail_ValidationSkipsNetwork(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	cart := validCart()
	cart.LineItems = nil

	_, err := svc.Finalize(context.Background(), cart, "user-1")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Equal(t, domain.StateFailed, svc.State("s-1"))
	mockSellers.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	mockOrders.AssertNotCalled(t, "CreateSale", mock.Anything, mock.Anything)
}

// Falha na resolução de vendedor é terminal: nunca retentada, nada submetido.
func TestFinalize_Fail_SellerResolution(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	mockSellers.On("Resolve", mock.Anything, "user-1").
		Return(domain.Seller{}, apperror.NewNotFoundError("Vendedor não encontrado.")).Once()

	_, err := svc.Finalize(context.Background(), validCart(), "user-1")

	assert.Error(t, err)
	assert.IsType(t, &apperror.SellerResolutionError{}, err)
	assert.Equal(t, domain.StateFailed, svc.State("s-1"))
	mockSellers.AssertNumberOfCalls(t, "Resolve", 1)
	mockOrders.AssertNotCalled(t, "CreateSale", mock.Anything, mock.Anything)
}

// Rejeição permanente (4xx) interrompe o loop na primeira tentativa: não é
// uma falha da classe transiente.
func TestFinalize_Fail_PermanentRejection(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()
	rejection := apperror.NewValidationError("Cliente bloqueado para novas vendas.")
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Return(domain.SaleResult{}, rejection).Once()

	_, err := svc.Finalize(context.Background(), validCart(), "user-1")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Equal(t, domain.StateFailed, svc.State("s-1"))
	mockOrders.AssertNumberOfCalls(t, "CreateSale", 1)
	assert.NotContains(t, notifier.states(), domain.StateRetrying)
}

// Single-flight: uma segunda finalização disparada enquanto a primeira está em
// voo recebe conflito e não produz efeito algum.
func TestFinalize_Conflict_WhileInFlight(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	entered := make(chan struct{})
	release := make(chan struct{})

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.SaleResult{SaleID: "sale-3"}, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Finalize(context.Background(), validCart(), "user-1")
		assert.NoError(t, err)
	}()

	<-entered
	_, err := svc.Finalize(context.Background(), validCart(), "user-1")
	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)

	close(release)
	<-done

	// A segunda chamada não disparou nenhuma submissão extra.
	mockOrders.AssertNumberOfCalls(t, "CreateSale", 1)
	assert.Equal(t, domain.StateCompleted, svc.State("s-1"))
}

// Completed é definitivo: refinalizar o mesmo carrinho é conflito, nunca uma
// segunda venda.
func TestFinalize_Conflict_AfterCompleted(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Return(domain.SaleResult{SaleID: "sale-4"}, nil).Once()

	_, err := svc.Finalize(context.Background(), validCart(), "user-1")
	assert.NoError(t, err)

	_, err = svc.Finalize(context.Background(), validCart(), "user-1")
	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	mockOrders.AssertNumberOfCalls(t, "CreateSale", 1)
}

// Failed permite nova finalização — com um payload NOVO (nova chave de
// idempotência: a finalização seguinte é outra venda lógica).
func TestFinalize_RetryAllowedAfterFailed(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 1)

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Twice()

	var mu sync.Mutex
	var sent []domain.SaleRequest
	capture := func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, args.Get(1).(domain.SaleRequest))
	}

	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Run(capture).Return(domain.SaleResult{}, apperror.NewTransientSubmissionError("indisponível", nil)).Once()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Run(capture).Return(domain.SaleResult{SaleID: "sale-5"}, nil).Once()

	_, err := svc.Finalize(context.Background(), validCart(), "user-1")
	assert.Error(t, err)
	assert.Equal(t, domain.StateFailed, svc.State("s-1"))

	result, err := svc.Finalize(context.Background(), validCart(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, "sale-5", result.SaleID)
	assert.Equal(t, domain.StateCompleted, svc.State("s-1"))

	assert.Len(t, sent, 2)
	assert.NotEqual(t, sent[0].IdempotencyKey, sent[1].IdempotencyKey)
}

// Cancelamento: após o teardown do chamador nenhuma transição ou notificação
// posterior é emitida e a máquina volta a Idle silenciosamente.
func TestFinalize_Cancellation_SilentReset(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Run(func(mock.Arguments) { cancel() }).
		Return(domain.SaleResult{}, apperror.NewTransientSubmissionError("conexão perdida", nil)).Once()

	_, err := svc.Finalize(ctx, validCart(), "user-1")

	assert.Error(t, err)
	assert.Equal(t, domain.StateIdle, svc.State("s-1"))
	mockOrders.AssertNumberOfCalls(t, "CreateSale", 1)

	// Nenhuma notificação de Retrying ou Failed depois do cancelamento.
	assert.Equal(t, []domain.SubmissionState{
		domain.StateResolving,
		domain.StateSubmitting,
	}, notifier.states())
}

// --- Testes para Discard ---

// Descartar a sessão libera a entrada do mapa de máquinas: o estado volta a
// ser reportado como Idle (sessão desconhecida).
func TestDiscard_ReleasesMachineAfterTerminalState(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Return(domain.SaleResult{SaleID: "sale-6"}, nil).Once()

	_, err := svc.Finalize(context.Background(), validCart(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, svc.State("s-1"))

	svc.Discard("s-1")

	assert.Equal(t, domain.StateIdle, svc.State("s-1"))

	// Descartar sessão desconhecida é um no-op.
	svc.Discard("s-1")
}

// Discard não derruba uma finalização em voo: a máquina só é liberada em
// estado Idle ou terminal.
func TestDiscard_NoOpWhileInFlight(t *testing.T) {
	mockOrders := new(MockOrderClient)
	mockSellers := new(MockSellerResolver)
	notifier := &recordingNotifier{}
	svc := newTestService(mockOrders, mockSellers, notifier, 3)

	entered := make(chan struct{})
	release := make(chan struct{})

	mockSellers.On("Resolve", mock.Anything, "user-1").Return(testSeller(), nil).Once()
	mockOrders.On("CreateSale", mock.Anything, mock.AnythingOfType("domain.SaleRequest")).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.SaleResult{SaleID: "sale-7"}, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Finalize(context.Background(), validCart(), "user-1")
		assert.NoError(t, err)
	}()

	<-entered
	svc.Discard("s-1")
	assert.Equal(t, domain.StateSubmitting, svc.State("s-1"))

	close(release)
	<-done
	assert.Equal(t, domain.StateCompleted, svc.State("s-1"))
}

func TestState_UnknownSessionIsIdle(t *testing.T) {
	svc := newTestService(new(MockOrderClient), new(MockSellerResolver), &recordingNotifier{}, 3)

	assert.Equal(t, domain.StateIdle, svc.State("desconhecida"))
}
