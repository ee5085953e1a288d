package cartservice

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
	"govenda/internal/service/pricingservice"
)

// Service é o armazém de seleção do wizard de venda: mantém em memória os
// carrinhos por sessão. As operações de seleção são síncronas, sem I/O e
// totais (nunca falham para uma sessão existente); as falhas possíveis são
// apenas sessão inexistente e plano de pagamento inválido.
type Service struct {
	mu     sync.RWMutex
	carts  map[string]*domain.Cart
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do armazém de carrinhos.
func NewService(log logger.Logger) *Service {
	return &Service{
		carts:  make(map[string]*domain.Cart),
		logger: log,
	}
}

// Open cria um novo carrinho de wizard e retorna seu snapshot inicial.
func (s *Service) Open() domain.Cart {
	cart := &domain.Cart{
		SessionID: uuid.New().String(),
		LineItems: []domain.LineItem{},
		PaymentPlan: domain.PaymentPlan{
			Method:       domain.MethodCash,
			Installments: 1,
		},
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.carts[cart.SessionID] = cart
	s.mu.Unlock()

	s.logger.Debug("Carrinho de venda aberto.", map[string]interface{}{"session_id": cart.SessionID})
	return snapshotOf(cart)
}

// Snapshot retorna uma cópia profunda do carrinho da sessão.
// O controlador de submissão trabalha SOMENTE sobre snapshots: o carrinho
// vivo nunca é mutado durante a submissão.
func (s *Service) Snapshot(sessionID string) (domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return domain.Cart{}, apperror.NewNotFoundError("Sessão de carrinho não encontrada.")
	}
	return snapshotOf(cart), nil
}

// Toggle adiciona o item ao carrinho (quantidade 1, zoneamento padrão do
// catálogo) se ainda não estiver selecionado, ou o remove se estiver.
// Seleção é um toggle puro, não um incremento.
// Retorna true se o item ficou selecionado após a operação.
func (s *Service) Toggle(sessionID string, item domain.CatalogItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return false, apperror.NewNotFoundError("Sessão de carrinho não encontrada.")
	}

	for i, li := range cart.LineItems {
		if li.ItemID == item.ID && li.Kind == item.Kind {
			cart.LineItems = append(cart.LineItems[:i], cart.LineItems[i+1:]...)
			return false, nil
		}
	}

	cart.LineItems = append(cart.LineItems, domain.LineItem{
		ItemID:     item.ID,
		Kind:       item.Kind,
		Name:       item.Name,
		UnitPrice:  item.UnitPrice,
		Quantity:   1,
		ZoningNote: item.DefaultZoning,
	})
	return true, nil
}

// SetQuantity define a quantidade de um item selecionado, com clamp para >= 1.
// É um no-op se o item não estiver selecionado.
func (s *Service) SetQuantity(sessionID, itemID string, kind domain.ItemKind, qty int) error {
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return apperror.NewNotFoundError("Sessão de carrinho não encontrada.")
	}

	for i := range cart.LineItems {
		if cart.LineItems[i].ItemID == itemID && cart.LineItems[i].Kind == kind {
			cart.LineItems[i].Quantity = qty
			return nil
		}
	}
	return nil
}

// SetZoning sobrescreve a anotação de zoneamento de um item selecionado.
// É um no-op se o item não estiver selecionado.
func (s *Service) SetZoning(sessionID, itemID string, kind domain.ItemKind, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return apperror.NewNotFoundError("Sessão de carrinho não encontrada.")
	}

	for i := range cart.LineItems {
		if cart.LineItems[i].ItemID == itemID && cart.LineItems[i].Kind == kind {
			cart.LineItems[i].ZoningNote = text
			return nil
		}
	}
	return nil
}

// IsSelected é a consulta pura que alimenta a UI de seleção.
func (s *Service) IsSelected(sessionID, itemID string, kind domain.ItemKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return false
	}
	for _, li := range cart.LineItems {
		if li.ItemID == itemID && li.Kind == kind {
			return true
		}
	}
	return false
}

// SetCustomer registra o snapshot do cliente selecionado no wizard.
func (s *Service) SetCustomer(sessionID string, customer domain.CustomerRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return apperror.NewNotFoundError("Sessão de carrinho não encontrada.")
	}
	cart.Customer = &customer
	return nil
}

// SetEnvironment registra o ambiente da venda.
func (s *Service) SetEnvironment(sessionID, environmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return apperror.NewNotFoundError("Sessão de carrinho não encontrada.")
	}
	cart.EnvironmentID = environmentID
	return nil
}

// SetObservations registra o texto livre de observações da venda.
func (s *Service) SetObservations(sessionID, observations string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return apperror.NewNotFoundError("Sessão de carrinho não encontrada.")
	}
	cart.Observations = observations
	return nil
}

// SetPaymentPlan valida o plano contra o domínio de parcelamento do método
// (CASH/PIX: 1; CARD: até 12; INVOICE: até 24) e o registra normalizado.
func (s *Service) SetPaymentPlan(sessionID string, plan domain.PaymentPlan) error {
	normalized, err := pricingservice.ValidatePlan(plan)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[sessionID]
	if !ok {
		return apperror.NewNotFoundError("Sessão de carrinho não encontrada.")
	}
	cart.PaymentPlan = normalized
	return nil
}

// Clear descarta o carrinho da sessão (venda concluída ou cancelamento explícito).
func (s *Service) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.carts, sessionID)
	s.mu.Unlock()

	s.logger.Debug("Carrinho de venda descartado.", map[string]interface{}{"session_id": sessionID})
}

// snapshotOf devolve uma cópia profunda do carrinho.
func snapshotOf(cart *domain.Cart) domain.Cart {
	cp := *cart
	cp.LineItems = make([]domain.LineItem, len(cart.LineItems))
	copy(cp.LineItems, cart.LineItems)
	if cart.Customer != nil {
		customer := *cart.Customer
		cp.Customer = &customer
	}
	return cp
}
