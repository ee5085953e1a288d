package submissionservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
)

// OrderClient define o contrato do colaborador externo de criação de pedidos.
type OrderClient interface {
	CreateSale(ctx context.Context, sale domain.SaleRequest) (domain.SaleResult, error)
}

// SellerResolver define o contrato de resolução de vendedor. É consultado UMA
// vez por finalização (não por tentativa); o resultado vale para toda a
// sequência de tentativas.
type SellerResolver interface {
	Resolve(ctx context.Context, userID string) (domain.Seller, error)
}

// PayloadBuilder define o contrato do construtor de payload de venda.
type PayloadBuilder interface {
	Validate(cart domain.Cart) error
	Build(cart domain.Cart, sellerID string) (domain.SaleRequest, error)
}

// Notifier é o canal lateral de notificação de status: recebe uma mensagem a
// cada transição de estado. Não faz parte do contrato de controle.
type Notifier interface {
	Notify(notice domain.SubmissionNotice)
}

// machine guarda o estado da máquina de submissão de UMA sessão de carrinho.
type machine struct {
	mu    sync.Mutex
	state domain.SubmissionState
}

// Service é o controlador de submissão: dono da máquina de estados
// Idle -> Resolving -> Submitting -> (Retrying <-> Submitting) -> Completed | Failed.
//
// Garantias:
//   - single-flight: uma finalização por sessão por vez; chamadas durante
//     estado não-terminal retornam conflito sem efeito algum;
//   - payload congelado: todas as tentativas de uma finalização reenviam o
//     MESMO SaleRequest, byte a byte;
//   - retentativas limitadas: no máximo maxAttempts tentativas, estritamente
//     sequenciais, com backoff exponencial e jitter entre elas;
//   - cancelamento: se o contexto for cancelado, nenhuma transição ou
//     notificação posterior é emitida.
type Service struct {
	orders   OrderClient
	sellers  SellerResolver
	builder  PayloadBuilder
	notifier Notifier
	logger   logger.Logger

	maxAttempts    int
	retryBase      time.Duration
	attemptTimeout time.Duration

	mu       sync.Mutex
	machines map[string]*machine
}

// NewService cria e retorna uma nova instância do controlador de submissão.
func NewService(orders OrderClient, sellers SellerResolver, builder PayloadBuilder, notifier Notifier, log logger.Logger, maxAttempts int, retryBase, attemptTimeout time.Duration) *Service {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Service{
		orders:         orders,
		sellers:        sellers,
		builder:        builder,
		notifier:       notifier,
		logger:         log,
		maxAttempts:    maxAttempts,
		retryBase:      retryBase,
		attemptTimeout: attemptTimeout,
		machines:       make(map[string]*machine),
	}
}

// State retorna o estado atual da máquina de uma sessão (Idle se desconhecida).
func (s *Service) State(sessionID string) domain.SubmissionState {
	s.mu.Lock()
	m, ok := s.machines[sessionID]
	s.mu.Unlock()
	if !ok {
		return domain.StateIdle
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// machineFor retorna (criando se preciso) a máquina da sessão.
func (s *Service) machineFor(sessionID string) *machine {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.machines[sessionID]
	if !ok {
		m = &machine{state: domain.StateIdle}
		s.machines[sessionID] = m
	}
	return m
}

// Discard remove a máquina de submissão de uma sessão descartada, liberando a
// entrada do mapa (o carrinho já foi limpo; uma sessão limpa nunca volta a
// finalizar porque o snapshot dela deixa de existir). É um no-op enquanto
// houver finalização em andamento: a máquina em voo segue dona do seu estado
// até o desfecho terminal.
func (s *Service) Discard(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.machines[sessionID]
	if !ok {
		return
	}

	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state != domain.StateIdle && !state.Terminal() {
		return
	}
	delete(s.machines, sessionID)
}

// transition muda o estado da máquina e emite a notificação de status.
func (s *Service) transition(m *machine, sessionID string, next domain.SubmissionState, attempt int, message string) {
	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	s.notifier.Notify(domain.SubmissionNotice{
		SessionID:   sessionID,
		State:       next,
		Attempt:     attempt,
		MaxAttempts: s.maxAttempts,
		Message:     message,
	})
}

// reset devolve a máquina para Idle SEM notificar (usado no cancelamento:
// depois do teardown do chamador nenhum efeito colateral pode disparar).
func (s *Service) reset(m *machine) {
	m.mu.Lock()
	m.state = domain.StateIdle
	m.mu.Unlock()
}

// Finalize dirige a máquina de estados de ponta a ponta para o snapshot do
// carrinho: valida, resolve o vendedor, congela o payload e o submete com
// retentativas limitadas. Retorna o registro confirmado da venda ou o erro
// terminal (validação, resolução de vendedor, rejeição permanente ou
// esgotamento das retentativas).
func (s *Service) Finalize(ctx context.Context, cart domain.Cart, userID string) (domain.SaleResult, error) {
	m := s.machineFor(cart.SessionID)

	// Single-flight: só sai de Idle ou Failed; Completed é definitivo para o
	// carrinho (nunca ressubmeter uma venda já confirmada).
	m.mu.Lock()
	switch m.state {
	case domain.StateCompleted:
		m.mu.Unlock()
		return domain.SaleResult{}, apperror.NewConflictError("A venda deste carrinho já foi concluída.")
	case domain.StateIdle, domain.StateFailed:
		m.state = domain.StateResolving
		m.mu.Unlock()
	default:
		m.mu.Unlock()
		return domain.SaleResult{}, apperror.NewConflictError("Já existe uma finalização em andamento para este carrinho.")
	}

	s.notifier.Notify(domain.SubmissionNotice{
		SessionID:   cart.SessionID,
		State:       domain.StateResolving,
		MaxAttempts: s.maxAttempts,
		Message:     "Preparando a venda...",
	})

	// Validação local ANTES de qualquer I/O de rede. Violações vão direto
	// para Failed sem tocar o colaborador.
	if err := s.builder.Validate(cart); err != nil {
		s.transition(m, cart.SessionID, domain.StateFailed, 0, err.Error())
		submissionOutcomes.WithLabelValues(outcomeValidation).Inc()
		return domain.SaleResult{}, err
	}

	// Resolução de vendedor: uma vez por finalização, nunca retentada
	// (não é uma falha da classe transiente de rede).
	seller, err := s.sellers.Resolve(ctx, userID)
	if err != nil {
		resolutionErr := apperror.NewSellerResolutionError(userID, err)
		s.transition(m, cart.SessionID, domain.StateFailed, 0, resolutionErr.Error())
		submissionOutcomes.WithLabelValues(outcomeSellerResolution).Inc()
		return domain.SaleResult{}, resolutionErr
	}

	// Payload congelado: construído UMA vez; todas as tentativas reenviam
	// exatamente este conteúdo (mesma data, mesma chave de idempotência).
	request, err := s.builder.Build(cart, seller.ID)
	if err != nil {
		s.transition(m, cart.SessionID, domain.StateFailed, 0, err.Error())
		submissionOutcomes.WithLabelValues(outcomeValidation).Inc()
		return domain.SaleResult{}, err
	}

	s.transition(m, cart.SessionID, domain.StateSubmitting, 1,
		fmt.Sprintf("Enviando venda (tentativa 1 de %d).", s.maxAttempts))

	var result domain.SaleResult
	attempt := 0

	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1),
		retry.WithJitter(s.retryBase/2, retry.NewExponential(s.retryBase)))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.transition(m, cart.SessionID, domain.StateSubmitting, attempt,
				fmt.Sprintf("Enviando venda (tentativa %d de %d).", attempt, s.maxAttempts))
		}

		// Timeout explícito por tentativa; o estouro classifica como
		// transiente e segue o mesmo caminho de retentativa.
		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()

		attemptResult, attemptErr := s.orders.CreateSale(attemptCtx, request)
		if attemptErr == nil {
			result = attemptResult
			return nil
		}

		var transient *apperror.TransientSubmissionError
		if !errors.As(attemptErr, &transient) {
			// Falha permanente (4xx, erro interno): interrompe o loop.
			return attemptErr
		}

		submissionRetries.Inc()
		s.logger.Warn("Tentativa de submissão falhou com erro transiente.", map[string]interface{}{
			"session_id": cart.SessionID,
			"attempt":    attempt,
			"error":      attemptErr.Error(),
		})

		// Após o teardown do chamador, nenhum efeito colateral pode disparar.
		if ctx.Err() != nil {
			return attemptErr
		}

		if attempt < s.maxAttempts {
			s.transition(m, cart.SessionID, domain.StateRetrying, attempt,
				fmt.Sprintf("Falha transiente; retentativa %d de %d agendada.", attempt+1, s.maxAttempts))
		}
		return retry.RetryableError(attemptErr)
	})

	if err != nil {
		// Cancelamento do contexto: sem transições nem notificações; a
		// máquina volta a Idle silenciosamente.
		if ctx.Err() != nil {
			s.reset(m)
			submissionOutcomes.WithLabelValues(outcomeCancelled).Inc()
			return domain.SaleResult{}, err
		}

		var transient *apperror.TransientSubmissionError
		if errors.As(err, &transient) {
			// Retentativas esgotadas: o terminal encapsula o ÚLTIMO erro.
			exhausted := apperror.NewSubmissionExhaustedError(attempt, err)
			s.transition(m, cart.SessionID, domain.StateFailed, attempt, exhausted.Error())
			submissionOutcomes.WithLabelValues(outcomeExhausted).Inc()
			return domain.SaleResult{}, exhausted
		}

		// Rejeição permanente do serviço de pedidos.
		s.transition(m, cart.SessionID, domain.StateFailed, attempt, err.Error())
		submissionOutcomes.WithLabelValues(outcomeRejected).Inc()
		return domain.SaleResult{}, err
	}

	s.transition(m, cart.SessionID, domain.StateCompleted, attempt,
		fmt.Sprintf("Venda %s concluída com sucesso.", result.SaleID))
	submissionOutcomes.WithLabelValues(outcomeCompleted).Inc()

	s.logger.Info("Venda submetida com sucesso.", map[string]interface{}{
		"session_id":      cart.SessionID,
		"sale_id":         result.SaleID,
		"attempts":        attempt,
		"idempotency_key": request.IdempotencyKey,
	})

	return result, nil
}
