package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError é a interface central para todos os erros customizados do GoVenda.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION", "NOT_FOUND", "INTERNAL")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }                   // Não encapsula erro subjacente

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito na regra de negócio (e.g., finalização
// já em andamento, venda já concluída para o carrinho).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// UnauthorizedError representa falha de autenticação/autorização.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autorização.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Taxonomia de Erros da Finalização de Venda ---

// Os quatro ValidationError da montagem do payload, na ordem de precedência
// da validação (a primeira violação encontrada vence).

// NewNoItemsSelectedError indica carrinho sem nenhum item selecionado.
func NewNoItemsSelectedError() AppError {
	return &ValidationError{Msg: "O carrinho não possui itens selecionados."}
}

// NewInvalidCustomerError indica cliente ausente ou sem identificador resolvível.
func NewInvalidCustomerError() AppError {
	return &ValidationError{Msg: "Cliente ausente ou sem identificador válido."}
}

// NewNonPositiveTotalError indica total calculado menor ou igual a zero.
func NewNonPositiveTotalError() AppError {
	return &ValidationError{Msg: "O total da venda deve ser maior que zero."}
}

// NewInvalidLineItemPricingError indica itens com preço unitário ausente ou
// não positivo. Carrega os nomes de TODOS os itens ofensores de uma vez, para
// que o chamador possa apresentá-los juntos.
func NewInvalidLineItemPricingError(itemNames []string) AppError {
	return &ValidationError{Msg: fmt.Sprintf("Itens com preço inválido: %s.", strings.Join(itemNames, ", "))}
}

// SellerResolutionError indica que o usuário autenticado não pôde ser mapeado
// para um vendedor. Não é da classe transiente: nunca é retentado.
type SellerResolutionError struct {
	UserID string
	Err    error
}

func (e *SellerResolutionError) Error() string {
	return fmt.Sprintf("Falha na resolução do vendedor para o usuário %s", e.UserID)
}
func (e *SellerResolutionError) Category() string { return "SELLER_RESOLUTION_FAILED" }
func (e *SellerResolutionError) HTTPStatus() int  { return http.StatusUnprocessableEntity } // 422
func (e *SellerResolutionError) Unwrap() error    { return e.Err }

// NewSellerResolutionError cria o erro terminal de resolução de vendedor.
func NewSellerResolutionError(userID string, err error) AppError {
	return &SellerResolutionError{UserID: userID, Err: err}
}

// TransientSubmissionError classifica uma falha retentável da submissão
// (falha de rede, timeout, resposta 5xx do serviço de pedidos).
type TransientSubmissionError struct {
	Msg string
	Err error
}

func (e *TransientSubmissionError) Error() string {
	return fmt.Sprintf("Falha transiente na submissão: %s", e.Msg)
}
func (e *TransientSubmissionError) Category() string { return "TRANSIENT_SUBMISSION" }
func (e *TransientSubmissionError) HTTPStatus() int  { return http.StatusBadGateway } // 502
func (e *TransientSubmissionError) Unwrap() error    { return e.Err }

// NewTransientSubmissionError cria um erro transiente de submissão.
func NewTransientSubmissionError(msg string, err error) AppError {
	return &TransientSubmissionError{Msg: msg, Err: err}
}

// SubmissionExhaustedError é o erro terminal após esgotar as retentativas.
// Encapsula o ÚLTIMO erro transiente observado.
type SubmissionExhaustedError struct {
	Attempts int
	Err      error
}

func (e *SubmissionExhaustedError) Error() string {
	return fmt.Sprintf("Submissão da venda falhou após %d tentativas", e.Attempts)
}
func (e *SubmissionExhaustedError) Category() string { return "SUBMISSION_EXHAUSTED" }
func (e *SubmissionExhaustedError) HTTPStatus() int  { return http.StatusBadGateway } // 502
func (e *SubmissionExhaustedError) Unwrap() error    { return e.Err }

// NewSubmissionExhaustedError cria o erro terminal de retentativas esgotadas.
func NewSubmissionExhaustedError(attempts int, last error) AppError {
	return &SubmissionExhaustedError{Attempts: attempts, Err: last}
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := err.(AppError); ok {
		// O erro é tipado (ValidationError, NotFoundError, etc.)
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado (e.g., erro simples de pacote Go que não implementa AppError)
	// Tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
