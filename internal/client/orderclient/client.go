package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
)

// OrderClient é o cliente HTTP do colaborador externo de criação de pedidos.
// A política de retentativa NÃO mora aqui: o cliente executa uma tentativa e
// classifica a falha; quem decide retentar é o controlador de submissão.
type OrderClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     logger.Logger
}

// NewOrderClient cria uma nova instância do cliente de pedidos.
// O timeout do http.Client fica desligado; o timeout por tentativa é imposto
// pelo contexto que o controlador de submissão passa a cada chamada.
func NewOrderClient(baseURL string, log logger.Logger) *OrderClient {
	return &OrderClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		Logger:     log,
	}
}

// errorBody é o corpo de erro retornado pelo serviço de pedidos.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CreateSale envia o payload congelado da venda ao serviço de pedidos.
// A chave de idempotência segue no header em TODAS as tentativas, permitindo
// que o servidor deduplique reenvios da mesma venda lógica.
//
// Classificação de falhas:
//   - erro de transporte, timeout, deadline do contexto, resposta 5xx -> TransientSubmissionError
//   - resposta 4xx -> erro permanente (ValidationError), nunca retentado
func (c *OrderClient) CreateSale(ctx context.Context, sale domain.SaleRequest) (domain.SaleResult, error) {
	body, err := json.Marshal(sale)
	if err != nil {
		return domain.SaleResult{}, apperror.NewInternalError("Falha ao serializar o payload da venda.", err)
	}

	url := c.BaseURL + "/v1/sales"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.SaleResult{}, apperror.NewInternalError("Falha ao montar a requisição de venda.", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", sale.IdempotencyKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Falha de transporte ou deadline: classe transiente.
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.SaleResult{}, apperror.NewTransientSubmissionError("timeout na chamada ao serviço de pedidos", err)
		}
		return domain.SaleResult{}, apperror.NewTransientSubmissionError("falha de rede na chamada ao serviço de pedidos", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		var result domain.SaleResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			// Resposta ilegível depois de um possível commit no servidor:
			// tratar como transiente e deixar a chave de idempotência deduplicar.
			return domain.SaleResult{}, apperror.NewTransientSubmissionError("resposta de sucesso ilegível do serviço de pedidos", err)
		}
		if result.CreatedAt.IsZero() {
			result.CreatedAt = time.Now().UTC()
		}
		return result, nil

	case resp.StatusCode >= http.StatusInternalServerError:
		// 5xx: classe transiente.
		msg := readErrorMessage(resp.Body)
		return domain.SaleResult{}, apperror.NewTransientSubmissionError(
			fmt.Sprintf("serviço de pedidos respondeu %d: %s", resp.StatusCode, msg),
			fmt.Errorf("status %d", resp.StatusCode),
		)

	default:
		// 4xx: o servidor rejeitou o payload; retentar não ajuda.
		msg := readErrorMessage(resp.Body)
		return domain.SaleResult{}, apperror.NewValidationError(
			fmt.Sprintf("Serviço de pedidos rejeitou a venda (%d): %s", resp.StatusCode, msg))
	}
}

// readErrorMessage extrai a mensagem do corpo de erro, tolerando corpos fora do formato.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "sem detalhes"
	}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
		return eb.Message
	}
	return string(raw)
}
