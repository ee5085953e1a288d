package pricingservice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
)

// Funções puras de precificação do carrinho. Sem I/O e sem estado: são
// seguras para recomputar a cada leitura do carrinho. A acumulação é feita em
// precisão plena do decimal; o arredondamento para 2 casas acontece UMA vez,
// na borda (exibição/submissão), para não compor erro de arredondamento.

// LineSubtotal é o subtotal de uma linha do carrinho, já arredondado na borda.
type LineSubtotal struct {
	ItemID   string          `json:"item_id"`
	Kind     domain.ItemKind `json:"kind"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Summary é o resultado derivado do carrinho mais o plano de pagamento.
type Summary struct {
	SubtotalProducts decimal.Decimal `json:"subtotal_products"`
	SubtotalServices decimal.Decimal `json:"subtotal_services"`
	Total            decimal.Decimal `json:"total"`
	InstallmentValue decimal.Decimal `json:"installment_value"`
	LineSubtotals    []LineSubtotal  `json:"line_subtotals"`
}

// Summarize deriva subtotais por linha, subtotais por tipo, total e valor de
// parcela a partir do carrinho e do plano de pagamento.
func Summarize(cart domain.Cart, plan domain.PaymentPlan) Summary {
	products := decimal.Zero
	services := decimal.Zero
	lines := make([]LineSubtotal, 0, len(cart.LineItems))

	for _, li := range cart.LineItems {
		subtotal := li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))

		switch li.Kind {
		case domain.KindService:
			services = services.Add(subtotal)
		default:
			products = products.Add(subtotal)
		}

		lines = append(lines, LineSubtotal{
			ItemID:   li.ItemID,
			Kind:     li.Kind,
			Subtotal: subtotal.Round(2),
		})
	}

	total := products.Add(services)

	installments := plan.Installments
	if installments < 1 {
		installments = 1
	}
	installmentValue := total.Div(decimal.NewFromInt(int64(installments))).Round(2)

	return Summary{
		SubtotalProducts: products.Round(2),
		SubtotalServices: services.Round(2),
		Total:            total.Round(2),
		InstallmentValue: installmentValue,
		LineSubtotals:    lines,
	}
}

// InstallmentDomain retorna o intervalo de parcelas permitido para o método,
// como fonte única de verdade (sem listas de opções duplicadas).
func InstallmentDomain(method domain.PaymentMethod) (min, max int) {
	switch method {
	case domain.MethodCard:
		return 1, 12
	case domain.MethodInvoice:
		return 1, 24
	default:
		// CASH e PIX são sempre à vista.
		return 1, 1
	}
}

// ValidatePlan valida o plano contra o domínio de parcelamento do método e o
// retorna normalizado (CASH/PIX forçam 1 parcela).
func ValidatePlan(plan domain.PaymentPlan) (domain.PaymentPlan, error) {
	switch plan.Method {
	case domain.MethodCash, domain.MethodCard, domain.MethodPix, domain.MethodInvoice:
	default:
		return domain.PaymentPlan{}, apperror.NewValidationError(fmt.Sprintf("Método de pagamento desconhecido: %s.", plan.Method))
	}

	min, max := InstallmentDomain(plan.Method)
	if min == max {
		plan.Installments = min
		return plan, nil
	}

	if plan.Installments < min || plan.Installments > max {
		return domain.PaymentPlan{}, apperror.NewValidationError(
			fmt.Sprintf("O método %s permite entre %d e %d parcelas.", plan.Method, min, max))
	}
	return plan, nil
}

// Schedule distribui o total em parcelas de round2(total/n); a ÚLTIMA parcela
// absorve o resíduo de arredondamento, de modo que a soma das parcelas
// reconcilia exatamente com o total e nenhuma parcela é <= 0. Se o total não
// comporta o número de parcelas pedido (menos de um centavo por parcela, ou
// um resíduo que zeraria a última), o número de parcelas é reduzido até que
// toda parcela seja positiva.
func Schedule(total decimal.Decimal, installments int) []decimal.Decimal {
	if !total.IsPositive() {
		return nil
	}
	if installments < 1 {
		installments = 1
	}

	value, last := splitInstallments(total, installments)
	for installments > 1 && (!value.IsPositive() || !last.IsPositive()) {
		installments--
		value, last = splitInstallments(total, installments)
	}

	schedule := make([]decimal.Decimal, installments)
	for i := 0; i < installments-1; i++ {
		schedule[i] = value
	}
	schedule[installments-1] = last
	return schedule
}

// splitInstallments calcula o valor nominal da parcela e o resíduo absorvido
// pela última, para um total repartido em n parcelas.
func splitInstallments(total decimal.Decimal, n int) (value, last decimal.Decimal) {
	value = total.Div(decimal.NewFromInt(int64(n))).Round(2)
	last = total.Sub(value.Mul(decimal.NewFromInt(int64(n - 1))))
	return value, last
}
