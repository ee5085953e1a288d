package submissionservice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rótulos de desfecho da finalização.
const (
	outcomeCompleted        = "completed"
	outcomeValidation       = "validation_failed"
	outcomeSellerResolution = "seller_resolution_failed"
	outcomeExhausted        = "exhausted"
	outcomeRejected         = "rejected"
	outcomeCancelled        = "cancelled"
)

var (
	// submissionOutcomes conta as finalizações por desfecho terminal.
	submissionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "govenda_sale_submissions_total",
		Help: "Total de finalizações de venda por desfecho.",
	}, []string{"outcome"})

	// submissionRetries conta as falhas transientes observadas por tentativa.
	submissionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "govenda_sale_submission_transient_failures_total",
		Help: "Total de tentativas de submissão que falharam com erro transiente.",
	})
)
