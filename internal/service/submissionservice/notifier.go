package submissionservice

import (
	"govenda/internal/domain"
	"govenda/internal/pkg/logger"
)

// LogNotifier é a implementação padrão do canal de status: registra cada
// transição no log estruturado. A UI pode trocar por um notificador próprio
// (e.g., push por WebSocket) sem tocar o controlador.
type LogNotifier struct {
	Logger logger.Logger
}

// NewLogNotifier cria um notificador baseado no logger da aplicação.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{Logger: log}
}

// Notify registra a transição de estado da submissão.
func (n *LogNotifier) Notify(notice domain.SubmissionNotice) {
	n.Logger.Info(notice.Message, map[string]interface{}{
		"session_id":   notice.SessionID,
		"state":        string(notice.State),
		"attempt":      notice.Attempt,
		"max_attempts": notice.MaxAttempts,
	})
}
