package sellerservice

import (
	"context"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
)

// SellerRepository define o contrato que este Serviço espera da camada de
// Persistência (DB, Cache).
type SellerRepository interface {
	FindByUserID(ctx context.Context, userID string) (domain.Seller, error)
}

// Service resolve o usuário autenticado para o registro de vendedor.
// Consumido uma única vez por finalização; falhas aqui NÃO são da classe
// transiente e nunca entram no caminho de retentativa.
type Service struct {
	repo   SellerRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Vendedor.
func NewService(repo SellerRepository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Resolve busca o vendedor associado ao usuário autenticado.
func (s *Service) Resolve(ctx context.Context, userID string) (domain.Seller, error) {
	if userID == "" {
		return domain.Seller{}, apperror.NewValidationError("Identificador de usuário ausente na resolução de vendedor.")
	}

	seller, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Falha ao resolver vendedor para o usuário.", err)
		return domain.Seller{}, err
	}

	s.logger.Debug("Vendedor resolvido.", map[string]interface{}{
		"user_id":   userID,
		"seller_id": seller.ID,
	})
	return seller, nil
}
