package catalogservice

import (
	"context"

	"govenda/internal/domain"
	apperror "govenda/internal/errors"
	"govenda/internal/pkg/logger"
)

// CatalogRepository define o contrato de leitura que este Serviço espera da
// camada de Persistência.
type CatalogRepository interface {
	FindByEnvironment(ctx context.Context, environmentID string, kind domain.ItemKind) ([]domain.CatalogItem, error)
	FindItem(ctx context.Context, id string, kind domain.ItemKind) (domain.CatalogItem, error)
}

// Service expõe as leituras de catálogo consumidas pelo wizard de venda.
// O CRUD do catálogo pertence a outro serviço; aqui é somente leitura.
type Service struct {
	repo   CatalogRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Catálogo.
func NewService(repo CatalogRepository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// ListByEnvironment lista os produtos ou serviços de um ambiente.
func (s *Service) ListByEnvironment(ctx context.Context, environmentID string, kind domain.ItemKind) ([]domain.CatalogItem, error) {
	if environmentID == "" {
		return nil, apperror.NewValidationError("O identificador do ambiente é obrigatório.")
	}

	items, err := s.repo.FindByEnvironment(ctx, environmentID, kind)
	if err != nil {
		s.logger.Error("Falha ao listar itens do catálogo.", err)
		return nil, err
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return items, nil
}

// GetItem busca um item individual do catálogo (usado no toggle de seleção).
func (s *Service) GetItem(ctx context.Context, id string, kind domain.ItemKind) (domain.CatalogItem, error) {
	if id == "" {
		return domain.CatalogItem{}, apperror.NewValidationError("O identificador do item é obrigatório.")
	}
	return s.repo.FindItem(ctx, id, kind)
}
