package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CatalogItem é a visão somente-leitura de um produto ou serviço do catálogo,
// por ambiente. O CRUD do catálogo pertence a outro serviço; aqui apenas
// consumimos as listas para alimentar as etapas de seleção do wizard.
type CatalogItem struct {
	ID            string          `json:"id"`
	EnvironmentID string          `json:"environment_id"`
	Kind          ItemKind        `json:"kind"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	DefaultZoning string          `json:"default_zoning,omitempty"`
}

// --- Interfaces de Contrato (O CORAÇÃO DA ARQUITETURA LIMPA) ---

// CatalogRepository define o contrato de leitura do catálogo que a camada de
// Serviço pode pedir à camada de Persistência (DB/Cache).
type CatalogRepository interface {
	FindByEnvironment(ctx context.Context, environmentID string, kind ItemKind) ([]CatalogItem, error)
	FindItem(ctx context.Context, id string, kind ItemKind) (CatalogItem, error)
}

// SellerRepository define o contrato de resolução de vendedor
// (usuário autenticado -> registro de vendedor).
type SellerRepository interface {
	FindByUserID(ctx context.Context, userID string) (Seller, error)
}
