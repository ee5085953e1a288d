package catalogrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"govenda/internal/domain"
	"govenda/internal/errors"
	"govenda/internal/pkg/cache"
	"govenda/internal/pkg/logger"
)

// Chaves de cache do catálogo.
const (
	environmentCacheKey = "catalog:env:%s:%s"  // environmentID, kind
	itemCacheKey        = "catalog:item:%s:%s" // kind, itemID
)

// CatalogRepository implementa a interface domain.CatalogRepository.
// O catálogo é mantido por outro serviço (CRUD externo); aqui apenas lemos as
// tabelas de produtos e serviços para alimentar a seleção do wizard.
type CatalogRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	Logger    logger.Logger
}

// NewCatalogRepository cria e retorna uma nova instância do Repositório.
func NewCatalogRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, log logger.Logger) *CatalogRepository {
	return &CatalogRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		Logger:    log,
	}
}

// tableFor mapeia o tipo de item para a tabela correspondente.
func tableFor(kind domain.ItemKind) (string, error) {
	switch kind {
	case domain.KindProduct:
		return "products", nil
	case domain.KindService:
		return "services", nil
	default:
		return "", errors.NewValidationError(fmt.Sprintf("Tipo de item desconhecido: %s.", kind))
	}
}

// FindByEnvironment lista os itens do catálogo de um ambiente, com Cache-Aside.
func (r *CatalogRepository) FindByEnvironment(ctx context.Context, environmentID string, kind domain.ItemKind) ([]domain.CatalogItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(environmentCacheKey, environmentID, kind)
	var items []domain.CatalogItem

	// --- 1. Estratégia Cache-Aside (READ) ---
	cachedData, cacheErr := r.Cache.Get(ctxTimeout, key)
	if cacheErr == nil {
		if json.Unmarshal([]byte(cachedData), &items) == nil {
			return items, nil
		}
	} else if cacheErr != cache.ErrCacheMiss {
		r.Logger.Warn("Falha ao ler catálogo do cache Redis.", map[string]interface{}{"environment_id": environmentID})
	}

	// --- 2. Busca no Banco de Dados (PostgreSQL) ---
	listSQL := fmt.Sprintf(`
		SELECT id, environment_id, name, unit_price, COALESCE(default_zoning, '')
		FROM %s
		WHERE environment_id = $1 AND is_active = TRUE
		ORDER BY name`, table)

	rows, err := r.DB.QueryContext(ctxTimeout, listSQL, environmentID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao listar itens do catálogo no DB", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := domain.CatalogItem{Kind: kind}
		if err := rows.Scan(&item.ID, &item.EnvironmentID, &item.Name, &item.UnitPrice, &item.DefaultZoning); err != nil {
			return nil, errors.NewDBError("Falha ao mapear item do catálogo", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar itens do catálogo", err)
	}

	// --- 3. Estratégia Cache-Aside (WRITE) ---
	if itemsJSON, marshalErr := json.Marshal(items); marshalErr == nil {
		r.Cache.Set(ctxTimeout, key, itemsJSON, r.CacheTTL)
	}

	return items, nil
}

// FindItem busca um item individual do catálogo pelo ID e tipo.
func (r *CatalogRepository) FindItem(ctx context.Context, id string, kind domain.ItemKind) (domain.CatalogItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return domain.CatalogItem{}, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(itemCacheKey, kind, id)
	item := domain.CatalogItem{Kind: kind}

	cachedData, cacheErr := r.Cache.Get(ctxTimeout, key)
	if cacheErr == nil {
		if json.Unmarshal([]byte(cachedData), &item) == nil {
			return item, nil
		}
	}

	itemSQL := fmt.Sprintf(`
		SELECT id, environment_id, name, unit_price, COALESCE(default_zoning, '')
		FROM %s
		WHERE id = $1`, table)

	row := r.DB.QueryRowContext(ctxTimeout, itemSQL, id)

	err = row.Scan(&item.ID, &item.EnvironmentID, &item.Name, &item.UnitPrice, &item.DefaultZoning)
	if err == sql.ErrNoRows {
		return domain.CatalogItem{}, errors.NewNotFoundError(fmt.Sprintf("Item %s (%s) não existe no catálogo.", id, kind))
	}
	if err != nil {
		return domain.CatalogItem{}, errors.NewDBError("Falha ao buscar item do catálogo no DB", err)
	}

	if itemJSON, marshalErr := json.Marshal(item); marshalErr == nil {
		r.Cache.Set(ctxTimeout, key, itemJSON, r.CacheTTL)
	}

	return item, nil
}
