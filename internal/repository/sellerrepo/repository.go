package sellerrepo

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

// Chave de cache para a resolução usuário -> vendedor.
const sellerCacheKey = "seller:user:%s"

// SellerRepository implementa a interface domain.SellerRepository.
// Resolve o usuário autenticado para o registro de vendedor correspondente.
type SellerRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	Logger    logger.Logger
}

// NewSellerRepository cria e retorna uma nova instância do Repositório.
// Aqui injetamos as dependências de Infraestrutura (DB e Cache).
func NewSellerRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, log logger.Logger) *SellerRepository {
	return &SellerRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		Logger:    log,
	}
}

// FindByUserID busca o vendedor associado a um usuário, com estratégia Cache-Aside.
// Retorna NotFoundError quando o usuário não é um vendedor.
func (r *SellerRepository) FindByUserID(ctx context.Context, userID string) (domain.Seller, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(sellerCacheKey, userID)
	var seller domain.Seller

	// --- 1. Estratégia Cache-Aside (READ) ---
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		if json.Unmarshal([]byte(cachedData), &seller) == nil {
			return seller, nil
		}
		// Se a desserialização falhar, continua para o DB
	} else if err != cache.ErrCacheMiss {
		// Erro real de cache (conexão perdida): logamos e seguimos para o DB.
		r.Logger.Warn("Falha ao ler vendedor do cache Redis.", map[string]interface{}{"user_id": userID})
	}

	// --- 2. Busca no Banco de Dados (PostgreSQL) ---
	const sellerSQL = `
		SELECT id, user_id, name
		FROM sellers
		WHERE user_id = $1 AND is_active = TRUE`

	row := r.DB.QueryRowContext(ctxTimeout, sellerSQL, userID)

	err = row.Scan(
		&seller.ID,
		&seller.UserID,
		&seller.Name,
	)

	if err == sql.ErrNoRows {
		// O usuário autenticado não possui registro de vendedor.
		return domain.Seller{}, errors.NewNotFoundError(fmt.Sprintf("Usuário %s não possui registro de vendedor.", userID))
	}
	if err != nil {
		return domain.Seller{}, errors.NewDBError("Falha ao buscar vendedor no DB", err)
	}

	// --- 3. Estratégia Cache-Aside (WRITE) ---
	if sellerJSON, marshalErr := json.Marshal(seller); marshalErr == nil {
		r.Cache.Set(ctxTimeout, key, sellerJSON, r.CacheTTL)
	}

	return seller, nil
}
