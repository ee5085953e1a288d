package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"govenda/config"
	"govenda/internal/pkg/cache"
	"govenda/internal/pkg/database"
	"govenda/internal/pkg/logger"
	"govenda/internal/pkg/token"

	// Camadas da venda para Injeção de Dependências
	"govenda/internal/api/cart" // Handlers
	"govenda/internal/api/catalog"
	"govenda/internal/api/router" // Roteador central
	"govenda/internal/client/orderclient"
	"govenda/internal/repository/catalogrepo" // Acesso a Dados
	"govenda/internal/repository/sellerrepo"
	"govenda/internal/service/cartservice" // Lógica de Negócio
	"govenda/internal/service/catalogservice"
	"govenda/internal/service/saleservice"
	"govenda/internal/service/sellerservice"
	"govenda/internal/service/submissionservice"
)

func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando serviço GoVenda...")
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado, avisamos mas continuamos,
		// pois as variáveis essenciais podem estar no ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL) — vendedores e catálogo (somente leitura)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	appLog.Info("Conexão Redis estabelecida.", nil)

	// C. Serviço de Tokens (JWT)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)

	// 3. INJEÇÃO DE DEPENDÊNCIAS (Montagem da Clean Architecture)
	// Ordem: Repository/Client -> Service -> Handler

	// A. Repositórios e Cliente do colaborador de pedidos
	sellerRepo := sellerrepo.NewSellerRepository(db, cacheClient, cfg.DBTimeout, cfg.SellerCacheTTL, appLog)
	catalogRepo := catalogrepo.NewCatalogRepository(db, cacheClient, cfg.DBTimeout, cfg.CatalogCacheTTL, appLog)
	orderClient := orderclient.NewOrderClient(cfg.OrderAPIURL, appLog)
	appLog.Debug("Repositórios e cliente de pedidos inicializados.", nil)

	// B. Serviços (Camada de Lógica de Negócio)
	cartSvc := cartservice.NewService(appLog)
	catalogSvc := catalogservice.NewService(catalogRepo, appLog)
	sellerSvc := sellerservice.NewService(sellerRepo, appLog)
	builderSvc := saleservice.NewService(appLog)
	submissionSvc := submissionservice.NewService(
		orderClient,
		sellerSvc,
		builderSvc,
		submissionservice.NewLogNotifier(appLog),
		appLog,
		cfg.SaleMaxAttempts,
		cfg.SaleRetryBase,
		cfg.OrderAPITimeout,
	)
	appLog.Debug("Serviços de venda inicializados.", nil)

	// C. Handlers (Camada de Apresentação)
	cartHandler := cart.NewHandler(cartSvc, catalogSvc, submissionSvc, appLog)
	catalogHandler := catalog.NewHandler(catalogSvc, appLog)
	appLog.Debug("Handlers inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(cartHandler, catalogHandler, tokenSvc, cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // a finalização pode atravessar retentativas com backoff
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor GoVenda ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	// Timeout para desligamento (usa o contexto)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
