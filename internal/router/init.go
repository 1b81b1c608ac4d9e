package router

import (
	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/container"
	repo "github.com/oksasatya/go-user-management/internal/domain/repository"
	"github.com/oksasatya/go-user-management/internal/infrastructure/memory"
	"github.com/oksasatya/go-user-management/internal/infrastructure/messaging"
	"github.com/oksasatya/go-user-management/internal/infrastructure/objectstore"
	pginfra "github.com/oksasatya/go-user-management/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-management/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-user-management/internal/interface/http"
	"github.com/oksasatya/go-user-management/internal/router/modules"
	"github.com/oksasatya/go-user-management/pkg/helpers"
)

// AppDeps is everything the HTTP modules need, built once from the container.
type AppDeps struct {
	Users  repo.UserRepository
	Tokens repo.TokenRepository
	Ledger *application.TokenLedger
	Auth   *application.AuthService
	User   *application.UserService
	Authn  *application.RequestAuthenticator

	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
}

func buildStores() (repo.UserRepository, repo.TokenRepository) {
	if container.GetConfig().StorageDriver == "memory" || container.GetPGPool() == nil {
		return memory.NewUserRepository(), memory.NewTokenRepository()
	}
	pool := container.GetPGPool()
	return pginfra.NewUserRepository(pool), pginfra.NewTokenRepository(pool)
}

// BuildDeps wires stores, services and handlers. Optional integrations
// (Elasticsearch, GCS, RabbitMQ) are attached only when their client is set.
func BuildDeps() AppDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	issuer := container.GetTokenIssuer()

	users, tokens := buildStores()
	ledger := application.NewTokenLedger(tokens, issuer)
	auth := application.NewAuthService(users, ledger, issuer, helpers.NewBcryptHasher(cfg.BcryptCost), cfg.AccessTTL, logger)

	var indexer application.UserIndexer
	if es := container.GetES(); es != nil {
		indexer = search.NewUserIndexer(es, cfg.ESUsersIndex)
	}
	var archiver application.ImportArchiver
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		archiver = objectstore.NewImportArchiver(gcs, cfg.GCSBucket)
	}
	if pub := container.GetRabbitPub(); pub != nil {
		auth.Events = messaging.NewEventPublisher(pub)
	}
	auth.Indexer = indexer

	userSvc := application.NewUserService(users, auth, indexer, archiver, logger)
	return AppDeps{
		Users:       users,
		Tokens:      tokens,
		Ledger:      ledger,
		Auth:        auth,
		User:        userSvc,
		Authn:       application.NewRequestAuthenticator(issuer, ledger, users),
		AuthHandler: handlers.NewAuthHandler(auth, logger),
		UserHandler: handlers.NewUserHandler(userSvc, logger, cfg.ImportMaxBytes, cfg.GenerateMaxCount),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) AppDeps {
	deps := BuildDeps()
	r.Add(modules.NewAuthModule(deps.AuthHandler, deps.Authn))
	r.Add(modules.NewUserModule(deps.UserHandler, deps.Authn))
	r.Add(modules.NewDebugModule())
	return deps
}
