package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-user-management/config"
	"github.com/oksasatya/go-user-management/internal/application"
	pginfra "github.com/oksasatya/go-user-management/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-management/pkg/helpers"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// seed creates the first ADMIN account through the regular registration path,
// so the password is hashed the same way and uniqueness rules apply.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.AppName+"-seed", 2, 1, time.Minute)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	issuer := helpers.NewTokenIssuer(cfg.JWTSecret)
	users := pginfra.NewUserRepository(pool)
	ledger := application.NewTokenLedger(pginfra.NewTokenRepository(pool), issuer)
	auth := application.NewAuthService(users, ledger, issuer, helpers.NewBcryptHasher(cfg.BcryptCost), cfg.AccessTTL, logger)

	in := application.ProfileInput{
		Email:     getenv("SEED_ADMIN_EMAIL", "admin@example.com"),
		Username:  getenv("SEED_ADMIN_USERNAME", "admin"),
		Password:  getenv("SEED_ADMIN_PASSWORD", "admin12345"),
		FirstName: "Admin",
		Role:      "ADMIN",
	}
	u, err := auth.Register(ctx, in)
	if errors.Is(err, application.ErrDuplicateIdentifier) {
		logger.WithField("email", in.Email).Info("admin already seeded")
		return
	}
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	logger.WithField("id", u.ID).WithField("email", u.Email).WithField("username", u.Username).Info("seeded admin")
}
