package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/qiyas-mock/internal/config"
	"github.com/stemsi/qiyas-mock/internal/database"
	"github.com/stemsi/qiyas-mock/internal/logger"
	"github.com/stemsi/qiyas-mock/internal/model"
	"github.com/stemsi/qiyas-mock/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	var (
		email         string
		role          string
		premium       string
		resetPassword bool
	)
	flag.StringVar(&email, "email", "", "Email of the account to change (required)")
	flag.StringVar(&role, "role", "", "New role: learner or admin (unchanged when empty)")
	flag.StringVar(&premium, "premium", "", "Premium access: true or false (unchanged when empty)")
	flag.BoolVar(&resetPassword, "reset-password", false, "Prompt for a new password")
	flag.Parse()

	if email == "" {
		flag.Usage()
		os.Exit(2)
	}

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL and Redis ───────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool)

	fmt.Println("=== Grant Access ===")

	user, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			fmt.Printf("Error: no user with email %s\n", email)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to look up user")
	}

	newRole := user.Role
	switch role {
	case "":
	case string(model.RoleLearner), string(model.RoleAdmin):
		newRole = model.Role(role)
	default:
		fmt.Println("Error: -role must be learner or admin")
		os.Exit(2)
	}

	newPremium := user.Premium
	switch premium {
	case "":
	case "true":
		newPremium = true
	case "false":
		newPremium = false
	default:
		fmt.Println("Error: -premium must be true or false")
		os.Exit(2)
	}

	if err := userRepo.UpdateAccess(ctx, user.ID, newRole, newPremium); err != nil {
		log.Fatal().Err(err).Msg("Failed to update access")
	}

	// Entitlement is cached; drop it so the change applies immediately.
	if err := rdb.Del(ctx, config.CacheKey.UserEntitlementKey(user.ID)).Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to clear entitlement cache")
	}

	if resetPassword {
		fmt.Print("Enter New Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read password")
		}
		if len(bytePassword) < 6 {
			fmt.Println("Error: Password must be at least 6 characters")
			os.Exit(1)
		}
		hash, err := bcrypt.GenerateFromPassword(bytePassword, cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		if err := userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			log.Fatal().Err(err).Msg("Failed to update password")
		}
		// End any session issued with the old password.
		if err := rdb.Del(ctx, config.CacheKey.UserSessionKey(user.ID)).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to end current session")
		}
	}

	fmt.Printf("\nSuccess! %s is now %s (premium: %t)\n", user.Email, newRole, newPremium)
}
