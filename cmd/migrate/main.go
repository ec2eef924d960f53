package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/repository"
	"github.com/noah-isme/sma-library-api/pkg/config"
	"github.com/noah-isme/sma-library-api/pkg/database"
	"github.com/noah-isme/sma-library-api/pkg/logger"
)

func main() {
	adminUser := flag.String("admin-username", "", "seed an admin account with this username")
	adminEmail := flag.String("admin-email", "", "email for the seeded admin")
	adminPassword := flag.String("admin-password", "", "password for the seeded admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("migrate", zap.Error(err))
	}
	logr.Info("schema applied", zap.String("database", cfg.Database.Name))

	if *adminUser == "" {
		return
	}
	if *adminPassword == "" || *adminEmail == "" {
		logr.Fatal("admin seed needs -admin-email and -admin-password")
	}

	users := repository.NewUserRepository(db)
	if _, err := users.FindByUsername(ctx, *adminUser); err == nil {
		logr.Info("admin already present", zap.String("username", *adminUser))
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logr.Fatal("lookup admin", zap.Error(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
	if err != nil {
		logr.Fatal("hash admin password", zap.Error(err))
	}
	admin := &models.User{
		Username:     *adminUser,
		Email:        *adminEmail,
		PasswordHash: string(hash),
		FirstName:    "Library",
		LastName:     "Admin",
		UserType:     models.UserTypeAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		logr.Fatal("seed admin", zap.Error(err))
	}
	logr.Info("admin seeded", zap.String("id", admin.ID), zap.String("username", admin.Username))
}
