package main

import (
	"database/sql"
	"log"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"mulchBack/internal/config"
	"mulchBack/internal/handlers"
	"mulchBack/internal/repositories"
	"mulchBack/internal/services"
	"mulchBack/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	db       *sql.DB
	cfg      config.Config

	tokens *utils.Manager

	orderHandler    *handlers.OrderHandler
	donationHandler *handlers.DonationHandler
	webhookHandler  *handlers.StripeWebhookHandler
	adminHandler    *handlers.AdminHandler
}

func initializeApp(db *sql.DB, rdb *redis.Client, cfg config.Config, errorLog, infoLog *log.Logger) (*application, error) {
	// Repositories
	orderRepo := &repositories.OrderRepository{DB: db}
	donationRepo := &repositories.DonationRepository{DB: db}
	reportRepo := &repositories.ReportRepository{DB: db}

	// Services
	stripeService, err := services.NewStripeService(services.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Logger:        slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	lifecycle := &services.OrderLifecycleService{
		Orders:    orderRepo,
		Donations: donationRepo,
		Gateway:   stripeService,
		Ward:      cfg.Ward,
		BaseURL:   cfg.Server.BaseURL,
	}
	reportService := &services.ReportService{ReportRepo: reportRepo}
	eventCache := services.NewEventCache(rdb, 24*time.Hour)

	tokens, err := utils.NewManager(cfg.Admin.SigningKey)
	if err != nil {
		return nil, err
	}

	// Handlers
	orderHandler := &handlers.OrderHandler{Lifecycle: lifecycle}
	donationHandler := &handlers.DonationHandler{Lifecycle: lifecycle}
	webhookHandler := &handlers.StripeWebhookHandler{
		Stripe:    stripeService,
		Lifecycle: lifecycle,
		Events:    eventCache,
	}
	adminHandler := &handlers.AdminHandler{
		Lifecycle:     lifecycle,
		Reports:       reportService,
		OrderRepo:     orderRepo,
		DonationRepo:  donationRepo,
		Tokens:        tokens,
		AdminEmail:    cfg.Admin.Email,
		AdminPassword: cfg.Admin.Password,
	}

	return &application{
		errorLog:        errorLog,
		infoLog:         infoLog,
		db:              db,
		cfg:             cfg,
		tokens:          tokens,
		orderHandler:    orderHandler,
		donationHandler: donationHandler,
		webhookHandler:  webhookHandler,
		adminHandler:    adminHandler,
	}, nil
}
