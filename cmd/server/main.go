package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/courtside/tournament-registration/internal/artifact"
	"github.com/courtside/tournament-registration/internal/config"
	"github.com/courtside/tournament-registration/internal/database"
	"github.com/courtside/tournament-registration/internal/handler"
	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/mailer"
	"github.com/courtside/tournament-registration/internal/middleware"
	"github.com/courtside/tournament-registration/internal/payment"
	"github.com/courtside/tournament-registration/internal/queue"
	"github.com/courtside/tournament-registration/internal/repository"
	"github.com/courtside/tournament-registration/internal/router"
	"github.com/courtside/tournament-registration/internal/scheduler"
	"github.com/courtside/tournament-registration/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, "tournament-registration")

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	defer func() { _ = db.Close() }()
	if err := database.InitSchema(db); err != nil {
		log.Fatal("schema init failed", "error", err)
	}

	payment.Configure(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if cfg.StripeSecretKey == "" {
		log.Warn("payment gateway not configured; only free registrations will succeed")
	}

	// Redis is optional: limiter and cache degrade to pass-through
	// middleware when no client is available.
	rdb := config.NewRedisClient()
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	respCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	tournamentRepo := repository.NewTournamentRepo(db)
	reservationRepo := repository.NewReservationRepo(db, tournamentRepo)
	ticketRepo := repository.NewTicketRepo(db, tournamentRepo)
	discountRepo := repository.NewDiscountRepo(db)
	eventRepo := repository.NewEventLogRepo(db)

	var publisher service.TicketPublisher
	if cfg.RabbitMQURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitMQURL, log)
	} else {
		log.Warn("no broker configured; ticket notifications disabled")
	}

	reservations := service.NewReservationService(
		reservationRepo, tournamentRepo,
		time.Duration(cfg.ReservationTTLMinutes)*time.Minute, log)
	discounts := service.NewDiscountService(discountRepo, log)
	tickets := service.NewTicketService(
		ticketRepo, artifact.NewQRGenerator(cfg.TicketBaseURL),
		payment.Default, publisher, log)
	checkout := service.NewCheckoutService(
		reservationRepo, tournamentRepo, discounts, tickets, payment.Default,
		service.CheckoutConfig{
			SuccessURL:        cfg.SuccessURL,
			CancelURL:         cfg.CancelURL,
			FeePercent:        cfg.PlatformFeePercent,
			PlatformAccountID: cfg.PlatformAccountID,
			DefaultCurrency:   cfg.DefaultCurrency,
		}, log)
	settlement := service.NewSettlementService(
		reservationRepo, tournamentRepo, tickets, discounts, eventRepo, log)

	sweeper := scheduler.NewSweeper(
		time.Duration(cfg.SweepIntervalSeconds)*time.Second,
		reservations.SweepExpired, log)
	sweeper.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.RabbitMQURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, mailer.NewLogMailer(log), log)
		go consumer.Start(ctx)
	}

	e := echo.New()
	e.HideBanner = true

	reservationHandler := handler.NewReservationHandler(reservations)
	router.RegisterRoutes(e)
	router.RegisterWebhook(e, handler.NewWebhookHandler(settlement, payment.Default, log))
	router.RegisterPublic(e, reservationHandler, handler.NewDiscountHandler(discounts), respCache)
	router.RegisterRegistration(e, reservationHandler,
		handler.NewCheckoutHandler(checkout), handler.NewTicketHandler(tickets),
		cfg.JWTSecret, rateLimit)
	router.RegisterOps(e, handler.NewOpsHandler(eventRepo), cfg.JWTSecret)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", "error", err)
		}
	}()
	log.Info("listening", "port", cfg.Port, "env", cfg.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	sweeper.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
