package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/club-event-ticketing/internal/config"
	"github.com/iliyamo/club-event-ticketing/internal/database"
	"github.com/iliyamo/club-event-ticketing/internal/handler"
	"github.com/iliyamo/club-event-ticketing/internal/metrics"
	"github.com/iliyamo/club-event-ticketing/internal/middleware"
	"github.com/iliyamo/club-event-ticketing/internal/otp"
	"github.com/iliyamo/club-event-ticketing/internal/queue"
	"github.com/iliyamo/club-event-ticketing/internal/repository"
	"github.com/iliyamo/club-event-ticketing/internal/router"
	"github.com/iliyamo/club-event-ticketing/internal/service"
	"github.com/iliyamo/club-event-ticketing/internal/ticket"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("starting club event ticketing", "env", cfg.Env)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable: response cache and rate limiting disabled, OTPs kept in memory")
	} else {
		defer rdb.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Notifications go through RabbitMQ when configured, otherwise they are
	// written straight to the notification log.
	notifier := queue.NewFileNotifier(cfg.NotificationLog)
	var (
		otpSender        otp.Sender = queue.DirectSender{Notifier: notifier}
		bookingPublisher handler.BookingPublisher
	)
	if cfg.RabbitURL != "" {
		pub := service.NewPublisher(cfg.RabbitURL, logger, m)
		defer pub.Close()
		otpSender, bookingPublisher = pub, pub
		go func() {
			if err := queue.NewConsumer(cfg.RabbitURL, notifier, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification consumer stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("RABBITMQ_URL not set: notifications are written directly to the log file", "path", cfg.NotificationLog)
	}

	var otpStore otp.Store
	if rdb != nil {
		otpStore = otp.NewRedisStore(rdb, "otp")
	} else {
		mem := otp.NewMemoryStore()
		go mem.RunSweeper(ctx, time.Minute)
		otpStore = mem
	}
	otpSvc, err := otp.NewService(otpStore, otpSender, cfg.OTPTTL, cfg.OTPMaxAttempts, otp.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build OTP service", "error", err)
		os.Exit(1)
	}

	codec, err := ticket.NewCodec(cfg.TicketSecret, cfg.TicketTTL)
	if err != nil {
		logger.Error("failed to build ticket codec", "error", err)
		os.Exit(1)
	}
	window := ticket.Window{OpensBefore: cfg.CheckInOpensBefore, ClosesAfter: cfg.CheckInClosesAfter}

	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)

	issuer := ticket.NewIssuer(codec, ticket.WithIssuerLogger(logger), ticket.WithIssuerMetrics(m))
	verifier := ticket.NewVerifier(codec, bookings,
		ticket.WithWindow(window),
		ticket.WithVerifierLogger(logger),
		ticket.WithVerifierMetrics(m),
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e, db, prometheus.DefaultGatherer)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, otpSvc, logger), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig("OTP_RATE_LIMIT"), rdb, logger))
	router.RegisterPublic(e, handler.NewEventHandler(events, window),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger))
	router.RegisterBookings(e, handler.NewBookingHandler(bookings, events, users, issuer, bookingPublisher, m, logger), cfg.JWTSecret)
	router.RegisterCheckIn(e, handler.NewCheckInHandler(verifier, logger), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig("RATE_LIMIT"), rdb, logger))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	logger.Info("server exited")
}

func setupLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
