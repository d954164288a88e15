package main

import (
	"context"
	"log"

	"voltprep/internal/config"
	"voltprep/internal/db"
	"voltprep/internal/handlers"
	"voltprep/internal/models"
	"voltprep/internal/repository"
	"voltprep/internal/router"
	"voltprep/internal/services"
)

func main() {
	cfg := config.Load()

	// Initialize Database
	db.Init(cfg.DatabaseURL)

	users := repository.NewUserRepo(db.DB)
	attempts := repository.NewProgressRepo(db.DB)
	studySessions := repository.NewSessionRepo(db.DB)
	xpLogs := repository.NewXPLogRepo(db.DB)
	bookmarks := repository.NewBookmarkRepo(db.DB)
	quizResults := repository.NewQuizResultRepo(db.DB)
	tokens := repository.NewTokenRepo(db.DB)

	// 经验对账后台任务
	var scheduler services.ReconcileScheduler
	if cfg.ReconcileEnabled {
		reconciler := services.NewReconciler(users, attempts, xpLogs)
		reconciler.Start(context.Background())
		scheduler = reconciler
	}

	// 配置了 Redis 时多实例共享限流计数
	var limiter services.Limiter = services.NewMemoryLimiter(services.ContactLimit, services.ContactWindow)
	if cfg.RedisURL != "" {
		client, err := services.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable, using in-memory rate limiter: %v", err)
		} else {
			limiter = services.NewRedisLimiter(client, services.ContactLimit, services.ContactWindow)
		}
	}

	mailer := services.NewMailService(cfg)
	accounts := services.NewAccountService(users, tokens, mailer, cfg.SiteURL, cfg.TrialDays)
	bookmarkService := services.NewBookmarkService(bookmarks)
	billing := services.NewBillingService(users, services.NewStripeClient(cfg.StripeSecretKey),
		cfg.StripePriceID, cfg.SiteURL, cfg.StripeWebhookSecret)

	h := router.Handlers{
		Auth: handlers.NewAuthHandler(accounts, handlers.NewGoogleOAuthConfig(cfg), cfg.SiteURL),
		Progress: handlers.NewProgressHandler(
			services.NewProgressRecorder(users, attempts, scheduler),
			services.NewStatsService(attempts, studySessions, quizResults, xpLogs),
		),
		Session:           handlers.NewSessionHandler(services.NewSessionLifecycle(users, studySessions)),
		User:              handlers.NewUserHandler(accounts),
		Bookmark:          handlers.NewBookmarkHandler(bookmarkService, models.BookmarkQuestion),
		FlashcardBookmark: handlers.NewBookmarkHandler(bookmarkService, models.BookmarkFlashcard),
		QuizResult:        handlers.NewQuizResultHandler(services.NewQuizResultService(quizResults)),
		Billing:           handlers.NewBillingHandler(billing),
		Contact:           handlers.NewContactHandler(services.NewContactService(limiter, mailer, cfg.ContactEmail)),
	}

	r := router.New(router.SessionOptions{Secret: cfg.SessionSecret, Secure: cfg.CookieSecure}, users, h)

	log.Printf("VoltPrep server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
