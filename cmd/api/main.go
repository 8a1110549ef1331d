package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cresciperdi/intranet-api/internal/config"
	"github.com/cresciperdi/intranet-api/internal/handler"
	"github.com/cresciperdi/intranet-api/internal/handler/dto"
	"github.com/cresciperdi/intranet-api/internal/middleware"
	pgRepo "github.com/cresciperdi/intranet-api/internal/repository/postgres"
	redisRepo "github.com/cresciperdi/intranet-api/internal/repository/redis"
	"github.com/cresciperdi/intranet-api/internal/service"
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
	ws "github.com/cresciperdi/intranet-api/internal/websocket"
	"github.com/cresciperdi/intranet-api/pkg/auth"
	"github.com/cresciperdi/intranet-api/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database, isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Репозитории
	profileRepo := pgRepo.NewProfileRepo(db)
	contentRepo := pgRepo.NewMandatoryContentRepo(db)
	signatureRepo := pgRepo.NewSignatureRepo(db)
	notificationRepo := pgRepo.NewNotificationRepo(db)
	settingRepo := pgRepo.NewSettingRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	tokenVerifier, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		log.Printf("Failed to initialize TokenVerifier: %v", err)
		os.Exit(1)
	}

	// --- WebSocket ---
	wsHub := ws.NewHub()
	go wsHub.Run()

	// Без кластера relay работает поверх NoOpPubSub и доставляет события только локально
	var provider ws.PubSubProvider = &ws.NoOpPubSub{}
	if cfg.WebSocket.ClusterEnabled {
		log.Println("Инициализация Redis PubSub для кластеризации WebSocket...")
		redisProvider, errProv := ws.NewRedisPubSub(redisClient)
		if errProv != nil {
			log.Printf("Ошибка при создании Redis PubSub провайдера: %v. Кластеризация WS будет неактивна.", errProv)
		} else {
			provider = redisProvider
		}
	}
	relay := ws.NewClusterRelay(wsHub, provider, cfg.WebSocket.Channel)
	if errStart := relay.Start(); errStart != nil {
		log.Printf("Не удалось подписаться на канал %s: %v. Кластеризация WS будет неактивна.", cfg.WebSocket.Channel, errStart)
		relay.Stop()
		relay = ws.NewClusterRelay(wsHub, &ws.NoOpPubSub{}, cfg.WebSocket.Channel)
		if err := relay.Start(); err != nil {
			log.Printf("Failed to start local WebSocket relay: %v", err)
			os.Exit(1)
		}
	}
	log.Printf("WebSocket relay запущен (instance %s, cluster: %t)", relay.InstanceID(), relay.Clustered())
	wsManager := ws.NewManager(wsHub, relay)

	// --- Каналы уведомлений ---
	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.ResendAPIKey != "" {
		resendService, errEmail := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.AppBaseURL)
		if errEmail != nil {
			log.Printf("Resend недоступен, письма отключены: %v", errEmail)
		} else {
			emailService = resendService
		}
	}

	var whatsAppService service.WhatsAppService = &service.NoopWhatsAppService{}
	if cfg.WhatsApp.GatewayURL != "" {
		gateway, errGateway := service.NewGatewayWhatsAppService(
			cfg.WhatsApp.GatewayURL,
			cfg.WhatsApp.Token,
			time.Duration(cfg.WhatsApp.TimeoutSec)*time.Second,
		)
		if errGateway != nil {
			log.Printf("Шлюз WhatsApp недоступен, сообщения отключены: %v", errGateway)
		} else {
			whatsAppService = gateway
		}
	}

	// --- Сервисы ---
	settingsService := service.NewSettingsService(
		settingRepo,
		cacheRepo,
		service.NotificationSettings{
			PushEnabled:     cfg.Notifications.PushEnabled,
			EmailEnabled:    cfg.Notifications.EmailEnabled,
			WhatsAppEnabled: cfg.Notifications.WhatsAppEnabled,
		},
		service.ComplianceSettings{RemindersEnabled: cfg.Reminder.Enabled},
	)
	notificationService := service.NewNotificationService(notificationRepo, settingsService, wsManager, emailService, whatsAppService)
	userService := service.NewUserService(profileRepo, cacheRepo, time.Duration(cfg.Auth.ProfileCacheTTL)*time.Second)

	complianceConfig := compliance.Config{
		StatusTTL:         cfg.Compliance.StatusTTL(),
		SessionTTL:        cfg.Compliance.SessionDuration(),
		ConfirmLockTTL:    cfg.Compliance.LockDuration(),
		ScrollTolerancePx: cfg.Compliance.ScrollTolerancePx,
		RedirectDelayMs:   cfg.Compliance.RedirectDelayMs,
	}
	ipResolver := compliance.NewIPResolver()
	complianceService := service.NewComplianceService(contentRepo, signatureRepo, cacheRepo, ipResolver, wsManager, complianceConfig)
	contentService := service.NewMandatoryContentService(contentRepo, profileRepo, notificationService, complianceService)
	reportService := service.NewComplianceReportService(contentRepo, signatureRepo, profileRepo)

	location, err := time.LoadLocation(cfg.Reminder.Timezone)
	if err != nil {
		log.Printf("Неизвестная временная зона %q, используется UTC: %v", cfg.Reminder.Timezone, err)
		location = time.UTC
	}
	reminderService := service.NewReminderService(contentRepo, signatureRepo, profileRepo, cacheRepo, notificationService, settingsService, location)
	reminderScheduler, err := service.NewReminderScheduler(reminderService, cfg.Reminder.Schedule, location)
	if err != nil {
		log.Printf("Failed to initialize ReminderScheduler: %v", err)
		os.Exit(1)
	}
	if cfg.Reminder.Enabled {
		reminderScheduler.Start()
		log.Printf("Напоминания включены (%s, %s)", cfg.Reminder.Schedule, location)
	}

	// --- Обработчики и middleware ---
	if err := dto.RegisterValidators(); err != nil {
		log.Printf("Failed to register validators: %v", err)
		os.Exit(1)
	}

	authMiddleware := middleware.NewAuthMiddleware(tokenVerifier, userService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	userHandler := handler.NewUserHandler()
	complianceHandler := handler.NewComplianceHandler(complianceService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	contentHandler := handler.NewMandatoryContentHandler(contentService, reportService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	wsHandler := handler.NewWSHandler(wsHub, wsManager, tokenVerifier, userService, cfg.CORS.AllowOrigins, cfg.WebSocket.SendBuffer)

	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get sql.DB: %v", err)
		os.Exit(1)
	}
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"postgres": sqlDB.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, wsManager)

	router := gin.Default()

	// X-Forwarded-For учитывается только от прокси из конфигурации, иначе IP подписи берётся из соединения
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Printf("Failed to set trusted proxies %v: %v", cfg.Server.TrustedProxies, err)
		os.Exit(1)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Health)
	router.GET("/ws", rateLimiter.LimitByIP(middleware.WebSocketRateLimitConfig()), wsHandler.HandleConnection)

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth(), rateLimiter.LimitByUser(middleware.DefaultAPIRateLimitConfig()))
	{
		api.GET("/me", userHandler.GetMe)

		// Маршруты прохождения контента доступны без гейта
		complianceGroup := api.Group("/compliance")
		{
			complianceGroup.GET("/status", complianceHandler.GetStatus)

			contents := complianceGroup.Group("/contents/:id")
			contents.Use(middleware.ExtractUUIDParam("id", handler.ContextContentID))
			{
				contents.GET("", complianceHandler.OpenContent)
				contents.POST("/events", complianceHandler.RecordEvent)
				contents.PUT("/answers", complianceHandler.SelectAnswer)
				contents.POST("/quiz", complianceHandler.SubmitQuiz)
				contents.POST("/confirm", rateLimiter.LimitByUser(middleware.ConfirmRateLimitConfig()), complianceHandler.Confirm)
			}
		}

		gated := api.Group("")
		gated.Use(middleware.ComplianceGate(complianceService))
		{
			notifications := gated.Group("/notifications")
			{
				notifications.GET("", notificationHandler.List)
				notifications.GET("/unread-count", notificationHandler.UnreadCount)
				notifications.POST("/read-all", notificationHandler.MarkAllRead)
				notifications.POST("/:id/read", middleware.ExtractUUIDParam("id", handler.ContextNotificationID), notificationHandler.MarkRead)
			}

			admin := gated.Group("/admin")
			admin.Use(authMiddleware.AdminOnly())
			{
				adminContents := admin.Group("/mandatory-contents")
				{
					adminContents.GET("", contentHandler.ListContents)
					adminContents.POST("", contentHandler.CreateContent)

					item := adminContents.Group("/:id")
					item.Use(middleware.ExtractUUIDParam("id", handler.ContextContentID))
					{
						item.GET("", contentHandler.GetContent)
						item.PUT("", contentHandler.UpdateContent)
						item.PUT("/active", contentHandler.SetActive)
						item.GET("/summary", contentHandler.GetSummary)
						item.GET("/signatures", contentHandler.ListSignatures)
						item.GET("/signatures/export", contentHandler.ExportSignatures)
					}
				}

				admin.GET("/settings", settingsHandler.List)
				admin.PUT("/settings/:key", settingsHandler.Update)
			}
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	reminderScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	relay.Stop()
	wsHub.Close()

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Server exited properly")
}
