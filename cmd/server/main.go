package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/certhub/internal/config"
	"anoa.com/certhub/internal/handler"
	"anoa.com/certhub/internal/middleware"
	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"anoa.com/certhub/internal/service"
	"anoa.com/certhub/pkg/database"
	"anoa.com/certhub/pkg/mailer"
	"anoa.com/certhub/pkg/response"
	"anoa.com/certhub/pkg/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	response.PrettyErrors = cfg.PrettyErrors

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := seedPlatforms(db); err != nil {
		log.Fatalf("failed to seed platforms: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := seedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unreachable, continuing without it: %v", err)
			redisClient = nil
		}
	} else {
		log.Println("REDIS_URL not set, rate limiting and live notifications disabled")
	}

	var meiliClient meilisearch.ServiceManager
	if cfg.MeiliSearchHost != "" {
		meiliClient = meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	} else {
		log.Println("MEILISEARCH_HOST not set, certificate search disabled")
	}

	fileStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	mail := mailer.NewSendGridMailer()

	analyzer, err := service.NewAnalyzerService(context.Background())
	if err != nil {
		log.Printf("Certificate analyzer disabled: %v", err)
	} else {
		defer analyzer.Close()
	}

	userRepo := repository.NewUserRepository(db)
	certRepo := repository.NewCertificateRepository(db)
	classRepo := repository.NewClassRepository(db)
	platformRepo := repository.NewPlatformRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	auditService := service.NewAuditService(auditRepo)
	searchService := service.NewSearchService(meiliClient)
	notificationService := service.NewNotificationService(notificationRepo, redisClient)
	rosterService := service.NewRosterService(classRepo, userRepo, auditService, cfg)
	authService := service.NewAuthService(userRepo, rosterService, auditService, cfg)
	userService := service.NewUserService(userRepo, auditService)
	platformService := service.NewPlatformService(platformRepo)
	statService := service.NewStatService(certRepo, userRepo)
	importService := service.NewImportService(userRepo, rosterService, auditService, "changeme123")
	certService := service.NewCertificateService(
		certRepo, userRepo, classRepo,
		fileStorage, mail,
		auditService, notificationService, searchService, analyzer,
		cfg,
	)

	authHandler := handler.NewAuthHandler(authService)
	certHandler := handler.NewCertificateHandler(certService, searchService)
	publicHandler := handler.NewPublicHandler(certService, db)
	classHandler := handler.NewClassHandler(rosterService)
	platformHandler := handler.NewPlatformHandler(platformService)
	userHandler := handler.NewUserHandler(userService)
	statHandler := handler.NewStatHandler(statService)
	adminHandler := handler.NewAdminHandler(auditService, userService, importService)
	notificationHandler := handler.NewNotificationHandler(notificationService, redisClient)

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowedOrigins},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", publicHandler.Health)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(redisClient, "auth", cfg.RateLimitMax, cfg.RateLimitWindow))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		public := api.Group("/public")
		public.Use(middleware.RateLimit(redisClient, "public", cfg.RateLimitMax, cfg.RateLimitWindow))
		{
			public.GET("/certificates/:id", publicHandler.Lookup)
		}
	}

	api.Use(authMiddleware.RequireAuth(), authMiddleware.LoadUser())
	{
		api.POST("/certificates", certHandler.Submit)
		api.GET("/certificates", certHandler.List)
		api.DELETE("/certificates/:id", certHandler.Delete)

		api.GET("/platforms", platformHandler.List)

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
			notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
			notifications.GET("/ws", notificationHandler.HandleWebSocket)
		}

		staff := api.Group("")
		staff.Use(authMiddleware.RequireRole(model.RoleTeacher, model.RoleAdmin))
		{
			staff.PUT("/certificates/:id/status", certHandler.Transition)
			staff.GET("/certificates/search", certHandler.Search)
			staff.POST("/platforms", platformHandler.Create)
			staff.GET("/users", userHandler.List)
			staff.GET("/stats", statHandler.Dashboard)
			staff.GET("/classes", classHandler.ListClasses)
			staff.POST("/classes", classHandler.CreateClass)
			staff.POST("/classes/:id/enroll", classHandler.Enroll)
			staff.GET("/classes/:id/students", classHandler.ClassStudents)
		}

		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/logs", adminHandler.Logs)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
			admin.POST("/import", adminHandler.ImportStudents)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runPendingReminder(ctx, certRepo, userRepo, mail)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("CertHub API listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exited with error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Certificate{},
		&model.Platform{},
		&model.Class{},
		&model.Enrollment{},
		&model.AuditLog{},
		&model.Notification{},
	)
}

func seedPlatforms(db *gorm.DB) error {
	defaults := []model.Platform{
		{Name: "Coursera", Color: "#0056D2"},
		{Name: "Udemy", Color: "#A435F0"},
		{Name: "LinkedIn Learning", Color: "#0A66C2"},
		{Name: "Pluralsight", Color: "#F15B2A"},
		{Name: "EdX", Color: "#02262B"},
	}

	for _, platform := range defaults {
		var count int64
		if err := db.Model(&model.Platform{}).
			Where("name = ?", platform.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&platform).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ?", "admin@certhub.local").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.User{
		Name:         "Administrator",
		Email:        "admin@certhub.local",
		PasswordHash: string(hashed),
		Role:         model.RoleAdmin,
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	log.Println("   Email: admin@certhub.local")
	log.Println("   Password: admin123")

	return nil
}

// runPendingReminder emails staff a daily digest when certificates have been
// sitting in PENDING for more than three days.
func runPendingReminder(ctx context.Context, certRepo repository.CertificateRepository, userRepo repository.UserRepository, mail mailer.Mailer) {
	if mail == nil {
		return
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sendPendingReminder(ctx, certRepo, userRepo, mail)
		}
	}
}

func sendPendingReminder(ctx context.Context, certRepo repository.CertificateRepository, userRepo repository.UserRepository, mail mailer.Mailer) {
	stale, err := certRepo.CountStalePending(ctx, time.Now().AddDate(0, 0, -3))
	if err != nil {
		log.Printf("Failed to count stale pending certificates: %v", err)
		return
	}
	if stale == 0 {
		return
	}

	teachers, err := userRepo.FindAll(ctx, model.RoleTeacher)
	if err != nil {
		log.Printf("Failed to load staff for pending reminder: %v", err)
		return
	}
	admins, err := userRepo.FindAll(ctx, model.RoleAdmin)
	if err != nil {
		log.Printf("Failed to load admins for pending reminder: %v", err)
		return
	}

	subject := "CertHub: certificates awaiting review"
	body := "There are certificates that have been pending review for more than 3 days. Please review them in the staff console."

	for _, staff := range append(teachers, admins...) {
		if err := mail.Send(ctx, staff.Email, subject, body, ""); err != nil {
			log.Printf("Failed to send pending reminder to %s: %v", staff.Email, err)
		}
	}
}
