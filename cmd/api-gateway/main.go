package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/course-reg-api/api/swagger"
	"github.com/noah-isme/course-reg-api/internal/handler"
	"github.com/noah-isme/course-reg-api/internal/middleware"
	"github.com/noah-isme/course-reg-api/internal/models"
	"github.com/noah-isme/course-reg-api/internal/repository"
	"github.com/noah-isme/course-reg-api/internal/service"
	"github.com/noah-isme/course-reg-api/pkg/cache"
	"github.com/noah-isme/course-reg-api/pkg/config"
	"github.com/noah-isme/course-reg-api/pkg/database"
	"github.com/noah-isme/course-reg-api/pkg/export"
	"github.com/noah-isme/course-reg-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-reg-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-reg-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-reg-api/pkg/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// @title Course Registration API
// @version 1.0.0
// @description Student course registration and admission records service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	cardStorage, err := storage.NewLocalStorage(cfg.Cards.StorageDir)
	if err != nil {
		logr.Fatal("failed to init card storage", zap.Error(err))
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	regRepo := repository.NewRegistrationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)

	authSvc := service.NewAuthService(userRepo, profileRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr, cfg.Catalog.CacheTTL)
	regSvc := service.NewRegistrationService(regRepo, profileRepo, cacheSvc, metricsSvc, validate, logr)
	profileSvc := service.NewProfileService(profileRepo, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(profileRepo, regRepo, courseRepo, cacheSvc, logr, cfg.Dashboard.CacheTTL)
	studentSvc := service.NewStudentService(
		studentRepo,
		userRepo,
		export.NewCardPDF(cfg.Cards.SchoolName),
		cardStorage,
		storage.NewSignedURLSigner(cfg.Cards.SignedURLSecret, cfg.Cards.SignedURLTTL),
		validate,
		logr,
	)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	regHandler := handler.NewRegistrationHandler(regSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	students := api.Group("/students")
	{
		// The download link is pre-signed and the QR check is meant for
		// scanners, so both stay outside the JWT guard.
		students.GET("/cards/download", studentHandler.DownloadCard)
		students.GET("/verify/:qr", studentHandler.VerifyQR)

		admin := students.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("", studentHandler.List)
			admin.POST("", studentHandler.Create)
			admin.GET("/export", studentHandler.ExportCSV)
			admin.GET("/nisn/:nisn", studentHandler.GetByNISN)
			admin.GET("/:id", studentHandler.Get)
			admin.PUT("/:id", studentHandler.Update)
			admin.DELETE("/:id", studentHandler.Delete)
			admin.GET("/:id/card", studentHandler.IssueCard)
		}
	}

	authed := api.Group("", middleware.JWT(authSvc))
	{
		authed.GET("/dashboard", dashboardHandler.Get)
		authed.GET("/profile", profileHandler.Get)
		authed.PATCH("/profile", profileHandler.Update)

		courses := authed.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.GET("/available", courseHandler.ListAvailable)
			courses.GET("/:id", courseHandler.Get)

			courses.POST("", middleware.RequireRoles(models.RoleAdmin), courseHandler.Create)
			courses.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Update)
			courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Delete)
		}

		regs := authed.Group("/registrations")
		{
			regs.POST("", middleware.RequireRoles(models.RoleStudent), regHandler.Create)
			regs.GET("/me", middleware.RequireRoles(models.RoleStudent), regHandler.ListMine)
			regs.PUT("/:id/withdraw", middleware.RequireRoles(models.RoleStudent), regHandler.Withdraw)

			// Students get their own list back; only admins may filter
			// across students.
			regs.GET("", regHandler.List)
			regs.PUT("/:id/status", middleware.RequireRoles(models.RoleAdmin), regHandler.UpdateStatus)

			regs.GET("/:id", regHandler.Get)
		}

		authed.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
